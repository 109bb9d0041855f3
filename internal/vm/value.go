package vm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/luadbg/internal/console"
)

// maxTableEntries is how many fields a formatted table shows.
const maxTableEntries = 8

// Value is a Lua value seen through the console.
type Value struct {
	lv lua.LValue
}

// NewValue wraps lv.
func NewValue(lv lua.LValue) Value {
	if lv == nil {
		lv = lua.LNil
	}
	return Value{lv: lv}
}

// LValue returns the wrapped Lua value.
func (v Value) LValue() lua.LValue { return v.lv }

// Kind implements console.Value.
func (v Value) Kind() console.Kind {
	switch v.lv.Type() {
	case lua.LTNil:
		return console.KindNil
	case lua.LTBool:
		return console.KindBool
	case lua.LTNumber:
		return console.KindNumber
	case lua.LTString:
		return console.KindString
	default:
		return console.KindObject
	}
}

// Format implements console.Value. Tables are shown one level deep.
func (v Value) Format() string {
	return formatLValue(v.lv, true)
}

func formatLValue(lv lua.LValue, expand bool) string {
	switch x := lv.(type) {
	case *lua.LNilType:
		return "nil"
	case lua.LBool:
		return strconv.FormatBool(bool(x))
	case lua.LNumber:
		return formatNumber(float64(x))
	case lua.LString:
		return strconv.Quote(string(x))
	case *lua.LTable:
		if !expand {
			return "{...}"
		}
		return formatTable(x)
	default:
		return lv.Type().String()
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// formatTable renders the array part in order, then the remaining keys
// sorted by their text.
func formatTable(t *lua.LTable) string {
	var parts []string
	n := t.Len()
	for i := 1; i <= n; i++ {
		parts = append(parts, formatLValue(t.RawGetInt(i), false))
	}

	type field struct{ key, text string }
	var fields []field
	t.ForEach(func(k, val lua.LValue) {
		if kn, ok := k.(lua.LNumber); ok {
			if i := int(kn); float64(i) == float64(kn) && i >= 1 && i <= n {
				return
			}
		}
		key := formatKey(k)
		fields = append(fields, field{key: key, text: key + "=" + formatLValue(val, false)})
	})
	sort.Slice(fields, func(i, j int) bool { return fields[i].key < fields[j].key })
	for _, f := range fields {
		parts = append(parts, f.text)
	}

	if len(parts) > maxTableEntries {
		parts = append(parts[:maxTableEntries], "...")
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatKey(k lua.LValue) string {
	if s, ok := k.(lua.LString); ok && isIdentifier(string(s)) {
		return string(s)
	}
	return "[" + formatLValue(k, false) + "]"
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// toLValue converts a console value back into a Lua value.
func toLValue(v console.Value) (lua.LValue, error) {
	switch x := v.(type) {
	case nil:
		return lua.LNil, nil
	case Value:
		return x.lv, nil
	case console.Number:
		return lua.LNumber(x), nil
	case console.Bool:
		return lua.LBool(x), nil
	case console.String:
		return lua.LString(x), nil
	}
	return nil, fmt.Errorf("cannot store %s value %s", v.Kind(), v.Format())
}
