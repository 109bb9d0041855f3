package console

import (
	"strconv"
	"strings"
)

// Coerce converts literal to a value of the same type as exemplar, the
// current value of the variable being assigned. Only numbers and
// booleans convert. Any other exemplar, or a literal that does not
// parse, yields NoConversion.
func Coerce(literal string, exemplar Value) Value {
	s := strings.TrimSpace(literal)
	if exemplar == nil {
		return NoConversion
	}

	switch exemplar.Kind() {
	case KindNumber:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return NoConversion
		}
		return Number(n)
	case KindBool:
		switch s {
		case "true":
			return Bool(true)
		case "false":
			return Bool(false)
		}
		return NoConversion
	default:
		return NoConversion
	}
}
