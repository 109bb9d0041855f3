package vm

import (
	"github.com/yuin/gopher-lua/ast"
)

// nameTable maps a function's line range to the names of the functions
// defined there, in source order.
type nameTable struct {
	byRange map[[2]int][]string
}

func (t *nameTable) add(fn *ast.FunctionExpr, name string) {
	key := [2]int{fn.Line(), fn.LastLine()}
	t.byRange[key] = append(t.byRange[key], name)
}

// take returns the next unused name for the range, or "".
func (t *nameTable) take(first, last int) string {
	key := [2]int{first, last}
	names := t.byRange[key]
	if len(names) == 0 {
		return ""
	}
	t.byRange[key] = names[1:]
	return names[0]
}

// functionNames names every function expression of chunk after the
// statement that binds it: "f" for local function f, "a.b" for
// function a.b, "a:m" for function a:m and "x" for x = function.
// Anonymous functions get "".
func functionNames(chunk []ast.Stmt) *nameTable {
	t := &nameTable{byRange: make(map[[2]int][]string)}
	t.stmts(chunk)
	return t
}

func (t *nameTable) stmts(list []ast.Stmt) {
	for _, st := range list {
		t.stmt(st)
	}
}

func (t *nameTable) stmt(st ast.Stmt) {
	switch s := st.(type) {
	case *ast.FuncDefStmt:
		name := ""
		if s.Name != nil {
			if s.Name.Func != nil {
				name = exprName(s.Name.Func)
			} else if recv := exprName(s.Name.Receiver); recv != "" {
				name = recv + ":" + s.Name.Method
			}
		}
		t.function(s.Func, name)
	case *ast.LocalAssignStmt:
		for i, e := range s.Exprs {
			name := ""
			if i < len(s.Names) {
				name = s.Names[i]
			}
			t.named(e, name)
		}
	case *ast.AssignStmt:
		for i, e := range s.Rhs {
			name := ""
			if i < len(s.Lhs) {
				name = exprName(s.Lhs[i])
			}
			t.named(e, name)
		}
	case *ast.FuncCallStmt:
		t.expr(s.Expr)
	case *ast.DoBlockStmt:
		t.stmts(s.Stmts)
	case *ast.WhileStmt:
		t.expr(s.Condition)
		t.stmts(s.Stmts)
	case *ast.RepeatStmt:
		t.stmts(s.Stmts)
		t.expr(s.Condition)
	case *ast.IfStmt:
		t.expr(s.Condition)
		t.stmts(s.Then)
		t.stmts(s.Else)
	case *ast.NumberForStmt:
		t.expr(s.Init)
		t.expr(s.Limit)
		t.expr(s.Step)
		t.stmts(s.Stmts)
	case *ast.GenericForStmt:
		for _, e := range s.Exprs {
			t.expr(e)
		}
		t.stmts(s.Stmts)
	case *ast.ReturnStmt:
		for _, e := range s.Exprs {
			t.expr(e)
		}
	}
}

// named records e under name when it is a function expression.
func (t *nameTable) named(e ast.Expr, name string) {
	if fn, ok := e.(*ast.FunctionExpr); ok {
		t.function(fn, name)
		return
	}
	t.expr(e)
}

func (t *nameTable) function(fn *ast.FunctionExpr, name string) {
	if fn == nil {
		return
	}
	t.add(fn, name)
	t.stmts(fn.Stmts)
}

func (t *nameTable) expr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.FunctionExpr:
		t.function(x, "")
	case *ast.FuncCallExpr:
		t.expr(x.Func)
		t.expr(x.Receiver)
		for _, a := range x.Args {
			t.expr(a)
		}
	case *ast.TableExpr:
		for _, f := range x.Fields {
			if f == nil {
				continue
			}
			name := ""
			if k, ok := f.Key.(*ast.StringExpr); ok {
				name = k.Value
			}
			t.named(f.Value, name)
		}
	case *ast.LogicalOpExpr:
		t.expr(x.Lhs)
		t.expr(x.Rhs)
	}
}

// exprName renders identifiers and constant field paths such as a.b.c.
func exprName(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.IdentExpr:
		return x.Value
	case *ast.AttrGetExpr:
		obj := exprName(x.Object)
		key, ok := x.Key.(*ast.StringExpr)
		if obj == "" || !ok {
			return ""
		}
		return obj + "." + key.Value
	}
	return ""
}
