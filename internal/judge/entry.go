package judge

import (
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"
)

// solutionTable is the global the candidate must define its methods on.
const solutionTable = "Solution"

// methodDecl is a method found on the Solution table in the candidate
// source, in declaration order.
type methodDecl struct {
	Name string
	// Params are the declared parameter names, without any implicit or
	// explicit self receiver.
	Params []string
	// NeedsSelf marks colon-declared methods and dot-declared methods whose
	// first parameter is named self; the Solution table is passed as the
	// first call argument for these.
	NeedsSelf bool
}

// discoverMethods walks the top level of the candidate source and collects
// every method attached to the Solution table, preserving source order.
// Recognized forms:
//
//	function Solution.name(a, b) end
//	function Solution:name(a, b) end
//	Solution.name = function(a, b) end
//	Solution = { name = function(a, b) end }
func discoverMethods(source string) ([]methodDecl, error) {
	chunk, err := parse.Parse(strings.NewReader(source), "candidate")
	if err != nil {
		return nil, err
	}
	var decls []methodDecl
	for _, stmt := range chunk {
		switch st := stmt.(type) {
		case *ast.FuncDefStmt:
			if d, ok := methodFromFuncDef(st); ok {
				decls = append(decls, d)
			}
		case *ast.AssignStmt:
			decls = append(decls, methodsFromAssign(st)...)
		}
	}
	return decls, nil
}

func methodFromFuncDef(st *ast.FuncDefStmt) (methodDecl, bool) {
	name := st.Name
	if name == nil {
		return methodDecl{}, false
	}
	// colon form: function Solution:name(...)
	if name.Method != "" {
		if !isIdent(name.Receiver, solutionTable) {
			return methodDecl{}, false
		}
		return methodDecl{
			Name:      name.Method,
			Params:    stripSelf(paramNames(st.Func)),
			NeedsSelf: true,
		}, true
	}
	// dot form: function Solution.name(...)
	attr, ok := name.Func.(*ast.AttrGetExpr)
	if !ok || !isIdent(attr.Object, solutionTable) {
		return methodDecl{}, false
	}
	mname, ok := stringKey(attr.Key)
	if !ok {
		return methodDecl{}, false
	}
	params := paramNames(st.Func)
	needsSelf := len(params) > 0 && params[0] == "self"
	return methodDecl{Name: mname, Params: stripSelf(params), NeedsSelf: needsSelf}, true
}

func methodsFromAssign(st *ast.AssignStmt) []methodDecl {
	var decls []methodDecl
	for i, lhs := range st.Lhs {
		if i >= len(st.Rhs) {
			break
		}
		switch target := lhs.(type) {
		case *ast.AttrGetExpr:
			// Solution.name = function(...) end
			if !isIdent(target.Object, solutionTable) {
				continue
			}
			mname, ok := stringKey(target.Key)
			if !ok {
				continue
			}
			fn, ok := st.Rhs[i].(*ast.FunctionExpr)
			if !ok {
				continue
			}
			params := paramNames(fn)
			needsSelf := len(params) > 0 && params[0] == "self"
			decls = append(decls, methodDecl{Name: mname, Params: stripSelf(params), NeedsSelf: needsSelf})
		case *ast.IdentExpr:
			// Solution = { name = function(...) end }
			if target.Value != solutionTable {
				continue
			}
			tbl, ok := st.Rhs[i].(*ast.TableExpr)
			if !ok {
				continue
			}
			for _, field := range tbl.Fields {
				mname, ok := stringKey(field.Key)
				if !ok {
					continue
				}
				fn, ok := field.Value.(*ast.FunctionExpr)
				if !ok {
					continue
				}
				params := paramNames(fn)
				needsSelf := len(params) > 0 && params[0] == "self"
				decls = append(decls, methodDecl{Name: mname, Params: stripSelf(params), NeedsSelf: needsSelf})
			}
		}
	}
	return decls
}

// firstPublic returns the first declared method whose name does not start
// with an underscore.
func firstPublic(decls []methodDecl) (methodDecl, bool) {
	for _, d := range decls {
		if !strings.HasPrefix(d.Name, "_") {
			return d, true
		}
	}
	return methodDecl{}, false
}

func paramNames(fn *ast.FunctionExpr) []string {
	if fn == nil || fn.ParList == nil {
		return nil
	}
	return fn.ParList.Names
}

func stripSelf(params []string) []string {
	if len(params) > 0 && params[0] == "self" {
		return params[1:]
	}
	return params
}

func isIdent(expr ast.Expr, name string) bool {
	id, ok := expr.(*ast.IdentExpr)
	return ok && id.Value == name
}

func stringKey(expr ast.Expr) (string, bool) {
	s, ok := expr.(*ast.StringExpr)
	if !ok {
		return "", false
	}
	return s.Value, true
}
