// Package cookieflags reports net/http.Cookie literals that leave HttpOnly unset.
package cookieflags

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer flags http.Cookie composite literals without an HttpOnly field.
var Analyzer = &analysis.Analyzer{
	Name:     "cookieflags",
	Doc:      "requires http.Cookie literals to set HttpOnly explicitly",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	inspect.Preorder([]ast.Node{(*ast.CompositeLit)(nil)}, func(n ast.Node) {
		lit := n.(*ast.CompositeLit)
		if !isHTTPCookie(pass.TypesInfo.TypeOf(lit)) {
			return
		}

		for _, elt := range lit.Elts {
			kv, ok := elt.(*ast.KeyValueExpr)
			if !ok {
				// positional literal, every field is set
				return
			}
			if key, ok := kv.Key.(*ast.Ident); ok && key.Name == "HttpOnly" {
				return
			}
		}

		pass.Reportf(lit.Pos(), "http.Cookie literal without HttpOnly")
	})

	return nil, nil
}

func isHTTPCookie(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()

	return obj.Pkg() != nil && obj.Pkg().Path() == "net/http" && obj.Name() == "Cookie"
}
