// Package serverclock provides a linter that flags bare time.Now() calls
// in any file other than dbcontext.go and _test.go files. Run it scoped to internal/mongostore,
// where dbcontext.go is the only file meant to read the wall clock directly
// (internal/mongostore/dbcontext.go.GetServerTimeUtc); everything else
// should read time through that sampled server clock instead.
package serverclock

import (
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer is the serverclock analyzer.
var Analyzer = &analysis.Analyzer{
	Name: "serverclock",
	Doc:  "flags time.Now() in internal/mongostore outside dbcontext.go; use DbContext.GetServerTimeUtc instead",
	Run:  run,
}

func run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		filename := pass.Fset.Position(file.Pos()).Filename
		if strings.HasSuffix(filename, "dbcontext.go") || strings.HasSuffix(filename, "_test.go") {
			continue
		}

		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || !isTimeNow(call) {
				return true
			}
			if hasNolintComment(pass, file, call) {
				return true
			}
			pass.Reportf(call.Pos(), "time.Now() is not allowed in internal/mongostore outside dbcontext.go; read DbContext.GetServerTimeUtc instead")
			return true
		})
	}

	return nil, nil
}

// hasNolintComment allows local-wall-clock uses that are deliberately not
// server-clock reads (process timers, timeout deadlines) to opt out with a
// //nolint or //nolint:serverclock comment on the same or preceding line.
func hasNolintComment(pass *analysis.Pass, file *ast.File, call *ast.CallExpr) bool {
	pos := pass.Fset.Position(call.Pos())
	for _, cg := range file.Comments {
		for _, comment := range cg.List {
			commentPos := pass.Fset.Position(comment.Pos())
			if commentPos.Line != pos.Line && commentPos.Line != pos.Line-1 {
				continue
			}
			if !strings.Contains(comment.Text, "nolint") {
				continue
			}
			if !strings.Contains(comment.Text, ":") || strings.Contains(comment.Text, "serverclock") {
				return true
			}
		}
	}
	return false
}

func isTimeNow(call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Now" {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	return ok && ident.Name == "time"
}
