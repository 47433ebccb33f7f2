package helpful

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/helpfultests/helpfultests/internal/sidecar"
	"github.com/helpfultests/helpfultests/internal/timeout"
)

// testDir returns the directory of the calling test's source file, falling back to the working directory (where go test runs a package's tests).
func testDir() string {
	if f := timeout.Caller(0); f.File != "" {
		return filepath.Dir(f.File)
	}
	return "."
}

// Doc checks that the function or method called name ("Add", or "Stack.Push" for a method) in the package under test has a doc comment of at least minLength
// characters. An empty name checks the package comment.
func (h *T) Doc(name string, minLength int) {
	h.tb.Helper()
	what := "package"
	if name != "" {
		what = name + "()"
	}

	doc, err := findDoc(testDir(), name)
	switch {
	case err != nil:
		h.fail(sidecar.KindError, fmt.Sprintf("Could not check the doc comment for %s: %v", what, err))
	case doc == "":
		h.fail(sidecar.KindFailure, fmt.Sprintf("No doc comment provided for %s", what))
	case utf8.RuneCountInString(doc) < minLength:
		h.fail(sidecar.KindFailure, fmt.Sprintf("Doc comment for %s isn't very descriptive...", what))
	}
}

// findDoc returns the trimmed doc comment of name in the non-test Go files of dir. It is an error if name is not declared.
func findDoc(dir, name string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	recv, fn, isMethod := strings.Cut(name, ".")
	if !isMethod {
		fn, recv = recv, ""
	}

	fset := token.NewFileSet()
	found := false
	var docs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") || strings.HasSuffix(e.Name(), "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, e.Name()), nil, parser.ParseComments)
		if err != nil {
			return "", err
		}
		if name == "" {
			found = true
			if file.Doc != nil {
				docs = append(docs, strings.TrimSpace(file.Doc.Text()))
			}
			continue
		}
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Name.Name != fn || receiverName(fd) != recv {
				continue
			}
			found = true
			if fd.Doc != nil {
				docs = append(docs, strings.TrimSpace(fd.Doc.Text()))
			}
		}
	}
	if !found {
		return "", fmt.Errorf("%s is not declared in %s", name, dir)
	}
	return strings.Join(docs, "\n"), nil
}

func receiverName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	t := fd.Recv.List[0].Type
	if star, ok := t.(*ast.StarExpr); ok {
		t = star.X
	}
	switch x := t.(type) {
	case *ast.Ident:
		return x.Name
	case *ast.IndexExpr: // generic receiver
		if id, ok := x.X.(*ast.Ident); ok {
			return id.Name
		}
	case *ast.IndexListExpr:
		if id, ok := x.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	return ""
}

// ReadFile returns the contents of a file next to the test, failing the test if it cannot be read.
func (h *T) ReadFile(name string) string {
	h.tb.Helper()
	data, err := os.ReadFile(filepath.Join(testDir(), name))
	if err != nil {
		h.fail(sidecar.KindError, fmt.Sprintf("Could not read %s: %v", name, err))
		return ""
	}
	return string(data)
}
