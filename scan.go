package askama

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"

	"github.com/askamago/askama/config"
)

// ScanPackage reads every non-generated, non-test .go file directly under
// dir and returns one GenerateRequest per struct type carrying an
// `//askama:template` doc comment, per spec §6's attribute-macro stand-in.
func ScanPackage(dir string) ([]GenerateRequest, error) {
	fset := token.NewFileSet()
	files, err := filepath.Glob(filepath.Join(dir, "*.go"))
	if err != nil {
		return nil, err
	}

	var reqs []GenerateRequest
	for _, path := range files {
		if strings.HasSuffix(path, "_test.go") || strings.HasSuffix(path, "_askama.gen.go") {
			continue
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		found, err := scanFile(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		reqs = append(reqs, found...)
	}
	return reqs, nil
}

func scanFile(f *ast.File) ([]GenerateRequest, error) {
	var reqs []GenerateRequest
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			if _, ok := ts.Type.(*ast.StructType); !ok {
				continue
			}
			doc := ts.Doc
			if doc == nil && len(gd.Specs) == 1 {
				doc = gd.Doc
			}
			if doc == nil {
				continue
			}
			ann, ok, err := findAnnotation(doc, ts.Name.Name)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			reqs = append(reqs, GenerateRequest{
				PackageName: f.Name.Name,
				TypeName:    ts.Name.Name,
				Annotation:  ann,
			})
		}
	}
	return reqs, nil
}

func findAnnotation(doc *ast.CommentGroup, structName string) (config.Annotation, bool, error) {
	for _, c := range doc.List {
		ann, ok, err := config.ParseAnnotationComment(c.Text, structName)
		if err != nil {
			return config.Annotation{}, true, err
		}
		if ok {
			return ann, true, nil
		}
	}
	return config.Annotation{}, false, nil
}
