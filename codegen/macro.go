package codegen

import (
	"path/filepath"
	"strconv"

	"github.com/askamago/askama/ast"
)

// macroKey identifies a macro by the scope it was imported under ("" for a
// macro defined in the same template) and its name. Arity isn't part of the
// key: a macro's parameter list may carry defaults, so arity is checked
// against Params at the call site instead.
type macroKey struct {
	scope string
	name  string
}

type macroTable map[macroKey]*ast.MacroDef

func (m macroTable) lookup(scope, name string) (*ast.MacroDef, bool) {
	def, ok := m[macroKey{scope: scope, name: name}]
	return def, ok
}

// collectMacros scans every template in the heritage chain for MacroDef
// nodes (at any nesting depth) and for Import statements, which contribute
// the imported template's macros under the stated scope. Grounded on the
// teacher's environment.go macro-namespace construction, adapted from a
// runtime lookup table into a generator-time one.
func (g *Generator) collectMacros() error {
	h := g.target.Heritage
	for i, t := range h.Chain {
		dir := filepath.Dir(h.Paths[i])
		if err := g.collectMacrosFromNodes(t.Nodes, "", dir); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) collectMacrosFromNodes(nodes []ast.Node, scope, dir string) error {
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.MacroDef:
			g.macros[macroKey{scope: scope, name: v.Name}] = v
		case *ast.Import:
			if g.target.Loader == nil {
				return &Error{Kind: UnsupportedConstruct, Message: "import " + strconv.Quote(v.Path) + " requires a configured loader"}
			}
			tmpl, canonical, err := g.target.Loader.Load(dir, v.Path)
			if err != nil {
				return &Error{Kind: UnresolvedMacro, Message: "import " + strconv.Quote(v.Path) + ": " + err.Error()}
			}
			if err := g.collectMacrosFromNodes(tmpl.Nodes, v.Scope, filepath.Dir(canonical)); err != nil {
				return err
			}
		case *ast.BlockDef:
			if err := g.collectMacrosFromNodes(v.Body, scope, dir); err != nil {
				return err
			}
		case *ast.Cond:
			for _, br := range v.Branches {
				if err := g.collectMacrosFromNodes(br.Body, scope, dir); err != nil {
					return err
				}
			}
		case *ast.Loop:
			if err := g.collectMacrosFromNodes(v.Body, scope, dir); err != nil {
				return err
			}
			if err := g.collectMacrosFromNodes(v.Else, scope, dir); err != nil {
				return err
			}
		case *ast.Match:
			for _, arm := range v.Arms {
				if err := g.collectMacrosFromNodes(arm.Body, scope, dir); err != nil {
					return err
				}
			}
		case *ast.FilterBlock:
			if err := g.collectMacrosFromNodes(v.Body, scope, dir); err != nil {
				return err
			}
		}
	}
	return nil
}
