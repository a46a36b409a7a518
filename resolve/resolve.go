// Package resolve implements the resolver of spec §4.3: path resolution for
// extends/include/import references, Heritage chain construction with cycle
// rejection, and block-map construction across that chain.
//
// Grounded on the teacher's state.go evalExtends/evalBlock/evalInclude
// control flow — the teacher walks this graph at render time since it is an
// interpreter; here the same walk happens once, at generator time, producing
// a data structure (Heritage) instead of immediately executing it — plus
// environment.go's template loader for the relative-then-root path lookup
// order.
package resolve

import (
	"os"
	"path/filepath"

	"github.com/askamago/askama/ast"
	"github.com/askamago/askama/parse"
	"github.com/askamago/askama/syntax"
)

// maxExtendsDepth caps the extends chain length; spec §4.3 leaves the limit
// to implementations ("may cap it and surface ResolveError::TooDeep").
const maxExtendsDepth = 64

// Loader resolves template references to canonical filesystem paths, parses
// and caches them, and builds Heritage chains. A Loader is not safe for
// concurrent use; callers needing parallelism should use one per goroutine.
type Loader struct {
	Roots []string
	Table syntax.Table

	cache map[string]*ast.Template
}

// NewLoader creates a Loader that resolves relative to roots, in order,
// after the including template's own directory.
func NewLoader(roots []string, table syntax.Table) *Loader {
	return &Loader{Roots: roots, Table: table, cache: map[string]*ast.Template{}}
}

// Resolve finds the canonical path for ref as seen from fromDir (the
// including template's directory, "" for the entry point), trying fromDir
// first and falling through l.Roots in order.
func (l *Loader) Resolve(fromDir, ref string) (string, error) {
	if fromDir != "" {
		candidate := filepath.Join(fromDir, ref)
		if fileExists(candidate) {
			return filepath.Clean(candidate), nil
		}
	}
	for _, root := range l.Roots {
		candidate := filepath.Join(root, ref)
		if fileExists(candidate) {
			return filepath.Clean(candidate), nil
		}
	}
	return "", &Error{Kind: NotFound, Path: fromDir, Ref: ref}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load resolves and parses the template named ref from fromDir, caching the
// result under its canonical path. Subsequent loads of the same canonical
// path return the cached *ast.Template.
func (l *Loader) Load(fromDir, ref string) (*ast.Template, string, error) {
	canonical, err := l.Resolve(fromDir, ref)
	if err != nil {
		return nil, "", err
	}
	if t, ok := l.cache[canonical]; ok {
		return t, canonical, nil
	}
	src, err := os.ReadFile(canonical)
	if err != nil {
		return nil, "", &Error{Kind: NotFound, Path: fromDir, Ref: ref}
	}
	tmpl, perr := parse.New(canonical, string(src), l.Table).Parse()
	if perr != nil {
		return nil, "", perr
	}
	l.cache[canonical] = tmpl
	return tmpl, canonical, nil
}

// LoadEntry parses the root template for a generator invocation. When
// inlineSource is non-empty it is parsed directly under the virtual path
// entryPath (spec §4.3: "an entry template reference (path or inline
// source)"); otherwise entryPath is resolved against l.Roots like any other
// reference.
func (l *Loader) LoadEntry(entryPath, inlineSource string) (*ast.Template, string, error) {
	if inlineSource != "" {
		tmpl, err := parse.New(entryPath, inlineSource, l.Table).Parse()
		if err != nil {
			return nil, "", err
		}
		l.cache[entryPath] = tmpl
		return tmpl, entryPath, nil
	}
	return l.Load("", entryPath)
}

// Heritage is the composed inheritance chain of one rendered template: Chain
// runs child-most (the entry template, index 0) to base-most (the last
// element), Paths holds the parallel canonical paths, and Blocks maps each
// block name to its override chain in the same child-to-base order.
type Heritage struct {
	Chain  []*ast.Template
	Paths  []string
	Blocks BlockMap
}

// BlockOverride is one BlockDef contributing to a block's override chain,
// tagged with the index into Heritage.Chain/Paths that defines it.
type BlockOverride struct {
	TemplateIndex int
	Def           *ast.BlockDef
}

// BlockMap is keyed by block name; each entry is ordered child-most first,
// per the GLOSSARY's "Block override chain" definition.
type BlockMap map[string][]BlockOverride

// BuildHeritage walks entry's extends edges to completion and returns the
// composed Heritage, or a *Error on a missing base, a cycle, or exceeding
// maxExtendsDepth.
func (l *Loader) BuildHeritage(entry *ast.Template, canonicalPath string) (*Heritage, error) {
	chain := []*ast.Template{entry}
	paths := []string{canonicalPath}
	seen := map[string]bool{canonicalPath: true}

	cur := entry
	curDir := filepath.Dir(canonicalPath)
	for {
		ext, ok := firstExtends(cur)
		if !ok {
			break
		}
		if len(chain) >= maxExtendsDepth {
			return nil, &Error{Kind: TooDeep, Path: paths[len(paths)-1]}
		}
		basePath, err := l.Resolve(curDir, ext.Path)
		if err != nil {
			return nil, err
		}
		if seen[basePath] {
			return nil, &Error{Kind: Cycle, Path: paths[len(paths)-1], Ref: ext.Path}
		}
		base, _, err := l.Load(curDir, ext.Path)
		if err != nil {
			return nil, err
		}
		chain = append(chain, base)
		paths = append(paths, basePath)
		seen[basePath] = true
		cur = base
		curDir = filepath.Dir(basePath)
	}

	return &Heritage{Chain: chain, Paths: paths, Blocks: buildBlockMap(chain)}, nil
}

func firstExtends(t *ast.Template) (*ast.Extends, bool) {
	for _, n := range t.Nodes {
		switch v := n.(type) {
		case *ast.Lit:
			continue
		case *ast.Comment:
			continue
		case *ast.Extends:
			return v, true
		default:
			return nil, false
		}
	}
	return nil, false
}

// buildBlockMap collects every BlockDef reachable in each chain template
// (at any nesting depth, per spec §4.3's "mutually recursively for nested
// blocks"), appending to each name's override list in chain order — which is
// already child-most first since Chain[0] is the entry template.
func buildBlockMap(chain []*ast.Template) BlockMap {
	blocks := BlockMap{}
	for i, t := range chain {
		for _, def := range collectBlockDefs(t.Nodes) {
			blocks[def.Name] = append(blocks[def.Name], BlockOverride{TemplateIndex: i, Def: def})
		}
	}
	return blocks
}

func collectBlockDefs(nodes []ast.Node) []*ast.BlockDef {
	var out []*ast.BlockDef
	for _, n := range nodes {
		switch v := n.(type) {
		case *ast.BlockDef:
			out = append(out, v)
			out = append(out, collectBlockDefs(v.Body)...)
		case *ast.Cond:
			for _, br := range v.Branches {
				out = append(out, collectBlockDefs(br.Body)...)
			}
		case *ast.Loop:
			out = append(out, collectBlockDefs(v.Body)...)
			out = append(out, collectBlockDefs(v.Else)...)
		case *ast.Match:
			for _, arm := range v.Arms {
				out = append(out, collectBlockDefs(arm.Body)...)
			}
		case *ast.FilterBlock:
			out = append(out, collectBlockDefs(v.Body)...)
		}
	}
	return out
}
