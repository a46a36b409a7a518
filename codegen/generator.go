// Package codegen implements the code generator of spec §4.4: it walks the
// composed AST (heritage chain plus block map from package resolve) and
// emits Go source implementing the render contract of spec §6.
//
// Grounded on the teacher's state.go eval* dispatch — the same node-by-node
// walk, transformed from "execute against a live Value" into "emit Go
// source text for", plus state_debug.go (repurposed into the AST/code
// diagnostic dumper, see dump.go) and filters.go/tests.go for the built-in
// call shapes generated filter/escaper references target.
package codegen

import (
	"fmt"
	"go/format"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/askamago/askama/ast"
	"github.com/askamago/askama/syntax"
)

// varBinding is one scope-frame entry: the template-source name mapped to
// the Go identifier actually emitted, plus whether it is a still-unassigned
// `let p;` placeholder (spec §4.4's "dominating later assignment").
type varBinding struct {
	ident       string
	placeholder bool
}

// blockFrame records one in-progress block override body, so a `super()`
// call inside it can find the next-older override in the same chain.
type blockFrame struct {
	name string
	idx  int
}

// Generator holds the state threaded through one Generate invocation.
type Generator struct {
	target Target
	buf    strings.Builder

	frames   []map[string]varBinding
	identSeq map[string]int // base name -> next disambiguating suffix

	macros macroTable

	// blockTrail is the stack of block override bodies currently being
	// emitted, innermost last, consulted by emitSuper.
	blockTrail []blockFrame

	// sinkIdent is the Go identifier the next literal/expression write
	// targets; it is "sink" (RenderInto's parameter) everywhere except
	// inside a {% filter %} block, which redirects it to a captured buffer.
	sinkIdent string

	// curDir is the filesystem directory of the template whose nodes are
	// currently being walked, used to resolve relative include/import paths.
	curDir string

	sizeHint int
}

// Generate runs the generator for t and returns formatted Go source
// implementing the render contract, or a *Error.
func Generate(t Target) (string, error) {
	g := &Generator{
		target:    t,
		identSeq:  map[string]int{},
		macros:    macroTable{},
		sinkIdent: "sink",
	}

	if t.Heritage == nil || len(t.Heritage.Chain) == 0 {
		return "", &Error{Kind: UnsupportedConstruct, Message: "target has no resolved heritage chain"}
	}

	if err := g.collectMacros(); err != nil {
		return "", err
	}

	g.pushFrame()
	if t.Block != "" {
		if err := g.emitBlockFragment(t.Block); err != nil {
			return "", err
		}
	} else {
		baseIdx := len(t.Heritage.Chain) - 1
		g.curDir = filepath.Dir(t.Heritage.Paths[baseIdx])
		if err := g.emitNodes(t.Heritage.Chain[baseIdx].Nodes); err != nil {
			return "", err
		}
	}
	g.popFrame()

	src := g.assemble(g.buf.String())

	formatted, err := format.Source([]byte(src))
	if err != nil {
		// Surface the unformatted source too so a caller debugging a
		// generator bug (rather than a template bug) can see raw output.
		return src, &Error{Kind: UnsupportedConstruct, Message: "generated Go source failed gofmt: " + err.Error()}
	}
	return string(formatted), nil
}

// assemble wraps the rendered body in the package clause, imports, and the
// render-contract declarations of spec §6.
func (g *Generator) assemble(body string) string {
	t := g.target
	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", t.PackageName)
	b.WriteString("import (\n")
	b.WriteString("\t\"strings\"\n\n")
	b.WriteString("\t\"github.com/askamago/askama/runtime\"\n")
	b.WriteString(")\n\n")

	fmt.Fprintf(&b, "const %s_SIZE_HINT = %d\n", t.TypeName, g.sizeHint)
	fmt.Fprintf(&b, "const %s_EXTENSION = %q\n", t.TypeName, t.Extension)
	fmt.Fprintf(&b, "const %s_MIME_TYPE = %q\n\n", t.TypeName, mimeTypeOrDefault(t.Escaper))

	fmt.Fprintf(&b, "func (recv *%s) RenderInto(sink runtime.Sink) error {\n", t.TypeName)
	b.WriteString("\tt := recv\n")
	b.WriteString("\t_ = t\n")
	b.WriteString(body)
	b.WriteString("\treturn nil\n")
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "func (recv *%s) Render() (string, error) {\n", t.TypeName)
	fmt.Fprintf(&b, "\tvar sb strings.Builder\n")
	fmt.Fprintf(&b, "\tsb.Grow(%s_SIZE_HINT)\n", t.TypeName)
	b.WriteString("\tif err := recv.RenderInto(&sb); err != nil {\n")
	b.WriteString("\t\treturn \"\", err\n")
	b.WriteString("\t}\n")
	b.WriteString("\treturn sb.String(), nil\n")
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, "func (recv *%s) String() string {\n", t.TypeName)
	b.WriteString("\ts, err := recv.Render()\n")
	b.WriteString("\tif err != nil {\n")
	b.WriteString("\t\treturn \"<render error: \" + err.Error() + \">\"\n")
	b.WriteString("\t}\n")
	b.WriteString("\treturn s\n")
	b.WriteString("}\n")

	return b.String()
}

func mimeTypeOrDefault(e syntax.Escaper) string {
	if e.MIMEType == "" {
		return "text/plain"
	}
	return e.MIMEType
}

// --- scope frames ---

func (g *Generator) pushFrame() { g.frames = append(g.frames, map[string]varBinding{}) }
func (g *Generator) popFrame()  { g.frames = g.frames[:len(g.frames)-1] }

func (g *Generator) lookup(name string) (varBinding, bool) {
	for i := len(g.frames) - 1; i >= 0; i-- {
		if b, ok := g.frames[i][name]; ok {
			return b, true
		}
	}
	return varBinding{}, false
}

// bind introduces name into the innermost frame under a fresh, collision-free
// Go identifier and returns it.
func (g *Generator) bind(name string, placeholder bool) string {
	ident := g.freshIdent(name)
	g.frames[len(g.frames)-1][name] = varBinding{ident: ident, placeholder: placeholder}
	return ident
}

// clearPlaceholder clears an existing binding's placeholder flag in place,
// once a `let p;` placeholder receives its dominating assignment.
func (g *Generator) clearPlaceholder(name string) {
	for i := len(g.frames) - 1; i >= 0; i-- {
		if b, ok := g.frames[i][name]; ok {
			b.placeholder = false
			g.frames[i][name] = b
			return
		}
	}
}

func (g *Generator) freshIdent(base string) string {
	safe := sanitizeIdent(base)
	n := g.identSeq[safe]
	g.identSeq[safe] = n + 1
	if n == 0 {
		return safe
	}
	return safe + strconv.Itoa(n+1)
}

func sanitizeIdent(name string) string {
	if name == "" {
		return "_v"
	}
	var b strings.Builder
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return "_v"
	}
	if isGoKeyword(s) {
		return s + "_"
	}
	return s
}

func isGoKeyword(s string) bool {
	switch s {
	case "break", "default", "func", "interface", "select", "case", "defer",
		"go", "map", "struct", "chan", "else", "goto", "package", "switch",
		"const", "fallthrough", "if", "range", "type", "continue", "for",
		"import", "return", "var":
		return true
	default:
		return false
	}
}

// resolveVar implements spec §4.4's variable resolution order: local scope
// innermost-first, then the context receiver. A path-prefixed Var bypasses
// local scope entirely.
func (g *Generator) resolveVar(v *ast.Var) string {
	switch v.Prefix {
	case ast.PathSelf:
		return "t." + v.Name
	case ast.PathCrate, ast.PathSuper, ast.PathSelfType:
		// The prefix is dropped and the bare name is emitted, naming a
		// package-level symbol the host package declares.
		return v.Name
	}
	if b, ok := g.lookup(v.Name); ok {
		return b.ident
	}
	return "t." + v.Name
}

// emitBlockFragment renders only the named block's child-most override body,
// per spec §4.4's "block fragments".
func (g *Generator) emitBlockFragment(name string) error {
	overrides, ok := g.target.Heritage.Blocks[name]
	if !ok || len(overrides) == 0 {
		return &Error{Kind: UnsupportedConstruct, Message: "unknown block fragment " + strconv.Quote(name)}
	}
	g.curDir = filepath.Dir(g.target.Heritage.Paths[overrides[0].TemplateIndex])
	return g.emitBlockChain(name, 0)
}

// emitBlockChain emits the override at Blocks[name][idx] (child-most is
// idx==0), pushing a blockTrail entry so a super() call inside its body can
// find Blocks[name][idx+1].
func (g *Generator) emitBlockChain(name string, idx int) error {
	overrides := g.target.Heritage.Blocks[name]
	if idx < 0 || idx >= len(overrides) {
		return nil
	}
	savedDir := g.curDir
	g.curDir = filepath.Dir(g.target.Heritage.Paths[overrides[idx].TemplateIndex])
	g.blockTrail = append(g.blockTrail, blockFrame{name: name, idx: idx})
	g.pushFrame()
	err := g.emitNodes(overrides[idx].Def.Body)
	g.popFrame()
	g.blockTrail = g.blockTrail[:len(g.blockTrail)-1]
	g.curDir = savedDir
	return err
}

// emitSuper handles a standalone `{{ super() }}` expression statement by
// inlining the next-older override's body in place.
func (g *Generator) emitSuper() error {
	if len(g.blockTrail) == 0 {
		return &Error{Kind: UnsupportedConstruct, Message: "super() used outside a block override"}
	}
	top := g.blockTrail[len(g.blockTrail)-1]
	return g.emitBlockChain(top.name, top.idx+1)
}

func isSuperCall(e ast.Expression) bool {
	fc, ok := e.(*ast.FuncCall)
	return ok && fc.Name == "super" && len(fc.Args) == 0
}

// appendLit tallies a literal's byte length into the running size hint; the
// fixed per-expression allowance is added the same way at each expression
// write site (emitNodes and emitFilterBlock).
func (g *Generator) appendLit(n int) { g.sizeHint += n }

const perExprSizeHint = 16

// escaperFuncName returns the `func(Sink, string) error` Go value bound to
// the target's active escaper, used as a runtime.Markup.Escaper.
func (g *Generator) escaperFuncName() string {
	switch g.target.Escaper.Name {
	case "html":
		return "runtime.HTMLEscape"
	case "none", "":
		return "runtime.NoEscape"
	default:
		// A configured non-built-in escaper is resolved to a package-level
		// function the host package provides, per spec §3's escaper table.
		return "Escape" + exportedName(g.target.Escaper.Name)
	}
}

// emitWriteStatement appends a statement writing valueExpr to the current
// sink. When escape is true, valueExpr is the raw (not yet display-formatted)
// value and is routed through a runtime.Markup bound to the active escaper,
// per spec §4.5. When escape is false, valueExpr is already a complete Go
// string expression (a quoted literal, or a `safe`/`escape`-terminated
// filter chain's already-escaped result) and is written unchanged.
func (g *Generator) emitWriteStatement(valueExpr string, escape bool) {
	if escape {
		fmt.Fprintf(&g.buf, "if err := (runtime.Markup{Value: %s, Escaper: %s}).WriteTo(%s); err != nil {\n\treturn err\n}\n",
			valueExpr, g.escaperFuncName(), g.sinkIdent)
		return
	}
	fmt.Fprintf(&g.buf, "if err := runtime.NoEscape(%s, %s); err != nil {\n\treturn err\n}\n", g.sinkIdent, valueExpr)
}

// exportedName upper-cases name's first rune so a template-declared
// identifier (filter or escaper name) becomes a legal exported Go
// function name the host package is expected to define.
func exportedName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
