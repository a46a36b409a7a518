// Package ast defines the Template AST of spec §3: an ordered sequence of
// nodes produced by package parse and consumed by package resolve (for the
// Extends/Include/Import edges) and package codegen (for emission).
//
// Grounded on the teacher's internal/parser/ast.go (the Node/Stmt/Expr
// interface split and the shape of ForLoop/IfCond/Block/Extends/Include/
// Import/Macro/CallBlock), trimmed to exactly spec §3's closed node list and
// extended with Match, which has no minijinja analogue (Rust enum matching
// over the context type).
package ast

import "github.com/askamago/askama/lexer"

// Span is a source byte-offset range, reused from the lexer so parse errors
// and codegen diagnostics can point at the same coordinates.
type Span = lexer.Span

// WS captures the whitespace marker written directly inside a tag's
// delimiters on one side (leading or trailing).
type WS struct {
	Leading  MarkerSet
	Trailing MarkerSet
}

// MarkerSet is re-exported here rather than importing syntax.Marker
// directly in every node literal, to keep node construction terse; it has
// the same values as syntax.Marker.
type MarkerSet int

const (
	MarkerNone MarkerSet = iota
	MarkerSuppress
	MarkerPreserve
	MarkerMinimize
)

// Node is implemented by every statement-level AST node of spec §3.
type Node interface {
	Span() Span
	node()
}

// Lit is a literal triple: leading whitespace run, non-whitespace core,
// trailing whitespace run, per spec §3/§4.2. The split lets whitespace
// suppression clip either end without destroying the literal's content.
type Lit struct {
	Leading  string
	Core     string
	Trailing string
	span     Span
}

func NewLit(leading, core, trailing string, span Span) *Lit {
	return &Lit{Leading: leading, Core: core, Trailing: trailing, span: span}
}
func (l *Lit) Span() Span { return l.span }
func (l *Lit) node()      {}

// Expr renders an Expression through the active escaper.
type Expr struct {
	WS   WS
	Expr Expression
	span Span
}

func (e *Expr) Span() Span { return e.span }
func (e *Expr) node()      {}

// Comment is a {# ... #} tag; it contributes nothing to output but its
// whitespace markers still affect adjacent literals.
type Comment struct {
	WS   WS
	span Span
}

func (c *Comment) Span() Span { return c.span }
func (c *Comment) node()      {}

// Branch is one arm of a Cond: a guard (Expr, a LetBind for `if let`, or nil
// for the final `else`) plus a body.
type Branch struct {
	WS    WS
	Guard Expression // nil for else
	Let   *Let       // set instead of Guard for `if let pattern = expr`
	Body  []Node
}

// Cond is an if/else-if/.../else chain.
type Cond struct {
	Branches []Branch
	EndWS    WS
	span     Span
}

func (c *Cond) Span() Span { return c.span }
func (c *Cond) node()      {}

// Loop is a for-loop with an optional filter clause and optional else body
// (rendered when the iterable produced zero items), per spec §3/§4.4.
type Loop struct {
	WS       WS
	Pattern  Expression // a Var; codegen rejects any other pattern
	Iterable Expression
	Filter   Expression // optional iterator-level predicate
	Body     []Node
	Else     []Node
	EndWS    WS
	span     Span
}

func (l *Loop) Span() Span { return l.span }
func (l *Loop) node()      {}

// MatchArm is one `when Pattern` arm of a Match.
type MatchArm struct {
	WS      WS
	Pattern MatchPattern
	Body    []Node
}

// MatchPattern describes one `when` clause: a variant type name plus
// optional positional/field bindings. IsWildcard marks a `when _` arm. No
// arm is added implicitly: when no arm matches, the match renders nothing.
type MatchPattern struct {
	Variant      string            // the Go type name asserted against, "" for wildcard
	Binding      string            // `when Variant(name)`: the bound identifier
	FieldBinds   map[string]string // `when Variant { field }` / `{ field: alias }`: field -> local name
	IsWildcard   bool
}

// Match is a pattern-match over a scrutinee expression.
type Match struct {
	WS        WS
	Scrutinee Expression
	Arms      []MatchArm
	EndWS     WS
	span      Span
}

func (m *Match) Span() Span { return m.span }
func (m *Match) node()      {}

// BlockDef is an overridable block, legal only at a template's top level.
type BlockDef struct {
	WS    WS
	Name  string
	Body  []Node
	EndWS WS
	span  Span
}

func (b *BlockDef) Span() Span { return b.span }
func (b *BlockDef) node()      {}

// Include inlines another template's nodes at the use site.
type Include struct {
	WS   WS
	Path string
	span Span
}

func (i *Include) Span() Span { return i.span }
func (i *Include) node()      {}

// Extends marks this template as extending a base; legal only as the first
// non-whitespace node.
type Extends struct {
	Path string
	span Span
}

func (e *Extends) Span() Span { return e.span }
func (e *Extends) node()      {}

// Import binds another template's macro table under scope Scope.
type Import struct {
	WS    WS
	Path  string
	Scope string
	span  Span
}

func (i *Import) Span() Span { return i.span }
func (i *Import) node()      {}

// Param is one macro parameter, with an optional default expression.
type Param struct {
	Name    string
	Default Expression // nil when required
}

// MacroDef records a reusable body under (scope?, name, arity) in the
// generator's macro table; it emits no code at its definition site.
type MacroDef struct {
	WS     WS
	Name   string
	Params []Param
	Body   []Node
	EndWS  WS
	span   Span
}

func (m *MacroDef) Span() Span { return m.span }
func (m *MacroDef) node()      {}

// Arg is one Call argument: positional (Name == "") or named.
type Arg struct {
	Name  string
	Value Expression
}

// Call invokes a macro, optionally through an Import scope.
type Call struct {
	WS    WS
	Scope string // "" when calling a macro defined in the same template
	Name  string
	Args  []Arg
	span  Span
}

func (c *Call) Span() Span { return c.span }
func (c *Call) node()      {}

// Let declares or binds a pattern. Value == nil declares without binding
// (spec §4.4: "a placeholder bound by a dominating later assignment").
type Let struct {
	WS      WS
	Pattern string // a single identifier target; Go has no destructuring let
	Value   Expression
	span    Span
}

func (l *Let) Span() Span { return l.span }
func (l *Let) node()      {}

// FilterBlock applies a filter chain to its body's rendered output as a
// whole, rather than to a single expression.
type FilterBlock struct {
	WS     WS
	Filter Expression // a Filter-chain expression whose Target is implicit
	Body   []Node
	EndWS  WS
	span   Span
}

func (f *FilterBlock) Span() Span { return f.span }
func (f *FilterBlock) node()      {}

// Raw is a literal passthrough block ({% raw %}...{% endraw %}): its
// content is never scanned for tags.
type Raw struct {
	WS      WS
	Content string
	EndWS   WS
	span    Span
}

func (r *Raw) Span() Span { return r.span }
func (r *Raw) node()      {}

// Template is the root of a single parsed template: an ordered node
// sequence plus the source path it was parsed from (used for diagnostics
// and for relative include/import/extends resolution).
type Template struct {
	Path  string
	Nodes []Node
}
