package codegen

import (
	"github.com/askamago/askama/resolve"
	"github.com/askamago/askama/syntax"
)

// Target describes one context type's generator invocation: spec §4.4's
// "input: the composed AST, context type descriptor, heritage chain, block
// map, active escaper, configuration tables."
type Target struct {
	// PackageName is the Go package the generated file joins.
	PackageName string
	// TypeName is the context type's Go identifier, e.g. "HelloTemplate".
	TypeName string
	// Heritage is the extends chain, entry (child-most) first.
	Heritage *resolve.Heritage
	// Escaper is the active escaper selected by extension/annotation.
	Escaper syntax.Escaper
	// Extension is the inferred template extension, exposed as <T>_EXTENSION.
	Extension string
	// Block, when non-empty, restricts generation to a single named block
	// (spec §4.4 "block fragments") instead of the whole template.
	Block string
	// Print selects the diagnostic dump mode: "", "ast", "code", or "all".
	Print string
	// Loader resolves {% include %}/{% import %} references at generator
	// time (spec §4.4: include inlining happens during generation, not
	// parsing). Nil disables both constructs.
	Loader *resolve.Loader
	// Whitespace is the template-wide whitespace policy combined with each
	// tag's inline `-`/`+`/`~` marker, per spec §3.
	Whitespace syntax.WhitespacePolicy
}
