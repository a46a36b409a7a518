// Package runtime is the out-of-scope dependency generated code imports
// (spec §4.5): the text sink, escapers, the markup-display adapter, the loop
// adapter, and the built-in filter namespace. Nothing in the pipeline
// packages (lexer/parse/ast/resolve/codegen) imports this package — only
// code emitted by codegen does.
package runtime

import "io"

// Sink is the text sink generated Render methods write to, equivalent to
// spec §4.5's "text sink trait with write_str and formatted-write". Any
// io.Writer (a bytes.Buffer, an os.File, an http.ResponseWriter body) already
// satisfies it.
type Sink interface {
	io.Writer
}

// WriteString writes s to sink. Markup.WriteTo uses it for unescaped
// output; generated code writes literals through NoEscape.
func WriteString(sink Sink, s string) error {
	_, err := io.WriteString(sink, s)
	return err
}
