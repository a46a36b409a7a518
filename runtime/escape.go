package runtime

import "strings"

// Escaper writes the escaped form of s to sink. Built-ins are "html" and
// "none"; a configured escaper table (package config) may add more, each
// selected by template extension per spec §3.
type Escaper func(sink Sink, s string) error

// htmlReplacer matches the teacher's EscapeHTML (environment.go) entity for
// entity: stdlib html.EscapeString stops at the XML-safe set and misses the
// '/' substitution, which guards against </script>-style breakout inside
// inline script or style tags.
var htmlReplacer = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&#x27;",
	`/`, "&#x2f;",
)

// HTMLEscape is the "html" built-in escaper.
func HTMLEscape(sink Sink, s string) error {
	_, err := htmlReplacer.WriteString(sink, s)
	return err
}

// NoEscape is the "none" built-in escaper: writes s unchanged.
func NoEscape(sink Sink, s string) error {
	return WriteString(sink, s)
}
