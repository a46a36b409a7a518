package runtime

import "fmt"

// Markup is the markup-display adapter of spec §4.4/§4.5: it binds a value
// to an escaper and, in WriteTo, writes the escaped (or, if Safe,
// unescaped) display form of Value to a Sink. Generated code wraps every
// Expr in one of these, except an Expr whose outermost filter is `safe` or
// `escape`, whose string result is written directly.
type Markup struct {
	Value    any
	Escaper  Escaper
	Safe     bool // bypasses Escaper; generated code leaves it false
}

// WriteTo writes m's display form to sink, applying m.Escaper unless Safe.
func (m Markup) WriteTo(sink Sink) error {
	s := Display(m.Value)
	if m.Safe || m.Escaper == nil {
		return WriteString(sink, s)
	}
	return m.Escaper(sink, s)
}

// Display formats v the way a template expression renders a bare value:
// fmt.Stringer is honored, strings pass through unchanged, everything else
// uses fmt's default verb.
func Display(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
