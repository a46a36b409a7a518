package lexer

import (
	"testing"

	"github.com/askamago/askama/syntax"
)

func TestNextLiteralRunFindsTagStart(t *testing.T) {
	l := New("hello {{ name }}", syntax.Default())
	lit, kind, mark, _ := l.NextLiteralRun()
	if lit != "hello " {
		t.Errorf("lit = %q, want %q", lit, "hello ")
	}
	if kind != KindExprStart {
		t.Errorf("kind = %v, want KindExprStart", kind)
	}
	if mark != syntax.MarkerNone {
		t.Errorf("mark = %v, want MarkerNone", mark)
	}
}

func TestNextLiteralRunAtEOF(t *testing.T) {
	l := New("plain text", syntax.Default())
	lit, kind, _, _ := l.NextLiteralRun()
	if lit != "plain text" || kind != KindEOF {
		t.Errorf("lit=%q kind=%v, want %q/KindEOF", lit, kind, "plain text")
	}
}

func TestLeadingWhitespaceMarkers(t *testing.T) {
	cases := []struct {
		src  string
		mark syntax.Marker
	}{
		{"{{- x }}", syntax.MarkerSuppress},
		{"{{+ x }}", syntax.MarkerPreserve},
		{"{{~ x }}", syntax.MarkerMinimize},
		{"{{ x }}", syntax.MarkerNone},
	}
	for _, c := range cases {
		l := New(c.src, syntax.Default())
		_, _, mark, _ := l.NextLiteralRun()
		if mark != c.mark {
			t.Errorf("%q: leading marker = %v, want %v", c.src, mark, c.mark)
		}
	}
}

func TestTrailingWhitespaceMarkerOnExprEnd(t *testing.T) {
	l := New("{{ x -}}", syntax.Default())
	_, _, _, _ = l.NextLiteralRun()
	l.NextInTag("}}") // the identifier "x"
	end := l.NextInTag("}}")
	if end.Kind != KindExprEnd || end.Mark != syntax.MarkerSuppress {
		t.Errorf("end token = %#v, want KindExprEnd/MarkerSuppress", end)
	}
}

// TestNewStripsSingleTrailingNewline matches the teacher's default
// KeepTrailingNewline=false behavior: New trims exactly one trailing
// newline (and a preceding \r) from src, never more.
func TestNewStripsSingleTrailingNewline(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"hello\n", "hello"},
		{"hello\r\n", "hello"},
		{"hello\n\n", "hello\n"},
		{"hello", "hello"},
	}
	for _, c := range cases {
		l := New(c.src, syntax.Default())
		if l.src != c.want {
			t.Errorf("New(%q).src = %q, want %q", c.src, l.src, c.want)
		}
	}
}

func TestScanIdentAndNumber(t *testing.T) {
	l := New("foo 123 4.5", syntax.Default())
	l.pos = 0
	tok := l.NextInTag("}}")
	if tok.Kind != KindIdent || tok.Text != "foo" {
		t.Errorf("tok = %#v, want ident foo", tok)
	}
	tok = l.NextInTag("}}")
	if tok.Kind != KindInt || tok.Text != "123" {
		t.Errorf("tok = %#v, want int 123", tok)
	}
	tok = l.NextInTag("}}")
	if tok.Kind != KindFloat || tok.Text != "4.5" {
		t.Errorf("tok = %#v, want float 4.5", tok)
	}
}

func TestScanStringWithEscapes(t *testing.T) {
	l := New(`"a\nb"`, syntax.Default())
	tok := l.NextInTag("}}")
	if tok.Kind != KindString || tok.Text != "a\nb" {
		t.Errorf("tok = %#v, want string \"a\\nb\"", tok)
	}
}

func TestScanCommentBodyWithTrailingMarker(t *testing.T) {
	l := New("note -#}", syntax.Default())
	body, mark := l.ScanCommentBody()
	if body != "note " || mark != syntax.MarkerSuppress {
		t.Errorf("body=%q mark=%v, want %q/MarkerSuppress", body, mark, "note ")
	}
}

func TestMultiCharOps(t *testing.T) {
	l := New("== != <= >= && || << >>", syntax.Default())
	for _, want := range multiCharOps {
		tok := l.NextInTag("}}")
		if tok.Kind != KindOp || tok.Text != want {
			t.Errorf("tok = %#v, want op %q", tok, want)
		}
	}
}
