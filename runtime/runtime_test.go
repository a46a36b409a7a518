package runtime

import (
	"bytes"
	"testing"
)

func TestHTMLEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := HTMLEscape(&buf, `<a href="x">it's & /slash</a>`); err != nil {
		t.Fatalf("HTMLEscape: %v", err)
	}
	want := `&lt;a href=&quot;x&quot;&gt;it&#x27;s &amp; &#x2f;slash&lt;&#x2f;a&gt;`
	if got := buf.String(); got != want {
		t.Errorf("HTMLEscape = %q, want %q", got, want)
	}
}

func TestHTMLEscapeScenario(t *testing.T) {
	var buf bytes.Buffer
	src := `// my <html> is "unsafe" & should be 'escaped'`
	if err := HTMLEscape(&buf, src); err != nil {
		t.Fatalf("HTMLEscape: %v", err)
	}
	want := `&#x2f;&#x2f; my &lt;html&gt; is &quot;unsafe&quot; &amp; should be &#x27;escaped&#x27;`
	if got := buf.String(); got != want {
		t.Errorf("HTMLEscape = %q, want %q", got, want)
	}
}

func TestNoEscape(t *testing.T) {
	var buf bytes.Buffer
	if err := NoEscape(&buf, "<raw>"); err != nil {
		t.Fatalf("NoEscape: %v", err)
	}
	if got := buf.String(); got != "<raw>" {
		t.Errorf("NoEscape = %q, want %q", got, "<raw>")
	}
}

func TestMarkupWriteTo(t *testing.T) {
	var buf bytes.Buffer
	m := Markup{Value: "<b>", Escaper: HTMLEscape}
	if err := m.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if got := buf.String(); got != "&lt;b&gt;" {
		t.Errorf("WriteTo = %q, want %q", got, "&lt;b&gt;")
	}

	buf.Reset()
	safe := Markup{Value: "<b>", Escaper: HTMLEscape, Safe: true}
	if err := safe.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo (safe): %v", err)
	}
	if got := buf.String(); got != "<b>" {
		t.Errorf("WriteTo (safe) = %q, want %q", got, "<b>")
	}
}

func TestLoopAdapter(t *testing.T) {
	l := NewLoop(3)
	var indices, index0s []int
	var firsts, lasts []bool
	for i := 0; i < 3; i++ {
		l.Advance()
		indices = append(indices, l.Index())
		index0s = append(index0s, l.Index0())
		firsts = append(firsts, l.First())
		lasts = append(lasts, l.Last())
	}
	wantIdx := []int{1, 2, 3}
	wantIdx0 := []int{0, 1, 2}
	for i := range wantIdx {
		if indices[i] != wantIdx[i] || index0s[i] != wantIdx0[i] {
			t.Fatalf("iter %d: Index=%d Index0=%d", i, indices[i], index0s[i])
		}
	}
	if firsts[0] != true || firsts[1] != false || firsts[2] != false {
		t.Errorf("First() sequence = %v", firsts)
	}
	if lasts[0] != false || lasts[1] != false || lasts[2] != true {
		t.Errorf("Last() sequence = %v", lasts)
	}
	if l.Length() != 3 {
		t.Errorf("Length() = %d, want 3", l.Length())
	}
}

func TestTruthy(t *testing.T) {
	type Flag bool

	cases := []struct {
		name    string
		v       any
		want    bool
		wantErr bool
	}{
		{"bool true", true, true, false},
		{"bool false", false, false, false},
		{"ptr bool", ptr(true), true, false},
		{"nil ptr bool", (*bool)(nil), false, false},
		{"named bool", Flag(true), true, false},
		{"string", "yes", false, true},
	}
	for _, c := range cases {
		got, err := Truthy(c.v)
		if (err != nil) != c.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", c.name, err, c.wantErr)
			continue
		}
		if err == nil && got != c.want {
			t.Errorf("%s: Truthy = %v, want %v", c.name, got, c.want)
		}
	}
}

func ptr(b bool) *bool { return &b }

func TestFilters(t *testing.T) {
	if got := Upper("abc"); got != "ABC" {
		t.Errorf("Upper = %q", got)
	}
	if got := Capitalize("hELLO"); got != "Hello" {
		t.Errorf("Capitalize = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("hi", 5); got != "hi" {
		t.Errorf("Truncate (short) = %q", got)
	}
	if got := Join([]string{"a", "b", "c"}, ", "); got != "a, b, c" {
		t.Errorf("Join = %q", got)
	}
	if got := Default(0, 7); got != 7 {
		t.Errorf("Default(zero) = %d, want 7", got)
	}
	if got := Default(3, 7); got != 3 {
		t.Errorf("Default(nonzero) = %d, want 3", got)
	}
}

func TestOps(t *testing.T) {
	if got := Add(1, 2); got != 3.0 {
		t.Errorf("Add(1, 2) = %v, want 3", got)
	}
	if got := Add("foo", "bar"); got != "foobar" {
		t.Errorf(`Add("foo", "bar") = %v, want "foobar"`, got)
	}
	if got := Sub(5, 2); got != 3.0 {
		t.Errorf("Sub(5, 2) = %v, want 3", got)
	}
	if got := Mul(2.5, 2); got != 5.0 {
		t.Errorf("Mul(2.5, 2) = %v, want 5", got)
	}
	if got := Add("x", 1); got != nil {
		t.Errorf(`Add("x", 1) = %v, want nil (type mismatch coerces to zero value)`, got)
	}
	if got := Eq(1, 1.0); got != true {
		t.Errorf("Eq(1, 1.0) = %v, want true", got)
	}
	if got := Lt(1, 2); got != true {
		t.Errorf("Lt(1, 2) = %v, want true", got)
	}
	if got := Ge(2, 2); got != true {
		t.Errorf("Ge(2, 2) = %v, want true", got)
	}
}

func TestTruthyOrFalseAndLogical(t *testing.T) {
	if got := TruthyOrFalse("not a bool"); got != false {
		t.Errorf("TruthyOrFalse(non-bool) = %v, want false", got)
	}
	if got := LogicalAnd(true, true); got != true {
		t.Errorf("LogicalAnd(true, true) = %v, want true", got)
	}
	if got := LogicalAnd(true, false); got != false {
		t.Errorf("LogicalAnd(true, false) = %v, want false", got)
	}
	if got := LogicalOr(false, true); got != true {
		t.Errorf("LogicalOr(false, true) = %v, want true", got)
	}
}
