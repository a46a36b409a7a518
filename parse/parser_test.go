package parse

import (
	"testing"

	"github.com/askamago/askama/ast"
	"github.com/askamago/askama/syntax"
)

func mustParse(t *testing.T, src string) *ast.Template {
	t.Helper()
	tmpl, err := New("<inline>", src, syntax.Default()).Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return tmpl
}

// TestParseElseIf covers spec.md §8 scenario 2's two-keyword `else if`
// chaining, distinct from the teacher's single-keyword `elif`.
func TestParseElseIf(t *testing.T) {
	tmpl := mustParse(t, `{% if n == 0 %}none{% else if n == 1 %}one{% else %}many{% endif %}`)
	if len(tmpl.Nodes) != 1 {
		t.Fatalf("expected a single Cond node, got %d nodes", len(tmpl.Nodes))
	}
	cond, ok := tmpl.Nodes[0].(*ast.Cond)
	if !ok {
		t.Fatalf("expected *ast.Cond, got %T", tmpl.Nodes[0])
	}
	if len(cond.Branches) != 3 {
		t.Fatalf("expected 3 branches (if, else-if, else), got %d", len(cond.Branches))
	}
	for i, want := range []struct {
		hasGuard bool
		lit      string
	}{
		{true, "none"},
		{true, "one"},
		{false, "many"},
	} {
		br := cond.Branches[i]
		if (br.Guard != nil) != want.hasGuard {
			t.Errorf("branch %d: Guard != nil = %v, want %v", i, br.Guard != nil, want.hasGuard)
		}
		if len(br.Body) != 1 {
			t.Fatalf("branch %d: expected 1 body node, got %d", i, len(br.Body))
		}
		lit, ok := br.Body[0].(*ast.Lit)
		if !ok || lit.Core != want.lit {
			t.Errorf("branch %d: body = %#v, want literal %q", i, br.Body[0], want.lit)
		}
	}
	second := cond.Branches[1].Guard
	bin, ok := second.(*ast.BinOp)
	if !ok || bin.Op != ast.BinEq {
		t.Fatalf("else-if guard = %#v, want n == 1", second)
	}
}

// TestParseElseIfChain covers more than one `else if` in sequence.
func TestParseElseIfChain(t *testing.T) {
	tmpl := mustParse(t, `{% if a %}A{% else if b %}B{% else if c %}C{% endif %}`)
	cond := tmpl.Nodes[0].(*ast.Cond)
	if len(cond.Branches) != 3 {
		t.Fatalf("expected 3 branches, got %d", len(cond.Branches))
	}
	for i, br := range cond.Branches {
		if br.Guard == nil {
			t.Errorf("branch %d: expected a guard", i)
		}
	}
}

// TestParseTrailingNewlineStripped matches the teacher's default
// KeepTrailingNewline=false: exactly one trailing newline is dropped from
// template source before lexing, regardless of how many trail the input.
func TestParseTrailingNewlineStripped(t *testing.T) {
	tmpl := mustParse(t, "hello\n")
	if len(tmpl.Nodes) != 1 {
		t.Fatalf("expected a single Lit node, got %d", len(tmpl.Nodes))
	}
	lit := tmpl.Nodes[0].(*ast.Lit)
	if lit.Core != "hello" || lit.Trailing != "" {
		t.Errorf("Core=%q Trailing=%q, want Core=%q Trailing=%q", lit.Core, lit.Trailing, "hello", "")
	}
}

func TestParseTrailingNewlineOnlyOneStripped(t *testing.T) {
	tmpl := mustParse(t, "hello\n\n")
	lit := tmpl.Nodes[0].(*ast.Lit)
	if lit.Core != "hello" || lit.Trailing != "\n" {
		t.Errorf("Core=%q Trailing=%q, want Core=%q Trailing=%q", lit.Core, lit.Trailing, "hello", "\n")
	}
}

func TestParseIfLet(t *testing.T) {
	tmpl := mustParse(t, `{% if let x = opt %}{{ x }}{% endif %}`)
	cond := tmpl.Nodes[0].(*ast.Cond)
	if len(cond.Branches) != 1 || cond.Branches[0].Let == nil {
		t.Fatalf("expected a single if-let branch, got %#v", cond.Branches)
	}
	if cond.Branches[0].Let.Pattern != "x" {
		t.Errorf("Let.Pattern = %q, want x", cond.Branches[0].Let.Pattern)
	}
}

func TestParseForElse(t *testing.T) {
	tmpl := mustParse(t, `{% for x in xs %}{{ x }}{% else %}empty{% endfor %}`)
	loop := tmpl.Nodes[0].(*ast.Loop)
	if len(loop.Else) != 1 {
		t.Fatalf("expected an else body, got %#v", loop.Else)
	}
	lit, ok := loop.Else[0].(*ast.Lit)
	if !ok || lit.Core != "empty" {
		t.Fatalf("else body = %#v, want literal \"empty\"", loop.Else[0])
	}
}

func TestParseMatch(t *testing.T) {
	tmpl := mustParse(t, `{% match x %}{% when Some(v) %}{{ v }}{% when None %}none{% endmatch %}`)
	m := tmpl.Nodes[0].(*ast.Match)
	if len(m.Arms) != 2 {
		t.Fatalf("expected 2 arms, got %d", len(m.Arms))
	}
	if m.Arms[0].Pattern.Variant != "Some" || m.Arms[0].Pattern.Binding != "v" {
		t.Errorf("arm 0 pattern = %#v", m.Arms[0].Pattern)
	}
	if m.Arms[1].Pattern.Variant != "None" {
		t.Errorf("arm 1 pattern = %#v", m.Arms[1].Pattern)
	}
}

func TestParseUnterminatedIfErrors(t *testing.T) {
	_, err := New("<inline>", `{% if x %}oops`, syntax.Default()).Parse()
	if err == nil {
		t.Fatal("expected an error for an unterminated if block")
	}
}

func TestParseElseAloneStillTerminatesWithoutGuard(t *testing.T) {
	tmpl := mustParse(t, `{% if a %}A{% else %}B{% endif %}`)
	cond := tmpl.Nodes[0].(*ast.Cond)
	if len(cond.Branches) != 2 {
		t.Fatalf("expected 2 branches, got %d", len(cond.Branches))
	}
	if cond.Branches[1].Guard != nil {
		t.Errorf("plain else branch should have no guard, got %#v", cond.Branches[1].Guard)
	}
}
