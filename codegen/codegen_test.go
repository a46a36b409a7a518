package codegen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/askamago/askama/resolve"
	"github.com/askamago/askama/syntax"
)

func mustHeritage(t *testing.T, source string) *resolve.Heritage {
	t.Helper()
	l := resolve.NewLoader(nil, syntax.Default())
	tmpl, canonical, err := l.LoadEntry("<inline>", source)
	if err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	h, err := l.BuildHeritage(tmpl, canonical)
	if err != nil {
		t.Fatalf("BuildHeritage: %v", err)
	}
	return h
}

func TestGenerateHelloWorld(t *testing.T) {
	h := mustHeritage(t, `Hello, {{ name }}!`)
	code, err := Generate(Target{
		PackageName: "greet",
		TypeName:    "HelloTemplate",
		Heritage:    h,
		Escaper:     syntax.Escaper{Name: "html", MIMEType: "text/html"},
		Extension:   "html",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{
		"package greet",
		"func (recv *HelloTemplate) RenderInto(sink runtime.Sink) error {",
		"runtime.Markup{Value: t.name, Escaper: runtime.HTMLEscape}",
		"func (recv *HelloTemplate) Render() (string, error) {",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q\n---\n%s", want, code)
		}
	}
}

func TestGenerateCondAndLoop(t *testing.T) {
	h := mustHeritage(t, `{% if show %}{% for x in items %}{{ x }}{% endfor %}{% endif %}`)
	code, err := Generate(Target{
		PackageName: "list",
		TypeName:    "ListTemplate",
		Heritage:    h,
		Escaper:     syntax.Escaper{Name: "none"},
		Extension:   "txt",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{
		"runtime.Truthy(t.show)",
		"for _, item := range",
		"runtime.NewLoop(len(",
		"loopv.Advance()",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q\n---\n%s", want, code)
		}
	}
}

func TestGenerateBlockOverrideAndSuper(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "base.html"), []byte(`{% block body %}base{% endblock %}`), 0o644); err != nil {
		t.Fatalf("WriteFile base: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "child.html"), []byte(`{% extends "base.html" %}{% block body %}child {{ super() }}{% endblock %}`), 0o644); err != nil {
		t.Fatalf("WriteFile child: %v", err)
	}

	l := resolve.NewLoader([]string{dir}, syntax.Default())
	childTmpl, childCanonical, err := l.LoadEntry("child.html", "")
	if err != nil {
		t.Fatalf("LoadEntry child: %v", err)
	}
	h, err := l.BuildHeritage(childTmpl, childCanonical)
	if err != nil {
		t.Fatalf("BuildHeritage: %v", err)
	}
	if len(h.Chain) != 2 {
		t.Fatalf("unexpected heritage: %+v", h.Paths)
	}

	code, err := Generate(Target{
		PackageName: "page",
		TypeName:    "PageTemplate",
		Heritage:    h,
		Escaper:     syntax.Escaper{Name: "none"},
		Extension:   "html",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(code, `"child "`) || !strings.Contains(code, `"base"`) {
		t.Errorf("expected both override and base literals in generated code:\n%s", code)
	}
}

func TestGenerateElseIf(t *testing.T) {
	h := mustHeritage(t, `{% if n == 0 %}none{% else if n == 1 %}one{% else %}many{% endif %}`)
	code, err := Generate(Target{
		PackageName: "cond",
		TypeName:    "CondTemplate",
		Heritage:    h,
		Escaper:     syntax.Escaper{Name: "none"},
		Extension:   "txt",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{`"none"`, `"one"`, `"many"`} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q\n---\n%s", want, code)
		}
	}
}

func TestGenerateWhitespaceSuppressionAcrossAllWhitespaceLiteral(t *testing.T) {
	h := mustHeritage(t, "{% if t %}\n  {{- v -}}\n{% endif %}")
	code, err := Generate(Target{
		PackageName: "ws",
		TypeName:    "WSTemplate",
		Heritage:    h,
		Escaper:     syntax.Escaper{Name: "none"},
		Extension:   "txt",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(code, `"\n  "`) || strings.Contains(code, `"\n"`) {
		t.Errorf("generated code should not write the suppressed whitespace-only literals:\n%s", code)
	}
}

func TestGenerateMatch(t *testing.T) {
	h := mustHeritage(t, `{% match x %}{% when Some(v) %}got {{ v }}{% when None %}nothing{% endmatch %}`)
	code, err := Generate(Target{
		PackageName: "m",
		TypeName:    "MatchTemplate",
		Heritage:    h,
		Escaper:     syntax.Escaper{Name: "none"},
		Extension:   "txt",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, want := range []string{"case Some:", "case None:", `"got "`, `"nothing"`} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q\n---\n%s", want, code)
		}
	}
}

func TestGenerateMissingHeritageErrors(t *testing.T) {
	_, err := Generate(Target{PackageName: "x", TypeName: "X"})
	if err == nil {
		t.Fatal("expected an error for a target with no heritage")
	}
	if cerr, ok := err.(*Error); !ok || cerr.Kind != UnsupportedConstruct {
		t.Errorf("err = %v, want UnsupportedConstruct", err)
	}
}
