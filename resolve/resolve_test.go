package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/askamago/askama/syntax"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return path
}

func TestBuildHeritageSimple(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.html", `<t>{% block x %}D{% endblock %}</t>`)
	writeFile(t, dir, "child.html", `{% extends "base.html" %}{% block x %}C{% endblock %}`)

	l := NewLoader([]string{dir}, syntax.Default())
	entry, canonical, err := l.LoadEntry("child.html", "")
	if err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	h, err := l.BuildHeritage(entry, canonical)
	if err != nil {
		t.Fatalf("BuildHeritage: %v", err)
	}
	if len(h.Chain) != 2 {
		t.Fatalf("Chain length = %d, want 2", len(h.Chain))
	}
	overrides := h.Blocks["x"]
	if len(overrides) != 2 {
		t.Fatalf("Blocks[x] length = %d, want 2", len(overrides))
	}
	if overrides[0].TemplateIndex != 0 || overrides[1].TemplateIndex != 1 {
		t.Errorf("override order = %+v", overrides)
	}
}

func TestBuildHeritageRejectsCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.html", `{% extends "b.html" %}`)
	writeFile(t, dir, "b.html", `{% extends "a.html" %}`)

	l := NewLoader([]string{dir}, syntax.Default())
	entry, canonical, err := l.LoadEntry("a.html", "")
	if err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	_, err = l.BuildHeritage(entry, canonical)
	if err == nil {
		t.Fatal("expected a cycle error")
	}
	rerr, ok := err.(*Error)
	if !ok || rerr.Kind != Cycle {
		t.Errorf("err = %v, want Cycle", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader([]string{dir}, syntax.Default())
	_, err := l.Resolve("", "missing.html")
	if err == nil {
		t.Fatal("expected a not-found error")
	}
	rerr, ok := err.(*Error)
	if !ok || rerr.Kind != NotFound {
		t.Errorf("err = %v, want NotFound", err)
	}
}

func TestLoadEntryInlineSource(t *testing.T) {
	l := NewLoader(nil, syntax.Default())
	tmpl, canonical, err := l.LoadEntry("<inline>", "hello {{ name }}")
	if err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	if canonical != "<inline>" {
		t.Errorf("canonical = %q", canonical)
	}
	if len(tmpl.Nodes) == 0 {
		t.Errorf("expected parsed nodes from inline source")
	}
}
