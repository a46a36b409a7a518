package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	c := Default()
	if len(c.Dirs) != 1 || c.Dirs[0] != "templates" {
		t.Errorf("Dirs = %v", c.Dirs)
	}
	e := c.Escapers.ForExtension("html")
	if e.Name != "html" {
		t.Errorf("ForExtension(html) = %+v", e)
	}
}

func TestLoadMissingFileYieldsDefault(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Dirs) != 1 || c.Dirs[0] != "templates" {
		t.Errorf("Dirs = %v", c.Dirs)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "askama.toml")
	contents := `
[general]
dirs = ["tpl"]
whitespace = "suppress"
default_syntax = "default"

[[escaper]]
path = "json"
extensions = ["json"]
mime_type = "application/json"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Dirs) != 1 || c.Dirs[0] != "tpl" {
		t.Errorf("Dirs = %v", c.Dirs)
	}
	if c.Whitespace.String() != "suppress" {
		t.Errorf("Whitespace = %v", c.Whitespace)
	}
	e, ok := c.Escapers.ByName("json")
	if !ok || e.MIMEType != "application/json" {
		t.Errorf("ByName(json) = %+v, ok=%v", e, ok)
	}
}

func TestParseAnnotationComment(t *testing.T) {
	a, ok, err := ParseAnnotationComment(`//askama:template path="hello.html" escape="html" print="code"`, "Hello")
	if err != nil {
		t.Fatalf("ParseAnnotationComment: %v", err)
	}
	if !ok {
		t.Fatalf("ParseAnnotationComment: ok = false")
	}
	if a.Path != "hello.html" || a.Escape != "html" || a.Print != "code" {
		t.Errorf("Annotation = %+v", a)
	}
}

func TestParseAnnotationCommentIgnoresOtherComments(t *testing.T) {
	_, ok, err := ParseAnnotationComment(`// just a regular comment`, "Hello")
	if err != nil {
		t.Fatalf("ParseAnnotationComment: %v", err)
	}
	if ok {
		t.Errorf("ParseAnnotationComment: ok = true for a non-annotation comment")
	}
}

func TestParseAnnotationCommentRequiresPathXorSource(t *testing.T) {
	_, ok, err := ParseAnnotationComment(`//askama:template path="a.html" source="<p></p>" ext="html"`, "Hello")
	if !ok {
		t.Fatalf("ParseAnnotationComment: ok = false")
	}
	if err == nil {
		t.Errorf("expected error when both path and source are set")
	}
}

func TestParseAnnotationCommentRequiresExtWithSource(t *testing.T) {
	_, ok, err := ParseAnnotationComment(`//askama:template source="<p></p>"`, "Hello")
	if !ok {
		t.Fatalf("ParseAnnotationComment: ok = false")
	}
	if err == nil {
		t.Errorf("expected error when source is set without ext")
	}
}
