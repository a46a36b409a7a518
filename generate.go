package askama

import (
	"fmt"

	"github.com/askamago/askama/codegen"
	"github.com/askamago/askama/config"
	"github.com/askamago/askama/resolve"
	"github.com/askamago/askama/syntax"
)

// GenerateRequest names one annotated context type: the package it will be
// generated into and the parsed `//askama:template` annotation above it.
type GenerateRequest struct {
	PackageName string
	TypeName    string
	Annotation  config.Annotation
}

// Generate runs the full config-resolved pipeline (parse -> resolve heritage
// -> codegen) for one annotated context type, returning the formatted Go
// source for its sibling <Type>_askama.gen.go file. When the annotation's
// print= field is set, the diagnostic dump (codegen.Dump) is returned
// instead of the generated source.
func Generate(cfg config.Config, req GenerateRequest) (string, error) {
	ann := req.Annotation
	table, err := cfg.Tables.Lookup(ann.Syntax)
	if err != nil {
		return "", fmt.Errorf("%s: %w", req.TypeName, err)
	}

	loader := resolve.NewLoader(cfg.Dirs, table)

	entryPath := ann.Path
	if entryPath == "" {
		entryPath = req.TypeName + "." + ann.Ext
	}
	tmpl, canonical, err := loader.LoadEntry(entryPath, ann.Source)
	if err != nil {
		return "", fmt.Errorf("%s: %w", req.TypeName, err)
	}

	heritage, err := loader.BuildHeritage(tmpl, canonical)
	if err != nil {
		return "", fmt.Errorf("%s: %w", req.TypeName, err)
	}

	extension := ann.Ext
	if extension == "" {
		extension = syntax.InferExtension(canonical)
	}

	escaper, err := resolveEscaper(cfg, ann, extension)
	if err != nil {
		return "", fmt.Errorf("%s: %w", req.TypeName, err)
	}

	whitespace := cfg.Whitespace
	if ann.Whitespace != "" {
		whitespace, err = syntax.ParseWhitespacePolicy(ann.Whitespace)
		if err != nil {
			return "", fmt.Errorf("%s: %w", req.TypeName, err)
		}
	}

	target := codegen.Target{
		PackageName: req.PackageName,
		TypeName:    req.TypeName,
		Heritage:    heritage,
		Escaper:     escaper,
		Extension:   extension,
		Block:       ann.Block,
		Print:       ann.Print,
		Loader:      loader,
		Whitespace:  whitespace,
	}

	if ann.Print != "" {
		return codegen.Dump(target)
	}
	return codegen.Generate(target)
}

func resolveEscaper(cfg config.Config, ann config.Annotation, extension string) (syntax.Escaper, error) {
	if ann.Escape != "" {
		e, ok := cfg.Escapers.ByName(ann.Escape)
		if !ok {
			return syntax.Escaper{}, fmt.Errorf("unknown escaper %q", ann.Escape)
		}
		return e, nil
	}
	return cfg.Escapers.ForExtension(extension), nil
}
