// Package config implements the configuration loader of spec §4.1:
// askama.toml parsing into the four tables of spec §3 (syntax table set,
// escaper table, template search roots, default whitespace policy), plus
// the `//askama:template` annotation scanner (spec §6, Go's attribute-macro
// stand-in).
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/askamago/askama/syntax"
)

// file is the on-disk shape of askama.toml, matching spec §4.1's sections
// ([general], repeated [[syntax]], repeated [[escaper]]).
type file struct {
	General generalSection   `toml:"general"`
	Syntax  []syntaxSection  `toml:"syntax"`
	Escaper []escaperSection `toml:"escaper"`
}

type generalSection struct {
	Dirs           []string `toml:"dirs"`
	Whitespace     string   `toml:"whitespace"`
	DefaultSyntax  string   `toml:"default_syntax"`
}

type syntaxSection struct {
	Name         string `toml:"name"`
	BlockStart   string `toml:"block_start"`
	BlockEnd     string `toml:"block_end"`
	CommentStart string `toml:"comment_start"`
	CommentEnd   string `toml:"comment_end"`
	ExprStart    string `toml:"expr_start"`
	ExprEnd      string `toml:"expr_end"`
}

type escaperSection struct {
	Path       string   `toml:"path"`
	Extensions []string `toml:"extensions"`
	MIMEType   string   `toml:"mime_type"`
}

// Config is the loaded, validated effective configuration: the four tables
// of spec §3 plus the search roots.
type Config struct {
	Dirs       []string
	Whitespace syntax.WhitespacePolicy
	Tables     syntax.Tables
	Escapers   syntax.EscaperTable
}

// Default is the built-in configuration used when no askama.toml exists,
// per spec §4.1: "a missing configuration file yields the built-in
// defaults."
func Default() Config {
	tables, err := syntax.NewTables([]syntax.Table{syntax.Default()}, "default")
	if err != nil {
		// syntax.Default() is a fixed literal known to validate; a failure
		// here would be a bug in this package, not malformed user input.
		panic(err)
	}
	return Config{
		Dirs:       []string{"templates"},
		Whitespace: syntax.Preserve,
		Tables:     tables,
		Escapers:   syntax.NewEscaperTable(nil),
	}
}

// Load reads and validates askama.toml at path. A missing file is not an
// error: it yields Default(). Any other read or parse failure, or a
// validation failure against spec §4.1's rules, is a *Error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, &Error{File: path, Message: err.Error()}
	}

	var f file
	if _, err := toml.Decode(string(data), &f); err != nil {
		return Config{}, &Error{File: path, Message: "invalid TOML: " + err.Error()}
	}

	whitespace, err := syntax.ParseWhitespacePolicy(f.General.Whitespace)
	if err != nil {
		return Config{}, &Error{File: path, Message: err.Error()}
	}

	tables := []syntax.Table{syntax.Default()}
	for _, s := range f.Syntax {
		tables = append(tables, syntax.Table{
			Name:         s.Name,
			BlockStart:   s.BlockStart,
			BlockEnd:     s.BlockEnd,
			CommentStart: s.CommentStart,
			CommentEnd:   s.CommentEnd,
			ExprStart:    s.ExprStart,
			ExprEnd:      s.ExprEnd,
		})
	}
	defaultSyntax := f.General.DefaultSyntax
	if defaultSyntax == "" {
		defaultSyntax = "default"
	}
	tset, err := syntax.NewTables(tables, defaultSyntax)
	if err != nil {
		return Config{}, &Error{File: path, Message: err.Error()}
	}

	var escapers []syntax.Escaper
	for _, e := range f.Escaper {
		if !isIdentifier(e.Path) {
			return Config{}, &Error{File: path, Message: "escaper path must be a legal identifier: " + e.Path}
		}
		escapers = append(escapers, syntax.Escaper{Name: e.Path, Extensions: e.Extensions, MIMEType: e.MIMEType})
	}

	dirs := f.General.Dirs
	if len(dirs) == 0 {
		dirs = []string{"templates"}
	}

	return Config{
		Dirs:       dirs,
		Whitespace: whitespace,
		Tables:     tset,
		Escapers:   syntax.NewEscaperTable(escapers),
	}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
