// Package askama is the top-level entry point a host project imports for
// the pieces that don't belong to one pipeline stage: rebuild-hint
// enumeration for `go:generate`/Makefile dependency rules, and the
// annotation-to-generated-source driver used by cmd/askamagen.
package askama

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// templateExtensions bounds RebuildHints to files a template root would
// plausibly contain, so an unrelated asset living under a configured dir
// (images, fonts) doesn't show up as a spurious build dependency.
var templateExtensions = map[string]bool{
	".html": true, ".htm": true, ".xml": true,
	".txt": true, ".md": true, ".j2": true, ".jinja": true, ".jinja2": true,
}

// RebuildHints walks roots and returns every template file found, sorted,
// for a host go:generate directive or Makefile rule to depend on. It is
// enumeration only: no filesystem watching loop is provided.
func RebuildHints(roots []string) ([]string, error) {
	var out []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if templateExtensions[filepath.Ext(path)] {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}
