package main

import (
	"context"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/askamago/askama"
	"github.com/askamago/askama/config"
)

// generatedFile is one <Type>_askama.gen.go produced for one annotated
// context type found while scanning a package directory.
type generatedFile struct {
	Dir        string
	Type       string
	Path       string // Dir/<Type>_askama.gen.go
	Source     string
	Diagnostic bool // true when Source is a print= dump, not generated source
}

// maxConcurrency bounds the worker pool generating independent context
// types, per spec §5: invocations share no mutable state, so a config.Config
// plus per-invocation resolve.Loader is built once per request and handed to
// its own goroutine.
func maxConcurrency() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// generateDirs scans every dir for annotated context types and runs the
// pipeline for each, fanning out across a bounded worker pool.
func generateDirs(cfg config.Config, dirs []string) ([]generatedFile, error) {
	var reqDirs []string
	var reqs []askama.GenerateRequest
	for _, dir := range dirs {
		found, err := askama.ScanPackage(dir)
		if err != nil {
			return nil, err
		}
		for _, r := range found {
			reqDirs = append(reqDirs, dir)
			reqs = append(reqs, r)
		}
	}

	results := make([]generatedFile, len(reqs))
	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(maxConcurrency())
	for i := range reqs {
		i := i
		g.Go(func() error {
			dir, req := reqDirs[i], reqs[i]
			src, err := askama.Generate(cfg, req)
			if err != nil {
				return err
			}
			results[i] = generatedFile{
				Dir:        dir,
				Type:       req.TypeName,
				Path:       filepath.Join(dir, req.TypeName+"_askama.gen.go"),
				Source:     src,
				Diagnostic: req.Annotation.Print != "",
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
