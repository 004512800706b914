package reindent

import (
	"context"
	"io"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BatchOptions configures Run.
type BatchOptions struct {
	Options
	// Jobs bounds how many files are processed at once. Values below 1 mean 1.
	Jobs int
	// Write rewrites each file in place after it is reindented.
	Write bool
	// Stdin is read when a path is "-".
	Stdin  io.Reader
	Logger *zap.Logger
}

// Result describes one processed path.
type Result struct {
	Path       string
	Original   string
	Reindented string
	Changed    bool
}

// Run reindents every path. Duplicate paths are processed once and results keep
// the order of first appearance. The first failure cancels outstanding work
// and is returned with no results.
func Run(ctx context.Context, paths []string, opts BatchOptions) ([]Result, error) {
	if len(paths) == 0 {
		return nil, ErrMissingPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}

	unique := dedupePaths(paths)
	results := make([]Result, len(unique))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := processPath(path, opts)
			if err != nil {
				return err
			}
			logger.Debug("reindented",
				zap.String("path", path),
				zap.Bool("changed", res.Changed),
				zap.Int("lines", len(SplitLines(res.Original))),
			)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func processPath(path string, opts BatchOptions) (Result, error) {
	src, err := ReadSource(path, opts.Stdin)
	if err != nil {
		return Result{}, err
	}
	out := Text(src, opts.Options)
	res := Result{
		Path:       path,
		Original:   src,
		Reindented: out,
		Changed:    out != src,
	}
	if opts.Write && path != StdinPath {
		if err := WriteFile(path, out); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

func dedupePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		key := p
		if p != StdinPath && p != "" {
			key = filepath.Clean(p)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}
