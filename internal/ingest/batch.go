package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

// DefaultPatterns select the file names the common toolchains write.
var DefaultPatterns = []string{
	"**/coverage.out",
	"**/cover.out",
	"**/*.coverprofile",
	"**/lcov.info",
	"**/*.lcov",
	"**/jacoco*.xml",
}

// ProgressFunc is called after each file is processed.
type ProgressFunc func(completed, total int, path string)

// Options controls batch ingestion.
type Options struct {
	// Patterns select files relative to the root. DefaultPatterns when empty.
	Patterns []string
	// Exclude drops files matching any of these patterns.
	Exclude []string
	// Format is a format name or FormatAuto.
	Format string
	// Workers bounds concurrent parsing. GOMAXPROCS when not positive.
	Workers int
	// Progress is optional.
	Progress ProgressFunc
}

// FileResult is the outcome for one file. Exactly one of Result and Err is set.
type FileResult struct {
	Path   string
	Result *Result
	Err    error
}

// Discover lists the files under root that match patterns and no exclude
// pattern, sorted and without duplicates.
func Discover(root string, patterns, exclude []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to match pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			if _, ok := seen[match]; ok || excluded(match, exclude) {
				continue
			}
			seen[match] = struct{}{}
			paths = append(paths, filepath.Join(root, filepath.FromSlash(match)))
		}
	}
	slices.Sort(paths)
	return paths, nil
}

func excluded(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

// Batch discovers report files under root and parses them.
func Batch(ctx context.Context, root string, opts Options) ([]FileResult, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access path %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, fs.ErrInvalid)
	}

	paths, err := Discover(root, opts.Patterns, opts.Exclude)
	if err != nil {
		return nil, err
	}
	return ParseFiles(ctx, paths, opts)
}

// ParseFiles parses every path concurrently. Results follow the order of
// paths. A file that fails to read or parse does not stop the others; only
// cancellation of ctx makes ParseFiles itself fail.
func ParseFiles(ctx context.Context, paths []string, opts Options) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			result, err := ParseFile(path, opts.Format)
			results[i] = FileResult{Path: path, Result: result, Err: err}

			if opts.Progress != nil {
				mu.Lock()
				completed++
				opts.Progress(completed, len(paths), path)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParseFile reads one report from disk.
func ParseFile(path, format string) (*Result, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	return ParseNamed(format, raw)
}
