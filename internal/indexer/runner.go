package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/scanner"
)

// LoadRegistry returns the built-in grammars overridden by every grammar
// file found in dirs, in order. Missing directories are skipped.
func LoadRegistry(dirs ...string) (*grammar.Registry, error) {
	reg := grammar.NewRegistry()
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := reg.LoadDir(dir); err != nil {
			return nil, fmt.Errorf("failed to load grammars from %s: %w", dir, err)
		}
	}
	return reg, nil
}

// Runner scans files in parallel, each with the grammar registered for its
// extension. A Runner is safe for concurrent use once built.
type Runner struct {
	config    *Config
	registry  *grammar.Registry
	scanners  map[string]*scanner.Scanner
	fallback  *scanner.Scanner
	cache     *CatalogCache
	discovery *FileDiscovery
	progress  ProgressReporter
	logger    *slog.Logger
}

// NewRunner builds scanners for every grammar in the registry. A nil logger
// discards log output.
func NewRunner(cfg *Config, registry *grammar.Registry, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Runner{
		config:   cfg,
		registry: registry,
		scanners: make(map[string]*scanner.Scanner),
		progress: &NoOpProgressReporter{},
		logger:   logger,
	}

	for _, g := range registry.All() {
		s, err := scanner.New(g)
		if err != nil {
			return nil, fmt.Errorf("grammar %s: %w", g.Name, err)
		}
		r.scanners[g.Name] = s
	}

	if cfg.DefaultGrammar != "" {
		g, err := registry.Lookup(cfg.DefaultGrammar)
		if err != nil {
			return nil, err
		}
		r.fallback = r.scanners[g.Name]
	}

	if cfg.CacheSize > 0 {
		cache, err := NewCatalogCache(cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}

	discovery, err := NewFileDiscovery(cfg.RootDir, cfg.IncludePatterns, cfg.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid path pattern: %w", err)
	}
	r.discovery = discovery

	return r, nil
}

// SetProgressReporter replaces the progress reporter.
func (r *Runner) SetProgressReporter(p ProgressReporter) {
	if p == nil {
		p = &NoOpProgressReporter{}
	}
	r.progress = p
}

// Discovery returns the file discovery the runner was configured with.
func (r *Runner) Discovery() *FileDiscovery {
	return r.discovery
}

// Registry returns the grammars the runner resolves files against.
func (r *Runner) Registry() *grammar.Registry {
	return r.registry
}

// Close releases the catalog cache.
func (r *Runner) Close() {
	if r.cache != nil {
		r.cache.Close()
	}
}

// RunAll discovers files under the root and scans them.
func (r *Runner) RunAll(ctx context.Context) ([]*FileResult, error) {
	r.progress.OnDiscoveryStart()
	files, err := r.discovery.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	r.progress.OnDiscoveryComplete(len(files))

	return r.Run(ctx, files)
}

// Run scans files with at most Workers files in flight and returns one
// result per file in input order. Per-file failures are recorded on the
// result; only context cancellation fails the run.
func (r *Runner) Run(ctx context.Context, files []string) ([]*FileResult, error) {
	start := time.Now()
	results := make([]*FileResult, len(files))
	r.progress.OnFileProcessingStart(len(files))

	workers := r.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(workers, len(files))))

	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			// Each goroutine owns results[i], no lock needed.
			results[i] = r.ScanFile(path)
			r.progress.OnFileProcessed(results[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := Summarize(results, time.Since(start))
	r.logger.Debug("scan complete",
		"files", stats.Files,
		"declarations", stats.Declarations,
		"cached", stats.Cached,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", stats.Duration)
	r.progress.OnComplete(stats)

	return results, nil
}

// ScanFile reads and scans one file.
func (r *Runner) ScanFile(path string) *FileResult {
	res := &FileResult{Path: path, RelPath: r.relPath(path)}

	s := r.scannerFor(path)
	if s == nil {
		res.Skipped = SkipNoGrammar
		return res
	}
	res.Grammar = s.Grammar().Name

	info, err := os.Stat(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to stat %s: %w", res.RelPath, err)
		r.logger.Warn("skipping file", "path", res.RelPath, "error", err)
		return res
	}
	res.Size = info.Size()
	if r.config.MaxFileSize > 0 && info.Size() > r.config.MaxFileSize {
		res.Skipped = SkipTooLarge
		r.logger.Debug("skipping large file", "path", res.RelPath, "size", info.Size())
		return res
	}

	src, err := os.ReadFile(path)
	if err != nil {
		res.Err = fmt.Errorf("failed to read %s: %w", res.RelPath, err)
		r.logger.Warn("skipping file", "path", res.RelPath, "error", err)
		return res
	}

	res.Catalog, res.Hash, res.Cached = r.scan(s, src)
	return res
}

// ScanSource scans in-memory content with the named grammar, or with the
// grammar for path's extension when name is empty.
func (r *Runner) ScanSource(name, path string, src []byte) (*scanner.Catalog, error) {
	var s *scanner.Scanner
	if name != "" {
		g, err := r.registry.Lookup(name)
		if err != nil {
			return nil, err
		}
		s = r.scanners[g.Name]
	} else {
		s = r.scannerFor(path)
	}
	if s == nil {
		return nil, fmt.Errorf("no grammar for %q", path)
	}

	cat, _, _ := r.scan(s, src)
	return cat, nil
}

func (r *Runner) scan(s *scanner.Scanner, src []byte) (*scanner.Catalog, string, bool) {
	hash := ContentHash(src)
	name := s.Grammar().Name

	if r.cache != nil {
		if cat, ok := r.cache.Get(name, hash); ok {
			return cat, hash, true
		}
	}

	cat := s.ScanSource(src)
	if r.cache != nil {
		r.cache.Set(name, hash, cat)
	}
	return cat, hash, false
}

func (r *Runner) scannerFor(path string) *scanner.Scanner {
	if g := r.registry.ForPath(path); g != nil {
		return r.scanners[g.Name]
	}
	return r.fallback
}

func (r *Runner) relPath(path string) string {
	if r.config.RootDir != "" {
		abs, err := filepath.Abs(path)
		if err == nil {
			root, err := filepath.Abs(r.config.RootDir)
			if err == nil {
				if rel, err := filepath.Rel(root, abs); err == nil {
					rel = filepath.ToSlash(rel)
					if rel != ".." && !strings.HasPrefix(rel, "../") {
						return rel
					}
				}
			}
		}
	}
	return filepath.ToSlash(path)
}
