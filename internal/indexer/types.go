// Package indexer turns a directory tree into declaration catalogs.
//
// FileDiscovery selects source files with include and ignore globs, Runner
// scans them in parallel with the grammar registered for each extension,
// CatalogCache skips rescanning unchanged content, ChangeDetector compares
// the tree against a previously stored index, and Watcher rescans files as
// they change on disk.
package indexer

import (
	"time"

	"github.com/mvp-joe/structscan/internal/scanner"
)

// Config holds the settings for discovering and scanning a tree.
type Config struct {
	RootDir         string
	IncludePatterns []string
	IgnorePatterns  []string

	// GrammarDirs are searched in order; later directories override
	// earlier ones and all of them override the built-ins.
	GrammarDirs    []string
	DefaultGrammar string // used for unknown extensions; empty skips them

	Workers     int
	MaxFileSize int64 // bytes; larger files are skipped
	CacheSize   int   // catalog cache entries; 0 disables caching
}

// SkipReason explains why a file was not scanned.
type SkipReason string

const (
	SkipNone      SkipReason = ""
	SkipNoGrammar SkipReason = "no_grammar"
	SkipTooLarge  SkipReason = "too_large"
)

// FileResult is the outcome of scanning one file.
type FileResult struct {
	Path    string // as given to the runner
	RelPath string // slash-separated, relative to the root when possible
	Grammar string
	Hash    string // hex SHA-256 of the content
	Size    int64
	Catalog *scanner.Catalog
	Cached  bool
	Skipped SkipReason
	Err     error
}

// OK reports whether the file was scanned and produced a catalog.
func (r *FileResult) OK() bool {
	return r.Err == nil && r.Skipped == SkipNone && r.Catalog != nil
}

// ProcessingStats summarizes one run.
type ProcessingStats struct {
	Files        int
	Scanned      int
	Cached       int
	Skipped      int
	Failed       int
	Declarations int
	Advisories   int
	Salvaged     int
	Duration     time.Duration
}

// Summarize computes stats over a run's results.
func Summarize(results []*FileResult, elapsed time.Duration) *ProcessingStats {
	stats := &ProcessingStats{Files: len(results), Duration: elapsed}
	for _, r := range results {
		switch {
		case r.Err != nil:
			stats.Failed++
			continue
		case r.Skipped != SkipNone:
			stats.Skipped++
			continue
		}
		stats.Scanned++
		if r.Cached {
			stats.Cached++
		}
		stats.Declarations += r.Catalog.Count()
		stats.Advisories += len(r.Catalog.Advisories)
		if r.Catalog.Salvaged() {
			stats.Salvaged++
		}
	}
	return stats
}
