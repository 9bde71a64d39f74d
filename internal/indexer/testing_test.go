package indexer

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/structscan/internal/grammar"
)

// writeTree creates files under root from a path → content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func testConfig(root string) *Config {
	return &Config{
		RootDir:         root,
		IncludePatterns: []string{"**/*.rs", "**/*.go"},
		IgnorePatterns:  []string{"target/**", "vendor/**"},
		Workers:         2,
		MaxFileSize:     1 << 20,
		CacheSize:       100,
	}
}

func newTestRunner(t *testing.T, cfg *Config) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, grammar.NewRegistry(), nil)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

// recordingReporter captures progress callbacks.
type recordingReporter struct {
	mu        sync.Mutex
	discovery int
	total     int
	processed []string
	stats     *ProcessingStats
}

func (r *recordingReporter) OnDiscoveryStart() {}

func (r *recordingReporter) OnDiscoveryComplete(files int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovery = files
}

func (r *recordingReporter) OnFileProcessingStart(totalFiles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = totalFiles
}

func (r *recordingReporter) OnFileProcessed(result *FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, result.RelPath)
}

func (r *recordingReporter) OnComplete(stats *ProcessingStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = stats
}

const rustSource = `/// A point.
pub struct Point { x: i32, y: i32 }

impl Point {
    pub fn new(x: i32, y: i32) -> Self { Point { x, y } }
}
`

const goSource = `package demo

// Server serves.
type Server struct{}

func (s *Server) Start() error { return nil }
`
