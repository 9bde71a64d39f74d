package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/structscan/internal/config"
	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/logging"
)

const shapesSource = `/// Renders itself.
pub trait Render {
    fn render(&self);
}

pub struct Circle {
    r: f64,
}

impl Render for Circle {
    fn render(&self) {}
}
`

const queueSource = `package queue

type Queue struct{}

func (q *Queue) Push(job string) {}
`

// writeFiles creates files under root from slash-separated relative paths.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// newTestProject builds a project over a temp directory holding a Rust and
// a Go file, without reading any user configuration.
func newTestProject(t *testing.T) *project {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/shapes.rs":  shapesSource,
		"lib/queue.go":   queueSource,
		"notes/todo.txt": "struct Later {}\n",
	})

	cfg := config.Default()
	cfg.Output.Color = "never"
	cfg.Scan.Workers = 2

	icfg := cfg.ToIndexerConfig(root, "")
	registry, err := indexer.LoadRegistry(icfg.GrammarDirs...)
	require.NoError(t, err)
	runner, err := indexer.NewRunner(icfg, registry, nil)
	require.NoError(t, err)

	p := &project{root: root, cfg: cfg, logger: logging.Discard(), runner: runner}
	t.Cleanup(p.Close)
	return p
}
