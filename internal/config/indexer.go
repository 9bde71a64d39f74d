package config

import (
	"path/filepath"

	"github.com/mvp-joe/structscan/internal/indexer"
)

// ToIndexerConfig converts a Config to an indexer.Config.
// The rootDir parameter specifies the root directory of the tree to scan.
// userGrammarDir, usually from the global config, is searched before the
// project grammar directory so project grammars win.
func (c *Config) ToIndexerConfig(rootDir, userGrammarDir string) *indexer.Config {
	var dirs []string
	if userGrammarDir != "" {
		dirs = append(dirs, userGrammarDir)
	}
	if c.Grammars.Dir != "" {
		dirs = append(dirs, c.ResolvePath(rootDir, c.Grammars.Dir))
	}

	return &indexer.Config{
		RootDir:         rootDir,
		IncludePatterns: c.Paths.Include,
		IgnorePatterns:  c.Paths.Ignore,
		GrammarDirs:     dirs,
		DefaultGrammar:  c.Grammars.Default,
		Workers:         c.Scan.Workers,
		MaxFileSize:     int64(c.Scan.MaxFileSizeKB) * 1024,
		CacheSize:       c.Scan.CacheSize,
	}
}

// ResolvePath anchors a configured relative path at the project root.
func (c *Config) ResolvePath(rootDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(rootDir, path)
}

// DBPath returns the absolute path of the declaration store.
func (c *Config) DBPath(rootDir string) string {
	return c.ResolvePath(rootDir, c.Storage.DBPath)
}
