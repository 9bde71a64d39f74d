package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/structscan/internal/config"
	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/logging"
)

// project bundles what every command needs: the loaded configuration, a
// logger and a runner over the project's files.
type project struct {
	root   string
	cfg    *config.Config
	logger *logging.Logger
	runner *indexer.Runner
}

// openProject loads configuration for the root named in opts (or the
// working directory) and builds the runner. Flags override the config file.
func openProject(opts globalOptions) (*project, error) {
	root := opts.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("failed to access root: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	global, err := config.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load global configuration: %w", err)
	}

	if opts.color != "" {
		cfg.Output.Color = opts.color
	}

	logFile := cfg.ResolvePath(root, cfg.Log.File)
	if opts.logFile != "" {
		logFile = opts.logFile
	}
	logger, err := logging.New(logging.Options{
		Level: firstNonEmpty(opts.logLevel, cfg.Log.Level, global.Log.Level),
		File:  logFile,
	})
	if err != nil {
		return nil, err
	}

	icfg := cfg.ToIndexerConfig(root, global.Grammars.Dir)
	registry, err := indexer.LoadRegistry(icfg.GrammarDirs...)
	if err != nil {
		logger.Close()
		return nil, err
	}
	runner, err := indexer.NewRunner(icfg, registry, logger.Logger)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	logger.Debug("project opened",
		"root", root,
		"grammars", registry.Names(),
		"workers", icfg.Workers)

	return &project{root: root, cfg: cfg, logger: logger, runner: runner}, nil
}

// Close releases the runner and the log file.
func (p *project) Close() {
	p.runner.Close()
	_ = p.logger.Close()
}

// resolve anchors a relative command-line path at the project root.
func (p *project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.root, path)
}

// relPath returns path relative to the root, slash-separated, or the path
// itself when it lies outside the root.
func (p *project) relPath(path string) string {
	rel, err := filepath.Rel(p.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return filepath.ToSlash(path)
	}
	return rel
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
