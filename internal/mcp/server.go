// Package mcp exposes the declaration scanner to AI agents as an MCP server
// on stdio. The server scans the project once, keeps the results and a
// search index in memory, and optionally follows file changes.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/relations"
	"github.com/mvp-joe/structscan/internal/scanner"
	"github.com/mvp-joe/structscan/internal/search"
)

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	// Watch keeps the in-memory results current as files change.
	Watch  bool
	Logger *slog.Logger
}

// Server holds the project snapshot the tools answer from.
type Server struct {
	runner  *indexer.Runner
	logger  *slog.Logger
	mcp     *server.MCPServer
	watcher *indexer.Watcher

	loadMu sync.Mutex // serializes full loads

	mu     sync.RWMutex
	files  map[string]*indexer.FileResult // by relative path
	index  *search.Index
	loaded bool
}

// NewServer creates a server over the project the runner is configured for
// and registers every tool.
func NewServer(runner *indexer.Runner, opts Options) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if opts.Name == "" {
		opts.Name = "structscan"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		runner: runner,
		logger: logger,
		files:  make(map[string]*indexer.FileResult),
	}

	s.mcp = server.NewMCPServer(
		opts.Name,
		opts.Version,
		server.WithToolCapabilities(true),
	)
	AddScanTool(s.mcp, s)
	AddSearchTool(s.mcp, s)
	AddImplementorsTool(s.mcp, s)

	if opts.Watch {
		w, err := indexer.NewWatcher(runner, s.apply)
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		s.watcher = w
	}

	return s, nil
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Load scans the whole project and rebuilds the search index.
func (s *Server) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.load(ctx)
}

func (s *Server) load(ctx context.Context) error {
	results, err := s.runner.RunAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan project: %w", err)
	}
	idx, err := search.Build(ctx, results)
	if err != nil {
		return err
	}

	files := make(map[string]*indexer.FileResult, len(results))
	for _, r := range results {
		files[r.RelPath] = r
	}

	s.mu.Lock()
	old := s.index
	s.files, s.index, s.loaded = files, idx, true
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	s.logger.Info("project loaded", "files", len(files), "documents", idx.Len())
	return nil
}

// ensureLoaded loads the project on first use. Concurrent first calls
// share one load.
func (s *Server) ensureLoaded(ctx context.Context) error {
	if s.isLoaded() {
		return nil
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.isLoaded() {
		return nil
	}
	return s.load(ctx)
}

func (s *Server) isLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// apply folds a watcher batch into the snapshot.
func (s *Server) apply(ctx context.Context, results []*indexer.FileResult, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return
	}

	for _, rel := range removed {
		delete(s.files, rel)
	}
	for _, r := range results {
		s.files[r.RelPath] = r
	}
	if err := s.index.Update(ctx, results, removed); err != nil {
		s.logger.Error("failed to update search index", "error", err)
		return
	}
	s.logger.Debug("snapshot updated", "changed", len(results), "removed", len(removed))
}

// snapshot returns the current results sorted by path.
func (s *Server) snapshot() []*indexer.FileResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*indexer.FileResult, 0, len(s.files))
	for _, r := range s.files {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}

// ScanDeclarations implements DeclarationScanner.
func (s *Server) ScanDeclarations(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	var results []*indexer.FileResult
	if req.Source != "" {
		cat, err := s.runner.ScanSource(req.Grammar, "", []byte(req.Source))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		results = []*indexer.FileResult{{Path: "<source>", RelPath: "<source>", Grammar: cat.Grammar, Catalog: cat}}
	} else {
		var err error
		if results, err = s.filesUnder(ctx, req.Path); err != nil {
			return nil, err
		}
	}

	filtered := req.Kind != "" || req.Name != ""
	resp := &ScanResponse{Files: []*FileDeclarations{}}
	for _, r := range results {
		if !r.OK() {
			continue
		}
		fd := declarations(r, req)
		if filtered && len(fd.Declarations) == 0 {
			continue
		}
		resp.Files = append(resp.Files, fd)
		resp.TotalDeclarations += len(fd.Declarations)
	}
	return resp, nil
}

// filesUnder resolves a project-relative file or directory to scan results.
func (s *Server) filesUnder(ctx context.Context, rel string) ([]*indexer.FileResult, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	clean := path.Clean(filepath.ToSlash(rel))
	if clean == "." || clean == "/" {
		return s.snapshot(), nil
	}
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, fmt.Errorf("%w: path %q is outside the project", ErrInvalidRequest, rel)
	}

	abs := filepath.Join(s.runner.Discovery().RootDir(), filepath.FromSlash(clean))
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: path %q not found", ErrInvalidRequest, rel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	if !info.IsDir() {
		s.mu.RLock()
		r, ok := s.files[clean]
		s.mu.RUnlock()
		if ok {
			return []*indexer.FileResult{r}, nil
		}
		// Not part of the project's include set; scan it on request.
		return []*indexer.FileResult{s.runner.ScanFile(abs)}, nil
	}

	var out []*indexer.FileResult
	for _, r := range s.snapshot() {
		if strings.HasPrefix(r.RelPath, clean+"/") {
			out = append(out, r)
		}
	}
	return out, nil
}

func declarations(r *indexer.FileResult, req *ScanRequest) *FileDeclarations {
	fd := &FileDeclarations{
		Path:         r.RelPath,
		Grammar:      r.Grammar,
		Declarations: []*DeclarationResult{},
		Advisories:   r.Catalog.Advisories,
		Salvaged:     r.Catalog.Salvaged(),
	}

	r.Catalog.Walk(func(d *scanner.Declaration, parents []*scanner.Declaration) bool {
		if req.Kind != "" && d.Kind != grammar.Kind(req.Kind) {
			return true
		}
		if req.Name != "" && d.Name != req.Name && relations.BaseName(d.Target) != req.Name {
			return true
		}

		out := &DeclarationResult{
			Kind:          d.Kind,
			Name:          d.Name,
			QualifiedName: scanner.QualifiedName(append(parents[:len(parents):len(parents)], d)),
			Signature:     d.Signature,
			Generics:      d.Generics,
			Line:          d.Line,
			EndLine:       d.EndLine,
			Depth:         len(parents),
			Salvaged:      d.Salvaged,
		}
		if req.IncludeDoc {
			out.Doc = d.DocText()
		}
		fd.Declarations = append(fd.Declarations, out)
		return true
	})
	return fd
}

// SearchDeclarations implements DeclarationSearcher.
func (s *Server) SearchDeclarations(ctx context.Context, req *SearchRequest) ([]*search.Hit, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	// Held for the whole query so a reload cannot close the index under it.
	s.mu.RLock()
	if s.index == nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("server is closed")
	}
	hits, err := s.index.Search(ctx, req.Query, &search.Options{
		Kind:     grammar.Kind(req.Kind),
		FilePath: req.FilePath,
		Limit:    req.Limit,
	})
	s.mu.RUnlock()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return hits, nil
}

// Implementors implements ImplementorFinder.
func (s *Server) Implementors(ctx context.Context, trait string) ([]string, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	g, err := relations.Build(s.snapshot())
	if err != nil {
		return nil, err
	}
	return g.Implementors(relations.BaseName(trait)), nil
}

// Serve loads the project, starts the watcher when enabled and serves MCP
// on stdio until the context ends, a signal arrives or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.watcher != nil {
		s.watcher.Start(ctx)
		defer s.watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio")
		errCh <- server.ServeStdio(s.mcp)
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the watcher and releases the search index.
func (s *Server) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		err := s.index.Close()
		s.index = nil
		s.loaded = false
		return err
	}
	return nil
}
