package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/mvp-joe/structscan/internal/config"
	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/render"
	"github.com/mvp-joe/structscan/internal/scanner"
)

// scanOptions are the flags of the scan command.
type scanOptions struct {
	format  string
	grammar string
	watch   bool
	doc     bool
}

var scanOpts scanOptions

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [paths...]",
	Short: "Print the declarations in source files",
	Long: `Scan source files and print their declarations.

With no arguments the whole project is scanned using the include and ignore
patterns from .structscan/config.yml. Directory arguments are scanned with
the same patterns; file arguments are always scanned. A single "-" reads
source from stdin and requires --grammar.

Formats:
  tree     indented declaration tree per file (default)
  flat     one line per declaration: path:line kind qualified_name signature
  json     array of {path, grammar, catalog}; a bare catalog for stdin
  msgpack  the json form as MessagePack

Examples:
  # Scan the project
  structscan scan

  # Scan one directory as JSON
  structscan scan src --format json

  # Scan a snippet from another tool
  cat lib.rs | structscan scan - --grammar rust

  # Rescan and print files as they change
  structscan scan --watch`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanOpts.format, "format", "f", "", "output format: tree, flat, json, msgpack (overrides config)")
	scanCmd.Flags().StringVarP(&scanOpts.grammar, "grammar", "g", "", "scan every file with this grammar instead of by extension")
	scanCmd.Flags().BoolVarP(&scanOpts.watch, "watch", "w", false, "keep running and rescan files as they change")
	scanCmd.Flags().BoolVar(&scanOpts.doc, "doc", false, "show the first doc comment line in tree output")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := openProject(globals)
	if err != nil {
		return err
	}
	defer p.Close()

	p.runner.SetProgressReporter(newReporter(globals.quiet, p.cfg.Output.Color))

	return executeScan(ctx, p, scanOpts, args, cmd.OutOrStdout(), cmd.InOrStdin())
}

// executeScan runs the scan command against an open project.
func executeScan(ctx context.Context, p *project, opts scanOptions, args []string, out io.Writer, in io.Reader) error {
	format := strings.ToLower(firstNonEmpty(opts.format, p.cfg.Output.Format))
	if err := config.ValidateFormat(format); err != nil {
		return err
	}

	if len(args) == 1 && args[0] == "-" {
		return scanStdin(p, opts, format, out, in)
	}

	results, err := scanPaths(ctx, p, args, opts.grammar)
	if err != nil {
		return err
	}
	if err := writeResults(out, format, p, opts, results); err != nil {
		return err
	}

	if !opts.watch {
		return nil
	}
	return watchProject(ctx, p, func(ctx context.Context, results []*indexer.FileResult, removed []string) {
		for _, rel := range removed {
			p.logger.Info("file removed", "path", rel)
		}
		if err := writeResults(out, format, p, opts, results); err != nil {
			p.logger.Error("failed to write results", "error", err)
		}
	})
}

func scanStdin(p *project, opts scanOptions, format string, out io.Writer, in io.Reader) error {
	if opts.grammar == "" {
		return fmt.Errorf("--grammar is required when reading from stdin")
	}
	src, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	cat, err := p.runner.ScanSource(opts.grammar, "", src)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return scanner.EncodeJSON(out, cat)
	case "msgpack":
		return scanner.EncodeMsgpack(out, cat)
	}
	res := &indexer.FileResult{Path: "<stdin>", RelPath: "<stdin>", Grammar: cat.Grammar, Catalog: cat}
	return writeResults(out, format, p, opts, []*indexer.FileResult{res})
}

// scanPaths scans the whole project when paths is empty, otherwise every
// file argument and every matching file under each directory argument.
func scanPaths(ctx context.Context, p *project, paths []string, grammarName string) ([]*indexer.FileResult, error) {
	var files []string
	if len(paths) == 0 {
		var err error
		if files, err = p.runner.Discovery().DiscoverFiles(); err != nil {
			return nil, fmt.Errorf("failed to discover files: %w", err)
		}
	} else {
		var err error
		if files, err = expandPaths(p, paths); err != nil {
			return nil, err
		}
	}

	if grammarName == "" {
		return p.runner.Run(ctx, files)
	}
	return scanWithGrammar(ctx, p, files, grammarName)
}

func expandPaths(p *project, paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range paths {
		path := p.resolve(arg)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		discovery, err := indexer.NewFileDiscovery(path, p.cfg.Paths.Include, p.cfg.Paths.Ignore)
		if err != nil {
			return nil, err
		}
		found, err := discovery.DiscoverFiles()
		if err != nil {
			return nil, fmt.Errorf("failed to discover files in %s: %w", arg, err)
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

// scanWithGrammar scans files with one named grammar regardless of their
// extension.
func scanWithGrammar(ctx context.Context, p *project, files []string, grammarName string) ([]*indexer.FileResult, error) {
	if _, err := p.runner.Registry().Lookup(grammarName); err != nil {
		return nil, err
	}

	results := make([]*indexer.FileResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := &indexer.FileResult{Path: path, RelPath: p.relPath(path), Grammar: grammarName}
		src, err := os.ReadFile(path)
		if err != nil {
			res.Err = fmt.Errorf("failed to read %s: %w", res.RelPath, err)
			results = append(results, res)
			continue
		}
		res.Size = int64(len(src))
		res.Hash = indexer.ContentHash(src)
		if res.Catalog, err = p.runner.ScanSource(grammarName, path, src); err != nil {
			res.Err = err
		}
		results = append(results, res)
	}
	return results, nil
}

// scanOutput is one file of the json and msgpack formats.
type scanOutput struct {
	Path    string           `json:"path" msgpack:"path"`
	Grammar string           `json:"grammar,omitempty" msgpack:"grammar,omitempty"`
	Skipped string           `json:"skipped,omitempty" msgpack:"skipped,omitempty"`
	Error   string           `json:"error,omitempty" msgpack:"error,omitempty"`
	Catalog *scanner.Catalog `json:"catalog,omitempty" msgpack:"catalog,omitempty"`
}

func toOutput(results []*indexer.FileResult) []scanOutput {
	out := make([]scanOutput, 0, len(results))
	for _, r := range results {
		o := scanOutput{Path: r.RelPath, Grammar: r.Grammar, Skipped: string(r.Skipped), Catalog: r.Catalog}
		if r.Err != nil {
			o.Error = r.Err.Error()
		}
		out = append(out, o)
	}
	return out
}

func writeResults(out io.Writer, format string, p *project, opts scanOptions, results []*indexer.FileResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(toOutput(results))
	case "msgpack":
		return msgpack.NewEncoder(out).Encode(toOutput(results))
	}

	printer := render.NewPrinter(out, printerOptions(out, p.cfg.Output.Color, opts.doc))
	if format == "flat" {
		return printer.Flat(results)
	}
	return printer.Tree(results)
}

// printerOptions enables color and width only when out is a terminal.
func printerOptions(out io.Writer, color string, doc bool) render.Options {
	f, _ := out.(*os.File)
	return render.Options{
		Color: render.UseColor(color, f),
		Width: render.TerminalWidth(f),
		Doc:   doc,
	}
}

// watchProject runs a watcher over the project root until ctx ends.
func watchProject(ctx context.Context, p *project, handler indexer.ChangeHandler) error {
	w, err := indexer.NewWatcher(p.runner, handler)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	p.logger.Info("watching for changes", "root", p.root)
	w.Start(ctx)
	<-ctx.Done()
	w.Stop()
	return nil
}
