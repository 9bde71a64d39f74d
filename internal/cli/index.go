package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/structscan/internal/indexer"
	"github.com/mvp-joe/structscan/internal/storage"
)

// indexOptions are the flags of the index command.
type indexOptions struct {
	full  bool
	watch bool
}

var indexOpts indexOptions

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Store the project's declarations for querying",
	Long: `Index scans the project and stores every declaration in
.structscan/declarations.db so 'structscan query' can answer without
rescanning.

Only files added or modified since the last run are rescanned: a file whose
modification time is unchanged is skipped, and one whose time changed is
rescanned only when its content hash differs. Files deleted from disk are
removed from the store.

Examples:
  # Index the current directory
  structscan index

  # Rescan everything, ignoring stored state
  structscan index --full

  # Keep the store current as files change
  structscan index --watch`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexOpts.full, "full", false, "rescan every file, not only changed ones")
	indexCmd.Flags().BoolVarP(&indexOpts.watch, "watch", "w", false, "keep running and update the store as files change")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := openProject(globals)
	if err != nil {
		return err
	}
	defer p.Close()

	p.runner.SetProgressReporter(newReporter(globals.quiet, p.cfg.Output.Color))

	return executeIndex(ctx, p, indexOpts, cmd.OutOrStdout())
}

// indexSummary counts what one index pass changed in the store.
type indexSummary struct {
	Written int
	Removed int
	Failed  int
}

// executeIndex brings the store up to date with the project tree.
func executeIndex(ctx context.Context, p *project, opts indexOptions, out io.Writer) error {
	store, err := storage.Open(p.cfg.DBPath(p.root))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	detector := indexer.NewChangeDetector(store, p.runner.Discovery())
	changes, err := detector.DetectChanges(ctx, nil)
	if err != nil {
		return err
	}

	rescan := changes.Changed()
	if opts.full {
		rescan = append(rescan, changes.Unchanged...)
	}
	p.logger.Info("changes detected",
		"added", len(changes.Added),
		"modified", len(changes.Modified),
		"deleted", len(changes.Deleted),
		"unchanged", len(changes.Unchanged))

	files := make([]string, len(rescan))
	for i, rel := range rescan {
		files[i] = p.resolve(filepath.FromSlash(rel))
	}
	results, err := p.runner.Run(ctx, files)
	if err != nil {
		return err
	}

	summary, err := storeResults(ctx, store, results, changes.Deleted)
	if err != nil {
		return err
	}
	if err := printIndexSummary(ctx, out, store, summary); err != nil {
		return err
	}

	if !opts.watch {
		return nil
	}
	return watchProject(ctx, p, func(ctx context.Context, results []*indexer.FileResult, removed []string) {
		summary, err := storeResults(ctx, store, results, removed)
		if err != nil {
			p.logger.Error("failed to update store", "error", err)
			return
		}
		p.logger.Info("store updated", "written", summary.Written, "removed", summary.Removed, "failed", summary.Failed)
	})
}

// storeResults writes every scanned file and removes deleted ones. Files
// that were skipped or failed lose any previously stored rows.
func storeResults(ctx context.Context, store *storage.Store, results []*indexer.FileResult, removed []string) (indexSummary, error) {
	var summary indexSummary
	now := time.Now()

	for _, res := range results {
		if !res.OK() {
			if res.Err != nil {
				summary.Failed++
			}
			if err := store.DeleteFile(ctx, res.RelPath); err != nil {
				return summary, err
			}
			continue
		}

		rec := &storage.FileRecord{
			Path:          res.RelPath,
			Grammar:       res.Grammar,
			Hash:          res.Hash,
			SizeBytes:     res.Size,
			ScannedAt:     now,
			Salvaged:      res.Catalog.Salvaged(),
			AdvisoryCount: len(res.Catalog.Advisories),
		}
		if info, err := os.Stat(res.Path); err == nil {
			rec.LastModified = info.ModTime()
		}
		if err := store.WriteFile(ctx, rec, res.Catalog); err != nil {
			return summary, err
		}
		summary.Written++
	}

	for _, rel := range removed {
		if err := store.DeleteFile(ctx, rel); err != nil {
			return summary, err
		}
		summary.Removed++
	}
	return summary, nil
}

func printIndexSummary(ctx context.Context, out io.Writer, store *storage.Store, summary indexSummary) error {
	files, decls, err := store.Counts(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%d written, %d removed, %d failed; store holds %d files, %d declarations\n",
		summary.Written, summary.Removed, summary.Failed, files, decls)
	return err
}
