package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/search"
)

// searchOptions are the flags of the search command.
type searchOptions struct {
	kind  string
	path  string
	limit int
	json  bool
}

var searchOpts searchOptions

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over declaration names, signatures and docs",
	Long: `Search scans the project and runs a full-text query over every
declaration. Queries use bleve query-string syntax; bare words match names,
signatures and doc comments.

Examples:
  # Anything mentioning a canvas
  structscan search canvas

  # Traits whose doc mentions rendering
  structscan search "doc:render" --kind trait

  # Constructors under src/
  structscan search "name:new*" --path "src/*"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchOpts.kind, "kind", "k", "", "only declarations of this kind")
	searchCmd.Flags().StringVar(&searchOpts.path, "path", "", "wildcard pattern on the file path, e.g. 'src/*'")
	searchCmd.Flags().IntVarP(&searchOpts.limit, "limit", "n", 15, "maximum number of results (1-100)")
	searchCmd.Flags().BoolVar(&searchOpts.json, "json", false, "print hits as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := openProject(globals)
	if err != nil {
		return err
	}
	defer p.Close()

	return executeSearch(ctx, p, searchOpts, args[0], cmd.OutOrStdout())
}

// executeSearch scans the project, indexes it and prints the best hits.
func executeSearch(ctx context.Context, p *project, opts searchOptions, queryStr string, out io.Writer) error {
	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" {
		return fmt.Errorf("query must not be empty")
	}
	kind := grammar.Kind(opts.kind)
	if kind != "" && !kind.Valid() {
		return fmt.Errorf("unknown kind %q (valid: %s)", opts.kind, kindList())
	}

	results, err := p.runner.RunAll(ctx)
	if err != nil {
		return err
	}
	idx, err := search.Build(ctx, results)
	if err != nil {
		return err
	}
	defer idx.Close()

	hits, err := idx.Search(ctx, queryStr, &search.Options{Kind: kind, FilePath: opts.path, Limit: opts.limit})
	if err != nil {
		return err
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	mark := color.New(color.Bold, color.FgYellow)
	if printerOptions(out, p.cfg.Output.Color, false).Color {
		mark.EnableColor()
	} else {
		mark.DisableColor()
	}
	for _, h := range hits {
		if _, err := fmt.Fprintf(out, "%s:%d  %s  %s\n", h.FilePath, h.Line, h.Kind, h.QualifiedName); err != nil {
			return err
		}
		if h.Signature != "" {
			fmt.Fprintf(out, "    %s\n", h.Signature)
		}
		for _, fragment := range h.Highlights {
			fmt.Fprintf(out, "    %s\n", emphasize(fragment, mark))
		}
	}
	if len(hits) == 0 {
		p.logger.Info("no declarations matched", "query", queryStr)
	}
	return nil
}

// emphasize turns bleve's html highlight fragment into terminal text with
// the marked terms printed in c.
func emphasize(fragment string, c *color.Color) string {
	var b strings.Builder
	for {
		start := strings.Index(fragment, "<mark>")
		if start < 0 {
			break
		}
		end := strings.Index(fragment[start:], "</mark>")
		if end < 0 {
			break
		}
		end += start
		b.WriteString(html.UnescapeString(fragment[:start]))
		b.WriteString(c.Sprint(html.UnescapeString(fragment[start+len("<mark>") : end])))
		fragment = fragment[end+len("</mark>"):]
	}
	b.WriteString(html.UnescapeString(fragment))
	return strings.TrimSpace(b.String())
}
