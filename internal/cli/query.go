package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/structscan/internal/grammar"
	"github.com/mvp-joe/structscan/internal/storage"
)

// queryOptions are the flags of the query command.
type queryOptions struct {
	kind   string
	prefix bool
	file   string
	limit  uint64
	json   bool
}

var queryOpts queryOptions

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [name]",
	Short: "Look up stored declarations by name, kind or file",
	Long: `Query answers from the store written by 'structscan index'.

A name matches declarations with that exact name and implementation blocks
whose target type has that name. With --prefix the name is an ASCII
case-insensitive prefix instead.

Examples:
  # Everything named Circle, including its impl blocks
  structscan query Circle

  # All traits
  structscan query --kind trait

  # Functions starting with "new" in one file
  structscan query new --prefix --kind function --file src/shapes.rs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryOpts.kind, "kind", "k", "", "only declarations of this kind")
	queryCmd.Flags().BoolVar(&queryOpts.prefix, "prefix", false, "treat the name as a case-insensitive prefix")
	queryCmd.Flags().StringVar(&queryOpts.file, "file", "", "only declarations in this file (path relative to the root)")
	queryCmd.Flags().Uint64VarP(&queryOpts.limit, "limit", "n", 0, "maximum number of results (0 for all)")
	queryCmd.Flags().BoolVar(&queryOpts.json, "json", false, "print results as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	p, err := openProject(globals)
	if err != nil {
		return err
	}
	defer p.Close()

	return executeQuery(cmd.Context(), p, queryOpts, args, cmd.OutOrStdout())
}

// queryResult is one declaration of the JSON output.
type queryResult struct {
	File          string       `json:"file"`
	Line          int          `json:"line"`
	EndLine       int          `json:"end_line"`
	Kind          grammar.Kind `json:"kind"`
	Name          string       `json:"name"`
	QualifiedName string       `json:"qualified_name"`
	Signature     string       `json:"signature"`
	Generics      []string     `json:"generics,omitempty"`
	Doc           string       `json:"doc,omitempty"`
	Depth         int          `json:"depth"`
	Salvaged      bool         `json:"salvaged,omitempty"`
}

// executeQuery prints the stored declarations matching opts and args.
func executeQuery(ctx context.Context, p *project, opts queryOptions, args []string, out io.Writer) error {
	q := storage.Query{Kind: grammar.Kind(opts.kind), FilePath: opts.file, Limit: opts.limit}
	if q.Kind != "" && !q.Kind.Valid() {
		return fmt.Errorf("unknown kind %q (valid: %s)", opts.kind, kindList())
	}
	if len(args) == 1 {
		if opts.prefix {
			q.Prefix = args[0]
		} else {
			q.Name = args[0]
		}
	}
	if q.Name == "" && q.Prefix == "" && q.Kind == "" && q.FilePath == "" {
		return fmt.Errorf("give a name, --kind or --file")
	}

	dbPath := p.cfg.DBPath(p.root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no store at %s; run 'structscan index' first", p.relPath(dbPath))
	}
	store, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	rows, err := store.Find(ctx, q)
	if err != nil {
		return err
	}

	if opts.json {
		results := make([]queryResult, 0, len(rows))
		for _, r := range rows {
			results = append(results, queryResult{
				File:          r.FilePath,
				Line:          r.Line,
				EndLine:       r.EndLine,
				Kind:          r.Kind,
				Name:          r.Name,
				QualifiedName: r.QualifiedName,
				Signature:     r.Signature,
				Generics:      r.Generics,
				Doc:           r.Doc,
				Depth:         r.Depth,
				Salvaged:      r.Salvaged,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range rows {
		line := fmt.Sprintf("%s:%d  %-17s  %s  %s", r.FilePath, r.Line, r.Kind, r.QualifiedName, r.Signature)
		if _, err := fmt.Fprintln(out, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		p.logger.Info("no declarations matched")
	}
	return nil
}

func kindList() string {
	names := make([]string, len(grammar.Kinds))
	for i, k := range grammar.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
