package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/structscan/internal/relations"
)

// graphOptions are the flags of the graph command.
type graphOptions struct {
	trait    string
	typeName string
}

var graphOpts graphOptions

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show which types implement which traits",
	Long: `Graph scans the project and links traits to the types implementing
them, and types to their implementation blocks and receiver methods.

With no flags the whole graph is printed in Graphviz DOT format. Traits and
types that are referenced but never declared in the project (std::fmt::Display,
for example) appear as dashed nodes.

Examples:
  # Render the graph
  structscan graph | dot -Tsvg > graph.svg

  # Types implementing a trait
  structscan graph --trait Render

  # Traits, impl blocks and methods of a type
  structscan graph --type Circle`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringVar(&graphOpts.trait, "trait", "", "list the types implementing this trait")
	graphCmd.Flags().StringVar(&graphOpts.typeName, "type", "", "list the traits, impl blocks and methods of this type")
	graphCmd.MarkFlagsMutuallyExclusive("trait", "type")
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := openProject(globals)
	if err != nil {
		return err
	}
	defer p.Close()

	return executeGraph(ctx, p, graphOpts, cmd.OutOrStdout())
}

// executeGraph scans the project and prints the relation graph or one
// slice of it.
func executeGraph(ctx context.Context, p *project, opts graphOptions, out io.Writer) error {
	results, err := p.runner.RunAll(ctx)
	if err != nil {
		return err
	}
	g, err := relations.Build(results)
	if err != nil {
		return fmt.Errorf("failed to build relation graph: %w", err)
	}

	switch {
	case opts.trait != "":
		return printNodes(out, g, g.Implementors(relations.BaseName(opts.trait)))
	case opts.typeName != "":
		name := relations.BaseName(opts.typeName)
		sections := []struct {
			title string
			ids   []string
		}{
			{"traits", g.Traits(name)},
			{"impls", g.Impls(name)},
			{"methods", g.Methods(name)},
		}
		for _, s := range sections {
			if len(s.ids) == 0 {
				continue
			}
			if _, err := fmt.Fprintf(out, "%s:\n", s.title); err != nil {
				return err
			}
			if err := printNodes(out, g, s.ids); err != nil {
				return err
			}
		}
		return nil
	default:
		return g.DOT(out)
	}
}

// printNodes prints one line per node: its name and where it is declared.
func printNodes(out io.Writer, g *relations.Graph, ids []string) error {
	for _, id := range ids {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		where := "(external)"
		if !n.External() {
			where = fmt.Sprintf("%s:%d", n.File, n.Line)
		}
		if _, err := fmt.Fprintf(out, "  %s  %s\n", n.Name, where); err != nil {
			return err
		}
	}
	return nil
}
