package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/structscan/internal/grammar"
)

// grammarsOptions are the flags of the grammars command.
type grammarsOptions struct {
	show  string
	check []string
}

var grammarsOpts grammarsOptions

// grammarsCmd represents the grammars command
var grammarsCmd = &cobra.Command{
	Use:   "grammars",
	Short: "List, print and check scanner grammars",
	Long: `Grammars lists every grammar available to the project: the built-in
rust, go, typescript and python grammars, overridden by *.toml files in the
global grammar directory and then in the project's .structscan/grammars/.

A grammar printed with --show is a complete TOML document; copy it into the
grammar directory and edit it to support a new language or dialect.

Examples:
  # List grammars and the extensions they claim
  structscan grammars

  # Start a new grammar from the Rust one
  structscan grammars --show rust > .structscan/grammars/mylang.toml

  # Validate grammar files before using them
  structscan grammars --check .structscan/grammars/mylang.toml`,
	Args: cobra.NoArgs,
	RunE: runGrammars,
}

func init() {
	rootCmd.AddCommand(grammarsCmd)
	grammarsCmd.Flags().StringVar(&grammarsOpts.show, "show", "", "print the named grammar as TOML")
	grammarsCmd.Flags().StringSliceVar(&grammarsOpts.check, "check", nil, "validate grammar files and report problems")
}

func runGrammars(cmd *cobra.Command, args []string) error {
	p, err := openProject(globals)
	if err != nil {
		return err
	}
	defer p.Close()

	return executeGrammars(p, grammarsOpts, cmd.OutOrStdout())
}

// executeGrammars lists, prints or validates grammars.
func executeGrammars(p *project, opts grammarsOptions, out io.Writer) error {
	registry := p.runner.Registry()

	if len(opts.check) > 0 {
		var failed int
		for _, path := range opts.check {
			g, err := grammar.LoadFile(p.resolve(path))
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(out, "%s: ok (%s)\n", path, g.Name)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d grammar files are invalid", failed, len(opts.check))
		}
		return nil
	}

	if opts.show != "" {
		g, err := registry.Lookup(opts.show)
		if err != nil {
			return err
		}
		data, err := grammar.Encode(g)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	for _, g := range registry.All() {
		kinds := make(map[grammar.Kind]bool)
		for _, k := range g.Introducers {
			kinds[k] = true
		}
		for _, k := range g.Refiners {
			kinds[k] = true
		}
		var names []string
		for _, k := range grammar.Kinds {
			if kinds[k] {
				names = append(names, string(k))
			}
		}
		if _, err := fmt.Fprintf(out, "%-12s %-20s %s\n", g.Name, strings.Join(g.Extensions, " "), strings.Join(names, ", ")); err != nil {
			return err
		}
	}
	return nil
}
