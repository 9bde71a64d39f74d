package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	root     string
	logLevel string
	logFile  string
	color    string
	quiet    bool
}

var globals globalOptions

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "structscan",
	Short: "Structural declaration scanner for Rust, Go and TypeScript",
	Long: `structscan finds the structural declarations in source files (functions,
structs, enums, traits, impl blocks and type aliases) without building a
syntax tree. Grammars are plain TOML configuration, so new languages need no
code.

Project settings live in .structscan/config.yml; see 'structscan scan --help'
to get started.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globals.root, "root", "C", "", "project root (default is the current directory)")
	flags.StringVar(&globals.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flags.StringVar(&globals.logFile, "log-file", "", "append JSON logs to this file (overrides config)")
	flags.StringVar(&globals.color, "color", "", "colorize output: auto, always, never (overrides config)")
	flags.BoolVarP(&globals.quiet, "quiet", "q", false, "suppress progress and summary output")
}
