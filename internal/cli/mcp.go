package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/structscan/internal/mcp"
)

var mcpWatch bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for declaration lookup",
	Long: `Start the Model Context Protocol (MCP) server that lets coding assistants
ask for the structure of the project.

The MCP server:
- Scans the project once at startup and keeps the results in memory
- Provides scan_declarations, search_declarations and find_implementors
- Communicates via stdio (standard MCP transport); logs go to stderr

Example:
  structscan mcp --watch`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVarP(&mcpWatch, "watch", "w", false, "rescan files as they change while serving")
}

func runMCP(cmd *cobra.Command, args []string) error {
	// No progress reporter: stdout carries the protocol.
	p, err := openProject(globals)
	if err != nil {
		return err
	}
	defer p.Close()

	srv, err := mcp.NewServer(p.runner, mcp.Options{
		Version: Version,
		Watch:   mcpWatch,
		Logger:  p.logger.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	return srv.Serve(context.Background())
}
