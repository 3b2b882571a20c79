package cli

import (
	"github.com/spf13/cobra"

	"github.com/mvp-joe/docfill/internal/logging"
	"github.com/mvp-joe/docfill/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [dir]",
	Short: "Start the MCP server",
	Long: `Start a Model Context Protocol server on stdio exposing two tools:

  docfill_annotate  annotate source text, or a project file (optionally writing it)
  docfill_check     list undocumented members in source text or a project file

Project files are resolved relative to dir (default: current directory) and
must match the configured include patterns.

Example:
  docfill mcp`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject(args)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(mcp.ServerConfig{
		ProjectRoot: root,
		Config:      cfg,
		Version:     Version,
		Logger:      logging.Logger(),
	})
	if err != nil {
		return err
	}
	return server.Serve(cmd.Context())
}
