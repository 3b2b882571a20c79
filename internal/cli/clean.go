package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/docfill/internal/config"
)

var cleanQuietFlag bool

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [dir]",
	Short: "Remove the incremental state database",
	Long: `Clean removes the state database used by 'docfill fix --incremental',
so the next incremental run processes every file again.

The configuration file (.docfill/config.yml) is preserved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVarP(&cleanQuietFlag, "quiet", "q", false, "Suppress output messages")
}

func runClean(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if cleanQuietFlag {
		out = io.Discard
	}
	return executeClean(root, cfg, out)
}

func executeClean(root string, cfg *config.Config, out io.Writer) error {
	path := cfg.StatePath(root)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(out, "No state found for this project")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to access state database: %w", err)
	}

	// SQLite sidecar files are removed along with the database
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	fmt.Fprintf(out, "✓ Removed %s (~%.1f MB)\n", relPath(root, path), sizeMB)
	fmt.Fprintln(out, "Next 'docfill fix --incremental' will process every file")
	return nil
}
