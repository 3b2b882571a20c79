package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/docfill/internal/config"
	"github.com/mvp-joe/docfill/internal/discovery"
	"github.com/mvp-joe/docfill/internal/logging"
	"github.com/mvp-joe/docfill/internal/runner"
)

// ErrUndocumented is returned by check when undocumented members were found.
var ErrUndocumented = errors.New("undocumented public members found")

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "List members that fix would document",
	Long: `Check reports every public constructor, async Task method and property
without a preceding /// block as path:line: kind Name, without modifying files.

It exits with status 1 when anything is found, so it can gate CI.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject(args)
	if err != nil {
		return err
	}
	return executeCheck(cmd.Context(), root, cfg, cmd.OutOrStdout())
}

func executeCheck(ctx context.Context, root string, cfg *config.Config, out io.Writer) error {
	fd, err := discovery.NewFileDiscovery(root, cfg.Paths.Include, cfg.Paths.Ignore, cfg.Paths.ExcludeDirs)
	if err != nil {
		return fmt.Errorf("failed to create file discovery: %w", err)
	}
	files, err := fd.DiscoverFiles()
	if err != nil {
		return fmt.Errorf("failed to discover files: %w", err)
	}

	r := runner.New(runner.Options{Workers: cfg.EffectiveWorkers(), Logger: logging.Logger()})
	findings, err := r.Check(ctx, files)

	affected := make(map[string]struct{})
	for _, f := range findings {
		affected[f.Path] = struct{}{}
		fmt.Fprintf(out, "%s:%d: %s %s\n", relPath(root, f.Path), f.LineNumber(), f.Candidate.Kind, f.Candidate.Name)
	}
	if err != nil {
		return err
	}

	if len(findings) > 0 {
		fmt.Fprintf(out, "\n%d undocumented members in %d of %d files\n", len(findings), len(affected), len(files))
		return fmt.Errorf("%w: %d", ErrUndocumented, len(findings))
	}

	fmt.Fprintf(out, "All public members documented (%d files)\n", len(files))
	return nil
}
