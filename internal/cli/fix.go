package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/docfill/internal/config"
	"github.com/mvp-joe/docfill/internal/discovery"
	"github.com/mvp-joe/docfill/internal/logging"
	"github.com/mvp-joe/docfill/internal/runner"
	"github.com/mvp-joe/docfill/internal/state"
	"github.com/mvp-joe/docfill/internal/watcher"
)

var (
	fixDryRun      bool
	fixQuiet       bool
	fixWatch       bool
	fixIncremental bool
	fixWorkers     int
)

// fixCmd represents the fix command
var fixCmd = &cobra.Command{
	Use:   "fix [dir]",
	Short: "Insert missing documentation blocks",
	Long: `Fix walks dir (default: current directory), finds public constructors,
async Task methods and properties without a preceding /// block, and inserts a
placeholder <summary> block above each one.

Files under bin/ and obj/ are skipped. Unmodified files are never rewritten.

Examples:
  # Annotate the current project
  docfill fix

  # Show what would change without writing
  docfill fix --dry-run src/

  # Keep annotating as files change, skipping files already handled
  docfill fix --watch --incremental`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Report changes without writing files")
	fixCmd.Flags().BoolVarP(&fixQuiet, "quiet", "q", false, "Suppress progress output")
	fixCmd.Flags().BoolVarP(&fixWatch, "watch", "w", false, "Keep running and annotate files as they change")
	fixCmd.Flags().BoolVar(&fixIncremental, "incremental", false, "Skip files unchanged since the last run (uses .docfill/state.db)")
	fixCmd.Flags().IntVar(&fixWorkers, "workers", 0, "Concurrent files (default: number of CPUs)")
}

// fixOptions holds the command-line switches that are not configuration.
type fixOptions struct {
	Quiet bool
	Watch bool
}

func runFix(cmd *cobra.Command, args []string) error {
	root, cfg, err := loadProject(args)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("workers") {
		cfg.Run.Workers = fixWorkers
	}
	if fixDryRun {
		cfg.Run.DryRun = true
	}
	if fixIncremental {
		cfg.State.Enabled = true
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return executeFix(ctx, root, cfg, fixOptions{Quiet: fixQuiet, Watch: fixWatch}, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// executeFix runs one annotation pass over root and, in watch mode, keeps
// re-running on changed files until ctx is cancelled.
func executeFix(ctx context.Context, root string, cfg *config.Config, opts fixOptions, out, errOut io.Writer) error {
	log := logging.Logger()

	fd, err := discovery.NewFileDiscovery(root, cfg.Paths.Include, cfg.Paths.Ignore, cfg.Paths.ExcludeDirs)
	if err != nil {
		return fmt.Errorf("failed to create file discovery: %w", err)
	}

	var store *state.Store
	if cfg.State.Enabled && !cfg.Run.DryRun {
		store, err = state.Open(cfg.StatePath(root))
		if err != nil {
			return err
		}
		defer store.Close()
	}

	var progress runner.ProgressReporter = &runner.NoOpProgressReporter{}
	if !opts.Quiet {
		progress = NewCLIProgressReporter(errOut)
	}

	runOpts := runner.Options{
		Workers:  cfg.EffectiveWorkers(),
		DryRun:   cfg.Run.DryRun,
		Store:    store,
		Progress: progress,
		Logger:   log,
	}

	// Watch before the first pass so edits made during it are not missed
	var w watcher.FileWatcher
	if opts.Watch {
		w, err = watcher.NewFileWatcher(root, fd, watcher.Options{
			Debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
			Logger:   log,
		})
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
		w.Pause()
	}

	stats, runErr := runner.New(runOpts).RunDiscovered(ctx, fd)
	if stats != nil {
		printFixed(out, root, stats, cfg.Run.DryRun)
		fmt.Fprintf(out, "\nTotal files modified: %d\n", stats.FilesModified)
	}
	if !opts.Watch {
		return runErr
	}
	if runErr != nil {
		log.Warnw("initial pass finished with errors", "error", runErr)
	}

	// Watch-mode batches report only the files they fix
	runOpts.Progress = &runner.NoOpProgressReporter{}
	watchRunner := runner.New(runOpts)

	var outMu sync.Mutex
	err = w.Start(ctx, func(files []string) {
		stats, err := watchRunner.Run(ctx, files)
		if err != nil {
			log.Warnw("watch pass finished with errors", "error", err)
		}
		if stats == nil || stats.FilesModified == 0 {
			return
		}
		outMu.Lock()
		defer outMu.Unlock()
		printFixed(out, root, stats, cfg.Run.DryRun)
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	outMu.Lock()
	fmt.Fprintf(out, "Watching %s for changes (Ctrl+C to stop)\n", root)
	outMu.Unlock()
	w.Resume()

	<-ctx.Done()
	return nil
}

// printFixed lists modified files, one per line.
func printFixed(out io.Writer, root string, stats *runner.ProcessingStats, dryRun bool) {
	verb := "Fixed"
	if dryRun {
		verb = "Would fix"
	}
	for _, res := range stats.Modified {
		fmt.Fprintf(out, "%s: %s\n", verb, relPath(root, res.Path))
	}
}
