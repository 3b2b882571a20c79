// Package runner applies the annotate pipeline to files on disk.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/docfill/internal/annotate"
	"github.com/mvp-joe/docfill/internal/discovery"
	"github.com/mvp-joe/docfill/internal/state"
)

// ErrNotRegular is returned for paths that are not regular files, such as
// symlinks and devices. They are never read or rewritten.
var ErrNotRegular = errors.New("not a regular file")

// Options configures a Runner.
type Options struct {
	Workers  int              // concurrent files; <= 0 means 1
	DryRun   bool             // compute changes without writing
	Store    *state.Store     // optional; enables skipping unchanged files
	Progress ProgressReporter // optional
	Logger   *zap.SugaredLogger
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path     string
	Blocks   int
	Modified bool
	Skipped  bool // unchanged since the last recorded run
	Err      error
}

// ProcessingStats summarises one run.
type ProcessingStats struct {
	RunID                 string
	FilesScanned          int
	FilesModified         int
	FilesSkipped          int
	FilesFailed           int
	BlocksInserted        int
	Modified              []FileResult // in path order
	ProcessingTimeSeconds float64
}

// Finding is an undocumented declaration reported by Check.
type Finding struct {
	Path      string             `json:"path"`
	Candidate annotate.Candidate `json:"candidate"`
}

// LineNumber returns the one-based line of the finding.
func (f Finding) LineNumber() int {
	return f.Candidate.Line + 1
}

// Runner processes source files with a bounded worker pool.
type Runner struct {
	opts       Options
	log        *zap.SugaredLogger
	progressMu sync.Mutex
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Progress == nil {
		opts.Progress = &NoOpProgressReporter{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{opts: opts, log: log}
}

// RunDiscovered discovers files with fd and runs over them.
func (r *Runner) RunDiscovered(ctx context.Context, fd *discovery.FileDiscovery) (*ProcessingStats, error) {
	r.opts.Progress.OnDiscoveryStart()
	files, err := fd.DiscoverFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}
	r.opts.Progress.OnDiscoveryComplete(len(files))
	return r.Run(ctx, files)
}

// Run annotates files. Per-file failures do not stop the run; they are
// returned joined together alongside the stats.
func (r *Runner) Run(ctx context.Context, files []string) (*ProcessingStats, error) {
	start := time.Now()
	stats := &ProcessingStats{RunID: uuid.NewString()}
	log := r.log.With("run_id", stats.RunID)

	log.Debugw("run started", "files", len(files), "workers", r.opts.Workers, "dry_run", r.opts.DryRun)
	r.opts.Progress.OnFileProcessingStart(len(files))

	results := make([]FileResult, len(files))
	err := r.forEach(ctx, len(files), func(i int) {
		res := r.processFile(files[i], stats.RunID)
		results[i] = res
		if res.Err != nil {
			log.Warnw("file failed", "path", res.Path, "error", res.Err)
		} else if res.Modified {
			log.Debugw("file annotated", "path", res.Path, "blocks", res.Blocks)
		}
		r.reportFile(res)
	})

	var fileErrs []error
	for _, res := range results {
		if res.Path == "" {
			continue // never scheduled (cancelled)
		}
		switch {
		case res.Err != nil:
			stats.FilesFailed++
			fileErrs = append(fileErrs, res.Err)
		case res.Skipped:
			stats.FilesSkipped++
		default:
			stats.FilesScanned++
		}
		if res.Modified {
			stats.FilesModified++
			stats.BlocksInserted += res.Blocks
			stats.Modified = append(stats.Modified, res)
		}
	}
	stats.ProcessingTimeSeconds = time.Since(start).Seconds()

	if r.opts.Store != nil && !r.opts.DryRun {
		if recErr := r.opts.Store.RecordRun(state.RunRecord{
			RunID:          stats.RunID,
			StartedAt:      start,
			FinishedAt:     time.Now(),
			FilesScanned:   stats.FilesScanned,
			FilesModified:  stats.FilesModified,
			BlocksInserted: stats.BlocksInserted,
		}); recErr != nil {
			fileErrs = append(fileErrs, recErr)
		}
	}

	r.opts.Progress.OnComplete(stats)
	log.Infow("run finished",
		"scanned", stats.FilesScanned,
		"modified", stats.FilesModified,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"blocks", stats.BlocksInserted,
	)

	if err != nil {
		return stats, err
	}
	return stats, errors.Join(fileErrs...)
}

// processFile reads, rewrites and (unless dry-run) writes back one file.
func (r *Runner) processFile(path, runID string) FileResult {
	res := FileResult{Path: path}

	info, content, err := readRegular(path)
	if err != nil {
		res.Err = err
		if errors.Is(err, os.ErrNotExist) && r.opts.Store != nil && !r.opts.DryRun {
			if ferr := r.opts.Store.Forget(path); ferr != nil {
				res.Err = errors.Join(res.Err, ferr)
			}
		}
		return res
	}

	hash := state.HashContent(content)
	if r.opts.Store != nil {
		prev, ok, err := r.opts.Store.Lookup(path)
		if err != nil {
			res.Err = err
			return res
		}
		if ok && prev == hash {
			res.Skipped = true
			return res
		}
	}

	rewritten := annotate.Rewrite(annotate.SplitLines(string(content)))
	res.Blocks = rewritten.BlocksInserted()
	res.Modified = rewritten.Modified

	if r.opts.DryRun {
		return res
	}

	if rewritten.Modified {
		out := []byte(annotate.JoinLines(rewritten.Lines))
		if err := writeFileAtomic(path, out, info.Mode().Perm()); err != nil {
			res.Err = fmt.Errorf("failed to write %s: %w", path, err)
			return res
		}
		hash = state.HashContent(out)
	}

	if r.opts.Store != nil {
		if err := r.opts.Store.Record(state.FileRecord{
			FilePath:       path,
			FileHash:       hash,
			BlocksInserted: res.Blocks,
			ProcessedAt:    time.Now(),
			RunID:          runID,
		}); err != nil {
			res.Err = err
		}
	}
	return res
}

// readRegular reads path without following a final symlink. Rewriting a
// symlink would replace it with a regular file.
func readRegular(path string) (os.FileInfo, []byte, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return info, content, nil
}

// Check reports undocumented declarations without modifying any file.
// Findings are ordered by path, then line.
func (r *Runner) Check(ctx context.Context, files []string) ([]Finding, error) {
	perFile := make([][]Finding, len(files))
	errs := make([]error, len(files))

	err := r.forEach(ctx, len(files), func(i int) {
		_, content, err := readRegular(files[i])
		if err != nil {
			errs[i] = err
			return
		}
		for _, c := range annotate.Scan(annotate.SplitLines(string(content))) {
			perFile[i] = append(perFile[i], Finding{Path: files[i], Candidate: c})
		}
	})

	var findings []Finding
	for _, f := range perFile {
		findings = append(findings, f...)
	}
	if err != nil {
		return findings, err
	}
	return findings, errors.Join(errs...)
}

// forEach runs fn for indexes [0, n) on at most Workers goroutines and stops
// scheduling new work once ctx is cancelled.
func (r *Runner) forEach(ctx context.Context, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	for i := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) reportFile(res FileResult) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.opts.Progress.OnFileProcessed(res)
}
