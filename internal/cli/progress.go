package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/docfill/internal/runner"
)

// CLIProgressReporter implements progress reporting with a progress bar.
type CLIProgressReporter struct {
	out     io.Writer
	fileBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a reporter that draws on out (normally stderr).
func NewCLIProgressReporter(out io.Writer) *CLIProgressReporter {
	return &CLIProgressReporter{out: out}
}

func (c *CLIProgressReporter) OnDiscoveryStart() {
	fmt.Fprintln(c.out, "Discovering files...")
}

func (c *CLIProgressReporter) OnDiscoveryComplete(files int) {
	fmt.Fprintf(c.out, "Found %s source files\n", formatNumber(files))
}

func (c *CLIProgressReporter) OnFileProcessingStart(totalFiles int) {
	if totalFiles == 0 {
		return
	}
	c.fileBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Annotating files"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnFileProcessed(result runner.FileResult) {
	if c.fileBar != nil {
		c.fileBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnComplete(stats *runner.ProcessingStats) {
	if c.fileBar != nil {
		c.fileBar.Finish()
		c.fileBar = nil
	}
	fmt.Fprintf(c.out, "✓ Annotation complete: %s blocks in %s files (%.1fs)\n",
		formatNumber(stats.BlocksInserted),
		formatNumber(stats.FilesModified),
		stats.ProcessingTimeSeconds)
	if stats.FilesSkipped > 0 {
		fmt.Fprintf(c.out, "  Unchanged since last run: %s\n", formatNumber(stats.FilesSkipped))
	}
	if stats.FilesFailed > 0 {
		fmt.Fprintf(c.out, "  Failed: %s\n", formatNumber(stats.FilesFailed))
	}
}

// formatNumber formats n with thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
