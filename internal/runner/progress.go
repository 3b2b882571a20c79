package runner

// ProgressReporter provides callbacks for reporting annotation progress.
// Implementations can display progress bars, log messages, or remain silent.
// The runner never calls a reporter from more than one goroutine at a time.
type ProgressReporter interface {
	// OnDiscoveryStart is called when file discovery begins.
	OnDiscoveryStart()

	// OnDiscoveryComplete is called when file discovery finishes.
	OnDiscoveryComplete(files int)

	// OnFileProcessingStart is called before processing files.
	OnFileProcessingStart(totalFiles int)

	// OnFileProcessed is called after each file is processed.
	OnFileProcessed(result FileResult)

	// OnComplete is called when a run completes, even if some files failed.
	OnComplete(stats *ProcessingStats)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnDiscoveryStart()                    {}
func (n *NoOpProgressReporter) OnDiscoveryComplete(files int)        {}
func (n *NoOpProgressReporter) OnFileProcessingStart(totalFiles int) {}
func (n *NoOpProgressReporter) OnFileProcessed(result FileResult)    {}
func (n *NoOpProgressReporter) OnComplete(stats *ProcessingStats)    {}
