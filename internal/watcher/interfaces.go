package watcher

import "context"

// FileWatcher monitors source files for changes with debouncing and pause/resume support.
type FileWatcher interface {
	// Start begins watching the root tree, calling callback with debounced file changes.
	Start(ctx context.Context, callback func(files []string)) error

	// Stop stops the file watcher and cleans up resources.
	Stop() error

	// Pause stops firing callbacks but continues accumulating events.
	Pause()

	// Resume resumes firing callbacks. If events accumulated during pause, fires immediately.
	Resume()
}

// Matcher decides which paths the watcher cares about.
// *discovery.FileDiscovery satisfies it.
type Matcher interface {
	// Matches reports whether an absolute file path is a source file.
	Matches(path string) bool

	// SkipsDir reports whether a directory with this base name is not watched.
	SkipsDir(name string) bool
}
