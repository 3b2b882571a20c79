package runner

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/docfill/internal/annotate"
	"github.com/mvp-joe/docfill/internal/discovery"
	"github.com/mvp-joe/docfill/internal/state"
)

// Test Plan for Runner:
// - Run annotates undocumented files and leaves documented ones byte-identical
// - Run preserves file permissions on rewritten files
// - DryRun reports modifications without touching disk
// - a missing file fails alone; other files still get processed and the error is joined
// - with a Store, a second run skips files recorded by the first
// - editing a file after a run makes it eligible again
// - a file deleted since the last run is forgotten by the store
// - symlinks are refused and left in place; their targets are not touched
// - RecordRun is written once per non-dry run
// - progress callbacks fire in the expected counts
// - Check reports findings in path then line order without writing
// - RunDiscovered honours exclude dirs
// - a cancelled context stops the run

const undocumented = `namespace Acme
{
    public class Widget
    {
        public Widget()
        {
        }

        public string Name { get; set; }

        public async Task<string> GetNameAsync()
        {
            return Name;
        }
    }
}
`

const documented = `namespace Acme
{
    /// <summary>
    /// A gadget.
    /// </summary>
    public class Gadget
    {
        /// <summary>
        /// Gets the id.
        /// </summary>
        public int Id { get; }
    }
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newMemoryStore(t *testing.T) *state.Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	s, err := state.NewStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type recordingReporter struct {
	mu             sync.Mutex
	discoveryStart int
	discovered     int
	total          int
	processed      []FileResult
	completed      *ProcessingStats
}

func (r *recordingReporter) OnDiscoveryStart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discoveryStart++
}

func (r *recordingReporter) OnDiscoveryComplete(files int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovered = files
}

func (r *recordingReporter) OnFileProcessingStart(totalFiles int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total = totalFiles
}

func (r *recordingReporter) OnFileProcessed(result FileResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed = append(r.processed, result)
}

func (r *recordingReporter) OnComplete(stats *ProcessingStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = stats
}

func TestRun_AnnotatesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	widget := writeFile(t, dir, "Widget.cs", undocumented)
	gadget := writeFile(t, dir, "Gadget.cs", documented)

	r := New(Options{Workers: 2})
	stats, err := r.Run(context.Background(), []string{gadget, widget})
	require.NoError(t, err)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 2, stats.FilesScanned)
	assert.Equal(t, 1, stats.FilesModified)
	assert.Equal(t, 3, stats.BlocksInserted)
	require.Len(t, stats.Modified, 1)
	assert.Equal(t, widget, stats.Modified[0].Path)

	assert.Equal(t, documented, readFile(t, gadget))

	got := readFile(t, widget)
	assert.Contains(t, got, "        /// Initializes a new instance of the <see cref=\"Widget\"/> class.\n        public Widget()")
	assert.Contains(t, got, "        /// Gets or sets the Name.\n")
	assert.Contains(t, got, "        /// Gets the requested data.\n")

	// Rewritten content is a fixed point.
	again, _ := annotate.AnnotateText(got)
	assert.Equal(t, got, again)
}

func TestRun_PreservesPermissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "Widget.cs", undocumented)
	require.NoError(t, os.Chmod(path, 0600))

	_, err := New(Options{}).Run(context.Background(), []string{path})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "Widget.cs", undocumented)
	store := newMemoryStore(t)

	stats, err := New(Options{DryRun: true, Store: store}).Run(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesModified)
	assert.Equal(t, 3, stats.BlocksInserted)
	assert.Equal(t, undocumented, readFile(t, path))

	_, ok, err := store.Lookup(path)
	require.NoError(t, err)
	assert.False(t, ok, "dry run must not record state")

	last, err := store.LastRun()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRun_PerFileErrorsDoNotAbort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := filepath.Join(dir, "Missing.cs")
	widget := writeFile(t, dir, "Widget.cs", undocumented)

	stats, err := New(Options{Workers: 1}).Run(context.Background(), []string{missing, widget})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "Missing.cs")

	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 1, stats.FilesModified)
	assert.NotEqual(t, undocumented, readFile(t, widget))
}

func TestRun_IncrementalSkipsUnchanged(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	widget := writeFile(t, dir, "Widget.cs", undocumented)
	gadget := writeFile(t, dir, "Gadget.cs", documented)
	files := []string{gadget, widget}
	store := newMemoryStore(t)

	first, err := New(Options{Store: store}).Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 2, first.FilesScanned)
	assert.Equal(t, 1, first.FilesModified)

	second, err := New(Options{Store: store}).Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesScanned)
	assert.Equal(t, 2, second.FilesSkipped)
	assert.Equal(t, 0, second.FilesModified)

	// A new undocumented member makes the file eligible again.
	annotated := readFile(t, widget)
	edited := strings.Replace(annotated, "    }\n}\n", "\n        public int Count { get; }\n    }\n}\n", 1)
	require.NoError(t, os.WriteFile(widget, []byte(edited), 0644))

	third, err := New(Options{Store: store}).Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, third.FilesScanned)
	assert.Equal(t, 1, third.FilesSkipped)
	assert.Equal(t, 1, third.FilesModified)
	assert.Equal(t, 1, third.BlocksInserted)
	assert.Contains(t, readFile(t, widget), "/// Gets the Count.")

	last, err := store.LastRun()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 1, last.BlocksInserted)
}

func TestRun_DeletedFileIsForgotten(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "Widget.cs", undocumented)
	store := newMemoryStore(t)

	_, err := New(Options{Store: store}).Run(context.Background(), []string{path})
	require.NoError(t, err)
	_, ok, err := store.Lookup(path)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, os.Remove(path))
	stats, err := New(Options{Store: store}).Run(context.Background(), []string{path})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 1, stats.FilesFailed)

	_, ok, err = store.Lookup(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_RefusesSymlinks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	outside := writeFile(t, t.TempDir(), "Secret.cs", undocumented)
	link := filepath.Join(dir, "Link.cs")
	require.NoError(t, os.Symlink(outside, link))
	widget := writeFile(t, dir, "Widget.cs", undocumented)

	stats, err := New(Options{}).Run(context.Background(), []string{link, widget})
	require.ErrorIs(t, err, ErrNotRegular)
	assert.Equal(t, 1, stats.FilesFailed)
	assert.Equal(t, 1, stats.FilesModified)

	info, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink, "link must survive")
	assert.Equal(t, undocumented, readFile(t, outside))

	_, err = New(Options{}).Check(context.Background(), []string{link})
	assert.ErrorIs(t, err, ErrNotRegular)
}

func TestRun_ProgressCallbacks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Widget.cs", undocumented)
	writeFile(t, dir, "Gadget.cs", documented)
	writeFile(t, dir, "bin/Debug/Generated.cs", undocumented)

	fd, err := discovery.NewFileDiscovery(dir, []string{"**/*.cs"}, nil, []string{"bin", "obj"})
	require.NoError(t, err)

	rep := &recordingReporter{}
	stats, err := New(Options{Workers: 4, Progress: rep}).RunDiscovered(context.Background(), fd)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.discoveryStart)
	assert.Equal(t, 2, rep.discovered)
	assert.Equal(t, 2, rep.total)
	assert.Len(t, rep.processed, 2)
	assert.Same(t, stats, rep.completed)

	assert.Equal(t, undocumented, readFile(t, filepath.Join(dir, "bin/Debug/Generated.cs")))
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, dir, "Widget.cs", undocumented)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := New(Options{}).Run(ctx, []string{path})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.FilesModified)
	assert.Equal(t, undocumented, readFile(t, path))
}

func TestCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	widget := writeFile(t, dir, "Widget.cs", undocumented)
	gadget := writeFile(t, dir, "Gadget.cs", documented)

	findings, err := New(Options{Workers: 2}).Check(context.Background(), []string{gadget, widget})
	require.NoError(t, err)

	require.Len(t, findings, 3)
	for _, f := range findings {
		assert.Equal(t, widget, f.Path)
	}
	assert.Equal(t, annotate.KindConstructor, findings[0].Candidate.Kind)
	assert.Equal(t, 5, findings[0].LineNumber())
	assert.Equal(t, annotate.KindProperty, findings[1].Candidate.Kind)
	assert.Equal(t, "Name", findings[1].Candidate.Name)
	assert.Equal(t, annotate.KindMethod, findings[2].Candidate.Kind)
	assert.Equal(t, "GetNameAsync", findings[2].Candidate.Name)

	assert.Equal(t, undocumented, readFile(t, widget))
}

func TestCheck_MissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	widget := writeFile(t, dir, "Widget.cs", undocumented)

	findings, err := New(Options{}).Check(context.Background(), []string{filepath.Join(dir, "Nope.cs"), widget})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Len(t, findings, 3)
}
