package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// alwaysSkipped directories are never descended into.
var alwaysSkipped = map[string]bool{
	".git":     true,
	".docfill": true,
}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery selects the source files under a root directory.
type FileDiscovery struct {
	rootDir        string
	includes       []compiledPattern
	ignorePatterns []compiledPattern
	excludeDirs    map[string]bool
}

// NewFileDiscovery creates a new file discovery instance.
// excludeDirs are directory names (e.g. "bin", "obj") skipped at any depth.
func NewFileDiscovery(rootDir string, includePatterns, ignorePatterns, excludeDirs []string) (*FileDiscovery, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	fd := &FileDiscovery{
		rootDir:     abs,
		excludeDirs: make(map[string]bool, len(excludeDirs)),
	}

	if fd.includes, err = compileAll(includePatterns); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compileAll(ignorePatterns); err != nil {
		return nil, err
	}
	for _, dir := range excludeDirs {
		fd.excludeDirs[dir] = true
	}

	return fd, nil
}

func compileAll(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// RootDir returns the absolute root directory.
func (fd *FileDiscovery) RootDir() string {
	return fd.rootDir
}

// DiscoverFiles walks the directory tree and returns matching files as
// absolute paths in lexical order.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	files := []string{}

	err := filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != fd.rootDir && fd.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		if fd.matchRel(filepath.ToSlash(relPath)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether path (absolute, or relative to the root) would be
// selected by DiscoverFiles by name. The file itself is not inspected, so
// callers that read it must still reject symlinks.
func (fd *FileDiscovery) Matches(path string) bool {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return false
		}
		path = rel
	}
	relPath := filepath.ToSlash(filepath.Clean(path))
	if relPath == "." || strings.HasPrefix(relPath, "../") || relPath == ".." {
		return false
	}

	// Directory segments must not be excluded
	segments := strings.Split(relPath, "/")
	for _, seg := range segments[:len(segments)-1] {
		if fd.skipDir(seg) {
			return false
		}
	}

	return fd.matchRel(relPath)
}

// SkipsDir reports whether a directory with this base name is pruned.
func (fd *FileDiscovery) SkipsDir(name string) bool {
	return fd.skipDir(name)
}

func (fd *FileDiscovery) skipDir(name string) bool {
	return alwaysSkipped[name] || fd.excludeDirs[name]
}

func (fd *FileDiscovery) matchRel(relPath string) bool {
	if fd.shouldIgnore(relPath) {
		return false
	}
	return matchesAnyPattern(relPath, fd.includes)
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// A directory pattern such as "generated/**" also covers files under it
	dir := relPath
	for {
		i := strings.LastIndexByte(dir, '/')
		if i < 0 {
			return false
		}
		dir = dir[:i]
		if matchesAnyPattern(dir+"/**", fd.ignorePatterns) {
			return true
		}
	}
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Root-level files also match "**/"-prefixed patterns, so "**/*.cs"
	// selects both "Program.cs" and "src/Widget.cs".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if simplified, ok := strings.CutPrefix(cp.pattern, "**/"); ok {
				if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}

	return false
}
