package config

import (
	"path/filepath"
	"runtime"
)

// Dir is the per-project directory holding config.yml and the state database.
const Dir = ".docfill"

// Config represents the complete docfill configuration.
// It can be loaded from .docfill/config.yml with environment variable overrides.
type Config struct {
	Paths PathsConfig `yaml:"paths" mapstructure:"paths"`
	Run   RunConfig   `yaml:"run" mapstructure:"run"`
	State StateConfig `yaml:"state" mapstructure:"state"`
	Watch WatchConfig `yaml:"watch" mapstructure:"watch"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// PathsConfig defines which source files are annotated.
type PathsConfig struct {
	Include     []string `yaml:"include" mapstructure:"include"`           // glob patterns for source files
	Ignore      []string `yaml:"ignore" mapstructure:"ignore"`             // glob patterns to skip
	ExcludeDirs []string `yaml:"exclude_dirs" mapstructure:"exclude_dirs"` // build-output directory names skipped at any depth
}

// RunConfig controls how files are processed.
type RunConfig struct {
	Workers int  `yaml:"workers" mapstructure:"workers"` // 0 means runtime.NumCPU()
	DryRun  bool `yaml:"dry_run" mapstructure:"dry_run"` // compute changes without writing
}

// StateConfig configures the incremental state database.
type StateConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"` // empty means <root>/.docfill/state.db
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{
				"**/*.cs",
			},
			Ignore: []string{},
			ExcludeDirs: []string{
				"bin",
				"obj",
			},
		},
		Run: RunConfig{
			Workers: 0,
			DryRun:  false,
		},
		State: StateConfig{
			Enabled: false,
			Path:    "",
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// EffectiveWorkers resolves the worker count, mapping 0 to the CPU count.
func (c *Config) EffectiveWorkers() int {
	if c.Run.Workers > 0 {
		return c.Run.Workers
	}
	return runtime.NumCPU()
}

// StatePath returns the state database location for a project rooted at rootDir.
func (c *Config) StatePath(rootDir string) string {
	if c.State.Path == "" {
		return filepath.Join(rootDir, Dir, "state.db")
	}
	if filepath.IsAbs(c.State.Path) {
		return c.State.Path
	}
	return filepath.Join(rootDir, c.State.Path)
}
