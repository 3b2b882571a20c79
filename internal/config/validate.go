package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrEmptyInclude indicates no include patterns were configured
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrInvalidExcludeDir indicates an exclude_dirs entry that is not a single path segment
	ErrInvalidExcludeDir = errors.New("invalid exclude directory")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidDebounce indicates a non-positive watch debounce
	ErrInvalidDebounce = errors.New("invalid watch debounce")

	// ErrInvalidLogLevel indicates an unsupported log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidLogFormat indicates an unsupported log format
	ErrInvalidLogFormat = errors.New("invalid log format")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}

	if cfg.Run.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers cannot be negative, got %d", ErrInvalidWorkers, cfg.Run.Workers))
	}

	if cfg.Watch.DebounceMs <= 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms must be positive, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMs))
	}

	if err := validateLog(&cfg.Log); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one include pattern required", ErrEmptyInclude))
	}

	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	for _, dir := range cfg.ExcludeDirs {
		if strings.TrimSpace(dir) == "" || strings.ContainsAny(dir, `/\`) {
			errs = append(errs, fmt.Errorf("%w: %q must be a single directory name", ErrInvalidExcludeDir, dir))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateLog(cfg *LogConfig) error {
	var errs []error

	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: must be debug, info, warn or error, got '%s'", ErrInvalidLogLevel, cfg.Level))
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'console' or 'json', got '%s'", ErrInvalidLogFormat, cfg.Format))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The sentinel errors stay reachable through errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
