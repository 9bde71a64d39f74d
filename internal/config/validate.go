package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidWorkers indicates a non-positive worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidFileSize indicates a non-positive file size limit
	ErrInvalidFileSize = errors.New("invalid max file size")

	// ErrInvalidCacheSize indicates a negative cache size
	ErrInvalidCacheSize = errors.New("invalid cache size")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidColor indicates an unsupported color mode
	ErrInvalidColor = errors.New("invalid color mode")

	// ErrEmptyDBPath indicates a missing store path
	ErrEmptyDBPath = errors.New("empty storage db_path")

	// ErrInvalidLogLevel indicates an unknown log level
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrEmptyPattern indicates a blank glob pattern
	ErrEmptyPattern = errors.New("empty path pattern")
)

// Formats lists the supported output formats.
var Formats = []string{"tree", "json", "msgpack", "flat"}

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}
	if err := validateOutput(&cfg.Output); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(cfg.Storage.DBPath) == "" {
		errs = append(errs, fmt.Errorf("%w: db_path is required", ErrEmptyDBPath))
	}
	if err := ValidateLogLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validatePaths(cfg *PathsConfig) error {
	// An empty include list is allowed: explicit paths on the command line
	// are still scanned.
	var errs []error
	for _, p := range cfg.Include {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%w: in include", ErrEmptyPattern))
		}
	}
	for _, p := range cfg.Ignore {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("%w: in ignore", ErrEmptyPattern))
		}
	}
	return joinErrors(errs)
}

func validateScan(cfg *ScanConfig) error {
	var errs []error

	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidWorkers, cfg.Workers))
	}
	if cfg.MaxFileSizeKB <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_size_kb must be positive, got %d", ErrInvalidFileSize, cfg.MaxFileSizeKB))
	}
	if cfg.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidCacheSize, cfg.CacheSize))
	}

	return joinErrors(errs)
}

func validateOutput(cfg *OutputConfig) error {
	var errs []error

	if err := ValidateFormat(cfg.Format); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(cfg.Color) {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("%w: must be 'auto', 'always' or 'never', got '%s'", ErrInvalidColor, cfg.Color))
	}

	return joinErrors(errs)
}

// ValidateFormat checks an output format name, e.g. from a --format flag.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if strings.EqualFold(format, f) {
			return nil
		}
	}
	return fmt.Errorf("%w: must be one of %s, got '%s'", ErrInvalidFormat, strings.Join(Formats, ", "), format)
}

// ValidateLogLevel checks a log level name.
func ValidateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("%w: must be debug, info, warn or error, got '%s'", ErrInvalidLogLevel, level)
}

// validationErrors keeps every collected error reachable through errors.Is.
type validationErrors []error

func (e validationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e validationErrors) Unwrap() []error { return e }

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return validationErrors(errs)
}
