package config

import (
	"sort"
	"strings"
)

// Config represents the complete structscan project configuration.
// It can be loaded from .structscan/config.yml with environment variable overrides.
type Config struct {
	Paths    PathsConfig    `yaml:"paths" mapstructure:"paths"`
	Grammars GrammarsConfig `yaml:"grammars" mapstructure:"grammars"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PathsConfig defines which files to scan and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// GrammarsConfig points at custom grammar files.
type GrammarsConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`         // directory of *.toml grammars, relative to the project root
	Default string `yaml:"default" mapstructure:"default"` // grammar for unknown extensions; empty skips them
}

// ScanConfig bounds a scan run.
type ScanConfig struct {
	Workers       int `yaml:"workers" mapstructure:"workers"`
	MaxFileSizeKB int `yaml:"max_file_size_kb" mapstructure:"max_file_size_kb"`
	CacheSize     int `yaml:"cache_size" mapstructure:"cache_size"` // catalog cache entries, 0 disables
}

// OutputConfig selects how catalogs are printed.
type OutputConfig struct {
	Format string `yaml:"format" mapstructure:"format"` // tree, json, msgpack or flat
	Color  string `yaml:"color" mapstructure:"color"`   // auto, always or never
}

// StorageConfig locates the declaration store.
type StorageConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// LogConfig configures the CLI logger.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"` // optional JSON log file
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Include: []string{
				"**/*.rs",
				"**/*.go",
				"**/*.ts",
				"**/*.tsx",
				"**/*.py",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
			},
		},
		Grammars: GrammarsConfig{
			Dir: ".structscan/grammars",
		},
		Scan: ScanConfig{
			Workers:       4,
			MaxFileSizeKB: 1024,
			CacheSize:     1000,
		},
		Output: OutputConfig{
			Format: "tree",
			Color:  "auto",
		},
		Storage: StorageConfig{
			DBPath: ".structscan/declarations.db",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// IncludeExtensions extracts the unique file extensions named by the include
// patterns, with leading dot and sorted (e.g. []string{".go", ".rs"}).
func (c *Config) IncludeExtensions() []string {
	extMap := make(map[string]bool)
	for _, pattern := range c.Paths.Include {
		if ext := extractExtension(pattern); ext != "" {
			extMap[strings.ToLower(ext)] = true
		}
	}

	extensions := make([]string, 0, len(extMap))
	for ext := range extMap {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.rs" -> ".rs", "*.ts" -> ".ts"
func extractExtension(pattern string) string {
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
