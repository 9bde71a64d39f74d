// Package config provides configuration loading for structscan.
//
// It supports two configuration scopes:
//
// 1. Global Configuration (~/.structscan/config.yml)
//   - Machine-wide settings shared by every project
//   - User grammar directory, default log level
//   - Loaded via LoadGlobalConfig()
//
// 2. Project Configuration (.structscan/config.yml)
//   - Include/ignore patterns, scan limits, output format
//   - Project grammar directory and declaration store path
//   - Loaded via Load()
//
// Project grammars override user grammars of the same name, which in turn
// override the built-ins.
//
// Environment Variable Convention:
//   - Prefix: STRUCTSCAN_
//   - Nested fields: Use underscores (STRUCTSCAN_SCAN_WORKERS)
//   - Automatic mapping via Viper's SetEnvKeyReplacer
//
// Example usage:
//
//	globalCfg, err := config.LoadGlobalConfig()
//	if err != nil {
//	    return err
//	}
//	cfg, err := config.LoadConfigFromDir(root)
//	if err != nil {
//	    return err
//	}
package config

// GlobalConfig holds machine-wide configuration.
// Loaded from ~/.structscan/config.yml (not project .structscan/config.yml).
type GlobalConfig struct {
	Grammars GlobalGrammarsConfig `yaml:"grammars" mapstructure:"grammars"`
	Log      GlobalLogConfig      `yaml:"log" mapstructure:"log"`
}

// GlobalGrammarsConfig holds the user grammar directory.
type GlobalGrammarsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // *.toml grammars shared by all projects
}

// GlobalLogConfig holds the fallback log level.
type GlobalLogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}
