package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// LoadGlobalConfig loads global configuration from ~/.structscan/config.yml.
// Returns default values if file doesn't exist (not an error).
// Environment variables override file values (STRUCTSCAN_GLOBAL_* prefix).
func LoadGlobalConfig() (*GlobalConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return loadGlobalConfig(filepath.Join(home, DirName))
}

func loadGlobalConfig(dir string) (*GlobalConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(dir)

	// A separate prefix keeps project overrides such as STRUCTSCAN_LOG_LEVEL
	// from leaking into the global scope.
	v.SetEnvPrefix("STRUCTSCAN_GLOBAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("grammars.dir")
	_ = v.BindEnv("log.level")

	v.SetDefault("grammars.dir", filepath.Join(dir, "grammars"))
	v.SetDefault("log.level", "warn")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateLogLevel(cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("invalid global configuration: %w", err)
	}

	return cfg, nil
}
