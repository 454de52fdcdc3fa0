// Package config handles configuration loading and management for gatecheck.
// It supports XDG config paths, project-level overrides, environment
// variables, and built-in pipeline presets per detected project type.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/gatecheck/pkg/models"
)

// ProjectConfigName is the per-repository config file name.
const ProjectConfigName = ".gatecheck.yaml"

// Config holds all configuration for gatecheck.
type Config struct {
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
	// AdditionalRoots lists nested checkouts whose content contributes
	// to the tree identity alongside the primary repository.
	AdditionalRoots []string       `mapstructure:"additional_roots" yaml:"additional_roots,omitempty"`
	Phases          []models.Phase `mapstructure:"phases" yaml:"phases"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	// Enabled controls step-level result caching.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// HistoryConfig holds validation history settings.
type HistoryConfig struct {
	// MaxRuns bounds the number of runs kept per tree identity.
	MaxRuns int `mapstructure:"max_runs" yaml:"max_runs"`
}

// WatchConfig holds watch-mode settings.
type WatchConfig struct {
	// DebounceMS is the quiet period after a change before revalidating.
	DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	// Ignore lists directory names the watcher never descends into.
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`
}

// Load loads configuration for the repository at root.
// Precedence (highest to lowest):
// 1. Environment variables (GATECHECK_*)
// 2. Project config (.gatecheck.yaml in root or a parent)
// 3. User config (~/.config/gatecheck/config.yaml)
// 4. Built-in defaults, with a preset pipeline for the detected project type
func Load(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := FindProjectConfig(root)
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	v.SetEnvPrefix("GATECHECK")
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// No configured pipeline anywhere: fall back to the preset for the
	// detected project type.
	if len(cfg.Phases) == 0 {
		cfg.Phases = PresetPhases(DetectProjectType(root))
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// WriteProjectConfig writes cfg as the project config file under root.
// It refuses to overwrite an existing file.
func WriteProjectConfig(root string, cfg *Config) (string, error) {
	path := filepath.Join(root, ProjectConfigName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%s already exists", path)
	}

	payload, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

// Default returns a Config with default values and the preset pipeline
// for the project type detected at root.
func Default(root string) *Config {
	return &Config{
		Cache:   CacheConfig{Enabled: true},
		History: HistoryConfig{MaxRuns: 20},
		Watch: WatchConfig{
			DebounceMS: 500,
			Ignore:     defaultWatchIgnores(),
		},
		Phases: PresetPhases(DetectProjectType(root)),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cache.enabled", true)
	v.SetDefault("history.max_runs", 20)
	v.SetDefault("watch.debounce_ms", 500)
	v.SetDefault("watch.ignore", defaultWatchIgnores())
}

func defaultWatchIgnores() []string {
	return []string{".git", "node_modules", "vendor", "target", ".gatecheck"}
}

// getUserConfigDir returns the XDG config directory for gatecheck.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "gatecheck")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "gatecheck")
	}
	return filepath.Join(home, ".config", "gatecheck")
}

// FindProjectConfig searches for .gatecheck.yaml in root and its parents.
func FindProjectConfig(root string) string {
	dir := root
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigName)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
