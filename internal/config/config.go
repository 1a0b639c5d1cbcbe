package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultMainConfig    = "resources.yaml"
	defaultMaxIterations = 10
	defaultScope         = "document"
	defaultLogLevel      = "info"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	// MainConfig is the logical name of the entry-point file inside a
	// configuration package.
	MainConfig string
	// MaxIterations bounds the placeholder substitution fixed-point loop.
	MaxIterations int
	// SubstitutionScope is "document" (substitute the whole resolved
	// document, then extract the service) or "service" (extract first,
	// substitute only the service entry).
	SubstitutionScope string
	// LogLevel is a zap level name (debug, info, warn, error).
	LogLevel string
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	MainConfig        string `yaml:"main_config"`
	MaxIterations     int    `yaml:"max_iterations"`
	SubstitutionScope string `yaml:"substitution_scope"`
	LogLevel          string `yaml:"log_level"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile        string
	MainConfig        *string
	MaxIterations     *int
	SubstitutionScope *string
	LogLevel          *string
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Environment first, then the YAML file on top, then flags.
	applyEnvConfig(&cfg)

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		MainConfig:        defaultMainConfig,
		MaxIterations:     defaultMaxIterations,
		SubstitutionScope: defaultScope,
		LogLevel:          defaultLogLevel,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.MainConfig != "" {
		cfg.MainConfig = yamlCfg.MainConfig
	}
	if yamlCfg.MaxIterations > 0 {
		cfg.MaxIterations = yamlCfg.MaxIterations
	}
	if yamlCfg.SubstitutionScope != "" {
		cfg.SubstitutionScope = yamlCfg.SubstitutionScope
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if main := strings.TrimSpace(os.Getenv("CONFPACK_MAIN_CONFIG")); main != "" {
		cfg.MainConfig = main
	}

	if iterations := strings.TrimSpace(os.Getenv("CONFPACK_MAX_ITERATIONS")); iterations != "" {
		if value, err := strconv.Atoi(iterations); err == nil && value > 0 {
			cfg.MaxIterations = value
		}
	}

	if scope := strings.TrimSpace(os.Getenv("CONFPACK_SUBSTITUTION_SCOPE")); scope != "" {
		cfg.SubstitutionScope = scope
	}

	if level := strings.TrimSpace(os.Getenv("CONFPACK_LOG_LEVEL")); level != "" {
		cfg.LogLevel = level
	}
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.MainConfig != nil && *overrides.MainConfig != "" {
		cfg.MainConfig = *overrides.MainConfig
	}

	if overrides.MaxIterations != nil && *overrides.MaxIterations > 0 {
		cfg.MaxIterations = *overrides.MaxIterations
	}

	if overrides.SubstitutionScope != nil && *overrides.SubstitutionScope != "" {
		cfg.SubstitutionScope = *overrides.SubstitutionScope
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.MainConfig == "" {
		return fmt.Errorf("main config filename cannot be empty")
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1")
	}
	if cfg.SubstitutionScope != "document" && cfg.SubstitutionScope != "service" {
		return fmt.Errorf("substitution scope must be %q or %q, got %q", "document", "service", cfg.SubstitutionScope)
	}
	return nil
}
