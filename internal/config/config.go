// Package config loads and saves the bot's YAML configuration: general
// settings plus an ordered list of service definitions. Service order in
// the file is the order services are constructed and initialized in.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for botkit.
type Config struct {
	General  GeneralConfig `yaml:"general"`
	Services []ServiceDef  `yaml:"services"`
}

type GeneralConfig struct {
	LogLevel    string `yaml:"logLevel"`
	LogFile     string `yaml:"logFile,omitempty"`
	MetricsAddr string `yaml:"metricsAddr,omitempty"` // empty = metrics endpoint disabled
}

// ServiceDef names one service instance and the constructor that builds it.
// Service is a constructor reference: a plain name resolves against the
// built-in catalogue, a leading "." against the bot's local namespace, and
// a leading "=" against package-qualified names.
type ServiceDef struct {
	Name    string         `yaml:"name"`
	Service string         `yaml:"service"`
	Params  map[string]any `yaml:"params,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.botkit).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".botkit"
	}
	return filepath.Join(home, ".botkit")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset
// or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	seen := make(map[string]bool)
	for i, def := range cfg.Services {
		if def.Name == "" {
			errs = append(errs, fmt.Sprintf("services[%d]: name is required", i))
			continue
		}
		if def.Service == "" {
			errs = append(errs, fmt.Sprintf("services.%s: service reference is required", def.Name))
		}
		if seen[def.Name] {
			errs = append(errs, fmt.Sprintf("services.%s: duplicate name", def.Name))
		}
		seen[def.Name] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
