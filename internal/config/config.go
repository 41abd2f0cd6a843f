// Package config loads adwizard settings using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for adwizard.
type Config struct {
	DataDir        string   `mapstructure:"data_dir" yaml:"data_dir"`
	Store          string   `mapstructure:"store" yaml:"store"`
	Backend        string   `mapstructure:"backend" yaml:"backend"`
	FastModel      string   `mapstructure:"fast_model" yaml:"fast_model"`
	ProModel       string   `mapstructure:"pro_model" yaml:"pro_model"`
	ImageModel     string   `mapstructure:"image_model" yaml:"image_model"`
	PINHash        string   `mapstructure:"pin_hash" yaml:"pin_hash,omitempty"`
	LogLevel       string   `mapstructure:"log_level" yaml:"log_level"`
	Port           int      `mapstructure:"port" yaml:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins,omitempty"`
}

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"

	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

var defaults = map[string]any{
	"data_dir":        ".adwizard",
	"store":           StoreSQLite,
	"backend":         BackendGemini,
	"fast_model":      "",
	"pro_model":       "",
	"image_model":     "",
	"pin_hash":        "",
	"log_level":       "info",
	"port":            8888,
	"allowed_origins": []string{},
}

// Load loads configuration with full precedence:
// ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	return LoadFrom(GlobalPath(), ProjectPath())
}

// LoadFrom is Load with explicit global and project file locations.
// Missing files are skipped.
func LoadFrom(globalPath, projectPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("ADWIZARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range defaults {
		if err := v.BindEnv(key, "ADWIZARD_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyBackendModels()
	return &cfg, nil
}

// model names used when the config leaves them blank
var backendModels = map[string][3]string{
	BackendGemini: {"gemini-2.5-flash", "gemini-2.5-pro", "imagen-4.0-generate-001"},
	BackendOpenAI: {"gpt-4.1-mini", "gpt-4.1", "gpt-image-1"},
}

func (c *Config) applyBackendModels() {
	m := backendModels[c.Backend]
	if c.FastModel == "" {
		c.FastModel = m[0]
	}
	if c.ProModel == "" {
		c.ProModel = m[1]
	}
	if c.ImageModel == "" {
		c.ImageModel = m[2]
	}
}

// Validate rejects unknown store and backend names.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreSQLite, StoreMemory)
	}
	switch c.Backend {
	case BackendGemini, BackendOpenAI:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendGemini, BackendOpenAI)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// DBPath is the sqlite file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "adwizard.db")
}

// GlobalPath returns ~/.config/adwizard/adwizard.yml or the
// $XDG_CONFIG_HOME equivalent.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "adwizard", "adwizard.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "adwizard", "adwizard.yml")
}

// ProjectPath returns ./adwizard.yml in the current working directory.
func ProjectPath() string {
	return "adwizard.yml"
}

// WriteProject writes cfg to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
