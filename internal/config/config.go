// Package config provides unified configuration loading for growthsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/growthsim/internal/dataset"
	"github.com/nvandessel/growthsim/internal/design"
)

// DefaultOutput is the dataset path, relative to the project root.
const DefaultOutput = "data/growth/fake_growth_data.csv"

// GrowthsimConfig contains all growthsim configuration settings.
type GrowthsimConfig struct {
	// Output configures where and how generated datasets are written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Seed fixes the random seed. 0 draws a fresh seed per run.
	Seed uint64 `json:"seed" yaml:"seed"`

	// Logging contains settings for operational and journal logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures the run archive.
	Store StoreConfig `json:"store" yaml:"store"`

	// Tracing configures OpenTelemetry export.
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`

	// Design is the experiment to simulate.
	Design design.Design `json:"design" yaml:"design"`
}

// OutputConfig configures the generated dataset file.
type OutputConfig struct {
	// Path is relative to the project root unless absolute.
	Path string `json:"path" yaml:"path"`

	// Format is "csv" or "arrow".
	Format string `json:"format" yaml:"format"`

	// Header is "display" or "snake". CSV only.
	Header string `json:"header" yaml:"header"`
}

// LoggingConfig configures growthsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the run journal at .growthsim/journal.jsonl.
	// "trace" additionally journals every curve's parameters.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures the run archive.
type StoreConfig struct {
	// Dir holds growthsim.db. Empty means <root>/.growthsim.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// Archive saves every generated run when true.
	Archive bool `json:"archive" yaml:"archive"`
}

// TracingConfig configures OTLP trace export.
type TracingConfig struct {
	// Endpoint is an OTLP/HTTP URL. Empty disables tracing.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// envOverrides holds the environment variables that override file settings.
// Pointer fields stay nil when the variable is unset.
type envOverrides struct {
	LogLevel     *string `env:"GROWTHSIM_LOG_LEVEL"`
	Seed         *uint64 `env:"GROWTHSIM_SEED"`
	Output       *string `env:"GROWTHSIM_OUTPUT"`
	Format       *string `env:"GROWTHSIM_FORMAT"`
	StoreDir     *string `env:"GROWTHSIM_STORE_DIR"`
	Archive      *bool   `env:"GROWTHSIM_ARCHIVE"`
	OTelEndpoint *string `env:"GROWTHSIM_OTEL_ENDPOINT"`
}

// Default returns a GrowthsimConfig with sensible defaults.
func Default() *GrowthsimConfig {
	return &GrowthsimConfig{
		Output: OutputConfig{
			Path:   DefaultOutput,
			Format: string(dataset.FormatCSV),
			Header: dataset.HeaderDisplay.String(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Design: design.Default(),
	}
}

// DefaultPath returns ~/.growthsim/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(homeDir, ".growthsim", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.growthsim/config.yaml -> environment variables
func Load() (*GrowthsimConfig, error) {
	config := Default()

	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadPath is Load with an explicit config file, which must exist.
func LoadPath(path string) (*GrowthsimConfig, error) {
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file over the defaults.
func LoadFromFile(path string) (*GrowthsimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *GrowthsimConfig) Validate() error {
	if c.Output.Path == "" {
		return fmt.Errorf("output.path must not be empty")
	}
	if _, err := dataset.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	if _, err := dataset.ParseHeader(c.Output.Header); err != nil {
		return fmt.Errorf("output.header: %w", err)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if err := c.Design.Validate(); err != nil {
		return fmt.Errorf("design: %w", err)
	}
	return nil
}

// OutputPath resolves Output.Path against root.
func (c *GrowthsimConfig) OutputPath(root string) string {
	if filepath.IsAbs(c.Output.Path) {
		return c.Output.Path
	}
	return filepath.Join(root, c.Output.Path)
}

// StoreDir resolves the archive directory for root.
func (c *GrowthsimConfig) StoreDir(root string) string {
	switch {
	case c.Store.Dir == "":
		return filepath.Join(root, ".growthsim")
	case filepath.IsAbs(c.Store.Dir):
		return c.Store.Dir
	default:
		return filepath.Join(root, c.Store.Dir)
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *GrowthsimConfig) error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.LogLevel != nil {
		config.Logging.Level = *o.LogLevel
	}
	if o.Seed != nil {
		config.Seed = *o.Seed
	}
	if o.Output != nil {
		config.Output.Path = *o.Output
	}
	if o.Format != nil {
		config.Output.Format = *o.Format
	}
	if o.StoreDir != nil {
		config.Store.Dir = *o.StoreDir
	}
	if o.Archive != nil {
		config.Store.Archive = *o.Archive
	}
	if o.OTelEndpoint != nil {
		config.Tracing.Endpoint = *o.OTelEndpoint
	}
	return nil
}
