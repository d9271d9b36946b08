package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for calyx-opt
type Config struct {
	// Passes is the default pass pipeline, run in order
	Passes []string `json:"passes,omitempty" toml:"passes,omitempty" yaml:"passes,omitempty"`

	// Inputs selects program files when a directory is given on the command line
	Inputs InputConfig `json:"inputs,omitempty" toml:"inputs,omitempty" yaml:"inputs,omitempty"`

	// Debug dumps the program after every pass
	Debug bool `json:"debug,omitempty" toml:"debug,omitempty" yaml:"debug,omitempty"`

	// Validate checks program files and fact tables against the CUE contract
	Validate *bool `json:"validate,omitempty" toml:"validate,omitempty" yaml:"validate,omitempty"`

	// Policy contains well-formedness rule configuration
	Policy PolicyConfig `json:"policy,omitempty" toml:"policy,omitempty" yaml:"policy,omitempty"`

	// Output controls the artifacts written next to the run
	Output OutputConfig `json:"output,omitempty" toml:"output,omitempty" yaml:"output,omitempty"`

	// Log configures the structured logger
	Log LogConfig `json:"log,omitempty" toml:"log,omitempty" yaml:"log,omitempty"`
}

// InputConfig lists glob patterns for program files
type InputConfig struct {
	// Files is a list of glob patterns; ** matches any number of directories
	Files []string `json:"files,omitempty" toml:"files,omitempty" yaml:"files,omitempty"`

	// Exclude is a list of glob patterns removed from Files
	Exclude []string `json:"exclude,omitempty" toml:"exclude,omitempty" yaml:"exclude,omitempty"`
}

// PolicyConfig contains rule configuration
type PolicyConfig struct {
	// Enabled turns policy evaluation on
	Enabled *bool `json:"enabled,omitempty" toml:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Dir overrides the built-in rules with every .rego file in a directory
	Dir string `json:"dir,omitempty" toml:"dir,omitempty" yaml:"dir,omitempty"`

	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" toml:"rules,omitempty" yaml:"rules,omitempty"`

	// FailOnError aborts the run when the input program has error violations
	FailOnError bool `json:"failOnError,omitempty" toml:"failOnError,omitempty" yaml:"failOnError,omitempty"`
}

// OutputConfig controls run artifacts
type OutputConfig struct {
	// TimingJSONL is the path of the per-stage timing log ("" disables it)
	TimingJSONL string `json:"timingJsonl,omitempty" toml:"timingJsonl,omitempty" yaml:"timingJsonl,omitempty"`

	// MetricsFile receives Prometheus text-format metrics ("" disables it)
	MetricsFile string `json:"metricsFile,omitempty" toml:"metricsFile,omitempty" yaml:"metricsFile,omitempty"`

	// ReportFile receives the JSON run report ("" disables it)
	ReportFile string `json:"reportFile,omitempty" toml:"reportFile,omitempty" yaml:"reportFile,omitempty"`

	// Deltas records fact-table deltas for every pass
	Deltas bool `json:"deltas,omitempty" toml:"deltas,omitempty" yaml:"deltas,omitempty"`
}

// LogConfig configures zap
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error"
	Level string `json:"level,omitempty" toml:"level,omitempty" yaml:"level,omitempty"`

	// Format is "console" or "json"
	Format string `json:"format,omitempty" toml:"format,omitempty" yaml:"format,omitempty"`
}

// FileNames are the config file names searched in each directory, in order
var FileNames = []string{"calyx_opt.json", ".calyx_opt.json", "calyx_opt.toml", "calyx_opt.yaml"}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Passes: []string{"clk-insertion"},
		Inputs: InputConfig{
			Files:   []string{"*.json", "**/*.json"},
			Exclude: []string{},
		},
		Validate: boolPtr(true),
		Policy: PolicyConfig{
			Enabled: boolPtr(true),
			Rules:   map[string]string{},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./calyx_opt.{json,toml,yaml} and ./.calyx_opt.json (current working directory)
//  2. the same names in rootPath (if it is a directory different from cwd)
//  3. ~/.config/calyx_opt/config.json
//
// Returns DefaultConfig if no config file is found. Environment overrides
// are applied in every case.
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range FileNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range FileNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "calyx_opt", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile loads configuration from a specific file. The format follows the
// extension: .toml, .yaml/.yml, anything else is JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply defaults for missing fields
	cfg.applyDefaults()
	cfg.applyEnv()

	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Passes == nil {
		c.Passes = []string{"clk-insertion"}
	}
	if c.Inputs.Files == nil {
		c.Inputs.Files = []string{"*.json", "**/*.json"}
	}
	if c.Validate == nil {
		c.Validate = boolPtr(true)
	}
	if c.Policy.Enabled == nil {
		c.Policy.Enabled = boolPtr(true)
	}
	if c.Policy.Rules == nil {
		c.Policy.Rules = make(map[string]string)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// applyEnv lets CALYX_DEBUG and CALYX_TIMING_JSONL override the file.
func (c *Config) applyEnv() {
	if _, ok := os.LookupEnv("CALYX_DEBUG"); ok {
		c.Debug = envBool("CALYX_DEBUG")
	}
	if path := os.Getenv("CALYX_TIMING_JSONL"); path != "" {
		c.Output.TimingJSONL = path
	}
}

func envBool(key string) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return val == "1" || val == "true" || val == "yes" || val == "on"
}

// Save writes the configuration to a file, in the format its extension names
func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(c)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ValidationEnabled reports whether CUE validation is on
func (c *Config) ValidationEnabled() bool {
	return c.Validate == nil || *c.Validate
}

// PolicyEnabled reports whether policy evaluation is on
func (c *Config) PolicyEnabled() bool {
	return c.Policy.Enabled == nil || *c.Policy.Enabled
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Policy.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Policy.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ResolvePasses returns the pass list to run: the command-line list when
// given, otherwise the configured one. Names are checked with known.
func (c *Config) ResolvePasses(cli []string, known func(string) bool) ([]string, error) {
	names := c.Passes
	if len(cli) > 0 {
		names = cli
	}
	var out []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if known != nil && !known(n) {
			return nil, fmt.Errorf("unknown pass %q", n)
		}
		out = append(out, n)
	}
	return out, nil
}
