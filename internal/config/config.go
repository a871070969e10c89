package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/dynval/internal/errors"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatJSON    = "json"
	FormatMsgPack = "msgpack"
)

// Field cases applied to result column names
const (
	CaseNone       = "none"
	CaseCamel      = "camel"
	CaseLowerCamel = "lower_camel"
	CaseSnake      = "snake"
)

// Config represents the complete configuration for dynval
type Config struct {
	Output   OutputConfig   `yaml:"output"`
	Parse    ParseConfig    `yaml:"parse"`
	Analyze  AnalyzeConfig  `yaml:"analyze"`
	Database DatabaseConfig `yaml:"database"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

// OutputConfig controls how values are written
type OutputConfig struct {
	Format string `yaml:"format"`
	// Indent pretty-prints JSON output when non-empty.
	Indent string `yaml:"indent"`
}

// ParseConfig controls how JSON text is read
type ParseConfig struct {
	PromoteDates bool `yaml:"promote_dates"`
}

// AnalyzeConfig controls the path summary of the inspect command
type AnalyzeConfig struct {
	RootName string     `yaml:"root_name"`
	Hints    []HintRule `yaml:"hints"`
}

// HintRule assigns a hint to every path matching a pattern
type HintRule struct {
	Pattern string `yaml:"pattern"`
	Hint    string `yaml:"hint"`

	// compiled regex (not serialized)
	regex *regexp.Regexp
}

// DatabaseConfig controls the data proxy
type DatabaseConfig struct {
	DSN           string            `yaml:"dsn"`
	FieldCase     string            `yaml:"field_case"`
	FieldMappings map[string]string `yaml:"field_mappings"`
	MaxConns      int32             `yaml:"max_conns"`
}

// ExportConfig controls spreadsheet export
type ExportConfig struct {
	SheetPrefix string `yaml:"sheet_prefix"`
	HeaderRow   int    `yaml:"header_row"`
}

// LogConfig controls diagnostic logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format: FormatJSON,
		},
		Parse: ParseConfig{
			PromoteDates: true,
		},
		Analyze: AnalyzeConfig{
			RootName: "Root",
			Hints:    []HintRule{},
		},
		Database: DatabaseConfig{
			FieldCase:     CaseNone,
			FieldMappings: make(map[string]string),
			MaxConns:      4,
		},
		Export: ExportConfig{
			SheetPrefix: "Sheet",
			HeaderRow:   1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.compilePatterns(); err != nil {
		return nil, fmt.Errorf("failed to compile patterns: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".dynval.yml", ".dynval.yaml", "dynval.yml", "dynval.yaml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// compilePatterns compiles all regex patterns in the config
func (c *Config) compilePatterns() error {
	for i := range c.Analyze.Hints {
		rule := &c.Analyze.Hints[i]
		regex, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("invalid hint pattern '%s': %w", rule.Pattern, err)
		}
		rule.regex = regex
	}
	return nil
}

// Validate rejects unknown enumerated settings
func (c *Config) Validate() error {
	switch c.Output.Format {
	case FormatJSON, FormatMsgPack:
	default:
		return errors.NewConfigError(fmt.Sprintf("invalid output format '%s'", c.Output.Format), errors.ErrUnknownFormat)
	}

	switch c.Database.FieldCase {
	case CaseNone, CaseCamel, CaseLowerCamel, CaseSnake:
	default:
		return errors.NewConfigError(fmt.Sprintf("invalid field case '%s'", c.Database.FieldCase), nil)
	}

	if c.Database.MaxConns < 1 {
		return errors.NewConfigError(fmt.Sprintf("max_conns must be at least 1, got %d", c.Database.MaxConns), nil)
	}

	if c.Export.SheetPrefix == "" {
		return errors.NewConfigError("sheet_prefix must not be empty", nil)
	}
	if c.Export.HeaderRow < 1 {
		return errors.NewConfigError(fmt.Sprintf("header_row must be at least 1, got %d", c.Export.HeaderRow), nil)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.NewConfigError(fmt.Sprintf("invalid log level '%s'", c.Log.Level), nil)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.NewConfigError(fmt.Sprintf("invalid log format '%s'", c.Log.Format), nil)
	}

	return nil
}

// MatchesPath checks if this hint rule matches the given path
func (hr *HintRule) MatchesPath(path string) bool {
	if hr.regex == nil {
		// Try to compile if not already compiled (fallback)
		regex, err := regexp.Compile(hr.Pattern)
		if err != nil {
			return false
		}
		hr.regex = regex
	}
	return hr.regex.MatchString(path)
}

// FindHint returns the hint of the first rule matching path
func (c *Config) FindHint(path string) (string, bool) {
	for i := range c.Analyze.Hints {
		if c.Analyze.Hints[i].MatchesPath(path) {
			return c.Analyze.Hints[i].Hint, true
		}
	}
	return "", false
}

// FieldName returns the result field name for a database column, applying
// custom mappings first and then the configured field case
func (c *Config) FieldName(column string) string {
	if mapped, exists := c.Database.FieldMappings[column]; exists {
		return mapped
	}

	switch c.Database.FieldCase {
	case CaseCamel:
		return strcase.ToCamel(column)
	case CaseLowerCamel:
		return strcase.ToLowerCamel(column)
	case CaseSnake:
		return strcase.ToSnake(column)
	}
	return column
}

// MergeConfigs merges CLI overrides into a base config
// Non-empty values from override take precedence over base values
func MergeConfigs(base, override *Config) *Config {
	merged := *base

	if override.Output.Format != "" {
		merged.Output.Format = override.Output.Format
	}
	if override.Output.Indent != "" {
		merged.Output.Indent = override.Output.Indent
	}
	if override.Database.DSN != "" {
		merged.Database.DSN = override.Database.DSN
	}
	if override.Database.FieldCase != "" {
		merged.Database.FieldCase = override.Database.FieldCase
	}
	if override.Analyze.RootName != "" {
		merged.Analyze.RootName = override.Analyze.RootName
	}
	if override.Log.Level != "" {
		merged.Log.Level = override.Log.Level
	}

	return &merged
}

// CLIOverrides carries the flags that may replace config file values
type CLIOverrides struct {
	Format   string
	Indent   string
	DSN      string
	RootName string
	Debug    bool
}

// LoadConfigWithCLI loads config with CLI argument precedence
func LoadConfigWithCLI(configPath string, cli CLIOverrides) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	override := &Config{
		Output:   OutputConfig{Format: cli.Format, Indent: cli.Indent},
		Database: DatabaseConfig{DSN: cli.DSN},
		Analyze:  AnalyzeConfig{RootName: cli.RootName},
	}
	if cli.Debug {
		override.Log.Level = "debug"
	}

	cfg = MergeConfigs(cfg, override)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
