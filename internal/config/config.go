package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/flowscope/flowscope/internal/constants"
)

// Default dead code detection settings
const (
	// DefaultDeadCodeMinSeverity defines the minimum severity level to report
	DefaultDeadCodeMinSeverity = "warning"

	// DefaultDeadCodeContextLines defines the number of context lines to show
	DefaultDeadCodeContextLines = 3

	// DefaultDeadCodeSortBy defines the default sorting criteria
	DefaultDeadCodeSortBy = "severity"
)

// Config represents the main configuration structure
type Config struct {
	// DeadCode holds dead code detection configuration
	DeadCode DeadCodeConfig `json:"deadCode" mapstructure:"dead_code" yaml:"dead_code"`

	// Graph holds CFG export configuration
	Graph GraphConfig `json:"graph" mapstructure:"graph" yaml:"graph"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Analysis holds general analysis configuration
	Analysis AnalysisConfig `json:"analysis,omitempty" mapstructure:"analysis" yaml:"analysis"`
}

// DeadCodeConfig holds configuration for dead code detection
type DeadCodeConfig struct {
	// Enabled controls whether dead code detection is performed
	Enabled bool `json:"enabled" mapstructure:"enabled" yaml:"enabled"`

	// MinSeverity is the minimum severity level to report
	MinSeverity string `json:"min_severity" mapstructure:"min_severity" yaml:"min_severity"`

	// ShowContext controls whether to show surrounding code context
	ShowContext bool `json:"show_context" mapstructure:"show_context" yaml:"show_context"`

	// ContextLines is the number of context lines to show around dead code
	ContextLines int `json:"context_lines" mapstructure:"context_lines" yaml:"context_lines"`

	// SortBy specifies how to sort results: severity, line, file, function
	SortBy string `json:"sort_by" mapstructure:"sort_by" yaml:"sort_by"`

	// Detection options
	DetectAfterJump           bool `json:"detect_after_jump" mapstructure:"detect_after_jump" yaml:"detect_after_jump"`
	DetectConstantConditions  bool `json:"detect_constant_conditions" mapstructure:"detect_constant_conditions" yaml:"detect_constant_conditions"`
	DetectUnreachableBranches bool `json:"detect_unreachable_branches" mapstructure:"detect_unreachable_branches" yaml:"detect_unreachable_branches"`

	// MaxCritical is the number of critical findings tolerated by the
	// check command before it fails, 0 means none
	MaxCritical int `json:"max_critical" mapstructure:"max_critical" yaml:"max_critical"`
}

// GraphConfig holds configuration for CFG export
type GraphConfig struct {
	// HighlightUnreachable styles unreachable blocks in rendered graphs
	HighlightUnreachable bool `json:"highlight_unreachable" mapstructure:"highlight_unreachable" yaml:"highlight_unreachable"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// ShowDetails controls whether to show detailed breakdown
	ShowDetails bool `json:"show_details" mapstructure:"show_details" yaml:"show_details"`
}

// AnalysisConfig holds general analysis configuration
type AnalysisConfig struct {
	// IncludePatterns specifies file patterns to include
	IncludePatterns []string `json:"include_patterns" mapstructure:"include_patterns" yaml:"include_patterns"`

	// ExcludePatterns specifies file patterns to exclude
	ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// Recursive controls whether to analyze directories recursively
	Recursive bool `json:"recursive" mapstructure:"recursive" yaml:"recursive"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DeadCode: DeadCodeConfig{
			Enabled:                   true,
			MinSeverity:               DefaultDeadCodeMinSeverity,
			ShowContext:               false,
			ContextLines:              DefaultDeadCodeContextLines,
			SortBy:                    DefaultDeadCodeSortBy,
			DetectAfterJump:           true,
			DetectConstantConditions:  true,
			DetectUnreachableBranches: true,
			MaxCritical:               0,
		},
		Graph: GraphConfig{
			HighlightUnreachable: true,
		},
		Output: OutputConfig{
			Format:      "text",
			ShowDetails: false,
		},
		Analysis: AnalysisConfig{
			IncludePatterns: []string{},
			ExcludePatterns: []string{},
			Recursive:       true,
		},
	}
}

// LoadConfig loads configuration from the specified path, discovering a
// default config file when the path is empty
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration with target path context
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

func loadConfigFromFile(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	// A fresh viper instance per load avoids shared state between calls
	v := viper.New()
	config := DefaultConfig()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for default configuration files in common
// locations, searching upward from the analyzed path first
func findDefaultConfig(targetPath string) string {
	candidates := []string{
		constants.ToolName + ".yaml",
		constants.ToolName + ".yml",
		"." + constants.ToolName + ".yaml",
		"." + constants.ToolName + ".yml",
	}

	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			info, err := os.Stat(absPath)
			if err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, candidates); config != "" {
					return config
				}
				if filepath.Dir(dir) == dir {
					break
				}
			}
		}
	}

	if config := searchConfigInDirectory(".", candidates); config != "" {
		return config
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), candidates); config != "" {
			return config
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		if config := searchConfigInDirectory(filepath.Join(home, ".config", constants.ToolName), candidates); config != "" {
			return config
		}
		if config := searchConfigInDirectory(home, candidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(constants.EnvVarPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}
	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	switch c.DeadCode.MinSeverity {
	case "critical", "warning", "info":
	default:
		return fmt.Errorf("dead_code.min_severity must be one of critical, warning, info, got %q", c.DeadCode.MinSeverity)
	}

	switch c.DeadCode.SortBy {
	case "severity", "line", "file", "function":
	default:
		return fmt.Errorf("dead_code.sort_by must be one of severity, line, file, function, got %q", c.DeadCode.SortBy)
	}

	if c.DeadCode.ContextLines < 0 || c.DeadCode.ContextLines > 20 {
		return fmt.Errorf("dead_code.context_lines must be between 0 and 20, got %d", c.DeadCode.ContextLines)
	}
	if c.DeadCode.MaxCritical < 0 {
		return fmt.Errorf("dead_code.max_critical must be >= 0, got %d", c.DeadCode.MaxCritical)
	}

	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("output.format must be one of text, json, yaml, got %q", c.Output.Format)
	}
	return nil
}

// SaveConfig writes the configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// GetMinSeverityLevel returns the numeric severity threshold
func (c *DeadCodeConfig) GetMinSeverityLevel() int {
	switch c.MinSeverity {
	case "critical":
		return 3
	case "warning":
		return 2
	case "info":
		return 1
	default:
		return 2
	}
}

// HasAnyDetectionEnabled reports whether at least one detection option is on
func (c *DeadCodeConfig) HasAnyDetectionEnabled() bool {
	return c.DetectAfterJump || c.DetectConstantConditions || c.DetectUnreachableBranches
}

// ShouldDetectDeadCode reports whether dead code detection should run
func (c *DeadCodeConfig) ShouldDetectDeadCode() bool {
	return c.Enabled && c.HasAnyDetectionEnabled()
}
