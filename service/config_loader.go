package service

import (
	"github.com/flowscope/flowscope/domain"
	"github.com/flowscope/flowscope/internal/config"
)

// ConfigurationLoaderImpl implements the ConfigurationLoader interface
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration from the specified path
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.DeadCodeRequest, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return c.convertToRequest(cfg), nil
}

// LoadDefaultConfig loads the default configuration, discovering a
// config file near the working directory when one exists
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.DeadCodeRequest {
	cfg, err := config.LoadConfigWithTarget("", "")
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return c.convertToRequest(cfg)
}

// MergeConfig merges CLI flags with configuration file
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.DeadCodeRequest, override *domain.DeadCodeRequest) *domain.DeadCodeRequest {
	merged := *base

	// Paths always come from command arguments
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}

	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.ShowContext {
		merged.ShowContext = override.ShowContext
	}
	if override.MinSeverity != "" {
		merged.MinSeverity = override.MinSeverity
	}
	if override.SortBy != "" {
		merged.SortBy = override.SortBy
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}
	if len(override.IncludePatterns) > 0 {
		merged.IncludePatterns = override.IncludePatterns
	}
	if len(override.ExcludePatterns) > 0 {
		merged.ExcludePatterns = override.ExcludePatterns
	}
	if override.NoProgress {
		merged.NoProgress = override.NoProgress
	}

	return &merged
}

// convertToRequest converts a Config to a DeadCodeRequest
func (c *ConfigurationLoaderImpl) convertToRequest(cfg *config.Config) *domain.DeadCodeRequest {
	return &domain.DeadCodeRequest{
		// Paths are set by the caller, not from config
		Paths: []string{},

		OutputFormat: domain.OutputFormat(cfg.Output.Format),
		ShowContext:  cfg.DeadCode.ShowContext,

		MinSeverity: domain.DeadCodeSeverity(cfg.DeadCode.MinSeverity),
		SortBy:      domain.DeadCodeSortCriteria(cfg.DeadCode.SortBy),

		Recursive:       cfg.Analysis.Recursive,
		IncludePatterns: cfg.Analysis.IncludePatterns,
		ExcludePatterns: cfg.Analysis.ExcludePatterns,

		DetectAfterJump:           cfg.DeadCode.DetectAfterJump,
		DetectConstantConditions:  cfg.DeadCode.DetectConstantConditions,
		DetectUnreachableBranches: cfg.DeadCode.DetectUnreachableBranches,
	}
}
