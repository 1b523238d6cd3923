package domain

import (
	"context"
	"fmt"
	"io"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText    OutputFormat = "text"
	OutputFormatJSON    OutputFormat = "json"
	OutputFormatYAML    OutputFormat = "yaml"
	OutputFormatMermaid OutputFormat = "mermaid"
)

// DeadCodeSeverity represents the severity of a dead code finding
type DeadCodeSeverity string

const (
	DeadCodeSeverityCritical DeadCodeSeverity = "critical"
	DeadCodeSeverityWarning  DeadCodeSeverity = "warning"
	DeadCodeSeverityInfo     DeadCodeSeverity = "info"
)

// Rank returns a numeric rank for severity comparison, higher is worse
func (s DeadCodeSeverity) Rank() int {
	switch s {
	case DeadCodeSeverityCritical:
		return 3
	case DeadCodeSeverityWarning:
		return 2
	case DeadCodeSeverityInfo:
		return 1
	default:
		return 0
	}
}

// DeadCodeSortCriteria represents the criteria for sorting findings
type DeadCodeSortCriteria string

const (
	DeadCodeSortBySeverity DeadCodeSortCriteria = "severity"
	DeadCodeSortByLine     DeadCodeSortCriteria = "line"
	DeadCodeSortByFile     DeadCodeSortCriteria = "file"
	DeadCodeSortByFunction DeadCodeSortCriteria = "function"
)

// DeadCodeLocation identifies a source range
type DeadCodeLocation struct {
	FilePath    string `json:"file_path" yaml:"file_path"`
	StartLine   int    `json:"start_line" yaml:"start_line"`
	StartColumn int    `json:"start_column" yaml:"start_column"`
	EndLine     int    `json:"end_line" yaml:"end_line"`
	EndColumn   int    `json:"end_column" yaml:"end_column"`
}

// DeadCodeFinding represents a single stretch of unreachable code
type DeadCodeFinding struct {
	Location     DeadCodeLocation `json:"location" yaml:"location"`
	FunctionName string           `json:"function_name" yaml:"function_name"`
	Code         string           `json:"code" yaml:"code"`
	Reason       string           `json:"reason" yaml:"reason"`
	Severity     DeadCodeSeverity `json:"severity" yaml:"severity"`
}

// FunctionDeadCode aggregates the findings of one function
type FunctionDeadCode struct {
	Name            string            `json:"name" yaml:"name"`
	FilePath        string            `json:"file_path" yaml:"file_path"`
	Findings        []DeadCodeFinding `json:"findings" yaml:"findings"`
	TotalBlocks     int               `json:"total_blocks" yaml:"total_blocks"`
	ReachableBlocks int               `json:"reachable_blocks" yaml:"reachable_blocks"`
}

// DeadCodeSummary provides aggregate statistics
type DeadCodeSummary struct {
	FilesAnalyzed     int `json:"files_analyzed" yaml:"files_analyzed"`
	FunctionsAnalyzed int `json:"functions_analyzed" yaml:"functions_analyzed"`
	FunctionsSkipped  int `json:"functions_skipped" yaml:"functions_skipped"`
	TotalFindings     int `json:"total_findings" yaml:"total_findings"`
	CriticalFindings  int `json:"critical_findings" yaml:"critical_findings"`
	WarningFindings   int `json:"warning_findings" yaml:"warning_findings"`
	InfoFindings      int `json:"info_findings" yaml:"info_findings"`
}

// DeadCodeRequest represents a request for dead code analysis
type DeadCodeRequest struct {
	// Input files or directories to analyze
	Paths []string

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	ShowContext  bool

	// Filtering and sorting
	MinSeverity DeadCodeSeverity
	SortBy      DeadCodeSortCriteria

	// Configuration
	ConfigPath string

	// Analysis options
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
	NoProgress      bool

	// Detection options
	DetectAfterJump           bool
	DetectConstantConditions  bool
	DetectUnreachableBranches bool
}

// Validate checks the request for obvious mistakes
func (r *DeadCodeRequest) Validate() error {
	if len(r.Paths) == 0 {
		return NewInvalidInputError("no input paths specified", nil)
	}
	switch r.OutputFormat {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
	default:
		return NewUnsupportedFormatError(string(r.OutputFormat))
	}
	switch r.MinSeverity {
	case DeadCodeSeverityCritical, DeadCodeSeverityWarning, DeadCodeSeverityInfo:
	default:
		return NewInvalidInputError(fmt.Sprintf("invalid severity: %s", r.MinSeverity), nil)
	}
	return nil
}

// DeadCodeResponse represents the complete analysis result
type DeadCodeResponse struct {
	Functions []FunctionDeadCode `json:"functions" yaml:"functions"`
	Summary   DeadCodeSummary    `json:"summary" yaml:"summary"`

	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	Version     string `json:"version" yaml:"version"`
}

// DeadCodeService defines the core business logic for dead code analysis
type DeadCodeService interface {
	// Analyze performs dead code analysis on the given request
	Analyze(ctx context.Context, req DeadCodeRequest) (*DeadCodeResponse, error)

	// AnalyzeFile analyzes a single Python file
	AnalyzeFile(ctx context.Context, filePath string, req DeadCodeRequest) (*DeadCodeResponse, error)
}

// FileReader defines the interface for reading and collecting files
type FileReader interface {
	// CollectPythonFiles recursively finds all Python files in the given paths
	CollectPythonFiles(paths []string, recursive bool, includePatterns, excludePatterns []string) ([]string, error)

	// ReadFile reads the content of a file
	ReadFile(path string) ([]byte, error)

	// IsValidPythonFile checks if a file is a valid Python file
	IsValidPythonFile(path string) bool

	// FileExists checks if a file exists and returns an error if not
	FileExists(path string) (bool, error)
}

// DeadCodeFormatter defines the interface for formatting analysis results
type DeadCodeFormatter interface {
	// Format formats the analysis response according to the specified format
	Format(response *DeadCodeResponse, format OutputFormat) (string, error)

	// Write writes the formatted output to the writer
	Write(response *DeadCodeResponse, format OutputFormat, writer io.Writer) error
}

// ConfigurationLoader defines the interface for loading configuration
type ConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*DeadCodeRequest, error)

	// LoadDefaultConfig loads the default configuration
	LoadDefaultConfig() *DeadCodeRequest

	// MergeConfig merges CLI flags with configuration file
	MergeConfig(base *DeadCodeRequest, override *DeadCodeRequest) *DeadCodeRequest
}
