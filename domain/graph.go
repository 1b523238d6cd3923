package domain

import (
	"context"
	"io"
)

// GraphRequest represents a request to export control flow graphs
type GraphRequest struct {
	// Input files or directories
	Paths []string

	// Function restricts the export to one function by name, empty
	// means all functions
	Function string

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer

	// HighlightUnreachable styles unreachable blocks in the rendering
	HighlightUnreachable bool

	// Configuration
	ConfigPath string

	// Analysis options
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string
}

// Validate checks the request for obvious mistakes
func (r *GraphRequest) Validate() error {
	if len(r.Paths) == 0 {
		return NewInvalidInputError("no input paths specified", nil)
	}
	switch r.OutputFormat {
	case OutputFormatMermaid, OutputFormatText, OutputFormatJSON, OutputFormatYAML:
	default:
		return NewUnsupportedFormatError(string(r.OutputFormat))
	}
	return nil
}

// FunctionGraph is the rendered control flow graph of one function
type FunctionGraph struct {
	Name     string `json:"name" yaml:"name"`
	FilePath string `json:"file_path" yaml:"file_path"`
	Blocks   int    `json:"blocks" yaml:"blocks"`
	Edges    int    `json:"edges" yaml:"edges"`
	Mermaid  string `json:"mermaid" yaml:"mermaid"`
}

// GraphResponse represents the complete export result
type GraphResponse struct {
	Graphs []FunctionGraph `json:"graphs" yaml:"graphs"`

	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	Version     string `json:"version" yaml:"version"`
}

// GraphService defines the core business logic for CFG export
type GraphService interface {
	// Export builds and renders control flow graphs for the request
	Export(ctx context.Context, req GraphRequest) (*GraphResponse, error)
}

// GraphWriter writes a rendered graph response
type GraphWriter interface {
	Write(response *GraphResponse, format OutputFormat, writer io.Writer) error
}
