package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flowscope/flowscope/domain"
)

// OutputFormatterImpl implements the DeadCodeFormatter interface
type OutputFormatterImpl struct{}

// NewOutputFormatter creates a new output formatter
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{}
}

// WriteJSON writes data as indented JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	defer encoder.Close()
	return encoder.Encode(data)
}

// Format formats the analysis response according to the specified format
func (f *OutputFormatterImpl) Format(response *domain.DeadCodeResponse, format domain.OutputFormat) (string, error) {
	var sb strings.Builder
	if err := f.Write(response, format, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write writes the formatted output to the writer
func (f *OutputFormatterImpl) Write(response *domain.DeadCodeResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatText:
		return f.writeText(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// writeText writes the dead code response as plain text
func (f *OutputFormatterImpl) writeText(response *domain.DeadCodeResponse, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== Dead Code Analysis ===\n\n")
	fmt.Fprintf(writer, "Generated: %s\n", response.GeneratedAt)
	fmt.Fprintf(writer, "Version: %s\n\n", response.Version)

	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Files analyzed: %d\n", response.Summary.FilesAnalyzed)
	fmt.Fprintf(writer, "  Functions analyzed: %d\n", response.Summary.FunctionsAnalyzed)
	if response.Summary.FunctionsSkipped > 0 {
		fmt.Fprintf(writer, "  Functions skipped: %d\n", response.Summary.FunctionsSkipped)
	}
	fmt.Fprintf(writer, "  Total findings: %d\n", response.Summary.TotalFindings)
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "Severity Distribution:\n")
	fmt.Fprintf(writer, "  Critical: %d\n", response.Summary.CriticalFindings)
	fmt.Fprintf(writer, "  Warning: %d\n", response.Summary.WarningFindings)
	fmt.Fprintf(writer, "  Info: %d\n", response.Summary.InfoFindings)
	fmt.Fprintf(writer, "\n")

	for _, fn := range response.Functions {
		if len(fn.Findings) == 0 {
			continue
		}
		fmt.Fprintf(writer, "%s: %s\n", fn.FilePath, fn.Name)
		for _, finding := range fn.Findings {
			severityIndicator := ""
			switch finding.Severity {
			case domain.DeadCodeSeverityCritical:
				severityIndicator = " [CRITICAL]"
			case domain.DeadCodeSeverityWarning:
				severityIndicator = " [WARNING]"
			case domain.DeadCodeSeverityInfo:
				severityIndicator = " [INFO]"
			}
			fmt.Fprintf(writer, "  Line %d-%d: %s%s\n",
				finding.Location.StartLine, finding.Location.EndLine,
				finding.Reason, severityIndicator)
			fmt.Fprintf(writer, "    %s\n", firstCodeLine(finding.Code))
		}
	}

	if response.Summary.TotalFindings == 0 {
		fmt.Fprintf(writer, "No dead code found.\n")
	}

	if len(response.Warnings) > 0 {
		fmt.Fprintf(writer, "\nWarnings:\n")
		for _, w := range response.Warnings {
			fmt.Fprintf(writer, "  - %s\n", w)
		}
	}
	if len(response.Errors) > 0 {
		fmt.Fprintf(writer, "\nErrors:\n")
		for _, e := range response.Errors {
			fmt.Fprintf(writer, "  - %s\n", e)
		}
	}
	return nil
}

// firstCodeLine trims a code snippet down to its first line
func firstCodeLine(code string) string {
	if i := strings.IndexByte(code, '\n'); i >= 0 {
		return strings.TrimSpace(code[:i]) + " ..."
	}
	return strings.TrimSpace(code)
}

// GraphWriterImpl implements the GraphWriter interface
type GraphWriterImpl struct{}

// NewGraphWriter creates a new graph writer
func NewGraphWriter() *GraphWriterImpl {
	return &GraphWriterImpl{}
}

// Write writes a rendered graph response
func (w *GraphWriterImpl) Write(response *domain.GraphResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatMermaid, domain.OutputFormatText:
		return w.writeMermaid(response, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

// writeMermaid emits the raw Mermaid sources, one block per function
func (w *GraphWriterImpl) writeMermaid(response *domain.GraphResponse, writer io.Writer) error {
	for i, graph := range response.Graphs {
		if i > 0 {
			fmt.Fprintln(writer)
		}
		fmt.Fprintf(writer, "%%%% %s (%s)\n", graph.Name, graph.FilePath)
		fmt.Fprintln(writer, graph.Mermaid)
	}
	for _, warning := range response.Warnings {
		fmt.Fprintf(writer, "%%%% warning: %s\n", warning)
	}
	return nil
}
