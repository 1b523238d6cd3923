package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "flowscope"

	// ConfigFileName is the default config file name
	ConfigFileName = ".flowscope.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "FLOWSCOPE"
)

// Analysis type constants
const (
	AnalysisDeadCode = "deadcode"
	AnalysisGraph    = "graph"
)

// Output format constants
const (
	OutputFormatText    = "text"
	OutputFormatJSON    = "json"
	OutputFormatYAML    = "yaml"
	OutputFormatMermaid = "mermaid"
)

// PythonExtensions lists the file extensions treated as Python sources.
var PythonExtensions = []string{".py", ".pyi"}
