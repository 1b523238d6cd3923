package config

import "fmt"

// ProjectType represents the type of Python project
type ProjectType string

const (
	ProjectTypeGeneric ProjectType = "generic"
	ProjectTypeDjango  ProjectType = "django"
	ProjectTypeLibrary ProjectType = "library"
	ProjectTypeScripts ProjectType = "scripts"
)

// Strictness represents the analysis strictness level
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// ProjectPreset holds configuration presets for different project types
type ProjectPreset struct {
	IncludePatterns []string
	ExcludePatterns []string
}

// StrictnessPreset holds filter values for different strictness levels
type StrictnessPreset struct {
	MinSeverity              string
	DetectConstantConditions bool
	MaxCritical              int
}

// GetProjectPresets returns presets for different project types
func GetProjectPresets() map[ProjectType]ProjectPreset {
	return map[ProjectType]ProjectPreset{
		ProjectTypeGeneric: {
			IncludePatterns: []string{"*.py"},
			ExcludePatterns: []string{
				".venv",
				"venv",
				"__pycache__",
				".tox",
				"build",
				"dist",
			},
		},
		ProjectTypeDjango: {
			IncludePatterns: []string{"*.py"},
			ExcludePatterns: []string{
				".venv",
				"venv",
				"__pycache__",
				"migrations",
				"static",
				"media",
			},
		},
		ProjectTypeLibrary: {
			IncludePatterns: []string{"*.py", "*.pyi"},
			ExcludePatterns: []string{
				".venv",
				"venv",
				"__pycache__",
				".tox",
				"docs",
				"build",
				"dist",
			},
		},
		ProjectTypeScripts: {
			IncludePatterns: []string{"*.py"},
			ExcludePatterns: []string{
				"__pycache__",
			},
		},
	}
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed: {
			MinSeverity:              "critical",
			DetectConstantConditions: false,
			MaxCritical:              5,
		},
		StrictnessStandard: {
			MinSeverity:              "warning",
			DetectConstantConditions: true,
			MaxCritical:              0,
		},
		StrictnessStrict: {
			MinSeverity:              "info",
			DetectConstantConditions: true,
			MaxCritical:              0,
		},
	}
}

// GetMinimalConfigTemplate returns a small config with essential options only
func GetMinimalConfigTemplate() string {
	return `# flowscope configuration
dead_code:
  enabled: true
  min_severity: warning

output:
  format: text
`
}

// GetFullConfigTemplate returns a documented config for the given presets
func GetFullConfigTemplate(projectType ProjectType, strictness Strictness) string {
	project, ok := GetProjectPresets()[projectType]
	if !ok {
		project = GetProjectPresets()[ProjectTypeGeneric]
	}
	level, ok := GetStrictnessPresets()[strictness]
	if !ok {
		level = GetStrictnessPresets()[StrictnessStandard]
	}

	return fmt.Sprintf(`# flowscope configuration
# Generated for a %s project with %s strictness.

dead_code:
  enabled: true

  # Minimum severity to report: critical, warning, info
  min_severity: %s

  # Sorting criteria: severity, line, file, function
  sort_by: severity

  # Show surrounding source lines for each finding
  show_context: false
  context_lines: 3

  # Detection categories
  detect_after_jump: true
  detect_constant_conditions: %t
  detect_unreachable_branches: true

  # Critical findings tolerated by 'flowscope check' before it fails
  max_critical: %d

graph:
  # Style unreachable blocks in exported graphs
  highlight_unreachable: true

output:
  # Output format: text, json, yaml
  format: text
  show_details: false

analysis:
  recursive: true
  include_patterns:%s
  exclude_patterns:%s
`,
		projectType, strictness,
		level.MinSeverity,
		level.DetectConstantConditions,
		level.MaxCritical,
		yamlList(project.IncludePatterns),
		yamlList(project.ExcludePatterns),
	)
}

func yamlList(items []string) string {
	if len(items) == 0 {
		return " []"
	}
	out := ""
	for _, item := range items {
		out += fmt.Sprintf("\n    - %q", item)
	}
	return out
}
