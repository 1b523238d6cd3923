package domain

import (
	"errors"
	"testing"
)

// Error tests

func TestDomainError_Error(t *testing.T) {
	// Without cause
	err := DomainError{
		Code:    "TEST_ERROR",
		Message: "Test message",
	}
	expected := "[TEST_ERROR] Test message"
	if err.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, err.Error())
	}

	// With cause
	cause := errors.New("underlying error")
	errWithCause := DomainError{
		Code:    "TEST_ERROR",
		Message: "Test message",
		Cause:   cause,
	}
	expectedWithCause := "[TEST_ERROR] Test message: underlying error"
	if errWithCause.Error() != expectedWithCause {
		t.Errorf("Expected '%s', got '%s'", expectedWithCause, errWithCause.Error())
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := DomainError{
		Code:    "TEST_ERROR",
		Message: "Test message",
		Cause:   cause,
	}

	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	errNoCause := DomainError{
		Code:    "TEST_ERROR",
		Message: "Test message",
	}
	if errNoCause.Unwrap() != nil {
		t.Error("Unwrap should return nil when no cause")
	}
}

func TestNewDomainError(t *testing.T) {
	cause := errors.New("cause")
	err := NewDomainError("CODE", "message", cause)

	domainErr, ok := err.(DomainError)
	if !ok {
		t.Fatal("Should return DomainError type")
	}
	if domainErr.Code != "CODE" {
		t.Errorf("Expected code 'CODE', got '%s'", domainErr.Code)
	}
	if domainErr.Message != "message" {
		t.Errorf("Expected message 'message', got '%s'", domainErr.Message)
	}
	if domainErr.Cause != cause {
		t.Error("Cause should be set")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"invalid input", NewInvalidInputError("bad input", nil), ErrCodeInvalidInput},
		{"file not found", NewFileNotFoundError("/path/to/file", nil), ErrCodeFileNotFound},
		{"parse error", NewParseError("test.py", nil), ErrCodeParseError},
		{"analysis error", NewAnalysisError("analysis failed", nil), ErrCodeAnalysisError},
		{"config error", NewConfigError("invalid config", nil), ErrCodeConfigError},
		{"output error", NewOutputError("write failed", nil), ErrCodeOutputError},
		{"unsupported format", NewUnsupportedFormatError("xml"), ErrCodeUnsupportedFormat},
		{"validation error", NewValidationError("validation failed"), ErrCodeInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			domainErr, ok := tc.err.(DomainError)
			if !ok {
				t.Fatal("Should return DomainError type")
			}
			if domainErr.Code != tc.code {
				t.Errorf("Expected code '%s', got '%s'", tc.code, domainErr.Code)
			}
		})
	}
}

func TestNewFileNotFoundError_Message(t *testing.T) {
	err := NewFileNotFoundError("/path/to/file", nil)

	domainErr := err.(DomainError)
	if domainErr.Message != "file not found: /path/to/file" {
		t.Errorf("Unexpected message: %s", domainErr.Message)
	}
}

// Output format tests

func TestOutputFormat_Constants(t *testing.T) {
	formats := map[OutputFormat]string{
		OutputFormatText:    "text",
		OutputFormatJSON:    "json",
		OutputFormatYAML:    "yaml",
		OutputFormatMermaid: "mermaid",
	}

	for format, expected := range formats {
		if string(format) != expected {
			t.Errorf("OutputFormat %s should equal '%s'", format, expected)
		}
	}
}

// Severity tests

func TestDeadCodeSeverity_Constants(t *testing.T) {
	severities := map[DeadCodeSeverity]string{
		DeadCodeSeverityCritical: "critical",
		DeadCodeSeverityWarning:  "warning",
		DeadCodeSeverityInfo:     "info",
	}

	for severity, expected := range severities {
		if string(severity) != expected {
			t.Errorf("DeadCodeSeverity %s should equal '%s'", severity, expected)
		}
	}
}

func TestDeadCodeSeverity_Rank(t *testing.T) {
	if DeadCodeSeverityCritical.Rank() <= DeadCodeSeverityWarning.Rank() {
		t.Error("critical should rank above warning")
	}
	if DeadCodeSeverityWarning.Rank() <= DeadCodeSeverityInfo.Rank() {
		t.Error("warning should rank above info")
	}
	if DeadCodeSeverity("bogus").Rank() != 0 {
		t.Error("unknown severity should rank 0")
	}
}

func TestDeadCodeSortCriteria_Constants(t *testing.T) {
	criteria := map[DeadCodeSortCriteria]string{
		DeadCodeSortBySeverity: "severity",
		DeadCodeSortByLine:     "line",
		DeadCodeSortByFile:     "file",
		DeadCodeSortByFunction: "function",
	}

	for c, expected := range criteria {
		if string(c) != expected {
			t.Errorf("DeadCodeSortCriteria %s should equal '%s'", c, expected)
		}
	}
}

// Struct field tests

func TestDeadCodeFinding_Fields(t *testing.T) {
	finding := DeadCodeFinding{
		Location: DeadCodeLocation{
			FilePath:  "app.py",
			StartLine: 10,
			EndLine:   12,
		},
		FunctionName: "process",
		Code:         "return cached",
		Reason:       "unreachable after return",
		Severity:     DeadCodeSeverityCritical,
	}

	if finding.Location.FilePath != "app.py" {
		t.Error("Location not stored")
	}
	if finding.Severity != DeadCodeSeverityCritical {
		t.Error("Severity not stored")
	}
	if finding.Reason != "unreachable after return" {
		t.Error("Reason not stored")
	}
}

func TestDeadCodeResponse_Fields(t *testing.T) {
	resp := DeadCodeResponse{
		Functions: []FunctionDeadCode{
			{Name: "f", FilePath: "app.py", TotalBlocks: 5, ReachableBlocks: 4},
		},
		Summary: DeadCodeSummary{FilesAnalyzed: 1, TotalFindings: 1},
	}

	if len(resp.Functions) != 1 || resp.Functions[0].Name != "f" {
		t.Error("Functions not stored")
	}
	if resp.Summary.FilesAnalyzed != 1 {
		t.Error("Summary not stored")
	}
}
