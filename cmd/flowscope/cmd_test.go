package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeCmd_FlagsExist(t *testing.T) {
	cmd := analyzeCmd()

	expectedFlags := []string{"format", "json", "yaml", "output", "config", "min-severity", "sort", "no-recursive", "no-progress"}
	for _, flagName := range expectedFlags {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}
}

func TestAnalyzeCmd_ShortFlags(t *testing.T) {
	cmd := analyzeCmd()

	shortFlags := map[string]string{
		"f": "format",
		"o": "output",
		"c": "config",
	}

	for short, long := range shortFlags {
		flag := cmd.Flags().ShorthandLookup(short)
		if flag == nil {
			t.Errorf("Missing short flag -%s for --%s", short, long)
		}
	}
}

func TestAnalyzeCmd_DefaultValues(t *testing.T) {
	cmd := analyzeCmd()

	formatFlag := cmd.Flags().Lookup("format")
	if formatFlag == nil {
		t.Fatal("format flag not found")
	}
	if formatFlag.DefValue != "text" {
		t.Errorf("Expected default format to be 'text', got '%s'", formatFlag.DefValue)
	}
}

func TestAnalyzeCmd_NoPathsError(t *testing.T) {
	cmd := analyzeCmd()
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil {
		t.Error("Expected error when no paths specified")
	}
}

func TestGraphCmd_FlagsExist(t *testing.T) {
	cmd := graphCmd()

	expectedFlags := []string{"format", "output", "function", "no-highlight", "no-recursive"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}

	formatFlag := cmd.Flags().Lookup("format")
	if formatFlag.DefValue != "mermaid" {
		t.Errorf("Expected default format to be 'mermaid', got '%s'", formatFlag.DefValue)
	}
}

func TestCheckCmd_FlagsExist(t *testing.T) {
	cmd := checkCmd()

	expectedFlags := []string{"max-critical", "allow-warnings", "verbose", "json", "config"}
	for _, flagName := range expectedFlags {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Missing expected flag: --%s", flagName)
		}
	}
}

func TestCheckCmd_NoPathsExitCode(t *testing.T) {
	cmd := checkCmd()
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	exitErr, ok := err.(*CheckExitError)
	if !ok {
		t.Fatalf("Expected CheckExitError, got %T", err)
	}
	if exitErr.Code != 2 {
		t.Errorf("Expected exit code 2, got %d", exitErr.Code)
	}
}

func TestCheckExitError_Error(t *testing.T) {
	err := &CheckExitError{Code: 1, Message: "threshold exceeded"}
	if err.Error() != "threshold exceeded" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestInitCmd_CreatesConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "flowscope.yaml")

	cmd := initCmd()
	cmd.SetArgs([]string{"--config", configPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Config file not created: %v", err)
	}
	if !strings.Contains(string(content), "dead_code:") {
		t.Errorf("Config missing dead_code section:\n%s", content)
	}
	if !strings.Contains(string(content), "min_severity:") {
		t.Errorf("Config missing min_severity:\n%s", content)
	}
}

func TestInitCmd_RefusesOverwrite(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "flowscope.yaml")
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	cmd := initCmd()
	cmd.SetArgs([]string{"--config", configPath})

	if err := cmd.Execute(); err == nil {
		t.Error("Expected error when config already exists")
	}
}

func TestInitCmd_ForceOverwrite(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "flowscope.yaml")
	if err := os.WriteFile(configPath, []byte("existing"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	cmd := initCmd()
	cmd.SetArgs([]string{"--config", configPath, "--force"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init --force failed: %v", err)
	}

	content, _ := os.ReadFile(configPath)
	if string(content) == "existing" {
		t.Error("Expected config to be overwritten")
	}
}

func TestInitCmd_Minimal(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "flowscope.yaml")

	cmd := initCmd()
	cmd.SetArgs([]string{"--config", configPath, "--minimal"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("init --minimal failed: %v", err)
	}

	content, _ := os.ReadFile(configPath)
	if strings.Contains(string(content), "include_patterns") {
		t.Errorf("Minimal config should not include analysis patterns:\n%s", content)
	}
}
