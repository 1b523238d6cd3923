package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowscope/flowscope/app"
	"github.com/flowscope/flowscope/domain"
	"github.com/flowscope/flowscope/service"
	"github.com/spf13/cobra"
)

var (
	analyzeOutputFormat string
	analyzeJSONOutput   bool
	analyzeYAMLOutput   bool
	analyzeOutputPath   string
	analyzeConfigPath   string
	analyzeMinSeverity  string
	analyzeSortBy       string
	analyzeNoRecursive  bool
	analyzeNoProgress   bool
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [path...]",
		Short: "Detect unreachable code in Python files",
		Long: `Analyze Python files and report statements that can never execute.

Examples:
  flowscope analyze src/
  flowscope analyze --min-severity critical src/
  flowscope analyze --json src/
  flowscope analyze --sort line app.py`,
		RunE: runAnalyze,
	}

	cmd.Flags().StringVarP(&analyzeOutputFormat, "format", "f", "text",
		"Output format: text, json, yaml")
	cmd.Flags().BoolVar(&analyzeJSONOutput, "json", false,
		"Output results as JSON (shorthand for --format json)")
	cmd.Flags().BoolVar(&analyzeYAMLOutput, "yaml", false,
		"Output results as YAML (shorthand for --format yaml)")
	cmd.Flags().StringVarP(&analyzeOutputPath, "output", "o", "",
		"Output file path (default: stdout)")
	cmd.Flags().StringVarP(&analyzeConfigPath, "config", "c", "",
		"Path to config file")
	cmd.Flags().StringVar(&analyzeMinSeverity, "min-severity", "",
		"Minimum severity to report: critical, warning, info")
	cmd.Flags().StringVar(&analyzeSortBy, "sort", "",
		"Sort findings by: severity, line, file, function")
	cmd.Flags().BoolVar(&analyzeNoRecursive, "no-recursive", false,
		"Do not descend into subdirectories")
	cmd.Flags().BoolVar(&analyzeNoProgress, "no-progress", false,
		"Disable the progress bar")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) (err error) {
	if len(args) == 0 {
		return fmt.Errorf("no paths specified")
	}

	format := domain.OutputFormatText
	if analyzeJSONOutput || analyzeOutputFormat == "json" {
		format = domain.OutputFormatJSON
	} else if analyzeYAMLOutput || analyzeOutputFormat == "yaml" {
		format = domain.OutputFormatYAML
	}

	// Start from config file values, then layer CLI flags on top
	loader := service.NewConfigurationLoader()
	var base *domain.DeadCodeRequest
	if analyzeConfigPath != "" {
		base, err = loader.LoadConfig(analyzeConfigPath)
		if err != nil {
			return err
		}
	} else {
		base = loader.LoadDefaultConfig()
	}

	override := &domain.DeadCodeRequest{
		Paths:        args,
		OutputFormat: format,
		MinSeverity:  domain.DeadCodeSeverity(analyzeMinSeverity),
		SortBy:       domain.DeadCodeSortCriteria(analyzeSortBy),
		NoProgress:   analyzeNoProgress,
	}
	req := *loader.MergeConfig(base, override)
	if analyzeNoRecursive {
		req.Recursive = false
	}
	req.OutputFormat = format

	// Progress bars are for humans reading text output
	pm := service.NewProgressManager(format == domain.OutputFormatText && !req.NoProgress)
	defer pm.Close()

	uc := app.NewDeadCodeUseCaseWithProgress(pm)
	resp, err := uc.Execute(context.Background(), req)
	if err != nil {
		return err
	}

	writer, closeWriter, err := openOutput(analyzeOutputPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeWriter(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	formatter := service.NewOutputFormatter()
	if err := formatter.Write(resp, format, writer); err != nil {
		return err
	}

	if analyzeOutputPath != "" {
		absPath, _ := filepath.Abs(analyzeOutputPath)
		fmt.Printf("Output saved to: %s\n", absPath)
	}
	return nil
}

// openOutput returns the output writer for a command, stdout when no
// path is given
func openOutput(path string) (*os.File, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
