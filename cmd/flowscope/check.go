package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/flowscope/flowscope/app"
	"github.com/flowscope/flowscope/domain"
	"github.com/flowscope/flowscope/internal/config"
	"github.com/flowscope/flowscope/internal/version"
	"github.com/flowscope/flowscope/service"
	"github.com/spf13/cobra"
)

// CheckExitError is a custom error type for check command exit codes
type CheckExitError struct {
	Code    int
	Message string
}

func (e *CheckExitError) Error() string {
	return e.Message
}

var (
	checkMaxCritical   int
	checkAllowWarnings bool
	checkVerbose       bool
	checkJSON          bool
	checkConfigPath    string
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Fast dead code gate for CI/CD pipelines",
		Long: `Run the dead code analysis against configurable thresholds for CI/CD
integration.

Exit codes:
  0 - All checks pass
  1 - Threshold(s) violated
  2 - Analysis error (file not found, parse error, etc.)

Examples:
  # Fail on any critical finding
  flowscope check src/

  # Tolerate a known backlog
  flowscope check --max-critical 5 src/

  # Ignore warning-level findings entirely
  flowscope check --allow-warnings src/

  # JSON output for machine parsing
  flowscope check --json src/`,
		RunE:          runCheck,
		SilenceUsage:  true, // Don't print usage on errors (we handle our own output)
		SilenceErrors: true, // Don't print error messages (we handle our own output)
	}

	cmd.Flags().IntVar(&checkMaxCritical, "max-critical", 0,
		"Maximum allowed critical findings")
	cmd.Flags().BoolVar(&checkAllowWarnings, "allow-warnings", false,
		"Allow warning-level findings without failing")
	cmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false,
		"Show detailed output")
	cmd.Flags().BoolVar(&checkJSON, "json", false,
		"Output results as JSON")
	cmd.Flags().StringVarP(&checkConfigPath, "config", "c", "",
		"Path to config file")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return &CheckExitError{Code: 2, Message: "no paths specified"}
	}

	startTime := time.Now()

	cfg, err := config.LoadConfigWithTarget(checkConfigPath, args[0])
	if err != nil {
		return &CheckExitError{Code: 2, Message: fmt.Sprintf("failed to load configuration: %v", err)}
	}

	// Apply config values for flags not explicitly set on CLI
	if !cmd.Flags().Changed("max-critical") && cfg.DeadCode.MaxCritical > 0 {
		checkMaxCritical = cfg.DeadCode.MaxCritical
	}

	pm := service.NewProgressManager(!checkJSON)
	defer pm.Close()

	req := domain.DeadCodeRequest{
		Paths:           args,
		OutputFormat:    domain.OutputFormatText,
		MinSeverity:     domain.DeadCodeSeverityInfo,
		SortBy:          domain.DeadCodeSortBySeverity,
		Recursive:       cfg.Analysis.Recursive,
		IncludePatterns: cfg.Analysis.IncludePatterns,
		ExcludePatterns: cfg.Analysis.ExcludePatterns,
	}

	uc := app.NewDeadCodeUseCaseWithProgress(pm)
	resp, err := uc.Execute(context.Background(), req)
	if err != nil {
		return &CheckExitError{Code: 2, Message: err.Error()}
	}

	result := &domain.CheckResult{
		Passed:     true,
		Violations: []domain.CheckViolation{},
		Summary: domain.CheckSummary{
			FilesAnalyzed:    resp.Summary.FilesAnalyzed,
			DeadCodeFindings: resp.Summary.TotalFindings,
			CriticalFindings: resp.Summary.CriticalFindings,
		},
	}

	if resp.Summary.CriticalFindings > checkMaxCritical {
		result.Passed = false
		result.Violations = append(result.Violations, domain.CheckViolation{
			Rule:      "max-critical",
			Severity:  "error",
			Message:   fmt.Sprintf("Found %d critical dead code findings", resp.Summary.CriticalFindings),
			Actual:    strconv.Itoa(resp.Summary.CriticalFindings),
			Threshold: strconv.Itoa(checkMaxCritical),
		})
	}

	if !checkAllowWarnings && resp.Summary.WarningFindings > 0 {
		result.Passed = false
		result.Violations = append(result.Violations, domain.CheckViolation{
			Rule:      "no-warnings",
			Severity:  "warning",
			Message:   fmt.Sprintf("Found %d warning-level dead code findings", resp.Summary.WarningFindings),
			Actual:    strconv.Itoa(resp.Summary.WarningFindings),
			Threshold: "0",
		})
	}

	if checkVerbose {
		for _, fn := range resp.Functions {
			for _, finding := range fn.Findings {
				result.Violations = append(result.Violations, domain.CheckViolation{
					Rule:     "dead-code",
					Severity: string(finding.Severity),
					Message:  finding.Reason,
					Location: fmt.Sprintf("%s:%d", finding.Location.FilePath, finding.Location.StartLine),
				})
			}
		}
	}

	return outputCheckResult(result, startTime)
}

func outputCheckResult(result *domain.CheckResult, startTime time.Time) error {
	result.Duration = time.Since(startTime).Milliseconds()
	result.GeneratedAt = time.Now().Format(time.RFC3339)
	result.Version = version.Version
	result.ExitCode = 0
	if !result.Passed {
		result.ExitCode = 1
	}
	result.Summary.TotalViolations = len(result.Violations)

	if checkJSON {
		return outputCheckJSON(result)
	}
	return outputCheckText(result)
}

func outputCheckText(result *domain.CheckResult) error {
	if result.Passed {
		fmt.Println("PASS: No dead code above thresholds")
		if checkVerbose {
			fmt.Printf("  Files analyzed: %d\n", result.Summary.FilesAnalyzed)
			fmt.Printf("  Dead code findings: %d\n", result.Summary.DeadCodeFindings)
			fmt.Printf("  Duration: %dms\n", result.Duration)
		}
		return nil
	}

	fmt.Println("FAIL: Dead code check failed")
	fmt.Printf("  Violations: %d\n", result.Summary.TotalViolations)

	for _, v := range result.Violations {
		severity := "ERROR"
		if v.Severity != "error" {
			severity = "WARN"
		}
		fmt.Printf("  [%s] %s: %s\n", severity, v.Rule, v.Message)
		if checkVerbose && v.Location != "" {
			fmt.Printf("         at %s\n", v.Location)
		}
	}

	if checkVerbose {
		fmt.Printf("\nSummary:\n")
		fmt.Printf("  Files: %d\n", result.Summary.FilesAnalyzed)
		fmt.Printf("  Dead code findings: %d\n", result.Summary.DeadCodeFindings)
		fmt.Printf("  Critical findings: %d\n", result.Summary.CriticalFindings)
		fmt.Printf("  Duration: %dms\n", result.Duration)
	}

	return &CheckExitError{Code: 1, Message: ""}
}

func outputCheckJSON(result *domain.CheckResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return &CheckExitError{Code: 2, Message: fmt.Sprintf("failed to encode JSON: %v", err)}
	}

	if !result.Passed {
		return &CheckExitError{Code: 1, Message: ""}
	}
	return nil
}
