package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flowscope/flowscope/domain"
	"github.com/flowscope/flowscope/internal/analyzer"
	"github.com/flowscope/flowscope/internal/parser"
	"github.com/flowscope/flowscope/internal/version"
)

// DeadCodeServiceImpl implements the DeadCodeService interface
type DeadCodeServiceImpl struct {
	progress domain.ProgressManager
}

// NewDeadCodeService creates a new dead code service implementation
func NewDeadCodeService() *DeadCodeServiceImpl {
	return &DeadCodeServiceImpl{}
}

// NewDeadCodeServiceWithProgress creates a service that reports progress
func NewDeadCodeServiceWithProgress(pm domain.ProgressManager) *DeadCodeServiceImpl {
	return &DeadCodeServiceImpl{progress: pm}
}

// fileOutcome is the per-file analysis result before merging
type fileOutcome struct {
	functions []domain.FunctionDeadCode
	analyzed  int
	skipped   int
	warnings  []string
	errors    []string
}

// Analyze performs dead code analysis on multiple files
func (s *DeadCodeServiceImpl) Analyze(ctx context.Context, req domain.DeadCodeRequest) (*domain.DeadCodeResponse, error) {
	outcomes := make([]*fileOutcome, len(req.Paths))

	var task domain.TaskProgress = &NoOpTaskProgress{}
	if s.progress != nil {
		task = s.progress.StartTask("Analyzing files", len(req.Paths))
	}
	defer task.Complete()

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, filePath := range req.Paths {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
			}
			outcomes[i] = s.analyzeFile(filePath, req)
			task.Increment(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dead code analysis cancelled: %w", err)
	}

	// Merge in input order so output is deterministic
	var functions []domain.FunctionDeadCode
	var warnings, errors []string
	summary := domain.DeadCodeSummary{}

	for _, outcome := range outcomes {
		if outcome == nil {
			continue
		}
		functions = append(functions, outcome.functions...)
		warnings = append(warnings, outcome.warnings...)
		errors = append(errors, outcome.errors...)
		summary.FunctionsAnalyzed += outcome.analyzed
		summary.FunctionsSkipped += outcome.skipped
		if len(outcome.errors) == 0 {
			summary.FilesAnalyzed++
		}
	}

	functions = s.sortFunctions(functions, req.SortBy)

	for _, fn := range functions {
		summary.TotalFindings += len(fn.Findings)
		for _, finding := range fn.Findings {
			switch finding.Severity {
			case domain.DeadCodeSeverityCritical:
				summary.CriticalFindings++
			case domain.DeadCodeSeverityWarning:
				summary.WarningFindings++
			case domain.DeadCodeSeverityInfo:
				summary.InfoFindings++
			}
		}
	}

	return &domain.DeadCodeResponse{
		Functions:   functions,
		Summary:     summary,
		Warnings:    warnings,
		Errors:      errors,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
	}, nil
}

// AnalyzeFile analyzes a single Python file for dead code
func (s *DeadCodeServiceImpl) AnalyzeFile(ctx context.Context, filePath string, req domain.DeadCodeRequest) (*domain.DeadCodeResponse, error) {
	req.Paths = []string{filePath}
	return s.Analyze(ctx, req)
}

// analyzeFile performs dead code analysis on a single file
func (s *DeadCodeServiceImpl) analyzeFile(filePath string, req domain.DeadCodeRequest) *fileOutcome {
	outcome := &fileOutcome{}

	p := parser.NewParser()
	defer p.Close()

	ast, err := p.ReadAndParse(filePath)
	if err != nil {
		outcome.errors = append(outcome.errors, fmt.Sprintf("[%s] %v", filePath, err))
		return outcome
	}

	builder := analyzer.NewCFGBuilder()
	cfgs, err := builder.BuildAll(ast)
	if err != nil {
		// Build errors are per function and the rest of the file is
		// still usable, report them as warnings
		for _, line := range strings.Split(err.Error(), "\n") {
			outcome.warnings = append(outcome.warnings, fmt.Sprintf("[%s] skipped %s", filePath, line))
			outcome.skipped++
		}
	}

	detector := analyzer.NewDeadCodeDetector()
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cfg := cfgs[name]
		outcome.analyzed++

		findings, reach := detector.DetectWithReachability(cfg)
		converted := s.convertFindings(findings, req)
		if len(converted) == 0 {
			continue
		}
		outcome.functions = append(outcome.functions, domain.FunctionDeadCode{
			Name:            name,
			FilePath:        filePath,
			Findings:        converted,
			TotalBlocks:     reach.TotalBlocks,
			ReachableBlocks: reach.ReachableCount,
		})
	}
	return outcome
}

// convertFindings maps analyzer findings to domain findings, applying
// the detection and severity filters from the request
func (s *DeadCodeServiceImpl) convertFindings(findings []*analyzer.DeadCodeFinding, req domain.DeadCodeRequest) []domain.DeadCodeFinding {
	var converted []domain.DeadCodeFinding
	for _, finding := range findings {
		if !s.detectionEnabled(finding.Reason, req) {
			continue
		}
		severity := SeverityForReason(finding.Reason)
		if req.MinSeverity != "" && severity.Rank() < req.MinSeverity.Rank() {
			continue
		}
		converted = append(converted, domain.DeadCodeFinding{
			Location: domain.DeadCodeLocation{
				FilePath:    finding.Location.File,
				StartLine:   finding.Location.StartLine,
				StartColumn: finding.Location.StartCol,
				EndLine:     finding.Location.EndLine,
				EndColumn:   finding.Location.EndCol,
			},
			FunctionName: finding.FunctionName,
			Code:         finding.Code,
			Reason:       finding.Reason,
			Severity:     severity,
		})
	}
	return converted
}

// detectionEnabled checks the per-category detection switches
func (s *DeadCodeServiceImpl) detectionEnabled(reason string, req domain.DeadCodeRequest) bool {
	// Zero-value requests enable everything
	if !req.DetectAfterJump && !req.DetectConstantConditions && !req.DetectUnreachableBranches {
		return true
	}
	switch {
	case strings.HasPrefix(reason, "unreachable after"):
		return req.DetectAfterJump
	case strings.HasPrefix(reason, "condition is always"):
		return req.DetectConstantConditions
	default:
		return req.DetectUnreachableBranches
	}
}

// SeverityForReason maps a finding reason to its severity. Code cut off
// by return or raise is certainly dead, loop jumps and constant
// conditions are often intentional, everything else is informational.
func SeverityForReason(reason string) domain.DeadCodeSeverity {
	switch {
	case strings.HasPrefix(reason, "unreachable after return"),
		strings.HasPrefix(reason, "unreachable after raise"):
		return domain.DeadCodeSeverityCritical
	case strings.HasPrefix(reason, "unreachable after break"),
		strings.HasPrefix(reason, "unreachable after continue"),
		strings.HasPrefix(reason, "condition is always"):
		return domain.DeadCodeSeverityWarning
	default:
		return domain.DeadCodeSeverityInfo
	}
}

// sortFunctions sorts functions based on the specified criteria
func (s *DeadCodeServiceImpl) sortFunctions(functions []domain.FunctionDeadCode, sortBy domain.DeadCodeSortCriteria) []domain.FunctionDeadCode {
	sorted := make([]domain.FunctionDeadCode, len(functions))
	copy(sorted, functions)

	switch sortBy {
	case domain.DeadCodeSortByLine:
		sort.SliceStable(sorted, func(i, j int) bool {
			return firstFindingLine(sorted[i]) < firstFindingLine(sorted[j])
		})
	case domain.DeadCodeSortByFile:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].FilePath < sorted[j].FilePath
		})
	case domain.DeadCodeSortByFunction:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Name < sorted[j].Name
		})
	default:
		sort.SliceStable(sorted, func(i, j int) bool {
			return maxSeverity(sorted[i]) > maxSeverity(sorted[j])
		})
	}
	return sorted
}

// maxSeverity returns the highest severity rank among a function's findings
func maxSeverity(fn domain.FunctionDeadCode) int {
	highest := 0
	for _, finding := range fn.Findings {
		if rank := finding.Severity.Rank(); rank > highest {
			highest = rank
		}
	}
	return highest
}

// firstFindingLine returns the line of a function's first finding
func firstFindingLine(fn domain.FunctionDeadCode) int {
	if len(fn.Findings) == 0 {
		return 0
	}
	return fn.Findings[0].Location.StartLine
}
