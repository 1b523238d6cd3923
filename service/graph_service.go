package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/flowscope/flowscope/domain"
	"github.com/flowscope/flowscope/internal/analyzer"
	"github.com/flowscope/flowscope/internal/parser"
	"github.com/flowscope/flowscope/internal/version"
)

// GraphServiceImpl implements the GraphService interface
type GraphServiceImpl struct{}

// NewGraphService creates a new graph service implementation
func NewGraphService() *GraphServiceImpl {
	return &GraphServiceImpl{}
}

// Export builds and renders control flow graphs for the request
func (s *GraphServiceImpl) Export(ctx context.Context, req domain.GraphRequest) (*domain.GraphResponse, error) {
	var graphs []domain.FunctionGraph
	var warnings, errors []string

	exporter := analyzer.NewMermaidExporter()

	for _, filePath := range req.Paths {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("graph export cancelled: %w", ctx.Err())
		default:
		}

		fileGraphs, fileWarnings, fileErrors := s.exportFile(filePath, req, exporter)
		graphs = append(graphs, fileGraphs...)
		warnings = append(warnings, fileWarnings...)
		errors = append(errors, fileErrors...)
	}

	if req.Function != "" && len(graphs) == 0 && len(errors) == 0 {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("function not found: %s", req.Function), nil)
	}

	return &domain.GraphResponse{
		Graphs:      graphs,
		Warnings:    warnings,
		Errors:      errors,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
	}, nil
}

// exportFile renders the graphs of a single file
func (s *GraphServiceImpl) exportFile(filePath string, req domain.GraphRequest, exporter *analyzer.MermaidExporter) ([]domain.FunctionGraph, []string, []string) {
	var warnings, errors []string

	p := parser.NewParser()
	defer p.Close()

	ast, err := p.ReadAndParse(filePath)
	if err != nil {
		errors = append(errors, fmt.Sprintf("[%s] %v", filePath, err))
		return nil, warnings, errors
	}

	builder := analyzer.NewCFGBuilder()
	cfgs, err := builder.BuildAll(ast)
	if err != nil {
		for _, line := range strings.Split(err.Error(), "\n") {
			warnings = append(warnings, fmt.Sprintf("[%s] skipped %s", filePath, line))
		}
	}

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		if req.Function != "" && name != req.Function {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var graphs []domain.FunctionGraph
	for _, name := range names {
		cfg := cfgs[name]

		var mermaid string
		if req.HighlightUnreachable {
			result := analyzer.NewReachabilityAnalyzer(cfg).Analyze()
			mermaid = exporter.ExportHighlighted(cfg, result)
		} else {
			mermaid = exporter.Export(cfg)
		}

		graphs = append(graphs, domain.FunctionGraph{
			Name:     name,
			FilePath: filePath,
			Blocks:   cfg.NumBlocks(),
			Edges:    cfg.NumEdges(),
			Mermaid:  mermaid,
		})
	}
	return graphs, warnings, errors
}
