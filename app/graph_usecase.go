package app

import (
	"context"

	"github.com/flowscope/flowscope/domain"
	servicepkg "github.com/flowscope/flowscope/service"
)

// GraphUseCase orchestrates the CFG export workflow.
type GraphUseCase struct {
	service    domain.GraphService
	fileHelper *FileHelper
}

// NewGraphUseCase creates a new graph use case.
func NewGraphUseCase() *GraphUseCase {
	return &GraphUseCase{
		service:    servicepkg.NewGraphService(),
		fileHelper: NewFileHelper(),
	}
}

// Execute performs the complete CFG export workflow.
func (uc *GraphUseCase) Execute(ctx context.Context, req domain.GraphRequest) (*domain.GraphResponse, error) {
	if req.OutputFormat == "" {
		req.OutputFormat = domain.OutputFormatMermaid
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	files, err := ResolveFilePaths(
		uc.fileHelper,
		req.Paths,
		req.Recursive,
		req.IncludePatterns,
		req.ExcludePatterns,
	)
	if err != nil {
		return nil, domain.NewFileNotFoundError("failed to collect files", err)
	}

	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no Python files found in the specified paths", nil)
	}

	req.Paths = files

	resp, err := uc.service.Export(ctx, req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}
