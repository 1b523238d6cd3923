package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/flowscope/flowscope/app"
	"github.com/flowscope/flowscope/domain"
	"github.com/flowscope/flowscope/service"
	"github.com/spf13/cobra"
)

var (
	graphOutputFormat string
	graphOutputPath   string
	graphFunction     string
	graphNoHighlight  bool
	graphNoRecursive  bool
)

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [path...]",
		Short: "Export control flow graphs as Mermaid diagrams",
		Long: `Build control flow graphs for Python functions and render them as
Mermaid flowcharts. Unreachable blocks are highlighted by default.

Examples:
  # Render all functions in a file
  flowscope graph app.py

  # Render a single function
  flowscope graph --function main app.py

  # Save to a file and paste into a Mermaid renderer
  flowscope graph -o cfg.mmd src/

  # Structured output with block and edge counts
  flowscope graph --format json src/`,
		RunE: runGraph,
	}

	cmd.Flags().StringVarP(&graphOutputFormat, "format", "f", "mermaid",
		"Output format: mermaid, json, yaml")
	cmd.Flags().StringVarP(&graphOutputPath, "output", "o", "",
		"Output file path (default: stdout)")
	cmd.Flags().StringVar(&graphFunction, "function", "",
		"Only export the function with this name")
	cmd.Flags().BoolVar(&graphNoHighlight, "no-highlight", false,
		"Do not highlight unreachable blocks")
	cmd.Flags().BoolVar(&graphNoRecursive, "no-recursive", false,
		"Do not descend into subdirectories")

	return cmd
}

func runGraph(cmd *cobra.Command, args []string) (err error) {
	if len(args) == 0 {
		return fmt.Errorf("no paths specified")
	}

	format := domain.OutputFormat(graphOutputFormat)

	req := domain.GraphRequest{
		Paths:                args,
		Function:             graphFunction,
		OutputFormat:         format,
		HighlightUnreachable: !graphNoHighlight,
		Recursive:            !graphNoRecursive,
	}

	uc := app.NewGraphUseCase()
	resp, err := uc.Execute(context.Background(), req)
	if err != nil {
		return err
	}

	writer, closeWriter, err := openOutput(graphOutputPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeWriter(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	gw := service.NewGraphWriter()
	if err := gw.Write(resp, format, writer); err != nil {
		return err
	}

	if graphOutputPath != "" {
		absPath, _ := filepath.Abs(graphOutputPath)
		fmt.Printf("Output saved to: %s\n", absPath)
	}
	return nil
}
