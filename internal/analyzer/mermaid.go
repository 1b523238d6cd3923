package analyzer

import (
	"fmt"
	"sort"
	"strings"
)

// MermaidExporter renders a CFG as a Mermaid flowchart. Output is
// deterministic: nodes appear in arena order and edges in insertion
// order, so the same graph always renders to the same text.
type MermaidExporter struct{}

// NewMermaidExporter creates a new exporter
func NewMermaidExporter() *MermaidExporter {
	return &MermaidExporter{}
}

// Export renders one CFG
func (m *MermaidExporter) Export(cfg *CFG) string {
	return m.render(cfg, nil)
}

// ExportHighlighted renders one CFG with its unreachable blocks styled
func (m *MermaidExporter) ExportHighlighted(cfg *CFG, result *ReachabilityResult) string {
	return m.render(cfg, result)
}

// ExportAll renders a set of CFGs as one document, each graph preceded
// by a comment naming its function, in name order
func (m *MermaidExporter) ExportAll(cfgs map[string]*CFG) string {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%%%% %s\n%s", name, m.Export(cfgs[name])))
	}
	return strings.Join(parts, "\n")
}

func (m *MermaidExporter) render(cfg *CFG, result *ReachabilityResult) string {
	var sb strings.Builder
	sb.WriteString("flowchart TD\n")
	for _, blk := range cfg.Blocks {
		fmt.Fprintf(&sb, "  node%d%s\n", blk.ID, nodeShape(blk))
	}
	for _, blk := range cfg.Blocks {
		for _, e := range blk.Successors {
			sb.WriteString("  ")
			sb.WriteString(edgeLine(cfg, blk, e))
			sb.WriteByte('\n')
		}
	}
	if result != nil {
		var dead []string
		for _, blk := range cfg.Blocks {
			if !result.IsReachable(blk.ID) {
				dead = append(dead, fmt.Sprintf("node%d", blk.ID))
			}
		}
		if len(dead) > 0 {
			sb.WriteString("  classDef unreachable fill:#fdd,stroke:#d66\n")
			fmt.Fprintf(&sb, "  class %s unreachable\n", strings.Join(dead, ","))
		}
	}
	return sb.String()
}

// nodeShape picks the Mermaid shape for a block: double circles for the
// sentinels, subroutine boxes for synthetic blocks, rectangles for
// plain statement blocks
func nodeShape(blk *BasicBlock) string {
	switch blk.Kind {
	case BlockEntry:
		return `((("Start")))`
	case BlockExit:
		return `((("End")))`
	}
	label := blockLabel(blk)
	if blk.Kind.IsMeta() {
		return `[["` + label + `"]]`
	}
	return `["` + label + `"]`
}

func blockLabel(blk *BasicBlock) string {
	if blk.IsEmpty() {
		return "(empty)"
	}
	lines := make([]string, 0, len(blk.Statements))
	for _, stmt := range blk.Statements {
		lines = append(lines, escapeLabel(firstLine(stmt.Src)))
	}
	return strings.Join(lines, `\n`)
}

func edgeLine(cfg *CFG, blk *BasicBlock, e Edge) string {
	label := edgeLabel(blk, e)
	// Edges into the terminal block render thick
	if e.To == cfg.Exit {
		if label == "" {
			return fmt.Sprintf("node%d ==> node%d", e.From, e.To)
		}
		return fmt.Sprintf("node%d == \"%s\" ==> node%d", e.From, label, e.To)
	}
	if label == "" {
		return fmt.Sprintf("node%d --> node%d", e.From, e.To)
	}
	return fmt.Sprintf("node%d -- \"%s\" --> node%d", e.From, label, e.To)
}

// edgeLabel describes a branch: true edges carry the condition text,
// false edges read "else"
func edgeLabel(blk *BasicBlock, e Edge) string {
	switch e.Type {
	case EdgeNormal:
		return ""
	case EdgeCondTrue:
		if len(blk.Statements) > 0 {
			return escapeLabel(firstLine(blk.Statements[len(blk.Statements)-1].Src))
		}
		return "true"
	case EdgeCondFalse:
		return "else"
	case EdgeException:
		return "Exception raised"
	case EdgeLoop:
		return "Loop continue"
	default:
		return e.Type.String()
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
