package analyzer

import (
	"sort"
	"strings"

	"github.com/flowscope/flowscope/internal/parser"
)

// DeadCodeFinding is one contiguous stretch of unreachable code
type DeadCodeFinding struct {
	FunctionName string
	Location     parser.Location
	Code         string
	Reason       string
}

// DeadCodeDetector turns the unreachable blocks of a CFG into findings
// with source locations and a human readable reason
type DeadCodeDetector struct{}

// NewDeadCodeDetector creates a new detector
func NewDeadCodeDetector() *DeadCodeDetector {
	return &DeadCodeDetector{}
}

// Detect runs reachability analysis on one CFG and reports its dead code
func (d *DeadCodeDetector) Detect(cfg *CFG) []*DeadCodeFinding {
	findings, _ := d.DetectWithReachability(cfg)
	return findings
}

// DetectWithReachability runs a single reachability pass and returns both
// the findings and the underlying reachability result
func (d *DeadCodeDetector) DetectWithReachability(cfg *CFG) ([]*DeadCodeFinding, *ReachabilityResult) {
	result := NewReachabilityAnalyzer(cfg).Analyze()
	return d.findings(cfg, result), result
}

// DetectAll runs detection over a set of CFGs, typically the output of
// BuildAll, and returns all findings sorted by position
func (d *DeadCodeDetector) DetectAll(cfgs map[string]*CFG) []*DeadCodeFinding {
	var all []*DeadCodeFinding
	for _, cfg := range cfgs {
		all = append(all, d.Detect(cfg)...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		li, lj := all[i].Location, all[j].Location
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.StartLine != lj.StartLine {
			return li.StartLine < lj.StartLine
		}
		return li.StartCol < lj.StartCol
	})
	return all
}

func (d *DeadCodeDetector) findings(cfg *CFG, result *ReachabilityResult) []*DeadCodeFinding {
	var found []*DeadCodeFinding
	for _, id := range result.UnreachableBlocks {
		blk := cfg.Block(id)
		if blk.IsEmpty() {
			continue
		}
		first := blk.Statements[0]
		last := blk.Statements[len(blk.Statements)-1]
		loc := parser.Location{
			File:      first.Location.File,
			StartLine: first.Location.StartLine,
			StartCol:  first.Location.StartCol,
			EndLine:   last.Location.EndLine,
			EndCol:    last.Location.EndCol,
		}
		found = append(found, &DeadCodeFinding{
			FunctionName: cfg.Name,
			Location:     loc,
			Code:         firstLine(first.Src),
			Reason:       d.reason(cfg, result, blk),
		})
	}
	sort.SliceStable(found, func(i, j int) bool {
		li, lj := found[i].Location, found[j].Location
		if li.StartLine != lj.StartLine {
			return li.StartLine < lj.StartLine
		}
		if li.StartCol != lj.StartCol {
			return li.StartCol < lj.StartCol
		}
		// Wider range first so containment filtering sees it
		return li.EndLine > lj.EndLine
	})
	return dropContained(found)
}

// reason explains why a block is unreachable. A block opened after a
// jump names the jump; a block on the pruned side of a folded branch
// names the constant condition; anything else is generically dead.
func (d *DeadCodeDetector) reason(cfg *CFG, result *ReachabilityResult, blk *BasicBlock) string {
	if r := jumpReason(blk.AfterJump); r != "" {
		return r
	}
	// A construct that starts right after a jump hangs off an empty
	// post-jump block; look one predecessor back for it.
	for _, pred := range blk.Predecessors {
		p := cfg.Block(pred)
		if result.IsReachable(p.ID) || !p.IsEmpty() {
			continue
		}
		if r := jumpReason(p.AfterJump); r != "" {
			return r
		}
	}
	for _, pred := range blk.Predecessors {
		p := cfg.Block(pred)
		if !result.IsReachable(p.ID) {
			continue
		}
		takeTrue, takeFalse := branchTaken(p)
		for _, e := range p.Successors {
			if e.To != blk.ID {
				continue
			}
			if e.Type == EdgeCondTrue && !takeTrue {
				return "condition is always false"
			}
			if e.Type == EdgeCondFalse && !takeFalse {
				return "condition is always true"
			}
		}
	}
	return "unreachable code"
}

// dropContained removes findings whose range lies inside an earlier
// one. A dead loop reports once for the whole statement, not again for
// every block of its body.
func dropContained(found []*DeadCodeFinding) []*DeadCodeFinding {
	var kept []*DeadCodeFinding
	for _, f := range found {
		contained := false
		for _, k := range kept {
			if k.Location.File == f.Location.File &&
				k.Location.StartLine <= f.Location.StartLine &&
				f.Location.EndLine <= k.Location.EndLine {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, f)
		}
	}
	return kept
}

func jumpReason(jump *parser.Node) string {
	if jump == nil {
		return ""
	}
	switch jump.Type {
	case parser.NodeReturn:
		return "unreachable after return"
	case parser.NodeBreak:
		return "unreachable after break"
	case parser.NodeContinue:
		return "unreachable after continue"
	case parser.NodeRaise:
		return "unreachable after raise"
	}
	return ""
}

func firstLine(src string) string {
	if i := strings.IndexByte(src, '\n'); i >= 0 {
		src = src[:i]
	}
	return strings.TrimSpace(src)
}
