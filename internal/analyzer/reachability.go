package analyzer

import (
	"sort"

	"github.com/flowscope/flowscope/internal/parser"
)

// ReachabilityResult holds the outcome of a reachability analysis over
// one CFG
type ReachabilityResult struct {
	FunctionName      string
	TotalBlocks       int
	ReachableCount    int
	UnreachableBlocks []BlockID

	cfg       *CFG
	reachable map[BlockID]bool
}

// IsReachable reports whether a block can be reached from Entry
func (r *ReachabilityResult) IsReachable(id BlockID) bool {
	return r.reachable[id]
}

// UnreachableStatements returns the statements of all unreachable
// blocks in source order
func (r *ReachabilityResult) UnreachableStatements() []*parser.Node {
	var stmts []*parser.Node
	for _, id := range r.UnreachableBlocks {
		stmts = append(stmts, r.cfg.Block(id).Statements...)
	}
	sort.SliceStable(stmts, func(i, j int) bool {
		li, lj := stmts[i].Location, stmts[j].Location
		if li.StartLine != lj.StartLine {
			return li.StartLine < lj.StartLine
		}
		return li.StartCol < lj.StartCol
	})
	return stmts
}

// ReachabilityAnalyzer walks a CFG from its Entry block and marks
// everything control can reach. The builder wires both sides of every
// branch; the analyzer is the one place that prunes edges, skipping
// the side of a branch whose condition is a literal with a known truth
// value.
type ReachabilityAnalyzer struct {
	cfg *CFG
}

// NewReachabilityAnalyzer creates an analyzer for one CFG
func NewReachabilityAnalyzer(cfg *CFG) *ReachabilityAnalyzer {
	return &ReachabilityAnalyzer{cfg: cfg}
}

// Analyze performs the traversal and returns the result
func (ra *ReachabilityAnalyzer) Analyze() *ReachabilityResult {
	cfg := ra.cfg
	reachable := make(map[BlockID]bool, cfg.NumBlocks())
	work := []BlockID{cfg.Entry}
	reachable[cfg.Entry] = true

	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		blk := cfg.Block(id)
		takeTrue, takeFalse := branchTaken(blk)
		for _, e := range blk.Successors {
			if e.Type == EdgeCondTrue && !takeTrue {
				continue
			}
			if e.Type == EdgeCondFalse && !takeFalse {
				continue
			}
			if !reachable[e.To] {
				reachable[e.To] = true
				work = append(work, e.To)
			}
		}
	}

	result := &ReachabilityResult{
		FunctionName: cfg.Name,
		TotalBlocks:  cfg.NumBlocks(),
		cfg:          cfg,
		reachable:    reachable,
	}
	for _, blk := range cfg.Blocks {
		if reachable[blk.ID] {
			result.ReachableCount++
		} else {
			result.UnreachableBlocks = append(result.UnreachableBlocks, blk.ID)
		}
	}
	return result
}

// branchTaken decides which conditional edges out of a block can be
// taken. Exception dispatch and match case guards never fold: they
// compare against runtime values even when their pattern text is a
// literal. Every other block folds on a literal test, including joins
// that pick up a later if in the same suite. For guards pass through
// here too but stay unknown, their last statement is the for itself
// and iterator exhaustion is not a truthiness question.
func branchTaken(blk *BasicBlock) (takeTrue, takeFalse bool) {
	takeTrue, takeFalse = true, true
	switch blk.Kind {
	case BlockExceptDispatch, BlockCaseGuard:
		return
	}
	if len(blk.Statements) == 0 {
		return
	}
	truthy, known := parser.LiteralTruthiness(blk.Statements[len(blk.Statements)-1])
	if !known {
		return
	}
	if truthy {
		takeFalse = false
	} else {
		takeTrue = false
	}
	return
}
