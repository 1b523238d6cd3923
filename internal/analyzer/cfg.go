package analyzer

import (
	"errors"
	"fmt"

	"github.com/flowscope/flowscope/internal/parser"
)

// Store invariant violations. Both indicate a bug in the CFG builder
// rather than bad input; the builder aborts the affected function when
// it sees one.
var (
	// ErrDuplicateLabel is returned when a second outgoing edge with the
	// same label is added to a block
	ErrDuplicateLabel = errors.New("duplicate edge label")

	// ErrBlockTerminated is returned when a statement is appended to a
	// block that already ends in a branch
	ErrBlockTerminated = errors.New("block already terminated")
)

// BlockID identifies a basic block inside one CFG
type BlockID int

// NoBlock marks the absence of a block reference
const NoBlock BlockID = -1

// EdgeType represents the label on a control flow edge
type EdgeType int

const (
	// EdgeNormal is an unconditional fallthrough edge
	EdgeNormal EdgeType = iota
	// EdgeCondTrue is the true branch of a test
	EdgeCondTrue
	// EdgeCondFalse is the false/else branch of a test
	EdgeCondFalse
	// EdgeException is an implicit edge taken when an exception is raised
	EdgeException
	// EdgeLoop is the back edge from a loop body to its guard
	EdgeLoop
	// EdgeBreak leaves a loop via break
	EdgeBreak
	// EdgeContinue re-enters a loop guard via continue
	EdgeContinue
	// EdgeReturn leaves the function via return
	EdgeReturn
)

// String returns a string representation of the edge type
func (e EdgeType) String() string {
	switch e {
	case EdgeNormal:
		return "normal"
	case EdgeCondTrue:
		return "true"
	case EdgeCondFalse:
		return "false"
	case EdgeException:
		return "exception"
	case EdgeLoop:
		return "loop"
	case EdgeBreak:
		return "break"
	case EdgeContinue:
		return "continue"
	case EdgeReturn:
		return "return"
	default:
		return "unknown"
	}
}

// BlockKind classifies blocks for rendering and diagnostics
type BlockKind int

const (
	// BlockGeneric is an ordinary statement block
	BlockGeneric BlockKind = iota
	// BlockEntry is the synthetic Start sentinel
	BlockEntry
	// BlockExit is the synthetic End sentinel
	BlockExit
	// BlockLoopGuard holds a loop's test or iterator
	BlockLoopGuard
	// BlockExceptDispatch routes a raised exception to handlers
	BlockExceptDispatch
	// BlockCaseGuard holds a match case pattern test
	BlockCaseGuard
	// BlockFinally holds a finally suite
	BlockFinally
	// BlockTeardown is the implicit exit of a with statement
	BlockTeardown
	// BlockJoin is a merge point created after a branching construct
	BlockJoin
)

// IsMeta reports whether the block is synthetic rather than a plain
// statement block
func (k BlockKind) IsMeta() bool {
	return k != BlockGeneric
}

// String returns a string representation of the block kind
func (k BlockKind) String() string {
	switch k {
	case BlockGeneric:
		return "block"
	case BlockEntry:
		return "entry"
	case BlockExit:
		return "exit"
	case BlockLoopGuard:
		return "loop_guard"
	case BlockExceptDispatch:
		return "except_dispatch"
	case BlockCaseGuard:
		return "case_guard"
	case BlockFinally:
		return "finally"
	case BlockTeardown:
		return "teardown"
	case BlockJoin:
		return "join"
	default:
		return "unknown"
	}
}

// Edge is a directed, labeled connection between two blocks
type Edge struct {
	From BlockID
	To   BlockID
	Type EdgeType
}

// BasicBlock is a straight-line statement sequence with labeled exits.
// Blocks are owned by one CFG and addressed by index; they are only
// mutated during construction.
type BasicBlock struct {
	ID           BlockID
	Kind         BlockKind
	Statements   []*parser.Node
	Successors   []Edge
	Predecessors []BlockID

	// AfterJump is the jump statement that cut control flow off right
	// before this block, when the block was opened for code following
	// a break, continue, return or raise. Used for diagnostics.
	AfterJump *parser.Node
}

// IsEmpty returns true if the block holds no statements
func (b *BasicBlock) IsEmpty() bool {
	return len(b.Statements) == 0
}

// terminated reports whether the block already ends in a branch.
// Exception edges are implicit and do not terminate a block: statements
// may still execute after the point an exception could have been raised.
func (b *BasicBlock) terminated() bool {
	for _, e := range b.Successors {
		if e.Type != EdgeException {
			return true
		}
	}
	return false
}

// hasEdge reports whether the block has an outgoing edge with the label
func (b *BasicBlock) hasEdge(t EdgeType) bool {
	for _, e := range b.Successors {
		if e.Type == t {
			return true
		}
	}
	return false
}

// CFG is the control flow graph of one function body. Blocks and their
// edges live in a single growable arena indexed by BlockID; the Entry
// and Exit sentinels are created up front. The graph is append-only
// during construction and read-only afterwards.
type CFG struct {
	Name         string
	FunctionNode *parser.Node
	Blocks       []*BasicBlock
	Entry        BlockID
	Exit         BlockID
}

// NewCFG creates an empty graph with Entry and Exit sentinels
func NewCFG(name string) *CFG {
	c := &CFG{Name: name}
	c.Entry = c.NewBlock(BlockEntry)
	c.Exit = c.NewBlock(BlockExit)
	return c
}

// NewBlock appends an empty block and returns its id
func (c *CFG) NewBlock(kind BlockKind) BlockID {
	id := BlockID(len(c.Blocks))
	c.Blocks = append(c.Blocks, &BasicBlock{ID: id, Kind: kind})
	return id
}

// Block returns the block for an id
func (c *CFG) Block(id BlockID) *BasicBlock {
	return c.Blocks[id]
}

// NumBlocks returns the number of blocks including the sentinels
func (c *CFG) NumBlocks() int {
	return len(c.Blocks)
}

// NumEdges returns the total edge count
func (c *CFG) NumEdges() int {
	n := 0
	for _, b := range c.Blocks {
		n += len(b.Successors)
	}
	return n
}

// AddEdge appends a labeled edge. Control flow must be deterministic per
// label, so a second edge with the same label from one block is refused.
func (c *CFG) AddEdge(from, to BlockID, t EdgeType) error {
	if err := c.checkID(from); err != nil {
		return err
	}
	if err := c.checkID(to); err != nil {
		return err
	}
	src := c.Blocks[from]
	if src.hasEdge(t) {
		return fmt.Errorf("block %d: edge %q: %w", from, t, ErrDuplicateLabel)
	}
	src.Successors = append(src.Successors, Edge{From: from, To: to, Type: t})
	c.Blocks[to].Predecessors = append(c.Blocks[to].Predecessors, from)
	return nil
}

// AppendStatement adds a statement to a block. No code may follow a
// block-ending branch, so appending to a terminated block is refused.
func (c *CFG) AppendStatement(id BlockID, stmt *parser.Node) error {
	if err := c.checkID(id); err != nil {
		return err
	}
	block := c.Blocks[id]
	if block.terminated() {
		return fmt.Errorf("block %d: %w", id, ErrBlockTerminated)
	}
	block.Statements = append(block.Statements, stmt)
	return nil
}

func (c *CFG) checkID(id BlockID) error {
	if id < 0 || int(id) >= len(c.Blocks) {
		return fmt.Errorf("block id %d out of range", id)
	}
	return nil
}
