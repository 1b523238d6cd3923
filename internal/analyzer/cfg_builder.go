package analyzer

import (
	"errors"
	"fmt"
	"log"

	"github.com/flowscope/flowscope/internal/parser"
)

// BuildErrorKind classifies CFG construction failures that are caused
// by the input program rather than by a builder bug
type BuildErrorKind int

const (
	// BreakOutsideLoop is a break statement with no enclosing loop
	BreakOutsideLoop BuildErrorKind = iota
	// ContinueOutsideLoop is a continue statement with no enclosing loop
	ContinueOutsideLoop
	// UnsupportedConstruct is a statement form the builder cannot model
	UnsupportedConstruct
)

// BuildError reports a construction failure attributable to a specific
// statement. The enclosing function's analysis should be skipped and
// marked approximate when one is returned.
type BuildError struct {
	Kind BuildErrorKind
	Stmt *parser.Node
}

// Error returns a string representation of the build error
func (e *BuildError) Error() string {
	loc := ""
	if e.Stmt != nil {
		loc = " at " + e.Stmt.Location.String()
	}
	switch e.Kind {
	case BreakOutsideLoop:
		return "break outside loop" + loc
	case ContinueOutsideLoop:
		return "continue outside loop" + loc
	case UnsupportedConstruct:
		return "unsupported construct" + loc
	default:
		return "build error" + loc
	}
}

type frameKind int

const (
	frameLoop frameKind = iota
	frameTry
)

// frame is one entry of the builder's context stack. Loop frames carry
// the jump targets for break and continue; try frames carry the
// exception routing targets and the pending exit slot a jump records
// when it has to run the finally suite first.
type frame struct {
	kind frameKind

	// loop frames
	breakTarget    BlockID
	continueTarget BlockID

	// try frames
	dispatch     BlockID // head of the handler dispatch chain, NoBlock if none
	finallyBlock BlockID // NoBlock when the try has no finally suite
	pendingExit  BlockID // where the finally resumes the diverted jump
}

// CFGBuilder constructs a control flow graph from a function body or
// module suite. A builder is single use per Build call; the context
// stack is reset each time.
//
// The builder wires every branch uniformly and never discards
// statements it can prove unreachable. Statements following a jump land
// in a fresh block with no incoming edge, and branches on constant
// conditions keep both edges; deciding what is actually reachable is
// the analyzer's job.
type CFGBuilder struct {
	cfg      *CFG
	current  BlockID
	live     bool
	lastJump *parser.Node
	frames   []*frame
	logger   *log.Logger
}

// NewCFGBuilder creates a new CFG builder
func NewCFGBuilder() *CFGBuilder {
	return &CFGBuilder{}
}

// SetLogger sets an optional logger for error reporting
func (b *CFGBuilder) SetLogger(logger *log.Logger) {
	b.logger = logger
}

// Build constructs the CFG for one function or module node
func (b *CFGBuilder) Build(node *parser.Node) (*CFG, error) {
	if node == nil {
		return nil, fmt.Errorf("cannot build CFG for nil node")
	}
	name := node.Name
	if name == "" {
		name = "__main__"
	}
	b.cfg = NewCFG(name)
	b.cfg.FunctionNode = node
	b.frames = b.frames[:0]

	first := b.cfg.NewBlock(BlockGeneric)
	if err := b.cfg.AddEdge(b.cfg.Entry, first, EdgeNormal); err != nil {
		return nil, err
	}
	b.current, b.live = first, true

	if err := b.processSuite(node.Body); err != nil {
		return nil, err
	}
	if b.live {
		if err := b.cfg.AddEdge(b.current, b.cfg.Exit, EdgeNormal); err != nil {
			return nil, err
		}
	}
	return b.cfg, nil
}

// BuildAll constructs CFGs for the module suite and every function
// definition found in it, keyed by name. Functions that fail to build
// are left out of the map; their errors are joined into the returned
// error so the caller can report them and continue with the rest.
func (b *CFGBuilder) BuildAll(root *parser.Node) (map[string]*CFG, error) {
	cfgs := make(map[string]*CFG)
	var errs []error

	moduleCFG, err := b.buildOne(root)
	if err != nil {
		errs = append(errs, fmt.Errorf("__main__: %w", err))
	} else {
		cfgs[moduleCFG.Name] = moduleCFG
	}

	root.Walk(func(n *parser.Node) bool {
		if n == root || !n.IsFunction() {
			return true
		}
		name := n.Name
		if _, taken := cfgs[name]; taken {
			name = fmt.Sprintf("%s:%d", n.Name, n.Location.StartLine)
		}
		cfg, err := b.buildOne(n)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return true
		}
		cfg.Name = name
		cfgs[name] = cfg
		return true
	})
	return cfgs, errors.Join(errs...)
}

// buildOne builds a single CFG on a fresh builder that shares this
// builder's logger, logging the failure if one occurs.
func (b *CFGBuilder) buildOne(node *parser.Node) (*CFG, error) {
	nb := NewCFGBuilder()
	nb.logger = b.logger
	cfg, err := nb.Build(node)
	if err != nil && b.logger != nil {
		b.logger.Printf("failed to build CFG for %s: %v", node.Name, err)
	}
	return cfg, err
}

func (b *CFGBuilder) processSuite(stmts []*parser.Node) error {
	for _, stmt := range stmts {
		if err := b.processStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (b *CFGBuilder) processStatement(stmt *parser.Node) error {
	switch stmt.Type {
	case parser.NodeIf:
		return b.processIf(stmt)
	case parser.NodeWhile:
		return b.processWhile(stmt)
	case parser.NodeFor:
		return b.processFor(stmt)
	case parser.NodeTry:
		return b.processTry(stmt)
	case parser.NodeWith:
		return b.processWith(stmt)
	case parser.NodeMatch:
		return b.processMatch(stmt)
	case parser.NodeBreak:
		return b.processBreak(stmt)
	case parser.NodeContinue:
		return b.processContinue(stmt)
	case parser.NodeReturn:
		return b.processReturn(stmt)
	case parser.NodeRaise:
		return b.processRaise(stmt)
	case parser.NodeAssert:
		return b.processAssert(stmt)
	case parser.NodeUnknown:
		return &BuildError{Kind: UnsupportedConstruct, Stmt: stmt}
	default:
		// Assignments, expression statements, pass, imports, scope
		// declarations and nested definitions are straight-line code.
		return b.appendStmt(stmt)
	}
}

// ensureBlock makes sure the cursor points at an open block. After a
// jump the cursor is dead; the next statement starts a fresh block that
// nothing flows into, which the analyzer will report as unreachable.
func (b *CFGBuilder) ensureBlock() {
	if !b.live {
		b.current = b.cfg.NewBlock(BlockGeneric)
		b.cfg.Block(b.current).AfterJump = b.lastJump
		b.live = true
	}
}

func (b *CFGBuilder) appendStmt(stmt *parser.Node) error {
	b.ensureBlock()
	if err := b.cfg.AppendStatement(b.current, stmt); err != nil {
		return err
	}
	return b.ensureExceptionEdge(b.current)
}

// exceptionTarget returns where a raised exception transfers control,
// scanning the context stack from the innermost frame outward
func (b *CFGBuilder) exceptionTarget() BlockID {
	for i := len(b.frames) - 1; i >= 0; i-- {
		fr := b.frames[i]
		if fr.kind != frameTry {
			continue
		}
		if fr.dispatch != NoBlock {
			return fr.dispatch
		}
		if fr.finallyBlock != NoBlock {
			return fr.finallyBlock
		}
	}
	return NoBlock
}

// ensureExceptionEdge wires the block's implicit exception edge when it
// executes inside an exception context. One edge per block suffices
// since every statement in the block shares the same target.
func (b *CFGBuilder) ensureExceptionEdge(id BlockID) error {
	target := b.exceptionTarget()
	if target == NoBlock || target == id {
		return nil
	}
	if b.cfg.Block(id).hasEdge(EdgeException) {
		return nil
	}
	return b.cfg.AddEdge(id, target, EdgeException)
}

// innermostLoop returns the stack index of the closest loop frame, or
// -1 when the cursor is not inside a loop
func (b *CFGBuilder) innermostLoop() int {
	for i := len(b.frames) - 1; i >= 0; i-- {
		if b.frames[i].kind == frameLoop {
			return i
		}
	}
	return -1
}

// interveningFinallies collects, innermost first, the finally suites a
// jump must run before reaching a frame below downTo on the stack
func (b *CFGBuilder) interveningFinallies(downTo int) []*frame {
	var fs []*frame
	for i := len(b.frames) - 1; i > downTo; i-- {
		fr := b.frames[i]
		if fr.kind == frameTry && fr.finallyBlock != NoBlock {
			fs = append(fs, fr)
		}
	}
	return fs
}

// wireJump connects the cursor to a jump target. When finally suites
// intervene the edge goes to the innermost one instead and each finally
// records where to resume: the next finally outward, or the real
// target. A later exit recorded on the same finally overwrites the
// slot, which is exactly the override a return inside finally performs.
func (b *CFGBuilder) wireJump(label EdgeType, finallies []*frame, target BlockID) error {
	if len(finallies) == 0 {
		return b.cfg.AddEdge(b.current, target, label)
	}
	if err := b.cfg.AddEdge(b.current, finallies[0].finallyBlock, label); err != nil {
		return err
	}
	for i, fr := range finallies {
		next := target
		if i+1 < len(finallies) {
			next = finallies[i+1].finallyBlock
		}
		fr.pendingExit = next
	}
	return nil
}

func (b *CFGBuilder) processBreak(stmt *parser.Node) error {
	if err := b.appendStmt(stmt); err != nil {
		return err
	}
	idx := b.innermostLoop()
	if idx < 0 {
		return &BuildError{Kind: BreakOutsideLoop, Stmt: stmt}
	}
	if err := b.wireJump(EdgeBreak, b.interveningFinallies(idx), b.frames[idx].breakTarget); err != nil {
		return err
	}
	b.live = false
	b.lastJump = stmt
	return nil
}

func (b *CFGBuilder) processContinue(stmt *parser.Node) error {
	if err := b.appendStmt(stmt); err != nil {
		return err
	}
	idx := b.innermostLoop()
	if idx < 0 {
		return &BuildError{Kind: ContinueOutsideLoop, Stmt: stmt}
	}
	if err := b.wireJump(EdgeContinue, b.interveningFinallies(idx), b.frames[idx].continueTarget); err != nil {
		return err
	}
	b.live = false
	b.lastJump = stmt
	return nil
}

func (b *CFGBuilder) processReturn(stmt *parser.Node) error {
	if err := b.appendStmt(stmt); err != nil {
		return err
	}
	if err := b.wireJump(EdgeReturn, b.interveningFinallies(-1), b.cfg.Exit); err != nil {
		return err
	}
	b.live = false
	b.lastJump = stmt
	return nil
}

func (b *CFGBuilder) processRaise(stmt *parser.Node) error {
	if err := b.appendStmt(stmt); err != nil {
		return err
	}
	// Outside any exception context the raise propagates out of the
	// function; appendStmt already wired the edge otherwise.
	if b.exceptionTarget() == NoBlock && !b.cfg.Block(b.current).hasEdge(EdgeException) {
		if err := b.cfg.AddEdge(b.current, b.cfg.Exit, EdgeException); err != nil {
			return err
		}
	}
	b.live = false
	b.lastJump = stmt
	return nil
}

func (b *CFGBuilder) processIf(stmt *parser.Node) error {
	cond := stmt.Test
	if cond == nil {
		cond = stmt
	}
	if err := b.appendStmt(cond); err != nil {
		return err
	}
	condBlock := b.current
	thenBlock := b.cfg.NewBlock(BlockGeneric)
	join := b.cfg.NewBlock(BlockJoin)
	if err := b.cfg.AddEdge(condBlock, thenBlock, EdgeCondTrue); err != nil {
		return err
	}
	b.current, b.live = thenBlock, true
	if err := b.processSuite(stmt.Body); err != nil {
		return err
	}
	if b.live {
		if err := b.cfg.AddEdge(b.current, join, EdgeNormal); err != nil {
			return err
		}
	}
	if len(stmt.Orelse) > 0 {
		elseBlock := b.cfg.NewBlock(BlockGeneric)
		if err := b.cfg.AddEdge(condBlock, elseBlock, EdgeCondFalse); err != nil {
			return err
		}
		b.current, b.live = elseBlock, true
		if err := b.processSuite(stmt.Orelse); err != nil {
			return err
		}
		if b.live {
			if err := b.cfg.AddEdge(b.current, join, EdgeNormal); err != nil {
				return err
			}
		}
	} else {
		if err := b.cfg.AddEdge(condBlock, join, EdgeCondFalse); err != nil {
			return err
		}
	}
	b.current, b.live = join, true
	return nil
}

func (b *CFGBuilder) processWhile(stmt *parser.Node) error {
	return b.processLoop(stmt, stmt.Test)
}

func (b *CFGBuilder) processFor(stmt *parser.Node) error {
	// The guard holds the whole for statement: its "condition" is
	// whether the iterator yields another value, which is never a
	// literal the analyzer may fold.
	return b.processLoop(stmt, stmt)
}

// processLoop builds the shared loop shape: a guard block whose true
// edge enters the body and whose false edge leaves the loop, a back
// edge from the body, and an optional else suite on the exit path.
// break targets the join after the else suite, bypassing it.
func (b *CFGBuilder) processLoop(stmt, guardStmt *parser.Node) error {
	b.ensureBlock()
	guard := b.cfg.NewBlock(BlockLoopGuard)
	if err := b.cfg.AddEdge(b.current, guard, EdgeNormal); err != nil {
		return err
	}
	if guardStmt != nil {
		if err := b.cfg.AppendStatement(guard, guardStmt); err != nil {
			return err
		}
	}
	if err := b.ensureExceptionEdge(guard); err != nil {
		return err
	}

	body := b.cfg.NewBlock(BlockGeneric)
	join := b.cfg.NewBlock(BlockJoin)
	if err := b.cfg.AddEdge(guard, body, EdgeCondTrue); err != nil {
		return err
	}
	exitTarget := join
	elseBlock := NoBlock
	if len(stmt.Orelse) > 0 {
		elseBlock = b.cfg.NewBlock(BlockGeneric)
		exitTarget = elseBlock
	}
	if err := b.cfg.AddEdge(guard, exitTarget, EdgeCondFalse); err != nil {
		return err
	}

	b.frames = append(b.frames, &frame{
		kind:           frameLoop,
		breakTarget:    join,
		continueTarget: guard,
	})
	b.current, b.live = body, true
	err := b.processSuite(stmt.Body)
	if err == nil && b.live {
		err = b.cfg.AddEdge(b.current, guard, EdgeLoop)
	}
	b.frames = b.frames[:len(b.frames)-1]
	if err != nil {
		return err
	}

	if elseBlock != NoBlock {
		b.current, b.live = elseBlock, true
		if err := b.processSuite(stmt.Orelse); err != nil {
			return err
		}
		if b.live {
			if err := b.cfg.AddEdge(b.current, join, EdgeNormal); err != nil {
				return err
			}
		}
	}
	b.current, b.live = join, true
	return nil
}

func (b *CFGBuilder) processTry(stmt *parser.Node) error {
	b.ensureBlock()
	outerExc := b.exceptionTarget()
	if outerExc == NoBlock {
		outerExc = b.cfg.Exit
	}

	join := b.cfg.NewBlock(BlockJoin)
	finallyBlock := NoBlock
	if len(stmt.Finalbody) > 0 {
		finallyBlock = b.cfg.NewBlock(BlockFinally)
	}
	// An unmatched exception keeps unwinding, but runs the finally
	// suite on its way out.
	propagate := outerExc
	if finallyBlock != NoBlock {
		propagate = finallyBlock
	}

	// One dispatch block per handler, chained on the false edge: the
	// true edge enters the handler body, the false edge tries the next
	// handler and finally propagates.
	dispatches := make([]BlockID, len(stmt.Handlers))
	handlerBodies := make([]BlockID, len(stmt.Handlers))
	for i, h := range stmt.Handlers {
		dispatches[i] = b.cfg.NewBlock(BlockExceptDispatch)
		if err := b.cfg.AppendStatement(dispatches[i], h); err != nil {
			return err
		}
		handlerBodies[i] = b.cfg.NewBlock(BlockGeneric)
	}
	for i, d := range dispatches {
		if err := b.cfg.AddEdge(d, handlerBodies[i], EdgeCondTrue); err != nil {
			return err
		}
		next := propagate
		if i+1 < len(dispatches) {
			next = dispatches[i+1]
		}
		if err := b.cfg.AddEdge(d, next, EdgeCondFalse); err != nil {
			return err
		}
	}

	dispatchHead := NoBlock
	if len(dispatches) > 0 {
		dispatchHead = dispatches[0]
	}
	fr := &frame{
		kind:         frameTry,
		dispatch:     dispatchHead,
		finallyBlock: finallyBlock,
		pendingExit:  NoBlock,
	}

	tryBlock := b.cfg.NewBlock(BlockGeneric)
	if err := b.cfg.AddEdge(b.current, tryBlock, EdgeNormal); err != nil {
		return err
	}
	b.frames = append(b.frames, fr)
	b.current, b.live = tryBlock, true
	if err := b.processSuite(stmt.Body); err != nil {
		b.frames = b.frames[:len(b.frames)-1]
		return err
	}

	normalNext := join
	if finallyBlock != NoBlock {
		normalNext = finallyBlock
	}

	// Exceptions raised in the else suite or inside a handler are not
	// caught by this try's handlers, only its finally still applies.
	fr.dispatch = NoBlock

	if len(stmt.Orelse) > 0 {
		elseBlock := b.cfg.NewBlock(BlockGeneric)
		if b.live {
			if err := b.cfg.AddEdge(b.current, elseBlock, EdgeNormal); err != nil {
				b.frames = b.frames[:len(b.frames)-1]
				return err
			}
		}
		b.current, b.live = elseBlock, true
		if err := b.processSuite(stmt.Orelse); err != nil {
			b.frames = b.frames[:len(b.frames)-1]
			return err
		}
	}
	if b.live {
		if err := b.cfg.AddEdge(b.current, normalNext, EdgeNormal); err != nil {
			b.frames = b.frames[:len(b.frames)-1]
			return err
		}
	}

	for i, h := range stmt.Handlers {
		b.current, b.live = handlerBodies[i], true
		if err := b.processSuite(h.Body); err != nil {
			b.frames = b.frames[:len(b.frames)-1]
			return err
		}
		if b.live {
			if err := b.cfg.AddEdge(b.current, normalNext, EdgeNormal); err != nil {
				b.frames = b.frames[:len(b.frames)-1]
				return err
			}
		}
	}

	// The frame is popped before building the finally suite so that a
	// jump inside it resolves against the enclosing contexts. Such a
	// jump leaves the suite without completing it and supersedes
	// whatever exit was pending.
	b.frames = b.frames[:len(b.frames)-1]
	if finallyBlock != NoBlock {
		b.current, b.live = finallyBlock, true
		if err := b.processSuite(stmt.Finalbody); err != nil {
			return err
		}
		if b.live {
			target := join
			if fr.pendingExit != NoBlock {
				target = fr.pendingExit
			}
			if err := b.cfg.AddEdge(b.current, target, EdgeNormal); err != nil {
				return err
			}
		}
	}
	b.current, b.live = join, true
	return nil
}

// processWith models a with statement as a try/finally whose finally
// suite is the implicit teardown: the teardown block postdominates the
// body, so break, continue and return inside the body route through it.
func (b *CFGBuilder) processWith(stmt *parser.Node) error {
	if err := b.appendStmt(stmt); err != nil {
		return err
	}
	teardown := b.cfg.NewBlock(BlockTeardown)
	join := b.cfg.NewBlock(BlockJoin)
	body := b.cfg.NewBlock(BlockGeneric)
	if err := b.cfg.AddEdge(b.current, body, EdgeNormal); err != nil {
		return err
	}

	fr := &frame{kind: frameTry, dispatch: NoBlock, finallyBlock: teardown, pendingExit: NoBlock}
	b.frames = append(b.frames, fr)
	b.current, b.live = body, true
	err := b.processSuite(stmt.Body)
	if err == nil && b.live {
		err = b.cfg.AddEdge(b.current, teardown, EdgeNormal)
	}
	b.frames = b.frames[:len(b.frames)-1]
	if err != nil {
		return err
	}

	target := join
	if fr.pendingExit != NoBlock {
		target = fr.pendingExit
	}
	if err := b.cfg.AddEdge(teardown, target, EdgeNormal); err != nil {
		return err
	}
	b.current, b.live = join, true
	return nil
}

func (b *CFGBuilder) processMatch(stmt *parser.Node) error {
	subject := stmt.Subject
	if subject == nil {
		subject = stmt
	}
	if err := b.appendStmt(subject); err != nil {
		return err
	}

	join := b.cfg.NewBlock(BlockJoin)
	prev, prevLabel := b.current, EdgeNormal
	for _, c := range stmt.Body {
		guard := b.cfg.NewBlock(BlockCaseGuard)
		if err := b.cfg.AppendStatement(guard, c); err != nil {
			return err
		}
		if err := b.ensureExceptionEdge(guard); err != nil {
			return err
		}
		if err := b.cfg.AddEdge(prev, guard, prevLabel); err != nil {
			return err
		}
		caseBody := b.cfg.NewBlock(BlockGeneric)
		if err := b.cfg.AddEdge(guard, caseBody, EdgeCondTrue); err != nil {
			return err
		}
		b.current, b.live = caseBody, true
		if err := b.processSuite(c.Body); err != nil {
			return err
		}
		if b.live {
			if err := b.cfg.AddEdge(b.current, join, EdgeNormal); err != nil {
				return err
			}
		}
		prev, prevLabel = guard, EdgeCondFalse
	}
	// No case matched. With zero cases this is the subject block's
	// plain fallthrough.
	if err := b.cfg.AddEdge(prev, join, prevLabel); err != nil {
		return err
	}
	b.current, b.live = join, true
	return nil
}

// processAssert splits control: the true edge continues, the false edge
// raises into the enclosing exception context
func (b *CFGBuilder) processAssert(stmt *parser.Node) error {
	if err := b.appendStmt(stmt); err != nil {
		return err
	}
	cond := b.current
	next := b.cfg.NewBlock(BlockGeneric)
	if err := b.cfg.AddEdge(cond, next, EdgeCondTrue); err != nil {
		return err
	}
	fail := b.exceptionTarget()
	if fail == NoBlock {
		fail = b.cfg.Exit
	}
	if err := b.cfg.AddEdge(cond, fail, EdgeCondFalse); err != nil {
		return err
	}
	b.current, b.live = next, true
	return nil
}
