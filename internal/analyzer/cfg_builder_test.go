package analyzer

import (
	"errors"
	"strings"
	"testing"

	"github.com/flowscope/flowscope/internal/parser"
	"github.com/flowscope/flowscope/internal/testutil"
)

func buildCFG(t *testing.T, source string) *CFG {
	t.Helper()
	ast := testutil.CreateTestAST(t, source)
	cfg, err := NewCFGBuilder().Build(ast)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return cfg
}

func buildFunctionCFG(t *testing.T, source, name string) *CFG {
	t.Helper()
	ast := testutil.CreateTestAST(t, source)
	fn := testutil.FindFunctionInAST(ast, name)
	if fn == nil {
		t.Fatalf("Function %s not found", name)
	}
	cfg, err := NewCFGBuilder().Build(fn)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return cfg
}

// blockWithSrc finds the block holding a statement whose source starts
// with the prefix
func blockWithSrc(cfg *CFG, prefix string) *BasicBlock {
	for _, blk := range cfg.Blocks {
		for _, stmt := range blk.Statements {
			if strings.HasPrefix(stmt.Src, prefix) {
				return blk
			}
		}
	}
	return nil
}

func blockOfKind(cfg *CFG, kind BlockKind) *BasicBlock {
	for _, blk := range cfg.Blocks {
		if blk.Kind == kind {
			return blk
		}
	}
	return nil
}

// successor follows the edge with the given label, failing when absent
func successor(t *testing.T, cfg *CFG, blk *BasicBlock, edgeType EdgeType) *BasicBlock {
	t.Helper()
	if blk == nil {
		t.Fatal("successor called on nil block")
	}
	for _, e := range blk.Successors {
		if e.Type == edgeType {
			return cfg.Block(e.To)
		}
	}
	t.Fatalf("Block %d has no %s edge", blk.ID, edgeType)
	return nil
}

func TestCFGBuilder_LinearCode(t *testing.T) {
	cfg := buildCFG(t, "x = 1\ny = 2\n")

	if cfg.Name != "__main__" {
		t.Errorf("Expected name __main__, got %s", cfg.Name)
	}
	if cfg.NumBlocks() != 3 {
		t.Errorf("Expected 3 blocks, got %d", cfg.NumBlocks())
	}

	entry := cfg.Block(cfg.Entry)
	if len(entry.Successors) != 1 {
		t.Fatalf("Entry should have exactly 1 successor, got %d", len(entry.Successors))
	}
	body := successor(t, cfg, entry, EdgeNormal)
	if len(body.Statements) != 2 {
		t.Errorf("Expected 2 statements in one block, got %d", len(body.Statements))
	}
	if successor(t, cfg, body, EdgeNormal).ID != cfg.Exit {
		t.Error("Body should fall through to Exit")
	}
}

func TestCFGBuilder_IfElse(t *testing.T) {
	cfg := buildCFG(t, `
if x > 0:
    y = 1
else:
    y = 2
z = 3
`)

	cond := blockWithSrc(cfg, "x > 0")
	if cond == nil {
		t.Fatal("Condition block not found")
	}
	thenBlk := successor(t, cfg, cond, EdgeCondTrue)
	elseBlk := successor(t, cfg, cond, EdgeCondFalse)
	if len(thenBlk.Statements) == 0 || thenBlk.Statements[0].Src != "y = 1" {
		t.Error("True edge should enter the then suite")
	}
	if len(elseBlk.Statements) == 0 || elseBlk.Statements[0].Src != "y = 2" {
		t.Error("False edge should enter the else suite")
	}

	join := successor(t, cfg, thenBlk, EdgeNormal)
	if join != successor(t, cfg, elseBlk, EdgeNormal) {
		t.Error("Both branches should meet at the same join")
	}
	if join != blockWithSrc(cfg, "z = 3") {
		t.Error("Code after the if should live in the join block")
	}
}

func TestCFGBuilder_IfWithoutElse(t *testing.T) {
	cfg := buildCFG(t, `
if x:
    y = 1
z = 2
`)

	cond := blockWithSrc(cfg, "x")
	join := blockWithSrc(cfg, "z = 2")
	if successor(t, cfg, cond, EdgeCondFalse) != join {
		t.Error("Without an else suite the false edge goes straight to the join")
	}
}

func TestCFGBuilder_ElifChain(t *testing.T) {
	cfg := buildCFG(t, `
if a:
    x = 1
elif b:
    x = 2
else:
    x = 3
done = True
`)

	first := blockWithSrc(cfg, "a")
	second := blockWithSrc(cfg, "b")
	if first == nil || second == nil {
		t.Fatal("Condition blocks not found")
	}
	// The elif condition hangs off the first condition's false edge
	elseOfFirst := successor(t, cfg, first, EdgeCondFalse)
	if elseOfFirst != second {
		t.Error("elif condition should be on the false edge of the first test")
	}
	if blockWithSrc(cfg, "x = 3") == nil {
		t.Error("Final else suite missing")
	}
}

func TestCFGBuilder_WhileLoop(t *testing.T) {
	cfg := buildCFG(t, `
while x < 10:
    x = x + 1
done = True
`)

	guard := blockOfKind(cfg, BlockLoopGuard)
	if guard == nil {
		t.Fatal("Loop guard not found")
	}
	if len(guard.Statements) != 1 || guard.Statements[0].Src != "x < 10" {
		t.Error("Guard should hold the loop condition")
	}

	body := successor(t, cfg, guard, EdgeCondTrue)
	if body.Statements[0].Src != "x = x + 1" {
		t.Error("True edge should enter the loop body")
	}
	if successor(t, cfg, body, EdgeLoop) != guard {
		t.Error("Body should loop back to the guard")
	}
	if successor(t, cfg, guard, EdgeCondFalse) != blockWithSrc(cfg, "done = True") {
		t.Error("False edge should leave the loop")
	}
}

func TestCFGBuilder_WhileElse(t *testing.T) {
	cfg := buildCFG(t, `
while x:
    break
else:
    y = 1
z = 2
`)

	guard := blockOfKind(cfg, BlockLoopGuard)
	elseBlk := successor(t, cfg, guard, EdgeCondFalse)
	if elseBlk != blockWithSrc(cfg, "y = 1") {
		t.Error("Normal loop exit should run the else suite")
	}

	join := blockWithSrc(cfg, "z = 2")
	if successor(t, cfg, elseBlk, EdgeNormal) != join {
		t.Error("else suite should fall through to the join")
	}
	// break bypasses the else suite
	breakBlk := blockWithSrc(cfg, "break")
	if successor(t, cfg, breakBlk, EdgeBreak) != join {
		t.Error("break should target the join, skipping the else suite")
	}
}

func TestCFGBuilder_ForLoop(t *testing.T) {
	cfg := buildCFG(t, `
for i in items:
    total = total + i
done = True
`)

	guard := blockOfKind(cfg, BlockLoopGuard)
	if guard == nil {
		t.Fatal("Loop guard not found")
	}
	body := successor(t, cfg, guard, EdgeCondTrue)
	if body.Statements[0].Src != "total = total + i" {
		t.Error("True edge should enter the loop body")
	}
	if successor(t, cfg, body, EdgeLoop) != guard {
		t.Error("Body should loop back to the guard")
	}
	if successor(t, cfg, guard, EdgeCondFalse) != blockWithSrc(cfg, "done = True") {
		t.Error("Exhausted iterator should leave the loop")
	}
}

func TestCFGBuilder_Continue(t *testing.T) {
	cfg := buildCFG(t, `
while x:
    if skip:
        continue
    work()
`)

	guard := blockOfKind(cfg, BlockLoopGuard)
	contBlk := blockWithSrc(cfg, "continue")
	if successor(t, cfg, contBlk, EdgeContinue) != guard {
		t.Error("continue should target the loop guard")
	}
}

func TestCFGBuilder_BreakOutsideLoop(t *testing.T) {
	ast := testutil.CreateTestAST(t, "break\n")
	_, err := NewCFGBuilder().Build(ast)

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Expected BuildError, got %v", err)
	}
	if buildErr.Kind != BreakOutsideLoop {
		t.Errorf("Expected BreakOutsideLoop, got %v", buildErr.Kind)
	}
	if buildErr.Stmt == nil {
		t.Error("Error should carry the offending statement")
	}
}

func TestCFGBuilder_ContinueOutsideLoop(t *testing.T) {
	ast := testutil.CreateTestAST(t, "continue\n")
	_, err := NewCFGBuilder().Build(ast)

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Expected BuildError, got %v", err)
	}
	if buildErr.Kind != ContinueOutsideLoop {
		t.Errorf("Expected ContinueOutsideLoop, got %v", buildErr.Kind)
	}
}

func TestCFGBuilder_UnsupportedConstruct(t *testing.T) {
	mod := &parser.Node{
		Type: parser.NodeModule,
		Body: []*parser.Node{{Type: parser.NodeUnknown, Src: "???"}},
	}
	_, err := NewCFGBuilder().Build(mod)

	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Expected BuildError, got %v", err)
	}
	if buildErr.Kind != UnsupportedConstruct {
		t.Errorf("Expected UnsupportedConstruct, got %v", buildErr.Kind)
	}
}

func TestCFGBuilder_Return(t *testing.T) {
	cfg := buildFunctionCFG(t, `
def f(x):
    return x
`, "f")

	retBlk := blockWithSrc(cfg, "return x")
	if retBlk == nil {
		t.Fatal("Return block not found")
	}
	if successor(t, cfg, retBlk, EdgeReturn).ID != cfg.Exit {
		t.Error("return should target Exit")
	}
}

func TestCFGBuilder_CodeAfterReturn(t *testing.T) {
	cfg := buildFunctionCFG(t, `
def f():
    return 1
    x = 2
`, "f")

	deadBlk := blockWithSrc(cfg, "x = 2")
	if deadBlk == nil {
		t.Fatal("Statements after return must still be stored")
	}
	if len(deadBlk.Predecessors) != 0 {
		t.Error("Post-return block should have no incoming edge")
	}
	if deadBlk.AfterJump == nil || deadBlk.AfterJump.Type != parser.NodeReturn {
		t.Error("Post-return block should record the return that cut it off")
	}
}

func TestCFGBuilder_Raise(t *testing.T) {
	cfg := buildCFG(t, "raise ValueError(msg)\nx = 1\n")

	raiseBlk := blockWithSrc(cfg, "raise")
	if successor(t, cfg, raiseBlk, EdgeException).ID != cfg.Exit {
		t.Error("raise outside any try should propagate to Exit")
	}
	deadBlk := blockWithSrc(cfg, "x = 1")
	if len(deadBlk.Predecessors) != 0 {
		t.Error("Code after raise should have no incoming edge")
	}
}

func TestCFGBuilder_TryExcept(t *testing.T) {
	cfg := buildCFG(t, `
try:
    risky()
except ValueError:
    handle()
x = 1
`)

	tryBlk := blockWithSrc(cfg, "risky()")
	dispatch := successor(t, cfg, tryBlk, EdgeException)
	if dispatch.Kind != BlockExceptDispatch {
		t.Fatalf("Exception edge should enter a dispatch block, got %s", dispatch.Kind)
	}
	handler := successor(t, cfg, dispatch, EdgeCondTrue)
	if handler.Statements[0].Src != "handle()" {
		t.Error("Matched exception should enter the handler body")
	}
	if successor(t, cfg, dispatch, EdgeCondFalse).ID != cfg.Exit {
		t.Error("Unmatched exception should propagate to Exit")
	}

	join := blockWithSrc(cfg, "x = 1")
	if successor(t, cfg, tryBlk, EdgeNormal) != join {
		t.Error("Completed try body should continue after the statement")
	}
	if successor(t, cfg, handler, EdgeNormal) != join {
		t.Error("Completed handler should continue after the statement")
	}
}

func TestCFGBuilder_TryMultipleHandlers(t *testing.T) {
	cfg := buildCFG(t, `
try:
    risky()
except ValueError:
    a()
except KeyError:
    b()
`)

	tryBlk := blockWithSrc(cfg, "risky()")
	first := successor(t, cfg, tryBlk, EdgeException)
	second := successor(t, cfg, first, EdgeCondFalse)
	if second.Kind != BlockExceptDispatch {
		t.Fatal("Unmatched exception should try the next handler")
	}
	if successor(t, cfg, second, EdgeCondTrue).Statements[0].Src != "b()" {
		t.Error("Second dispatch should guard the second handler")
	}
	if successor(t, cfg, second, EdgeCondFalse).ID != cfg.Exit {
		t.Error("Exception matched by no handler should propagate")
	}
}

func TestCFGBuilder_TryFinally_Fallthrough(t *testing.T) {
	cfg := buildCFG(t, `
try:
    work()
finally:
    cleanup()
x = 1
`)

	tryBlk := blockWithSrc(cfg, "work()")
	finallyBlk := successor(t, cfg, tryBlk, EdgeNormal)
	if finallyBlk.Kind != BlockFinally {
		t.Fatalf("try body should fall into the finally block, got %s", finallyBlk.Kind)
	}
	if finallyBlk.Statements[0].Src != "cleanup()" {
		t.Error("finally block should hold the finally suite")
	}
	if successor(t, cfg, finallyBlk, EdgeNormal) != blockWithSrc(cfg, "x = 1") {
		t.Error("Completed finally should resume after the try")
	}
	// The exception path also runs the finally suite
	if successor(t, cfg, tryBlk, EdgeException) != finallyBlk {
		t.Error("Exception in try body should enter the finally block")
	}
}

func TestCFGBuilder_BreakRoutedThroughFinally(t *testing.T) {
	cfg := buildFunctionCFG(t, `
def f(items):
    for i in items:
        try:
            break
        finally:
            log()
    return 1
`, "f")

	breakBlk := blockWithSrc(cfg, "break")
	finallyBlk := successor(t, cfg, breakBlk, EdgeBreak)
	if finallyBlk.Kind != BlockFinally {
		t.Fatalf("break inside try/finally should enter the finally block, got %s", finallyBlk.Kind)
	}
	// After the finally completes, the diverted break resumes at the
	// loop's break target
	after := successor(t, cfg, finallyBlk, EdgeNormal)
	if after != blockWithSrc(cfg, "return 1") {
		t.Error("Completed finally should resume the break at the loop exit")
	}
}

func TestCFGBuilder_ReturnInFinallyOverridesBreak(t *testing.T) {
	cfg := buildFunctionCFG(t, `
def f():
    while True:
        try:
            break
        finally:
            return 1
    print("after")
`, "f")

	breakBlk := blockWithSrc(cfg, "break")
	finallyBlk := successor(t, cfg, breakBlk, EdgeBreak)
	if finallyBlk.Kind != BlockFinally {
		t.Fatal("break should be diverted through the finally block")
	}
	// The return inside finally leaves the suite without completing
	// it, so the pending break exit is never taken
	if successor(t, cfg, finallyBlk, EdgeReturn).ID != cfg.Exit {
		t.Error("return in finally should target Exit")
	}

	result := NewReachabilityAnalyzer(cfg).Analyze()
	after := blockWithSrc(cfg, `print("after")`)
	if result.IsReachable(after.ID) {
		t.Error("Code after the loop should be unreachable: the finally always returns")
	}
}

func TestCFGBuilder_ReturnThroughNestedFinallies(t *testing.T) {
	cfg := buildFunctionCFG(t, `
def f():
    try:
        try:
            return 1
        finally:
            inner()
    finally:
        outer()
`, "f")

	retBlk := blockWithSrc(cfg, "return 1")
	inner := successor(t, cfg, retBlk, EdgeReturn)
	if inner.Statements[0].Src != "inner()" {
		t.Fatal("return should enter the innermost finally first")
	}
	outerBlk := successor(t, cfg, inner, EdgeNormal)
	if outerBlk.Statements[0].Src != "outer()" {
		t.Fatal("Completed inner finally should chain to the outer finally")
	}
	if successor(t, cfg, outerBlk, EdgeNormal).ID != cfg.Exit {
		t.Error("Completed outer finally should resume the return at Exit")
	}
}

func TestCFGBuilder_With(t *testing.T) {
	cfg := buildFunctionCFG(t, `
def f(p):
    with open(p) as fh:
        return fh
`, "f")

	retBlk := blockWithSrc(cfg, "return fh")
	teardown := successor(t, cfg, retBlk, EdgeReturn)
	if teardown.Kind != BlockTeardown {
		t.Fatalf("return inside with should run the teardown, got %s", teardown.Kind)
	}
	if successor(t, cfg, teardown, EdgeNormal).ID != cfg.Exit {
		t.Error("Teardown should resume the return at Exit")
	}
}

func TestCFGBuilder_Match(t *testing.T) {
	cfg := buildCFG(t, `
match x:
    case 1:
        a()
    case _:
        b()
print("end")
`)

	var guards []*BasicBlock
	for _, blk := range cfg.Blocks {
		if blk.Kind == BlockCaseGuard {
			guards = append(guards, blk)
		}
	}
	if len(guards) != 2 {
		t.Fatalf("Expected 2 case guards, got %d", len(guards))
	}

	first := guards[0]
	if successor(t, cfg, first, EdgeCondTrue).Statements[0].Src != "a()" {
		t.Error("Matching case should enter its body")
	}
	if successor(t, cfg, first, EdgeCondFalse) != guards[1] {
		t.Error("Non-matching case should try the next pattern")
	}

	join := blockWithSrc(cfg, `print("end")`)
	if successor(t, cfg, blockWithSrc(cfg, "a()"), EdgeNormal) != join {
		t.Error("Case bodies should meet after the match")
	}
}

func TestCFGBuilder_Assert(t *testing.T) {
	cfg := buildCFG(t, "assert x\ny = 1\n")

	assertBlk := blockWithSrc(cfg, "assert x")
	if successor(t, cfg, assertBlk, EdgeCondTrue) != blockWithSrc(cfg, "y = 1") {
		t.Error("Passing assert should continue")
	}
	if successor(t, cfg, assertBlk, EdgeCondFalse).ID != cfg.Exit {
		t.Error("Failing assert outside any try should propagate to Exit")
	}
}

func TestCFGBuilder_BuildAll(t *testing.T) {
	ast := testutil.CreateTestAST(t, `
x = 1

def f():
    return 1

def g():
    def inner():
        pass
    return inner
`)

	cfgs, err := NewCFGBuilder().BuildAll(ast)
	if err != nil {
		t.Fatalf("BuildAll failed: %v", err)
	}

	for _, name := range []string{"__main__", "f", "g", "inner"} {
		if _, ok := cfgs[name]; !ok {
			t.Errorf("Missing CFG for %s", name)
		}
	}
}

func TestCFGBuilder_BuildAll_SkipsBrokenFunction(t *testing.T) {
	ast := testutil.CreateTestAST(t, `
def good():
    return 1

def bad():
    break
`)

	cfgs, err := NewCFGBuilder().BuildAll(ast)
	if err == nil {
		t.Error("Expected an error for the function with break outside loop")
	}
	if _, ok := cfgs["good"]; !ok {
		t.Error("Well-formed functions should still be built")
	}
	if _, ok := cfgs["bad"]; ok {
		t.Error("Broken function should be left out")
	}
}
