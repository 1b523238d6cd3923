package parser

import (
	"testing"
)

// condOf parses a snippet of the form "while <expr>: pass" and returns
// the condition expression node
func condOf(t *testing.T, expr string) *Node {
	t.Helper()
	ast := parseSource(t, "while "+expr+":\n    pass\n")
	if len(ast.Body) != 1 || ast.Body[0].Type != NodeWhile {
		t.Fatalf("Unexpected parse for %q", expr)
	}
	return ast.Body[0].Test
}

func TestLiteralTruthiness(t *testing.T) {
	tests := []struct {
		expr   string
		truthy bool
		known  bool
	}{
		{"True", true, true},
		{"False", false, true},
		{"None", false, true},
		{"0", false, true},
		{"1", true, true},
		{"0.0", false, true},
		{"2.5", true, true},
		{"1_000", true, true},
		{`""`, false, true},
		{`"x"`, true, true},
		{"()", false, true},
		{"(1, 2)", true, true},
		{"[]", false, true},
		{"[1]", true, true},
		{"{}", false, true},
		{"(True)", true, true},
		{"(0)", false, true},
		// Not literals: runtime values
		{"x", false, false},
		{"f()", false, false},
		{"x + 1", false, false},
		{"not x", false, false},
	}

	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			truthy, known := LiteralTruthiness(condOf(t, tc.expr))
			if known != tc.known {
				t.Fatalf("LiteralTruthiness(%s): known = %v, expected %v", tc.expr, known, tc.known)
			}
			if known && truthy != tc.truthy {
				t.Errorf("LiteralTruthiness(%s): truthy = %v, expected %v", tc.expr, truthy, tc.truthy)
			}
		})
	}
}

func TestLiteralTruthiness_Nil(t *testing.T) {
	if _, known := LiteralTruthiness(nil); known {
		t.Error("nil expression should be unknown")
	}
}

func TestNode_IsFunction(t *testing.T) {
	ast := parseSource(t, `
def f():
    pass

class C:
    def method(self):
        pass
`)

	if !ast.Body[0].IsFunction() {
		t.Error("def should be a function")
	}
	if ast.Body[1].IsFunction() {
		t.Error("class should not be a function")
	}
	if !ast.Body[1].Body[0].IsFunction() {
		t.Error("method should be a function")
	}
}

func TestNode_Walk(t *testing.T) {
	ast := parseSource(t, `
def outer():
    def inner():
        pass
    return inner
`)

	var names []string
	ast.Walk(func(n *Node) bool {
		if n.IsFunction() {
			names = append(names, n.Name)
		}
		return true
	})

	if len(names) != 2 || names[0] != "outer" || names[1] != "inner" {
		t.Errorf("Walk should visit nested functions in order, got %v", names)
	}
}

func TestNode_WalkSkipsSubtree(t *testing.T) {
	ast := parseSource(t, `
def outer():
    def inner():
        pass
`)

	count := 0
	ast.Walk(func(n *Node) bool {
		if n.IsFunction() {
			count++
			return false
		}
		return true
	})

	if count != 1 {
		t.Errorf("Returning false should skip the subtree, got %d functions", count)
	}
}
