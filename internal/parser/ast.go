package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeType represents the type of AST node
type NodeType string

// Python AST node types
const (
	// Program structure
	NodeModule  NodeType = "Module"
	NodeUnknown NodeType = "Unknown"

	// Definitions
	NodeFunctionDef      NodeType = "FunctionDef"
	NodeAsyncFunctionDef NodeType = "AsyncFunctionDef"
	NodeClassDef         NodeType = "ClassDef"

	// Control flow statements
	NodeIf       NodeType = "If"
	NodeWhile    NodeType = "While"
	NodeFor      NodeType = "For"
	NodeBreak    NodeType = "Break"
	NodeContinue NodeType = "Continue"
	NodeReturn   NodeType = "Return"

	// Exception handling
	NodeTry           NodeType = "Try"
	NodeExceptHandler NodeType = "ExceptHandler"
	NodeRaise         NodeType = "Raise"

	// Structured blocks
	NodeWith      NodeType = "With"
	NodeMatch     NodeType = "Match"
	NodeMatchCase NodeType = "MatchCase"

	// Simple statements
	NodePass       NodeType = "Pass"
	NodeAssert     NodeType = "Assert"
	NodeAssign     NodeType = "Assign"
	NodeAugAssign  NodeType = "AugAssign"
	NodeExpr       NodeType = "Expr"
	NodeImport     NodeType = "Import"
	NodeImportFrom NodeType = "ImportFrom"
	NodeGlobal     NodeType = "Global"
	NodeNonlocal   NodeType = "Nonlocal"
	NodeDelete     NodeType = "Delete"

	// Expressions (only the kinds the analyzer needs to distinguish)
	NodeBooleanLiteral NodeType = "BooleanLiteral"
	NodeNoneLiteral    NodeType = "NoneLiteral"
	NodeIntegerLiteral NodeType = "IntegerLiteral"
	NodeFloatLiteral   NodeType = "FloatLiteral"
	NodeStringLiteral  NodeType = "StringLiteral"
	NodeTupleExpr      NodeType = "TupleExpr"
	NodeListExpr       NodeType = "ListExpr"
	NodeDictExpr       NodeType = "DictExpr"
	NodeSetExpr        NodeType = "SetExpr"
	NodeParenExpr      NodeType = "ParenExpr"
	NodeName           NodeType = "Name"
	NodeCall           NodeType = "Call"
	NodeUnknownExpr    NodeType = "UnknownExpr"
)

// Location represents the position of a node in the source code
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// String returns a string representation of the location
func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.StartLine, l.StartCol)
}

// Node represents a Python AST node
type Node struct {
	Type     NodeType
	Location Location
	Parent   *Node
	Children []*Node

	// Src is the exact source text of the node, used for diagnostics
	// and graph rendering
	Src string

	// Name for function/class definitions
	Name string

	// Statement suites
	Body      []*Node // Main suite (function body, loop body, try body, ...)
	Orelse    []*Node // else suite (if/while/for/try else)
	Handlers  []*Node // except clauses of a try
	Finalbody []*Node // finally suite of a try

	// Control flow fields
	Test    *Node // Condition for if/while/assert
	Target  *Node // Loop target for for
	Iter    *Node // Iterable for for
	Subject *Node // Subject of a match
	Pattern *Node // Pattern of a match case or the type of an except clause
	Value   *Node // Wrapped expression (return value, paren contents, ...)

	// Raw literal text for literal expression nodes
	Raw string

	// IsAsync marks async def / async for / async with
	IsAsync bool
}

// NewNode creates a new AST node
func NewNode(nodeType NodeType) *Node {
	return &Node{Type: nodeType}
}

// AddChild adds a child node
func (n *Node) AddChild(child *Node) {
	if child == nil {
		return
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// IsFunction returns true for function definition nodes
func (n *Node) IsFunction() bool {
	return n.Type == NodeFunctionDef || n.Type == NodeAsyncFunctionDef
}

// IsJump returns true for statements that unconditionally divert control
func (n *Node) IsJump() bool {
	switch n.Type {
	case NodeReturn, NodeBreak, NodeContinue, NodeRaise:
		return true
	}
	return false
}

// Walk traverses the node and all statement suites below it in source
// order. The callback returns false to skip the subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, suite := range [][]*Node{n.Body, n.Orelse, n.Handlers, n.Finalbody} {
		for _, child := range suite {
			child.Walk(fn)
		}
	}
}

// LiteralTruthiness reports the truthiness of a literal expression.
// known is false when the expression is not a literal whose truth value
// can be decided without evaluation.
func LiteralTruthiness(n *Node) (truthy bool, known bool) {
	if n == nil {
		return false, false
	}
	switch n.Type {
	case NodeBooleanLiteral:
		return n.Raw == "True", true
	case NodeNoneLiteral:
		return false, true
	case NodeIntegerLiteral, NodeFloatLiteral:
		v, err := strconv.ParseFloat(strings.ReplaceAll(n.Raw, "_", ""), 64)
		if err != nil {
			return false, false
		}
		return v != 0, true
	case NodeStringLiteral:
		content, ok := stringLiteralContent(n.Raw)
		if !ok {
			return false, false
		}
		return content != "", true
	case NodeTupleExpr, NodeListExpr, NodeSetExpr, NodeDictExpr:
		return len(n.Children) > 0, true
	case NodeParenExpr:
		return LiteralTruthiness(n.Value)
	}
	return false, false
}

// stringLiteralContent strips quotes from a plain string literal. Returns
// ok=false for prefixed literals (f-strings etc.) whose value depends on
// evaluation.
func stringLiteralContent(raw string) (string, bool) {
	s := raw
	for len(s) > 0 && s[0] != '"' && s[0] != '\'' {
		switch s[0] {
		case 'r', 'R', 'b', 'B', 'u', 'U':
			s = s[1:]
		case 'f', 'F':
			// Formatted string, value unknown without evaluation
			return "", false
		default:
			return "", false
		}
	}
	if len(s) < 2 {
		return "", false
	}
	quote := s[0]
	if s[len(s)-1] != quote {
		return "", false
	}
	// Triple quotes
	if len(s) >= 6 && s[1] == quote && s[2] == quote {
		return s[3 : len(s)-3], true
	}
	return s[1 : len(s)-1], true
}
