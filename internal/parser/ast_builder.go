package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// ASTBuilder converts a tree-sitter CST into the internal statement tree
type ASTBuilder struct {
	filename string
	source   []byte
}

// NewASTBuilder creates a new AST builder
func NewASTBuilder(filename string, source []byte) *ASTBuilder {
	return &ASTBuilder{filename: filename, source: source}
}

// Build converts the root CST node into a Module node
func (b *ASTBuilder) Build(root *sitter.Node) *Node {
	module := b.newNode(NodeModule, root)
	module.Body = b.convertSuite(root)
	return module
}

// newNode creates a Node of the given type carrying location and source text
func (b *ASTBuilder) newNode(t NodeType, ts *sitter.Node) *Node {
	n := NewNode(t)
	if ts != nil {
		n.Location = Location{
			File:      b.filename,
			StartLine: int(ts.StartPoint().Row) + 1,
			StartCol:  int(ts.StartPoint().Column),
			EndLine:   int(ts.EndPoint().Row) + 1,
			EndCol:    int(ts.EndPoint().Column),
		}
		n.Src = ts.Content(b.source)
	}
	return n
}

// convertSuite converts every named child of a block-like node into a
// statement, skipping comments and other non-statement trivia.
func (b *ASTBuilder) convertSuite(block *sitter.Node) []*Node {
	if block == nil {
		return nil
	}
	var stmts []*Node
	for i := 0; i < int(block.NamedChildCount()); i++ {
		child := block.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if stmt := b.convertStatement(child); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// convertStatement converts one CST statement node
func (b *ASTBuilder) convertStatement(ts *sitter.Node) *Node {
	switch ts.Type() {
	case "function_definition":
		return b.convertFunctionDef(ts, hasAsyncKeyword(ts))
	case "decorated_definition":
		if def := ts.ChildByFieldName("definition"); def != nil {
			return b.convertStatement(def)
		}
		return nil
	case "class_definition":
		node := b.newNode(NodeClassDef, ts)
		if name := ts.ChildByFieldName("name"); name != nil {
			node.Name = name.Content(b.source)
		}
		node.Body = b.convertSuite(ts.ChildByFieldName("body"))
		return node
	case "if_statement":
		return b.convertIf(ts)
	case "while_statement":
		node := b.newNode(NodeWhile, ts)
		node.Test = b.convertExpression(ts.ChildByFieldName("condition"))
		node.Body = b.convertSuite(ts.ChildByFieldName("body"))
		node.Orelse = b.convertElseClauses(ts)
		return node
	case "for_statement":
		node := b.newNode(NodeFor, ts)
		node.IsAsync = hasAsyncKeyword(ts)
		node.Target = b.convertExpression(ts.ChildByFieldName("left"))
		node.Iter = b.convertExpression(ts.ChildByFieldName("right"))
		node.Body = b.convertSuite(ts.ChildByFieldName("body"))
		node.Orelse = b.convertElseClauses(ts)
		return node
	case "try_statement":
		return b.convertTry(ts)
	case "with_statement":
		node := b.newNode(NodeWith, ts)
		node.IsAsync = hasAsyncKeyword(ts)
		node.Body = b.convertSuite(ts.ChildByFieldName("body"))
		return node
	case "match_statement":
		return b.convertMatch(ts)
	case "return_statement":
		node := b.newNode(NodeReturn, ts)
		if ts.NamedChildCount() > 0 {
			node.Value = b.convertExpression(ts.NamedChild(0))
		}
		return node
	case "break_statement":
		return b.newNode(NodeBreak, ts)
	case "continue_statement":
		return b.newNode(NodeContinue, ts)
	case "raise_statement":
		node := b.newNode(NodeRaise, ts)
		if ts.NamedChildCount() > 0 {
			node.Value = b.convertExpression(ts.NamedChild(0))
		}
		return node
	case "pass_statement":
		return b.newNode(NodePass, ts)
	case "assert_statement":
		node := b.newNode(NodeAssert, ts)
		if ts.NamedChildCount() > 0 {
			node.Test = b.convertExpression(ts.NamedChild(0))
		}
		return node
	case "expression_statement":
		return b.convertExpressionStatement(ts)
	case "import_statement", "future_import_statement":
		return b.newNode(NodeImport, ts)
	case "import_from_statement":
		return b.newNode(NodeImportFrom, ts)
	case "global_statement":
		return b.newNode(NodeGlobal, ts)
	case "nonlocal_statement":
		return b.newNode(NodeNonlocal, ts)
	case "delete_statement":
		return b.newNode(NodeDelete, ts)
	case "comment":
		return nil
	}
	// Anything else is handed to the CFG builder as-is; it decides
	// whether the construct is supported.
	return b.newNode(NodeUnknown, ts)
}

func (b *ASTBuilder) convertFunctionDef(ts *sitter.Node, isAsync bool) *Node {
	t := NodeFunctionDef
	if isAsync {
		t = NodeAsyncFunctionDef
	}
	node := b.newNode(t, ts)
	node.IsAsync = isAsync
	if name := ts.ChildByFieldName("name"); name != nil {
		node.Name = name.Content(b.source)
	}
	node.Body = b.convertSuite(ts.ChildByFieldName("body"))
	return node
}

// convertIf builds an If node; elif clauses become nested If nodes in Orelse
func (b *ASTBuilder) convertIf(ts *sitter.Node) *Node {
	node := b.newNode(NodeIf, ts)
	node.Test = b.convertExpression(ts.ChildByFieldName("condition"))
	node.Body = b.convertSuite(ts.ChildByFieldName("consequence"))

	current := node
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		clause := ts.NamedChild(i)
		switch clause.Type() {
		case "elif_clause":
			elif := b.newNode(NodeIf, clause)
			elif.Test = b.convertExpression(clause.ChildByFieldName("condition"))
			elif.Body = b.convertSuite(clause.ChildByFieldName("consequence"))
			current.Orelse = []*Node{elif}
			current = elif
		case "else_clause":
			current.Orelse = b.convertSuite(clause.ChildByFieldName("body"))
		}
	}
	return node
}

func (b *ASTBuilder) convertTry(ts *sitter.Node) *Node {
	node := b.newNode(NodeTry, ts)
	node.Body = b.convertSuite(ts.ChildByFieldName("body"))
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		clause := ts.NamedChild(i)
		switch clause.Type() {
		case "except_clause", "except_group_clause":
			handler := b.newNode(NodeExceptHandler, clause)
			for j := 0; j < int(clause.NamedChildCount()); j++ {
				sub := clause.NamedChild(j)
				if sub.Type() == "block" {
					handler.Body = b.convertSuite(sub)
				} else if handler.Pattern == nil && sub.Type() != "comment" {
					handler.Pattern = b.convertExpression(sub)
				}
			}
			node.Handlers = append(node.Handlers, handler)
		case "else_clause":
			node.Orelse = b.convertSuite(clause.ChildByFieldName("body"))
		case "finally_clause":
			node.Finalbody = b.convertSuite(lastBlockChild(clause))
		}
	}
	return node
}

func (b *ASTBuilder) convertMatch(ts *sitter.Node) *Node {
	node := b.newNode(NodeMatch, ts)
	node.Subject = b.convertExpression(ts.ChildByFieldName("subject"))
	body := ts.ChildByFieldName("body")
	if body == nil {
		return node
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		clause := body.NamedChild(i)
		if clause.Type() != "case_clause" {
			continue
		}
		matchCase := b.newNode(NodeMatchCase, clause)
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			sub := clause.NamedChild(j)
			if sub.Type() == "block" {
				matchCase.Body = b.convertSuite(sub)
			} else if matchCase.Pattern == nil && sub.Type() != "comment" {
				matchCase.Pattern = b.convertExpression(sub)
			}
		}
		node.Body = append(node.Body, matchCase)
	}
	return node
}

// convertExpressionStatement distinguishes assignments from plain
// expression statements; both end up as single statements in a block.
func (b *ASTBuilder) convertExpressionStatement(ts *sitter.Node) *Node {
	if ts.NamedChildCount() == 1 {
		inner := ts.NamedChild(0)
		switch inner.Type() {
		case "assignment":
			node := b.newNode(NodeAssign, ts)
			node.Value = b.convertExpression(inner.ChildByFieldName("right"))
			return node
		case "augmented_assignment":
			node := b.newNode(NodeAugAssign, ts)
			node.Value = b.convertExpression(inner.ChildByFieldName("right"))
			return node
		}
	}
	node := b.newNode(NodeExpr, ts)
	if ts.NamedChildCount() > 0 {
		node.Value = b.convertExpression(ts.NamedChild(0))
	}
	return node
}

// convertExpression maps an expression CST node onto the small expression
// vocabulary the analyzer understands. Unrecognized expressions keep their
// source text but carry no structure.
func (b *ASTBuilder) convertExpression(ts *sitter.Node) *Node {
	if ts == nil {
		return nil
	}
	switch ts.Type() {
	case "true", "false":
		node := b.newNode(NodeBooleanLiteral, ts)
		node.Raw = node.Src
		return node
	case "none":
		node := b.newNode(NodeNoneLiteral, ts)
		node.Raw = node.Src
		return node
	case "integer":
		node := b.newNode(NodeIntegerLiteral, ts)
		node.Raw = node.Src
		return node
	case "float":
		node := b.newNode(NodeFloatLiteral, ts)
		node.Raw = node.Src
		return node
	case "string", "concatenated_string":
		node := b.newNode(NodeStringLiteral, ts)
		node.Raw = node.Src
		return node
	case "tuple":
		return b.convertContainer(NodeTupleExpr, ts)
	case "list":
		return b.convertContainer(NodeListExpr, ts)
	case "dictionary":
		return b.convertContainer(NodeDictExpr, ts)
	case "set":
		return b.convertContainer(NodeSetExpr, ts)
	case "parenthesized_expression":
		// A parenthesized single expression; `()` parses as tuple
		node := b.newNode(NodeParenExpr, ts)
		if ts.NamedChildCount() > 0 {
			node.Value = b.convertExpression(ts.NamedChild(0))
		}
		return node
	case "identifier":
		node := b.newNode(NodeName, ts)
		node.Name = node.Src
		return node
	case "call":
		return b.newNode(NodeCall, ts)
	}
	return b.newNode(NodeUnknownExpr, ts)
}

func (b *ASTBuilder) convertContainer(t NodeType, ts *sitter.Node) *Node {
	node := b.newNode(t, ts)
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		child := ts.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		node.AddChild(b.convertExpression(child))
	}
	return node
}

// convertElseClauses extracts the else suite of a loop, if any
func (b *ASTBuilder) convertElseClauses(ts *sitter.Node) []*Node {
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		clause := ts.NamedChild(i)
		if clause.Type() == "else_clause" {
			return b.convertSuite(clause.ChildByFieldName("body"))
		}
	}
	return nil
}

// hasAsyncKeyword reports whether a definition or loop carries the async
// keyword (tree-sitter exposes it as an anonymous child token).
func hasAsyncKeyword(ts *sitter.Node) bool {
	for i := 0; i < int(ts.ChildCount()); i++ {
		if ts.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

// lastBlockChild returns the last named block child of a clause
func lastBlockChild(ts *sitter.Node) *sitter.Node {
	var block *sitter.Node
	for i := 0; i < int(ts.NamedChildCount()); i++ {
		if ts.NamedChild(i).Type() == "block" {
			block = ts.NamedChild(i)
		}
	}
	return block
}
