package ast

// Span is a source range, 1-based lines and 0-based columns.
type Span struct {
	StartLine   int `json:"start_line"`
	StartColumn int `json:"start_column"`
	EndLine     int `json:"end_line"`
	EndColumn   int `json:"end_column"`
}

// Node is one vertex of the normalized syntax tree. The engine consumes
// only this shape; grammar-specific trees are converted by the adapter.
type Node struct {
	// Kind is the grammar node type, e.g. "call_expression".
	Kind string
	// Field is the name of the slot this node occupies in its parent
	// ("function", "arguments", "declarator", ...), empty if positional.
	Field string
	// Text is the source text covered by the node.
	Text string
	Span Span

	Children []*Node
}

// ChildByField returns the first child occupying the named field.
func (n *Node) ChildByField(field string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns all direct children of the given kind.
func (n *Node) ChildrenOfKind(kind string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// FindFirst returns the first descendant (depth-first, including n itself)
// matching the predicate.
func (n *Node) FindFirst(match func(*Node) bool) *Node {
	if n == nil {
		return nil
	}
	if match(n) {
		return n
	}
	for _, c := range n.Children {
		if found := c.FindFirst(match); found != nil {
			return found
		}
	}
	return nil
}

// FirstOfKind returns the first descendant of the given kind.
func (n *Node) FirstOfKind(kind string) *Node {
	return n.FindFirst(func(c *Node) bool { return c.Kind == kind })
}

// Loc returns the node's start position.
func (n *Node) Loc() (line, column int) {
	if n == nil {
		return 0, 0
	}
	return n.Span.StartLine, n.Span.StartColumn
}

// File is one normalized translation unit handed to the engine.
type File struct {
	Path     string
	Language string
	Root     *Node
}
