// Package nlcst builds natural language concrete syntax trees: a lossless
// paragraph, sentence and word tree for a piece of prose.
package nlcst

import (
	"errors"
	"fmt"
	"strings"
)

// Type identifies the kind of a tree node
type Type string

const (
	TypeRoot        Type = "RootNode"
	TypeParagraph   Type = "ParagraphNode"
	TypeSentence    Type = "SentenceNode"
	TypeWord        Type = "WordNode"
	TypeWhiteSpace  Type = "WhiteSpaceNode"
	TypePunctuation Type = "PunctuationNode"
	TypeSymbol      Type = "SymbolNode"
)

// IsContainer reports whether nodes of this type hold children instead of a value
func (t Type) IsContainer() bool {
	switch t {
	case TypeRoot, TypeParagraph, TypeSentence:
		return true
	}
	return false
}

// ErrMalformedTree is returned when a node does not have the shape its type requires
var ErrMalformedTree = errors.New("malformed syntax tree")

// Node is either a container (Children set) or a leaf (Value set)
type Node struct {
	Type     Type    `json:"type"`
	Value    string  `json:"value,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// NewContainer creates a container node with an empty, non-nil child list
func NewContainer(t Type, children ...*Node) *Node {
	if children == nil {
		children = []*Node{}
	}
	return &Node{Type: t, Children: children}
}

// NewLeaf creates a leaf node
func NewLeaf(t Type, value string) *Node {
	return &Node{Type: t, Value: value}
}

// IsLeaf reports whether n carries a literal value
func (n *Node) IsLeaf() bool {
	return !n.Type.IsContainer()
}

// Visit walks the tree in pre-order and calls fn for every node of type t.
// An empty t matches every node.
func Visit(n *Node, t Type, fn func(*Node)) {
	if n == nil {
		return
	}
	if t == "" || n.Type == t {
		fn(n)
	}
	for _, child := range n.Children {
		Visit(child, t, fn)
	}
}

// String concatenates every leaf value in document order
func String(n *Node) string {
	var b strings.Builder
	Visit(n, "", func(node *Node) {
		if node.IsLeaf() {
			b.WriteString(node.Value)
		}
	})
	return b.String()
}

// Validate checks the shape of every node below n
func Validate(n *Node) error {
	return validate(n, "root")
}

func validate(n *Node, path string) error {
	if n == nil {
		return fmt.Errorf("%w: nil node at %s", ErrMalformedTree, path)
	}
	if n.Type == "" {
		return fmt.Errorf("%w: untyped node at %s", ErrMalformedTree, path)
	}
	if n.Type.IsContainer() {
		if n.Children == nil {
			return fmt.Errorf("%w: %s at %s has no children", ErrMalformedTree, n.Type, path)
		}
		for i, child := range n.Children {
			if err := validate(child, fmt.Sprintf("%s/%d", path, i)); err != nil {
				return err
			}
		}
		return nil
	}
	if len(n.Children) > 0 {
		return fmt.Errorf("%w: leaf %s at %s has children", ErrMalformedTree, n.Type, path)
	}
	return nil
}
