// Package vdom describes renderable trees declaratively and reconciles two
// descriptions into the minimal patch that turns one display into the other.
package vdom

import (
	"strconv"
	"strings"
)

// Kind distinguishes elements from literal text
type Kind string

const (
	ElementNode Kind = "element"
	TextNode    Kind = "text"
)

// Node is a declarative description of an element or a run of text.
// Key is the identity used to match nodes across rebuilds; it must be unique
// among siblings.
type Node struct {
	Kind     Kind              `json:"kind"`
	Tag      string            `json:"tag,omitempty"`
	Key      string            `json:"key,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Style    map[string]string `json:"style,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// Attrs is a shorthand for attribute maps
type Attrs map[string]string

// H creates an element node
func H(tag, key string, attrs Attrs, children ...*Node) *Node {
	return &Node{
		Kind:     ElementNode,
		Tag:      tag,
		Key:      key,
		Attrs:    attrs,
		Children: children,
	}
}

// Text creates a text node
func Text(text string) *Node {
	return &Node{Kind: TextNode, Text: text}
}

// SetStyle sets a style property and returns n
func (n *Node) SetStyle(property, value string) *Node {
	if n.Style == nil {
		n.Style = make(map[string]string)
	}
	n.Style[property] = value
	return n
}

// Find returns the first node in pre-order with the given key
func (n *Node) Find(key string) *Node {
	if n == nil {
		return nil
	}
	if n.Key == key {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(key); found != nil {
			return found
		}
	}
	return nil
}

// Count returns how many nodes below and including n satisfy match
func (n *Node) Count(match func(*Node) bool) int {
	if n == nil {
		return 0
	}
	count := 0
	if match(n) {
		count++
	}
	for _, child := range n.Children {
		count += child.Count(match)
	}
	return count
}

// TextContent concatenates every text node below n
func (n *Node) TextContent() string {
	var b strings.Builder
	n.writeText(&b)
	return b.String()
}

func (n *Node) writeText(b *strings.Builder) {
	if n == nil {
		return
	}
	if n.Kind == TextNode {
		b.WriteString(n.Text)
		return
	}
	for _, child := range n.Children {
		child.writeText(b)
	}
}

// Path addresses a node by child indices from the root
type Path []int

// Child returns a new path extended by index
func (p Path) Child(index int) Path {
	child := make(Path, len(p), len(p)+1)
	copy(child, p)
	return append(child, index)
}

func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	parts := make([]string, len(p))
	for i, index := range p {
		parts[i] = strconv.Itoa(index)
	}
	return "/" + strings.Join(parts, "/")
}
