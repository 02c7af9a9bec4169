// Package highlight turns prose into the visual tree shown in the drawing
// region: every sentence becomes a span colored by its word count.
package highlight

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/livefir/writemusic/internal/annotate"
	"github.com/livefir/writemusic/internal/nlcst"
	"github.com/livefir/writemusic/internal/vdom"
)

// Keys of the fixed regions of the page
const (
	DrawKey  = "draw"
	AreaKey  = "area"
	BreakKey = "break"
)

// Parser produces a syntax tree for a piece of text
type Parser interface {
	Parse(text string) (*nlcst.Node, error)
}

// Builder converts text into visual trees. It is stateless between builds
// and safe for concurrent use.
type Builder struct {
	parser Parser
	title  string
}

// Option configures a Builder
type Option func(*Builder)

// WithParser replaces the default tokenizer
func WithParser(p Parser) Option {
	return func(b *Builder) {
		b.parser = p
	}
}

// WithTitle sets the page heading
func WithTitle(title string) Option {
	return func(b *Builder) {
		b.title = title
	}
}

// NewBuilder creates a builder backed by the nlcst tokenizer
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		parser: nlcst.NewParser(),
		title:  DefaultTitle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the drawing region for text
func (b *Builder) Build(text string) (*vdom.Node, error) {
	tree, err := b.parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text: %w", err)
	}
	if err := nlcst.Validate(tree); err != nil {
		return nil, err
	}

	c := &converter{}
	children := c.all(tree, nil)
	return vdom.H("div", DrawKey, vdom.Attrs{"class": "draw"}, pad(children)...), nil
}

// converter holds the styled node counter of one build
type converter struct {
	counter int
}

func (c *converter) all(node *nlcst.Node, parent []int) []*vdom.Node {
	var results []*vdom.Node
	for i, child := range node.Children {
		ids := append(append(make([]int, 0, len(parent)+1), parent...), i)
		results = append(results, c.one(child, ids)...)
	}
	return results
}

func (c *converter) one(node *nlcst.Node, ids []int) []*vdom.Node {
	var result []*vdom.Node
	if node.IsLeaf() {
		result = []*vdom.Node{vdom.Text(node.Value)}
	} else {
		result = c.all(node, ids)
	}

	color, ok := annotate.StyleFor(node)
	if !ok {
		return result
	}

	span := vdom.H("span", c.key(ids), nil, result...).SetStyle("background-color", color)
	c.counter++
	return []*vdom.Node{span}
}

// key joins the path with the build counter: "0-2-5"
func (c *converter) key(ids []int) string {
	parts := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	parts = append(parts, strconv.Itoa(c.counter))
	return strings.Join(parts, "-")
}

// pad makes a trailing newline explicit. The drawing region collapses it
// while the textarea does not, so without the break the two drift apart.
func pad(nodes []*vdom.Node) []*vdom.Node {
	if len(nodes) == 0 {
		return nodes
	}
	tail := nodes[len(nodes)-1]
	if tail.Kind == vdom.TextNode && strings.HasSuffix(tail.Text, "\n") {
		nodes = append(nodes, vdom.H("br", BreakKey, nil))
	}
	return nodes
}
