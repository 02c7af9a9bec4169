package vdom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// KeyAttr carries a node's identity key on the materialized element
const KeyAttr = "data-key"

// ErrInvalidPath is returned when an operation addresses a node that does not exist
var ErrInvalidPath = errors.New("invalid patch path")

// Document is a materialized display: an html.Node tree mirroring exactly
// one Node tree, child for child.
type Document struct {
	root *html.Node
}

// Materialize builds a live document from a tree
func Materialize(tree *Node) (*Document, error) {
	if tree == nil {
		return nil, ErrNilNode
	}
	if err := checkKeys(tree); err != nil {
		return nil, err
	}
	return &Document{root: build(tree)}, nil
}

// Root returns the root element of the document
func (d *Document) Root() *html.Node {
	return d.root
}

// Render writes the document as HTML
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document as HTML
func (d *Document) String() string {
	var buf bytes.Buffer
	_ = d.Render(&buf)
	return buf.String()
}

// FindByKey returns the element carrying the given identity key
func (d *Document) FindByKey(key string) *html.Node {
	return findByKey(d.root, key)
}

// PathOf returns the child-index path of the element with the given key
func (d *Document) PathOf(key string) (Path, bool) {
	return pathOf(d.root, key, Path{})
}

// SetAttr sets an attribute on the element with the given key. It is meant
// for display-only state that no tree describes, such as a row count.
func (d *Document) SetAttr(key, name, value string) bool {
	n := d.FindByKey(key)
	if n == nil {
		return false
	}
	setAttr(n, name, value)
	return true
}

// Attr returns an attribute of the element with the given key
func (d *Document) Attr(key, name string) (string, bool) {
	n := d.FindByKey(key)
	if n == nil {
		return "", false
	}
	return getAttr(n, name)
}

// Apply applies patch to a copy of doc and returns the copy. doc itself is
// never modified, so a failing patch leaves the previous display intact.
func Apply(doc *Document, patch Patch) (*Document, error) {
	if doc == nil {
		return nil, ErrNilNode
	}
	if patch.Empty() {
		return doc, nil
	}

	next := &Document{root: cloneNode(doc.root)}
	for i, op := range patch.Operations {
		if err := next.apply(op); err != nil {
			return nil, fmt.Errorf("operation %d (%s %s): %w", i+1, op.Type, op.Path, err)
		}
	}
	return next, nil
}

func (d *Document) apply(op Operation) error {
	target, err := d.lookup(op.Path)
	if err != nil {
		return err
	}

	switch op.Type {
	case OpInsert:
		if op.Node == nil {
			return ErrNilNode
		}
		if target.Type != html.ElementNode {
			return fmt.Errorf("%w: insert into non-element", ErrInvalidPath)
		}
		ref, err := childAt(target, op.Index)
		if err != nil && op.Index != childCount(target) {
			return err
		}
		target.InsertBefore(build(op.Node), ref)

	case OpRemove:
		if target.Parent == nil {
			return fmt.Errorf("%w: cannot remove the root", ErrInvalidPath)
		}
		target.Parent.RemoveChild(target)

	case OpMove:
		child, err := childAt(target, op.From)
		if err != nil {
			return err
		}
		target.RemoveChild(child)
		ref, err := childAt(target, op.Index)
		if err != nil && op.Index != childCount(target) {
			return err
		}
		target.InsertBefore(child, ref)

	case OpReplace:
		if op.Node == nil {
			return ErrNilNode
		}
		replacement := build(op.Node)
		if target.Parent == nil {
			d.root = replacement
			return nil
		}
		target.Parent.InsertBefore(replacement, target)
		target.Parent.RemoveChild(target)

	case OpSetText:
		if target.Type != html.TextNode {
			return fmt.Errorf("%w: setText on element", ErrInvalidPath)
		}
		target.Data = op.Value

	case OpSetAttribute:
		if isValueProperty(target, op.Key) {
			setValue(target, op.Value)
			return nil
		}
		setAttr(target, op.Key, op.Value)

	case OpRemoveAttribute:
		if isValueProperty(target, op.Key) {
			setValue(target, "")
			return nil
		}
		removeAttr(target, op.Key)

	case OpSetStyle:
		style := parseStyle(target)
		style[op.Key] = op.Value
		writeStyle(target, style)

	case OpRemoveStyle:
		style := parseStyle(target)
		delete(style, op.Key)
		writeStyle(target, style)

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}

	return nil
}

// lookup walks a child-index path from the root
func (d *Document) lookup(path Path) (*html.Node, error) {
	n := d.root
	for _, index := range path {
		child, err := childAt(n, index)
		if err != nil {
			return nil, err
		}
		n = child
	}
	return n, nil
}

// build converts a Node into html nodes
func build(n *Node) *html.Node {
	if n.Kind == TextNode {
		return &html.Node{Type: html.TextNode, Data: n.Text}
	}

	el := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Tag,
		DataAtom: atom.Lookup([]byte(n.Tag)),
	}

	for key, value := range n.Attrs {
		if key == "value" && el.DataAtom == atom.Textarea {
			continue
		}
		setAttr(el, key, value)
	}
	if len(n.Style) > 0 {
		writeStyle(el, n.Style)
	}
	if n.Key != "" {
		setAttr(el, KeyAttr, n.Key)
	}

	// A textarea's value is its only child
	if el.DataAtom == atom.Textarea {
		el.AppendChild(&html.Node{Type: html.TextNode, Data: n.Attrs["value"]})
		return el
	}

	for _, child := range n.Children {
		if child == nil {
			continue
		}
		el.AppendChild(build(child))
	}
	return el
}

func isValueProperty(n *html.Node, key string) bool {
	return key == "value" && n.Type == html.ElementNode && n.DataAtom == atom.Textarea
}

func setValue(n *html.Node, value string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
}

func childAt(n *html.Node, index int) (*html.Node, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative index %d", ErrInvalidPath, index)
	}
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if i == index {
			return c, nil
		}
		i++
	}
	return nil, fmt.Errorf("%w: no child %d", ErrInvalidPath, index)
}

func childCount(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}

func findByKey(n *html.Node, key string) *html.Node {
	if n == nil {
		return nil
	}
	if v, ok := getAttr(n, KeyAttr); ok && v == key {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByKey(c, key); found != nil {
			return found
		}
	}
	return nil
}

func pathOf(n *html.Node, key string, path Path) (Path, bool) {
	if v, ok := getAttr(n, KeyAttr); ok && v == key {
		return path, true
	}
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found, ok := pathOf(c, key, path.Child(i)); ok {
			return found, true
		}
		i++
	}
	return nil, false
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val, true
		}
	}
	return "", false
}

// setAttr keeps attributes sorted by name so equal documents render equally
func setAttr(n *html.Node, name, value string) {
	i := sort.Search(len(n.Attr), func(i int) bool { return n.Attr[i].Key >= name })
	if i < len(n.Attr) && n.Attr[i].Key == name {
		n.Attr[i].Val = value
		return
	}
	n.Attr = append(n.Attr, html.Attribute{})
	copy(n.Attr[i+1:], n.Attr[i:])
	n.Attr[i] = html.Attribute{Key: name, Val: value}
}

func removeAttr(n *html.Node, name string) {
	attrs := n.Attr[:0]
	for _, attr := range n.Attr {
		if attr.Key != name {
			attrs = append(attrs, attr)
		}
	}
	n.Attr = attrs
}

// StyleOf returns the style properties of a materialized element
func StyleOf(n *html.Node) map[string]string {
	return parseStyle(n)
}

// parseStyle reads a "prop: value; prop: value" style attribute
func parseStyle(n *html.Node) map[string]string {
	style := make(map[string]string)
	raw, _ := getAttr(n, "style")
	for _, decl := range strings.Split(raw, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		style[strings.TrimSpace(prop)] = strings.TrimSpace(value)
	}
	return style
}

func writeStyle(n *html.Node, style map[string]string) {
	if len(style) == 0 {
		removeAttr(n, "style")
		return
	}
	props := make([]string, 0, len(style))
	for prop := range style {
		props = append(props, prop)
	}
	sort.Strings(props)

	decls := make([]string, len(props))
	for i, prop := range props {
		decls[i] = prop + ": " + style[prop]
	}
	setAttr(n, "style", strings.Join(decls, "; "))
}

func cloneNode(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneNode(c))
	}
	return clone
}

// RenderString renders a single node as HTML, for logs and debugging
func RenderString(n *Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	_ = html.Render(&buf, build(n))
	return buf.String()
}
