package vdom

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNilNode is returned when either side of a diff is missing
	ErrNilNode = errors.New("nil node")

	// ErrDuplicateKey is returned when two siblings share an identity key
	ErrDuplicateKey = errors.New("duplicate sibling key")
)

// OpType names a single display mutation
type OpType string

const (
	OpInsert          OpType = "insert"          // insert Node as child Index of Path
	OpRemove          OpType = "remove"          // remove the node at Path
	OpMove            OpType = "move"            // move child From of Path to Index
	OpReplace         OpType = "replace"         // replace the node at Path with Node
	OpSetText         OpType = "setText"         // set the text of the text node at Path
	OpSetAttribute    OpType = "setAttribute"    // set attribute Key to Value
	OpRemoveAttribute OpType = "removeAttribute" // remove attribute Key
	OpSetStyle        OpType = "setStyle"        // set style property Key to Value
	OpRemoveStyle     OpType = "removeStyle"     // remove style property Key
)

// Operation is one mutation. Paths are valid at the moment the operation is
// applied, so a patch must be applied in order.
type Operation struct {
	Type  OpType `json:"type"`
	Path  Path   `json:"path"`
	Index int    `json:"index,omitempty"`
	From  int    `json:"from,omitempty"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
	Node  *Node  `json:"node,omitempty"`
}

// Patch is the ordered list of operations turning one tree into another
type Patch struct {
	Operations []Operation `json:"ops"`
}

// Empty reports whether the patch changes nothing
func (p Patch) Empty() bool {
	return len(p.Operations) == 0
}

// Len returns the number of operations
func (p Patch) Len() int {
	return len(p.Operations)
}

// Diff computes the patch that turns a display of oldTree into newTree.
// Children are matched by key when they have one and by order otherwise.
func Diff(oldTree, newTree *Node) (Patch, error) {
	if oldTree == nil || newTree == nil {
		return Patch{}, ErrNilNode
	}

	d := &differ{}
	if err := d.diffNode(oldTree, newTree, Path{}); err != nil {
		return Patch{}, err
	}
	return Patch{Operations: d.ops}, nil
}

type differ struct {
	ops []Operation
}

func (d *differ) emit(op Operation) {
	d.ops = append(d.ops, op)
}

// diffNode compares two nodes occupying the same position
func (d *differ) diffNode(oldNode, newNode *Node, path Path) error {
	if oldNode == nil || newNode == nil {
		return fmt.Errorf("%w at %s", ErrNilNode, path)
	}

	// Different identity - replace entirely
	if oldNode.Kind != newNode.Kind || oldNode.Tag != newNode.Tag || oldNode.Key != newNode.Key {
		if err := checkKeys(newNode); err != nil {
			return err
		}
		d.emit(Operation{Type: OpReplace, Path: path, Node: newNode})
		return nil
	}

	if oldNode.Kind == TextNode {
		if oldNode.Text != newNode.Text {
			d.emit(Operation{Type: OpSetText, Path: path, Value: newNode.Text})
		}
		return nil
	}

	d.diffProps(oldNode.Attrs, newNode.Attrs, path, OpSetAttribute, OpRemoveAttribute)
	d.diffProps(oldNode.Style, newNode.Style, path, OpSetStyle, OpRemoveStyle)

	return d.diffChildren(oldNode.Children, newNode.Children, path)
}

// diffProps compares attribute or style maps in sorted key order
func (d *differ) diffProps(oldProps, newProps map[string]string, path Path, set, remove OpType) {
	for _, key := range sortedKeys(oldProps) {
		if _, exists := newProps[key]; !exists {
			d.emit(Operation{Type: remove, Path: path, Key: key})
		}
	}

	for _, key := range sortedKeys(newProps) {
		newVal := newProps[key]
		if oldVal, exists := oldProps[key]; !exists || oldVal != newVal {
			d.emit(Operation{Type: set, Path: path, Key: key, Value: newVal})
		}
	}
}

// diffChildren matches children, removes the unmatched old ones, then walks
// the new list inserting, moving and recursing so that position i is final
// before position i+1 is touched.
func (d *differ) diffChildren(oldChildren, newChildren []*Node, parent Path) error {
	oldKeyed, err := keyIndex(oldChildren)
	if err != nil {
		return fmt.Errorf("%w under %s", err, parent)
	}
	if _, err := keyIndex(newChildren); err != nil {
		return fmt.Errorf("%w under %s", err, parent)
	}

	var unkeyed []int
	for i, child := range oldChildren {
		if child != nil && child.Key == "" {
			unkeyed = append(unkeyed, i)
		}
	}

	matched := make([]int, len(newChildren))
	used := make([]bool, len(oldChildren))
	next := 0
	for i, child := range newChildren {
		matched[i] = -1
		if child == nil {
			return fmt.Errorf("%w at %s", ErrNilNode, parent.Child(i))
		}
		if child.Key != "" {
			if j, ok := oldKeyed[child.Key]; ok && sameElement(oldChildren[j], child) {
				matched[i] = j
				used[j] = true
			}
			continue
		}
		if next < len(unkeyed) {
			matched[i] = unkeyed[next]
			used[unkeyed[next]] = true
			next++
		}
	}

	// Remove from the end so earlier indices stay valid
	for j := len(oldChildren) - 1; j >= 0; j-- {
		if !used[j] {
			d.emit(Operation{Type: OpRemove, Path: parent.Child(j)})
		}
	}

	live := make([]int, 0, len(oldChildren))
	for j := range oldChildren {
		if used[j] {
			live = append(live, j)
		}
	}

	for i, child := range newChildren {
		j := matched[i]
		if j < 0 {
			if err := checkKeys(child); err != nil {
				return err
			}
			d.emit(Operation{Type: OpInsert, Path: parent, Index: i, Node: child})
			live = insertAt(live, i, -1)
			continue
		}

		if pos := indexOf(live, j, i); pos != i {
			d.emit(Operation{Type: OpMove, Path: parent, From: pos, Index: i})
			live = moveTo(live, pos, i)
		}

		if err := d.diffNode(oldChildren[j], child, parent.Child(i)); err != nil {
			return err
		}
	}

	return nil
}

func sameElement(a, b *Node) bool {
	return a != nil && b != nil && a.Kind == b.Kind && a.Tag == b.Tag
}

// keyIndex maps keys to sibling positions and rejects duplicates
func keyIndex(children []*Node) (map[string]int, error) {
	index := make(map[string]int)
	for i, child := range children {
		if child == nil || child.Key == "" {
			continue
		}
		if _, exists := index[child.Key]; exists {
			return nil, fmt.Errorf("%w %q", ErrDuplicateKey, child.Key)
		}
		index[child.Key] = i
	}
	return index, nil
}

// checkKeys validates sibling keys in a subtree that is inserted wholesale
func checkKeys(n *Node) error {
	if n == nil {
		return ErrNilNode
	}
	if _, err := keyIndex(n.Children); err != nil {
		return err
	}
	for _, child := range n.Children {
		if err := checkKeys(child); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(list []int, value, from int) int {
	for i := from; i < len(list); i++ {
		if list[i] == value {
			return i
		}
	}
	return -1
}

func insertAt(list []int, index, value int) []int {
	list = append(list, 0)
	copy(list[index+1:], list[index:])
	list[index] = value
	return list
}

func moveTo(list []int, from, to int) []int {
	value := list[from]
	list = append(list[:from], list[from+1:]...)
	return insertAt(list, to, value)
}

// String provides a readable representation of the patch
func (p Patch) String() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Patch with %d operations", len(p.Operations)))

	for i, op := range p.Operations {
		var detail string
		switch op.Type {
		case OpSetAttribute, OpSetStyle:
			detail = fmt.Sprintf("Set %s='%s'", op.Key, op.Value)
		case OpRemoveAttribute, OpRemoveStyle:
			detail = fmt.Sprintf("Remove %s", op.Key)
		case OpSetText:
			detail = fmt.Sprintf("Set text: '%s'", op.Value)
		case OpReplace:
			detail = fmt.Sprintf("Replace with: %s", RenderString(op.Node))
		case OpInsert:
			detail = fmt.Sprintf("Insert at %d: %s", op.Index, RenderString(op.Node))
		case OpMove:
			detail = fmt.Sprintf("Move %d -> %d", op.From, op.Index)
		case OpRemove:
			detail = "Remove node"
		default:
			detail = fmt.Sprintf("Unknown: %v", op.Value)
		}

		lines = append(lines, fmt.Sprintf("  %d. [%s] %s -> %s", i+1, op.Type, op.Path, detail))
	}

	return strings.Join(lines, "\n")
}
