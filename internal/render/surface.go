package render

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/livefir/writemusic/internal/vdom"
)

// Geometry is what a display reports about a rendered element
type Geometry struct {
	Height     float64 `json:"height" validate:"gte=0"`
	LineHeight string  `json:"lineHeight" validate:"required,max=64"`
}

// Display creates the live surface for a first tree
type Display interface {
	Mount(tree *vdom.Node) (Surface, error)
}

// DisplayFunc adapts a function to Display
type DisplayFunc func(tree *vdom.Node) (Surface, error)

// Mount calls f
func (f DisplayFunc) Mount(tree *vdom.Node) (Surface, error) {
	return f(tree)
}

// Surface is a live display that only changes through patches
type Surface interface {
	// Apply mutates the display. On error the display is unchanged.
	Apply(patch vdom.Patch) error
	// Measure reports the geometry of the element with the given key
	Measure(key string) (Geometry, bool)
	// SetRows sets the visible row count of the element with the given key
	SetRows(key string, rows int) bool
}

// Reconciler computes the patch between two trees
type Reconciler interface {
	Diff(oldTree, newTree *vdom.Node) (vdom.Patch, error)
}

// ReconcilerFunc adapts a function to Reconciler
type ReconcilerFunc func(oldTree, newTree *vdom.Node) (vdom.Patch, error)

// Diff calls f
func (f ReconcilerFunc) Diff(oldTree, newTree *vdom.Node) (vdom.Patch, error) {
	return f(oldTree, newTree)
}

// Mirror is an in-memory surface backed by a vdom.Document. A forward hook
// sees every patch before it is committed; if the hook fails the mirror keeps
// its previous document.
type Mirror struct {
	mu       sync.RWMutex
	doc      *vdom.Document
	geometry map[string]Geometry
	forward  func(vdom.Patch) error
	measure  func(doc *vdom.Document, key string) (Geometry, bool)
}

// MirrorOption configures a Mirror
type MirrorOption func(*Mirror)

// WithForward sets the hook that receives every patch before it is committed
func WithForward(fn func(vdom.Patch) error) MirrorOption {
	return func(m *Mirror) {
		m.forward = fn
	}
}

// WithMeasure replaces the recorded geometry with a measuring function
func WithMeasure(fn func(doc *vdom.Document, key string) (Geometry, bool)) MirrorOption {
	return func(m *Mirror) {
		m.measure = fn
	}
}

// NewMirror materializes tree into a new mirror surface
func NewMirror(tree *vdom.Node, opts ...MirrorOption) (*Mirror, error) {
	doc, err := vdom.Materialize(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to materialize tree: %w", err)
	}

	m := &Mirror{
		doc:      doc,
		geometry: make(map[string]Geometry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MirrorDisplay mounts mirrors with the given options
func MirrorDisplay(opts ...MirrorOption) Display {
	return DisplayFunc(func(tree *vdom.Node) (Surface, error) {
		return NewMirror(tree, opts...)
	})
}

// Apply applies patch to a copy of the document, forwards it, then commits
func (m *Mirror) Apply(patch vdom.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := vdom.Apply(m.doc, patch)
	if err != nil {
		return err
	}
	if m.forward != nil && !patch.Empty() {
		if err := m.forward(patch); err != nil {
			return err
		}
	}
	m.doc = next
	return nil
}

// Measure reports the geometry recorded for key
func (m *Mirror) Measure(key string) (Geometry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.doc.FindByKey(key) == nil {
		return Geometry{}, false
	}
	if m.measure != nil {
		return m.measure(m.doc, key)
	}
	g, ok := m.geometry[key]
	return g, ok
}

// SetGeometry records a measurement reported by the real display
func (m *Mirror) SetGeometry(key string, g Geometry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geometry[key] = g
}

// SetRows sets the rows attribute of key through a patch, so forwarded
// displays see the change too. An unchanged row count sends nothing.
func (m *Mirror) SetRows(key string, rows int) bool {
	value := strconv.Itoa(rows)

	m.mu.RLock()
	path, ok := m.doc.PathOf(key)
	current, set := m.doc.Attr(key, "rows")
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if set && current == value {
		return true
	}

	patch := vdom.Patch{Operations: []vdom.Operation{{
		Type:  vdom.OpSetAttribute,
		Path:  path,
		Key:   "rows",
		Value: value,
	}}}
	return m.Apply(patch) == nil
}

// Rows returns the rows attribute of key, or 0
func (m *Mirror) Rows(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.doc.Attr(key, "rows")
	if !ok {
		return 0
	}
	rows, _ := strconv.Atoi(value)
	return rows
}

// Document returns the current document. It must be treated as read-only.
func (m *Mirror) Document() *vdom.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.doc
}
