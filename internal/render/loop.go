// Package render owns the edit loop: every text change is rebuilt into a
// visual tree, reconciled against the previous one, and applied to the live
// surface as a patch.
package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/livefir/writemusic/internal/highlight"
	"github.com/livefir/writemusic/internal/vdom"
)

// DefaultLayoutDelay defers the row count update until the display has
// applied the patch
const DefaultLayoutDelay = 4 * time.Millisecond

var (
	// ErrNotInitialized is returned when text changes before the first render
	ErrNotInitialized = errors.New("render loop not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize
	ErrAlreadyInitialized = errors.New("render loop already initialized")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("render loop closed")
)

// TreeBuilder produces the full tree for a text
type TreeBuilder interface {
	Page(text string) (*vdom.Node, error)
}

// Recorder receives render cycle metrics
type Recorder interface {
	RecordRender(duration time.Duration, operations int)
	IncrementRenderFailure()
	IncrementLayoutRecompute()
	IncrementLayoutSkip()
}

// Scheduler runs fn after delay and returns a function cancelling it
type Scheduler func(delay time.Duration, fn func()) (cancel func())

// AfterFunc schedules with time.AfterFunc
func AfterFunc(delay time.Duration, fn func()) func() {
	timer := time.AfterFunc(delay, fn)
	return func() { timer.Stop() }
}

// State is what the loop retains between cycles. Tree is always the
// builder's output for Text.
type State struct {
	Text    string
	Tree    *vdom.Node
	Surface Surface
}

// Loop runs render cycles one at a time
type Loop struct {
	mu          sync.Mutex
	display     Display
	builder     TreeBuilder
	reconciler  Reconciler
	recorder    Recorder
	schedule    Scheduler
	layoutDelay time.Duration
	drawKey     string
	areaKey     string

	state  *State
	cancel func()
	closed bool
}

// Option configures a Loop
type Option func(*Loop)

// WithBuilder replaces the default highlight builder
func WithBuilder(b TreeBuilder) Option {
	return func(l *Loop) {
		l.builder = b
	}
}

// WithReconciler replaces vdom.Diff
func WithReconciler(r Reconciler) Option {
	return func(l *Loop) {
		l.reconciler = r
	}
}

// WithRecorder reports cycles to r
func WithRecorder(r Recorder) Option {
	return func(l *Loop) {
		l.recorder = r
	}
}

// WithScheduler replaces time.AfterFunc for the layout recompute
func WithScheduler(s Scheduler) Option {
	return func(l *Loop) {
		l.schedule = s
	}
}

// WithLayoutDelay sets how long the layout recompute waits
func WithLayoutDelay(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.layoutDelay = d
		}
	}
}

// NewLoop creates a loop rendering onto display
func NewLoop(display Display, opts ...Option) *Loop {
	l := &Loop{
		display:     display,
		builder:     highlight.NewBuilder(),
		reconciler:  ReconcilerFunc(vdom.Diff),
		recorder:    nopRecorder{},
		schedule:    AfterFunc,
		layoutDelay: DefaultLayoutDelay,
		drawKey:     highlight.DrawKey,
		areaKey:     highlight.AreaKey,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Initialize renders text for the first time and mounts the surface
func (l *Loop) Initialize(text string) error {
	if err := l.initialize(text); err != nil {
		return err
	}
	l.scheduleLayout()
	return nil
}

func (l *Loop) initialize(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.state != nil {
		return ErrAlreadyInitialized
	}

	start := time.Now()
	tree, err := l.builder.Page(text)
	if err != nil {
		l.recorder.IncrementRenderFailure()
		return fmt.Errorf("failed to build initial tree: %w", err)
	}

	surface, err := l.display.Mount(tree)
	if err != nil {
		l.recorder.IncrementRenderFailure()
		return fmt.Errorf("failed to mount surface: %w", err)
	}

	l.state = &State{Text: text, Tree: tree, Surface: surface}
	l.recorder.RecordRender(time.Since(start), 0)
	return nil
}

// OnTextChanged renders text and applies the difference to the surface.
// On error nothing changes: the state and the surface keep the last good
// render.
func (l *Loop) OnTextChanged(text string) (vdom.Patch, error) {
	patch, err := l.update(text)
	if err != nil {
		return vdom.Patch{}, err
	}
	l.scheduleLayout()
	return patch, nil
}

func (l *Loop) update(text string) (vdom.Patch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return vdom.Patch{}, ErrClosed
	}
	if l.state == nil {
		return vdom.Patch{}, ErrNotInitialized
	}

	start := time.Now()
	tree, err := l.builder.Page(text)
	if err != nil {
		l.recorder.IncrementRenderFailure()
		return vdom.Patch{}, fmt.Errorf("failed to build tree: %w", err)
	}

	patch, err := l.reconciler.Diff(l.state.Tree, tree)
	if err != nil {
		l.recorder.IncrementRenderFailure()
		return vdom.Patch{}, fmt.Errorf("failed to reconcile: %w", err)
	}

	if !patch.Empty() {
		if err := l.state.Surface.Apply(patch); err != nil {
			l.recorder.IncrementRenderFailure()
			return vdom.Patch{}, fmt.Errorf("failed to apply patch: %w", err)
		}
	}

	l.state.Text = text
	l.state.Tree = tree
	l.recorder.RecordRender(time.Since(start), patch.Len())
	return patch, nil
}

// scheduleLayout defers a layout recompute. It is called without the lock
// so a synchronous scheduler cannot deadlock. Earlier recomputes are left to
// run; the last one to finish wins.
func (l *Loop) scheduleLayout() {
	cancel := l.schedule(l.layoutDelay, l.RecomputeLayout)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		cancel()
		return
	}
	l.cancel = cancel
}

// RecomputeLayout sizes the editable control to the drawing region:
// rows = ceil(height / line height). It never fails; anything it cannot
// measure is skipped.
func (l *Loop) RecomputeLayout() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.state == nil {
		return
	}

	g, ok := l.state.Surface.Measure(l.drawKey)
	if !ok {
		l.recorder.IncrementLayoutSkip()
		return
	}

	rows, ok := Rows(g)
	if !ok {
		l.recorder.IncrementLayoutSkip()
		return
	}

	if !l.state.Surface.SetRows(l.areaKey, rows) {
		l.recorder.IncrementLayoutSkip()
		return
	}
	l.recorder.IncrementLayoutRecompute()
}

// Text returns the text of the last successful render
func (l *Loop) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == nil {
		return ""
	}
	return l.state.Text
}

// Tree returns the tree of the last successful render
func (l *Loop) Tree() *vdom.Node {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == nil {
		return nil
	}
	return l.state.Tree
}

// Surface returns the mounted surface, or nil before Initialize
func (l *Loop) Surface() Surface {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == nil {
		return nil
	}
	return l.state.Surface
}

// Close cancels the pending layout recompute. Recomputes already in flight
// do nothing and further cycles fail with ErrClosed.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordRender(time.Duration, int) {}
func (nopRecorder) IncrementRenderFailure()         {}
func (nopRecorder) IncrementLayoutRecompute()       {}
func (nopRecorder) IncrementLayoutSkip()            {}
