// Package tui runs the visualizer in a terminal. The text is edited in a
// textarea while the drawing region above it is rendered from the same
// mirrored document a browser would receive.
package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/livefir/writemusic/internal/debounce"
	"github.com/livefir/writemusic/internal/highlight"
	"github.com/livefir/writemusic/internal/render"
	"github.com/livefir/writemusic/internal/vdom"
)

// Terminal backgrounds the translucent colors are blended over
var (
	DarkBase, _  = colorful.Hex("#1e1e1e")
	LightBase, _ = colorful.Hex("#ffffff")
)

// editMsg carries the settled text of a burst of keystrokes
type editMsg struct{ text string }

// layoutMsg reports that the row count may have changed
type layoutMsg struct{}

// relay forwards messages to the program once it exists. Messages sent
// before that are dropped.
type relay struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

func (r *relay) set(send func(tea.Msg)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send = send
}

func (r *relay) Send(msg tea.Msg) {
	r.mu.RLock()
	send := r.send
	r.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

type config struct {
	title       string
	debounce    time.Duration
	layoutDelay time.Duration
	base        colorful.Color
	recorder    render.Recorder
}

// Option configures a Model
type Option func(*config)

// WithTitle sets the heading
func WithTitle(title string) Option {
	return func(c *config) {
		c.title = title
	}
}

// WithDebounce sets the quiet period before an edit is rendered
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		c.debounce = d
	}
}

// WithLayoutDelay sets how long the editor resize waits after a render
func WithLayoutDelay(d time.Duration) Option {
	return func(c *config) {
		c.layoutDelay = d
	}
}

// WithBase sets the background the sentence colors are blended over
func WithBase(base colorful.Color) Option {
	return func(c *config) {
		c.base = base
	}
}

// WithRecorder reports render cycles to r
func WithRecorder(r render.Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}

// Model is the bubbletea model of one terminal page
type Model struct {
	editor textarea.Model
	loop   *render.Loop
	mirror *render.Mirror
	edits  *debounce.Debouncer[string]
	relay  *relay
	width  atomic.Int64
	base   colorful.Color

	lastText string
	err      error

	titleStyle lipgloss.Style
	errStyle   lipgloss.Style
	helpStyle  lipgloss.Style
}

// New renders text for the first time and returns a model editing it
func New(text string, opts ...Option) (*Model, error) {
	cfg := config{
		title:       highlight.DefaultTitle,
		debounce:    debounce.DefaultInterval,
		layoutDelay: render.DefaultLayoutDelay,
		base:        DarkBase,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Model{
		relay:      &relay{},
		base:       cfg.base,
		lastText:   text,
		titleStyle: lipgloss.NewStyle().Bold(true).MarginBottom(1),
		errStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		helpStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}

	display := render.DisplayFunc(func(tree *vdom.Node) (render.Surface, error) {
		mirror, err := render.NewMirror(tree, render.WithMeasure(m.measure))
		if err != nil {
			return nil, err
		}
		m.mirror = mirror
		return mirror, nil
	})

	loopOpts := []render.Option{
		render.WithBuilder(highlight.NewBuilder(highlight.WithTitle(cfg.title))),
		render.WithLayoutDelay(cfg.layoutDelay),
		render.WithScheduler(m.schedule),
	}
	if cfg.recorder != nil {
		loopOpts = append(loopOpts, render.WithRecorder(cfg.recorder))
	}
	m.loop = render.NewLoop(display, loopOpts...)
	if err := m.loop.Initialize(text); err != nil {
		return nil, fmt.Errorf("failed to render initial text: %w", err)
	}

	m.edits = debounce.New(cfg.debounce, func(text string) {
		m.relay.Send(editMsg{text: text})
	})

	m.editor = textarea.New()
	m.editor.Prompt = ""
	m.editor.ShowLineNumbers = false
	m.editor.CharLimit = 0
	m.editor.MaxHeight = 0
	m.editor.SetValue(text)
	m.editor.Focus()

	m.loop.RecomputeLayout()
	m.resize()
	return m, nil
}

// Attach routes settled edits and layout updates to send, usually a
// program's Send
func (m *Model) Attach(send func(tea.Msg)) {
	m.relay.set(send)
}

// Close stops pending edits and layout updates
func (m *Model) Close() {
	m.edits.Stop()
	m.loop.Close()
}

// Text returns the last rendered text
func (m *Model) Text() string {
	return m.loop.Text()
}

// Err returns the error of the last render, if it failed
func (m *Model) Err() error {
	return m.err
}

// Init starts the cursor blinking
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles keys, resizes, settled edits and layout updates
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.edits.Stop()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width.Store(int64(msg.Width))
		m.editor.SetWidth(msg.Width)
		return m, m.layout

	case editMsg:
		if _, err := m.loop.OnTextChanged(msg.text); err != nil {
			m.err = err
		} else {
			m.err = nil
		}
		return m, nil

	case layoutMsg:
		m.resize()
		return m, nil
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if value := m.editor.Value(); value != m.lastText {
		m.lastText = value
		m.edits.Call(value)
	}
	return m, cmd
}

// View draws the heading, the colored drawing region and the editor
func (m *Model) View() string {
	doc := m.mirror.Document()

	var b strings.Builder
	b.WriteString(m.titleStyle.Render(textOf(doc.FindByKey("title"))))
	b.WriteString("\n")

	draw := drawing(segments(doc.FindByKey(highlight.DrawKey)), m.base)
	if width := int(m.width.Load()); width > 0 {
		draw = lipgloss.NewStyle().Width(width).Render(draw)
	}
	b.WriteString(draw)
	b.WriteString("\n\n")
	b.WriteString(m.editor.View())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(m.errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.helpStyle.Render("esc to quit"))
	return b.String()
}

// layout recomputes the row count right away
func (m *Model) layout() tea.Msg {
	m.loop.RecomputeLayout()
	return layoutMsg{}
}

// schedule runs the loop's deferred layout recompute, then tells the
// program to pick up the new row count
func (m *Model) schedule(delay time.Duration, fn func()) func() {
	timer := time.AfterFunc(delay, func() {
		fn()
		m.relay.Send(layoutMsg{})
	})
	return func() { timer.Stop() }
}

// measure reports the drawing region in terminal rows
func (m *Model) measure(doc *vdom.Document, key string) (render.Geometry, bool) {
	n := doc.FindByKey(key)
	if n == nil {
		return render.Geometry{}, false
	}
	lines := lineCount(textOf(n), int(m.width.Load()))
	return render.Geometry{Height: float64(lines), LineHeight: "1"}, true
}

// resize sizes the editor to the rows the layout settled on
func (m *Model) resize() {
	if rows := m.mirror.Rows(highlight.AreaKey); rows > 0 {
		m.editor.SetHeight(rows)
	}
}

// Run edits text in the terminal until the user quits and returns the
// final text
func Run(ctx context.Context, text string, opts ...Option) (string, error) {
	base := LightBase
	if lipgloss.HasDarkBackground() {
		base = DarkBase
	}
	opts = append([]Option{WithBase(base)}, opts...)

	m, err := New(text, opts...)
	if err != nil {
		return "", err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.Attach(p.Send)

	if _, err := p.Run(); err != nil {
		return m.editor.Value(), fmt.Errorf("terminal program failed: %w", err)
	}
	return m.editor.Value(), nil
}
