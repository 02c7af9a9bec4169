package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/livefir/writemusic/internal/highlight"
	"github.com/livefir/writemusic/internal/palette"
	"github.com/livefir/writemusic/internal/vdom"
)

// segment is a run of drawn text and the word count coloring it
type segment struct {
	text    string
	count   int
	colored bool
}

// counts maps each CSS color back to the smallest word count producing it
var counts = buildCounts()

func buildCounts() map[string]int {
	m := make(map[string]int, palette.Size)
	for i := 0; i < palette.Size; i++ {
		color := palette.ForCount(i)
		if _, ok := m[color]; !ok {
			m[color] = i
		}
	}
	return m
}

// segments flattens the drawing region into colored runs. Nested colors
// take the innermost span.
func segments(n *html.Node) []segment {
	var out []segment
	var walk func(n *html.Node, count int, colored bool)
	walk = func(n *html.Node, count int, colored bool) {
		switch n.Type {
		case html.TextNode:
			if n.Data == "" {
				return
			}
			if len(out) > 0 && out[len(out)-1].colored == colored && out[len(out)-1].count == count {
				out[len(out)-1].text += n.Data
				return
			}
			out = append(out, segment{text: n.Data, count: count, colored: colored})
			return
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				return
			}
			if color, ok := vdom.StyleOf(n)["background-color"]; ok {
				if c, known := counts[color]; known {
					count, colored = c, true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, count, colored)
		}
	}
	if n != nil {
		walk(n, 0, false)
	}
	return out
}

// textOf returns the concatenated text beneath n
func textOf(n *html.Node) string {
	var b strings.Builder
	for _, s := range segments(n) {
		b.WriteString(s.text)
	}
	return b.String()
}

// drawing renders segments with their blended background colors
func drawing(segs []segment, base colorful.Color) string {
	var b strings.Builder
	for _, s := range segs {
		if !s.colored {
			b.WriteString(s.text)
			continue
		}
		style := lipgloss.NewStyle().Background(lipgloss.Color(palette.Blend(s.count, base)))
		// Styles pad multi-line input, so color each line on its own
		lines := strings.Split(s.text, "\n")
		for i, line := range lines {
			if i > 0 {
				b.WriteString("\n")
			}
			if line != "" {
				b.WriteString(style.Render(line))
			}
		}
	}
	return b.String()
}

// lineCount is how many terminal rows text takes when wrapped at width.
// A non-positive width disables wrapping.
func lineCount(text string, width int) int {
	if width > 0 {
		text = lipgloss.NewStyle().Width(width).Render(text)
	}
	return lipgloss.Height(text)
}

// Colorize renders text once with every sentence colored for a terminal
func Colorize(text string, base colorful.Color) (string, error) {
	tree, err := highlight.NewBuilder().Build(text)
	if err != nil {
		return "", err
	}
	doc, err := vdom.Materialize(tree)
	if err != nil {
		return "", err
	}
	return drawing(segments(doc.Root()), base), nil
}
