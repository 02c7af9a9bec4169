package highlight

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/livefir/writemusic/internal/vdom"
)

// DefaultTitle is the page heading
const DefaultTitle = "write music"

var lower = cases.Lower(language.English)

// Page builds the whole page around the drawing region: heading, editor with
// drawing region and textarea, byline and credits. The textarea's value is
// always text.
func (b *Builder) Page(text string) (*vdom.Node, error) {
	draw, err := b.Build(text)
	if err != nil {
		return nil, err
	}

	return vdom.H("div", "", vdom.Attrs{"class": "page"},
		vdom.H("section", "", vdom.Attrs{"class": "highlight"},
			vdom.H("h1", "title", nil, vdom.Text(lower.String(b.title))),
		),
		vdom.H("div", "editor", vdom.Attrs{"class": "editor"},
			draw,
			vdom.H("textarea", AreaKey, vdom.Attrs{
				"value":      text,
				"spellcheck": "false",
				"aria-label": "Text to visualize",
			}),
		),
		vdom.H("section", "", vdom.Attrs{"class": "highlight"},
			vdom.H("p", "byline", nil,
				vdom.Text("Based on a tip by Gary Provost (“Vary sentence length”): "),
				vdom.Text("the longer a sentence runs, the further its color turns around the wheel."),
			),
			vdom.H("p", "ps", nil, vdom.Text("P.S. You can edit the text above.")),
		),
		vdom.H("section", "credits", vdom.Attrs{"class": "credits"},
			vdom.H("p", "", nil,
				vdom.H("a", "", vdom.Attrs{"href": "https://github.com/livefir/writemusic"}, vdom.Text("Source")),
				vdom.Text(" • "),
				vdom.H("a", "", vdom.Attrs{"href": "https://github.com/livefir/writemusic/blob/main/LICENSE"}, vdom.Text("MIT")),
			),
		),
	), nil
}
