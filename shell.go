package writemusic

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/livefir/writemusic/internal/vdom"
)

// LiveEndpoint is where the client connects
const LiveEndpoint = "/live"

const shellStyle = `
body { margin: 0; background: #fafafa; color: #222; font: 18px/1.5 Georgia, "Times New Roman", serif; }
.page { max-width: 42rem; margin: 0 auto; padding: 2rem 1rem; }
h1 { font-weight: normal; letter-spacing: 0.05em; }
.editor { position: relative; }
.draw, .editor textarea {
  box-sizing: border-box; width: 100%; margin: 0; padding: 0.5rem;
  border: 1px solid transparent; font: inherit; line-height: inherit;
  white-space: pre-wrap; overflow-wrap: break-word;
}
.draw { position: absolute; top: 0; left: 0; color: transparent; pointer-events: none; }
.draw span { border-radius: 2px; }
.editor textarea {
  position: relative; display: block; background: transparent; color: inherit;
  resize: none; overflow: hidden; border-color: #ddd;
}
.editor textarea:focus { outline: none; border-color: #aaa; }
.credits { font-size: 0.8rem; color: #888; }
.credits a { color: inherit; }
`

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>{{.Style}}</style>
</head>
<body>
  <main id="writemusic" data-live="{{.Endpoint}}" data-websocket="{{.WebSocket}}"></main>
  <script src="{{.Script}}"></script>
</body>
</html>
`))

// shell is the page around the first frame, split where the frame goes
type shell struct {
	head string
	tail string
}

type shellData struct {
	Title     string
	Style     template.CSS
	Endpoint  string
	WebSocket string
	Script    string
}

// newShell renders the page shell once. The first frame is written between
// head and tail on every request, so whitespace inside it is never touched
// by the minifier.
func newShell(title string, webSocketDisabled, devMode bool) (*shell, error) {
	data := shellData{
		Title:     title,
		Style:     template.CSS(shellStyle),
		Endpoint:  LiveEndpoint,
		WebSocket: "enabled",
		Script:    ClientScriptPath,
	}
	if webSocketDisabled {
		data.WebSocket = "disabled"
	}

	var buf bytes.Buffer
	if err := shellTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render page shell: %w", err)
	}

	content := buf.String()
	if !devMode {
		content = minifyHTML(content)
	}

	split := strings.Index(content, "</main>")
	if split < 0 {
		return nil, fmt.Errorf("page shell has no frame container")
	}
	return &shell{head: content[:split], tail: content[split:]}, nil
}

// render writes the shell around the materialized tree
func (s *shell) render(w io.Writer, tree *vdom.Node) error {
	doc, err := vdom.Materialize(tree)
	if err != nil {
		return fmt.Errorf("failed to materialize first frame: %w", err)
	}

	if _, err := io.WriteString(w, s.head); err != nil {
		return err
	}
	if err := doc.Render(w); err != nil {
		return fmt.Errorf("failed to render first frame: %w", err)
	}
	_, err = io.WriteString(w, s.tail)
	return err
}
