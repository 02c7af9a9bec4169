package writemusic

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"
)

// ClientScriptPath is where the browser client is served
const ClientScriptPath = "/writemusic-client.js"

//go:embed client/writemusic-client.js
var clientScript []byte

// clientAsset serves the browser client
type clientAsset struct {
	script   []byte
	modified time.Time
}

func newClientAsset(devMode bool) *clientAsset {
	script := clientScript
	if !devMode {
		script = minifyScript(script)
	}
	return &clientAsset{script: script, modified: time.Now()}
}

func (c *clientAsset) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	http.ServeContent(w, r, "writemusic-client.js", c.modified, bytes.NewReader(c.script))
}
