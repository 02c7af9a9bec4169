package writemusic

import (
	"sync"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

var (
	minifier *minify.M
	once     sync.Once
)

// getMinifier returns a configured minifier for the page shell and the
// client script (singleton)
func getMinifier() *minify.M {
	once.Do(func() {
		minifier = minify.New()
		minifier.AddFunc("text/css", css.Minify)
		minifier.AddFunc("application/javascript", js.Minify)
		minifier.Add("text/html", &html.Minifier{
			KeepDocumentTags: true,
			KeepEndTags:      true,
			KeepQuotes:       true,
		})
	})
	return minifier
}

// minifyHTML minifies a page shell, falling back to the original content
func minifyHTML(content string) string {
	minified, err := getMinifier().String("text/html", content)
	if err != nil {
		return content
	}
	return minified
}

// minifyScript minifies the client script, falling back to the original
func minifyScript(script []byte) []byte {
	minified, err := getMinifier().Bytes("application/javascript", script)
	if err != nil {
		return script
	}
	return minified
}
