// Package annotate decides which syntax tree nodes get highlighted and how.
package annotate

import (
	"github.com/livefir/writemusic/internal/nlcst"
	"github.com/livefir/writemusic/internal/palette"
)

// WordCount returns the number of word leaves anywhere below node.
// Nested containers do not reset the count.
func WordCount(node *nlcst.Node) int {
	count := 0
	nlcst.Visit(node, nlcst.TypeWord, func(*nlcst.Node) {
		count++
	})
	return count
}

// StyleFor returns the background color for node. Only sentences are colored;
// every other node passes through unstyled.
func StyleFor(node *nlcst.Node) (string, bool) {
	if node == nil || node.Type != nlcst.TypeSentence {
		return "", false
	}
	return palette.ForCount(WordCount(node)), true
}
