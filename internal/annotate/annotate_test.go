package annotate

import (
	"testing"

	"github.com/livefir/writemusic/internal/nlcst"
	"github.com/livefir/writemusic/internal/palette"
)

func word(v string) *nlcst.Node { return nlcst.NewLeaf(nlcst.TypeWord, v) }
func space() *nlcst.Node        { return nlcst.NewLeaf(nlcst.TypeWhiteSpace, " ") }
func dot() *nlcst.Node          { return nlcst.NewLeaf(nlcst.TypePunctuation, ".") }

func TestWordCount(t *testing.T) {
	sentence := nlcst.NewContainer(nlcst.TypeSentence, word("Hi"), space(), word("there"), dot())
	paragraph := nlcst.NewContainer(nlcst.TypeParagraph, sentence, space(),
		nlcst.NewContainer(nlcst.TypeSentence, word("Bye"), dot()))
	root := nlcst.NewContainer(nlcst.TypeRoot, paragraph)

	tests := []struct {
		name string
		node *nlcst.Node
		want int
	}{
		{"sentence", sentence, 2},
		{"paragraph counts across sentences", paragraph, 3},
		{"root", root, 3},
		{"leaf word", word("x"), 1},
		{"leaf punctuation", dot(), 0},
		{"empty container", nlcst.NewContainer(nlcst.TypeSentence), 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordCount(tt.node); got != tt.want {
				t.Errorf("WordCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWordCountMatchesParsedTree(t *testing.T) {
	tree, err := nlcst.Parse("One two three. Four five!\n\nSix, seven; eight.")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	leaves := 0
	nlcst.Visit(tree, "", func(n *nlcst.Node) {
		if n.IsLeaf() && n.Type == nlcst.TypeWord {
			leaves++
		}
	})

	if got := WordCount(tree); got != leaves || got != 8 {
		t.Errorf("WordCount() = %d, word leaves = %d, want 8", got, leaves)
	}
}

func TestStyleFor(t *testing.T) {
	sentence := nlcst.NewContainer(nlcst.TypeSentence, word("Hi"), dot())

	color, ok := StyleFor(sentence)
	if !ok {
		t.Fatal("sentence should be styled")
	}
	if color != palette.ForCount(1) {
		t.Errorf("StyleFor() = %q, want %q", color, palette.ForCount(1))
	}

	for _, node := range []*nlcst.Node{
		nlcst.NewContainer(nlcst.TypeRoot),
		nlcst.NewContainer(nlcst.TypeParagraph, sentence),
		word("Hi"),
		space(),
		nil,
	} {
		if _, ok := StyleFor(node); ok {
			t.Errorf("node %v should not be styled", node)
		}
	}
}
