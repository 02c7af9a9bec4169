package nlcst

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// ErrInvalidUTF8 is returned for input that is not valid UTF-8
var ErrInvalidUTF8 = errors.New("text is not valid UTF-8")

// paragraphBreak matches a whitespace run holding at least two line breaks
var paragraphBreak = regexp.MustCompile(`\s*\n\s*\n\s*`)

// Parser splits prose into a Root > Paragraph > Sentence > Word tree.
// The zero value is ready to use and safe for concurrent use.
type Parser struct{}

// NewParser creates a new parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse tokenizes text. The result is deterministic and lossless:
// String(tree) == text for every valid input.
func (p *Parser) Parse(text string) (*Node, error) {
	return Parse(text)
}

// Parse tokenizes text with the default parser
func Parse(text string) (*Node, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidUTF8
	}

	root := NewContainer(TypeRoot)
	start := 0
	for _, loc := range paragraphBreak.FindAllStringIndex(text, -1) {
		if loc[0] > start {
			root.Children = append(root.Children, parseParagraph(text[start:loc[0]]))
		}
		root.Children = appendWhiteSpace(root.Children, text[loc[0]:loc[1]])
		start = loc[1]
	}
	if start < len(text) {
		root.Children = append(root.Children, parseParagraph(text[start:]))
	}

	return root, nil
}

func parseParagraph(text string) *Node {
	paragraph := NewContainer(TypeParagraph)

	state := -1
	rest := text
	for len(rest) > 0 {
		var segment string
		segment, rest, state = uniseg.FirstSentenceInString(rest, state)

		core := strings.TrimLeftFunc(segment, unicode.IsSpace)
		leading := segment[:len(segment)-len(core)]
		trimmed := strings.TrimRightFunc(core, unicode.IsSpace)
		trailing := core[len(trimmed):]

		paragraph.Children = appendWhiteSpace(paragraph.Children, leading)
		if trimmed != "" {
			paragraph.Children = append(paragraph.Children, parseSentence(trimmed))
		}
		paragraph.Children = appendWhiteSpace(paragraph.Children, trailing)
	}

	return paragraph
}

func parseSentence(text string) *Node {
	sentence := NewContainer(TypeSentence)

	state := -1
	rest := text
	for len(rest) > 0 {
		var segment string
		segment, rest, state = uniseg.FirstWordInString(rest, state)

		kind := classify(segment)
		if kind == TypeWhiteSpace {
			sentence.Children = appendWhiteSpace(sentence.Children, segment)
			continue
		}
		sentence.Children = append(sentence.Children, NewLeaf(kind, segment))
	}

	return sentence
}

// appendWhiteSpace appends value as a white-space leaf, merging it into a
// preceding white-space leaf
func appendWhiteSpace(children []*Node, value string) []*Node {
	if value == "" {
		return children
	}
	if n := len(children); n > 0 && children[n-1].Type == TypeWhiteSpace {
		children[n-1].Value += value
		return children
	}
	return append(children, NewLeaf(TypeWhiteSpace, value))
}

func classify(segment string) Type {
	space, punct := true, true
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			return TypeWord
		}
		if !unicode.IsSpace(r) {
			space = false
		}
		if !unicode.IsPunct(r) {
			punct = false
		}
	}

	switch {
	case space:
		return TypeWhiteSpace
	case punct:
		return TypePunctuation
	default:
		return TypeSymbol
	}
}
