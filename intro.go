package writemusic

import (
	_ "embed"
)

// IntroText is the text a page starts with when nothing else is configured
//
//go:embed intro.txt
var IntroText string
