// Package palette maps sentence word counts to highlight colors.
package palette

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Size is the number of entries in the hue table. Counts at or above
	// Size-1 share the last color.
	Size = 120

	Saturation = 93  // percent
	Lightness  = 70  // percent
	Alpha      = 0.5 // opacity
)

// buckets lists the exclusive upper bound of each bucket and its hue.
// Everything from the last bound onward uses openHue.
var buckets = []struct {
	below int
	hue   int
}{
	{3, 30},
	{6, 60},
	{9, 90},
	{12, 120},
	{18, 150},
	{24, 180},
	{30, 210},
	{40, 240},
	{50, 270},
	{60, 300},
}

const openHue = 330

var hues = buildHues()

func buildHues() [Size]int {
	var table [Size]int
	for i := range table {
		table[i] = openHue
		for _, b := range buckets {
			if i < b.below {
				table[i] = b.hue
				break
			}
		}
	}
	return table
}

// Hue returns the hue in degrees for a word count. Counts past the end of the
// table clamp to the last entry; negative counts clamp to the first.
func Hue(count int) int {
	switch {
	case count < 0:
		count = 0
	case count >= Size:
		count = Size - 1
	}
	return hues[count]
}

// ForCount returns the CSS color for a sentence of count words
func ForCount(count int) string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%, %g)", Hue(count), Saturation, Lightness, Alpha)
}

// Color returns the opaque color for count
func Color(count int) colorful.Color {
	return colorful.Hsl(float64(Hue(count)), Saturation/100.0, Lightness/100.0)
}

// Blend composites the translucent color for count over base and returns it
// as a hex string, for surfaces that cannot draw alpha.
func Blend(count int, base colorful.Color) string {
	return base.BlendRgb(Color(count), Alpha).Clamped().Hex()
}
