package render

import (
	"math"
	"strconv"
	"strings"
)

// Rows converts a measured drawing region into a row count for the editable
// control. It reports false when the line height is not a positive number or
// the height is not measurable.
func Rows(g Geometry) (int, bool) {
	lineHeight, ok := ParseLineHeight(g.LineHeight)
	if !ok {
		return 0, false
	}
	if math.IsNaN(g.Height) || math.IsInf(g.Height, 0) || g.Height < 0 {
		return 0, false
	}

	rows := int(math.Ceil(g.Height / float64(lineHeight)))
	if rows < 1 {
		rows = 1
	}
	return rows, true
}

// ParseLineHeight reads the leading integer of a computed line-height such
// as "24px" or "27.5px". Keywords like "normal" do not parse.
func ParseLineHeight(value string) (int, bool) {
	value = strings.TrimSpace(value)

	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	n, err := strconv.Atoi(value[:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
