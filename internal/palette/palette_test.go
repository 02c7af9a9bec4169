package palette

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
)

func TestHueBuckets(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 30}, {2, 30},
		{3, 60}, {5, 60},
		{6, 90}, {8, 90},
		{9, 120}, {11, 120},
		{12, 150}, {17, 150},
		{18, 180}, {23, 180},
		{24, 210}, {29, 210},
		{30, 240}, {39, 240},
		{40, 270}, {49, 270},
		{50, 300}, {59, 300},
		{60, 330}, {119, 330},
	}

	for _, tt := range tests {
		if got := Hue(tt.count); got != tt.want {
			t.Errorf("Hue(%d) = %d, want %d", tt.count, got, tt.want)
		}
	}
}

func TestHueTableMonotonic(t *testing.T) {
	for i := 1; i < Size; i++ {
		if hues[i] < hues[i-1] {
			t.Fatalf("hue table decreases at %d: %d < %d", i, hues[i], hues[i-1])
		}
	}
}

func TestForCountFormat(t *testing.T) {
	if got, want := ForCount(1), "hsl(30, 93%, 70%, 0.5)"; got != want {
		t.Errorf("ForCount(1) = %q, want %q", got, want)
	}
	if got, want := ForCount(45), "hsl(270, 93%, 70%, 0.5)"; got != want {
		t.Errorf("ForCount(45) = %q, want %q", got, want)
	}
}

func TestForCountClamps(t *testing.T) {
	last := ForCount(119)
	for _, k := range []int{119, 120, 130, 1000, 1 << 30} {
		if got := ForCount(k); got != last {
			t.Errorf("ForCount(%d) = %q, want %q", k, got, last)
		}
	}
	if got, want := ForCount(-5), ForCount(0); got != want {
		t.Errorf("ForCount(-5) = %q, want %q", got, want)
	}
}

func TestForCountDeterministic(t *testing.T) {
	for n := 0; n < 200; n++ {
		if ForCount(n) != ForCount(n) {
			t.Fatalf("ForCount(%d) is not deterministic", n)
		}
	}
}

func TestBlend(t *testing.T) {
	white := colorful.Color{R: 1, G: 1, B: 1}

	got := Blend(3, white)
	if len(got) != 7 || got[0] != '#' {
		t.Fatalf("Blend returned %q, want #rrggbb", got)
	}
	if got == white.Hex() {
		t.Error("blended color should differ from the base")
	}
	if Blend(130, white) != Blend(119, white) {
		t.Error("Blend should clamp like ForCount")
	}
}
