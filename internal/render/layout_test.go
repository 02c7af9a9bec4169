package render

import (
	"errors"
	"math"
	"testing"

	"github.com/livefir/writemusic/internal/vdom"
)

func TestRows(t *testing.T) {
	tests := []struct {
		name   string
		g      Geometry
		want   int
		wantOK bool
	}{
		{"exact", Geometry{Height: 96, LineHeight: "24px"}, 4, true},
		{"partial line rounds up", Geometry{Height: 97, LineHeight: "24px"}, 5, true},
		{"fractional line height truncates", Geometry{Height: 55, LineHeight: "27.5px"}, 3, true},
		{"unitless", Geometry{Height: 30, LineHeight: "15"}, 2, true},
		{"empty region keeps one row", Geometry{Height: 0, LineHeight: "24px"}, 1, true},
		{"keyword", Geometry{Height: 96, LineHeight: "normal"}, 0, false},
		{"empty", Geometry{Height: 96, LineHeight: ""}, 0, false},
		{"zero line height", Geometry{Height: 96, LineHeight: "0px"}, 0, false},
		{"negative height", Geometry{Height: -1, LineHeight: "24px"}, 0, false},
		{"NaN height", Geometry{Height: math.NaN(), LineHeight: "24px"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Rows(tt.g)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Rows(%+v) = %d, %v; want %d, %v", tt.g, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseLineHeight(t *testing.T) {
	tests := []struct {
		value  string
		want   int
		wantOK bool
	}{
		{"24px", 24, true},
		{" 18px ", 18, true},
		{"1.5", 1, true},
		{"px", 0, false},
		{"-4px", 0, false},
		{"normal", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseLineHeight(tt.value)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseLineHeight(%q) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestMirrorForward(t *testing.T) {
	var forwarded []vdom.Patch
	failNext := false

	tree := vdom.H("div", "draw", nil, vdom.Text("a"))
	m, err := NewMirror(tree, WithForward(func(p vdom.Patch) error {
		if failNext {
			return errors.New("connection lost")
		}
		forwarded = append(forwarded, p)
		return nil
	}))
	if err != nil {
		t.Fatalf("NewMirror failed: %v", err)
	}

	setText := vdom.Patch{Operations: []vdom.Operation{{Type: vdom.OpSetText, Path: vdom.Path{0}, Value: "b"}}}
	if err := m.Apply(setText); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(forwarded) != 1 {
		t.Fatalf("expected 1 forwarded patch, got %d", len(forwarded))
	}

	failNext = true
	before := m.Document().String()
	setText.Operations[0].Value = "c"
	if err := m.Apply(setText); err == nil {
		t.Fatal("expected the forward error")
	}
	if m.Document().String() != before {
		t.Error("mirror committed a patch its forward hook rejected")
	}

	if err := m.Apply(vdom.Patch{}); err != nil {
		t.Errorf("empty patch failed: %v", err)
	}
}

func TestMirrorMeasure(t *testing.T) {
	m, err := NewMirror(vdom.H("div", "draw", nil))
	if err != nil {
		t.Fatalf("NewMirror failed: %v", err)
	}

	if _, ok := m.Measure("draw"); ok {
		t.Error("nothing reported yet, Measure should fail")
	}

	m.SetGeometry("draw", Geometry{Height: 10, LineHeight: "5px"})
	if g, ok := m.Measure("draw"); !ok || g.Height != 10 {
		t.Errorf("Measure(draw) = %+v, %v", g, ok)
	}

	m.SetGeometry("gone", Geometry{Height: 10, LineHeight: "5px"})
	if _, ok := m.Measure("gone"); ok {
		t.Error("Measure should fail for elements that are not displayed")
	}

	if m.SetRows("area", 3) {
		t.Error("SetRows should fail without an editable control")
	}
}

func TestMirrorCustomMeasure(t *testing.T) {
	m, err := NewMirror(vdom.H("div", "draw", nil, vdom.Text("one\ntwo\nthree")), WithMeasure(func(doc *vdom.Document, key string) (Geometry, bool) {
		return Geometry{Height: 3, LineHeight: "1"}, true
	}))
	if err != nil {
		t.Fatalf("NewMirror failed: %v", err)
	}

	g, ok := m.Measure("draw")
	if !ok || g.Height != 3 {
		t.Errorf("Measure(draw) = %+v, %v", g, ok)
	}
}

func TestMirrorSetRowsForwardsChangesOnly(t *testing.T) {
	forwarded := 0
	tree := vdom.H("div", "", nil, vdom.H("textarea", "area", vdom.Attrs{"value": "x"}))
	m, err := NewMirror(tree, WithForward(func(vdom.Patch) error {
		forwarded++
		return nil
	}))
	if err != nil {
		t.Fatalf("NewMirror failed: %v", err)
	}

	if !m.SetRows("area", 4) || !m.SetRows("area", 4) {
		t.Fatal("SetRows failed")
	}
	if forwarded != 1 {
		t.Errorf("expected 1 forwarded patch, got %d", forwarded)
	}

	if !m.SetRows("area", 2) || m.Rows("area") != 2 {
		t.Errorf("rows = %d, want 2", m.Rows("area"))
	}
	if forwarded != 2 {
		t.Errorf("expected 2 forwarded patches, got %d", forwarded)
	}
}
