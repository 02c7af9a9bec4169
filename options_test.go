package writemusic

import (
	"strings"
	"testing"
	"time"

	"github.com/livefir/writemusic/internal/config"
	"github.com/livefir/writemusic/internal/metrics"
)

func TestNewDefaults(t *testing.T) {
	v := New()
	defer v.Close()

	if v.config.InitialText != IntroText || !strings.Contains(IntroText, "Watch the colors.") {
		t.Error("expected the built-in intro text")
	}
	if v.config.Debounce != 4*time.Millisecond {
		t.Errorf("expected a 4ms debounce, got %v", v.config.Debounce)
	}
	if v.config.Upgrader == nil {
		t.Error("expected a default upgrader")
	}
	if v.Metrics() == nil {
		t.Error("expected a metrics collector")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Title = "Rhythm"
	cfg.Debounce = 20 * time.Millisecond
	cfg.MaxTextLength = 99
	cfg.WebSocketDisabled = true

	collector := metrics.NewCollector()
	v := New(FromConfig(cfg), WithMetrics(collector))
	defer v.Close()

	if v.config.Title != "Rhythm" || v.config.Debounce != 20*time.Millisecond || v.config.MaxTextLength != 99 {
		t.Errorf("config not applied: %+v", v.config)
	}
	if !v.config.WebSocketDisabled {
		t.Error("expected WebSocket to be disabled")
	}
	if v.Metrics() != collector {
		t.Error("expected the shared collector")
	}
}
