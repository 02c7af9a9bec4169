package writemusic

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/livefir/writemusic/internal/config"
	"github.com/livefir/writemusic/internal/metrics"
)

// Config holds visualizer configuration options
type Config struct {
	InitialText       string
	Title             string
	Debounce          time.Duration // Quiet period coalescing WebSocket edits
	LayoutDelay       time.Duration // Delay before the row count is recomputed
	MaxTextLength     int           // Edits longer than this many bytes are rejected
	SessionTTL        time.Duration // Idle lifetime of an HTTP fallback session
	MemoryLimitMB     int           // Cap on text retained across all pages
	Upgrader          *websocket.Upgrader
	WebSocketDisabled bool
	DevMode           bool // Development mode - serve the page shell unminified
	Metrics           *metrics.Collector
}

// Option is a functional option for configuring a Visualizer
type Option func(*Config)

// WithInitialText sets the text every new page starts from
func WithInitialText(text string) Option {
	return func(c *Config) {
		c.InitialText = text
	}
}

// WithTitle sets the page heading
func WithTitle(title string) Option {
	return func(c *Config) {
		c.Title = title
	}
}

// WithDebounce sets the quiet period that coalesces edits
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.Debounce = d
	}
}

// WithLayoutDelay sets how long the row count update waits after a render
func WithLayoutDelay(d time.Duration) Option {
	return func(c *Config) {
		c.LayoutDelay = d
	}
}

// WithMaxTextLength rejects edits longer than n bytes
func WithMaxTextLength(n int) Option {
	return func(c *Config) {
		c.MaxTextLength = n
	}
}

// WithUpgrader sets a custom WebSocket upgrader
func WithUpgrader(upgrader *websocket.Upgrader) Option {
	return func(c *Config) {
		c.Upgrader = upgrader
	}
}

// WithSessionTTL sets how long an idle HTTP fallback session lives
func WithSessionTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.SessionTTL = ttl
	}
}

// WithWebSocketDisabled disables WebSocket support, forcing HTTP-only mode
func WithWebSocketDisabled() Option {
	return func(c *Config) {
		c.WebSocketDisabled = true
	}
}

// WithDevMode serves the page shell without minification
func WithDevMode(enabled bool) Option {
	return func(c *Config) {
		c.DevMode = enabled
	}
}

// WithMetrics reports into an existing collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *Config) {
		c.Metrics = collector
	}
}

// WithMemoryLimit caps the text retained across all pages
func WithMemoryLimit(mb int) Option {
	return func(c *Config) {
		c.MemoryLimitMB = mb
	}
}

// FromConfig applies a loaded configuration file
func FromConfig(cfg *config.Config) Option {
	return func(c *Config) {
		c.Title = cfg.Title
		c.Debounce = cfg.Debounce
		c.LayoutDelay = cfg.LayoutDelay
		c.MaxTextLength = cfg.MaxTextLength
		c.SessionTTL = cfg.SessionTTL
		c.MemoryLimitMB = cfg.MemoryLimitMB
		c.WebSocketDisabled = cfg.WebSocketDisabled
		c.DevMode = cfg.DevMode
	}
}

func defaultConfig() Config {
	defaults := config.DefaultConfig()
	return Config{
		InitialText:   IntroText,
		Title:         defaults.Title,
		Debounce:      defaults.Debounce,
		LayoutDelay:   defaults.LayoutDelay,
		MaxTextLength: defaults.MaxTextLength,
		SessionTTL:    defaults.SessionTTL,
		MemoryLimitMB: defaults.MemoryLimitMB,
		Upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}
