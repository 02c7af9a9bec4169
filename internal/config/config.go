package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "writemusic.yaml"

	// DefaultAddr is where the server listens when nothing is configured
	DefaultAddr = ":8080"
)

// Config represents the writemusic server configuration
type Config struct {
	// Addr is the listen address of the HTTP server
	Addr string `yaml:"addr" validate:"required,hostname_port"`

	// Debounce is the quiet period that coalesces edit signals
	Debounce time.Duration `yaml:"debounce" validate:"gte=1ms,lte=1s"`

	// LayoutDelay defers the row count update after each render
	LayoutDelay time.Duration `yaml:"layout_delay" validate:"gte=1ms,lte=1s"`

	// MaxTextLength rejects edits longer than this many bytes
	MaxTextLength int `yaml:"max_text_length" validate:"gt=0"`

	// SessionTTL is how long an idle HTTP fallback session lives
	SessionTTL time.Duration `yaml:"session_ttl" validate:"gte=1s"`

	// MemoryLimitMB caps the text retained across all pages
	MemoryLimitMB int `yaml:"memory_limit_mb" validate:"gt=0"`

	// InitialTextFile replaces the built-in sample text
	InitialTextFile string `yaml:"initial_text_file,omitempty"`

	// Title is the page heading
	Title string `yaml:"title,omitempty" validate:"max=80"`

	// WebSocketDisabled forces the HTTP fallback
	WebSocketDisabled bool `yaml:"websocket_disabled,omitempty"`

	// DevMode serves the page shell without minification
	DevMode bool `yaml:"dev_mode,omitempty"`
}

var validate = validator.New()

// DefaultConfig returns a new Config with default values
func DefaultConfig() *Config {
	return &Config{
		Addr:          DefaultAddr,
		Debounce:      4 * time.Millisecond,
		LayoutDelay:   4 * time.Millisecond,
		MaxTextLength: 256 * 1024,
		SessionTTL:    24 * time.Hour,
		MemoryLimitMB: 64,
		Title:         "write music",
	}
}

// LoadConfig loads the configuration from path. An empty path or a missing
// file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	// If config file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// Relative text files are resolved against the config file
	if config.InitialTextFile != "" && !filepath.IsAbs(config.InitialTextFile) {
		config.InitialTextFile = filepath.Join(filepath.Dir(path), config.InitialTextFile)
	}

	return config, nil
}

// Parse decodes YAML, fills in defaults for missing fields and validates
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults sets defaults for missing fields
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Addr == "" {
		c.Addr = defaults.Addr
	}
	if c.Debounce == 0 {
		c.Debounce = defaults.Debounce
	}
	if c.LayoutDelay == 0 {
		c.LayoutDelay = defaults.LayoutDelay
	}
	if c.MaxTextLength == 0 {
		c.MaxTextLength = defaults.MaxTextLength
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = defaults.SessionTTL
	}
	if c.MemoryLimitMB == 0 {
		c.MemoryLimitMB = defaults.MemoryLimitMB
	}
	if c.Title == "" {
		c.Title = defaults.Title
	}
}

// Validate checks every field against its constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ReadInitialText returns the contents of InitialTextFile. ok is false when
// no file is configured.
func (c *Config) ReadInitialText() (text string, ok bool, err error) {
	if c.InitialTextFile == "" {
		return "", false, nil
	}
	data, err := os.ReadFile(c.InitialTextFile)
	if err != nil {
		return "", false, fmt.Errorf("failed to read initial text: %w", err)
	}
	return string(data), true, nil
}

// SaveConfig writes the configuration to path
func SaveConfig(path string, config *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
