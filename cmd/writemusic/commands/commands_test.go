package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/livefir/writemusic/internal/config"
)

func TestParseServeFlags(t *testing.T) {
	flags, err := parseServeFlags([]string{"--config", "site.yaml", "-addr", ":9000", "--dev"})
	if err != nil {
		t.Fatalf("parseServeFlags failed: %v", err)
	}
	if flags.configPath != "site.yaml" || flags.addr != ":9000" || !flags.dev {
		t.Errorf("unexpected flags: %+v", flags)
	}

	defaults, err := parseServeFlags(nil)
	if err != nil || defaults.configPath != "writemusic.yaml" {
		t.Errorf("expected the default config file, got %+v, %v", defaults, err)
	}

	for _, args := range [][]string{{"--addr"}, {"--config"}, {"--verbose"}} {
		if _, err := parseServeFlags(args); err == nil {
			t.Errorf("expected an error for %v", args)
		}
	}
}

func TestLoadServeConfig(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "intro.txt")
	if err := os.WriteFile(textPath, []byte("Short. Then longer ones follow."), 0644); err != nil {
		t.Fatal(err)
	}

	configPath := filepath.Join(dir, "writemusic.yaml")
	data := "addr: \":7000\"\ndebounce: 10ms\ninitial_text_file: " + textPath + "\n"
	if err := os.WriteFile(configPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadServeConfig(serveFlags{configPath: configPath, addr: ":7100"})
	if err != nil {
		t.Fatalf("loadServeConfig failed: %v", err)
	}
	if cfg.Addr != ":7100" {
		t.Errorf("the flag should override the file, got %q", cfg.Addr)
	}
	if cfg.Debounce != 10*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Debounce)
	}

	opts, err := serveOptions(cfg)
	if err != nil {
		t.Fatalf("serveOptions failed: %v", err)
	}
	if len(opts) != 2 {
		t.Errorf("expected config and initial text options, got %d", len(opts))
	}

	cfg.InitialTextFile = filepath.Join(dir, "missing.txt")
	if _, err := serveOptions(cfg); err == nil {
		t.Error("expected an error for a missing text file")
	}

	if _, err := loadServeConfig(serveFlags{configPath: configPath, addr: "not an address"}); err == nil {
		t.Error("expected a validation error for a bad address")
	}
}

func TestDisplayAddr(t *testing.T) {
	if got := displayAddr(":8080"); got != "localhost:8080" {
		t.Errorf("displayAddr(:8080) = %q", got)
	}
	if got := displayAddr("0.0.0.0:80"); got != "0.0.0.0:80" {
		t.Errorf("displayAddr(0.0.0.0:80) = %q", got)
	}
}

func TestPreview(t *testing.T) {
	var out bytes.Buffer
	if err := preview(nil, strings.NewReader("Hi. There you are."), &out); err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	// Output is not a terminal, so no colors are written
	if out.String() != "Hi. There you are.\n" {
		t.Errorf("preview = %q", out.String())
	}

	path := filepath.Join(t.TempDir(), "text.txt")
	if err := os.WriteFile(path, []byte("From a file."), 0644); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := preview([]string{path}, strings.NewReader("ignored"), &out); err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if !strings.Contains(out.String(), "From a file.") {
		t.Errorf("preview = %q", out.String())
	}

	if err := preview([]string{"a", "b"}, nil, &out); err == nil {
		t.Error("expected an error for two files")
	}
	if err := preview([]string{filepath.Join(t.TempDir(), "missing")}, nil, &out); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site", "writemusic.yaml")

	var out bytes.Buffer
	if err := initConfig([]string{path}, &out); err != nil {
		t.Fatalf("initConfig failed: %v", err)
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("output = %q", out.String())
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Addr != config.DefaultAddr || cfg.MemoryLimitMB != config.DefaultConfig().MemoryLimitMB {
		t.Errorf("expected the defaults, got %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config does not validate: %v", err)
	}

	// An existing file is never overwritten
	if err := initConfig([]string{path}, &out); err == nil {
		t.Error("expected an error for an existing file")
	}
	if err := initConfig([]string{"a", "b"}, &out); err == nil {
		t.Error("expected an error for two files")
	}
}
