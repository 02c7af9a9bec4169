package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livefir/writemusic"
	"github.com/livefir/writemusic/internal/config"
)

// shutdownTimeout bounds how long open requests may finish after a signal
const shutdownTimeout = 5 * time.Second

// serveFlags are the options of the serve command
type serveFlags struct {
	configPath string
	addr       string
	dev        bool
}

func parseServeFlags(args []string) (serveFlags, error) {
	flags := serveFlags{configPath: config.ConfigFileName}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config", "-config":
			if i+1 >= len(args) {
				return flags, fmt.Errorf("%s requires a file", args[i])
			}
			i++
			flags.configPath = args[i]
		case "--addr", "-addr":
			if i+1 >= len(args) {
				return flags, fmt.Errorf("%s requires an address", args[i])
			}
			i++
			flags.addr = args[i]
		case "--dev", "-dev":
			flags.dev = true
		default:
			return flags, fmt.Errorf("unknown flag: %s", args[i])
		}
	}
	return flags, nil
}

// loadServeConfig reads the config file and applies the flags on top
func loadServeConfig(flags serveFlags) (*config.Config, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	if flags.dev {
		cfg.DevMode = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serveOptions turns a config into visualizer options
func serveOptions(cfg *config.Config) ([]writemusic.Option, error) {
	opts := []writemusic.Option{writemusic.FromConfig(cfg)}

	text, ok, err := cfg.ReadInitialText()
	if err != nil {
		return nil, err
	}
	if ok {
		opts = append(opts, writemusic.WithInitialText(text))
	}
	return opts, nil
}

// Serve runs the web visualizer until interrupted
func Serve(args []string) error {
	flags, err := parseServeFlags(args)
	if err != nil {
		return err
	}
	cfg, err := loadServeConfig(flags)
	if err != nil {
		return err
	}
	opts, err := serveOptions(cfg)
	if err != nil {
		return err
	}

	v := writemusic.New(opts...)
	defer v.Close()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           v.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Serving write music on http://%s", displayAddr(cfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// displayAddr fills in localhost for an address without a host
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
