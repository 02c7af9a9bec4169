package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/livefir/writemusic"
	"github.com/livefir/writemusic/internal/tui"
)

// Tui edits a file, or the built-in sample text, in the terminal. Changes
// to a file are written back when the program exits.
func Tui(args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("at most one file expected, got %d", len(args))
	}

	text := writemusic.IntroText
	var path string
	if len(args) == 1 {
		path = args[0]
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		text = string(data)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	final, err := tui.Run(ctx, text)
	if err != nil {
		return err
	}

	if path == "" || final == text {
		return nil
	}
	if err := os.WriteFile(path, []byte(final), 0644); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	fmt.Printf("Saved %s\n", path)
	return nil
}
