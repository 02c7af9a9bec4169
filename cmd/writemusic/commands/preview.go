package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/livefir/writemusic/internal/tui"
)

// Preview prints a file, or standard input, with every sentence colored
func Preview(args []string) error {
	return preview(args, os.Stdin, os.Stdout)
}

func preview(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) > 1 {
		return fmt.Errorf("at most one file expected, got %d", len(args))
	}

	var data []byte
	var err error
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read text: %w", err)
	}

	base := tui.LightBase
	if lipgloss.HasDarkBackground() {
		base = tui.DarkBase
	}

	out, err := tui.Colorize(string(data), base)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(stdout, out); err != nil {
		return fmt.Errorf("failed to write preview: %w", err)
	}
	return nil
}
