package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/livefir/writemusic/internal/config"
)

// Init writes a config file holding the defaults, ready to be edited
func Init(args []string) error {
	return initConfig(args, os.Stdout)
}

func initConfig(args []string, stdout io.Writer) error {
	if len(args) > 1 {
		return fmt.Errorf("at most one file expected, got %d", len(args))
	}

	path := config.ConfigFileName
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	if err := config.SaveConfig(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}
