package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/livefir/writemusic/cmd/writemusic/commands"
)

// Version information (can be overridden at build time with -ldflags)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error

	switch command {
	case "serve":
		err = commands.Serve(args)
	case "init":
		err = commands.Init(args)
	case "tui":
		err = commands.Tui(args)
	case "preview":
		err = commands.Preview(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("writemusic version %s\n", version)

	if commit != "unknown" {
		fmt.Printf("commit: %s\n", commit)
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if commit == "unknown" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
					fmt.Printf("commit: %s\n", setting.Value[:12])
				}
			}
		}
		fmt.Printf("go: %s\n", info.GoVersion)
	}
}

func printUsage() {
	fmt.Println("write music: see how your sentence lengths vary")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  writemusic serve [--config <file>] [--addr <addr>] [--dev]   Serve the visualizer over HTTP")
	fmt.Println("  writemusic init [<file>]                                    Write a config file with the defaults")
	fmt.Println("  writemusic tui [<file>]                                     Edit text in the terminal")
	fmt.Println("  writemusic preview [<file>|-]                               Print text with colored sentences")
	fmt.Println("  writemusic version                                          Show version information")
	fmt.Println()
	fmt.Println("Serve reads writemusic.yaml from the current directory when no --config is given.")
	fmt.Println("Without a file, tui edits the built-in sample text and preview reads standard input.")
}
