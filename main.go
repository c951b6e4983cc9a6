// kbchat TUI - A terminal chat client for a document knowledge base.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/morganforge/kbchat-tui/internal/api"
	"github.com/morganforge/kbchat-tui/internal/config"
	"github.com/morganforge/kbchat-tui/internal/export"
	"github.com/morganforge/kbchat-tui/internal/store"
	"github.com/morganforge/kbchat-tui/internal/turn"
	"github.com/morganforge/kbchat-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		serverURL  = flag.String("server", "", "backend base URL (overrides config)")
		configPath = flag.String("config", "", "path to config file")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("kbchat %s (%s, %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	switch flag.Arg(0) {
	case "export":
		if err := runExport(cfg, flag.Args()[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "":
		runTUI(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n", flag.Arg(0))
		os.Exit(1)
	}
}

// loadConfig loads the configuration from the default or explicit path.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// runTUI starts the chat interface.
func runTUI(cfg *config.Config) {
	setupLogging()

	dir, err := config.ConfigDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	st, err := store.Open(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening conversation cache: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(cfg.ServerURL).
		WithTimeout(time.Duration(cfg.TimeoutSecs) * time.Second)

	// Startup probe. An unreachable backend is not fatal; the UI runs from
	// the local cache and the first sync surfaces the offline notice.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := client.Health(ctx); err != nil {
		log.Printf("backend %s unreachable at startup: %v", cfg.ServerURL, err)
	}
	cancel()

	controller := turn.NewController(st, client, cfg.MaxMessages)

	m := chat.New(st, controller, client, cfg)
	defer m.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running kbchat: %v\n", err)
		os.Exit(1)
	}
}

// runExport renders a conversation transcript to stdout.
//
// Usage: kbchat export [-format markdown|json] [conversation-id]
// Without an id the active conversation is exported.
func runExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	formatName := fs.String("format", "markdown", "output format: markdown or json")
	if err := fs.Parse(args); err != nil {
		return err
	}

	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	st, err := store.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open conversation cache: %w", err)
	}

	conv := st.Active()
	if id := fs.Arg(0); id != "" {
		found, ok := st.Get(id)
		if !ok {
			return fmt.Errorf("conversation %s: %w", id, store.ErrConversationNotFound)
		}
		conv = found
	}

	data, err := export.Render(&conv, format)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// setupLogging sends the standard logger to a file so log lines do not
// tear the alternate screen. Logging is best effort.
func setupLogging() {
	dir, err := config.ConfigDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "kbchat.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
