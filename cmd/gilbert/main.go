// Gilbert - the creative agency's Slack assistant
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gilbertlabs/gilbert/internal/assembler"
	"github.com/gilbertlabs/gilbert/internal/channels"
	"github.com/gilbertlabs/gilbert/internal/channels/console"
	slackchannel "github.com/gilbertlabs/gilbert/internal/channels/slack"
	"github.com/gilbertlabs/gilbert/internal/config"
	"github.com/gilbertlabs/gilbert/internal/conversation"
	"github.com/gilbertlabs/gilbert/internal/directory"
	"github.com/gilbertlabs/gilbert/internal/dispatcher"
	"github.com/gilbertlabs/gilbert/internal/files"
	"github.com/gilbertlabs/gilbert/internal/health"
	"github.com/gilbertlabs/gilbert/internal/llm"
	"github.com/gilbertlabs/gilbert/internal/logging"
	"github.com/gilbertlabs/gilbert/internal/memory"
	"github.com/gilbertlabs/gilbert/internal/tasks"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version")
	consoleMode := flag.Bool("console", false, "Chat locally in the terminal instead of Slack")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Gilbert v%s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.Default()
		cfg.ExpandEnv()
	}
	if *consoleMode {
		cfg.Slack.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		var cerr *config.ConfigurationError
		if errors.As(err, &cerr) {
			fmt.Fprintf(os.Stderr, "invalid configuration: %s: %s\n", cerr.Setting, cerr.Reason)
		} else {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		}
		os.Exit(1)
	}

	logger := logging.NewWithConfig(cfg.Logging)
	defer logger.Close()
	logger.Info("Starting Gilbert", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	if err := run(ctx, cfg, logger, *consoleMode); err != nil {
		logger.Error("Gilbert exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger, consoleMode bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Completion provider with circuit breaking and rate limiting.
	openAI, err := llm.NewOpenAI(cfg.OpenAI)
	if err != nil {
		return fmt.Errorf("failed to create completion provider: %w", err)
	}
	provider := llm.NewResilient(openAI, llm.DefaultResilientConfig(), logger.Component("llm"))

	if err := provider.Ping(ctx); err != nil {
		logger.Warn("Provider ping failed, continuing anyway", "error", err)
	}

	// Memory: spreadsheet store with an optional local mirror.
	sheets := memory.NewHTTPSheetClient(cfg.Sheets)
	var mirror *memory.Mirror
	if cfg.Sheets.MirrorPath != "" {
		mirror, err = memory.NewMirror(cfg.Sheets.MirrorPath)
		if err != nil {
			logger.Warn("Memory mirror unavailable, continuing without it", "error", err)
		}
	}
	store := memory.NewStore(sheets, mirror, cfg.Sheets.MemorySheet, logger.Logger)
	defer store.Close()

	// Client and project directory.
	lookup := directory.NewLookup(sheets, cfg.Sheets.ClientRange, cfg.Sheets.ProjectRange, logger.Logger)
	if err := lookup.Refresh(ctx); err != nil {
		logger.Warn("Directory refresh failed, lookups start empty", "error", err)
	}

	// Optional collaborators.
	var storage files.Client
	if cfg.Files.Enabled {
		storage = files.NewHTTPClient(cfg.Files)
	}
	var tracker assembler.TaskSource
	if cfg.Tasks.Enabled {
		tracker = tasks.NewClient(cfg.Tasks)
	}

	cache := conversation.NewCache(cfg.Conversation.MaxTurns)
	generator := assembler.New(assembler.Deps{
		Provider:  provider,
		Cache:     cache,
		Directory: lookup,
		Memory:    store,
		Tasks:     tracker,
		MaxTokens: cfg.OpenAI.MaxTokens,
		Logger:    logger.Logger,
	})

	router := channels.NewRouter()
	if consoleMode {
		router.Register(console.New(logger.Logger))
	}
	if cfg.Slack.Enabled {
		router.Register(slackchannel.New(cfg.Slack, logger.Logger))
	}
	if len(router.All()) == 0 {
		return fmt.Errorf("no channels enabled; enable slack or pass --console")
	}

	var notes dispatcher.NoteStore
	if cfg.Sheets.SpreadsheetID != "" || mirror != nil {
		notes = store
	}

	disp := dispatcher.New(dispatcher.Deps{
		Generator: generator,
		Sender:    router,
		Cache:     cache,
		Files:     storage,
		Provider:  provider,
		Notes:     notes,
		Logger:    logger.Logger,
	})

	// Health endpoint with per-dependency reachability.
	healthServer := health.New(cfg.Server, logger.Logger)
	healthServer.Register("openai", provider)
	if cfg.Sheets.SpreadsheetID != "" {
		healthServer.Register("sheets", sheets)
	}
	if storage != nil {
		if p, ok := storage.(health.Pinger); ok {
			healthServer.Register("files", p)
		}
	}
	if tracker != nil {
		if p, ok := tracker.(health.Pinger); ok {
			healthServer.Register("tasks", p)
		}
	}

	healthErr := make(chan error, 1)
	go func() {
		healthErr <- healthServer.Start(ctx)
	}()

	if err := router.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start channels: %w", err)
	}
	defer router.StopAll()

	logger.Info("Gilbert is listening")
	disp.Run(ctx, router.Incoming())

	// The dispatcher returns on signal or when every channel's stream has
	// ended, such as the console UI quitting. Take the health server down
	// with it.
	cancel()
	return <-healthErr
}
