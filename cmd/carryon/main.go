package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hpungsan/carryon/internal/config"
	"github.com/hpungsan/carryon/internal/db"
	"github.com/hpungsan/carryon/internal/embed"
	"github.com/hpungsan/carryon/internal/logging"
	"github.com/hpungsan/carryon/internal/mcp"
	"github.com/hpungsan/carryon/internal/ops"
	"github.com/hpungsan/carryon/internal/summarize"
	"github.com/hpungsan/carryon/internal/vectorstore"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"save": true, "recall": true, "status": true, "replay": true,
	"search": true, "add": true, "forget": true, "list": true,
	"export": true, "import": true, "ui": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode(args []string) bool {
	if len(args) < 2 {
		return false // No args → MCP server
	}
	arg := args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return false
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___ __ _ _ __ _ __ _   _  ___  _ __
  / __/ _' | '__| '__| | | |/ _ \| '_ \
 | (_| (_| | |  | |  | |_| | (_) | | | |
  \___\__,_|_|  |_|   \__, |\___/|_| |_|
                      |___/
  Session continuity cache

  Usage: carryon <command> [options]
         carryon --help

  MCP server mode requires piped input.`)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion(os.Args) {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode(os.Args) && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'carryon --help' for usage.\n")
		os.Exit(1)
	}

	deps, cleanup, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if isCLIMode(os.Args) {
		app := newCLIApp(deps)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			cleanup()
			os.Exit(1)
		}
		return
	}

	// MCP server mode (default)
	if err := mcp.Run(deps, deps.Config, Version); err != nil {
		deps.Logger.Error("mcp server stopped", "err", err)
		cleanup()
		os.Exit(1)
	}
}

// setup loads configuration, initializes logging and opens the store.
func setup() (*ops.Deps, func(), error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".carryon")

	cwd, _ := os.Getwd()
	if err := config.LoadDotEnv(filepath.Join(baseDir, ".env"), filepath.Join(cwd, ".env")); err != nil {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.ApplyEnv(cfg, os.LookupEnv)

	logger := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	embedder, err := embed.New(cfg)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	sum, err := summarize.New(cfg)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	warnUnknownNames(logger, cfg)

	deps := &ops.Deps{
		Store:      vectorstore.New(database, embedder),
		Summarizer: sum,
		Config:     cfg,
		Logger:     logger,
	}
	cleanup := func() {
		database.Close()
		logging.Sync()
	}
	return deps, cleanup, nil
}

func warnUnknownNames(logger *slog.Logger, cfg *config.Config) {
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", "types", unknown)
	}
}
