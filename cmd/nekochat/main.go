package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/soratani/nekochat/pkg/config"
	"github.com/soratani/nekochat/pkg/dispatch"
)

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 && os.Args[1] == "init" {
		initCmd := flag.NewFlagSet("init", flag.ExitOnError)
		initCmd.Usage = func() {
			fmt.Fprintf(os.Stderr, "Usage: nekochat init [flags]\n\nCreate a configuration file interactively.\n\nFlags:\n")
			initCmd.PrintDefaults()
		}
		path := initCmd.String("config", "config.json", "path to write the configuration file")
		_ = initCmd.Parse(os.Args[2:])

		if err := runInit(*path); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		return
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: nekochat [flags]\n       nekochat init [flags]\n\nFlags:\n")
		flag.PrintDefaults()
	}

	configPath := flag.String("config", "config.json", "path to configuration file")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	markdown := flag.Bool("markdown", false, "render replies as markdown")
	verbose := flag.Bool("verbose", false, "log backend activity to stderr")
	flag.Parse()

	if err := loadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(*configPath, *markdown, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, markdown, verbose bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	d := dispatch.New(cfg, newLogger(verbose))

	return runREPL(ctx, cfg, d, markdown)
}

// newLogger returns a stderr console logger. It stays silent unless verbose
// is set, so log lines never interleave with the chat transcript by default.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.Disabled
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}
