package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"PolicyDigest/internal/app"
	"PolicyDigest/internal/config"
	"PolicyDigest/internal/logging"
)

type options struct {
	Config   string `short:"c" long:"config" env:"POLICY_DIGEST_CONFIG" description:"Path to the YAML configuration file"`
	Daemon   bool   `short:"d" long:"daemon" description:"Run on the configured cron schedule instead of once"`
	LogLevel string `long:"log-level" description:"Override the log level (debug, info, warn, error)"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if opts.Daemon {
		err = application.RunDaemon(ctx)
	} else {
		err = application.Run(ctx)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		_ = application.Close()
		stop()
		os.Exit(1)
	}
}
