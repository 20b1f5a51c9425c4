package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/edvin/fleetctl/internal/cli"
	"github.com/edvin/fleetctl/internal/config"
	"github.com/edvin/fleetctl/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("fleetctl", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	configPath := fs.String("config", "", "Settings file (default: ~/.config/fleetctl/settings.yaml)")
	region := fs.String("region", "", "AWS region (overrides settings)")
	profile := fs.String("profile", "", "AWS shared config profile (overrides settings)")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	fs.Usage = func() { fmt.Fprintln(os.Stderr, cli.Usage) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 1
	}

	path := *configPath
	if path == "" {
		var err error
		path, err = config.SettingsPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *region != "" {
		cfg.Region = *region
	}
	if *profile != "" {
		cfg.AWSProfile = *profile
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.New(cfg, path, logger)
	defer app.Close()

	if err := app.Run(ctx, fs.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, "Run 'fleetctl help' for usage.")
		}
		return 1
	}
	return 0
}
