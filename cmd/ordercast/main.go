package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/urfave/cli/v3"

	"ordercast/internal/config"
	"ordercast/internal/platform/logger"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
)

func build() string {
	v, c := version, commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", v, c)
}

// Flags are the global options shared by every command.
type Flags struct {
	ConfigName string
	LogLevel   string

	cfg *config.Config
	log *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := &Flags{}
	app := &cli.Command{
		Name:    "ordercast",
		Usage:   "Real-time order notifications for admins and table customers",
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "config file name (yaml, looked up in the working directory)",
				Sources:     cli.EnvVars("ORDERCAST_CONFIG"),
				Value:       "config",
				Destination: &flags.ConfigName,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "override logger.level (debug, info, warn, error)",
				Destination: &flags.LogLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigName)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			if flags.LogLevel != "" {
				cfg.Logger.Level = flags.LogLevel
			}
			flags.cfg = cfg
			flags.log = logger.NewLogger(*cfg)
			return ctx, nil
		},
	}

	app = NewServeCmd(flags).Register(app)
	app = NewWatchCmd(flags).Register(app)
	app = NewTokenCmd(flags).Register(app)

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
