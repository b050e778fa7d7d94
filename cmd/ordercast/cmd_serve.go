package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"ordercast/internal/app"
)

type ServeCmd struct {
	flags *Flags
	addr  string
}

func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

func (cmd *ServeCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "serve",
		Usage: "Run the notification server",
		Description: `Accepts WebSocket connections on /ws and publishing requests on /api.

Without redis.url the server runs as a single node with no presence tracking.
Without postgres.dsn notifications are broadcast but not stored.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address, overrides service.addr",
				Destination: &cmd.addr,
			},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.cfg
	if cmd.addr != "" {
		cfg.Service.Addr = cmd.addr
	}
	cmd.flags.log.Info("starting application")
	return app.Serve(ctx, cfg, cmd.flags.log)
}
