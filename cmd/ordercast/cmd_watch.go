package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"ordercast/pkg/channel"
)

// WatchCmd prints events from a running server, one JSON document per line.
type WatchCmd struct {
	flags *Flags
	out   io.Writer

	url   string
	token string
	table string
}

func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags, out: os.Stdout}
}

func (cmd *WatchCmd) Register(root *cli.Command) *cli.Command {
	connFlags := []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Usage:       "WebSocket endpoint, overrides channel.url",
			Destination: &cmd.url,
		},
		&cli.StringFlag{
			Name:        "token",
			Usage:       "bearer token, overrides channel.token",
			Destination: &cmd.token,
		},
	}
	root.Commands = append(root.Commands, &cli.Command{
		Name:  "watch",
		Usage: "Stream events from a server",
		Commands: []*cli.Command{
			{
				Name:   "admin",
				Usage:  "Print every new-order notification",
				Flags:  connFlags,
				Action: cmd.runAdmin,
			},
			{
				Name:  "order",
				Usage: "Print status updates for one table",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:        "table",
						Aliases:     []string{"t"},
						Usage:       "table id",
						Required:    true,
						Destination: &cmd.table,
					},
				}, connFlags...),
				Action: cmd.runOrder,
			},
		},
	})
	return root
}

func (cmd *WatchCmd) channel() (*channel.Channel, error) {
	cfg := cmd.flags.cfg.Channel
	url, token := cfg.URL, cfg.Token
	if cmd.url != "" {
		url = cmd.url
	}
	if cmd.token != "" {
		token = cmd.token
	}
	return channel.New(cmd.flags.log, channel.NewWSTransport(url, token), channel.Options{
		DialTimeout:       cfg.DialTimeout,
		ReconnectDelay:    cfg.ReconnectDelay,
		MaxReconnectDelay: cfg.MaxReconnectDelay,
	})
}

func (cmd *WatchCmd) runAdmin(ctx context.Context, _ *cli.Command) error {
	ch, err := cmd.channel()
	if err != nil {
		return err
	}
	lines := make(chan []byte, 64)
	act, err := ch.SubscribeAdminOrders(func(payload []byte) { enqueue(lines, payload) })
	if err != nil {
		return err
	}
	defer act.Close()
	return cmd.print(ctx, lines)
}

func (cmd *WatchCmd) runOrder(ctx context.Context, _ *cli.Command) error {
	ch, err := cmd.channel()
	if err != nil {
		return err
	}
	lines := make(chan []byte, 64)
	act, err := ch.SubscribeOrderStatus(cmd.table, func(payload []byte) { enqueue(lines, payload) })
	if err != nil {
		return err
	}
	defer act.Close()
	return cmd.print(ctx, lines)
}

// enqueue copies payload off the connection goroutine. A stalled stdout
// drops lines rather than stalling the connection.
func enqueue(lines chan<- []byte, payload []byte) {
	select {
	case lines <- append([]byte(nil), payload...):
	default:
	}
}

func (cmd *WatchCmd) print(ctx context.Context, lines <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line := <-lines:
			if !json.Valid(line) {
				continue
			}
			if _, err := fmt.Fprintf(cmd.out, "%s\n", line); err != nil {
				return err
			}
		}
	}
}
