package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"ordercast/internal/core/domain"
	"ordercast/internal/core/services"
)

type TokenCmd struct {
	flags   *Flags
	subject string
	admin   bool
}

func NewTokenCmd(flags *Flags) *TokenCmd {
	return &TokenCmd{flags: flags}
}

func (cmd *TokenCmd) Register(root *cli.Command) *cli.Command {
	root.Commands = append(root.Commands, &cli.Command{
		Name:      "token",
		Usage:     "Mint a connection token signed with auth.secret",
		UsageText: "ordercast token --subject staff-1 [--admin]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "subject",
				Usage:       "who the token identifies",
				Required:    true,
				Destination: &cmd.subject,
			},
			&cli.BoolFlag{
				Name:        "admin",
				Usage:       "grant the admin role",
				Destination: &cmd.admin,
			},
		},
		Action: cmd.run,
	})
	return root
}

func (cmd *TokenCmd) run(_ context.Context, _ *cli.Command) error {
	cfg := cmd.flags.cfg
	svc := services.NewTokenService(cmd.flags.log, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	role := domain.RoleCustomer
	if cmd.admin {
		role = domain.RoleAdmin
	}
	tok, err := svc.GenerateToken(cmd.subject, role)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, tok)
	return err
}
