package main

import (
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"

	yoga "github.com/goliatone/go-yoga"
)

type deps struct {
	config *yoga.EnvConfig
	logger *yoga.ZerologLogger
	db     *bun.DB
}

func setup(ctx *cli.Context) (*deps, error) {
	cfg, err := yoga.LoadEnvConfig()
	if err != nil {
		return nil, err
	}

	logger := yoga.NewZerologLogger(cfg.GetLogLevel(), cfg.GetDebug())

	if cfg.GetDebug() {
		fmt.Println("======= CONFIG ======")
		fmt.Println(print.MaybePrettyJSON(cfg))
		fmt.Println("=====================")
	}

	db, err := yoga.OpenDB(ctx.Context, cfg.GetDatabaseURL())
	if err != nil {
		return nil, err
	}

	return &deps{config: cfg, logger: logger, db: db}, nil
}

func (r *deps) Close() {
	_ = r.db.Close()
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Migrate the database and start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "bind",
				Usage:   "Address to listen on, overrides YOGA_ADDR",
				EnvVars: []string{"YOGA_BIND"},
			},
		},
		Action: func(ctx *cli.Context) error {
			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if bind := ctx.String("bind"); bind != "" {
				rt.config.Addr = bind
			}

			if err := yoga.Migrate(ctx.Context, rt.db, rt.logger); err != nil {
				return err
			}

			app, err := yoga.NewApp(rt.config, rt.db, yoga.WithAppLogger(rt.logger))
			if err != nil {
				return err
			}

			return app.Serve(ctx.Context)
		},
	}
}

func migrateCmd() *cli.Command {
	var rollback bool
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending migrations or roll back the last group",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "rollback",
				Usage:       "Roll back the last migration group",
				Destination: &rollback,
			},
		},
		Action: func(ctx *cli.Context) error {
			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rollback {
				return yoga.Rollback(ctx.Context, rt.db, rt.logger)
			}
			return yoga.Migrate(ctx.Context, rt.db, rt.logger)
		},
	}
}

func tokenCmd() *cli.Command {
	var email string
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a bearer token for an existing user",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Aliases:     []string{"e"},
				Usage:       "Email of the user the token is issued for",
				Required:    true,
				Destination: &email,
			},
		},
		Action: func(ctx *cli.Context) error {
			rt, err := setup(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			app, err := yoga.NewApp(rt.config, rt.db, yoga.WithAppLogger(rt.logger))
			if err != nil {
				return err
			}

			user, err := app.Repository().Users().GetByEmail(ctx.Context, email)
			if err != nil {
				return err
			}

			token, err := app.Tokens().Issue(user.Email)
			if err != nil {
				return err
			}

			fmt.Fprintln(ctx.App.Writer, token)
			return nil
		},
	}
}
