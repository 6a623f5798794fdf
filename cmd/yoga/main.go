package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	// a missing .env file is fine, the environment wins anyway
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "yoga",
		Usage: "Book yoga sessions with your favourite teachers",
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			tokenCmd(),
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Error().Err(err).Msg("Application failed")
		os.Exit(1)
	}
}
