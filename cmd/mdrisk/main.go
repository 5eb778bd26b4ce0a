package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"mdrisk/internal/infrastructure/logger"
	"mdrisk/internal/interfaces/cli"
)

func main() {
	logger.Setup("info")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("mdrisk exited")
		stop()
		os.Exit(1)
	}
}
