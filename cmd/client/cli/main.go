package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/cli"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
