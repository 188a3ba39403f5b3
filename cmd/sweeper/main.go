// Package main запускает периодическую очистку. С флагом -once выполняет
// один проход и завершается, что удобно для cron.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/social-stories/internal/app/sweeper"
	"github.com/magabrotheeeer/social-stories/internal/config"
	"github.com/magabrotheeeer/social-stories/internal/lib/sl"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)
	logger.Info("starting sweeper", slog.String("env", cfg.Env), slog.Bool("once", *once))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := sweeper.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sweeper", sl.Err(err))
		os.Exit(1)
	}

	if *once {
		if err := app.RunOnce(ctx); err != nil {
			logger.Error("sweep finished with errors", sl.Err(err))
			os.Exit(1)
		}
		return
	}
	app.Run(ctx)
}
