package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"DialogHarness/internal/config"
	"DialogHarness/internal/nlu"
	"DialogHarness/internal/stubservice"

	"go.uber.org/zap"
)

// Локальный диалоговый сервис: принимает POST {"input","id"} и отвечает списком системных актов.
func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	db, err := stubservice.LoadDatabase(cfg.StubService.DBPath)
	if err != nil {
		sugar.Errorw("failed to load database", "error", err)
		return
	}
	parser, err := nlu.New(nlu.ModeUser)
	if err != nil {
		sugar.Errorw("failed to load nlu", "error", err)
		return
	}

	// Graceful shutdown on Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := stubservice.NewServer(cfg.StubService, stubservice.NewResponder(db, parser, sugar), sugar)
	if err := srv.Start(ctx); err != nil {
		sugar.Errorw("failed to start stub service", "error", err)
		return
	}
	sugar.Infow("stub service ready", "url", srv.URL())

	<-ctx.Done()
	if err := srv.Stop(context.Background()); err != nil {
		sugar.Warnw("stop error", "error", err)
	}
}
