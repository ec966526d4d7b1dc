package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wordchain/internal/config"
	"wordchain/internal/httpapi"
	"wordchain/internal/hub"
	"wordchain/internal/pubsub"
	"wordchain/internal/session"
	"wordchain/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var st store.Store
	if cfg.Database.URL != "" {
		pg, err := store.OpenPostgres(cfg.Database.URL)
		if err != nil {
			logger.Fatal("room store unavailable", zap.Error(err))
		}
		st = pg
		logger.Info("using postgres room store")
	} else {
		st = store.NewMemory()
		logger.Info("using in-memory room store")
	}

	broker := pubsub.NewMemory()
	h := hub.New(logger)
	deps := session.Deps{
		Store:         st,
		Broker:        broker,
		Logger:        logger,
		TurnDuration:  cfg.Game.TurnDuration,
		GraceDuration: cfg.Game.GraceDuration,
		CodeLength:    cfg.Game.CodeLength,
	}

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: httpapi.SetupRoutes(h, st, deps),
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	h.Close()
	logger.Info("stopped")
}
