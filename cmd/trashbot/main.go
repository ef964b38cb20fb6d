package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/m3rciful/trashbot/internal/config"
	"github.com/m3rciful/trashbot/internal/database"
	"github.com/m3rciful/trashbot/internal/engine"
	"github.com/m3rciful/trashbot/internal/fanout"
	"github.com/m3rciful/trashbot/internal/httpserver"
	"github.com/m3rciful/trashbot/internal/logger"
	"github.com/m3rciful/trashbot/internal/metrics"
	"github.com/m3rciful/trashbot/internal/store"
	"github.com/m3rciful/trashbot/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("config load failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database); err != nil {
		os.Exit(1)
	}

	stores := store.New(db)
	m := metrics.Registry("trashbot")
	eng := engine.New(stores, fanout.New(stores.Profiles), m)

	if err := engine.SeedAdminChat(ctx, stores.Settings, cfg.Telegram.AdminID); err != nil {
		logger.L.Error("admin chat seed failed", slog.Any("error", err))
	}

	ops := httpserver.New(cfg.Ops.Listen)
	go func() {
		if err := ops.Start(); err != nil {
			logger.HTTP.Error("ops server failed", slog.Any("error", err))
		}
	}()

	if err := telegram.Run(ctx, cfg, eng, m); err != nil {
		logger.L.Error("bot stopped with error", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.HTTP.Error("ops shutdown failed", slog.Any("error", err))
	}
}
