package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/callhour/internal/api"
	"github.com/MikeSquared-Agency/callhour/internal/hermes"
	"github.com/MikeSquared-Agency/callhour/internal/store"
	"github.com/MikeSquared-Agency/callhour/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot and HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	logger.Info("callhour starting", "port", cfg.Port, "shared_table", cfg.SharedTable)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	proc, err := newProcessor(cfg, logger)
	if err != nil {
		return err
	}

	// Database (optional, analysis history)
	var history api.History
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		proc.WithRecorder(db)
		history = db
		logger.Info("database connected")
	} else {
		logger.Warn("DATABASE_URL not set, analysis history disabled")
	}

	// NATS/Hermes (optional, events)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return err
		}
		defer hermesClient.Close()
		proc.WithPublisher(hermesClient)
		logger.Info("NATS connected", "url", cfg.NatsURL)
	}

	g, gCtx := errgroup.WithContext(ctx)

	srv := api.NewServer(cfg.Port, cfg.APIToken, proc, history, api.Options{
		LLMEnabled:     cfg.LLMEnabled(),
		SharedTable:    cfg.SharedTable,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logger)
	g.Go(func() error {
		if err := srv.Run(gCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.BotToken != "" {
		pollTimeout := time.Duration(cfg.TelegramPollTimeout) * time.Second
		client := telegram.NewClient(cfg.BotToken, cfg.TelegramAPIURL, pollTimeout, cfg.TelegramSendRate, logger)
		bot := telegram.NewBot(client, proc, pollTimeout, cfg.MaxUploadBytes, logger)
		g.Go(func() error { return bot.Run(gCtx) })
	} else {
		logger.Warn("BOT_TOKEN not set, telegram bot disabled")
	}

	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"telegram":  cfg.BotToken != "",
			"llm":       cfg.LLMEnabled(),
		}); err != nil {
			logger.Warn("failed to publish registration", "error", err)
		}
	}

	logger.Info("callhour ready", "port", cfg.Port)

	err = g.Wait()
	logger.Info("callhour stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
