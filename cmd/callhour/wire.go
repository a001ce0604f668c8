package main

import (
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/callhour/internal/advisor"
	"github.com/MikeSquared-Agency/callhour/internal/calllog"
	"github.com/MikeSquared-Agency/callhour/internal/config"
	"github.com/MikeSquared-Agency/callhour/internal/iam"
	"github.com/MikeSquared-Agency/callhour/internal/locale"
	"github.com/MikeSquared-Agency/callhour/internal/processor"
	"github.com/MikeSquared-Agency/callhour/internal/session"
	"github.com/MikeSquared-Agency/callhour/internal/yandexgpt"
)

// newProcessor wires the core pipeline. Optional recorder and publisher are
// attached by the caller.
func newProcessor(cfg config.Config, logger *slog.Logger) (*processor.Processor, error) {
	aliases := calllog.DefaultAliases()
	if cfg.ColumnAliasesFile != "" {
		var err error
		aliases, err = calllog.LoadAliases(cfg.ColumnAliasesFile)
		if err != nil {
			return nil, err
		}
		logger.Info("column aliases loaded", "file", cfg.ColumnAliasesFile)
	}

	rec, err := newRecommender(cfg, logger)
	if err != nil {
		return nil, err
	}

	return processor.New(
		session.NewStore(cfg.SharedTable),
		calllog.NewNormalizer(aliases, logger),
		locale.NewResolver(cfg.PhoneDefaultRegion, cfg.PhoneLanguage, logger),
		rec,
		processor.Options{
			CallerTimezone: cfg.CallerTimezone,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		logger,
	), nil
}

// newRecommender returns nil when the LLM is not configured.
func newRecommender(cfg config.Config, logger *slog.Logger) (processor.Recommender, error) {
	if !cfg.LLMEnabled() {
		logger.Warn("YANDEX_FOLDER_ID or SERVICE_ACCOUNT_JSON not set, running without LLM")
		return nil, nil
	}

	sa, err := cfg.ServiceAccount()
	if err != nil {
		return nil, err
	}
	tokens, err := iam.NewProvider(sa.ServiceAccountID, sa.ID, sa.PrivateKey, cfg.YandexIAMURL, logger)
	if err != nil {
		return nil, fmt.Errorf("iam provider: %w", err)
	}

	llm := yandexgpt.NewClient(tokens, cfg.YandexFolderID, cfg.YandexModel, logger)
	llm.SetEndpoint(cfg.YandexLLMURL)
	logger.Info("yandexgpt client ready", "model", llm.ModelURI())

	return advisor.New(llm, logger), nil
}
