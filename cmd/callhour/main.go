package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/callhour/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "callhour",
	Short: "Recommends the best hour to call a number from its call log",
	Long: `callhour ingests call-log spreadsheets and, for a given phone number,
asks YandexGPT when that number is most likely to pick up.

Running without a subcommand starts the server (same as "callhour serve").`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		setupLogging(cfg.LogLevel)
		return cfg.Validate()
	},
	RunE: runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd, analyzeCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("callhour failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
