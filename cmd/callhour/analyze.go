package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/callhour/internal/advisor"
	"github.com/MikeSquared-Agency/callhour/internal/bucket"
	"github.com/MikeSquared-Agency/callhour/internal/processor"
)

const cliSession = "cli"

var (
	analyzeFile   string
	analyzePhone  string
	analyzeDryRun bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one number from a call-log file",
	Long: `Load a call-log file, bucket the calls of one number and print the
recommendation. With --dry-run the prompt is printed instead of being sent.`,
	Example: `  callhour analyze --file calls.xlsx --phone 79990000000
  callhour analyze --file calls.csv --phone 79990000000 --dry-run`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "call-log file (.xlsx or .csv)")
	analyzeCmd.Flags().StringVarP(&analyzePhone, "phone", "p", "", "phone number as written in the file")
	analyzeCmd.Flags().BoolVar(&analyzeDryRun, "dry-run", false, "print the prompt without calling the LLM")
	_ = analyzeCmd.MarkFlagRequired("file")
	_ = analyzeCmd.MarkFlagRequired("phone")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	proc, err := newProcessor(cfg, cliLogger())
	if err != nil {
		return err
	}

	f, err := os.Open(analyzeFile)
	if err != nil {
		return fmt.Errorf("open call log: %w", err)
	}
	defer f.Close()

	sum, err := proc.Upload(cmd.Context(), cliSession, filepath.Base(analyzeFile), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded %d rows (%d dropped); columns: %s / %s / %s\n\n",
		sum.Rows, sum.Dropped, sum.Columns.Phone, sum.Columns.CallTime, sum.Columns.Duration)

	if analyzeDryRun {
		a, err := proc.Inspect(cliSession, analyzePhone)
		if err != nil {
			return noDataHint(err)
		}
		printAnalysis(out, a)
		for _, m := range advisor.Messages(advisor.Input{
			Phone:          a.Phone,
			Locale:         a.Locale,
			Records:        a.Records,
			Hours:          a.Hours,
			CallerTimezone: cfg.CallerTimezone,
		}) {
			fmt.Fprintf(out, "\n--- %s ---\n%s\n", m.Role, m.Text)
		}
		return nil
	}

	a, err := proc.Analyze(cmd.Context(), cliSession, analyzePhone)
	if a != nil {
		printAnalysis(out, a)
	}
	if err != nil {
		if errors.Is(err, processor.ErrLLMDisabled) {
			return fmt.Errorf("%w: set YANDEX_FOLDER_ID and SERVICE_ACCOUNT_JSON, or use --dry-run", err)
		}
		return noDataHint(err)
	}
	fmt.Fprintln(out, "\n"+a.Recommendation)
	return nil
}

func printAnalysis(out io.Writer, a *processor.Analysis) {
	fmt.Fprintf(out, "Phone:      %s\n", a.Phone)
	fmt.Fprintf(out, "Carrier:    %s\n", a.Locale.Carrier)
	fmt.Fprintf(out, "Region:     %s\n", a.Locale.Region)
	fmt.Fprintf(out, "Timezone:   %s\n", a.Locale.Timezone)
	fmt.Fprintf(out, "Records:    %d\n", len(a.Records))
	fmt.Fprintf(out, "Unanswered: %v\n", a.Hours.Unanswered)
	fmt.Fprintf(out, "Low:        %v\n", a.Hours.LowEngagement)
	fmt.Fprintf(out, "Successful: %v\n", a.Hours.Successful)
}

// cliLogger keeps stdout for results; only warnings go to stderr unless debugging.
func cliLogger() *slog.Logger {
	if cfg.LogLevel == "debug" {
		return slog.Default()
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func noDataHint(err error) error {
	if errors.Is(err, bucket.ErrNoDataForNumber) {
		return fmt.Errorf("%w: %q (phone must match the file exactly)", err, analyzePhone)
	}
	return err
}
