// Package advisor turns a number's bucketed call history into an LLM recommendation.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/callhour/internal/bucket"
	"github.com/MikeSquared-Agency/callhour/internal/calllog"
	"github.com/MikeSquared-Agency/callhour/internal/locale"
	"github.com/MikeSquared-Agency/callhour/internal/yandexgpt"
)

// Completer is the reasoning service.
type Completer interface {
	Complete(ctx context.Context, messages []yandexgpt.Message) (string, error)
}

// Input is everything the prompt is rendered from.
type Input struct {
	Phone          string
	Locale         locale.Info
	Records        []calllog.CallRecord
	Hours          bucket.Hours
	CallerTimezone string
}

type Advisor struct {
	llm    Completer
	logger *slog.Logger
}

func New(llm Completer, logger *slog.Logger) *Advisor {
	return &Advisor{llm: llm, logger: logger}
}

// Recommend asks the LLM for the best time to call.
func (a *Advisor) Recommend(ctx context.Context, in Input) (string, error) {
	messages := Messages(in)

	a.logger.Info("requesting recommendation",
		"phone", in.Phone,
		"records", len(in.Records),
		"timezone", in.Locale.Timezone,
	)

	text, err := a.llm.Complete(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("llm recommendation: %w", err)
	}
	return text, nil
}

// Messages renders the system instruction and user turn.
func Messages(in Input) []yandexgpt.Message {
	return []yandexgpt.Message{
		{Role: "system", Text: systemPrompt},
		{Role: "user", Text: BuildPrompt(in)},
	}
}

// BuildPrompt renders the user turn.
func BuildPrompt(in Input) string {
	callerTZ := in.CallerTimezone
	if callerTZ == "" {
		callerTZ = locale.Unknown
	}
	return fmt.Sprintf(userPromptTemplate,
		orUnknown(in.Locale.Region),
		orUnknown(in.Locale.Timezone),
		orUnknown(in.Locale.Carrier),
		formatRecords(in.Records),
		formatHours(in.Hours.Unanswered),
		bucket.LowEngagementMax,
		formatHours(in.Hours.LowEngagement),
		formatHours(in.Hours.Successful),
		callerTZ,
	)
}

func formatRecords(records []calllog.CallRecord) string {
	if len(records) == 0 {
		return "нет"
	}
	var sb strings.Builder
	for i, r := range records {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "- %s, %d", r.CallTime, r.Duration)
	}
	return sb.String()
}

func formatHours(hours []int) string {
	if len(hours) == 0 {
		return "нет"
	}
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return strings.Join(parts, ", ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return locale.Unknown
	}
	return s
}
