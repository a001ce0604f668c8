// Package processor orchestrates uploads and phone-number analyses across the
// normalizer, bucketer, locale resolver and advisor.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/callhour/internal/advisor"
	"github.com/MikeSquared-Agency/callhour/internal/bucket"
	"github.com/MikeSquared-Agency/callhour/internal/calllog"
	"github.com/MikeSquared-Agency/callhour/internal/hermes"
	"github.com/MikeSquared-Agency/callhour/internal/locale"
	"github.com/MikeSquared-Agency/callhour/internal/metrics"
	"github.com/MikeSquared-Agency/callhour/internal/session"
	"github.com/MikeSquared-Agency/callhour/internal/store"
)

// PreviewRows is how many normalized rows an upload summary carries.
const PreviewRows = 5

var (
	ErrFileTooLarge = errors.New("file too large")
	ErrLLMDisabled  = errors.New("llm is not configured")
)

type Normalizer interface {
	Normalize(name string, r io.Reader) (*calllog.Table, error)
}

type LocaleResolver interface {
	Resolve(phone string) locale.Info
}

type Recommender interface {
	Recommend(ctx context.Context, in advisor.Input) (string, error)
}

// Recorder persists finished analyses.
type Recorder interface {
	RecordAnalysis(ctx context.Context, rec store.AnalysisRecord) (uuid.UUID, error)
}

// Publisher emits events to the bus.
type Publisher interface {
	Publish(subject string, data any) error
}

type Options struct {
	CallerTimezone string
	MaxUploadBytes int64
}

// UploadSummary describes a table that replaced the session's previous one.
type UploadSummary struct {
	SessionID string               `json:"session_id"`
	FileName  string               `json:"file_name"`
	Columns   calllog.Columns      `json:"columns"`
	Rows      int                  `json:"rows"`
	Dropped   int                  `json:"dropped"`
	Preview   []calllog.CallRecord `json:"preview"`
}

// Analysis is the outcome of one phone-number query.
type Analysis struct {
	ID             uuid.UUID            `json:"id"`
	SessionID      string               `json:"session_id"`
	Phone          string               `json:"phone"`
	Locale         locale.Info          `json:"locale"`
	Hours          bucket.Hours         `json:"hours"`
	Records        []calllog.CallRecord `json:"records"`
	Prompt         string               `json:"-"`
	Recommendation string               `json:"recommendation"`
	CreatedAt      time.Time            `json:"created_at"`
}

type Processor struct {
	sessions   *session.Store
	normalizer Normalizer
	resolver   LocaleResolver
	advisor    Recommender
	recorder   Recorder
	publisher  Publisher
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a processor. adv may be nil, in which case Analyze fails with
// ErrLLMDisabled after the local steps and Inspect still works.
func New(sessions *session.Store, norm Normalizer, resolver LocaleResolver, adv Recommender, opts Options, logger *slog.Logger) *Processor {
	return &Processor{
		sessions:   sessions,
		normalizer: norm,
		resolver:   resolver,
		advisor:    adv,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// WithRecorder enables the analysis audit log.
func (p *Processor) WithRecorder(r Recorder) *Processor {
	p.recorder = r
	return p
}

// WithPublisher enables event publishing.
func (p *Processor) WithPublisher(pub Publisher) *Processor {
	p.publisher = pub
	return p
}

// Sessions exposes the session store.
func (p *Processor) Sessions() *session.Store { return p.sessions }

// SessionCount returns the number of sessions holding a table.
func (p *Processor) SessionCount() int { return p.sessions.Len() }

// Upload normalizes a file and replaces the session's table with it. On any
// error the previous table is left in place.
func (p *Processor) Upload(ctx context.Context, sessionID, fileName string, r io.Reader) (*UploadSummary, error) {
	data, err := p.readLimited(r)
	if err != nil {
		metrics.RecordUpload("error", 0, 0)
		return nil, err
	}

	table, err := p.normalizer.Normalize(fileName, bytes.NewReader(data))
	if err != nil {
		var missing *calllog.MissingColumnError
		if errors.As(err, &missing) {
			metrics.RecordUpload("missing_column", 0, 0)
		} else {
			metrics.RecordUpload("error", 0, 0)
		}
		p.logger.Warn("upload rejected", "session", sessionID, "file", fileName, "error", err)
		return nil, err
	}

	p.sessions.Put(sessionID, table)
	metrics.RecordUpload("ok", table.Len(), table.Dropped())

	summary := &UploadSummary{
		SessionID: sessionID,
		FileName:  fileName,
		Columns:   table.Columns,
		Rows:      table.Len(),
		Dropped:   table.Dropped(),
		Preview:   table.Preview(PreviewRows),
	}

	p.logger.Info("call log uploaded",
		"session", sessionID,
		"file", fileName,
		"rows", summary.Rows,
		"dropped", summary.Dropped,
	)

	p.publish(hermes.SubjectCallsUploaded, hermes.CallsUploaded{
		SessionID: sessionID,
		FileName:  fileName,
		Rows:      summary.Rows,
		Dropped:   summary.Dropped,
		Columns:   []string{table.Columns.Phone, table.Columns.CallTime, table.Columns.Duration},
		Timestamp: p.now().UTC(),
	})

	return summary, nil
}

func (p *Processor) readLimited(r io.Reader) ([]byte, error) {
	if p.opts.MaxUploadBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, p.opts.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > p.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, p.opts.MaxUploadBytes)
	}
	return data, nil
}

// Inspect runs every local step of an analysis (bucketing, locale lookup,
// prompt assembly) without calling the LLM. A session with no table behaves
// like an empty table and yields bucket.ErrNoDataForNumber.
func (p *Processor) Inspect(sessionID, phone string) (*Analysis, error) {
	phone = strings.TrimSpace(phone)
	var records []calllog.CallRecord
	if table, ok := p.sessions.Get(sessionID); ok {
		records = table.Records
	}

	res, err := bucket.Compute(records, phone)
	if err != nil {
		if errors.Is(err, bucket.ErrNoDataForNumber) {
			metrics.RecordAnalysis("no_data")
			p.logger.Info("no data for number", "session", sessionID, "phone", phone)
		}
		return nil, err
	}

	info := p.resolver.Resolve(res.Phone)
	metrics.RecordLocale(string(info.Status))
	if info.Status == locale.StatusUnresolved {
		p.logger.Debug("locale unresolved", "phone", res.Phone, "error", info.Err)
	}

	a := &Analysis{
		SessionID: sessionID,
		Phone:     res.Phone,
		Locale:    info,
		Hours:     res.Hours,
		Records:   res.Records,
		CreatedAt: p.now().UTC(),
	}
	a.Prompt = advisor.BuildPrompt(p.input(a))
	return a, nil
}

// Analyze produces a recommendation for phone from the session's table. The
// LLM is never called when the number has no records.
func (p *Processor) Analyze(ctx context.Context, sessionID, phone string) (*Analysis, error) {
	a, err := p.Inspect(sessionID, phone)
	if err != nil {
		return nil, err
	}
	return p.Recommend(ctx, a)
}

// Recommend completes an analysis produced by Inspect: it asks the LLM for a
// recommendation, then records and publishes the result. The session table is
// not read again.
func (p *Processor) Recommend(ctx context.Context, a *Analysis) (*Analysis, error) {
	sessionID := a.SessionID
	if p.advisor == nil {
		metrics.RecordAnalysis("error")
		return a, ErrLLMDisabled
	}

	start := time.Now()
	text, err := p.advisor.Recommend(ctx, p.input(a))
	metrics.ObserveLLM(time.Since(start))
	if err != nil {
		metrics.RecordAnalysis("error")
		p.logger.Error("recommendation failed", "session", sessionID, "phone", a.Phone, "error", err)
		return a, err
	}
	a.Recommendation = text
	a.ID = uuid.New()
	metrics.RecordAnalysis("ok")

	if p.recorder != nil {
		id, err := p.recorder.RecordAnalysis(ctx, store.AnalysisRecord{
			ID:             a.ID,
			SessionID:      sessionID,
			Phone:          a.Phone,
			Region:         a.Locale.Region,
			Timezone:       a.Locale.Timezone,
			Carrier:        a.Locale.Carrier,
			LocaleStatus:   string(a.Locale.Status),
			RecordCount:    len(a.Records),
			Unanswered:     a.Hours.Unanswered,
			LowEngagement:  a.Hours.LowEngagement,
			Successful:     a.Hours.Successful,
			Recommendation: text,
		})
		if err != nil {
			p.logger.Error("failed to record analysis", "analysis_id", a.ID, "error", err)
		} else {
			a.ID = id
		}
	}

	p.publish(hermes.SubjectAnalysisCompleted, hermes.AnalysisCompleted{
		AnalysisID:    a.ID.String(),
		SessionID:     sessionID,
		Phone:         a.Phone,
		Region:        a.Locale.Region,
		Timezone:      a.Locale.Timezone,
		Carrier:       a.Locale.Carrier,
		Unanswered:    a.Hours.Unanswered,
		LowEngagement: a.Hours.LowEngagement,
		Successful:    a.Hours.Successful,
		Timestamp:     a.CreatedAt,
	})

	p.logger.Info("analysis completed",
		"session", sessionID,
		"analysis_id", a.ID,
		"phone", a.Phone,
		"records", len(a.Records),
	)
	return a, nil
}

// Reset forgets the session's table.
func (p *Processor) Reset(sessionID string) bool {
	return p.sessions.Delete(sessionID)
}

func (p *Processor) input(a *Analysis) advisor.Input {
	return advisor.Input{
		Phone:          a.Phone,
		Locale:         a.Locale,
		Records:        a.Records,
		Hours:          a.Hours,
		CallerTimezone: p.opts.CallerTimezone,
	}
}

func (p *Processor) publish(subject string, evt any) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(subject, evt); err != nil {
		p.logger.Error("failed to publish event", "subject", subject, "error", err)
	}
}
