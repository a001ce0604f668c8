// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// uploadsTotal counts processed uploads by result (ok, missing_column, error).
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callhour",
		Name:      "uploads_total",
		Help:      "Uploaded call logs by result",
	}, []string{"result"})

	// uploadRows tracks rows kept and dropped per upload.
	uploadRows = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "callhour",
		Name:      "upload_rows",
		Help:      "Rows per upload after coercion",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"kind"})

	// analysesTotal counts phone-number analyses by result (ok, no_data, error).
	analysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callhour",
		Name:      "analyses_total",
		Help:      "Phone number analyses by result",
	}, []string{"result"})

	// llmLatencySeconds measures recommendation latency including the token exchange.
	llmLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "callhour",
		Name:      "llm_latency_seconds",
		Help:      "Latency of recommendation requests to the LLM",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	// localeLookupsTotal counts locale lookups by status (resolved, unresolved).
	localeLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callhour",
		Name:      "locale_lookups_total",
		Help:      "Phone metadata lookups by status",
	}, []string{"status"})

	// chatMessagesTotal counts inbound chat events by kind (start, document, text).
	chatMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "callhour",
		Name:      "chat_messages_total",
		Help:      "Inbound chat events by kind",
	}, []string{"kind"})
)

func RecordUpload(result string, kept, dropped int) {
	uploadsTotal.WithLabelValues(result).Inc()
	if result == "ok" {
		uploadRows.WithLabelValues("kept").Observe(float64(kept))
		uploadRows.WithLabelValues("dropped").Observe(float64(dropped))
	}
}

func RecordAnalysis(result string) {
	analysesTotal.WithLabelValues(result).Inc()
}

func ObserveLLM(d time.Duration) {
	llmLatencySeconds.Observe(d.Seconds())
}

func RecordLocale(status string) {
	localeLookupsTotal.WithLabelValues(status).Inc()
}

func RecordChatMessage(kind string) {
	chatMessagesTotal.WithLabelValues(kind).Inc()
}
