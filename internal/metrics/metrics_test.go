package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordUpload(t *testing.T) {
	before := testutil.ToFloat64(uploadsTotal.WithLabelValues("ok"))
	RecordUpload("ok", 10, 2)
	if got := testutil.ToFloat64(uploadsTotal.WithLabelValues("ok")); got != before+1 {
		t.Errorf("expected ok uploads %v, got %v", before+1, got)
	}
}

func TestRecordAnalysis(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues("no_data"))
	RecordAnalysis("no_data")
	if got := testutil.ToFloat64(analysesTotal.WithLabelValues("no_data")); got != before+1 {
		t.Errorf("expected no_data analyses %v, got %v", before+1, got)
	}
}

func TestRecordLocaleAndChat(t *testing.T) {
	RecordLocale("resolved")
	RecordChatMessage("text")
	ObserveLLM(250 * time.Millisecond)

	if testutil.ToFloat64(localeLookupsTotal.WithLabelValues("resolved")) < 1 {
		t.Error("expected resolved locale lookup recorded")
	}
	if testutil.ToFloat64(chatMessagesTotal.WithLabelValues("text")) < 1 {
		t.Error("expected text chat message recorded")
	}
}
