//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestIntegration_RecordAndListAnalyses(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	phone := "7999" + uuid.New().String()[:7]

	id, err := s.RecordAnalysis(ctx, AnalysisRecord{
		SessionID:      "integration",
		Phone:          phone,
		Region:         "Москва",
		Timezone:       "Europe/Moscow",
		Carrier:        "unknown",
		LocaleStatus:   "resolved",
		RecordCount:    2,
		Unanswered:     []int{10},
		Successful:     []int{14},
		Recommendation: "Звоните в 14:00",
	})
	if err != nil {
		t.Fatalf("RecordAnalysis failed: %v", err)
	}
	if id == uuid.Nil {
		t.Fatal("expected non-nil analysis ID")
	}

	got, err := s.RecentAnalyses(ctx, phone, 5)
	if err != nil {
		t.Fatalf("RecentAnalyses failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 analysis, got %d", len(got))
	}
	a := got[0]
	if a.ID != id {
		t.Errorf("expected id %s, got %s", id, a.ID)
	}
	if len(a.Unanswered) != 1 || a.Unanswered[0] != 10 {
		t.Errorf("unexpected unanswered hours %v", a.Unanswered)
	}
	if len(a.LowEngagement) != 0 {
		t.Errorf("expected empty low engagement hours, got %v", a.LowEngagement)
	}
	if a.Recommendation != "Звоните в 14:00" {
		t.Errorf("unexpected recommendation %q", a.Recommendation)
	}
}
