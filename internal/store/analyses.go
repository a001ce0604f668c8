package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps RecentAnalyses when no limit is given.
const DefaultListLimit = 20

// AnalysisRecord is one persisted recommendation.
type AnalysisRecord struct {
	ID             uuid.UUID `json:"id"`
	SessionID      string    `json:"session_id"`
	Phone          string    `json:"phone"`
	Region         string    `json:"region"`
	Timezone       string    `json:"timezone"`
	Carrier        string    `json:"carrier"`
	LocaleStatus   string    `json:"locale_status"`
	RecordCount    int       `json:"record_count"`
	Unanswered     []int     `json:"unanswered_hours"`
	LowEngagement  []int     `json:"low_engagement_hours"`
	Successful     []int     `json:"successful_hours"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecordAnalysis inserts an analysis. A zero ID is replaced with a new one.
func (s *Store) RecordAnalysis(ctx context.Context, rec AnalysisRecord) (uuid.UUID, error) {
	id := rec.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analyses (id, session_id, phone, region, timezone, carrier, locale_status, record_count,
			unanswered_hours, low_engagement_hours, successful_hours, recommendation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())`,
		id, rec.SessionID, rec.Phone, rec.Region, rec.Timezone, rec.Carrier, rec.LocaleStatus, rec.RecordCount,
		nonNil(rec.Unanswered), nonNil(rec.LowEngagement), nonNil(rec.Successful), rec.Recommendation,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

// RecentAnalyses returns the newest analyses, optionally filtered by phone.
func (s *Store) RecentAnalyses(ctx context.Context, phone string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, phone, region, timezone, carrier, locale_status, record_count,
			unanswered_hours, low_engagement_hours, successful_hours, recommendation, created_at
		FROM analyses
		WHERE $1 = '' OR phone = $1
		ORDER BY created_at DESC
		LIMIT $2`, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	out := []AnalysisRecord{}
	for rows.Next() {
		var a AnalysisRecord
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Phone, &a.Region, &a.Timezone, &a.Carrier, &a.LocaleStatus,
			&a.RecordCount, &a.Unanswered, &a.LowEngagement, &a.Successful, &a.Recommendation, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nonNil(hours []int) []int {
	if hours == nil {
		return []int{}
	}
	return hours
}
