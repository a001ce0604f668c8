// Package bucket groups one number's call history into hour-of-day outcome sets.
package bucket

import (
	"errors"

	"github.com/MikeSquared-Agency/callhour/internal/calllog"
)

// LowEngagementMax is the longest call, in seconds, still counted as low engagement.
const LowEngagementMax = 10

var ErrNoDataForNumber = errors.New("no call records for number")

// Hours holds the hours (0-23) in which at least one call had the given outcome.
// The sets are computed independently; an hour may appear in several of them.
type Hours struct {
	Unanswered    []int `json:"unanswered_hours"`
	LowEngagement []int `json:"low_engagement_hours"`
	Successful    []int `json:"successful_hours"`
}

// Result is the bucketing of a single phone number.
type Result struct {
	Phone   string               `json:"phone"`
	Records []calllog.CallRecord `json:"records"`
	Hours   Hours                `json:"hours"`
}

// Compute filters records by exact phone match and derives the hour sets.
// Hours come straight from the recorded clock; no timezone shift is applied.
func Compute(records []calllog.CallRecord, phone string) (*Result, error) {
	var matched []calllog.CallRecord
	for _, r := range records {
		if r.Phone == phone {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, ErrNoDataForNumber
	}

	var unanswered, low, ok [24]bool
	for _, r := range matched {
		h := r.CallTime.Hour
		if h < 0 || h > 23 {
			continue
		}
		switch {
		case r.Duration == 0:
			unanswered[h] = true
		case r.Duration <= LowEngagementMax:
			low[h] = true
		default:
			ok[h] = true
		}
	}

	return &Result{
		Phone:   phone,
		Records: matched,
		Hours: Hours{
			Unanswered:    hourList(unanswered),
			LowEngagement: hourList(low),
			Successful:    hourList(ok),
		},
	}, nil
}

func hourList(set [24]bool) []int {
	out := []int{}
	for h, present := range set {
		if present {
			out = append(out, h)
		}
	}
	return out
}
