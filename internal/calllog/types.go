package calllog

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date component.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := parseTimeOfDay(s)
	if !ok {
		return fmt.Errorf("invalid time of day %q", s)
	}
	*t = parsed
	return nil
}

// CallRecord is one observed call attempt.
type CallRecord struct {
	Phone    string    `json:"phone"`
	CallTime TimeOfDay `json:"call_time"`
	Duration int       `json:"duration"` // seconds, 0 means unanswered
}

// Columns holds the source header names that were resolved to each canonical field.
type Columns struct {
	Phone    string `json:"phone"`
	CallTime string `json:"call_time"`
	Duration string `json:"duration"`
}

// Table is the normalized content of one uploaded file. It is not mutated
// after Normalize returns; a new upload produces a new Table.
type Table struct {
	Records    []CallRecord
	Columns    Columns
	SourceRows int // data rows read before coercion
	LoadedAt   time.Time
}

// Len returns the number of records that survived coercion.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// Dropped returns how many source rows were discarded during coercion.
func (t *Table) Dropped() int {
	if t == nil {
		return 0
	}
	return t.SourceRows - len(t.Records)
}

// Preview returns up to n leading records.
func (t *Table) Preview(n int) []CallRecord {
	if t == nil || n <= 0 {
		return nil
	}
	if n > len(t.Records) {
		n = len(t.Records)
	}
	out := make([]CallRecord, n)
	copy(out, t.Records[:n])
	return out
}
