package calllog

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// Normalizer turns uploaded spreadsheets into canonical call tables.
type Normalizer struct {
	aliases Aliases
	logger  *slog.Logger
	now     func() time.Time
}

func NewNormalizer(aliases Aliases, logger *slog.Logger) *Normalizer {
	return &Normalizer{aliases: aliases, logger: logger, now: time.Now}
}

// Normalize reads the named file, resolves its columns and coerces every row.
// Rows whose call time or duration cannot be parsed are dropped. A file whose
// rows all fail coercion yields an empty table, not an error.
func (n *Normalizer) Normalize(name string, r io.Reader) (*Table, error) {
	rows, err := readRows(name, r)
	if err != nil {
		return nil, err
	}

	header, body := splitHeader(rows)
	if header == nil {
		return nil, ErrEmptyFile
	}

	cols, idx, err := n.aliases.resolve(header)
	if err != nil {
		return nil, err
	}

	records := make([]CallRecord, 0, len(body))
	sourceRows := 0
	for _, row := range body {
		if blankRow(row) {
			continue
		}
		sourceRows++

		callTime, ok := parseTimeOfDay(cell(row, idx.callTime))
		if !ok {
			continue
		}
		duration, ok := parseDuration(cell(row, idx.duration))
		if !ok {
			continue
		}
		records = append(records, CallRecord{
			Phone:    cleanPhone(cell(row, idx.phone)),
			CallTime: callTime,
			Duration: duration,
		})
	}

	table := &Table{
		Records:    records,
		Columns:    cols,
		SourceRows: sourceRows,
		LoadedAt:   n.now(),
	}

	n.logger.Info("call log normalized",
		"file", name,
		"rows", sourceRows,
		"kept", table.Len(),
		"dropped", table.Dropped(),
		"phone_col", cols.Phone,
		"time_col", cols.CallTime,
		"duration_col", cols.Duration,
	)
	return table, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
