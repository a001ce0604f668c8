package calllog

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"1/2/06 15:04",
	"1/2/06 3:04 PM",
}

// parseTimeOfDay accepts clock strings, date-times (date discarded) and
// spreadsheet day fractions in [0,1).
func parseTimeOfDay(raw string) (TimeOfDay, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TimeOfDay{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, true
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f >= 1 {
		return TimeOfDay{}, false
	}
	secs := int(math.Round(f * 86400))
	if secs >= 86400 {
		secs = 86399
	}
	return TimeOfDay{Hour: secs / 3600, Minute: secs % 3600 / 60, Second: secs % 60}, true
}

// parseDuration accepts a non-negative number of seconds; a fractional part is truncated.
func parseDuration(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return int(f), true
}

var floatPhoneRE = regexp.MustCompile(`^(\d+)\.0+$`)

// cleanPhone trims the value and undoes the "79990000000.0" rendering
// spreadsheets apply to numeric cells.
func cleanPhone(raw string) string {
	s := strings.TrimSpace(raw)
	if m := floatPhoneRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
