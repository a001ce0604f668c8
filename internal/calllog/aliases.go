package calllog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field names a canonical call-log column.
type Field string

const (
	FieldPhone    Field = "phone"
	FieldCallTime Field = "call_time"
	FieldDuration Field = "duration"
)

// Aliases lists, per canonical field, the header names accepted for it.
// Lookup is case-insensitive and the first alias present in the header wins.
type Aliases struct {
	Phone    []string `yaml:"phone"`
	CallTime []string `yaml:"call_time"`
	Duration []string `yaml:"duration"`
}

// DefaultAliases returns the built-in alias table.
func DefaultAliases() Aliases {
	return Aliases{
		Phone:    []string{"phone", "phone number", "customer number", "телефон", "номер клиента", "номер телефона"},
		CallTime: []string{"call_time", "time", "call time", "время", "время звонка", "звонок"},
		Duration: []string{"duration", "length", "seconds", "длительность", "продолжительность", "сек", "секунды"},
	}
}

// Merge returns a copy of a with the aliases of other appended after its own.
func (a Aliases) Merge(other Aliases) Aliases {
	return Aliases{
		Phone:    appendUnique(a.Phone, other.Phone),
		CallTime: appendUnique(a.CallTime, other.CallTime),
		Duration: appendUnique(a.Duration, other.Duration),
	}
}

// LoadAliases reads extra aliases from a YAML file and merges them into the defaults.
func LoadAliases(path string) (Aliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Aliases{}, fmt.Errorf("read aliases file: %w", err)
	}
	var extra Aliases
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return Aliases{}, fmt.Errorf("parse aliases file: %w", err)
	}
	return DefaultAliases().Merge(extra), nil
}

var spaceRE = regexp.MustCompile(`\s+`)

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return spaceRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

type columnIndex struct {
	phone, callTime, duration int
}

// resolve maps each canonical field onto a header position.
func (a Aliases) resolve(header []string) (Columns, columnIndex, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	find := func(field Field, candidates []string) (int, error) {
		for _, c := range candidates {
			if i, ok := positions[normalizeHeader(c)]; ok {
				return i, nil
			}
		}
		return -1, &MissingColumnError{Field: field}
	}

	var idx columnIndex
	var err error
	if idx.phone, err = find(FieldPhone, a.Phone); err != nil {
		return Columns{}, idx, err
	}
	if idx.callTime, err = find(FieldCallTime, a.CallTime); err != nil {
		return Columns{}, idx, err
	}
	if idx.duration, err = find(FieldDuration, a.Duration); err != nil {
		return Columns{}, idx, err
	}

	cols := Columns{
		Phone:    strings.TrimSpace(header[idx.phone]),
		CallTime: strings.TrimSpace(header[idx.callTime]),
		Duration: strings.TrimSpace(header[idx.duration]),
	}
	return cols, idx, nil
}

func appendUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			key := normalizeHeader(s)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
