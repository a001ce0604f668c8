package calllog

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyFile         = errors.New("file has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// MissingColumnError reports a canonical field that no header alias matched.
type MissingColumnError struct {
	Field Field
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column: %s", e.Field)
}
