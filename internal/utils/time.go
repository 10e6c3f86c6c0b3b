package utils

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidStart is returned for start dates in neither accepted layout
var ErrInvalidStart = errors.New("expected 2006-01-02 or RFC3339")

var startLayouts = []string{time.RFC3339, time.DateOnly}

// ParseStart parses a series start given as a date or an RFC3339 timestamp
// and converts it to UTC.
func ParseStart(raw string) (time.Time, error) {
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q: %w", raw, ErrInvalidStart)
}
