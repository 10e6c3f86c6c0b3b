package synthetic

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFrequency is returned when a frequency label or offset code
	// has no profile.
	ErrUnsupportedFrequency = errors.New("unsupported frequency")
	// ErrMissingOption is returned when a required option key is absent.
	ErrMissingOption = errors.New("missing option")
	// ErrInvalidOption is returned when an option is present but out of range.
	ErrInvalidOption = errors.New("invalid option")
	// ErrInvalidLength is returned for non-positive series lengths.
	ErrInvalidLength = errors.New("invalid series length")
)

func unsupportedFrequency(label string) error {
	return fmt.Errorf("%w: %q", ErrUnsupportedFrequency, label)
}

func missingOption(key string) error {
	return fmt.Errorf("%w: %s", ErrMissingOption, key)
}
