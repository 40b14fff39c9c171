package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNoKeywords is the validation error for input with no keywords after trimming.
	ErrNoKeywords = errors.New("please enter at least one keyword")
	// ErrInvalidWindow is returned for a window outside 6, 12, 24, 60 months.
	ErrInvalidWindow = errors.New("invalid window; use 6, 12, 24 or 60 months")
	// ErrNoResults means no result set is available (none requested yet, or one is in flight).
	ErrNoResults = errors.New("no results available")
	// ErrEmptyDataset means a result set exists but no keyword has plottable history.
	ErrEmptyDataset = errors.New("no trend data to display")
	// ErrSuperseded means a newer analysis request replaced the awaited one.
	ErrSuperseded = errors.New("analysis superseded by a newer request")
	// ErrUnknownKeyword means the keyword is not part of the current result set.
	ErrUnknownKeyword = errors.New("keyword not in current results")
)

// TransportError reports a failed analysis request: network failure, timeout, or non-2xx status.
// StatusCode is 0 when no response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("analysis request failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("analysis request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
