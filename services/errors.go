package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrQuotaExceeded     = errors.New("daily suggestion quota exceeded")
	ErrTruncatedResponse = errors.New("model response was truncated")
	ErrMalformedResponse = errors.New("model response could not be parsed")
	ErrNoValidOutfits    = errors.New("no valid outfits in model response")
)

type InsufficientInventoryError struct {
	ItemCount int
	MinItems  int
	Missing   []string
}

func (e *InsufficientInventoryError) Error() string {
	var parts []string
	if e.ItemCount < e.MinItems {
		parts = append(parts, fmt.Sprintf("need at least %d items, have %d", e.MinItems, e.ItemCount))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	return "insufficient inventory: " + strings.Join(parts, "; ")
}

type ReasoningFailure string

const (
	ReasoningAuth      ReasoningFailure = "auth"
	ReasoningTransport ReasoningFailure = "transport"
	ReasoningUpstream  ReasoningFailure = "upstream"
)

// ReasoningError is a failure of the reasoning capability itself, before any output is parsed.
type ReasoningError struct {
	Kind       ReasoningFailure
	StatusCode int
	Message    string
}

func (e *ReasoningError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reasoning %s failure (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("reasoning %s failure: %s", e.Kind, e.Message)
}

// GenerationError carries the provider's failure text for an image job.
type GenerationError struct {
	JobID   string
	Message string
}

func (e *GenerationError) Error() string {
	return e.Message
}

// MatchingError marks marketplace failures worth retrying (throttling, upstream 5xx).
type MatchingError struct {
	Cause error
}

func (e *MatchingError) Error() string {
	return "product matching failed: " + e.Cause.Error()
}

func (e *MatchingError) Unwrap() error {
	return e.Cause
}
