package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"
)

type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeRetry
	OutcomeTerminal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeRetry:
		return "retry"
	default:
		return "terminal"
	}
}

// Result is what a worker decided about one attempt. The runner maps it onto asynq semantics.
type Result struct {
	Outcome Outcome
	Err     error
}

func Done() Result {
	return Result{Outcome: OutcomeDone}
}

func Retryable(err error) Result {
	return Result{Outcome: OutcomeRetry, Err: err}
}

func Terminal(err error) Result {
	return Result{Outcome: OutcomeTerminal, Err: err}
}

// AsTaskError converts the result for asynq: nil on success, the error for a retry,
// and the error wrapped with asynq.SkipRetry when no retry should happen.
func (r Result) AsTaskError() error {
	switch r.Outcome {
	case OutcomeDone:
		return nil
	case OutcomeRetry:
		if r.Err == nil {
			return fmt.Errorf("retry requested")
		}
		return r.Err
	default:
		if r.Err == nil {
			return asynq.SkipRetry
		}
		return fmt.Errorf("%v: %w", r.Err, asynq.SkipRetry)
	}
}
