package pipeline

import (
	"errors"
	"fmt"
)

// StageFailure reports that a named stage could not complete. It terminates
// the run but is never process-fatal: the conductor records it and stops.
type StageFailure struct {
	Stage string
	Cause error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Cause)
}

func (e *StageFailure) Unwrap() error { return e.Cause }

// RunFailure is the terminal outcome of a failed conductor run. It carries
// the stage that failed and the underlying cause.
type RunFailure struct {
	CorrelationID string
	Stage         string
	Cause         error
}

func (e *RunFailure) Error() string {
	return fmt.Sprintf("run %s failed at stage %s: %v", e.CorrelationID, e.Stage, e.Cause)
}

func (e *RunFailure) Unwrap() error { return e.Cause }

// asStageFailure normalizes a stage error: errors that already are (or wrap)
// a StageFailure keep their original stage name, anything else is attributed
// to the stage that returned it.
func asStageFailure(stage string, err error) *StageFailure {
	var sf *StageFailure
	if errors.As(err, &sf) {
		return sf
	}
	return &StageFailure{Stage: stage, Cause: err}
}
