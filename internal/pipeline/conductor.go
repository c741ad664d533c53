package pipeline

import (
	"context"
	"fmt"

	"github.com/echonexus/creo-core/internal/ledger"
)

// Conductor drives a fixed ordered list of stages over an input artifact,
// recording every lifecycle transition in the ledger. The stage list is set
// at construction time and is the run's data dependency order: each stage
// may assume all prior stages' writes are present. The conductor is the only
// writer of a run's event trail.
type Conductor struct {
	name   string
	stages []Stage
	led    ledger.Ledger
}

// NewConductor builds a conductor over an explicit stage order.
func NewConductor(name string, stages []Stage, led ledger.Ledger) *Conductor {
	return &Conductor{name: name, stages: stages, led: led}
}

// Name returns the pipeline name.
func (c *Conductor) Name() string { return c.name }

// Descriptors lists the configured stages in execution order.
func (c *Conductor) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.stages))
	for i, st := range c.stages {
		out[i] = Descriptor{Name: st.Name(), Ordinal: i}
	}
	return out
}

// Run executes every stage in order against a private clone of input.
// stage_started is appended before each stage, stage_completed or
// stage_failed after it; the run terminates with run_completed carrying the
// final artifact, or run_failed at the first failure. Failed runs never
// execute subsequent stages, and there is no retry. If the ledger itself
// becomes unreachable mid-run the run aborts with an error wrapping
// ledger.ErrUnavailable after a best-effort run_failed append.
func (c *Conductor) Run(ctx context.Context, correlationID string, input Artifact) (Artifact, error) {
	current := input.Clone()

	for i, st := range c.stages {
		err := c.led.Append(ledger.NewEvent(correlationID, ledger.KindStageStarted, map[string]any{
			"stage":   st.Name(),
			"ordinal": i,
		}))
		if err != nil {
			return nil, c.abort(correlationID, st.Name(), fmt.Errorf("record stage start: %w", err))
		}

		next, err := st.Apply(ctx, current)
		if err != nil {
			sf := asStageFailure(st.Name(), err)
			c.led.Append(ledger.NewEvent(correlationID, ledger.KindStageFailed, map[string]any{
				"stage": sf.Stage,
				"cause": sf.Cause.Error(),
			}))
			c.led.Append(ledger.NewEvent(correlationID, ledger.KindRunFailed, map[string]any{
				"stage": sf.Stage,
				"cause": sf.Cause.Error(),
			}))
			return nil, &RunFailure{CorrelationID: correlationID, Stage: sf.Stage, Cause: sf.Cause}
		}
		current = next

		err = c.led.Append(ledger.NewEvent(correlationID, ledger.KindStageCompleted, map[string]any{
			"stage": st.Name(),
		}))
		if err != nil {
			return nil, c.abort(correlationID, st.Name(), fmt.Errorf("record stage completion: %w", err))
		}
	}

	// The appended artifact is a private clone: events are immutable, so a
	// caller mutating the returned artifact must not rewrite the trail.
	err := c.led.Append(ledger.NewEvent(correlationID, ledger.KindRunCompleted, map[string]any{
		"artifact": map[string]any(current.Clone()),
	}))
	if err != nil {
		return nil, c.abort(correlationID, "", fmt.Errorf("record run completion: %w", err))
	}
	return current, nil
}

// abort wraps a ledger-level failure as the run's terminal outcome. The
// run_failed append is best-effort: if the ledger is down the trail simply
// stops growing and pollers keep seeing the last durable state.
func (c *Conductor) abort(correlationID, stage string, cause error) error {
	c.led.Append(ledger.NewEvent(correlationID, ledger.KindRunFailed, map[string]any{
		"stage": stage,
		"cause": cause.Error(),
	}))
	return &RunFailure{CorrelationID: correlationID, Stage: stage, Cause: cause}
}
