package gateway

import (
	"github.com/echonexus/creo-core/internal/ledger"
	"github.com/echonexus/creo-core/internal/pipeline"
)

// State is the derived lifecycle state of a run.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// RunStatus is the view derived by folding a correlation id's event trail.
// It is never stored, so it is always consistent with the ledger at read
// time. An empty trail reads as Pending: unknown and not-yet-started ids
// are indistinguishable by contract.
type RunStatus struct {
	State    State             `json:"state"`
	Stage    string            `json:"stage,omitempty"`
	Artifact pipeline.Artifact `json:"artifact,omitempty"`
	Cause    string            `json:"cause,omitempty"`
}

// Fold derives a RunStatus from an event trail, left to right. It is pure:
// repeated folding over the same trail yields identical results and never
// touches the ledger. Event kinds outside the run lifecycle are skipped.
//
// A trail ending in stage_failed with no terminal run_failed (the terminal
// append itself was lost) still folds to Failed: the stage outcome is
// already durable, so reporting Running would be false.
func Fold(events []ledger.Event) RunStatus {
	status := RunStatus{State: StatePending}
	for _, evt := range events {
		switch evt.Kind {
		case ledger.KindSubmitted:
			status = RunStatus{State: StatePending}
		case ledger.KindStageStarted:
			status = RunStatus{State: StateRunning, Stage: payloadString(evt, "stage")}
		case ledger.KindStageCompleted:
			// Still running; the most recent stage_started names the stage.
		case ledger.KindStageFailed, ledger.KindRunFailed:
			status = RunStatus{
				State: StateFailed,
				Stage: payloadString(evt, "stage"),
				Cause: payloadString(evt, "cause"),
			}
		case ledger.KindRunCompleted:
			status = RunStatus{State: StateCompleted, Artifact: foldArtifact(evt)}
		}
	}
	return status
}

func payloadString(evt ledger.Event, key string) string {
	s, _ := evt.Payload[key].(string)
	return s
}

func foldArtifact(evt ledger.Event) pipeline.Artifact {
	switch art := evt.Payload["artifact"].(type) {
	case map[string]any:
		return pipeline.Artifact(art)
	case pipeline.Artifact:
		return art
	}
	return nil
}
