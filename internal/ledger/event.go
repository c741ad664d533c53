package ledger

import "time"

// Kind identifies the kind of event.
type Kind string

const (
	// Run lifecycle events written by the gateway and conductor.
	KindSubmitted      Kind = "submitted"
	KindStageStarted   Kind = "stage_started"
	KindStageCompleted Kind = "stage_completed"
	KindStageFailed    Kind = "stage_failed"
	KindRunCompleted   Kind = "run_completed"
	KindRunFailed      Kind = "run_failed"

	// Chat channel events (outside the run lifecycle; status folding
	// ignores them).
	KindChatMessage    Kind = "chat_message"
	KindChatResponse   Kind = "chat_response"
	KindChatDisconnect Kind = "chat_disconnect"
	KindChatError      Kind = "chat_error"
)

// Event is a single immutable record in the ledger. Ordering within a
// correlation id is the ledger's append order.
type Event struct {
	CorrelationID string         `json:"correlation_id"`
	Kind          Kind           `json:"kind"`
	Timestamp     time.Time      `json:"timestamp"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(correlationID string, kind Kind, payload map[string]any) Event {
	return Event{
		CorrelationID: correlationID,
		Kind:          kind,
		Timestamp:     time.Now(),
		Payload:       payload,
	}
}
