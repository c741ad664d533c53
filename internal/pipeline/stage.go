package pipeline

import "context"

// Stage is one ordered transformation step in a pipeline. Apply produces a
// new artifact and must not mutate the input; failures are reported as plain
// errors, which the conductor wraps into a StageFailure. Stages never write
// to the ledger — lifecycle recording belongs to the conductor alone.
type Stage interface {
	Name() string
	Apply(ctx context.Context, a Artifact) (Artifact, error)
}

// StageFunc is the function form of a stage body.
type StageFunc func(ctx context.Context, a Artifact) (Artifact, error)

type funcStage struct {
	name string
	fn   StageFunc
}

// NewStage wraps a function as a named Stage.
func NewStage(name string, fn StageFunc) Stage {
	return funcStage{name: name, fn: fn}
}

func (s funcStage) Name() string { return s.name }

func (s funcStage) Apply(ctx context.Context, a Artifact) (Artifact, error) {
	return s.fn(ctx, a)
}

// Descriptor identifies a stage's position within a configured pipeline.
type Descriptor struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}
