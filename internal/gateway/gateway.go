package gateway

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/echonexus/creo-core/internal/ledger"
	"github.com/echonexus/creo-core/internal/pipeline"
)

// DoneFunc is invoked after a scheduled run reaches its terminal state. On
// success art is the final artifact; on failure err carries the RunFailure.
type DoneFunc func(correlationID string, art pipeline.Artifact, err error)

type registration struct {
	conductor *pipeline.Conductor
	done      DoneFunc
}

// Gateway accepts submissions, allocates correlation ids, schedules
// conductor runs on background goroutines, and derives run status from the
// ledger on demand. Submissions return before the run completes; there is
// no way to abort an in-flight run.
type Gateway struct {
	led ledger.Ledger
	sem chan struct{}

	mu        sync.RWMutex
	pipelines map[string]registration
}

// New creates a gateway over led. maxConcurrent caps simultaneously running
// conductors; zero means unbounded. The cap is acquired inside the
// scheduled goroutine so Submit never blocks and queued runs read as
// Pending.
func New(led ledger.Ledger, maxConcurrent int) *Gateway {
	g := &Gateway{led: led, pipelines: make(map[string]registration)}
	if maxConcurrent > 0 {
		g.sem = make(chan struct{}, maxConcurrent)
	}
	return g
}

// Register adds a named pipeline. done may be nil.
func (g *Gateway) Register(name string, c *pipeline.Conductor, done DoneFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pipelines[name] = registration{conductor: c, done: done}
}

// Pipelines returns the stage descriptors of every registered pipeline.
func (g *Gateway) Pipelines() map[string][]pipeline.Descriptor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string][]pipeline.Descriptor, len(g.pipelines))
	for name, reg := range g.pipelines {
		out[name] = reg.conductor.Descriptors()
	}
	return out
}

// Submit allocates a fresh correlation id, records the submission, and
// schedules the named pipeline's run in the background. It returns the id
// immediately; progress is observed through Status. Submit fails fast when
// the pipeline is unknown or the submission event cannot be recorded.
func (g *Gateway) Submit(pipelineName string, payload pipeline.Artifact) (string, error) {
	g.mu.RLock()
	reg, ok := g.pipelines[pipelineName]
	g.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown pipeline: %s", pipelineName)
	}

	correlationID := uuid.New().String()
	err := g.led.Append(ledger.NewEvent(correlationID, ledger.KindSubmitted, map[string]any{
		"pipeline": pipelineName,
		"payload":  map[string]any(payload),
	}))
	if err != nil {
		return "", fmt.Errorf("record submission: %w", err)
	}

	log.Printf("[gateway] %s: submitted to pipeline %s", correlationID, pipelineName)

	go func() {
		if g.sem != nil {
			g.sem <- struct{}{}
			defer func() { <-g.sem }()
		}

		art, err := reg.conductor.Run(context.Background(), correlationID, payload)
		if err != nil {
			log.Printf("[gateway] %s: run failed: %v", correlationID, err)
		} else {
			log.Printf("[gateway] %s: run completed", correlationID)
		}
		if reg.done != nil {
			reg.done(correlationID, art, err)
		}
	}()

	return correlationID, nil
}

// Status folds the correlation id's event trail into a derived status. The
// fold is side-effect-free; polling never mutates the ledger. Unknown ids
// report Pending rather than an error.
func (g *Gateway) Status(correlationID string) (RunStatus, error) {
	events, err := g.led.Query(correlationID)
	if err != nil {
		return RunStatus{}, fmt.Errorf("query trail: %w", err)
	}
	return Fold(events), nil
}

// History returns the raw event trail for a correlation id.
func (g *Gateway) History(correlationID string) ([]ledger.Event, error) {
	return g.led.Query(correlationID)
}
