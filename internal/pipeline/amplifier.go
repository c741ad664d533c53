package pipeline

import "context"

// Amplifier is a bounded recursive stage: it re-applies an inner stage up to
// a fixed depth, retaining every intermediate form in the artifact's
// provenance. Depth zero is an identity stage, not an error.
type Amplifier struct {
	name  string
	inner Stage
	depth int
}

// NewAmplifier wraps inner so it runs depth times per application.
func NewAmplifier(name string, inner Stage, depth int) *Amplifier {
	return &Amplifier{name: name, inner: inner, depth: depth}
}

func (a *Amplifier) Name() string { return a.name }

// Depth reports the configured iteration bound.
func (a *Amplifier) Depth() int { return a.depth }

// Apply runs the inner stage depth times. The first inner failure aborts the
// loop and propagates immediately — partial amplification is never reported
// as success. Each successful iteration appends a provenance entry holding
// that iteration's output form.
func (a *Amplifier) Apply(ctx context.Context, art Artifact) (Artifact, error) {
	if a.depth <= 0 {
		return art, nil
	}
	current := art
	for i := 0; i < a.depth; i++ {
		next, err := a.inner.Apply(ctx, current)
		if err != nil {
			return nil, asStageFailure(a.inner.Name(), err)
		}
		next.AppendProvenance(map[string]any{
			"stage":     a.inner.Name(),
			"iteration": i + 1,
			"form":      intermediateForm(next),
		})
		current = next
	}
	return current, nil
}

// intermediateForm snapshots an artifact for the provenance trail, dropping
// the provenance list itself so entries don't nest recursively.
func intermediateForm(a Artifact) map[string]any {
	form := a.Clone()
	delete(form, KeyProvenance)
	return map[string]any(form)
}
