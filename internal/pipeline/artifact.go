package pipeline

// Artifact key constants — single source of truth for the names stages read
// and write. Stages communicate exclusively through these keys.
const (
	KeyInputDigest = "input_digest"
	KeyPerceived   = "perceived"
	KeyContext     = "context"
	KeyMotif       = "motif"
	KeyMotifClass  = "motif_class"
	KeyMood        = "mood"
	KeyTheme       = "theme"
	KeyIteration   = "iteration"
	KeyPatterns    = "patterns"
	KeyTags        = "tags"
	KeyProvenance  = "provenance"
	KeyOutputKind  = "output_kind"
	KeyTitle       = "title"
	KeySummary     = "summary"
)

// Artifact is the evolving payload passed between stages. Each run owns a
// private instance; stages clone before writing so earlier forms stay intact.
// Values are restricted to JSON-representable types because artifacts travel
// through the ledger inside event payloads.
type Artifact map[string]any

// Clone returns a deep copy of the artifact. Nested maps and slices are
// copied so mutations of the clone never reach the original.
func (a Artifact) Clone() Artifact {
	if a == nil {
		return Artifact{}
	}
	out := make(Artifact, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case Artifact:
		return map[string]any(t.Clone())
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		s := make([]string, len(t))
		copy(s, t)
		return s
	case []map[string]any:
		s := make([]map[string]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e).(map[string]any)
		}
		return s
	default:
		return v
	}
}

// String returns the value under key as a string, or "" when absent or of a
// different type.
func (a Artifact) String(key string) string {
	s, _ := a[key].(string)
	return s
}

// Int returns the value under key as an int. JSON round-trips store numbers
// as float64, so both forms are accepted.
func (a Artifact) Int(key string) int {
	switch n := a[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// StringSlice returns the value under key as a []string, converting the
// []any form produced by JSON decoding.
func (a Artifact) StringSlice(key string) []string {
	switch s := a[key].(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// Map returns the value under key as a map, or an empty map when absent.
func (a Artifact) Map(key string) map[string]any {
	switch m := a[key].(type) {
	case map[string]any:
		return m
	case Artifact:
		return m
	}
	return map[string]any{}
}

// Provenance returns the accumulated provenance entries, normalizing the
// []any form produced by JSON decoding.
func (a Artifact) Provenance() []map[string]any {
	switch p := a[KeyProvenance].(type) {
	case []map[string]any:
		return p
	case []any:
		out := make([]map[string]any, 0, len(p))
		for _, e := range p {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// AppendProvenance records one entry at the end of the artifact's provenance
// list, creating the list when needed.
func (a Artifact) AppendProvenance(entry map[string]any) {
	a[KeyProvenance] = append(a.Provenance(), entry)
}
