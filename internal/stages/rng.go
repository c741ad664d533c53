package stages

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/echonexus/creo-core/internal/pipeline"
)

// Source derives per-artifact random generators from a fixed service seed.
// Each Apply gets its own *rand.Rand keyed by seed and input digest, so
// concurrent runs never share generator state and a run's random choices
// are reproducible from its recorded provenance.
type Source struct {
	seed int64
}

// NewSource creates a source around a fixed seed.
func NewSource(seed int64) *Source {
	return &Source{seed: seed}
}

// Seed returns the configured service seed.
func (s *Source) Seed() int64 { return s.seed }

func (s *Source) rng(a pipeline.Artifact) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(a.String(pipeline.KeyInputDigest)))
	return rand.New(rand.NewSource(s.seed ^ int64(h.Sum64())))
}

// digest fingerprints the submission payload. Go's map marshalling sorts
// keys, so equal payloads always produce equal digests.
func digest(a pipeline.Artifact) string {
	data, err := json.Marshal(map[string]any(a))
	if err != nil {
		data = []byte(fmt.Sprintf("%v", map[string]any(a)))
	}
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%016x", h.Sum64())
}
