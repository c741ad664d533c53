package stages

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/echonexus/creo-core/internal/pipeline"
)

// Submission payload keys accepted by the perceive stage.
const (
	KeyTextInput     = "text_input"
	KeyImageData     = "image_data"
	KeyAudioData     = "audio_data"
	KeySymbolicInput = "symbolic_input"
)

var motifClasses = []string{"symbolic", "emotive", "geometric", "archetypal", "narrative", "logical"}

var transformModes = []string{"stylistic", "modal", "conceptual", "syntactic"}

// Perceive digests the submission payload into structured stimuli: a
// payload fingerprint, a description of every recognized input element, and
// the caller's context passed through untouched.
func Perceive() pipeline.Stage {
	return pipeline.NewStage("perceive", func(_ context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		out := a.Clone()
		out[pipeline.KeyInputDigest] = digest(a)

		perceived := []string{}
		if text := a.String(KeyTextInput); text != "" {
			perceived = append(perceived, "text: "+truncate(text, 50))
		}
		if a[KeyImageData] != nil {
			perceived = append(perceived, "image data detected")
		}
		if a[KeyAudioData] != nil {
			perceived = append(perceived, "audio data detected")
		}
		if sym := a[KeySymbolicInput]; sym != nil {
			perceived = append(perceived, fmt.Sprintf("symbolic: %v", sym))
		}
		out[pipeline.KeyPerceived] = perceived
		if out[pipeline.KeyContext] == nil {
			out[pipeline.KeyContext] = map[string]any{}
		}
		return out, nil
	})
}

// Seed picks a motif class with the per-artifact generator and forges the
// initial motif. The random choices are recorded in provenance so the run
// is reconstructible after the fact.
func Seed(src *Source) pipeline.Stage {
	return pipeline.NewStage("seed", func(_ context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		rng := src.rng(a)
		class := motifClasses[rng.Intn(len(motifClasses))]
		roll := 10000 + rng.Intn(90000)

		out := a.Clone()
		out[pipeline.KeyMotif] = fmt.Sprintf("%s_SEED::%d", strings.ToUpper(class), roll)
		out[pipeline.KeyMotifClass] = class
		ctx := out.Map(pipeline.KeyContext)
		out[pipeline.KeyMood] = stringOr(ctx["mood"], "neutral")
		out[pipeline.KeyTheme] = stringOr(ctx["theme"], "abstract")
		out[pipeline.KeyIteration] = 0
		out.AppendProvenance(map[string]any{
			"stage":       "seed",
			"motif_class": class,
			"roll":        roll,
		})
		return out, nil
	})
}

// MapPatterns derives resonance patterns and tags from the seeded motif.
func MapPatterns() pipeline.Stage {
	return pipeline.NewStage("map", func(_ context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		class := a.String(pipeline.KeyMotifClass)
		mood := a.String(pipeline.KeyMood)

		out := a.Clone()
		out[pipeline.KeyPatterns] = []string{
			"pattern::" + class + "_resonance",
			"pattern::context_alignment_" + mood,
		}
		out[pipeline.KeyTags] = []string{class, mood, a.String(pipeline.KeyTheme)}
		return out, nil
	})
}

// Transform rewrites the motif into an alternate form. The mode cycles
// through the transform modes by iteration count, so repeated applications
// under an amplifier walk the full mode set deterministically.
func Transform() pipeline.Stage {
	return pipeline.NewStage("transform", func(_ context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		iteration := a.Int(pipeline.KeyIteration)
		mode := transformModes[iteration%len(transformModes)]

		out := a.Clone()
		out[pipeline.KeyMotif] = fmt.Sprintf("[%s::transformed::%s]", strings.ToUpper(mode), a.String(pipeline.KeyMotif))
		out["transformation_applied"] = mode
		out[pipeline.KeyIteration] = iteration + 1
		return out, nil
	})
}

// Amplify wraps the transform stage in a bounded amplifier.
func Amplify(depth int) pipeline.Stage {
	return pipeline.NewAmplifier("amplify", Transform(), depth)
}

// Render declares the output kind and writes the presentable title and
// summary. Motifs that passed through a transform of a symbolic seed render
// as symbolic representations; everything else renders as a text summary.
func Render() pipeline.Stage {
	return pipeline.NewStage("render", func(_ context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		motif := a.String(pipeline.KeyMotif)
		kind := "text_summary"
		if strings.Contains(strings.ToUpper(motif), "TRANSFORMED::SYMBOLIC") {
			kind = "symbolic_representation"
		}

		out := a.Clone()
		out[pipeline.KeyOutputKind] = kind
		out[pipeline.KeyTitle] = fmt.Sprintf("%s motif on %s", a.String(pipeline.KeyMotifClass), a.String(pipeline.KeyTheme))
		out[pipeline.KeySummary] = fmt.Sprintf("rendered %s after %d amplification passes: %s",
			kind, a.Int(pipeline.KeyIteration), motif)
		return out, nil
	})
}

// Creative assembles the default creative pipeline in its fixed order.
func Creative(src *Source, depth int) []pipeline.Stage {
	return []pipeline.Stage{
		Perceive(),
		Seed(src),
		MapPatterns(),
		Amplify(depth),
		Render(),
	}
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}

// truncate cuts s to at most max bytes on a rune boundary, so multi-byte
// input never yields an invalid UTF-8 fragment.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
