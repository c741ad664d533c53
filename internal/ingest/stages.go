package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/echonexus/creo-core/internal/dispatch"
	"github.com/echonexus/creo-core/internal/pipeline"
)

// Artifact keys used by the document pipeline.
const (
	KeyFilename     = "filename"
	KeyStagedPath   = "staged_path"
	KeyDocumentType = "document_type"
	KeyDocClass     = "doc_class"
	KeyModules      = "modules"
	KeyArchivedPath = "archived_path"
)

var classModules = map[string][]string{
	ClassContract: {
		"deep_ocr_segmentation",
		"semantic_clause_extraction",
		"entity_resolution_graph_update",
		"predictive_risk_assessment_model",
	},
}

var defaultModules = []string{"general_content_indexing", "topic_modeling_discovery"}

// Classify infers the document class from the filename, the caller's tags,
// and an optional explicit document_type hint.
func Classify() pipeline.Stage {
	return pipeline.NewStage("classify", func(_ context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		out := a.Clone()
		out[KeyDocClass] = classify(
			a.String(KeyFilename),
			a.StringSlice(pipeline.KeyTags),
			a.String(KeyDocumentType),
		)
		return out, nil
	})
}

func classify(filename string, tags []string, declared string) string {
	if _, ok := classModules[declared]; ok || declared == ClassInvoice || declared == ClassResearchPaper {
		return declared
	}
	name := strings.ToLower(filename)
	joined := strings.ToLower(strings.Join(tags, " "))
	switch {
	case strings.Contains(name, "contract"), strings.Contains(name, "agreement"), strings.Contains(joined, "legal"):
		return ClassContract
	case strings.Contains(name, "invoice"), strings.Contains(joined, "billing"):
		return ClassInvoice
	case strings.Contains(name, "paper"), strings.Contains(joined, "research"):
		return ClassResearchPaper
	}
	return ClassUnknown
}

// Plan selects the processing module chain for the inferred class.
func Plan() pipeline.Stage {
	return pipeline.NewStage("plan", func(_ context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		modules, ok := classModules[a.String(KeyDocClass)]
		if !ok {
			modules = defaultModules
		}
		out := a.Clone()
		out[KeyModules] = append([]string(nil), modules...)
		return out, nil
	})
}

// Execute dispatches every planned module to the document capability core,
// recording each module's response in provenance.
func Execute(d *dispatch.Dispatcher) pipeline.Stage {
	return pipeline.NewStage("execute", func(ctx context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		out := a.Clone()
		for _, module := range out.StringSlice(KeyModules) {
			resp, err := d.Dispatch(ctx, dispatch.TaskDocumentSubtask, map[string]any{"module": module})
			if err != nil {
				return nil, fmt.Errorf("module %s: %w", module, err)
			}
			out.AppendProvenance(map[string]any{
				"stage":    "execute",
				"module":   module,
				"response": resp,
			})
		}
		return out, nil
	})
}

// Archive moves the staged file into its class directory.
func Archive(dirs Dirs) pipeline.Stage {
	return pipeline.NewStage("archive", func(_ context.Context, a pipeline.Artifact) (pipeline.Artifact, error) {
		staged := a.String(KeyStagedPath)
		dest := filepath.Join(dirs.DirFor(a.String(KeyDocClass)), filepath.Base(staged))
		if err := os.Rename(staged, dest); err != nil {
			return nil, fmt.Errorf("archive %s: %w", filepath.Base(staged), err)
		}
		out := a.Clone()
		out[KeyArchivedPath] = dest
		return out, nil
	})
}

// DocumentStages assembles the document pipeline in its fixed order.
func DocumentStages(d *dispatch.Dispatcher, dirs Dirs) []pipeline.Stage {
	return []pipeline.Stage{
		Classify(),
		Plan(),
		Execute(d),
		Archive(dirs),
	}
}
