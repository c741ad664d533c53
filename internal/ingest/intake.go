package ingest

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/echonexus/creo-core/internal/ledger"
	"github.com/echonexus/creo-core/internal/pipeline"
)

// SanitizeFilename strips any directory components and squashes parent
// traversal sequences so uploads can never escape the staging directory.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(filepath.Base(name), "..", "_"))
}

// Submitter schedules a document pipeline run and exposes its event trail.
// Satisfied by *gateway.Gateway.
type Submitter interface {
	Submit(pipelineName string, payload pipeline.Artifact) (string, error)
	History(correlationID string) ([]ledger.Event, error)
}

// Intake stages uploaded documents and submits them through the document
// pipeline. Failed runs leave their staged file behind; the intake's done
// hook moves it to quarantine.
type Intake struct {
	dirs     Dirs
	gw       Submitter
	pipeline string
}

// NewIntake creates an intake that submits to the named pipeline.
func NewIntake(dirs Dirs, gw Submitter, pipelineName string) *Intake {
	return &Intake{
		dirs:     dirs,
		gw:       gw,
		pipeline: pipelineName,
	}
}

// Ingest saves the upload under a fresh name in staging and submits a
// document pipeline run over it. It returns the run's correlation id and
// the sanitized filename.
func (in *Intake) Ingest(r io.Reader, filename, documentType string, tags []string) (correlationID, sanitized string, err error) {
	sanitized = SanitizeFilename(filename)
	if sanitized == "" || sanitized == "." {
		return "", "", fmt.Errorf("invalid filename %q", filename)
	}
	staged := filepath.Join(in.dirs.DirFor(ClassStaging), uuid.New().String()+"_"+sanitized)

	f, err := os.Create(staged)
	if err != nil {
		return "", "", fmt.Errorf("stage upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(staged)
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(staged)
		return "", "", fmt.Errorf("write upload: %w", err)
	}

	payload := pipeline.Artifact{
		KeyFilename:   sanitized,
		KeyStagedPath: staged,
	}
	if documentType != "" {
		payload[KeyDocumentType] = documentType
	}
	if len(tags) > 0 {
		payload[pipeline.KeyTags] = tags
	}

	correlationID, err = in.gw.Submit(in.pipeline, payload)
	if err != nil {
		os.Remove(staged)
		return "", "", err
	}
	return correlationID, sanitized, nil
}

// Done is the gateway completion hook for document runs. Runs that failed
// before the archive stage still hold their file in staging; it is moved to
// quarantine so nothing lingers there. The staged path is recovered from
// the run's submitted event, which is durable before the run is scheduled,
// so the hook works on any schedule — including a run that finishes before
// Ingest itself returns.
func (in *Intake) Done(correlationID string, _ pipeline.Artifact, runErr error) {
	if runErr == nil {
		return
	}

	staged := in.stagedPath(correlationID)
	if staged == "" {
		log.Printf("[ingest] %s: no staged path in trail, skipping quarantine", correlationID)
		return
	}
	if _, err := os.Stat(staged); err != nil {
		return // already archived or quarantined by a stage
	}
	dest := filepath.Join(in.dirs.DirFor(ClassQuarantine), filepath.Base(staged))
	if err := os.Rename(staged, dest); err != nil {
		log.Printf("[ingest] %s: quarantine failed: %v", correlationID, err)
		return
	}
	log.Printf("[ingest] %s: quarantined %s", correlationID, filepath.Base(staged))
}

// stagedPath reads the staged file location back out of the run's
// submission payload.
func (in *Intake) stagedPath(correlationID string) string {
	events, err := in.gw.History(correlationID)
	if err != nil {
		log.Printf("[ingest] %s: trail unavailable: %v", correlationID, err)
		return ""
	}
	for _, evt := range events {
		if evt.Kind != ledger.KindSubmitted {
			continue
		}
		payload, _ := evt.Payload["payload"].(map[string]any)
		staged, _ := payload[KeyStagedPath].(string)
		return staged
	}
	return ""
}
