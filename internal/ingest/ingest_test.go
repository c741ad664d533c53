package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonexus/creo-core/internal/dispatch"
	"github.com/echonexus/creo-core/internal/gateway"
	"github.com/echonexus/creo-core/internal/ledger"
	"github.com/echonexus/creo-core/internal/pipeline"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{"dir/evil..name.txt", "evil_name.txt"},
		{"  spaced.txt  ", "spaced.txt"},
		{"..", "_"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), "input %q", tc.in)
	}
}

func TestClassifyHeuristics(t *testing.T) {
	t.Parallel()

	cases := []struct {
		filename string
		tags     []string
		declared string
		want     string
	}{
		{"service_agreement.pdf", nil, "", ClassContract},
		{"scan.pdf", []string{"legal"}, "", ClassContract},
		{"invoice_2024.pdf", nil, "", ClassInvoice},
		{"scan.pdf", []string{"billing"}, "", ClassInvoice},
		{"quantum_paper.pdf", nil, "", ClassResearchPaper},
		{"scan.pdf", []string{"research"}, "", ClassResearchPaper},
		{"scan.pdf", nil, ClassInvoice, ClassInvoice},
		{"mystery.bin", nil, "", ClassUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classify(tc.filename, tc.tags, tc.declared),
			"filename=%q tags=%v declared=%q", tc.filename, tc.tags, tc.declared)
	}
}

func TestPlanSelectsModuleChainPerClass(t *testing.T) {
	t.Parallel()

	out, err := Plan().Apply(context.Background(), pipeline.Artifact{KeyDocClass: ClassContract})
	require.NoError(t, err)
	assert.Equal(t, classModules[ClassContract], out.StringSlice(KeyModules))

	out, err = Plan().Apply(context.Background(), pipeline.Artifact{KeyDocClass: ClassUnknown})
	require.NoError(t, err)
	assert.Equal(t, defaultModules, out.StringSlice(KeyModules))
}

func TestExecuteRecordsModuleProvenance(t *testing.T) {
	t.Parallel()

	out, err := Execute(dispatch.New()).Apply(context.Background(), pipeline.Artifact{
		KeyModules: []string{"general_content_indexing", "topic_modeling_discovery"},
	})
	require.NoError(t, err)

	trail := out.Provenance()
	require.Len(t, trail, 2)
	assert.Equal(t, "general_content_indexing", trail[0]["module"])
	assert.Equal(t, "topic_modeling_discovery", trail[1]["module"])
}

func newTestIntake(t *testing.T, d *dispatch.Dispatcher) (*Intake, Dirs, *gateway.Gateway) {
	t.Helper()
	dirs := DefaultDirs(t.TempDir())
	require.NoError(t, dirs.Bootstrap())

	led := ledger.NewMemory()
	gw := gateway.New(led, 0)
	in := NewIntake(dirs, gw, "document")
	gw.Register("document", pipeline.NewConductor("document", DocumentStages(d, dirs), led), in.Done)
	return in, dirs, gw
}

func TestIngestArchivesIntoClassDirectory(t *testing.T) {
	t.Parallel()

	in, dirs, gw := newTestIntake(t, dispatch.New())
	id, sanitized, err := in.Ingest(strings.NewReader("agreement body"), "service_agreement.pdf", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "service_agreement.pdf", sanitized)

	require.Eventually(t, func() bool {
		status, err := gw.Status(id)
		return err == nil && status.State == gateway.StateCompleted
	}, 5*time.Second, 10*time.Millisecond)

	status, err := gw.Status(id)
	require.NoError(t, err)
	assert.Equal(t, ClassContract, status.Artifact.String(KeyDocClass))

	archived := status.Artifact.String(KeyArchivedPath)
	require.NotEmpty(t, archived)
	assert.Equal(t, dirs[ClassContract], filepath.Dir(archived))
	data, err := os.ReadFile(archived)
	require.NoError(t, err)
	assert.Equal(t, "agreement body", string(data))

	// Nothing lingers in staging.
	entries, err := os.ReadDir(dirs[ClassStaging])
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestQuarantinesOnRunFailure(t *testing.T) {
	t.Parallel()

	d := dispatch.New()
	d.Register(dispatch.TaskDocumentSubtask, func(_ context.Context, _ map[string]any) (string, error) {
		return "", errors.New("module exploded")
	})

	in, dirs, gw := newTestIntake(t, d)
	id, _, err := in.Ingest(strings.NewReader("bad doc"), "invoice_2024.pdf", "", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := gw.Status(id)
		return err == nil && status.State == gateway.StateFailed
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(dirs[ClassQuarantine])
		return err == nil && len(entries) == 1
	}, 5*time.Second, 10*time.Millisecond, "failed upload must be quarantined")

	entries, err := os.ReadDir(dirs[ClassStaging])
	require.NoError(t, err)
	assert.Empty(t, entries)

	status, err := gw.Status(id)
	require.NoError(t, err)
	assert.Equal(t, "execute", status.Stage)
}

// eagerFailSubmitter reaches the run's terminal state and fires the done
// hook before Submit even returns — the fastest schedule the gateway's
// background goroutine can legally produce.
type eagerFailSubmitter struct {
	led  *ledger.Memory
	done func(correlationID string, art pipeline.Artifact, err error)
}

func (s *eagerFailSubmitter) Submit(name string, payload pipeline.Artifact) (string, error) {
	id := "fast-fail-run"
	s.led.Append(ledger.NewEvent(id, ledger.KindSubmitted, map[string]any{
		"pipeline": name,
		"payload":  map[string]any(payload),
	}))
	s.done(id, nil, errors.New("module exploded"))
	return id, nil
}

func (s *eagerFailSubmitter) History(id string) ([]ledger.Event, error) {
	return s.led.Query(id)
}

func TestIngestQuarantinesWhenRunFinishesBeforeIngestReturns(t *testing.T) {
	t.Parallel()

	dirs := DefaultDirs(t.TempDir())
	require.NoError(t, dirs.Bootstrap())

	sub := &eagerFailSubmitter{led: ledger.NewMemory()}
	in := NewIntake(dirs, sub, "document")
	sub.done = in.Done

	_, _, err := in.Ingest(strings.NewReader("bad doc"), "invoice_2024.pdf", "", nil)
	require.NoError(t, err)

	quarantined, err := os.ReadDir(dirs[ClassQuarantine])
	require.NoError(t, err)
	require.Len(t, quarantined, 1, "upload of a run that failed before Ingest returned must be quarantined")
	assert.True(t, strings.HasSuffix(quarantined[0].Name(), "_invoice_2024.pdf"))

	staging, err := os.ReadDir(dirs[ClassStaging])
	require.NoError(t, err)
	assert.Empty(t, staging)
}

func TestDirForFallsBackToQuarantine(t *testing.T) {
	t.Parallel()

	dirs := DefaultDirs("base")
	assert.Equal(t, dirs[ClassQuarantine], dirs.DirFor(ClassUnknown))
	assert.Equal(t, dirs[ClassContract], dirs.DirFor(ClassContract))
}
