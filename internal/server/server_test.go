package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echonexus/creo-core/internal/dispatch"
	"github.com/echonexus/creo-core/internal/gateway"
	"github.com/echonexus/creo-core/internal/ingest"
	"github.com/echonexus/creo-core/internal/ledger"
	"github.com/echonexus/creo-core/internal/pipeline"
	"github.com/echonexus/creo-core/internal/stages"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	led := ledger.NewMemory()
	bus := ledger.NewBus()
	broadcast := ledger.Broadcast(led, bus)

	dispatcher := dispatch.New()
	gw := gateway.New(broadcast, 0)

	src := stages.NewSource(42)
	gw.Register(PipelineCreative, pipeline.NewConductor(PipelineCreative, stages.Creative(src, 3), broadcast), nil)

	dirs := ingest.DefaultDirs(t.TempDir())
	require.NoError(t, dirs.Bootstrap())
	in := ingest.NewIntake(dirs, gw, PipelineDocument)
	gw.Register(PipelineDocument, pipeline.NewConductor(PipelineDocument, ingest.DocumentStages(dispatcher, dirs), broadcast), in.Done)

	srv := New(gw, broadcast, bus, dispatcher, in)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func TestCreateAndPollCreativeStatus(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	body := `{"text_input": "hello", "context": {"mood": "calm"}}`
	resp, err := http.Post(ts.URL+"/api/create", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created struct {
		CorrelationID  string `json:"correlation_id"`
		StatusEndpoint string `json:"status_endpoint"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.CorrelationID)
	assert.Equal(t, "/api/creative_status/"+created.CorrelationID, created.StatusEndpoint)

	var status struct {
		CorrelationID string            `json:"correlation_id"`
		Status        gateway.RunStatus `json:"status"`
		Events        []ledger.Event    `json:"events"`
	}
	require.Eventually(t, func() bool {
		getJSON(t, ts.URL+created.StatusEndpoint, &status)
		return status.Status.State == gateway.StateCompleted
	}, 5*time.Second, 20*time.Millisecond)

	assert.NotEmpty(t, status.Status.Artifact.String(pipeline.KeyTitle))
	assert.NotEmpty(t, status.Status.Artifact.String(pipeline.KeySummary))
	assert.NotEmpty(t, status.Events)
	assert.Equal(t, ledger.KindSubmitted, status.Events[0].Kind)
}

func TestCreativeStatusUnknownIDIsPending(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	var status struct {
		Status gateway.RunStatus `json:"status"`
	}
	resp := getJSON(t, ts.URL+"/api/creative_status/never-issued", &status)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gateway.StatePending, status.Status.State)
}

func TestPipelineListsStageDescriptors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	var pipelines map[string][]pipeline.Descriptor
	getJSON(t, ts.URL+"/api/pipeline", &pipelines)

	creative := pipelines[PipelineCreative]
	require.Len(t, creative, 5)
	assert.Equal(t, pipeline.Descriptor{Name: "perceive", Ordinal: 0}, creative[0])
	assert.Equal(t, pipeline.Descriptor{Name: "render", Ordinal: 4}, creative[4])

	document := pipelines[PipelineDocument]
	require.Len(t, document, 4)
	assert.Equal(t, "classify", document[0].Name)
}

func TestIngestUploadIsAcceptedAndProcessed(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "../sneaky/service_agreement.pdf")
	require.NoError(t, err)
	fw.Write([]byte("agreement body"))
	require.NoError(t, mw.WriteField("tags", "legal, urgent"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/ingest", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created struct {
		CorrelationID  string `json:"correlation_id"`
		Filename       string `json:"filename"`
		StatusEndpoint string `json:"status_endpoint"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "service_agreement.pdf", created.Filename)

	var status struct {
		Status gateway.RunStatus `json:"status"`
	}
	require.Eventually(t, func() bool {
		getJSON(t, ts.URL+created.StatusEndpoint, &status)
		return status.Status.State == gateway.StateCompleted
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, ingest.ClassContract, status.Status.Artifact.String(ingest.KeyDocClass))
}

// busyLedger grows the trail on every read, standing in for a run that is
// appending events while the handler answers.
type busyLedger struct {
	mem *ledger.Memory
}

func (l *busyLedger) Append(evt ledger.Event) error { return l.mem.Append(evt) }

func (l *busyLedger) Query(correlationID string) ([]ledger.Event, error) {
	l.mem.Append(ledger.NewEvent(correlationID, ledger.KindStageStarted, map[string]any{"stage": "perceive"}))
	return l.mem.Query(correlationID)
}

func TestCreativeStatusMatchesReturnedTrail(t *testing.T) {
	t.Parallel()

	led := &busyLedger{mem: ledger.NewMemory()}
	gw := gateway.New(led, 0)
	src := stages.NewSource(7)
	gw.Register(PipelineCreative, pipeline.NewConductor(PipelineCreative, stages.Creative(src, 2), led), nil)

	srv := New(gw, led, ledger.NewBus(), dispatch.New(), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	var status struct {
		Status gateway.RunStatus `json:"status"`
		Events []ledger.Event    `json:"events"`
	}
	getJSON(t, ts.URL+"/api/creative_status/busy-run", &status)

	// The reported status must be derivable from the very trail returned
	// alongside it; a second read would already see a longer trail.
	assert.Equal(t, gateway.Fold(status.Events), status.Status)
	assert.Equal(t, gateway.StateRunning, status.Status.State)
}

func TestChatDispatchesAndRecordsTrail(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/chat", "application/json",
		strings.NewReader(`{"user_message": "hello there"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chat struct {
		CorrelationID string `json:"correlation_id"`
		Response      string `json:"response"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chat))
	assert.Contains(t, chat.Response, "hello there")
	assert.NotEmpty(t, chat.CorrelationID)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/chat", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateRejectsNonPost(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/create")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
