package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/echonexus/creo-core/internal/dispatch"
	"github.com/echonexus/creo-core/internal/gateway"
	"github.com/echonexus/creo-core/internal/ledger"
	"github.com/echonexus/creo-core/internal/pipeline"
	"github.com/echonexus/creo-core/internal/stages"
)

// Registered pipeline names.
const (
	PipelineCreative = "creative"
	PipelineDocument = "document"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "creo core online"})
}

func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.gw.Pipelines())
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		TextInput     string         `json:"text_input"`
		ImageData     string         `json:"image_data"`
		AudioData     string         `json:"audio_data"`
		SymbolicInput map[string]any `json:"symbolic_input"`
		Context       map[string]any `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	payload := pipeline.Artifact{}
	if req.TextInput != "" {
		payload[stages.KeyTextInput] = req.TextInput
	}
	if req.ImageData != "" {
		payload[stages.KeyImageData] = req.ImageData
	}
	if req.AudioData != "" {
		payload[stages.KeyAudioData] = req.AudioData
	}
	if req.SymbolicInput != nil {
		payload[stages.KeySymbolicInput] = req.SymbolicInput
	}
	if req.Context != nil {
		payload[pipeline.KeyContext] = req.Context
	} else {
		payload[pipeline.KeyContext] = map[string]any{}
	}

	correlationID, err := s.gw.Submit(PipelineCreative, payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{
		"correlation_id":  correlationID,
		"status_endpoint": "/api/creative_status/" + correlationID,
	})
}

func (s *Server) handleCreativeStatus(w http.ResponseWriter, r *http.Request) {
	s.handleRunStatus(w, r, "/api/creative_status/")
}

func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	s.handleRunStatus(w, r, "/api/document_status/")
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request, prefix string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	correlationID := strings.TrimPrefix(r.URL.Path, prefix)
	if correlationID == "" {
		http.Error(w, "correlation id required", http.StatusBadRequest)
		return
	}

	// One trail read serves both views, so the derived status always
	// agrees with the event list even while the run is appending.
	history, err := s.gw.History(correlationID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]any{
		"correlation_id": correlationID,
		"status":         gateway.Fold(history),
		"events":         history,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		UserMessage   string         `json:"user_message"`
		MemoryContext map[string]any `json:"memory_context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserMessage == "" {
		http.Error(w, "user_message is required", http.StatusBadRequest)
		return
	}

	correlationID := uuid.New().String()
	s.appendChat(correlationID, ledger.KindChatMessage, map[string]any{"message": req.UserMessage})

	response, err := s.dispatcher.Dispatch(r.Context(), dispatch.TaskChatReasoning, map[string]any{
		"user_message":   req.UserMessage,
		"memory_context": req.MemoryContext,
	})
	if err != nil {
		s.appendChat(correlationID, ledger.KindChatError, map[string]any{"error": err.Error()})
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.appendChat(correlationID, ledger.KindChatResponse, map[string]any{"response": response})

	writeJSON(w, map[string]string{
		"correlation_id": correlationID,
		"response":       response,
	})
}

// appendChat records a chat event; chat stays usable when the ledger is
// down, so failures only log.
func (s *Server) appendChat(correlationID string, kind ledger.Kind, payload map[string]any) {
	if err := s.led.Append(ledger.NewEvent(correlationID, kind, payload)); err != nil {
		log.Printf("[server] chat event append failed: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
