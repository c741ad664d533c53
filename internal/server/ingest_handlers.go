package server

import (
	"net/http"
	"strings"
)

// maxUploadBytes bounds the in-memory portion of multipart parsing.
const maxUploadBytes = 32 << 20

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var tags []string
	if raw := r.FormValue("tags"); raw != "" {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}

	correlationID, sanitized, err := s.intake.Ingest(file, header.Filename, r.FormValue("document_type"), tags)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{
		"correlation_id":  correlationID,
		"filename":        sanitized,
		"status_endpoint": "/api/document_status/" + correlationID,
	})
}
