package server

import (
	"net/http"

	"github.com/echonexus/creo-core/internal/dispatch"
	"github.com/echonexus/creo-core/internal/gateway"
	"github.com/echonexus/creo-core/internal/ingest"
	"github.com/echonexus/creo-core/internal/ledger"
)

// Server serves the HTTP API and websocket channels.
type Server struct {
	gw         *gateway.Gateway
	led        ledger.Ledger
	dispatcher *dispatch.Dispatcher
	intake     *ingest.Intake
	mux        *http.ServeMux
	wsHub      *WSHub
}

// New creates a new server over the gateway, ledger, and collaborators.
func New(gw *gateway.Gateway, led ledger.Ledger, bus *ledger.Bus, d *dispatch.Dispatcher, in *ingest.Intake) *Server {
	s := &Server{
		gw:         gw,
		led:        led,
		dispatcher: d,
		intake:     in,
		mux:        http.NewServeMux(),
		wsHub:      NewWSHub(bus),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// API routes
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/pipeline", s.handlePipeline)
	s.mux.HandleFunc("/api/create", s.handleCreate)
	s.mux.HandleFunc("/api/creative_status/", s.handleCreativeStatus)
	s.mux.HandleFunc("/api/ingest", s.handleIngest)
	s.mux.HandleFunc("/api/document_status/", s.handleDocumentStatus)
	s.mux.HandleFunc("/api/chat", s.handleChat)

	// WebSocket
	s.mux.HandleFunc("/ws/events", s.wsHub.HandleWebSocket)
	s.mux.HandleFunc("/ws/chat", s.handleChatWS)
}

// Handler exposes the route table (used by tests).
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

// Start begins serving HTTP.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	return http.ListenAndServe(addr, s.Handler())
}

// corsMiddleware adds CORS headers for development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
