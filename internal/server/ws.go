package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/echonexus/creo-core/internal/dispatch"
	"github.com/echonexus/creo-core/internal/ledger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHub manages WebSocket connections and broadcasts every ledger append to
// connected clients.
type WSHub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	bus     *ledger.Bus
}

// NewWSHub creates a hub subscribed to the ledger's broadcast bus.
func NewWSHub(bus *ledger.Bus) *WSHub {
	return &WSHub{
		clients: make(map[*websocket.Conn]bool),
		bus:     bus,
	}
}

// Run starts the hub's event broadcast loop.
func (h *WSHub) Run() {
	ch := h.bus.Subscribe()
	defer h.bus.Unsubscribe(ch)

	for evt := range ch {
		data, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		h.mu.Lock()
		for conn := range h.clients {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				conn.Close()
				delete(h.clients, conn)
			}
		}
		h.mu.Unlock()
	}
}

// HandleWebSocket upgrades HTTP connections to WebSocket.
func (h *WSHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] websocket upgrade error: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Keep the connection alive; clients only listen on this channel.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// handleChatWS is the interactive chat channel: each inbound text message
// is routed through the chat capability core and answered on the same
// connection. One correlation id spans the whole session.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[server] chat upgrade error: %v", err)
		return
	}
	defer conn.Close()

	correlationID := uuid.New().String()
	log.Printf("[server] chat session %s opened", correlationID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.appendChat(correlationID, ledger.KindChatDisconnect, nil)
			return
		}
		message := string(data)
		s.appendChat(correlationID, ledger.KindChatMessage, map[string]any{"message": message})

		response, err := s.dispatcher.Dispatch(r.Context(), dispatch.TaskChatReasoning, map[string]any{
			"user_message":   message,
			"memory_context": map[string]any{"channel": "websocket"},
		})
		if err != nil {
			s.appendChat(correlationID, ledger.KindChatError, map[string]any{"error": err.Error()})
			response = "error: " + err.Error()
		} else {
			s.appendChat(correlationID, ledger.KindChatResponse, map[string]any{"response": response})
		}

		if err := conn.WriteMessage(websocket.TextMessage, []byte(response)); err != nil {
			s.appendChat(correlationID, ledger.KindChatDisconnect, nil)
			return
		}
	}
}
