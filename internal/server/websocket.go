package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/livetemplate/scrollfollow"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Message actions.
const (
	ActionScroll  = "scroll"
	ActionSection = "section"
	ActionReload  = "reload"
	ActionError   = "error"
)

// ClientMessage is sent by the browser.
type ClientMessage struct {
	Action string `json:"action"`
	Line   int    `json:"line"`
}

// SectionMessage answers a scroll query. Index is -1 when the line precedes
// the first content line.
type SectionMessage struct {
	Action string `json:"action"`
	ID     string `json:"id"`
	Index  int    `json:"index"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// ReloadMessage tells clients the document changed.
type ReloadMessage struct {
	Action   string `json:"action"`
	Revision uint64 `json:"revision"`
}

// ErrorMessage reports a fault to the client.
type ErrorMessage struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// wsClient serializes writes to one connection.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// serveWebSocket answers scroll queries for the session's document and keeps
// the connection registered for reload broadcasts.
func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] Failed to upgrade connection: %v", err)
		return
	}

	client := &wsClient{conn: conn}
	s.RegisterConnection(client)
	defer func() {
		s.UnregisterConnection(client)
		conn.Close()
	}()

	if s.debug {
		log.Printf("[WS] Client connected: %s", conn.RemoteAddr())
	}

	limiter := s.scrollLimits.get(getClientIP(r))
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close: %v", err)
			}
			break
		}

		if s.debug {
			log.Printf("[WS] Received: %s", message)
		}

		if !limiter.Allow() {
			if s.debug {
				log.Printf("[WS] Dropped message from %s: rate limited", conn.RemoteAddr())
			}
			continue
		}
		s.handleMessage(client, message)
	}

	if s.debug {
		log.Printf("[WS] Client disconnected: %s", conn.RemoteAddr())
	}
}

func (s *Server) handleMessage(client *wsClient, message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Printf("[WS] Failed to parse message: %v", err)
		s.sendMessage(client, ErrorMessage{Action: ActionError, Message: "invalid message"})
		return
	}

	switch msg.Action {
	case ActionScroll:
		s.sendMessage(client, s.sectionMessage(msg.Line))
	default:
		log.Printf("[WS] Unknown action: %s", msg.Action)
		s.sendMessage(client, ErrorMessage{Action: ActionError, Message: "unknown action: " + msg.Action})
	}
}

func (s *Server) sectionMessage(line int) SectionMessage {
	sec, idx := s.session.SectionByLine(line)
	if sec == nil {
		return SectionMessage{Action: ActionSection, Index: -1, Start: -1, End: -1}
	}
	return SectionMessage{
		Action: ActionSection,
		ID:     scrollfollow.SectionClass(idx),
		Index:  idx,
		Start:  sec.Start,
		End:    sec.End,
	}
}

func (s *Server) sendMessage(client *wsClient, v any) {
	if err := client.send(v); err != nil {
		log.Printf("[WS] Failed to send message: %v", err)
		return
	}
	if s.debug {
		log.Printf("[WS] Sent: %+v", v)
	}
}
