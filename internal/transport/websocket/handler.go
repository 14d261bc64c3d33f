package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/blindify/backend/internal/config"
	"github.com/blindify/backend/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Handler upgrades clients that want room broadcasts
type Handler struct {
	ConnManager *ConnectionManager
	Upgrader    websocket.Upgrader
}

func NewHandler(cm *ConnectionManager) *Handler {
	return &Handler{
		ConnManager: cm,
		Upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// checkOrigin accepts same-origin and allow-listed browsers
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || config.AppConfig == nil {
		return true
	}
	for _, allowed := range config.AppConfig.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	log.Printf("[WS] Rejected origin %s", origin)
	return false
}

// HandleWebSocket is the gin handler that upgrades the connection
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] Upgrade error: %v", err)
		return
	}

	h.handleConnection(conn)
}

// handleConnection keeps the socket alive until the client goes away.
// Clients only listen; the one frame they may send is a ping.
func (h *Handler) handleConnection(conn *websocket.Conn) {
	id := h.ConnManager.AddConnection(conn)
	log.Printf("[WS] Client %s connected (%d open)", id, h.ConnManager.Count())

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer func() {
		close(done)
		h.ConnManager.RemoveConnection(id)
		log.Printf("[WS] Client %s disconnected", id)
	}()

	// Keep-alive pinger
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := h.ConnManager.WriteControl(id, websocket.PingMessage); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Client %s disconnected unexpectedly: %v", id, err)
			}
			return
		}

		var msg domain.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.ConnManager.SendMessage(id, domain.ServerMessage{Type: domain.MessageError, Message: "Invalid message format"})
			continue
		}

		switch msg.Type {
		case "ping":
			h.ConnManager.SendMessage(id, domain.ServerMessage{Type: domain.MessagePong})
		default:
			h.ConnManager.SendMessage(id, domain.ServerMessage{Type: domain.MessageError, Message: "Unknown message type"})
		}
	}
}
