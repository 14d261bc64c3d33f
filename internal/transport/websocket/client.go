package websocket

import (
	"sync"
	"time"

	"github.com/blindify/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// ConnectionManager handles active WebSocket connections thread-safely.
// Room events are global, so connections are keyed by a random id rather
// than by user.
type ConnectionManager struct {
	connections map[string]*websocket.Conn

	// writeMu ensures only one goroutine writes to a specific socket at a time.
	// conn.WriteJSON is not thread-safe.
	writeMu map[string]*sync.Mutex

	mu sync.RWMutex // Protects the maps themselves
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		writeMu:     make(map[string]*sync.Mutex),
	}
}

// AddConnection registers a connection and returns its id
func (cm *ConnectionManager) AddConnection(conn *websocket.Conn) string {
	id := uuid.NewString()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
	cm.writeMu[id] = &sync.Mutex{}
	return id
}

// RemoveConnection closes the socket and forgets it
func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn, exists := cm.connections[id]; exists {
		conn.Close()
		delete(cm.connections, id)
		delete(cm.writeMu, id)
	}
}

// SendMessage sends a JSON message to one connection
func (cm *ConnectionManager) SendMessage(id string, message domain.ServerMessage) error {
	cm.mu.RLock()
	conn, exists := cm.connections[id]
	mu, muExists := cm.writeMu[id]
	cm.mu.RUnlock()

	if !exists || !muExists {
		return nil // Disconnected, ignore
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(message)
}

// WriteControl sends a control frame under the same write lock as messages
func (cm *ConnectionManager) WriteControl(id string, messageType int) error {
	cm.mu.RLock()
	conn, exists := cm.connections[id]
	mu, muExists := cm.writeMu[id]
	cm.mu.RUnlock()

	if !exists || !muExists {
		return websocket.ErrCloseSent
	}

	mu.Lock()
	defer mu.Unlock()
	return conn.WriteControl(messageType, nil, time.Now().Add(writeWait))
}

// BroadcastMessage sends a message to every connected client
func (cm *ConnectionManager) BroadcastMessage(message domain.ServerMessage) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for id := range cm.connections {
		// One goroutine per socket so a slow client doesn't block the rest
		go func(cid string) {
			cm.SendMessage(cid, message)
		}(id)
	}
}

// Count returns the number of open connections
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll closes every socket, used on shutdown
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for id, conn := range cm.connections {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		conn.Close()
		delete(cm.connections, id)
		delete(cm.writeMu, id)
	}
}
