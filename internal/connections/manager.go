package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deepgram/relay/internal/config"
)

// Manager handles WebSocket connection lifecycle
type Manager struct {
	connections sync.Map
	timeouts    config.WebSocketConfig
}

type connectionInfo struct {
	remoteAddr  string
	connectedAt time.Time
}

// NewManager creates a new connection manager with the specified timeouts
func NewManager(timeouts config.WebSocketConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers a new WebSocket connection
func (m *Manager) AddConnection(conn *websocket.Conn, remoteAddr string) {
	m.connections.Store(conn, connectionInfo{
		remoteAddr:  remoteAddr,
		connectedAt: time.Now(),
	})
}

// RemoveConnection removes a WebSocket connection and reports how long it was open
func (m *Manager) RemoveConnection(conn *websocket.Conn) time.Duration {
	value, loaded := m.connections.LoadAndDelete(conn)
	if !loaded {
		return 0
	}
	return time.Since(value.(connectionInfo).connectedAt)
}

// GetConnectionCount returns the current number of active connections
func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// hasConnection checks if a specific connection exists
func (m *Manager) hasConnection(conn *websocket.Conn) bool {
	_, exists := m.connections.Load(conn)
	return exists
}

// GetTimeouts returns the current timeout configuration
func (m *Manager) GetTimeouts() config.WebSocketConfig {
	return m.timeouts
}

// CloseAll sends a going-away close frame to every open connection. Handlers
// see the resulting read error and unregister themselves.
func (m *Manager) CloseAll(reason string) int {
	closed := 0
	deadline := time.Now().Add(m.timeouts.WriteWait)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)

	m.connections.Range(func(key, value interface{}) bool {
		conn := key.(*websocket.Conn)
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err == nil {
			closed++
		}
		// Unblock the handler's read loop if the peer never answers the close
		_ = conn.SetReadDeadline(time.Now().Add(m.timeouts.WriteWait))
		return true
	})
	return closed
}
