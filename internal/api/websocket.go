package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"scanbridge/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for now as this is a local network tool
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSManager handles WebSocket connections and broadcasting
type WSManager struct {
	server     *Server
	clients    map[*WebSocketClient]bool
	clientsMu  sync.RWMutex
	broadcast  chan protocol.Message
	register   chan *WebSocketClient
	unregister chan *WebSocketClient
	shutdown   chan struct{}
}

// WebSocketClient represents a connected subscriber
type WebSocketClient struct {
	manager *WSManager
	conn    *websocket.Conn
	send    chan []byte
	ip      string
}

func newWSManager(s *Server) *WSManager {
	return &WSManager{
		server:     s,
		clients:    make(map[*WebSocketClient]bool),
		broadcast:  make(chan protocol.Message),
		register:   make(chan *WebSocketClient),
		unregister: make(chan *WebSocketClient),
		shutdown:   make(chan struct{}),
	}
}

func (m *WSManager) start() {
	for {
		select {
		case client := <-m.register:
			m.clientsMu.Lock()
			m.clients[client] = true
			m.clientsMu.Unlock()
			m.server.log.Info().Str("client", client.ip).Int("total", m.ClientCount()).Msg("ws client registered")

		case client := <-m.unregister:
			m.clientsMu.Lock()
			if _, ok := m.clients[client]; ok {
				delete(m.clients, client)
				close(client.send)
			}
			m.clientsMu.Unlock()
			m.server.log.Info().Str("client", client.ip).Int("total", m.ClientCount()).Msg("ws client unregistered")

		case message := <-m.broadcast:
			m.broadcastMessage(message)

		case <-m.shutdown:
			return
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (m *WSManager) ClientCount() int {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	return len(m.clients)
}

func (m *WSManager) broadcastMessage(message protocol.Message) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		m.server.log.Error().Err(err).Msg("ws failed to marshal broadcast")
		return
	}

	m.clientsMu.Lock()
	defer m.clientsMu.Unlock()

	for client := range m.clients {
		select {
		case client.send <- jsonMsg:
		default:
			close(client.send)
			delete(m.clients, client)
		}
	}
}

func (m *WSManager) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.server.log.Warn().Err(err).Msg("ws failed to upgrade connection")
		return
	}

	client := &WebSocketClient{
		manager: m,
		conn:    conn,
		send:    make(chan []byte, 256),
		ip:      r.RemoteAddr,
	}

	// Register client
	m.register <- client

	// Start pump goroutines
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.manager.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.manager.server.log.Warn().Err(err).Msg("ws read error")
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(50 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WebSocketClient) handleMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.manager.server.log.Warn().Err(err).Msg("ws invalid message format")
		return
	}

	switch msg.Type {
	case protocol.TypeAuth:
		c.manager.server.log.Debug().Str("client", c.ip).Msg("ws auth received")

	case protocol.TypeSyncRequest:
		// Send config back
		cfg := c.manager.server.configMgr.Get()
		resp := protocol.Message{
			Type:    protocol.TypeSyncResponse,
			Payload: cfg,
		}

		respBytes, _ := json.Marshal(resp)
		c.send <- respBytes
	}
}

// BroadcastKey publishes a key transition to all subscribers.
func (m *WSManager) BroadcastKey(scancode uint16, pressed bool, timestamp int64) {
	m.broadcast <- protocol.Message{
		Type: protocol.TypeKey,
		Payload: protocol.KeyPayload{
			Pressed:   pressed,
			Scancode:  scancode,
			Timestamp: timestamp,
		},
	}
}

// BroadcastMove publishes pointer motion to all subscribers.
func (m *WSManager) BroadcastMove(dx, dy int) {
	m.broadcast <- protocol.Message{
		Type:    protocol.TypeMouseMove,
		Payload: protocol.MouseMovePayload{DX: dx, DY: dy},
	}
}

// BroadcastButtons publishes a button mask change to all subscribers.
func (m *WSManager) BroadcastButtons(mask uint8) {
	m.broadcast <- protocol.Message{
		Type:    protocol.TypeMouseButtons,
		Payload: protocol.MouseButtonsPayload{Mask: mask},
	}
}

// BroadcastWheel publishes wheel motion to all subscribers.
func (m *WSManager) BroadcastWheel(notches int) {
	m.broadcast <- protocol.Message{
		Type:    protocol.TypeMouseWheel,
		Payload: protocol.MouseWheelPayload{Delta: notches},
	}
}

// BroadcastCapture publishes a capture toggle to all subscribers.
func (m *WSManager) BroadcastCapture(active bool) {
	m.broadcast <- protocol.Message{
		Type:    protocol.TypeCapture,
		Payload: protocol.CapturePayload{Active: active},
	}
}
