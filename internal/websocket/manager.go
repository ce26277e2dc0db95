// ===============================
// internal/websocket/manager.go - WebSocket Notification Hub
// ===============================

package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"freezybe/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ===============================
// MESSAGE TYPES
// ===============================

type MessageType string

const (
	// Connection events
	TypeConnectionEstablished MessageType = "connection_established"
	TypePing                  MessageType = "ping"
	TypePong                  MessageType = "pong"
	TypeError                 MessageType = "error"

	// Notification events
	TypeNotification MessageType = "notification"
	TypeMarkRead     MessageType = "mark_read"
	TypeMarkedRead   MessageType = "marked_read"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

type Message struct {
	Type      MessageType            `json:"type"`
	Data      map[string]interface{} `json:"data"`
	ID        string                 `json:"id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ReadMarker marks a notification read on behalf of a connected user.
type ReadMarker interface {
	MarkRead(ctx context.Context, uid, notificationID string) error
}

// ===============================
// CLIENT CONNECTION
// ===============================

type Client struct {
	ID      string
	UserID  string
	Conn    *websocket.Conn
	Manager *Manager
	Send    chan []byte
}

func NewClient(userID string, conn *websocket.Conn, manager *Manager) *Client {
	return &Client{
		ID:      uuid.New().String(),
		UserID:  userID,
		Conn:    conn,
		Manager: manager,
		Send:    make(chan []byte, sendBufferSize),
	}
}

// Read messages from client
func (c *Client) ReadPump() {
	defer func() {
		c.Manager.UnregisterClient(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Manager.logger.Warn("websocket read error", zap.String("uid", c.UserID), zap.Error(err))
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.Manager.sendError(c, "invalid message format")
			continue
		}

		c.Manager.HandleMessage(c, &msg)
	}
}

// Write messages to client
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ===============================
// WEBSOCKET MANAGER
// ===============================

type Manager struct {
	Clients     map[string]*Client   // socket_id -> client
	UserClients map[string][]*Client // user_id -> clients
	Register    chan *Client
	Unregister  chan *Client
	done        chan struct{}
	logger      *zap.Logger
	readMarker  ReadMarker
	mutex       sync.RWMutex
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		Clients:     make(map[string]*Client),
		UserClients: make(map[string][]*Client),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// SetReadMarker wires the service that handles mark_read requests.
func (m *Manager) SetReadMarker(rm ReadMarker) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.readMarker = rm
}

// Run the manager until ctx is cancelled. Call it once.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case client := <-m.Register:
			m.registerClient(client)

		case client := <-m.Unregister:
			m.unregisterClient(client)

		case <-ctx.Done():
			m.closeAll()
			return
		}
	}
}

// RegisterClient hands client to the hub. It reports false once the hub
// has stopped.
func (m *Manager) RegisterClient(client *Client) bool {
	select {
	case m.Register <- client:
		return true
	case <-m.done:
		return false
	}
}

// UnregisterClient removes client from the hub, or returns at once if the
// hub has stopped.
func (m *Manager) UnregisterClient(client *Client) {
	select {
	case m.Unregister <- client:
	case <-m.done:
	}
}

func (m *Manager) registerClient(client *Client) {
	m.mutex.Lock()
	m.Clients[client.ID] = client
	m.UserClients[client.UserID] = append(m.UserClients[client.UserID], client)
	m.mutex.Unlock()

	m.sendToClient(client, &Message{
		Type:      TypeConnectionEstablished,
		Data:      map[string]interface{}{"clientId": client.ID, "userId": client.UserID},
		Timestamp: time.Now(),
	})

	m.logger.Debug("websocket client registered", zap.String("client_id", client.ID), zap.String("uid", client.UserID))
}

func (m *Manager) unregisterClient(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.Clients[client.ID]; !ok {
		return
	}
	delete(m.Clients, client.ID)

	if clients, ok := m.UserClients[client.UserID]; ok {
		for i, c := range clients {
			if c.ID == client.ID {
				m.UserClients[client.UserID] = append(clients[:i], clients[i+1:]...)
				break
			}
		}
		if len(m.UserClients[client.UserID]) == 0 {
			delete(m.UserClients, client.UserID)
		}
	}

	close(client.Send)
	m.logger.Debug("websocket client unregistered", zap.String("client_id", client.ID), zap.String("uid", client.UserID))
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for id, client := range m.Clients {
		close(client.Send)
		delete(m.Clients, id)
	}
	m.UserClients = make(map[string][]*Client)
}

// sendToClient never blocks. A client whose buffer is full is dropped and
// the read pump's unregister tidies up.
func (m *Manager) sendToClient(client *Client, msg *Message) {
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("failed to marshal websocket message", zap.Error(err))
		return
	}

	// Send is closed only under the write lock once the client is gone.
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.Clients[client.ID] != client {
		return
	}

	select {
	case client.Send <- messageBytes:
	default:
		m.logger.Warn("websocket send buffer full, closing", zap.String("uid", client.UserID))
		client.Conn.Close()
	}
}

// Send message to all clients of a user
func (m *Manager) SendToUser(userID string, msg *Message) {
	m.mutex.RLock()
	clients := append([]*Client(nil), m.UserClients[userID]...)
	m.mutex.RUnlock()

	for _, client := range clients {
		m.sendToClient(client, msg)
	}
}

// PushNotification delivers a stored notification to the user's open connections.
func (m *Manager) PushNotification(userID string, n *models.Notification) {
	m.SendToUser(userID, &Message{
		Type: TypeNotification,
		ID:   n.ID,
		Data: map[string]interface{}{
			"id":        n.ID,
			"title":     n.Title,
			"body":      n.Body,
			"type":      n.Type,
			"data":      n.Data,
			"read":      n.IsRead,
			"createdAt": n.CreatedAt,
		},
		Timestamp: time.Now(),
	})
}

// Handle incoming message from client
func (m *Manager) HandleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case TypePing:
		m.sendToClient(client, &Message{Type: TypePong, Timestamp: time.Now()})

	case TypeMarkRead:
		m.handleMarkRead(client, msg)

	default:
		m.sendError(client, "unknown message type")
	}
}

func (m *Manager) handleMarkRead(client *Client, msg *Message) {
	id, _ := msg.Data["notificationId"].(string)
	if id == "" {
		m.sendError(client, "notificationId is required")
		return
	}

	m.mutex.RLock()
	rm := m.readMarker
	m.mutex.RUnlock()
	if rm == nil {
		m.sendError(client, "notifications unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := rm.MarkRead(ctx, client.UserID, id); err != nil {
		m.sendError(client, "failed to mark notification read")
		return
	}

	m.sendToClient(client, &Message{
		Type:      TypeMarkedRead,
		Data:      map[string]interface{}{"notificationId": id},
		Timestamp: time.Now(),
	})
}

func (m *Manager) sendError(client *Client, errorMessage string) {
	m.sendToClient(client, &Message{
		Type:      TypeError,
		Data:      map[string]interface{}{"error": errorMessage},
		Timestamp: time.Now(),
	})
}

func (m *Manager) GetActiveConnectionsCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.Clients)
}

func (m *Manager) GetUserConnectionsCount(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.UserClients[userID])
}

func (m *Manager) IsUserOnline(userID string) bool {
	return m.GetUserConnectionsCount(userID) > 0
}

// Stats reports connection counts for the health endpoint.
func (m *Manager) Stats() map[string]int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return map[string]int{
		"connections": len(m.Clients),
		"users":       len(m.UserClients),
	}
}
