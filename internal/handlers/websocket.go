// ===============================
// internal/handlers/websocket.go - Realtime notification socket
// ===============================

package handlers

import (
	"net/http"

	ws "freezybe/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebSocketHandler struct {
	manager  *ws.Manager
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler accepts upgrades from the configured origins only.
func NewWebSocketHandler(manager *ws.Manager, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// HandleWebSocket upgrades an authenticated request and hands the
// connection to the hub.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := currentUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("uid", userID), zap.Error(err))
		return
	}

	client := ws.NewClient(userID, conn, h.manager)
	if !h.manager.RegisterClient(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func (h *WebSocketHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Stats())
}
