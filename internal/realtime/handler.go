package realtime

import (
	"net/http"

	"bitvote/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is open to all origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// --------------------------------------------------
// GET /ws/:code (member token required)
// --------------------------------------------------
func (h *Handler) Serve(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)
	userID := c.GetString(middleware.ContextUserID)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "member token required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client
		h.hub.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, sessionID, userID)
	if err := h.hub.attach(client); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
