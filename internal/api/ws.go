package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin viewers are expected; authorization happens per socket.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// UnitStatusWS upgrades a viewer connection and subscribes it to live
// updates for one unit. The viewer immediately receives the unit's last
// known snapshot, or a synthetic offline one.
func (h *Handler) UnitStatusWS(c *gin.Context) {
	unitID, ok := unitIDParam(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed for unit %d: %v", unitID, err)
		return
	}

	h.hub.Subscribe(c.Request.Context(), conn, unitID)
	defer func() {
		h.hub.Unsubscribe(conn, unitID)
		_ = conn.Close()
	}()

	// Reads keep the connection alive; viewers never send anything useful.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// NotificationsWS upgrades a permission-gated connection onto the
// system-wide notification channel. The permission check runs once, at
// connection time.
func (h *Handler) NotificationsWS(c *gin.Context) {
	token := c.Query("token")
	if _, err := h.auth.Verify(token, PermissionControlDevice, PermissionMonitorSystem); err != nil {
		h.logger.Warnf("Notification socket rejected: %v", err)
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed for notifications: %v", err)
		return
	}

	h.registry.Connect(conn)
	defer func() {
		h.registry.Disconnect(conn)
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
