package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental-platform-server/middleware"
	"rental-platform-server/types"
	ws "rental-platform-server/websocket"
)

type socketMarkRead struct {
	NotificationID uint `json:"notification_id"`
}

// RegisterNotificationRoutes registers the in-app inbox and its live socket
func (h *Handler) RegisterNotificationRoutes(router *gin.RouterGroup, auth *middleware.Authenticator) {
	notifications := router.Group("/notifications")
	notifications.Use(auth.AuthMiddleware())
	{
		notifications.GET("", h.listNotifications)
		notifications.GET("/unread-count", h.unreadCount)
		notifications.POST("/:id/read", h.markNotificationRead)
		notifications.POST("/read-all", h.markAllNotificationsRead)
	}

	router.GET("/ws/notifications", auth.WebSocketAuthMiddleware(), h.notificationSocket)
}

func (h *Handler) listNotifications(c *gin.Context) {
	p := paginationFrom(c)
	unreadOnly := c.Query("unread_only") == "true"
	notifications, total, err := h.Notifications.List(c.GetUint("user_id"), unreadOnly, p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, notifications, total, p)
}

func (h *Handler) unreadCount(c *gin.Context) {
	count, err := h.Notifications.UnreadCount(c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.Notifications.MarkRead(c.GetUint("user_id"), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *Handler) markAllNotificationsRead(c *gin.Context) {
	updated, err := h.Notifications.MarkAllRead(c.GetUint("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked as read",
		"updated": updated,
	})
}

// notificationSocket upgrades to a websocket that receives live notifications
func (h *Handler) notificationSocket(c *gin.Context) {
	if h.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Live notifications unavailable",
			"message": "The notification hub is not running",
		})
		return
	}

	user := middleware.CurrentUser(c)
	ws.ServeWebSocket(h.Hub, c.Writer, c.Request, user.ID, string(user.UserType))
}

// registerSocketHandlers lets a live client mark a notification read over the
// socket. The reply carries the new unread count.
func (h *Handler) registerSocketHandlers() {
	h.Hub.Handle(ws.MessageMarkRead, func(client *ws.Client, payload json.RawMessage) error {
		var req socketMarkRead
		if err := json.Unmarshal(payload, &req); err != nil || req.NotificationID == 0 {
			h.Hub.Reply(client, &ws.Message{Type: ws.MessageError, Data: gin.H{"message": "notification_id is required"}})
			return nil
		}

		if err := h.Notifications.MarkRead(client.ID, req.NotificationID); err != nil {
			var notFoundErr *types.NotFoundError
			if errors.As(err, &notFoundErr) {
				h.Hub.Reply(client, &ws.Message{Type: ws.MessageError, Data: gin.H{"message": notFoundErr.Error()}})
				return nil
			}
			return err
		}

		count, err := h.Notifications.UnreadCount(client.ID)
		if err != nil {
			return err
		}
		h.Hub.Reply(client, &ws.Message{
			Type: ws.MessageUnreadCount,
			Data: gin.H{"notification_id": req.NotificationID, "unread_count": count},
		})
		return nil
	})
}
