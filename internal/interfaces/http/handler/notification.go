package handler

import (
	"strconv"

	appmessaging "github.com/b2bmarket/backend/internal/application/messaging"
	"github.com/gin-gonic/gin"
)

// UnreadCountHeader carries the unread notification total on list responses
const UnreadCountHeader = "X-Unread-Count"

// NotificationHandler serves the signed-in user's notifications
type NotificationHandler struct {
	BaseHandler
	notificationService *appmessaging.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *appmessaging.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List godoc
// @ID           listNotifications
// @Summary      Notifications
// @Description  Newest first. The unread total is returned in the X-Unread-Count header.
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        unread query bool false "Only unread notifications"
// @Success      200 {object} APIResponse[[]appmessaging.NotificationDTO]
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q appmessaging.NotificationQuery
	if !h.bindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()
	notifications, err := h.notificationService.List(ctx, actor, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	unread, err := h.notificationService.UnreadCount(ctx, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header(UnreadCountHeader, strconv.FormatInt(unread, 10))
	Paginated(&h.BaseHandler, c, notifications)
}

// MarkRead godoc
// @ID           markNotificationRead
// @Summary      Mark a notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200 {object} APIResponse[appmessaging.NotificationDTO]
// @Failure      404 {object} ErrorResponse
// @Router       /notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	n, err := h.notificationService.MarkRead(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, n)
}

// MarkAllRead godoc
// @ID           markAllNotificationsRead
// @Summary      Mark every notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[UpdatedData]
// @Router       /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, UpdatedData{Updated: updated})
}
