package handler

import (
	"context"

	appmessaging "github.com/b2bmarket/backend/internal/application/messaging"
	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// MessageHandler serves the company-to-company mailbox
type MessageHandler struct {
	BaseHandler
	messageService *appmessaging.MessageService
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messageService *appmessaging.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

// Send godoc
// @ID           sendMessage
// @Summary      Send a message
// @Description  Sends a message to another active company, optionally about one of its listings
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body appmessaging.SendMessageInput true "Message"
// @Success      201 {object} APIResponse[appmessaging.MessageDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var input appmessaging.SendMessageInput
	if !h.bindJSON(c, &input) {
		return
	}
	msg, err := h.messageService.Send(c.Request.Context(), actor, input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, msg)
}

// Inbox godoc
// @ID           listInbox
// @Summary      Received messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        unread query bool false "Only unread messages"
// @Param        with query string false "Only messages from this company"
// @Success      200 {object} APIResponse[[]appmessaging.MessageDTO]
// @Router       /messages/inbox [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	h.mailbox(c, h.messageService.Inbox)
}

// Outbox godoc
// @ID           listOutbox
// @Summary      Sent messages
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        with query string false "Only messages to this company"
// @Success      200 {object} APIResponse[[]appmessaging.MessageDTO]
// @Router       /messages/outbox [get]
func (h *MessageHandler) Outbox(c *gin.Context) {
	h.mailbox(c, h.messageService.Outbox)
}

type mailboxFunc func(context.Context, *identity.User, appmessaging.MailboxQuery) (shared.Paginated[appmessaging.MessageDTO], error)

func (h *MessageHandler) mailbox(c *gin.Context, list mailboxFunc) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q appmessaging.MailboxQuery
	if !h.bindQuery(c, &q) {
		return
	}
	messages, err := list(c.Request.Context(), actor, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, messages)
}

// UnreadCount godoc
// @ID           countUnreadMessages
// @Summary      Unread message count
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[appmessaging.UnreadCountDTO]
// @Router       /messages/unread-count [get]
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	count, err := h.messageService.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}

// Get godoc
// @ID           getMessage
// @Summary      Read a message
// @Description  Opening a received message marks it read
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Message ID"
// @Success      200 {object} APIResponse[appmessaging.MessageDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /messages/{id} [get]
func (h *MessageHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	msg, err := h.messageService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, msg)
}

// MarkRead godoc
// @ID           markMessageRead
// @Summary      Mark a message read
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Message ID"
// @Success      200 {object} APIResponse[appmessaging.MessageDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /messages/{id}/read [patch]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	msg, err := h.messageService.MarkRead(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, msg)
}

// Delete godoc
// @ID           deleteMessage
// @Summary      Delete a message
// @Description  Either participant may delete; the message is hidden from both mailboxes
// @Tags         messages
// @Security     BearerAuth
// @Param        id path string true "Message ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /messages/{id} [delete]
func (h *MessageHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.messageService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
