package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/store"
)

// messagePageLimit caps one page of the history polling endpoint; clients
// restart from the last seen id via the after cursor.
const messagePageLimit = 100

// dateFormat is the wall-clock format used in message responses.
const dateFormat = "15:04:05"

// MessageHandlers provides the history fetch and create-message endpoints.
type MessageHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(st store.Store, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{
		store: st,
		log:   logger,
	}
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID       int64  `json:"id"`
	Content  string `json:"content"`
	Username string `json:"username"`
	Date     string `json:"date"`
}

// MessagesResponse wraps a page of messages.
type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// CreateMessageRequest represents the create message request body.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// ListMessages returns room messages with id greater than the after
// cursor, in ascending id order.
// GET /api/rooms/:slug/messages?after=N
func (h *MessageHandlers) ListMessages(c *gin.Context) {
	room, ok := h.resolveRoom(c)
	if !ok {
		return
	}

	after := parseAfter(c.Query("after"))

	messages, err := h.store.ListMessages(c.Request.Context(), room.ID, after, messagePageLimit)
	if err != nil {
		h.log.Error().Err(err).Str("room_slug", room.Slug).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := MessagesResponse{Messages: make([]MessageResponse, 0, len(messages))}
	for _, msg := range messages {
		response.Messages = append(response.Messages, messageResponse(msg, msg.Author))
	}

	c.JSON(http.StatusOK, response)
}

// CreateMessage persists a message authored by the authenticated user and
// returns the created record. Content that is empty after trimming is
// rejected.
// POST /api/rooms/:slug/messages
func (h *MessageHandlers) CreateMessage(c *gin.Context) {
	userID, username, ok := currentUser(c)
	if !ok {
		h.log.Error().Msg("user not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	room, roomOK := h.resolveRoom(c)
	if !roomOK {
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty"})
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty"})
		return
	}

	msg, err := h.store.AppendMessage(c.Request.Context(), room.ID, userID, content, time.Now().UTC())
	if err != nil {
		h.log.Error().Err(err).Str("room_slug", room.Slug).Msg("failed to create message")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, messageResponse(msg, username))
}

func (h *MessageHandlers) resolveRoom(c *gin.Context) (*store.Room, bool) {
	slug := c.Param("slug")
	room, err := h.store.GetRoomBySlug(c.Request.Context(), slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return nil, false
		}
		h.log.Error().Err(err).Str("room_slug", slug).Msg("failed to resolve room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return nil, false
	}
	return room, true
}

func currentUser(c *gin.Context) (int64, string, bool) {
	rawID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, "", false
	}
	userID, ok := rawID.(int64)
	if !ok {
		return 0, "", false
	}
	username := c.GetString(ContextKeyUsername)
	return userID, username, true
}

func messageResponse(msg *store.Message, username string) MessageResponse {
	return MessageResponse{
		ID:       msg.ID,
		Content:  msg.Body,
		Username: username,
		Date:     msg.CreatedAt.Format(dateFormat),
	}
}

// parseAfter reads the cursor; anything non-numeric falls back to zero.
func parseAfter(raw string) int64 {
	if raw == "" {
		return 0
	}
	after, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || after < 0 {
		return 0
	}
	return after
}
