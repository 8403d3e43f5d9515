package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/studybuddy/studybuddy-server/internal/service/match"
	"github.com/studybuddy/studybuddy-server/internal/store"
)

// ChatHandlers provides HTTP handlers for chat history endpoints.
type ChatHandlers struct {
	store   store.Store
	matches *match.Service
	log     *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(st store.Store, matchService *match.Service, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		store:   st,
		matches: matchService,
		log:     logger,
	}
}

// MessageView represents a chat message in API responses.
type MessageView struct {
	ID        string    `json:"id"`
	MatchID   string    `json:"matchId"`
	Sender    string    `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// History returns the full message history of a match the caller belongs to.
// GET /api/chat/:matchID
func (h *ChatHandlers) History(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	matchID := c.Param("matchID")
	if matchID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "match id is required"})
		return
	}

	m, err := h.matches.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		if errors.Is(err, match.ErrMatchNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "match not found"})
			return
		}
		h.log.Error().Err(err).Str("match_id", matchID).Msg("failed to load match")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if m.Initiator != uid && m.Target != uid {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant of this match"})
		return
	}

	messages, err := h.store.ListMessages(c.Request.Context(), matchID)
	if err != nil {
		h.log.Error().Err(err).Str("match_id", matchID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageView, 0, len(messages))
	for _, msg := range messages {
		response = append(response, MessageView{
			ID:        msg.ID,
			MatchID:   msg.MatchID,
			Sender:    msg.Sender,
			Text:      msg.Text,
			CreatedAt: msg.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}
