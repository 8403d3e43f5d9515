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

// MatchHandlers provides HTTP handlers for swipe and match endpoints.
type MatchHandlers struct {
	matches *match.Service
	log     *zerolog.Logger
}

// NewMatchHandlers creates a new match handlers instance.
func NewMatchHandlers(matchService *match.Service, logger *zerolog.Logger) *MatchHandlers {
	return &MatchHandlers{
		matches: matchService,
		log:     logger,
	}
}

// SwipeRequest represents the swipe request body.
type SwipeRequest struct {
	TargetID string `json:"target_id" binding:"required"`
}

// MatchView represents a match in API responses.
type MatchView struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// SwipeResponse represents the swipe response body.
type SwipeResponse struct {
	Status string     `json:"status"`
	Match  *MatchView `json:"match,omitempty"`
}

// MatchSummaryView represents a matched pair in list responses.
type MatchSummaryView struct {
	MatchID   string         `json:"matchId"`
	OtherUser *store.Profile `json:"otherUser"`
	CreatedAt time.Time      `json:"createdAt"`
}

// PendingSwipeView represents an incoming pending swipe.
type PendingSwipeView struct {
	MatchID   string         `json:"matchId"`
	From      *store.Profile `json:"from"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Swipe records a right-swipe on another user.
// POST /api/matches/swipe
func (h *MatchHandlers) Swipe(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid swipe request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.matches.Swipe(c.Request.Context(), uid, req.TargetID)
	if err != nil {
		switch {
		case errors.Is(err, match.ErrSelfSwipe):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot swipe on yourself"})
		case errors.Is(err, match.ErrUserNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		default:
			h.log.Error().Err(err).Str("user_id", uid).Str("target_id", req.TargetID).Msg("swipe failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().
		Str("user_id", uid).
		Str("target_id", req.TargetID).
		Str("status", string(result.Status)).
		Msg("swipe recorded")

	c.JSON(http.StatusOK, SwipeResponse{
		Status: string(result.Status),
		Match: &MatchView{
			ID:        result.Match.ID,
			Status:    string(result.Match.Status),
			CreatedAt: result.Match.CreatedAt,
		},
	})
}

// ListMatches lists confirmed matches for the caller.
// GET /api/matches
func (h *MatchHandlers) ListMatches(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	summaries, err := h.matches.ListMatches(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to list matches")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MatchSummaryView, 0, len(summaries))
	for _, s := range summaries {
		response = append(response, MatchSummaryView{
			MatchID:   s.MatchID,
			OtherUser: s.OtherUser,
			CreatedAt: s.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}

// ListPending lists incoming pending swipes for the caller.
// GET /api/matches/pending
func (h *MatchHandlers) ListPending(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	pending, err := h.matches.ListPendingIncoming(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to list pending swipes")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]PendingSwipeView, 0, len(pending))
	for _, p := range pending {
		response = append(response, PendingSwipeView{
			MatchID:   p.MatchID,
			From:      p.From,
			CreatedAt: p.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, response)
}
