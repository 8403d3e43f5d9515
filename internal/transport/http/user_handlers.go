package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/studybuddy/studybuddy-server/internal/store"
)

const (
	defaultDiscoverLimit = 20
	maxDiscoverLimit     = 100
)

// UserHandlers provides HTTP handlers for profile and discovery endpoints.
type UserHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UpdateProfileRequest represents the profile update request body.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	Name         *string         `json:"name,omitempty"`
	Bio          *string         `json:"bio,omitempty"`
	Subjects     []store.Subject `json:"subjects,omitempty"`
	Availability []string        `json:"availability,omitempty"`
}

// UpdateProfile handles partial profile updates.
// PUT /api/users/profile
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid profile update request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name != nil && (*req.Name == "" || len(*req.Name) > 64) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name must be 1-64 characters"})
		return
	}

	update := store.ProfileUpdate{
		Name:         req.Name,
		Bio:          req.Bio,
		Subjects:     req.Subjects,
		Availability: req.Availability,
	}

	user, err := h.store.UpdateProfile(c.Request.Context(), uid, update)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to update profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("user_id", uid).Msg("profile updated")
	c.JSON(http.StatusOK, user.PublicProfile())
}

// Discover lists other users available for swiping.
// GET /api/users/discover?limit=20
func (h *UserHandlers) Discover(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit := parseLimit(c.Query("limit"))

	users, err := h.store.ListUsers(c.Request.Context(), uid, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, profilesOf(users))
}

// Recommended lists users sharing at least one subject with the caller.
// GET /api/users/recommended?limit=20
func (h *UserHandlers) Recommended(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	me, err := h.store.GetUserByID(c.Request.Context(), uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to load user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	limit := parseLimit(c.Query("limit"))

	// No subjects yet, fall back to plain discovery.
	if len(me.Subjects) == 0 {
		users, listErr := h.store.ListUsers(c.Request.Context(), uid, limit)
		if listErr != nil {
			h.log.Error().Err(listErr).Str("user_id", uid).Msg("failed to list users")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		c.JSON(http.StatusOK, profilesOf(users))
		return
	}

	names := make([]string, 0, len(me.Subjects))
	for _, s := range me.Subjects {
		names = append(names, s.Name)
	}

	users, err := h.store.ListUsersBySubjects(c.Request.Context(), uid, names, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to list recommended users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, profilesOf(users))
}

func parseLimit(raw string) int {
	if raw == "" {
		return defaultDiscoverLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultDiscoverLimit
	}
	if n > maxDiscoverLimit {
		return maxDiscoverLimit
	}
	return n
}

func profilesOf(users []*store.User) []*store.Profile {
	profiles := make([]*store.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.PublicProfile())
	}
	return profiles
}
