package handlers

import (
	"context"
	"net/http"

	"github.com/hongminglow/parkshare/internal/apperr"
	"github.com/hongminglow/parkshare/internal/http/respond"
	"github.com/hongminglow/parkshare/internal/middleware"
	"github.com/hongminglow/parkshare/internal/models"
	"github.com/hongminglow/parkshare/internal/models/dto"
)

// ProfileService reads a user's standing and credit history.
type ProfileService interface {
	Profile(ctx context.Context, userID int64) (models.UserSummary, error)
	History(ctx context.Context, userID int64, limit int) ([]models.LedgerEntry, error)
}

// UserHandler serves the authenticated user's own data.
type UserHandler struct {
	profiles ProfileService
	tokens   middleware.TokenParser
}

// NewUserHandler constructs the handler.
func NewUserHandler(profiles ProfileService, tokens middleware.TokenParser) *UserHandler {
	return &UserHandler{profiles: profiles, tokens: tokens}
}

// Register attaches user routes to the mux.
func (h *UserHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/user/profile", middleware.RequireAuth(h.tokens, http.HandlerFunc(h.handleProfile)))
	mux.Handle("GET /api/user/ledger", middleware.RequireAuth(h.tokens, http.HandlerFunc(h.handleLedger)))
}

func (h *UserHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	summary, err := h.profiles.Profile(r.Context(), userID)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", dto.ProfileResponse{User: summary})
}

func (h *UserHandler) handleLedger(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	limit, err := queryInt(r, "limit", 0, apperr.ReasonInvalidRequest)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	entries, err := h.profiles.History(r.Context(), userID, limit)
	if err != nil {
		respond.Fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "ok", dto.LedgerResponse{Entries: entries})
}
