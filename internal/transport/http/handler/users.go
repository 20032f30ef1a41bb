package handler

import (
	"context"
	"net/http"

	"github.com/biolens/auth-api/internal/domain"
	"github.com/biolens/auth-api/internal/transport/http/middleware"
)

type userGetter interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// UserHandler serves the authenticated user's profile.
type UserHandler struct {
	users userGetter
}

func NewUserHandler(users userGetter) *UserHandler { return &UserHandler{users: users} }

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
