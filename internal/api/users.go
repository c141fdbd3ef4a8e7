package api

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

const defaultUserSearchLimit = 20

// UserHandler serves profile and user search endpoints.
type UserHandler struct {
	users  UserStore
	logger *zap.Logger
}

// NewUserHandler creates a UserHandler backed by the given store.
//
// Precondition: users and logger must be non-nil.
func NewUserHandler(users UserStore, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, postgres.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("fetching user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching user")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Username *string `json:"username"`
	Password *string `json:"password"`
}

// UpdateMe handles PUT /api/v1/users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Password != nil && len(*req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	u, err := h.users.Update(r.Context(), UserIDFromContext(r.Context()), postgres.UserUpdate{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "user not found")
		case errors.Is(err, postgres.ErrUserExists):
			writeError(w, http.StatusConflict, "email or username already in use")
		default:
			h.logger.Error("updating user", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "updating user")
		}
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Search handles GET /api/v1/users/search?q=...&limit=N.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	limit := defaultUserSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	users, err := h.users.Search(r.Context(), q, limit)
	if err != nil {
		h.logger.Error("searching users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "searching users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, out)
}
