package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// UserStore defines the user persistence operations required by the API layer.
type UserStore interface {
	Create(ctx context.Context, email, username, password string) (postgres.User, error)
	Authenticate(ctx context.Context, username, password string) (postgres.User, error)
	GetByID(ctx context.Context, id int64) (postgres.User, error)
	Update(ctx context.Context, id int64, upd postgres.UserUpdate) (postgres.User, error)
	Search(ctx context.Context, q string, limit int) ([]postgres.User, error)
}

// TokenIssuer mints a signed token for an authenticated user.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// userResponse is the JSON shape for user payloads. The password hash is
// never serialised.
type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
}

func toUserResponse(u postgres.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
	}
}

// AuthHandler serves registration and login endpoints.
type AuthHandler struct {
	users  UserStore
	tokens TokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler backed by the given user store and
// token issuer.
//
// Precondition: users, tokens, and logger must be non-nil.
func NewAuthHandler(users UserStore, tokens TokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email, username, and password are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	start := time.Now()
	u, err := h.users.Create(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrUserExists) {
			writeError(w, http.StatusConflict, "email or username already registered")
			return
		}
		h.logger.Error("registering user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "registering user")
		return
	}

	h.logger.Info("user registered",
		zap.Int64("user_id", u.ID),
		zap.String("username", u.Username),
		zap.Duration("duration", time.Since(start)),
	)
	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login handles POST /api/v1/auth/login. Failed attempts return 401 without
// revealing whether the username exists.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		h.logger.Error("authenticating user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authenticating user")
		return
	}

	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		h.logger.Error("issuing token", zap.Int64("user_id", u.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "issuing token")
		return
	}

	h.logger.Info("user logged in",
		zap.Int64("user_id", u.ID),
		zap.String("username", u.Username),
	)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}
