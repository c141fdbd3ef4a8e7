package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// SessionStore defines the session persistence operations required by the API layer.
type SessionStore interface {
	Create(ctx context.Context, s *postgres.Session) (*postgres.Session, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]*postgres.Session, error)
	GetByID(ctx context.Context, id int64) (*postgres.Session, error)
	Update(ctx context.Context, id int64, s *postgres.Session) (*postgres.Session, error)
	Delete(ctx context.Context, id int64) error
}

// SessionHandler serves play session log endpoints.
type SessionHandler struct {
	sessions SessionStore
	guard    guard
	logger   *zap.Logger
}

// NewSessionHandler creates a SessionHandler backed by the given stores.
func NewSessionHandler(sessions SessionStore, campaigns CampaignStore, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		guard:    guard{campaigns: campaigns, logger: logger},
		logger:   logger,
	}
}

// Create handles POST /api/v1/campaigns/{id}/sessions. Only the DM logs sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if !h.guard.requireDM(w, r, campaignID) {
		return
	}

	var s postgres.Session
	if err := decodeJSON(r, &s); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if s.SessionNumber <= 0 {
		writeError(w, http.StatusBadRequest, "session_number must be positive")
		return
	}
	s.CampaignID = campaignID

	out, err := h.sessions.Create(r.Context(), &s)
	if err != nil {
		h.logger.Error("creating session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "creating session")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// List handles GET /api/v1/campaigns/{id}/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, ok := h.guard.requireAccess(w, r, campaignID); !ok {
		return
	}

	sessions, err := h.sessions.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("listing sessions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Update handles PUT /api/v1/sessions/{id}. Only the DM may update.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.guard.requireDM(w, r, existing.CampaignID) {
		return
	}

	upd := *existing
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if upd.SessionNumber <= 0 {
		writeError(w, http.StatusBadRequest, "session_number must be positive")
		return
	}

	out, err := h.sessions.Update(r.Context(), existing.ID, &upd)
	if err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("updating session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "updating session")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/v1/sessions/{id}. Only the DM may delete.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.guard.requireDM(w, r, s.CampaignID) {
		return
	}

	if err := h.sessions.Delete(r.Context(), s.ID); err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("deleting session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "deleting session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) load(w http.ResponseWriter, r *http.Request) (*postgres.Session, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}

	s, err := h.sessions.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return nil, false
		}
		h.logger.Error("fetching session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching session")
		return nil, false
	}

	if _, ok := h.guard.requireAccess(w, r, s.CampaignID); !ok {
		return nil, false
	}
	return s, true
}
