package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// NoteStore defines the note persistence operations required by the API layer.
type NoteStore interface {
	Create(ctx context.Context, n *postgres.Note) (*postgres.Note, error)
	ListByCampaign(ctx context.Context, campaignID int64, includeDMOnly bool) ([]*postgres.Note, error)
	GetByID(ctx context.Context, id int64) (*postgres.Note, error)
	Update(ctx context.Context, id int64, n *postgres.Note) (*postgres.Note, error)
	Delete(ctx context.Context, id int64) error
}

// NoteHandler serves campaign note endpoints. DM-only notes are hidden from
// players and viewers.
type NoteHandler struct {
	notes  NoteStore
	guard  guard
	logger *zap.Logger
}

// NewNoteHandler creates a NoteHandler backed by the given stores.
func NewNoteHandler(notes NoteStore, campaigns CampaignStore, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{
		notes:  notes,
		guard:  guard{campaigns: campaigns, logger: logger},
		logger: logger,
	}
}

// Create handles POST /api/v1/campaigns/{id}/notes. Marking a note DM-only
// requires the DM role.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	role, ok := h.guard.requireAccess(w, r, campaignID)
	if !ok {
		return
	}

	var n postgres.Note
	if err := decodeJSON(r, &n); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if n.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if n.IsDMOnly && role != postgres.RoleDM {
		writeError(w, http.StatusForbidden, "only the DM can create DM-only notes")
		return
	}
	n.CampaignID = campaignID

	out, err := h.notes.Create(r.Context(), &n)
	if err != nil {
		h.logger.Error("creating note", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "creating note")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// List handles GET /api/v1/campaigns/{id}/notes. Non-DM members never see
// DM-only notes.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	role, ok := h.guard.requireAccess(w, r, campaignID)
	if !ok {
		return
	}

	notes, err := h.notes.ListByCampaign(r.Context(), campaignID, role == postgres.RoleDM)
	if err != nil {
		h.logger.Error("listing notes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing notes")
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Get handles GET /api/v1/notes/{id}.
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, _, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Update handles PUT /api/v1/notes/{id}.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, role, ok := h.load(w, r)
	if !ok {
		return
	}

	upd := *existing
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if upd.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if upd.IsDMOnly && role != postgres.RoleDM {
		writeError(w, http.StatusForbidden, "only the DM can mark notes DM-only")
		return
	}

	out, err := h.notes.Update(r.Context(), existing.ID, &upd)
	if err != nil {
		if errors.Is(err, postgres.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error("updating note", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "updating note")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/v1/notes/{id}. Only the DM may delete.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	n, _, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.guard.requireDM(w, r, n.CampaignID) {
		return
	}

	if err := h.notes.Delete(r.Context(), n.ID); err != nil {
		if errors.Is(err, postgres.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return
		}
		h.logger.Error("deleting note", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "deleting note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the note, verifies campaign access, and hides DM-only notes
// from non-DM members.
func (h *NoteHandler) load(w http.ResponseWriter, r *http.Request) (*postgres.Note, string, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid note id")
		return nil, "", false
	}

	n, err := h.notes.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrNoteNotFound) {
			writeError(w, http.StatusNotFound, "note not found")
			return nil, "", false
		}
		h.logger.Error("fetching note", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching note")
		return nil, "", false
	}

	role, ok := h.guard.requireAccess(w, r, n.CampaignID)
	if !ok {
		return nil, "", false
	}
	if n.IsDMOnly && role != postgres.RoleDM {
		// Indistinguishable from a nonexistent note.
		writeError(w, http.StatusNotFound, "note not found")
		return nil, "", false
	}
	return n, role, true
}
