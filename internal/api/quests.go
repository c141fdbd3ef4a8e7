package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// QuestStore defines the quest persistence operations required by the API layer.
type QuestStore interface {
	Create(ctx context.Context, q *postgres.Quest) (*postgres.Quest, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]*postgres.Quest, error)
	GetByID(ctx context.Context, id int64) (*postgres.Quest, error)
	Update(ctx context.Context, id int64, q *postgres.Quest) (*postgres.Quest, error)
	Delete(ctx context.Context, id int64) error
}

// QuestHandler serves quest tracking endpoints.
type QuestHandler struct {
	quests QuestStore
	guard  guard
	logger *zap.Logger
}

// NewQuestHandler creates a QuestHandler backed by the given stores.
func NewQuestHandler(quests QuestStore, campaigns CampaignStore, logger *zap.Logger) *QuestHandler {
	return &QuestHandler{
		quests: quests,
		guard:  guard{campaigns: campaigns, logger: logger},
		logger: logger,
	}
}

// Create handles POST /api/v1/campaigns/{id}/quests.
func (h *QuestHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, ok := h.guard.requireAccess(w, r, campaignID); !ok {
		return
	}

	var q postgres.Quest
	if err := decodeJSON(r, &q); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if q.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	q.CampaignID = campaignID

	out, err := h.quests.Create(r.Context(), &q)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidQuestStatus) {
			writeError(w, http.StatusBadRequest, "invalid status %q", q.Status)
			return
		}
		h.logger.Error("creating quest", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "creating quest")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// List handles GET /api/v1/campaigns/{id}/quests.
func (h *QuestHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, ok := h.guard.requireAccess(w, r, campaignID); !ok {
		return
	}

	quests, err := h.quests.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("listing quests", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing quests")
		return
	}
	writeJSON(w, http.StatusOK, quests)
}

// Get handles GET /api/v1/quests/{id}.
func (h *QuestHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Update handles PUT /api/v1/quests/{id}.
func (h *QuestHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.load(w, r)
	if !ok {
		return
	}

	upd := *existing
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if upd.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	out, err := h.quests.Update(r.Context(), existing.ID, &upd)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrQuestNotFound):
			writeError(w, http.StatusNotFound, "quest not found")
		case errors.Is(err, postgres.ErrInvalidQuestStatus):
			writeError(w, http.StatusBadRequest, "invalid status %q", upd.Status)
		default:
			h.logger.Error("updating quest", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "updating quest")
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/v1/quests/{id}. Only the DM may delete.
func (h *QuestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.guard.requireDM(w, r, q.CampaignID) {
		return
	}

	if err := h.quests.Delete(r.Context(), q.ID); err != nil {
		if errors.Is(err, postgres.ErrQuestNotFound) {
			writeError(w, http.StatusNotFound, "quest not found")
			return
		}
		h.logger.Error("deleting quest", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "deleting quest")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuestHandler) load(w http.ResponseWriter, r *http.Request) (*postgres.Quest, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid quest id")
		return nil, false
	}

	q, err := h.quests.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrQuestNotFound) {
			writeError(w, http.StatusNotFound, "quest not found")
			return nil, false
		}
		h.logger.Error("fetching quest", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching quest")
		return nil, false
	}

	if _, ok := h.guard.requireAccess(w, r, q.CampaignID); !ok {
		return nil, false
	}
	return q, true
}
