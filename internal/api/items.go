package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// ItemStore defines the item persistence operations required by the API layer.
type ItemStore interface {
	Create(ctx context.Context, i *postgres.Item) (*postgres.Item, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]*postgres.Item, error)
	GetByID(ctx context.Context, id int64) (*postgres.Item, error)
	Update(ctx context.Context, id int64, i *postgres.Item) (*postgres.Item, error)
	Delete(ctx context.Context, id int64) error
}

// ItemHandler serves equipment and treasure endpoints.
type ItemHandler struct {
	items  ItemStore
	guard  guard
	logger *zap.Logger
}

// NewItemHandler creates an ItemHandler backed by the given stores.
func NewItemHandler(items ItemStore, campaigns CampaignStore, logger *zap.Logger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		guard:  guard{campaigns: campaigns, logger: logger},
		logger: logger,
	}
}

// Create handles POST /api/v1/campaigns/{id}/items.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, ok := h.guard.requireAccess(w, r, campaignID); !ok {
		return
	}

	var i postgres.Item
	if err := decodeJSON(r, &i); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if i.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	i.CampaignID = campaignID

	out, err := h.items.Create(r.Context(), &i)
	if err != nil {
		h.logger.Error("creating item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "creating item")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// List handles GET /api/v1/campaigns/{id}/items.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, ok := h.guard.requireAccess(w, r, campaignID); !ok {
		return
	}

	items, err := h.items.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("listing items", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get handles GET /api/v1/items/{id}.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	i, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, i)
}

// Update handles PUT /api/v1/items/{id}.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	out, err := h.items.Update(r.Context(), existing.ID, &upd)
	if err != nil {
		if errors.Is(err, postgres.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("updating item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "updating item")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/v1/items/{id}. Only the DM may delete.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	i, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.guard.requireDM(w, r, i.CampaignID) {
		return
	}

	if err := h.items.Delete(r.Context(), i.ID); err != nil {
		if errors.Is(err, postgres.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("deleting item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "deleting item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) load(w http.ResponseWriter, r *http.Request) (*postgres.Item, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	i, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return nil, false
		}
		h.logger.Error("fetching item", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching item")
		return nil, false
	}

	if _, ok := h.guard.requireAccess(w, r, i.CampaignID); !ok {
		return nil, false
	}
	return i, true
}
