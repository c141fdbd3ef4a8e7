package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// PlaceStore defines the place persistence operations required by the API layer.
type PlaceStore interface {
	Create(ctx context.Context, p *postgres.Place) (*postgres.Place, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]*postgres.Place, error)
	GetByID(ctx context.Context, id int64) (*postgres.Place, error)
	Update(ctx context.Context, id int64, p *postgres.Place) (*postgres.Place, error)
	Delete(ctx context.Context, id int64) error
}

// PlaceHandler serves world location endpoints.
type PlaceHandler struct {
	places PlaceStore
	guard  guard
	logger *zap.Logger
}

// NewPlaceHandler creates a PlaceHandler backed by the given stores.
func NewPlaceHandler(places PlaceStore, campaigns CampaignStore, logger *zap.Logger) *PlaceHandler {
	return &PlaceHandler{
		places: places,
		guard:  guard{campaigns: campaigns, logger: logger},
		logger: logger,
	}
}

// Create handles POST /api/v1/campaigns/{id}/places.
func (h *PlaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, ok := h.guard.requireAccess(w, r, campaignID); !ok {
		return
	}

	var p postgres.Place
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p.CampaignID = campaignID

	out, err := h.places.Create(r.Context(), &p)
	if err != nil {
		h.logger.Error("creating place", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "creating place")
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// List handles GET /api/v1/campaigns/{id}/places.
func (h *PlaceHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, ok := h.guard.requireAccess(w, r, campaignID); !ok {
		return
	}

	places, err := h.places.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("listing places", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing places")
		return
	}
	writeJSON(w, http.StatusOK, places)
}

// Get handles GET /api/v1/places/{id}.
func (h *PlaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/v1/places/{id}.
func (h *PlaceHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	out, err := h.places.Update(r.Context(), existing.ID, &upd)
	if err != nil {
		if errors.Is(err, postgres.ErrPlaceNotFound) {
			writeError(w, http.StatusNotFound, "place not found")
			return
		}
		h.logger.Error("updating place", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "updating place")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/v1/places/{id}. Only the DM may delete.
func (h *PlaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := h.load(w, r)
	if !ok {
		return
	}
	if !h.guard.requireDM(w, r, p.CampaignID) {
		return
	}

	if err := h.places.Delete(r.Context(), p.ID); err != nil {
		if errors.Is(err, postgres.ErrPlaceNotFound) {
			writeError(w, http.StatusNotFound, "place not found")
			return
		}
		h.logger.Error("deleting place", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "deleting place")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaceHandler) load(w http.ResponseWriter, r *http.Request) (*postgres.Place, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid place id")
		return nil, false
	}

	p, err := h.places.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrPlaceNotFound) {
			writeError(w, http.StatusNotFound, "place not found")
			return nil, false
		}
		h.logger.Error("fetching place", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching place")
		return nil, false
	}

	if _, ok := h.guard.requireAccess(w, r, p.CampaignID); !ok {
		return nil, false
	}
	return p, true
}
