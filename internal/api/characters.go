package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/dndbeyond"
	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// CharacterStore defines the character persistence operations required by
// the API layer.
type CharacterStore interface {
	Create(ctx context.Context, c *postgres.Character) (*postgres.Character, error)
	ListByCampaign(ctx context.Context, campaignID int64) ([]*postgres.Character, error)
	GetByID(ctx context.Context, id int64) (*postgres.Character, error)
	Update(ctx context.Context, id int64, c *postgres.Character) (*postgres.Character, error)
	Delete(ctx context.Context, id int64) error
}

// CharacterHandler serves character sheet endpoints.
type CharacterHandler struct {
	characters CharacterStore
	campaigns  CampaignStore
	logger     *zap.Logger
}

// NewCharacterHandler creates a CharacterHandler backed by the given stores.
//
// Precondition: characters, campaigns, and logger must be non-nil.
func NewCharacterHandler(characters CharacterStore, campaigns CampaignStore, logger *zap.Logger) *CharacterHandler {
	return &CharacterHandler{characters: characters, campaigns: campaigns, logger: logger}
}

type characterRequest struct {
	dndbeyond.Character

	IsNPC    bool  `json:"is_npc"`
	IsActive *bool `json:"is_active"`
}

// Create handles POST /api/v1/campaigns/{id}/characters. Missing sheet
// fields take the canonical defaults so a bare name is a valid character.
func (h *CharacterHandler) Create(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	userID := UserIDFromContext(r.Context())
	if _, err := campaignRole(r.Context(), h.campaigns, campaignID, userID); err != nil {
		h.accessError(w, err)
		return
	}

	req := characterRequest{Character: *dndbeyond.NewCharacter()}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	c := &postgres.Character{
		Character:  req.Character,
		CampaignID: campaignID,
		CreatorID:  userID,
		IsNPC:      req.IsNPC,
		IsActive:   true,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	out, err := h.characters.Create(r.Context(), c)
	if err != nil {
		h.logger.Error("creating character", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "creating character")
		return
	}

	h.logger.Info("character created",
		zap.Int64("character_id", out.ID),
		zap.Int64("campaign_id", campaignID),
		zap.String("name", out.Name),
	)
	writeJSON(w, http.StatusCreated, out)
}

// List handles GET /api/v1/campaigns/{id}/characters.
func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if _, err := campaignRole(r.Context(), h.campaigns, campaignID, UserIDFromContext(r.Context())); err != nil {
		h.accessError(w, err)
		return
	}

	chars, err := h.characters.ListByCampaign(r.Context(), campaignID)
	if err != nil {
		h.logger.Error("listing characters", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing characters")
		return
	}
	writeJSON(w, http.StatusOK, chars)
}

// Get handles GET /api/v1/characters/{id}.
func (h *CharacterHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadWithAccess(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PUT /api/v1/characters/{id}. The full sheet is replaced.
func (h *CharacterHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadWithAccess(w, r)
	if !ok {
		return
	}

	req := characterRequest{Character: existing.Character, IsNPC: existing.IsNPC}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	upd := &postgres.Character{
		Character: req.Character,
		IsNPC:     req.IsNPC,
		IsActive:  existing.IsActive,
	}
	if req.IsActive != nil {
		upd.IsActive = *req.IsActive
	}

	out, err := h.characters.Update(r.Context(), existing.ID, upd)
	if err != nil {
		if errors.Is(err, postgres.ErrCharacterNotFound) {
			writeError(w, http.StatusNotFound, "character not found")
			return
		}
		h.logger.Error("updating character", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "updating character")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/v1/characters/{id}. Only the creator or the
// campaign DM may delete.
func (h *CharacterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := h.loadWithAccess(w, r)
	if !ok {
		return
	}

	userID := UserIDFromContext(r.Context())
	if c.CreatorID != userID {
		role, err := campaignRole(r.Context(), h.campaigns, c.CampaignID, userID)
		if err != nil || role != postgres.RoleDM {
			writeError(w, http.StatusForbidden, "requires the creator or the DM role")
			return
		}
	}

	if err := h.characters.Delete(r.Context(), c.ID); err != nil {
		if errors.Is(err, postgres.ErrCharacterNotFound) {
			writeError(w, http.StatusNotFound, "character not found")
			return
		}
		h.logger.Error("deleting character", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "deleting character")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadWithAccess fetches the character from the {id} path parameter and
// verifies campaign access, writing the error response itself on failure.
func (h *CharacterHandler) loadWithAccess(w http.ResponseWriter, r *http.Request) (*postgres.Character, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid character id")
		return nil, false
	}

	c, err := h.characters.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrCharacterNotFound) {
			writeError(w, http.StatusNotFound, "character not found")
			return nil, false
		}
		h.logger.Error("fetching character", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "fetching character")
		return nil, false
	}

	if _, err := campaignRole(r.Context(), h.campaigns, c.CampaignID, UserIDFromContext(r.Context())); err != nil {
		h.accessError(w, err)
		return nil, false
	}
	return c, true
}

func (h *CharacterHandler) accessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, postgres.ErrCampaignNotFound):
		writeError(w, http.StatusNotFound, "campaign not found")
	case errors.Is(err, errNoAccess):
		writeError(w, http.StatusForbidden, "not a campaign member")
	default:
		h.logger.Error("campaign access check", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
