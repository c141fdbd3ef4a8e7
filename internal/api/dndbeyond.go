package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/dndbeyond"
	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// CharacterImporter turns a D&D Beyond character URL into a canonical
// character record.
type CharacterImporter interface {
	Import(ctx context.Context, characterURL, cobaltToken string) (*dndbeyond.Character, error)
	ResolveCharacterID(characterURL string) (string, error)
}

// ImportHandler serves the D&D Beyond character import endpoint.
type ImportHandler struct {
	importer   CharacterImporter
	characters CharacterStore
	campaigns  CampaignStore
	logger     *zap.Logger
}

// NewImportHandler creates an ImportHandler backed by the given importer and
// stores.
//
// Precondition: importer, characters, campaigns, and logger must be non-nil.
func NewImportHandler(importer CharacterImporter, characters CharacterStore, campaigns CampaignStore, logger *zap.Logger) *ImportHandler {
	return &ImportHandler{
		importer:   importer,
		characters: characters,
		campaigns:  campaigns,
		logger:     logger,
	}
}

type importRequest struct {
	CampaignID   int64  `json:"campaign_id"`
	CharacterURL string `json:"character_url"`
	CobaltToken  string `json:"cobalt_token"`
	IsNPC        bool   `json:"is_npc"`
}

// Import handles POST /api/v1/dndbeyond/import. It fetches and normalises
// the character sheet and stores it in the campaign. Import failures map to
// 400 with the importer's message so the client can tell a bad URL from a
// missing session token.
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.CampaignID <= 0 || req.CharacterURL == "" {
		writeError(w, http.StatusBadRequest, "campaign_id and character_url are required")
		return
	}

	userID := UserIDFromContext(r.Context())
	if _, err := campaignRole(r.Context(), h.campaigns, req.CampaignID, userID); err != nil {
		switch {
		case errors.Is(err, postgres.ErrCampaignNotFound):
			writeError(w, http.StatusNotFound, "campaign not found")
		case errors.Is(err, errNoAccess):
			writeError(w, http.StatusForbidden, "not a campaign member")
		default:
			h.logger.Error("campaign access check", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	start := time.Now()
	sheet, err := h.importer.Import(r.Context(), req.CharacterURL, req.CobaltToken)
	if err != nil {
		if errors.Is(err, dndbeyond.ErrImportFailed) {
			writeError(w, http.StatusBadRequest, "%v", err)
			return
		}
		h.logger.Error("importing character",
			zap.String("character_url", req.CharacterURL),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "importing character")
		return
	}

	characterID, err := h.importer.ResolveCharacterID(req.CharacterURL)
	if err != nil {
		// Import already succeeded, so the URL resolved once before.
		h.logger.Error("resolving character id", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "importing character")
		return
	}

	now := time.Now()
	c := &postgres.Character{
		Character:    *sheet,
		CampaignID:   req.CampaignID,
		CreatorID:    userID,
		DndBeyondURL: req.CharacterURL,
		DndBeyondID:  characterID,
		LastSynced:   &now,
		IsNPC:        req.IsNPC,
		IsActive:     true,
	}

	out, err := h.characters.Create(r.Context(), c)
	if err != nil {
		h.logger.Error("storing imported character", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storing character")
		return
	}

	h.logger.Info("character imported",
		zap.Int64("character_id", out.ID),
		zap.Int64("campaign_id", req.CampaignID),
		zap.String("dndbeyond_id", characterID),
		zap.String("name", out.Name),
		zap.Duration("duration", time.Since(start)),
	)
	writeJSON(w, http.StatusCreated, out)
}
