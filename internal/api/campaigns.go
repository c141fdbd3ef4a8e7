package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// CampaignStore defines the campaign persistence operations required by the
// API layer.
type CampaignStore interface {
	Create(ctx context.Context, name, description, setting string, ownerID int64) (postgres.Campaign, error)
	ListForUser(ctx context.Context, userID int64) ([]postgres.Campaign, error)
	GetByID(ctx context.Context, id int64) (postgres.Campaign, error)
	Update(ctx context.Context, id int64, upd postgres.CampaignUpdate) (postgres.Campaign, error)
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, campaignID, userID int64, role string) (postgres.CampaignMember, error)
	RemoveMember(ctx context.Context, campaignID, userID int64) error
	GetMember(ctx context.Context, campaignID, userID int64) (postgres.CampaignMember, error)
}

// errNoAccess is returned by campaignRole when the user is neither the owner
// nor a member of the campaign.
var errNoAccess = errors.New("no campaign access")

// campaignRole resolves the user's role in a campaign. The owner always
// holds the DM role; other users hold their membership role.
func campaignRole(ctx context.Context, campaigns CampaignStore, campaignID, userID int64) (string, error) {
	c, err := campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return "", err
	}
	if c.OwnerID == userID {
		return postgres.RoleDM, nil
	}
	m, err := campaigns.GetMember(ctx, campaignID, userID)
	if err != nil {
		if errors.Is(err, postgres.ErrMemberNotFound) {
			return "", errNoAccess
		}
		return "", err
	}
	return m.Role, nil
}

// pathID parses the named path parameter as a positive integer.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// campaignResponse is the JSON shape for campaign payloads.
type campaignResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Setting     string `json:"setting"`
	IsActive    bool   `json:"is_active"`
	OwnerID     int64  `json:"owner_id"`
}

func toCampaignResponse(c postgres.Campaign) campaignResponse {
	return campaignResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Setting:     c.Setting,
		IsActive:    c.IsActive,
		OwnerID:     c.OwnerID,
	}
}

// CampaignHandler serves campaign CRUD and membership endpoints.
type CampaignHandler struct {
	campaigns CampaignStore
	logger    *zap.Logger
}

// NewCampaignHandler creates a CampaignHandler backed by the given store.
//
// Precondition: campaigns and logger must be non-nil.
func NewCampaignHandler(campaigns CampaignStore, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns, logger: logger}
}

type createCampaignRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Setting     string `json:"setting"`
}

// Create handles POST /api/v1/campaigns.
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := UserIDFromContext(r.Context())
	c, err := h.campaigns.Create(r.Context(), req.Name, req.Description, req.Setting, userID)
	if err != nil {
		h.logger.Error("creating campaign", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "creating campaign")
		return
	}

	h.logger.Info("campaign created",
		zap.Int64("campaign_id", c.ID),
		zap.Int64("owner_id", userID),
	)
	writeJSON(w, http.StatusCreated, toCampaignResponse(c))
}

// List handles GET /api/v1/campaigns. It returns every campaign the caller
// owns or is a member of.
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := UserIDFromContext(r.Context())
	campaigns, err := h.campaigns.ListForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing campaigns", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "listing campaigns")
		return
	}

	out := make([]campaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		out = append(out, toCampaignResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/campaigns/{id}.
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}

	if _, err := campaignRole(r.Context(), h.campaigns, id, UserIDFromContext(r.Context())); err != nil {
		h.accessError(w, err)
		return
	}

	c, err := h.campaigns.GetByID(r.Context(), id)
	if err != nil {
		h.accessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

type updateCampaignRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Setting     *string `json:"setting"`
	IsActive    *bool   `json:"is_active"`
}

// Update handles PUT /api/v1/campaigns/{id}. Only the DM may update.
func (h *CampaignHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if !h.requireDM(w, r, id) {
		return
	}

	var req updateCampaignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	c, err := h.campaigns.Update(r.Context(), id, postgres.CampaignUpdate{
		Name:        req.Name,
		Description: req.Description,
		Setting:     req.Setting,
		IsActive:    req.IsActive,
	})
	if err != nil {
		h.accessError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCampaignResponse(c))
}

// Delete handles DELETE /api/v1/campaigns/{id}. Only the DM may delete.
func (h *CampaignHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if !h.requireDM(w, r, id) {
		return
	}

	if err := h.campaigns.Delete(r.Context(), id); err != nil {
		h.accessError(w, err)
		return
	}
	h.logger.Info("campaign deleted", zap.Int64("campaign_id", id))
	w.WriteHeader(http.StatusNoContent)
}

type addMemberRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

type memberResponse struct {
	ID         int64  `json:"id"`
	CampaignID int64  `json:"campaign_id"`
	UserID     int64  `json:"user_id"`
	Role       string `json:"role"`
}

// AddMember handles POST /api/v1/campaigns/{id}/members. Only the DM may add.
func (h *CampaignHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	if !h.requireDM(w, r, id) {
		return
	}

	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	if req.Role == "" {
		req.Role = postgres.RolePlayer
	}

	m, err := h.campaigns.AddMember(r.Context(), id, req.UserID, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "invalid role %q", req.Role)
		case errors.Is(err, postgres.ErrMemberExists):
			writeError(w, http.StatusConflict, "user is already a member")
		default:
			h.logger.Error("adding campaign member", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "adding member")
		}
		return
	}

	writeJSON(w, http.StatusCreated, memberResponse{
		ID:         m.ID,
		CampaignID: m.CampaignID,
		UserID:     m.UserID,
		Role:       m.Role,
	})
}

// RemoveMember handles DELETE /api/v1/campaigns/{id}/members/{userID}.
// Only the DM may remove members.
func (h *CampaignHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	memberID, ok := pathID(r, "userID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if !h.requireDM(w, r, id) {
		return
	}

	if err := h.campaigns.RemoveMember(r.Context(), id, memberID); err != nil {
		if errors.Is(err, postgres.ErrMemberNotFound) {
			writeError(w, http.StatusNotFound, "member not found")
			return
		}
		h.logger.Error("removing campaign member", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "removing member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireDM verifies the caller holds the DM role, writing the error
// response itself when not. Returns true when the caller may proceed.
func (h *CampaignHandler) requireDM(w http.ResponseWriter, r *http.Request, campaignID int64) bool {
	role, err := campaignRole(r.Context(), h.campaigns, campaignID, UserIDFromContext(r.Context()))
	if err != nil {
		h.accessError(w, err)
		return false
	}
	if role != postgres.RoleDM {
		writeError(w, http.StatusForbidden, "requires the DM role")
		return false
	}
	return true
}

// accessError maps store and guard errors to HTTP responses.
func (h *CampaignHandler) accessError(w http.ResponseWriter, err error) {
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
