package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// guard bundles the campaign access checks shared by the content handlers.
type guard struct {
	campaigns CampaignStore
	logger    *zap.Logger
}

// requireAccess verifies the caller can see the campaign and returns their
// role. It writes the error response itself when access is denied.
func (g *guard) requireAccess(w http.ResponseWriter, r *http.Request, campaignID int64) (string, bool) {
	role, err := campaignRole(r.Context(), g.campaigns, campaignID, UserIDFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, postgres.ErrCampaignNotFound):
			writeError(w, http.StatusNotFound, "campaign not found")
		case errors.Is(err, errNoAccess):
			writeError(w, http.StatusForbidden, "not a campaign member")
		default:
			g.logger.Error("campaign access check", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return "", false
	}
	return role, true
}

// requireDM verifies the caller holds the DM role in the campaign.
func (g *guard) requireDM(w http.ResponseWriter, r *http.Request, campaignID int64) bool {
	role, ok := g.requireAccess(w, r, campaignID)
	if !ok {
		return false
	}
	if role != postgres.RoleDM {
		writeError(w, http.StatusForbidden, "requires the DM role")
		return false
	}
	return true
}
