package api

import (
	"net/http"

	"go.uber.org/zap"
)

// TokenManager combines token issuing and verification, matching the auth
// package's Manager.
type TokenManager interface {
	TokenIssuer
	TokenVerifier
}

// Stores bundles the persistence dependencies of the router.
type Stores struct {
	Users      UserStore
	Campaigns  CampaignStore
	Characters CharacterStore
	Places     PlaceStore
	Items      ItemStore
	Quests     QuestStore
	Sessions   SessionStore
	Notes      NoteStore
}

// NewRouter assembles the HTTP handler tree: health check, auth endpoints,
// and the authenticated /api/v1 surface.
//
// Precondition: all stores, tokens, importer, and logger must be non-nil.
func NewRouter(stores Stores, tokens TokenManager, importer CharacterImporter, logger *zap.Logger) http.Handler {
	authHandler := NewAuthHandler(stores.Users, tokens, logger)
	userHandler := NewUserHandler(stores.Users, logger)
	campaignHandler := NewCampaignHandler(stores.Campaigns, logger)
	characterHandler := NewCharacterHandler(stores.Characters, stores.Campaigns, logger)
	placeHandler := NewPlaceHandler(stores.Places, stores.Campaigns, logger)
	itemHandler := NewItemHandler(stores.Items, stores.Campaigns, logger)
	questHandler := NewQuestHandler(stores.Quests, stores.Campaigns, logger)
	sessionHandler := NewSessionHandler(stores.Sessions, stores.Campaigns, logger)
	noteHandler := NewNoteHandler(stores.Notes, stores.Campaigns, logger)
	importHandler := NewImportHandler(importer, stores.Characters, stores.Campaigns, logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	authed := http.NewServeMux()

	authed.HandleFunc("GET /api/v1/users/me", userHandler.Me)
	authed.HandleFunc("PUT /api/v1/users/me", userHandler.UpdateMe)
	authed.HandleFunc("GET /api/v1/users/search", userHandler.Search)

	authed.HandleFunc("POST /api/v1/campaigns", campaignHandler.Create)
	authed.HandleFunc("GET /api/v1/campaigns", campaignHandler.List)
	authed.HandleFunc("GET /api/v1/campaigns/{id}", campaignHandler.Get)
	authed.HandleFunc("PUT /api/v1/campaigns/{id}", campaignHandler.Update)
	authed.HandleFunc("DELETE /api/v1/campaigns/{id}", campaignHandler.Delete)
	authed.HandleFunc("POST /api/v1/campaigns/{id}/members", campaignHandler.AddMember)
	authed.HandleFunc("DELETE /api/v1/campaigns/{id}/members/{userID}", campaignHandler.RemoveMember)

	authed.HandleFunc("POST /api/v1/campaigns/{id}/characters", characterHandler.Create)
	authed.HandleFunc("GET /api/v1/campaigns/{id}/characters", characterHandler.List)
	authed.HandleFunc("GET /api/v1/characters/{id}", characterHandler.Get)
	authed.HandleFunc("PUT /api/v1/characters/{id}", characterHandler.Update)
	authed.HandleFunc("DELETE /api/v1/characters/{id}", characterHandler.Delete)

	authed.HandleFunc("POST /api/v1/campaigns/{id}/places", placeHandler.Create)
	authed.HandleFunc("GET /api/v1/campaigns/{id}/places", placeHandler.List)
	authed.HandleFunc("GET /api/v1/places/{id}", placeHandler.Get)
	authed.HandleFunc("PUT /api/v1/places/{id}", placeHandler.Update)
	authed.HandleFunc("DELETE /api/v1/places/{id}", placeHandler.Delete)

	authed.HandleFunc("POST /api/v1/campaigns/{id}/items", itemHandler.Create)
	authed.HandleFunc("GET /api/v1/campaigns/{id}/items", itemHandler.List)
	authed.HandleFunc("GET /api/v1/items/{id}", itemHandler.Get)
	authed.HandleFunc("PUT /api/v1/items/{id}", itemHandler.Update)
	authed.HandleFunc("DELETE /api/v1/items/{id}", itemHandler.Delete)

	authed.HandleFunc("POST /api/v1/campaigns/{id}/quests", questHandler.Create)
	authed.HandleFunc("GET /api/v1/campaigns/{id}/quests", questHandler.List)
	authed.HandleFunc("GET /api/v1/quests/{id}", questHandler.Get)
	authed.HandleFunc("PUT /api/v1/quests/{id}", questHandler.Update)
	authed.HandleFunc("DELETE /api/v1/quests/{id}", questHandler.Delete)

	authed.HandleFunc("POST /api/v1/campaigns/{id}/sessions", sessionHandler.Create)
	authed.HandleFunc("GET /api/v1/campaigns/{id}/sessions", sessionHandler.List)
	authed.HandleFunc("GET /api/v1/sessions/{id}", sessionHandler.Get)
	authed.HandleFunc("PUT /api/v1/sessions/{id}", sessionHandler.Update)
	authed.HandleFunc("DELETE /api/v1/sessions/{id}", sessionHandler.Delete)

	authed.HandleFunc("POST /api/v1/campaigns/{id}/notes", noteHandler.Create)
	authed.HandleFunc("GET /api/v1/campaigns/{id}/notes", noteHandler.List)
	authed.HandleFunc("GET /api/v1/notes/{id}", noteHandler.Get)
	authed.HandleFunc("PUT /api/v1/notes/{id}", noteHandler.Update)
	authed.HandleFunc("DELETE /api/v1/notes/{id}", noteHandler.Delete)

	authed.HandleFunc("POST /api/v1/dndbeyond/import", importHandler.Import)

	mux.Handle("/api/v1/", requireAuth(tokens, authed))

	return withLogging(logger, mux)
}
