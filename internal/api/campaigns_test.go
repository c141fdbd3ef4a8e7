package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// mockCampaignStore implements CampaignStore for testing.
type mockCampaignStore struct {
	campaigns map[int64]postgres.Campaign
	members   map[int64]map[int64]postgres.CampaignMember
	nextID    int64
}

func newMockCampaignStore() *mockCampaignStore {
	return &mockCampaignStore{
		campaigns: make(map[int64]postgres.Campaign),
		members:   make(map[int64]map[int64]postgres.CampaignMember),
	}
}

func (m *mockCampaignStore) Create(_ context.Context, name, description, setting string, ownerID int64) (postgres.Campaign, error) {
	m.nextID++
	c := postgres.Campaign{
		ID:          m.nextID,
		Name:        name,
		Description: description,
		Setting:     setting,
		IsActive:    true,
		OwnerID:     ownerID,
		CreatedAt:   time.Now(),
	}
	m.campaigns[c.ID] = c
	return c, nil
}

func (m *mockCampaignStore) ListForUser(_ context.Context, userID int64) ([]postgres.Campaign, error) {
	out := make([]postgres.Campaign, 0)
	for _, c := range m.campaigns {
		if c.OwnerID == userID {
			out = append(out, c)
			continue
		}
		if _, ok := m.members[c.ID][userID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCampaignStore) GetByID(_ context.Context, id int64) (postgres.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return postgres.Campaign{}, postgres.ErrCampaignNotFound
	}
	return c, nil
}

func (m *mockCampaignStore) Update(_ context.Context, id int64, upd postgres.CampaignUpdate) (postgres.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return postgres.Campaign{}, postgres.ErrCampaignNotFound
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.Description != nil {
		c.Description = *upd.Description
	}
	if upd.Setting != nil {
		c.Setting = *upd.Setting
	}
	if upd.IsActive != nil {
		c.IsActive = *upd.IsActive
	}
	m.campaigns[id] = c
	return c, nil
}

func (m *mockCampaignStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.campaigns[id]; !ok {
		return postgres.ErrCampaignNotFound
	}
	delete(m.campaigns, id)
	return nil
}

func (m *mockCampaignStore) AddMember(_ context.Context, campaignID, userID int64, role string) (postgres.CampaignMember, error) {
	if !postgres.ValidRole(role) {
		return postgres.CampaignMember{}, postgres.ErrInvalidRole
	}
	if m.members[campaignID] == nil {
		m.members[campaignID] = make(map[int64]postgres.CampaignMember)
	}
	if _, ok := m.members[campaignID][userID]; ok {
		return postgres.CampaignMember{}, postgres.ErrMemberExists
	}
	mem := postgres.CampaignMember{
		ID:         int64(len(m.members[campaignID]) + 1),
		CampaignID: campaignID,
		UserID:     userID,
		Role:       role,
		JoinedAt:   time.Now(),
	}
	m.members[campaignID][userID] = mem
	return mem, nil
}

func (m *mockCampaignStore) RemoveMember(_ context.Context, campaignID, userID int64) error {
	if _, ok := m.members[campaignID][userID]; !ok {
		return postgres.ErrMemberNotFound
	}
	delete(m.members[campaignID], userID)
	return nil
}

func (m *mockCampaignStore) GetMember(_ context.Context, campaignID, userID int64) (postgres.CampaignMember, error) {
	mem, ok := m.members[campaignID][userID]
	if !ok {
		return postgres.CampaignMember{}, postgres.ErrMemberNotFound
	}
	return mem, nil
}

// authedRequest builds a request carrying the given user ID and optional
// path values.
func authedRequest(t *testing.T, method, target string, body any, userID int64, pathValues map[string]string) *http.Request {
	t.Helper()
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rd)
	req = req.WithContext(context.WithValue(req.Context(), userIDKey, userID))
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

func TestCampaignCreateAndGet(t *testing.T) {
	store := newMockCampaignStore()
	h := NewCampaignHandler(store, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(t, http.MethodPost, "/api/v1/campaigns", createCampaignRequest{
		Name:    "Curse of Strahd",
		Setting: "Barovia",
	}, 1, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var c campaignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "Curse of Strahd", c.Name)
	assert.Equal(t, int64(1), c.OwnerID)

	rec = httptest.NewRecorder()
	h.Get(rec, authedRequest(t, http.MethodGet, "/api/v1/campaigns/1", nil, 1, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCampaignGetForbiddenForNonMember(t *testing.T) {
	store := newMockCampaignStore()
	_, err := store.Create(context.Background(), "Private Game", "", "", 1)
	require.NoError(t, err)

	h := NewCampaignHandler(store, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(t, http.MethodGet, "/api/v1/campaigns/1", nil, 2, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCampaignMemberCanGet(t *testing.T) {
	store := newMockCampaignStore()
	c, err := store.Create(context.Background(), "Shared Game", "", "", 1)
	require.NoError(t, err)
	_, err = store.AddMember(context.Background(), c.ID, 2, postgres.RolePlayer)
	require.NoError(t, err)

	h := NewCampaignHandler(store, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Get(rec, authedRequest(t, http.MethodGet, "/api/v1/campaigns/1", nil, 2, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCampaignUpdateRequiresDM(t *testing.T) {
	store := newMockCampaignStore()
	c, err := store.Create(context.Background(), "Game", "", "", 1)
	require.NoError(t, err)
	_, err = store.AddMember(context.Background(), c.ID, 2, postgres.RolePlayer)
	require.NoError(t, err)

	h := NewCampaignHandler(store, zaptest.NewLogger(t))
	name := "Renamed"

	rec := httptest.NewRecorder()
	h.Update(rec, authedRequest(t, http.MethodPut, "/api/v1/campaigns/1", updateCampaignRequest{Name: &name}, 2, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.Update(rec, authedRequest(t, http.MethodPut, "/api/v1/campaigns/1", updateCampaignRequest{Name: &name}, 1, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated campaignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Name)
}

func TestCampaignAddMemberValidation(t *testing.T) {
	store := newMockCampaignStore()
	_, err := store.Create(context.Background(), "Game", "", "", 1)
	require.NoError(t, err)

	h := NewCampaignHandler(store, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.AddMember(rec, authedRequest(t, http.MethodPost, "/api/v1/campaigns/1/members", addMemberRequest{
		UserID: 2,
		Role:   "wizard",
	}, 1, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.AddMember(rec, authedRequest(t, http.MethodPost, "/api/v1/campaigns/1/members", addMemberRequest{
		UserID: 2,
		Role:   postgres.RolePlayer,
	}, 1, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	h.AddMember(rec, authedRequest(t, http.MethodPost, "/api/v1/campaigns/1/members", addMemberRequest{
		UserID: 2,
		Role:   postgres.RolePlayer,
	}, 1, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCampaignDeleteNotFound(t *testing.T) {
	h := NewCampaignHandler(newMockCampaignStore(), zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(t, http.MethodDelete, "/api/v1/campaigns/99", nil, 1, map[string]string{"id": "99"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
