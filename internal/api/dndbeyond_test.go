package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/lorekeeper/internal/dndbeyond"
	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// mockCharacterStore implements CharacterStore for testing.
type mockCharacterStore struct {
	characters map[int64]*postgres.Character
	nextID     int64
}

func newMockCharacterStore() *mockCharacterStore {
	return &mockCharacterStore{characters: make(map[int64]*postgres.Character)}
}

func (m *mockCharacterStore) Create(_ context.Context, c *postgres.Character) (*postgres.Character, error) {
	m.nextID++
	out := *c
	out.ID = m.nextID
	m.characters[out.ID] = &out
	return &out, nil
}

func (m *mockCharacterStore) ListByCampaign(_ context.Context, campaignID int64) ([]*postgres.Character, error) {
	out := make([]*postgres.Character, 0)
	for _, c := range m.characters {
		if c.CampaignID == campaignID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCharacterStore) GetByID(_ context.Context, id int64) (*postgres.Character, error) {
	c, ok := m.characters[id]
	if !ok {
		return nil, postgres.ErrCharacterNotFound
	}
	return c, nil
}

func (m *mockCharacterStore) Update(_ context.Context, id int64, c *postgres.Character) (*postgres.Character, error) {
	existing, ok := m.characters[id]
	if !ok {
		return nil, postgres.ErrCharacterNotFound
	}
	out := *c
	out.ID = id
	out.CampaignID = existing.CampaignID
	out.CreatorID = existing.CreatorID
	m.characters[id] = &out
	return &out, nil
}

func (m *mockCharacterStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.characters[id]; !ok {
		return postgres.ErrCharacterNotFound
	}
	delete(m.characters, id)
	return nil
}

// mockImporter implements CharacterImporter with canned results.
type mockImporter struct {
	sheet *dndbeyond.Character
	err   error
}

func (m *mockImporter) Import(_ context.Context, characterURL, cobaltToken string) (*dndbeyond.Character, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sheet, nil
}

func (m *mockImporter) ResolveCharacterID(characterURL string) (string, error) {
	return "12345678", nil
}

func importFixture() (*mockCampaignStore, *mockCharacterStore) {
	campaigns := newMockCampaignStore()
	_, _ = campaigns.Create(context.Background(), "Game", "", "", 1)
	return campaigns, newMockCharacterStore()
}

func TestImportStoresCharacter(t *testing.T) {
	campaigns, characters := importFixture()

	sheet := dndbeyond.NewCharacter()
	sheet.Name = "Mordenkainen"
	sheet.CharacterClass = "Wizard"
	sheet.Level = 12

	h := NewImportHandler(&mockImporter{sheet: sheet}, characters, campaigns, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Import(rec, authedRequest(t, http.MethodPost, "/api/v1/dndbeyond/import", importRequest{
		CampaignID:   1,
		CharacterURL: "https://www.dndbeyond.com/characters/12345678",
	}, 1, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored postgres.Character
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "Mordenkainen", stored.Name)
	assert.Equal(t, "12345678", stored.DndBeyondID)
	assert.Equal(t, "https://www.dndbeyond.com/characters/12345678", stored.DndBeyondURL)
	assert.NotNil(t, stored.LastSynced)
	assert.True(t, stored.IsActive)
}

func TestImportFailureMaps400(t *testing.T) {
	campaigns, characters := importFixture()

	imp := &mockImporter{err: fmt.Errorf("%w: content is unavailable without a Cobalt session token", dndbeyond.ErrImportFailed)}
	h := NewImportHandler(imp, characters, campaigns, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Import(rec, authedRequest(t, http.MethodPost, "/api/v1/dndbeyond/import", importRequest{
		CampaignID:   1,
		CharacterURL: "https://www.dndbeyond.com/characters/12345678",
	}, 1, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cobalt session token")
	assert.Empty(t, characters.characters)
}

func TestImportRequiresCampaignAccess(t *testing.T) {
	campaigns, characters := importFixture()

	h := NewImportHandler(&mockImporter{sheet: dndbeyond.NewCharacter()}, characters, campaigns, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Import(rec, authedRequest(t, http.MethodPost, "/api/v1/dndbeyond/import", importRequest{
		CampaignID:   1,
		CharacterURL: "https://www.dndbeyond.com/characters/12345678",
	}, 42, nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestImportMissingFields(t *testing.T) {
	campaigns, characters := importFixture()
	h := NewImportHandler(&mockImporter{}, characters, campaigns, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Import(rec, authedRequest(t, http.MethodPost, "/api/v1/dndbeyond/import", importRequest{
		CharacterURL: "https://www.dndbeyond.com/characters/12345678",
	}, 1, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
