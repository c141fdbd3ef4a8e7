package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

// mockNoteStore implements NoteStore for testing.
type mockNoteStore struct {
	notes  map[int64]*postgres.Note
	nextID int64
}

func newMockNoteStore() *mockNoteStore {
	return &mockNoteStore{notes: make(map[int64]*postgres.Note)}
}

func (m *mockNoteStore) Create(_ context.Context, n *postgres.Note) (*postgres.Note, error) {
	m.nextID++
	out := *n
	out.ID = m.nextID
	out.CreatedAt = time.Now()
	m.notes[out.ID] = &out
	return &out, nil
}

func (m *mockNoteStore) ListByCampaign(_ context.Context, campaignID int64, includeDMOnly bool) ([]*postgres.Note, error) {
	out := make([]*postgres.Note, 0)
	for _, n := range m.notes {
		if n.CampaignID != campaignID {
			continue
		}
		if n.IsDMOnly && !includeDMOnly {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *mockNoteStore) GetByID(_ context.Context, id int64) (*postgres.Note, error) {
	n, ok := m.notes[id]
	if !ok {
		return nil, postgres.ErrNoteNotFound
	}
	return n, nil
}

func (m *mockNoteStore) Update(_ context.Context, id int64, n *postgres.Note) (*postgres.Note, error) {
	if _, ok := m.notes[id]; !ok {
		return nil, postgres.ErrNoteNotFound
	}
	out := *n
	out.ID = id
	m.notes[id] = &out
	return &out, nil
}

func (m *mockNoteStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.notes[id]; !ok {
		return postgres.ErrNoteNotFound
	}
	delete(m.notes, id)
	return nil
}

func noteFixture(t *testing.T) (*mockCampaignStore, *mockNoteStore, *NoteHandler) {
	t.Helper()
	campaigns := newMockCampaignStore()
	_, err := campaigns.Create(context.Background(), "Game", "", "", 1)
	require.NoError(t, err)
	_, err = campaigns.AddMember(context.Background(), 1, 2, postgres.RolePlayer)
	require.NoError(t, err)

	notes := newMockNoteStore()
	return campaigns, notes, NewNoteHandler(notes, campaigns, zaptest.NewLogger(t))
}

func TestNoteDMOnlyHiddenFromPlayers(t *testing.T) {
	_, notes, h := noteFixture(t)

	_, err := notes.Create(context.Background(), &postgres.Note{
		CampaignID: 1, Title: "Party Loot", Content: "shared",
	})
	require.NoError(t, err)
	_, err = notes.Create(context.Background(), &postgres.Note{
		CampaignID: 1, Title: "Strahd's Weakness", Content: "secret", IsDMOnly: true,
	})
	require.NoError(t, err)

	// DM sees both.
	rec := httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/api/v1/campaigns/1/notes", nil, 1, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var dmNotes []postgres.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dmNotes))
	assert.Len(t, dmNotes, 2)

	// Player sees only the shared note.
	rec = httptest.NewRecorder()
	h.List(rec, authedRequest(t, http.MethodGet, "/api/v1/campaigns/1/notes", nil, 2, map[string]string{"id": "1"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var playerNotes []postgres.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &playerNotes))
	require.Len(t, playerNotes, 1)
	assert.Equal(t, "Party Loot", playerNotes[0].Title)

	// Fetching the DM-only note directly looks like a 404 to players.
	rec = httptest.NewRecorder()
	h.Get(rec, authedRequest(t, http.MethodGet, "/api/v1/notes/2", nil, 2, map[string]string{"id": "2"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotePlayerCannotCreateDMOnly(t *testing.T) {
	_, _, h := noteFixture(t)

	rec := httptest.NewRecorder()
	h.Create(rec, authedRequest(t, http.MethodPost, "/api/v1/campaigns/1/notes", postgres.Note{
		Title:    "Sneaky",
		IsDMOnly: true,
	}, 2, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNoteDeleteRequiresDM(t *testing.T) {
	_, notes, h := noteFixture(t)

	_, err := notes.Create(context.Background(), &postgres.Note{CampaignID: 1, Title: "Session recap"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Delete(rec, authedRequest(t, http.MethodDelete, "/api/v1/notes/1", nil, 2, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, authedRequest(t, http.MethodDelete, "/api/v1/notes/1", nil, 1, map[string]string{"id": "1"}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
