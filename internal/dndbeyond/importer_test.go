package dndbeyond

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeSource implements Source with canned results and per-path call counts,
// so tests can assert on fallback order.
type fakeSource struct {
	doc        Document
	fetchErr   error
	publicName string
	publicErr  error

	fetchCalls  int
	publicCalls int
	lastToken   string
}

func (f *fakeSource) ResolveCharacterID(url string) (string, error) {
	m := characterIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrBadURL, url)
	}
	return m[1], nil
}

func (f *fakeSource) FetchCharacter(_ context.Context, _, cobaltToken string) (Document, error) {
	f.fetchCalls++
	f.lastToken = cobaltToken
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.doc, nil
}

func (f *fakeSource) FetchPublicName(_ context.Context, _ string) (string, error) {
	f.publicCalls++
	if f.publicErr != nil {
		return "", f.publicErr
	}
	return f.publicName, nil
}

const sheetURL = "https://www.dndbeyond.com/characters/12345678"

func newTestImporter(t *testing.T, source Source, defaultToken string) *Importer {
	t.Helper()
	return NewImporter(source, defaultToken, zaptest.NewLogger(t))
}

// Scenario A: with a credential and a healthy character service, the full
// document is normalized and the public page is never touched.
func TestImportAuthenticatedSuccess(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(fullCharacterJSON), &doc))
	source := &fakeSource{doc: doc, publicName: "should not be used"}

	c, err := newTestImporter(t, source, "").Import(context.Background(), sheetURL, "cobalt-token")
	require.NoError(t, err)

	assert.Equal(t, "Morwen Duskhollow", c.Name)
	assert.Equal(t, 6, c.Level)
	assert.NotEmpty(t, c.Stats)
	assert.Equal(t, 1, source.fetchCalls)
	assert.Equal(t, "cobalt-token", source.lastToken)
	assert.Zero(t, source.publicCalls, "public fallback must not run after an authenticated success")
}

// Scenario B: without a credential, the public page yields a name-only record
// with every other field at its default.
func TestImportNoTokenUsesPublic(t *testing.T) {
	source := &fakeSource{publicName: "Thorin"}

	c, err := newTestImporter(t, source, "").Import(context.Background(), sheetURL, "")
	require.NoError(t, err)

	assert.Equal(t, "Thorin", c.Name)
	assert.Zero(t, source.fetchCalls, "authenticated fetch requires a token")
	assert.Equal(t, 1, source.publicCalls)

	defaults := NewCharacter()
	defaults.Name = "Thorin"
	assert.Equal(t, defaults, c)
}

// Scenario C: no credential and an unreachable public page is terminal, and
// the error tells the caller a token is needed.
func TestImportNothingAvailable(t *testing.T) {
	source := &fakeSource{publicErr: fmt.Errorf("%w: timeout", ErrUnavailable)}

	_, err := newTestImporter(t, source, "").Import(context.Background(), sheetURL, "")
	require.ErrorIs(t, err, ErrImportFailed)
	assert.Contains(t, err.Error(), "Cobalt session token")
}

// Scenario D: a failed authenticated fetch falls back to the public page.
func TestImportAuthFetchFailsFallsBack(t *testing.T) {
	source := &fakeSource{
		fetchErr:   fmt.Errorf("%w: character service returned 401", ErrUnavailable),
		publicName: "Thorin",
	}

	c, err := newTestImporter(t, source, "").Import(context.Background(), sheetURL, "expired-token")
	require.NoError(t, err)

	assert.Equal(t, 1, source.fetchCalls)
	assert.Equal(t, 1, source.publicCalls)

	defaults := NewCharacter()
	defaults.Name = "Thorin"
	assert.Equal(t, defaults, c)
}

func TestImportBadURLIsFatal(t *testing.T) {
	source := &fakeSource{publicName: "Thorin"}

	_, err := newTestImporter(t, source, "token").Import(context.Background(), "https://www.dndbeyond.com/monsters/42", "token")
	require.ErrorIs(t, err, ErrImportFailed)
	assert.Contains(t, err.Error(), "URL")
	assert.Zero(t, source.fetchCalls, "bad URL must not trigger any fetch")
	assert.Zero(t, source.publicCalls)
}

func TestImportUsesDefaultTokenWhenCallSuppliesNone(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(fullCharacterJSON), &doc))
	source := &fakeSource{doc: doc}

	_, err := newTestImporter(t, source, "process-token").Import(context.Background(), sheetURL, "")
	require.NoError(t, err)
	assert.Equal(t, "process-token", source.lastToken)
}

func TestImportPerCallTokenOverridesDefault(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(fullCharacterJSON), &doc))
	source := &fakeSource{doc: doc}

	_, err := newTestImporter(t, source, "process-token").Import(context.Background(), sheetURL, "call-token")
	require.NoError(t, err)
	assert.Equal(t, "call-token", source.lastToken)
}

// A fetch that succeeds but carries no character data behaves like an
// authenticated failure: the importer falls back rather than returning an
// empty record.
func TestImportEmptyDocumentFallsBack(t *testing.T) {
	source := &fakeSource{doc: Document{"id": float64(1)}, publicName: "Thorin"}

	c, err := newTestImporter(t, source, "token").Import(context.Background(), sheetURL, "")
	require.NoError(t, err)
	assert.Equal(t, "Thorin", c.Name)
	assert.Equal(t, 1, source.publicCalls)
}

func TestImportPublicEmptyNameIsFailure(t *testing.T) {
	source := &fakeSource{publicName: ""}

	_, err := newTestImporter(t, source, "").Import(context.Background(), sheetURL, "")
	assert.ErrorIs(t, err, ErrImportFailed)
}
