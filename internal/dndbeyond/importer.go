package dndbeyond

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrImportFailed is the only error an import surfaces to callers. Its
// message distinguishes an unrecognized URL from content that cannot be
// retrieved without a credential, so the caller can prompt the user
// appropriately.
var ErrImportFailed = errors.New("importing character")

// Source defines the acquisition operations required by the Importer. The
// production implementation is Client; tests substitute fakes to assert on
// fallback order and call counts.
type Source interface {
	// ResolveCharacterID extracts the character id from a sheet URL, or
	// fails with ErrBadURL.
	ResolveCharacterID(url string) (string, error)
	// FetchCharacter retrieves the full document via the authenticated
	// character service, or fails with ErrUnavailable.
	FetchCharacter(ctx context.Context, id, cobaltToken string) (Document, error)
	// FetchPublicName extracts the visible name from the public sheet page,
	// or fails with ErrUnavailable.
	FetchPublicName(ctx context.Context, url string) (string, error)
}

// Importer orchestrates character acquisition and normalization. Each import
// is a linear sequence of at most two sequential fetches: the authenticated
// path first when a token is available, then the public page. The two paths
// are never mixed; an authenticated success returns immediately and a public
// success yields a name-only record.
//
// Importer holds no per-import state, so concurrent imports are safe.
type Importer struct {
	source       Source
	defaultToken string
	logger       *zap.Logger
}

// NewImporter creates an Importer over the given Source. defaultToken is the
// process-wide Cobalt token used when a call supplies none; it may be empty.
//
// Precondition: source and logger must be non-nil.
// Postcondition: Returns a non-nil Importer.
func NewImporter(source Source, defaultToken string, logger *zap.Logger) *Importer {
	return &Importer{
		source:       source,
		defaultToken: defaultToken,
		logger:       logger,
	}
}

// ResolveCharacterID extracts the numeric character id from a sheet URL.
func (imp *Importer) ResolveCharacterID(characterURL string) (string, error) {
	return imp.source.ResolveCharacterID(characterURL)
}

// Import fetches and normalizes the character behind characterURL.
// cobaltToken overrides the importer's default token for this call; the token
// is treated as an opaque string and never persisted.
//
// The result is all-or-nothing: a fully-assembled Character, or an error
// wrapping ErrImportFailed. No partial record is ever returned.
//
// Postcondition: On success, every Character field is populated from the
// authenticated document, or (public fallback) the name alone with every
// other field at its default.
func (imp *Importer) Import(ctx context.Context, characterURL, cobaltToken string) (*Character, error) {
	token := cobaltToken
	if token == "" {
		token = imp.defaultToken
	}

	id, err := imp.source.ResolveCharacterID(characterURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a recognized D&D Beyond character URL (expected a /characters/<id> path)", ErrImportFailed, characterURL)
	}

	if token != "" {
		character, err := imp.importAuthenticated(ctx, id, token)
		if err == nil {
			return character, nil
		}
		imp.logger.Warn("authenticated fetch failed, falling back to public sheet",
			zap.String("character_id", id),
			zap.Error(err),
		)
	}

	name, err := imp.source.FetchPublicName(ctx, characterURL)
	if err != nil || name == "" {
		return nil, fmt.Errorf("%w: character sheets load their data with scripts that cannot be executed here, "+
			"so the content is unavailable without a Cobalt session token (public page fetch: %v)", ErrImportFailed, err)
	}

	imp.logger.Info("imported character from public sheet; only the name is recoverable without a token",
		zap.String("character_id", id),
		zap.String("name", name),
	)
	character := NewCharacter()
	character.Name = name
	return character, nil
}

// importAuthenticated runs the authenticated fetch and full normalization.
// Any failure here is recoverable by the caller's public fallback.
func (imp *Importer) importAuthenticated(ctx context.Context, id, token string) (*Character, error) {
	doc, err := imp.source.FetchCharacter(ctx, id, token)
	if err != nil {
		return nil, err
	}
	character, err := Parse(doc)
	if err != nil {
		return nil, err
	}
	imp.logger.Info("imported character from character service",
		zap.String("character_id", id),
		zap.String("name", character.Name),
		zap.Int("level", character.Level),
	)
	return character, nil
}
