package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoteNotFound is returned when a note lookup yields no results.
var ErrNoteNotFound = errors.New("note not found")

// Note represents a freeform campaign note. Tags are comma-separated.
// DM-only notes are filtered out for non-DM members at the API layer.
type Note struct {
	ID         int64      `json:"id"`
	CampaignID int64      `json:"campaign_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Category   string     `json:"category"`
	Tags       string     `json:"tags"`
	IsDMOnly   bool       `json:"is_dm_only"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

// NoteRepository provides note persistence operations.
type NoteRepository struct {
	db *pgxpool.Pool
}

// NewNoteRepository creates a NoteRepository backed by the given pool.
func NewNoteRepository(db *pgxpool.Pool) *NoteRepository {
	return &NoteRepository{db: db}
}

const noteColumns = `id, campaign_id, title, content, category, tags, is_dm_only, created_at, updated_at`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.CampaignID, &n.Title, &n.Content, &n.Category, &n.Tags,
		&n.IsDMOnly, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create inserts a new note.
//
// Precondition: n.CampaignID must reference an existing campaign; n.Title must be non-empty.
func (r *NoteRepository) Create(ctx context.Context, n *Note) (*Note, error) {
	out, err := scanNote(r.db.QueryRow(ctx, `
		INSERT INTO notes (campaign_id, title, content, category, tags, is_dm_only)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING `+noteColumns,
		n.CampaignID, n.Title, n.Content, n.Category, n.Tags, n.IsDMOnly,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting note: %w", err)
	}
	return out, nil
}

// ListByCampaign returns all notes in a campaign ordered by creation time.
// When includeDMOnly is false, DM-only notes are excluded.
func (r *NoteRepository) ListByCampaign(ctx context.Context, campaignID int64, includeDMOnly bool) ([]*Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE campaign_id = $1 AND (is_dm_only = false OR $2)
		ORDER BY created_at ASC`,
		campaignID, includeDMOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*Note, 0)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning note row: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// GetByID retrieves a note by primary key, or ErrNoteNotFound.
func (r *NoteRepository) GetByID(ctx context.Context, id int64) (*Note, error) {
	n, err := scanNote(r.db.QueryRow(ctx, `
		SELECT `+noteColumns+` FROM notes WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("querying note: %w", err)
	}
	return n, nil
}

// Update replaces a note's fields, or returns ErrNoteNotFound.
func (r *NoteRepository) Update(ctx context.Context, id int64, n *Note) (*Note, error) {
	out, err := scanNote(r.db.QueryRow(ctx, `
		UPDATE notes SET
			title = $2, content = $3, category = $4, tags = $5, is_dm_only = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+noteColumns,
		id, n.Title, n.Content, n.Category, n.Tags, n.IsDMOnly,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("updating note: %w", err)
	}
	return out, nil
}

// Delete removes a note, or returns ErrNoteNotFound.
func (r *NoteRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoteNotFound
	}
	return nil
}
