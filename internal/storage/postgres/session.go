package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSessionNotFound is returned when a session lookup yields no results.
var ErrSessionNotFound = errors.New("session not found")

// Session represents a play session log entry for a campaign.
type Session struct {
	ID              int64      `json:"id"`
	CampaignID      int64      `json:"campaign_id"`
	SessionNumber   int        `json:"session_number"`
	Title           string     `json:"title"`
	Summary         string     `json:"summary"`
	Notes           string     `json:"notes"`
	SessionDate     *time.Time `json:"session_date,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// SessionRepository provides session persistence operations.
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a SessionRepository backed by the given pool.
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, campaign_id, session_number, title, summary, notes,
	session_date, duration_minutes, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.CampaignID, &s.SessionNumber, &s.Title, &s.Summary, &s.Notes,
		&s.SessionDate, &s.DurationMinutes, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session log entry.
//
// Precondition: s.CampaignID must reference an existing campaign;
// s.SessionNumber must be > 0.
func (r *SessionRepository) Create(ctx context.Context, s *Session) (*Session, error) {
	out, err := scanSession(r.db.QueryRow(ctx, `
		INSERT INTO sessions
			(campaign_id, session_number, title, summary, notes, session_date, duration_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING `+sessionColumns,
		s.CampaignID, s.SessionNumber, s.Title, s.Summary, s.Notes, s.SessionDate, s.DurationMinutes,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}
	return out, nil
}

// ListByCampaign returns all sessions in a campaign ordered by session number.
func (r *SessionRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*Session, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE campaign_id = $1 ORDER BY session_number ASC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetByID retrieves a session by primary key, or ErrSessionNotFound.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `
		SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

// Update replaces a session's fields, or returns ErrSessionNotFound.
func (r *SessionRepository) Update(ctx context.Context, id int64, s *Session) (*Session, error) {
	out, err := scanSession(r.db.QueryRow(ctx, `
		UPDATE sessions SET
			session_number = $2, title = $3, summary = $4, notes = $5,
			session_date = $6, duration_minutes = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+sessionColumns,
		id, s.SessionNumber, s.Title, s.Summary, s.Notes, s.SessionDate, s.DurationMinutes,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("updating session: %w", err)
	}
	return out, nil
}

// Delete removes a session, or returns ErrSessionNotFound.
func (r *SessionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
