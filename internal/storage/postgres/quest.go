package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Quest status constants.
const (
	QuestNotStarted = "not_started"
	QuestInProgress = "in_progress"
	QuestCompleted  = "completed"
	QuestFailed     = "failed"
	QuestOnHold     = "on_hold"
)

// ValidQuestStatus reports whether status is a recognised quest status.
func ValidQuestStatus(status string) bool {
	switch status {
	case QuestNotStarted, QuestInProgress, QuestCompleted, QuestFailed, QuestOnHold:
		return true
	}
	return false
}

// ErrQuestNotFound is returned when a quest lookup yields no results.
var ErrQuestNotFound = errors.New("quest not found")

// ErrInvalidQuestStatus is returned when an unrecognised status string is supplied.
var ErrInvalidQuestStatus = errors.New("invalid quest status")

// Quest represents a quest line tracked within a campaign.
type Quest struct {
	ID          int64      `json:"id"`
	CampaignID  int64      `json:"campaign_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Objectives  string     `json:"objectives"`
	Rewards     string     `json:"rewards"`
	QuestGiver  string     `json:"quest_giver"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// QuestRepository provides quest persistence operations.
type QuestRepository struct {
	db *pgxpool.Pool
}

// NewQuestRepository creates a QuestRepository backed by the given pool.
func NewQuestRepository(db *pgxpool.Pool) *QuestRepository {
	return &QuestRepository{db: db}
}

const questColumns = `id, campaign_id, name, description, objectives, rewards,
	quest_giver, location, status, started_at, completed_at, created_at, updated_at`

func scanQuest(row pgx.Row) (*Quest, error) {
	var q Quest
	err := row.Scan(&q.ID, &q.CampaignID, &q.Name, &q.Description, &q.Objectives, &q.Rewards,
		&q.QuestGiver, &q.Location, &q.Status, &q.StartedAt, &q.CompletedAt, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Create inserts a new quest. An empty status defaults to not_started.
//
// Precondition: q.CampaignID must reference an existing campaign; q.Name must be non-empty.
func (r *QuestRepository) Create(ctx context.Context, q *Quest) (*Quest, error) {
	status := q.Status
	if status == "" {
		status = QuestNotStarted
	}
	if !ValidQuestStatus(status) {
		return nil, ErrInvalidQuestStatus
	}

	out, err := scanQuest(r.db.QueryRow(ctx, `
		INSERT INTO quests
			(campaign_id, name, description, objectives, rewards,
			 quest_giver, location, status, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+questColumns,
		q.CampaignID, q.Name, q.Description, q.Objectives, q.Rewards,
		q.QuestGiver, q.Location, status, q.StartedAt, q.CompletedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting quest: %w", err)
	}
	return out, nil
}

// ListByCampaign returns all quests in a campaign ordered by creation time.
func (r *QuestRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*Quest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+questColumns+` FROM quests WHERE campaign_id = $1 ORDER BY created_at ASC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing quests: %w", err)
	}
	defer rows.Close()

	quests := make([]*Quest, 0)
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quest row: %w", err)
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

// GetByID retrieves a quest by primary key, or ErrQuestNotFound.
func (r *QuestRepository) GetByID(ctx context.Context, id int64) (*Quest, error) {
	q, err := scanQuest(r.db.QueryRow(ctx, `
		SELECT `+questColumns+` FROM quests WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("querying quest: %w", err)
	}
	return q, nil
}

// Update replaces a quest's fields, or returns ErrQuestNotFound.
func (r *QuestRepository) Update(ctx context.Context, id int64, q *Quest) (*Quest, error) {
	if !ValidQuestStatus(q.Status) {
		return nil, ErrInvalidQuestStatus
	}

	out, err := scanQuest(r.db.QueryRow(ctx, `
		UPDATE quests SET
			name = $2, description = $3, objectives = $4, rewards = $5,
			quest_giver = $6, location = $7, status = $8,
			started_at = $9, completed_at = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING `+questColumns,
		id, q.Name, q.Description, q.Objectives, q.Rewards,
		q.QuestGiver, q.Location, q.Status, q.StartedAt, q.CompletedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("updating quest: %w", err)
	}
	return out, nil
}

// Delete removes a quest, or returns ErrQuestNotFound.
func (r *QuestRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting quest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestNotFound
	}
	return nil
}
