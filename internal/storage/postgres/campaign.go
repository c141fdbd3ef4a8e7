package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Campaign role constants.
const (
	RoleDM     = "dm"
	RolePlayer = "player"
	RoleViewer = "viewer"
)

// ValidRole reports whether role is a recognised campaign role.
func ValidRole(role string) bool {
	switch role {
	case RoleDM, RolePlayer, RoleViewer:
		return true
	}
	return false
}

// ErrCampaignNotFound is returned when a campaign lookup yields no results.
var ErrCampaignNotFound = errors.New("campaign not found")

// ErrMemberNotFound is returned when a membership lookup yields no results.
var ErrMemberNotFound = errors.New("campaign member not found")

// ErrMemberExists is returned when adding a user who is already a member.
var ErrMemberExists = errors.New("user is already a campaign member")

// ErrInvalidRole is returned when an unrecognised role string is supplied.
var ErrInvalidRole = errors.New("invalid campaign role")

// Campaign represents a campaign row.
type Campaign struct {
	ID          int64
	Name        string
	Description string
	Setting     string
	IsActive    bool
	OwnerID     int64
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// CampaignMember represents a user's membership in a campaign.
type CampaignMember struct {
	ID         int64
	CampaignID int64
	UserID     int64
	Role       string
	JoinedAt   time.Time
}

// CampaignRepository provides campaign and membership persistence operations.
type CampaignRepository struct {
	db *pgxpool.Pool
}

// NewCampaignRepository creates a CampaignRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCampaignRepository(db *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, name, description, setting, is_active, owner_id, created_at, updated_at`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Setting,
		&c.IsActive, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// Create inserts a new campaign owned by ownerID.
//
// Precondition: name must be non-empty; ownerID must reference an existing user.
// Postcondition: Returns the created campaign with ID and timestamps set.
func (r *CampaignRepository) Create(ctx context.Context, name, description, setting string, ownerID int64) (Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(ctx, `
		INSERT INTO campaigns (name, description, setting, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+campaignColumns,
		name, description, setting, ownerID,
	))
	if err != nil {
		return Campaign{}, fmt.Errorf("inserting campaign: %w", err)
	}
	return c, nil
}

// ListForUser returns every campaign the user owns or is a member of,
// ordered by creation time.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CampaignRepository) ListForUser(ctx context.Context, userID int64) ([]Campaign, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT c.id, c.name, c.description, c.setting, c.is_active, c.owner_id, c.created_at, c.updated_at
		FROM campaigns c
		LEFT JOIN campaign_members m ON m.campaign_id = c.id
		WHERE c.owner_id = $1 OR m.user_id = $1
		ORDER BY c.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning campaign row: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// GetByID retrieves a campaign by primary key.
//
// Precondition: id must be > 0.
// Postcondition: Returns the campaign or ErrCampaignNotFound.
func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(ctx, `
		SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrCampaignNotFound
		}
		return Campaign{}, fmt.Errorf("querying campaign: %w", err)
	}
	return c, nil
}

// CampaignUpdate holds optional campaign changes; nil fields are left unchanged.
type CampaignUpdate struct {
	Name        *string
	Description *string
	Setting     *string
	IsActive    *bool
}

// Update applies the non-nil fields of upd to the campaign.
//
// Postcondition: Returns the updated campaign or ErrCampaignNotFound.
func (r *CampaignRepository) Update(ctx context.Context, id int64, upd CampaignUpdate) (Campaign, error) {
	c, err := scanCampaign(r.db.QueryRow(ctx, `
		UPDATE campaigns SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			setting = COALESCE($4, setting),
			is_active = COALESCE($5, is_active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+campaignColumns,
		id, upd.Name, upd.Description, upd.Setting, upd.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, ErrCampaignNotFound
		}
		return Campaign{}, fmt.Errorf("updating campaign: %w", err)
	}
	return c, nil
}

// Delete removes a campaign and, via cascading constraints, all its content.
//
// Postcondition: Returns nil on success, ErrCampaignNotFound if no row deleted.
func (r *CampaignRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCampaignNotFound
	}
	return nil
}

// AddMember adds a user to a campaign with the given role.
//
// Precondition: role must satisfy ValidRole.
// Postcondition: Returns the membership, ErrMemberExists on duplicates, or
// ErrInvalidRole for an unrecognised role.
func (r *CampaignRepository) AddMember(ctx context.Context, campaignID, userID int64, role string) (CampaignMember, error) {
	if !ValidRole(role) {
		return CampaignMember{}, ErrInvalidRole
	}

	var m CampaignMember
	err := r.db.QueryRow(ctx, `
		INSERT INTO campaign_members (campaign_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, campaign_id, user_id, role, joined_at`,
		campaignID, userID, role,
	).Scan(&m.ID, &m.CampaignID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return CampaignMember{}, ErrMemberExists
		}
		return CampaignMember{}, fmt.Errorf("inserting campaign member: %w", err)
	}
	return m, nil
}

// RemoveMember removes a user from a campaign.
//
// Postcondition: Returns nil on success, ErrMemberNotFound if no row deleted.
func (r *CampaignRepository) RemoveMember(ctx context.Context, campaignID, userID int64) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM campaign_members WHERE campaign_id = $1 AND user_id = $2`,
		campaignID, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting campaign member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// GetMember retrieves a user's membership in a campaign.
//
// Postcondition: Returns the membership or ErrMemberNotFound.
func (r *CampaignRepository) GetMember(ctx context.Context, campaignID, userID int64) (CampaignMember, error) {
	var m CampaignMember
	err := r.db.QueryRow(ctx, `
		SELECT id, campaign_id, user_id, role, joined_at
		FROM campaign_members WHERE campaign_id = $1 AND user_id = $2`,
		campaignID, userID,
	).Scan(&m.ID, &m.CampaignID, &m.UserID, &m.Role, &m.JoinedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CampaignMember{}, ErrMemberNotFound
		}
		return CampaignMember{}, fmt.Errorf("querying campaign member: %w", err)
	}
	return m, nil
}
