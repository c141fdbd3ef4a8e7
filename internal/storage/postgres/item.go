package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrItemNotFound is returned when an item lookup yields no results.
var ErrItemNotFound = errors.New("item not found")

// Item represents a piece of equipment or treasure tracked by a campaign.
type Item struct {
	ID                 int64      `json:"id"`
	CampaignID         int64      `json:"campaign_id"`
	Name               string     `json:"name"`
	ItemType           string     `json:"item_type"`
	Rarity             string     `json:"rarity"`
	Description        string     `json:"description"`
	Properties         string     `json:"properties"`
	Weight             *float64   `json:"weight,omitempty"`
	Value              *int       `json:"value,omitempty"`
	Damage             string     `json:"damage"`
	ACBonus            *int       `json:"ac_bonus,omitempty"`
	RequiresAttunement bool       `json:"requires_attunement"`
	IsMagical          bool       `json:"is_magical"`
	IsCursed           bool       `json:"is_cursed"`
	DndBeyondURL       string     `json:"dndbeyond_url,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// ItemRepository provides item persistence operations.
type ItemRepository struct {
	db *pgxpool.Pool
}

// NewItemRepository creates an ItemRepository backed by the given pool.
func NewItemRepository(db *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, campaign_id, name, item_type, rarity, description, properties,
	weight, value, damage, ac_bonus, requires_attunement, is_magical, is_cursed,
	dndbeyond_url, created_at, updated_at`

func scanItem(row pgx.Row) (*Item, error) {
	var i Item
	err := row.Scan(&i.ID, &i.CampaignID, &i.Name, &i.ItemType, &i.Rarity, &i.Description, &i.Properties,
		&i.Weight, &i.Value, &i.Damage, &i.ACBonus, &i.RequiresAttunement, &i.IsMagical, &i.IsCursed,
		&i.DndBeyondURL, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserts a new item.
//
// Precondition: i.CampaignID must reference an existing campaign; i.Name must be non-empty.
func (r *ItemRepository) Create(ctx context.Context, i *Item) (*Item, error) {
	out, err := scanItem(r.db.QueryRow(ctx, `
		INSERT INTO items
			(campaign_id, name, item_type, rarity, description, properties,
			 weight, value, damage, ac_bonus, requires_attunement, is_magical, is_cursed, dndbeyond_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING `+itemColumns,
		i.CampaignID, i.Name, i.ItemType, i.Rarity, i.Description, i.Properties,
		i.Weight, i.Value, i.Damage, i.ACBonus, i.RequiresAttunement, i.IsMagical, i.IsCursed, i.DndBeyondURL,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting item: %w", err)
	}
	return out, nil
}

// ListByCampaign returns all items in a campaign ordered by name.
func (r *ItemRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+itemColumns+` FROM items WHERE campaign_id = $1 ORDER BY name ASC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		i, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// GetByID retrieves an item by primary key, or ErrItemNotFound.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*Item, error) {
	i, err := scanItem(r.db.QueryRow(ctx, `
		SELECT `+itemColumns+` FROM items WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("querying item: %w", err)
	}
	return i, nil
}

// Update replaces an item's fields, or returns ErrItemNotFound.
func (r *ItemRepository) Update(ctx context.Context, id int64, i *Item) (*Item, error) {
	out, err := scanItem(r.db.QueryRow(ctx, `
		UPDATE items SET
			name = $2, item_type = $3, rarity = $4, description = $5, properties = $6,
			weight = $7, value = $8, damage = $9, ac_bonus = $10,
			requires_attunement = $11, is_magical = $12, is_cursed = $13,
			dndbeyond_url = $14, updated_at = NOW()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, i.Name, i.ItemType, i.Rarity, i.Description, i.Properties,
		i.Weight, i.Value, i.Damage, i.ACBonus, i.RequiresAttunement, i.IsMagical, i.IsCursed, i.DndBeyondURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("updating item: %w", err)
	}
	return out, nil
}

// Delete removes an item, or returns ErrItemNotFound.
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}
