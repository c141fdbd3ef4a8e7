package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrPlaceNotFound is returned when a place lookup yields no results.
var ErrPlaceNotFound = errors.New("place not found")

// Place represents a location in a campaign's world. Places form a hierarchy
// through ParentPlaceID.
type Place struct {
	ID            int64      `json:"id"`
	CampaignID    int64      `json:"campaign_id"`
	ParentPlaceID *int64     `json:"parent_place_id,omitempty"`
	Name          string     `json:"name"`
	PlaceType     string     `json:"place_type"`
	Description   string     `json:"description"`
	History       string     `json:"history"`
	NotableNPCs   string     `json:"notable_npcs"`
	Secrets       string     `json:"secrets"`
	Population    *int       `json:"population,omitempty"`
	Climate       string     `json:"climate"`
	Terrain       string     `json:"terrain"`
	MapImageURL   string     `json:"map_image_url"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// PlaceRepository provides place persistence operations.
type PlaceRepository struct {
	db *pgxpool.Pool
}

// NewPlaceRepository creates a PlaceRepository backed by the given pool.
func NewPlaceRepository(db *pgxpool.Pool) *PlaceRepository {
	return &PlaceRepository{db: db}
}

const placeColumns = `id, campaign_id, parent_place_id, name, place_type, description,
	history, notable_npcs, secrets, population, climate, terrain, map_image_url, created_at, updated_at`

func scanPlace(row pgx.Row) (*Place, error) {
	var p Place
	err := row.Scan(&p.ID, &p.CampaignID, &p.ParentPlaceID, &p.Name, &p.PlaceType, &p.Description,
		&p.History, &p.NotableNPCs, &p.Secrets, &p.Population, &p.Climate, &p.Terrain,
		&p.MapImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new place.
//
// Precondition: p.CampaignID must reference an existing campaign; p.Name must be non-empty.
func (r *PlaceRepository) Create(ctx context.Context, p *Place) (*Place, error) {
	out, err := scanPlace(r.db.QueryRow(ctx, `
		INSERT INTO places
			(campaign_id, parent_place_id, name, place_type, description,
			 history, notable_npcs, secrets, population, climate, terrain, map_image_url)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING `+placeColumns,
		p.CampaignID, p.ParentPlaceID, p.Name, p.PlaceType, p.Description,
		p.History, p.NotableNPCs, p.Secrets, p.Population, p.Climate, p.Terrain, p.MapImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting place: %w", err)
	}
	return out, nil
}

// ListByCampaign returns all places in a campaign ordered by name.
func (r *PlaceRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*Place, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+placeColumns+` FROM places WHERE campaign_id = $1 ORDER BY name ASC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing places: %w", err)
	}
	defer rows.Close()

	places := make([]*Place, 0)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning place row: %w", err)
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// GetByID retrieves a place by primary key, or ErrPlaceNotFound.
func (r *PlaceRepository) GetByID(ctx context.Context, id int64) (*Place, error) {
	p, err := scanPlace(r.db.QueryRow(ctx, `
		SELECT `+placeColumns+` FROM places WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlaceNotFound
		}
		return nil, fmt.Errorf("querying place: %w", err)
	}
	return p, nil
}

// Update replaces a place's fields, or returns ErrPlaceNotFound.
func (r *PlaceRepository) Update(ctx context.Context, id int64, p *Place) (*Place, error) {
	out, err := scanPlace(r.db.QueryRow(ctx, `
		UPDATE places SET
			parent_place_id = $2, name = $3, place_type = $4, description = $5,
			history = $6, notable_npcs = $7, secrets = $8, population = $9,
			climate = $10, terrain = $11, map_image_url = $12, updated_at = NOW()
		WHERE id = $1
		RETURNING `+placeColumns,
		id, p.ParentPlaceID, p.Name, p.PlaceType, p.Description,
		p.History, p.NotableNPCs, p.Secrets, p.Population, p.Climate, p.Terrain, p.MapImageURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlaceNotFound
		}
		return nil, fmt.Errorf("updating place: %w", err)
	}
	return out, nil
}

// Delete removes a place, or returns ErrPlaceNotFound.
func (r *PlaceRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM places WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlaceNotFound
	}
	return nil
}
