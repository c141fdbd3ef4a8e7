package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/lorekeeper/internal/dndbeyond"
)

// ErrCharacterNotFound is returned when a character lookup yields no results.
var ErrCharacterNotFound = errors.New("character not found")

// Character represents a character row. The embedded canonical record holds
// the sheet fields; the structured ones (stats, saves, skills, languages,
// features, spells, slots) are stored as JSONB columns.
type Character struct {
	dndbeyond.Character

	ID         int64 `json:"id"`
	CampaignID int64 `json:"campaign_id"`
	CreatorID  int64 `json:"creator_id"`

	DndBeyondURL string     `json:"dndbeyond_url,omitempty"`
	DndBeyondID  string     `json:"dndbeyond_id,omitempty"`
	LastSynced   *time.Time `json:"last_synced,omitempty"`

	IsNPC    bool `json:"is_npc"`
	IsActive bool `json:"is_active"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CharacterRepository provides character persistence operations.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

const characterColumns = `id, campaign_id, creator_id, name, race, character_class, level,
	background, alignment, stats, saving_throws, skills,
	armor_class, initiative, speed, hit_points_max, hit_points_current, hit_points_temp, hit_dice,
	languages, features, spells, spell_slots, spellcasting_ability,
	backstory, personality_traits, ideals, bonds, flaws, appearance,
	dndbeyond_url, dndbeyond_id, last_synced, is_npc, is_active, created_at, updated_at`

func scanCharacter(row pgx.Row) (*Character, error) {
	var c Character
	err := row.Scan(
		&c.ID, &c.CampaignID, &c.CreatorID, &c.Name, &c.Race, &c.CharacterClass, &c.Level,
		&c.Background, &c.Alignment, &c.Stats, &c.SavingThrows, &c.Skills,
		&c.ArmorClass, &c.Initiative, &c.Speed, &c.HitPointsMax, &c.HitPointsCurrent, &c.HitPointsTemp, &c.HitDice,
		&c.Languages, &c.Features, &c.Spells, &c.SpellSlots, &c.SpellcastingAbility,
		&c.Backstory, &c.PersonalityTraits, &c.Ideals, &c.Bonds, &c.Flaws, &c.Appearance,
		&c.DndBeyondURL, &c.DndBeyondID, &c.LastSynced, &c.IsNPC, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new character and returns it with ID and timestamps set.
//
// Precondition: c.CampaignID and c.CreatorID must reference existing rows;
// c.Name must be non-empty.
// Postcondition: Returns the created character with ID set.
func (r *CharacterRepository) Create(ctx context.Context, c *Character) (*Character, error) {
	out, err := scanCharacter(r.db.QueryRow(ctx, `
		INSERT INTO characters
			(campaign_id, creator_id, name, race, character_class, level,
			 background, alignment, stats, saving_throws, skills,
			 armor_class, initiative, speed, hit_points_max, hit_points_current, hit_points_temp, hit_dice,
			 languages, features, spells, spell_slots, spellcasting_ability,
			 backstory, personality_traits, ideals, bonds, flaws, appearance,
			 dndbeyond_url, dndbeyond_id, last_synced, is_npc, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
		        $19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34)
		RETURNING `+characterColumns,
		c.CampaignID, c.CreatorID, c.Name, c.Race, c.CharacterClass, c.Level,
		c.Background, c.Alignment, c.Stats, c.SavingThrows, c.Skills,
		c.ArmorClass, c.Initiative, c.Speed, c.HitPointsMax, c.HitPointsCurrent, c.HitPointsTemp, c.HitDice,
		c.Languages, c.Features, c.Spells, c.SpellSlots, c.SpellcastingAbility,
		c.Backstory, c.PersonalityTraits, c.Ideals, c.Bonds, c.Flaws, c.Appearance,
		c.DndBeyondURL, c.DndBeyondID, c.LastSynced, c.IsNPC, c.IsActive,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting character: %w", err)
	}
	return out, nil
}

// ListByCampaign returns all characters in the given campaign, ordered by
// creation time.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *CharacterRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]*Character, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+characterColumns+` FROM characters
		WHERE campaign_id = $1 ORDER BY created_at ASC`,
		campaignID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	chars := make([]*Character, 0)
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}

// GetByID retrieves a character by its primary key.
//
// Precondition: id must be > 0.
// Postcondition: Returns the character or ErrCharacterNotFound.
func (r *CharacterRepository) GetByID(ctx context.Context, id int64) (*Character, error) {
	c, err := scanCharacter(r.db.QueryRow(ctx, `
		SELECT `+characterColumns+` FROM characters WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("querying character: %w", err)
	}
	return c, nil
}

// Update replaces a character's sheet fields and flags.
//
// Postcondition: Returns the updated character or ErrCharacterNotFound.
func (r *CharacterRepository) Update(ctx context.Context, id int64, c *Character) (*Character, error) {
	out, err := scanCharacter(r.db.QueryRow(ctx, `
		UPDATE characters SET
			name = $2, race = $3, character_class = $4, level = $5,
			background = $6, alignment = $7, stats = $8, saving_throws = $9, skills = $10,
			armor_class = $11, initiative = $12, speed = $13,
			hit_points_max = $14, hit_points_current = $15, hit_points_temp = $16, hit_dice = $17,
			languages = $18, features = $19, spells = $20, spell_slots = $21, spellcasting_ability = $22,
			backstory = $23, personality_traits = $24, ideals = $25, bonds = $26, flaws = $27, appearance = $28,
			is_npc = $29, is_active = $30, updated_at = NOW()
		WHERE id = $1
		RETURNING `+characterColumns,
		id, c.Name, c.Race, c.CharacterClass, c.Level,
		c.Background, c.Alignment, c.Stats, c.SavingThrows, c.Skills,
		c.ArmorClass, c.Initiative, c.Speed,
		c.HitPointsMax, c.HitPointsCurrent, c.HitPointsTemp, c.HitDice,
		c.Languages, c.Features, c.Spells, c.SpellSlots, c.SpellcastingAbility,
		c.Backstory, c.PersonalityTraits, c.Ideals, c.Bonds, c.Flaws, c.Appearance,
		c.IsNPC, c.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("updating character: %w", err)
	}
	return out, nil
}

// Delete removes a character.
//
// Postcondition: Returns nil on success, ErrCharacterNotFound if no row deleted.
func (r *CharacterRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}
