package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/lorekeeper/internal/dndbeyond"
	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
	"github.com/cory-johannsen/lorekeeper/internal/testutil"
)

func createTestCampaign(t *testing.T, pool *pgxpool.Pool) (postgres.Campaign, postgres.User) {
	t.Helper()
	owner := createTestUser(t, pool)
	c, err := postgres.NewCampaignRepository(pool).Create(context.Background(), "Test Game", "", "", owner.ID)
	require.NoError(t, err)
	return c, owner
}

func makeTestCharacter(campaignID, creatorID int64, name string) *postgres.Character {
	sheet := dndbeyond.NewCharacter()
	sheet.Name = name
	sheet.Race = "Mountain Dwarf"
	sheet.CharacterClass = "Fighter"
	sheet.Level = 3
	sheet.Alignment = "Lawful Good"
	sheet.Stats = map[string]int{"str": 16, "dex": 12, "con": 15, "int": 10, "wis": 13, "cha": 8}
	sheet.SavingThrows["str"] = dndbeyond.SavingThrow{Proficient: true}
	sheet.Skills["athletics"] = dndbeyond.Skill{Proficient: true}
	sheet.Languages = []string{"Common", "Dwarvish"}
	sheet.HitPointsMax = 28
	sheet.HitPointsCurrent = 28
	sheet.HitDice = "3d10"

	return &postgres.Character{
		Character:  *sheet,
		CampaignID: campaignID,
		CreatorID:  creatorID,
		IsActive:   true,
	}
}

func TestCharacterRepository_CreateRoundTripsJSONB(t *testing.T) {
	pool := testutil.NewPool(t)
	campaign, owner := createTestCampaign(t, pool)
	repo := postgres.NewCharacterRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, makeTestCharacter(campaign.ID, owner.ID, "Thorin Ironshield"))
	require.NoError(t, err)

	assert.Greater(t, created.ID, int64(0))
	assert.Equal(t, "Thorin Ironshield", created.Name)
	assert.Equal(t, 16, created.Stats["str"])
	assert.True(t, created.SavingThrows["str"].Proficient)
	assert.True(t, created.Skills["athletics"].Proficient)
	assert.Equal(t, []string{"Common", "Dwarvish"}, created.Languages)
	assert.Equal(t, "3d10", created.HitDice)
	assert.Len(t, created.Spells, 10)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCharacterRepository_ListByCampaign(t *testing.T) {
	pool := testutil.NewPool(t)
	campaign, owner := createTestCampaign(t, pool)
	repo := postgres.NewCharacterRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, makeTestCharacter(campaign.ID, owner.ID, "First"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, makeTestCharacter(campaign.ID, owner.ID, "Second"))
	require.NoError(t, err)

	chars, err := repo.ListByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, chars, 2)
	assert.Equal(t, "First", chars[0].Name)
	assert.Equal(t, "Second", chars[1].Name)
}

func TestCharacterRepository_Update(t *testing.T) {
	pool := testutil.NewPool(t)
	campaign, owner := createTestCampaign(t, pool)
	repo := postgres.NewCharacterRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, makeTestCharacter(campaign.ID, owner.ID, "Zara"))
	require.NoError(t, err)

	created.Level = 4
	created.HitPointsCurrent = 12
	created.IsNPC = true
	updated, err := repo.Update(ctx, created.ID, created)
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Level)
	assert.Equal(t, 12, updated.HitPointsCurrent)
	assert.True(t, updated.IsNPC)
	assert.NotNil(t, updated.UpdatedAt)

	_, err = repo.Update(ctx, 999999, created)
	assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)
}

func TestCharacterRepository_ImportedFields(t *testing.T) {
	pool := testutil.NewPool(t)
	campaign, owner := createTestCampaign(t, pool)
	repo := postgres.NewCharacterRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	c := makeTestCharacter(campaign.ID, owner.ID, "Imported Hero")
	c.DndBeyondURL = "https://www.dndbeyond.com/characters/12345678"
	c.DndBeyondID = "12345678"
	c.LastSynced = &now

	created, err := repo.Create(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "12345678", created.DndBeyondID)
	require.NotNil(t, created.LastSynced)
	assert.WithinDuration(t, now, *created.LastSynced, time.Second)
}

func TestCharacterRepository_Delete(t *testing.T) {
	pool := testutil.NewPool(t)
	campaign, owner := createTestCampaign(t, pool)
	repo := postgres.NewCharacterRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, makeTestCharacter(campaign.ID, owner.ID, "Doomed"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, postgres.ErrCharacterNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID), postgres.ErrCharacterNotFound)
}
