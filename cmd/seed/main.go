// Package main provides a database seeding tool. It loads a YAML seed file
// and inserts the sample user, campaign, and campaign content through the
// storage repositories. Seeding is skipped when the user already exists so
// the tool is safe to run repeatedly.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/lorekeeper/internal/config"
	"github.com/cory-johannsen/lorekeeper/internal/dndbeyond"
	"github.com/cory-johannsen/lorekeeper/internal/observability"
	"github.com/cory-johannsen/lorekeeper/internal/storage/postgres"
)

type seedCharacter struct {
	Name           string         `yaml:"name"`
	Race           string         `yaml:"race"`
	CharacterClass string         `yaml:"character_class"`
	Level          int            `yaml:"level"`
	Background     string         `yaml:"background"`
	Alignment      string         `yaml:"alignment"`
	Stats          map[string]int `yaml:"stats"`
	Backstory      string         `yaml:"backstory"`
	IsNPC          bool           `yaml:"is_npc"`
}

type seedPlace struct {
	Name        string `yaml:"name"`
	PlaceType   string `yaml:"place_type"`
	Description string `yaml:"description"`
	Population  *int   `yaml:"population"`
	NotableNPCs string `yaml:"notable_npcs"`
	Secrets     string `yaml:"secrets"`
	Parent      string `yaml:"parent"`
}

type seedItem struct {
	Name        string `yaml:"name"`
	ItemType    string `yaml:"item_type"`
	Rarity      string `yaml:"rarity"`
	Description string `yaml:"description"`
	Damage      string `yaml:"damage"`
	IsMagical   bool   `yaml:"is_magical"`
}

type seedQuest struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Objectives  string `yaml:"objectives"`
	Rewards     string `yaml:"rewards"`
	QuestGiver  string `yaml:"quest_giver"`
	Location    string `yaml:"location"`
	Status      string `yaml:"status"`
}

type seedNote struct {
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	Category string `yaml:"category"`
	Tags     string `yaml:"tags"`
	IsDMOnly bool   `yaml:"is_dm_only"`
}

type seedFile struct {
	User struct {
		Email    string `yaml:"email"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"user"`
	Campaign struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Setting     string `yaml:"setting"`
	} `yaml:"campaign"`
	Characters []seedCharacter `yaml:"characters"`
	Places     []seedPlace     `yaml:"places"`
	Items      []seedItem      `yaml:"items"`
	Quests     []seedQuest     `yaml:"quests"`
	Notes      []seedNote      `yaml:"notes"`
}

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	seedPath := flag.String("seed", "configs/seed.yaml", "path to seed data file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	raw, err := os.ReadFile(*seedPath)
	if err != nil {
		logger.Fatal("reading seed file", zap.String("path", *seedPath), zap.Error(err))
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		logger.Fatal("parsing seed file", zap.String("path", *seedPath), zap.Error(err))
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()

	start := time.Now()

	users := postgres.NewUserRepository(pool.DB(), cfg.Auth.BcryptCost)
	user, err := users.Create(ctx, seed.User.Email, seed.User.Username, seed.User.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrUserExists) {
			logger.Info("database already seeded, skipping",
				zap.String("username", seed.User.Username),
			)
			return
		}
		logger.Fatal("creating seed user", zap.Error(err))
	}
	logger.Info("created user", zap.String("username", user.Username))

	campaigns := postgres.NewCampaignRepository(pool.DB())
	campaign, err := campaigns.Create(ctx, seed.Campaign.Name, seed.Campaign.Description, seed.Campaign.Setting, user.ID)
	if err != nil {
		logger.Fatal("creating seed campaign", zap.Error(err))
	}
	logger.Info("created campaign", zap.String("name", campaign.Name))

	characters := postgres.NewCharacterRepository(pool.DB())
	for _, sc := range seed.Characters {
		c := dndbeyond.NewCharacter()
		c.Name = sc.Name
		c.Race = sc.Race
		c.CharacterClass = sc.CharacterClass
		if sc.Level > 0 {
			c.Level = sc.Level
		}
		c.Background = sc.Background
		c.Alignment = sc.Alignment
		for k, v := range sc.Stats {
			c.Stats[k] = v
		}
		c.Backstory = sc.Backstory

		created, err := characters.Create(ctx, &postgres.Character{
			Character:  *c,
			CampaignID: campaign.ID,
			CreatorID:  user.ID,
			IsNPC:      sc.IsNPC,
			IsActive:   true,
		})
		if err != nil {
			logger.Fatal("creating seed character", zap.String("name", sc.Name), zap.Error(err))
		}
		logger.Info("created character", zap.String("name", created.Name), zap.Bool("is_npc", created.IsNPC))
	}

	places := postgres.NewPlaceRepository(pool.DB())
	placeIDs := make(map[string]int64)
	for _, sp := range seed.Places {
		p := &postgres.Place{
			CampaignID:  campaign.ID,
			Name:        sp.Name,
			PlaceType:   sp.PlaceType,
			Description: sp.Description,
			Population:  sp.Population,
			NotableNPCs: sp.NotableNPCs,
			Secrets:     sp.Secrets,
		}
		if sp.Parent != "" {
			if parentID, ok := placeIDs[sp.Parent]; ok {
				p.ParentPlaceID = &parentID
			}
		}
		created, err := places.Create(ctx, p)
		if err != nil {
			logger.Fatal("creating seed place", zap.String("name", sp.Name), zap.Error(err))
		}
		placeIDs[created.Name] = created.ID
		logger.Info("created place", zap.String("name", created.Name))
	}

	items := postgres.NewItemRepository(pool.DB())
	for _, si := range seed.Items {
		created, err := items.Create(ctx, &postgres.Item{
			CampaignID:  campaign.ID,
			Name:        si.Name,
			ItemType:    si.ItemType,
			Rarity:      si.Rarity,
			Description: si.Description,
			Damage:      si.Damage,
			IsMagical:   si.IsMagical,
		})
		if err != nil {
			logger.Fatal("creating seed item", zap.String("name", si.Name), zap.Error(err))
		}
		logger.Info("created item", zap.String("name", created.Name))
	}

	quests := postgres.NewQuestRepository(pool.DB())
	for _, sq := range seed.Quests {
		created, err := quests.Create(ctx, &postgres.Quest{
			CampaignID:  campaign.ID,
			Name:        sq.Name,
			Description: sq.Description,
			Objectives:  sq.Objectives,
			Rewards:     sq.Rewards,
			QuestGiver:  sq.QuestGiver,
			Location:    sq.Location,
			Status:      sq.Status,
		})
		if err != nil {
			logger.Fatal("creating seed quest", zap.String("name", sq.Name), zap.Error(err))
		}
		logger.Info("created quest", zap.String("name", created.Name))
	}

	notes := postgres.NewNoteRepository(pool.DB())
	for _, sn := range seed.Notes {
		created, err := notes.Create(ctx, &postgres.Note{
			CampaignID: campaign.ID,
			Title:      sn.Title,
			Content:    sn.Content,
			Category:   sn.Category,
			Tags:       sn.Tags,
			IsDMOnly:   sn.IsDMOnly,
		})
		if err != nil {
			logger.Fatal("creating seed note", zap.String("title", sn.Title), zap.Error(err))
		}
		logger.Info("created note", zap.String("title", created.Title))
	}

	logger.Info("seeding complete", zap.Duration("elapsed", time.Since(start)))
}
