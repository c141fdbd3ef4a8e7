package dndbeyond

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// docFromJSON decodes a JSON literal into a Document.
func docFromJSON(t *testing.T, s string) Document {
	t.Helper()
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(s), &doc))
	return doc
}

// fullCharacterJSON is a representative character service response: a
// multiclass spellcaster with saves, skills, languages, features, spells,
// and slots.
const fullCharacterJSON = `{
  "data": {
    "name": "Morwen Duskhollow",
    "race": {"fullName": "High Elf"},
    "background": {"definition": {"name": "Sage"}},
    "alignmentId": 5,
    "stats": [
      {"name": "Strength", "value": 8},
      {"name": "Dexterity", "value": 14},
      {"name": "Constitution", "value": 12},
      {"name": "Intelligence", "value": 16},
      {"name": "Wisdom", "value": 13},
      {"name": "Charisma"}
    ],
    "classes": [
      {
        "level": 2,
        "definition": {"name": "Wizard", "hitDice": 6},
        "classFeatures": [
          {"definition": {"name": "Arcane Recovery", "description": "Recover slots on a short rest."}, "requiredLevel": 1}
        ]
      },
      {"level": 3, "definition": {"name": "Rogue", "hitDice": 8}},
      {"level": 1, "definition": {"name": "Fighter", "hitDice": 10}}
    ],
    "modifiers": {
      "class": [
        {"type": "proficiency", "subType": "intelligence-saving-throws", "value": 3},
        {"type": "proficiency", "subType": "wisdom-saving-throws"},
        {"type": "proficiency", "subType": "", "value": 2},
        {"type": "proficiency", "subType": "ability-checks", "entityId": 3},
        {"type": "proficiency", "subType": "ability-checks", "entityId": 17},
        {"type": "proficiency", "subType": "ability-checks", "entityId": 99},
        {"type": "expertise", "subType": "ability-checks", "entityId": 9}
      ]
    },
    "languages": [
      {"definition": {"name": "Common"}},
      {"name": "Elvish"},
      {"definition": {"name": "Common"}},
      {"notes": "nameless entry"}
    ],
    "feats": [
      {"definition": {"name": "Alert", "description": "Always ready.", "sourcePageNumber": 165}}
    ],
    "racialTraits": [
      {"name": "Darkvision", "description": "See in dim light."}
    ],
    "spells": {
      "class": [
        {
          "definition": {"name": "Fire Bolt", "level": 0, "school": "Evocation",
            "range": {"rangeValue": 120}, "duration": {"durationValue": "Instantaneous"}},
          "prepared": true
        },
        {
          "definition": {"name": "Fireball", "level": 3, "school": "Evocation",
            "range": {"rangeValue": 150}}
        },
        {
          "definition": {"name": "Mystery Cantrip"}
        }
      ]
    },
    "spellSlots": [
      {"level": 1, "available": 4, "used": 1},
      {"level": 2, "available": 2}
    ],
    "armorClass": 15,
    "initiative": 2,
    "speed": {"walk": 35},
    "baseHitPoints": 30,
    "bonusHitPoints": 6,
    "removedHitPoints": 10,
    "temporaryHitPoints": 5,
    "preferences": {"abilityScoreDisplayType": "int"},
    "notes": {"backstory": "Raised in the archives.", "appearance": "Silver hair."},
    "traits": {
      "personalityTraits": "Curious to a fault.",
      "ideals": "Knowledge.",
      "bonds": "The library.",
      "flaws": "Overconfident."
    }
  }
}`

func TestParseFullDocument(t *testing.T) {
	c, err := Parse(docFromJSON(t, fullCharacterJSON))
	require.NoError(t, err)

	assert.Equal(t, "Morwen Duskhollow", c.Name)
	assert.Equal(t, "High Elf", c.Race)
	assert.Equal(t, "Sage", c.Background)
	assert.Equal(t, "True Neutral", c.Alignment)

	// Multiclass: names joined in document order, levels summed.
	assert.Equal(t, "Wizard, Rogue, Fighter", c.CharacterClass)
	assert.Equal(t, 6, c.Level)

	// Nameless stat entry skipped; missing value defaults to 10.
	assert.Equal(t, map[string]int{
		"str": 8, "dex": 14, "con": 12, "int": 16, "wis": 13,
	}, c.Stats)

	assert.Equal(t, map[string]SavingThrow{
		"int": {Proficient: true, Value: 3},
		"wis": {Proficient: true, Value: 0},
	}, c.SavingThrows)

	// entityId 99 is unknown and ignored; entityId 9 has the wrong type.
	assert.Equal(t, map[string]Skill{
		"arcana":  {Proficient: true},
		"stealth": {Proficient: true},
	}, c.Skills)

	// Document order, duplicate kept, nameless entry dropped.
	assert.Equal(t, []string{"Common", "Elvish", "Common"}, c.Languages)

	require.Len(t, c.Features, 3)
	assert.Equal(t, Feature{Name: "Alert", Description: "Always ready.", Source: "165"}, c.Features[0])
	assert.Equal(t, Feature{Name: "Darkvision", Description: "See in dim light."}, c.Features[1])
	assert.Equal(t, Feature{
		Name:        "Arcane Recovery",
		Description: "Recover slots on a short rest.",
		Source:      "Wizard Level 1",
	}, c.Features[2])

	// Level 0 and absent level both land in the cantrips bucket.
	require.Len(t, c.Spells["cantrips"], 2)
	assert.Equal(t, "Fire Bolt", c.Spells["cantrips"][0].Name)
	assert.Equal(t, 120, c.Spells["cantrips"][0].Range)
	assert.Equal(t, "Instantaneous", c.Spells["cantrips"][0].Duration)
	assert.True(t, c.Spells["cantrips"][0].Prepared)
	assert.Equal(t, "Mystery Cantrip", c.Spells["cantrips"][1].Name)
	require.Len(t, c.Spells["3"], 1)
	assert.Equal(t, "Fireball", c.Spells["3"][0].Name)
	assert.False(t, c.Spells["3"][0].Prepared)
	assert.Empty(t, c.Spells["5"])

	assert.Equal(t, map[string]SpellSlot{
		"1": {Max: 4, Used: 1},
		"2": {Max: 2, Used: 0},
	}, c.SpellSlots)

	assert.Equal(t, 15, c.ArmorClass)
	assert.Equal(t, 2, c.Initiative)
	assert.Equal(t, 35, c.Speed)
	assert.Equal(t, 36, c.HitPointsMax)
	assert.Equal(t, 26, c.HitPointsCurrent)
	assert.Equal(t, 5, c.HitPointsTemp)

	// Die size comes from the first class entry.
	assert.Equal(t, "6d6", c.HitDice)

	assert.Equal(t, "int", c.SpellcastingAbility)
	assert.Equal(t, "Raised in the archives.", c.Backstory)
	assert.Equal(t, "Curious to a fault.", c.PersonalityTraits)
	assert.Equal(t, "Knowledge.", c.Ideals)
	assert.Equal(t, "The library.", c.Bonds)
	assert.Equal(t, "Overconfident.", c.Flaws)
	assert.Equal(t, "Silver hair.", c.Appearance)
}

func TestParseMissingSectionsDegradeToDefaults(t *testing.T) {
	c, err := Parse(docFromJSON(t, `{"data": {"name": "Bare Bones"}}`))
	require.NoError(t, err)

	assert.Equal(t, "Bare Bones", c.Name)
	assert.Empty(t, c.Race)
	assert.Empty(t, c.CharacterClass)
	assert.Zero(t, c.Level)
	assert.Empty(t, c.Background)
	assert.Empty(t, c.Alignment)
	assert.Empty(t, c.Stats)
	assert.Empty(t, c.SavingThrows)
	assert.Empty(t, c.Skills)
	assert.Equal(t, 10, c.ArmorClass)
	assert.Zero(t, c.Initiative)
	assert.Equal(t, 30, c.Speed)
	assert.Zero(t, c.HitPointsMax)
	assert.Zero(t, c.HitPointsCurrent)
	assert.Zero(t, c.HitPointsTemp)
	assert.Equal(t, "0d8", c.HitDice)
	assert.Empty(t, c.Languages)
	assert.Empty(t, c.Features)
	assert.Empty(t, c.SpellSlots)
	assert.Empty(t, c.Backstory)

	// The spell mapping keeps its fixed buckets even with no spells.
	require.Len(t, c.Spells, 10)
	assert.Empty(t, c.Spells["cantrips"])
	assert.Empty(t, c.Spells["9"])
}

func TestParseNoData(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrNoCharacterData)

	_, err = Parse(docFromJSON(t, `{"id": 42}`))
	assert.ErrorIs(t, err, ErrNoCharacterData)

	_, err = Parse(docFromJSON(t, `{"data": "not an object"}`))
	assert.ErrorIs(t, err, ErrNoCharacterData)
}

func TestAlignmentTable(t *testing.T) {
	cases := map[int]string{
		1: "Lawful Good",
		5: "True Neutral",
		9: "Chaotic Evil",
		0: "",
		10: "",
	}
	for id, want := range cases {
		data := Document{"alignmentId": float64(id)}
		assert.Equal(t, want, extractAlignment(data), "alignment id %d", id)
	}
	assert.Empty(t, extractAlignment(Document{}))
}

func TestHitDiceZeroClasses(t *testing.T) {
	c, err := Parse(docFromJSON(t, `{"data": {"classes": []}}`))
	require.NoError(t, err)
	assert.Equal(t, "0d8", c.HitDice)
}

func TestHitPointsNeverClamped(t *testing.T) {
	c, err := Parse(docFromJSON(t, `{"data": {"baseHitPoints": 5, "removedHitPoints": 9}}`))
	require.NoError(t, err)
	assert.Equal(t, 5, c.HitPointsMax)
	assert.Equal(t, -4, c.HitPointsCurrent)
}

func TestZeroArmorClassAndSpeedFallBack(t *testing.T) {
	c, err := Parse(docFromJSON(t, `{"data": {"armorClass": 0, "speed": {"walk": 0}}}`))
	require.NoError(t, err)
	assert.Equal(t, 10, c.ArmorClass)
	assert.Equal(t, 30, c.Speed)
}

// Stat extraction must key only on the lowercase three-letter prefix of each
// entry's name and be independent of stat-list ordering.
func TestStatsOrderIndependent(t *testing.T) {
	names := []string{"Strength", "Dexterity", "Constitution", "Intelligence", "Wisdom", "Charisma"}

	rapid.Check(t, func(t *rapid.T) {
		values := make(map[string]int, len(names))
		entries := make([]any, 0, len(names))
		for _, name := range names {
			v := rapid.IntRange(1, 30).Draw(t, name)
			values[abilityCode(name)] = v
			entries = append(entries, map[string]any{"name": name, "value": float64(v)})
		}

		perm := rapid.Permutation(entries).Draw(t, "order")
		got := extractStats(Document{"stats": perm})

		if len(got) != len(values) {
			t.Fatalf("got %d stats, want %d", len(got), len(values))
		}
		for code, want := range values {
			if got[code] != want {
				t.Fatalf("stat %q = %d, want %d", code, got[code], want)
			}
		}
	})
}

func TestDocumentAccessorsDefensive(t *testing.T) {
	var nilDoc Document
	assert.Nil(t, nilDoc.Map("x"))
	assert.Nil(t, nilDoc.Slice("x"))
	assert.Equal(t, "d", nilDoc.Str("x", "d"))
	assert.Equal(t, 7, nilDoc.Int("x", 7))
	assert.True(t, nilDoc.Bool("x", true))

	doc := docFromJSON(t, `{"s": "text", "n": 42, "f": 1.5, "ns": "17", "b": true, "null": null, "o": {}, "a": []}`)
	assert.Equal(t, "text", doc.Str("s", ""))
	assert.Equal(t, "42", doc.Str("n", ""))
	assert.Equal(t, "1.5", doc.Str("f", ""))
	assert.Equal(t, 42, doc.Int("n", 0))
	assert.Equal(t, 17, doc.Int("ns", 0))
	assert.Equal(t, 3, doc.Int("s", 3))
	assert.Equal(t, 3, doc.Int("null", 3))
	assert.True(t, doc.Bool("b", false))
	assert.NotNil(t, doc.Map("o"))
	assert.Nil(t, doc.Map("a"))
	assert.NotNil(t, doc.Slice("a"))

	// Deep chains through absent keys never panic.
	assert.Equal(t, "", doc.Map("missing").Map("also").Str("name", ""))
}
