// Package dndbeyond imports characters from D&D Beyond and normalizes them
// into the campaign manager's flat character record.
package dndbeyond

// SavingThrow records an explicit saving throw proficiency and its modifier value.
type SavingThrow struct {
	Proficient bool `json:"proficient"`
	Value      int  `json:"value"`
}

// Skill records a skill proficiency. Expertise is always false: the modifier
// shape consumed from the character service does not encode it.
type Skill struct {
	Proficient bool `json:"proficient"`
	Expertise  bool `json:"expertise"`
}

// Feature is a single racial trait, feat, or class feature.
type Feature struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// Spell is a single known spell.
type Spell struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	School      string `json:"school"`
	CastingTime string `json:"castingTime"`
	Range       int    `json:"range"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
	Prepared    bool   `json:"prepared"`
}

// SpellSlot tracks slot availability for one spell level.
type SpellSlot struct {
	Max  int `json:"max"`
	Used int `json:"used"`
}

// Character is the canonical flat character record produced by an import.
// Field names and JSON tags match the characters table schema.
//
// Every field is independently derivable: a missing or malformed section in
// the source document degrades that field to its default, never the whole
// record.
type Character struct {
	Name           string `json:"name"`
	Race           string `json:"race"`
	CharacterClass string `json:"character_class"`
	Level          int    `json:"level"`
	Background     string `json:"background"`
	Alignment      string `json:"alignment"`

	Stats        map[string]int         `json:"stats"`
	SavingThrows map[string]SavingThrow `json:"saving_throws"`
	Skills       map[string]Skill       `json:"skills"`

	ArmorClass       int    `json:"armor_class"`
	Initiative       int    `json:"initiative"`
	Speed            int    `json:"speed"`
	HitPointsMax     int    `json:"hit_points_max"`
	HitPointsCurrent int    `json:"hit_points_current"`
	HitPointsTemp    int    `json:"hit_points_temp"`
	HitDice          string `json:"hit_dice"`

	Languages  []string             `json:"languages"`
	Features   []Feature            `json:"features"`
	Spells     map[string][]Spell   `json:"spells"`
	SpellSlots map[string]SpellSlot `json:"spell_slots"`

	SpellcastingAbility string `json:"spellcasting_ability"`
	Backstory           string `json:"backstory"`
	PersonalityTraits   string `json:"personality_traits"`
	Ideals              string `json:"ideals"`
	Bonds               string `json:"bonds"`
	Flaws               string `json:"flaws"`
	Appearance          string `json:"appearance"`
}

// NewCharacter returns a Character with every field at its documented default:
// armor class 10, speed 30, a "0d8" hit die, empty collections, and an empty
// spell bucket for cantrips and levels 1-9.
//
// Postcondition: returns a non-nil Character; no map or slice field is nil.
func NewCharacter() *Character {
	return &Character{
		Stats:        map[string]int{},
		SavingThrows: map[string]SavingThrow{},
		Skills:       map[string]Skill{},
		ArmorClass:   10,
		Speed:        30,
		HitDice:      "0d8",
		Languages:    []string{},
		Features:     []Feature{},
		Spells:       emptySpellBuckets(),
		SpellSlots:   map[string]SpellSlot{},
	}
}
