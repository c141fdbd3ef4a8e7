package dndbeyond

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoCharacterData is returned when a fetched document carries no character
// data section at all. Individual missing fields never produce an error; only
// a structurally absent root does.
var ErrNoCharacterData = errors.New("document has no character data")

// skillNames maps the character service's fixed skill entity ids to the
// eighteen skill slugs used by the characters schema.
var skillNames = map[int]string{
	1: "acrobatics", 2: "animal-handling", 3: "arcana", 4: "athletics",
	5: "deception", 6: "history", 7: "insight", 8: "intimidation",
	9: "investigation", 10: "medicine", 11: "nature", 12: "perception",
	13: "performance", 14: "persuasion", 15: "religion", 16: "sleight-of-hand",
	17: "stealth", 18: "survival",
}

// alignmentNames maps the service's numeric alignment ids to the nine
// canonical labels. Unknown ids map to the empty string.
var alignmentNames = map[int]string{
	1: "Lawful Good", 2: "Neutral Good", 3: "Chaotic Good",
	4: "Lawful Neutral", 5: "True Neutral", 6: "Chaotic Neutral",
	7: "Lawful Evil", 8: "Neutral Evil", 9: "Chaotic Evil",
}

// Parse maps a raw character service response onto the canonical Character
// record. Each facet is extracted independently; a missing or malformed
// section degrades that facet to its default without affecting the rest.
//
// Precondition: doc is the full response body, with the character under "data".
// Postcondition: returns a fully-populated Character, or ErrNoCharacterData
// when doc is nil or has no "data" object.
func Parse(doc Document) (*Character, error) {
	data := doc.Map("data")
	if data == nil {
		return nil, ErrNoCharacterData
	}

	c := NewCharacter()
	c.Name = data.Str("name", "")
	c.Race = data.Map("race").Str("fullName", "")
	c.Background = data.Map("background").Map("definition").Str("name", "")
	c.Alignment = extractAlignment(data)

	c.CharacterClass, c.Level = extractClasses(data)
	c.Stats = extractStats(data)
	c.SavingThrows = extractSavingThrows(data)
	c.Skills = extractSkills(data)
	c.Languages = extractLanguages(data)
	c.Features = extractFeatures(data)
	c.Spells = extractSpells(data)
	c.SpellSlots = extractSpellSlots(data)

	extractCombatStats(data, c)

	c.SpellcastingAbility = data.Map("preferences").Str("abilityScoreDisplayType", "")
	c.Backstory = data.Map("notes").Str("backstory", "")
	c.PersonalityTraits = data.Map("traits").Str("personalityTraits", "")
	c.Ideals = data.Map("traits").Str("ideals", "")
	c.Bonds = data.Map("traits").Str("bonds", "")
	c.Flaws = data.Map("traits").Str("flaws", "")
	c.Appearance = data.Map("notes").Str("appearance", "")

	return c, nil
}

// abilityCode reduces an ability or save name to its three-letter lowercase
// code ("Strength" -> "str", "wisdom-saving-throws" -> "wis").
func abilityCode(name string) string {
	s := strings.ToLower(name)
	if len(s) > 3 {
		s = s[:3]
	}
	return s
}

// extractStats keys each named stat entry by its three-letter ability code.
// Entries without a name are skipped; a missing value defaults to 10.
func extractStats(data Document) map[string]int {
	stats := map[string]int{}
	for _, v := range data.Slice("stats") {
		entry := docOf(v)
		name := entry.Str("name", "")
		if name == "" {
			continue
		}
		stats[abilityCode(name)] = entry.Int("value", 10)
	}
	return stats
}

// extractClasses joins every class definition name with ", " and sums the
// per-class levels, covering both single-class and multiclass builds.
func extractClasses(data Document) (string, int) {
	var names []string
	level := 0
	for _, v := range data.Slice("classes") {
		entry := docOf(v)
		names = append(names, entry.Map("definition").Str("name", ""))
		level += entry.Int("level", 0)
	}
	return strings.Join(names, ", "), level
}

// extractSavingThrows scans class-scoped modifiers for saving throw
// proficiencies: any entry with a non-empty subtype whose type mentions
// "saving-throws".
func extractSavingThrows(data Document) map[string]SavingThrow {
	saves := map[string]SavingThrow{}
	for _, v := range data.Map("modifiers").Slice("class") {
		entry := docOf(v)
		modType := entry.Str("type", "")
		modSubtype := entry.Str("subType", "")
		if modSubtype == "" || !strings.Contains(modType, "saving-throws") {
			continue
		}
		saves[abilityCode(modSubtype)] = SavingThrow{
			Proficient: true,
			Value:      entry.Int("value", 0),
		}
	}
	return saves
}

// extractSkills scans class-scoped modifiers for ability-check proficiencies
// and resolves their entity ids through the fixed skill table. Unknown ids
// are ignored.
func extractSkills(data Document) map[string]Skill {
	skills := map[string]Skill{}
	for _, v := range data.Map("modifiers").Slice("class") {
		entry := docOf(v)
		if entry.Str("type", "") != "proficiency" || entry.Str("subType", "") != "ability-checks" {
			continue
		}
		name, ok := skillNames[entry.Int("entityId", 0)]
		if !ok {
			continue
		}
		skills[name] = Skill{Proficient: true, Expertise: false}
	}
	return skills
}

// extractLanguages collects language names in document order, preferring the
// nested definition name over a flat name field. No deduplication.
func extractLanguages(data Document) []string {
	langs := []string{}
	for _, v := range data.Slice("languages") {
		entry := docOf(v)
		name := entry.Map("definition").Str("name", "")
		if name == "" {
			name = entry.Str("name", "")
		}
		if name == "" {
			continue
		}
		langs = append(langs, name)
	}
	return langs
}

// extractFeatures concatenates feats, racial traits, and per-class features,
// in that order. Feats and racial traits source their page number when
// available; class features synthesize "<class> Level <requiredLevel>".
func extractFeatures(data Document) []Feature {
	features := []Feature{}

	flat := append(data.Slice("feats"), data.Slice("racialTraits")...)
	for _, v := range flat {
		entry := docOf(v)
		def := entry.Map("definition")
		features = append(features, Feature{
			Name:        def.Str("name", entry.Str("name", "")),
			Description: def.Str("description", entry.Str("description", "")),
			Source:      def.Str("sourcePageNumber", ""),
		})
	}

	for _, v := range data.Slice("classes") {
		entry := docOf(v)
		className := entry.Map("definition").Str("name", "")
		for _, fv := range entry.Slice("classFeatures") {
			feat := docOf(fv)
			features = append(features, Feature{
				Name:        feat.Map("definition").Str("name", ""),
				Description: feat.Map("definition").Str("description", ""),
				Source:      fmt.Sprintf("%s Level %d", className, feat.Int("requiredLevel", 1)),
			})
		}
	}
	return features
}

func emptySpellBuckets() map[string][]Spell {
	buckets := map[string][]Spell{"cantrips": {}}
	for i := 1; i <= 9; i++ {
		buckets[strconv.Itoa(i)] = []Spell{}
	}
	return buckets
}

// extractSpells buckets class-scoped spells by level: 0 lands in "cantrips",
// everything else under its stringified level.
func extractSpells(data Document) map[string][]Spell {
	buckets := emptySpellBuckets()
	for _, v := range data.Map("spells").Slice("class") {
		entry := docOf(v)
		def := entry.Map("definition")
		level := def.Int("level", 0)
		spell := Spell{
			Name:        def.Str("name", ""),
			Level:       level,
			School:      def.Str("school", ""),
			CastingTime: def.Str("castingTime", ""),
			Range:       def.Map("range").Int("rangeValue", 0),
			Duration:    def.Map("duration").Str("durationValue", ""),
			Description: def.Str("description", ""),
			Prepared:    entry.Bool("prepared", false),
		}
		key := "cantrips"
		if level != 0 {
			key = strconv.Itoa(level)
		}
		buckets[key] = append(buckets[key], spell)
	}
	return buckets
}

// extractSpellSlots keys each slot entry by its stringified level with
// available/used counts.
func extractSpellSlots(data Document) map[string]SpellSlot {
	slots := map[string]SpellSlot{}
	for _, v := range data.Slice("spellSlots") {
		entry := docOf(v)
		slots[strconv.Itoa(entry.Int("level", 0))] = SpellSlot{
			Max:  entry.Int("available", 0),
			Used: entry.Int("used", 0),
		}
	}
	return slots
}

func extractAlignment(data Document) string {
	return alignmentNames[data.Int("alignmentId", 0)]
}

// extractCombatStats fills armor class, initiative, speed, hit points, and
// the hit dice string. Zero counts as unset for armor class and walking
// speed, matching the source's encoding. Hit points are never clamped:
// current is the raw base + bonus - removed arithmetic.
func extractCombatStats(data Document, c *Character) {
	if ac := data.Int("armorClass", 0); ac != 0 {
		c.ArmorClass = ac
	} else {
		c.ArmorClass = 10
	}
	c.Initiative = data.Int("initiative", 0)
	if walk := data.Map("speed").Int("walk", 0); walk != 0 {
		c.Speed = walk
	} else {
		c.Speed = 30
	}

	base := data.Int("baseHitPoints", 0)
	bonus := data.Int("bonusHitPoints", 0)
	removed := data.Int("removedHitPoints", 0)
	c.HitPointsMax = base + bonus
	c.HitPointsCurrent = base + bonus - removed
	c.HitPointsTemp = data.Int("temporaryHitPoints", 0)

	die := 8
	if classes := data.Slice("classes"); len(classes) > 0 {
		die = docOf(classes[0]).Map("definition").Int("hitDice", 8)
	}
	c.HitDice = fmt.Sprintf("%dd%d", c.Level, die)
}
