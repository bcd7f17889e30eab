package balance

import (
	"errors"
	"fmt"
	"sort"
)

// SizeRange bounds the warrior count of a party.
type SizeRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether n lies within the range.
func (r SizeRange) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// RaidClass is a template bounding party size and scaling raid outcomes.
type RaidClass struct {
	ID                     string    `yaml:"id" json:"id"`
	Name                   string    `yaml:"name" json:"name"`
	Description            string    `yaml:"description" json:"description"`
	Size                   SizeRange `yaml:"size" json:"size"`
	PreparationDays        int       `yaml:"preparation_days" json:"preparation_days"`
	TravelSpeedModifier    float64   `yaml:"travel_speed" json:"travel_speed"`
	CombatStrengthModifier float64   `yaml:"combat_strength" json:"combat_strength"`
	LootModifier           float64   `yaml:"loot" json:"loot"`
	StealthModifier        float64   `yaml:"stealth" json:"stealth"`
	FameModifier           float64   `yaml:"fame" json:"fame"`
	InfamyModifier         float64   `yaml:"infamy" json:"infamy"`
	RequiresShips          bool      `yaml:"requires_ships" json:"requires_ships"`
}

// Validate checks the table invariants for a single class.
func (c RaidClass) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	if c.Size.Min < 1 {
		errs = append(errs, fmt.Errorf("min size %d < 1", c.Size.Min))
	}
	if c.Size.Min > c.Size.Max {
		errs = append(errs, fmt.Errorf("min size %d > max size %d", c.Size.Min, c.Size.Max))
	}
	if c.PreparationDays < 1 {
		errs = append(errs, fmt.Errorf("preparation days %d < 1", c.PreparationDays))
	}
	mods := map[string]float64{
		"travel_speed":    c.TravelSpeedModifier,
		"combat_strength": c.CombatStrengthModifier,
		"loot":            c.LootModifier,
		"stealth":         c.StealthModifier,
		"fame":            c.FameModifier,
		"infamy":          c.InfamyModifier,
	}
	names := make([]string, 0, len(mods))
	for name := range mods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if mods[name] <= 0 {
			errs = append(errs, fmt.Errorf("modifier %s must be > 0, got %v", name, mods[name]))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("raid class %q: %w", c.ID, err)
	}
	return nil
}

// Well-known class IDs the target evaluator gives special treatment.
const (
	ClassQuickRaid    = "quick_raid"
	ClassStandardRaid = "standard_raid"
	ClassGreatRaid    = "great_raid"
	ClassSeaRaid      = "sea_raid"
	ClassPlunderRaid  = "plunder_raid"
)

// DefaultClasses returns the built-in raid classes in display order.
func DefaultClasses() []RaidClass {
	return []RaidClass{
		{
			ID:                     ClassQuickRaid,
			Name:                   "Quick Raid",
			Description:            "A fast strike by a small band, home before the fyrd musters.",
			Size:                   SizeRange{Min: 15, Max: 50},
			PreparationDays:        3,
			TravelSpeedModifier:    1.5,
			CombatStrengthModifier: 0.9,
			LootModifier:           0.8,
			StealthModifier:        1.3,
			FameModifier:           0.8,
			InfamyModifier:         0.8,
		},
		{
			ID:                     ClassStandardRaid,
			Name:                   "Raid",
			Description:            "A warband of proven fighters out for silver and glory.",
			Size:                   SizeRange{Min: 30, Max: 100},
			PreparationDays:        5,
			TravelSpeedModifier:    1.0,
			CombatStrengthModifier: 1.0,
			LootModifier:           1.0,
			StealthModifier:        1.0,
			FameModifier:           1.0,
			InfamyModifier:         1.0,
		},
		{
			ID:                     ClassGreatRaid,
			Name:                   "Great Raid",
			Description:            "A great army that will be sung of for generations.",
			Size:                   SizeRange{Min: 80, Max: 300},
			PreparationDays:        10,
			TravelSpeedModifier:    0.8,
			CombatStrengthModifier: 1.2,
			LootModifier:           1.3,
			StealthModifier:        0.6,
			FameModifier:           1.5,
			InfamyModifier:         1.5,
		},
		{
			ID:                     ClassSeaRaid,
			Name:                   "Sea Raid",
			Description:            "Longships strike a coast without warning.",
			Size:                   SizeRange{Min: 20, Max: 150},
			PreparationDays:        6,
			TravelSpeedModifier:    1.4,
			CombatStrengthModifier: 1.1,
			LootModifier:           1.1,
			StealthModifier:        1.1,
			FameModifier:           1.2,
			InfamyModifier:         1.2,
			RequiresShips:          true,
		},
		{
			ID:                     ClassPlunderRaid,
			Name:                   "Plunder Expedition",
			Description:            "Carts and pack animals follow the warband to strip a rich target bare.",
			Size:                   SizeRange{Min: 40, Max: 120},
			PreparationDays:        6,
			TravelSpeedModifier:    0.9,
			CombatStrengthModifier: 1.0,
			LootModifier:           1.5,
			StealthModifier:        0.8,
			FameModifier:           1.0,
			InfamyModifier:         1.3,
		},
	}
}
