package balance

import "github.com/talgya/raid-campaign/internal/economy"

// ResourceDrop is one loot table row: a chance to carry off between Min and
// Max units of a resource.
type ResourceDrop struct {
	Resource economy.Resource `json:"resource"`
	Min      int              `json:"min"`
	Max      int              `json:"max"`
	Chance   float64          `json:"chance"` // 0–1
}

// SpecialItem is a named treasure with no quantity.
type SpecialItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Chance      float64 `json:"chance"` // 0–1
}

// LootTable lists what can be taken from one type of settlement.
type LootTable struct {
	Common  []ResourceDrop `json:"common"`
	Rare    []ResourceDrop `json:"rare"`
	Special []SpecialItem  `json:"special"`
}

// LootTableFor returns the loot table for a settlement type.
func LootTableFor(t SettlementType) LootTable {
	switch t {
	case Viking:
		return vikingLoot
	case Anglo:
		return angloLoot
	case Frankish:
		return frankishLoot
	case Neutral:
		return neutralLoot
	}
	return neutralLoot
}

var vikingLoot = LootTable{
	Common: []ResourceDrop{
		{Resource: economy.Food, Min: 20, Max: 60, Chance: 0.9},
		{Resource: economy.Wood, Min: 10, Max: 40, Chance: 0.7},
		{Resource: economy.Metal, Min: 5, Max: 20, Chance: 0.5},
		{Resource: economy.Livestock, Min: 2, Max: 10, Chance: 0.4},
	},
	Rare: []ResourceDrop{
		{Resource: economy.Silver, Min: 5, Max: 25, Chance: 0.3},
		{Resource: economy.Ships, Min: 1, Max: 1, Chance: 0.05},
	},
	Special: []SpecialItem{
		{Name: "Ulfberht Sword", Description: "A blade of crucible steel bearing the smith's mark.", Chance: 0.03},
		{Name: "Jarl's Arm Ring", Description: "A twisted gold ring given for loyal service.", Chance: 0.05},
	},
}

var angloLoot = LootTable{
	Common: []ResourceDrop{
		{Resource: economy.Food, Min: 30, Max: 90, Chance: 0.9},
		{Resource: economy.Livestock, Min: 5, Max: 20, Chance: 0.6},
		{Resource: economy.Cloth, Min: 5, Max: 25, Chance: 0.5},
		{Resource: economy.Silver, Min: 10, Max: 40, Chance: 0.5},
	},
	Rare: []ResourceDrop{
		{Resource: economy.Gold, Min: 2, Max: 10, Chance: 0.2},
		{Resource: economy.Metal, Min: 10, Max: 30, Chance: 0.3},
	},
	Special: []SpecialItem{
		{Name: "Illuminated Gospel", Description: "Gilded pages a monastery would pay dearly to recover.", Chance: 0.05},
		{Name: "Reliquary Cross", Description: "A jewelled cross holding the bones of a saint.", Chance: 0.04},
	},
}

var frankishLoot = LootTable{
	Common: []ResourceDrop{
		{Resource: economy.Food, Min: 30, Max: 80, Chance: 0.85},
		{Resource: economy.Silver, Min: 15, Max: 50, Chance: 0.6},
		{Resource: economy.Cloth, Min: 10, Max: 30, Chance: 0.6},
		{Resource: economy.Metal, Min: 10, Max: 30, Chance: 0.5},
	},
	Rare: []ResourceDrop{
		{Resource: economy.Gold, Min: 5, Max: 15, Chance: 0.25},
	},
	Special: []SpecialItem{
		{Name: "Carolingian Mail", Description: "Fine riveted mail from the emperor's armouries.", Chance: 0.04},
		{Name: "Church Plate", Description: "Silver chalices and a paten from the altar.", Chance: 0.06},
	},
}

var neutralLoot = LootTable{
	Common: []ResourceDrop{
		{Resource: economy.Food, Min: 15, Max: 50, Chance: 0.9},
		{Resource: economy.Wood, Min: 10, Max: 30, Chance: 0.6},
		{Resource: economy.Livestock, Min: 2, Max: 8, Chance: 0.4},
	},
	Rare: []ResourceDrop{
		{Resource: economy.Silver, Min: 5, Max: 15, Chance: 0.2},
	},
	Special: []SpecialItem{
		{Name: "Trader's Scales", Description: "Bronze folding scales for weighing hacksilver.", Chance: 0.05},
	},
}
