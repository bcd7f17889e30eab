package raid

import (
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/social"
	"github.com/talgya/raid-campaign/internal/world"
)

// PopulationStore holds the player's idle warriors.
type PopulationStore interface {
	ReserveWarriors(n int) bool
	ReleaseWarriors(n int)
	GetAvailableWarriors() int
}

// ResourceStore holds the player's stockpile.
type ResourceStore interface {
	CanAfford(b economy.Bundle) bool
	Subtract(b economy.Bundle) bool
	Add(b economy.Bundle)
	Snapshot() economy.Bundle
}

// SettlementRegistry gives read access to the world's settlements and the one
// write raids need: stripping loot and defenders from a target.
type SettlementRegistry interface {
	GetSettlement(id social.SettlementID) (*social.Settlement, bool)
	GetSettlementPosition(id social.SettlementID) (world.Point, bool)
	Settlements() []*social.Settlement
	ApplyRaid(id social.SettlementID, loot economy.Bundle, defenderCasualties int) bool
}

// RelationReader looks up the standing between two factions.
type RelationReader interface {
	Relation(a, b social.FactionID) float64
}

// RelationMatrix is the persisted faction relation store.
type RelationMatrix interface {
	RelationReader
	ModifyRelation(a, b social.FactionID, delta float64) float64
	Factions() []*social.Faction
}

// FameTracker records the player's fame.
type FameTracker interface {
	AddFame(amount int, reason string)
	Total() int
}
