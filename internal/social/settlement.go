// Package social provides settlements, factions and their relations, and the
// player's fame.
package social

import (
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/world"
)

// SettlementID is a unique identifier for a settlement.
type SettlementID = uint64

// Settlement represents a population centre that can be raided.
type Settlement struct {
	ID        SettlementID           `json:"id"`
	Name      string                 `json:"name"`
	Position  world.HexCoord         `json:"position"`
	Terrain   world.Terrain          `json:"terrain"`
	Coastal   bool                   `json:"coastal"`
	Type      balance.SettlementType `json:"type"`
	FactionID FactionID              `json:"faction_id"`

	// Demographics
	Population uint32 `json:"population"`
	Prosperity int    `json:"prosperity"` // 0–100

	// Defence
	Warriors int `json:"warriors"` // Standing garrison
	Defenses int `json:"defenses"` // Palisade/wall level 0–10
	Ships    int `json:"ships"`

	// Religious sites draw harsher condemnation when raided.
	Religious bool `json:"religious"`

	Holdings economy.Bundle `json:"holdings"`
}

// Point returns the settlement's position on the world plane.
func (s *Settlement) Point() world.Point {
	return s.Position.ToPoint()
}

// Wealth returns the weighted value of the holdings raiders care about.
func (s *Settlement) Wealth() float64 {
	w := 0.0
	for r, weight := range balance.WealthWeights {
		w += float64(s.Holdings[r]) * weight
	}
	return w
}

// Clone returns a deep copy so callers can keep a snapshot that later
// mutations to the live settlement do not reach.
func (s *Settlement) Clone() *Settlement {
	c := *s
	c.Holdings = s.Holdings.Clone()
	return &c
}
