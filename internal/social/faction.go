// Factions: the powers that control settlements and remember raids.
package social

import (
	"maps"
	"sync"

	"github.com/talgya/raid-campaign/internal/balance"
)

// FactionID is a unique identifier for a faction.
type FactionID uint64

// PlayerFactionID is the faction the player leads.
const PlayerFactionID FactionID = 1

// Faction represents a power with an affiliation and opinions of others.
type Faction struct {
	ID          FactionID              `json:"id"`
	Name        string                 `json:"name"`
	Affiliation balance.SettlementType `json:"affiliation"`

	// Relations with other factions (faction ID → -100 to +100).
	Relations map[FactionID]float64 `json:"relations"`
}

// SeedFactions creates the initial factions for the world.
func SeedFactions() []*Faction {
	return []*Faction{
		{ID: PlayerFactionID, Name: "Sons of Lodbrok", Affiliation: balance.Viking, Relations: make(map[FactionID]float64)},
		{ID: 2, Name: "Kingdom of Wessex", Affiliation: balance.Anglo, Relations: make(map[FactionID]float64)},
		{ID: 3, Name: "Kingdom of Mercia", Affiliation: balance.Anglo, Relations: make(map[FactionID]float64)},
		{ID: 4, Name: "West Francia", Affiliation: balance.Frankish, Relations: make(map[FactionID]float64)},
		{ID: 5, Name: "Danish Jarls", Affiliation: balance.Viking, Relations: make(map[FactionID]float64)},
		{ID: 6, Name: "Free Traders of Hedeby", Affiliation: balance.Neutral, Relations: make(map[FactionID]float64)},
	}
}

// Diplomacy is the symmetric relation matrix between factions.
type Diplomacy struct {
	mu       sync.RWMutex
	factions []*Faction
	index    map[FactionID]*Faction
}

// NewDiplomacy wraps a faction list. Missing relation maps are created.
func NewDiplomacy(factions []*Faction) *Diplomacy {
	d := &Diplomacy{index: make(map[FactionID]*Faction, len(factions))}
	for _, f := range factions {
		if f.Relations == nil {
			f.Relations = make(map[FactionID]float64)
		}
		d.factions = append(d.factions, f)
		d.index[f.ID] = f
	}
	return d
}

// SeedRelations sets the opening diplomatic picture.
func (d *Diplomacy) SeedRelations() {
	d.SetRelation(1, 2, -20) // Lodbrok ↔ Wessex: old grudges
	d.SetRelation(1, 3, -10) // Lodbrok ↔ Mercia: wary
	d.SetRelation(1, 4, -5)  // Lodbrok ↔ Francia: distant
	d.SetRelation(1, 5, 30)  // Lodbrok ↔ Danes: kin
	d.SetRelation(1, 6, 20)  // Lodbrok ↔ Hedeby: trade partners
	d.SetRelation(2, 3, 25)  // Wessex ↔ Mercia: uneasy allies
	d.SetRelation(2, 4, 10)  // Wessex ↔ Francia: royal marriages
	d.SetRelation(2, 5, -60) // Wessex ↔ Danes: at war
	d.SetRelation(3, 5, -40) // Mercia ↔ Danes: hostile
	d.SetRelation(4, 5, -30) // Francia ↔ Danes: raided often
	d.SetRelation(5, 6, 15)  // Danes ↔ Hedeby: tolerant
}

// Faction returns a copy of a faction by ID.
func (d *Diplomacy) Faction(id FactionID) (*Faction, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.index[id]
	if !ok {
		return nil, false
	}
	c := *f
	c.Relations = maps.Clone(f.Relations)
	return &c, true
}

// Factions returns copies of all factions in seed order.
func (d *Diplomacy) Factions() []*Faction {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Faction, len(d.factions))
	for i, f := range d.factions {
		c := *f
		c.Relations = maps.Clone(f.Relations)
		out[i] = &c
	}
	return out
}

// Relation returns the current relation between two factions.
func (d *Diplomacy) Relation(a, b FactionID) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if f, ok := d.index[a]; ok {
		return f.Relations[b]
	}
	return 0
}

// SetRelation sets a symmetric relation, clamped to [-100, 100].
func (d *Diplomacy) SetRelation(a, b FactionID, value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setLocked(a, b, clampRelation(value))
}

// ModifyRelation shifts the relation between a and b by delta and returns the
// clamped result.
func (d *Diplomacy) ModifyRelation(a, b FactionID, delta float64) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	current := 0.0
	if f, ok := d.index[a]; ok {
		current = f.Relations[b]
	}
	next := clampRelation(current + delta)
	d.setLocked(a, b, next)
	return next
}

func (d *Diplomacy) setLocked(a, b FactionID, value float64) {
	if a == b {
		return
	}
	if f, ok := d.index[a]; ok {
		f.Relations[b] = value
	}
	if f, ok := d.index[b]; ok {
		f.Relations[a] = value
	}
}

// Drift moves every relation toward zero by the given fraction.
func (d *Diplomacy) Drift(fraction float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, f := range d.factions {
		for otherID, rel := range f.Relations {
			f.Relations[otherID] = rel - rel*fraction
		}
	}
}

func clampRelation(v float64) float64 {
	return min(max(v, -100), 100)
}
