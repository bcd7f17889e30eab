package social

import (
	"sync"

	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/world"
)

// Registry is the live set of settlements. Reads hand out copies; only
// ApplyRaid and Remove change a settlement.
type Registry struct {
	mu    sync.RWMutex
	order []SettlementID
	index map[SettlementID]*Settlement
}

// NewRegistry creates a registry holding the given settlements in order.
func NewRegistry(settlements []*Settlement) *Registry {
	r := &Registry{index: make(map[SettlementID]*Settlement, len(settlements))}
	for _, s := range settlements {
		r.Add(s)
	}
	return r
}

// Add inserts or replaces a settlement. New settlements go to the end of the order.
func (r *Registry) Add(s *Settlement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[s.ID]; !ok {
		r.order = append(r.order, s.ID)
	}
	r.index[s.ID] = s.Clone()
}

// GetSettlement returns a snapshot of the settlement.
func (r *Registry) GetSettlement(id SettlementID) (*Settlement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// GetSettlementPosition returns the settlement's world-plane position.
func (r *Registry) GetSettlementPosition(id SettlementID) (world.Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.index[id]
	if !ok {
		return world.Point{}, false
	}
	return s.Point(), true
}

// Settlements returns snapshots of every settlement in insertion order.
func (r *Registry) Settlements() []*Settlement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Settlement, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.index[id].Clone())
	}
	return out
}

// Remove deletes a settlement, e.g. when another power razes it.
func (r *Registry) Remove(id SettlementID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[id]; !ok {
		return false
	}
	delete(r.index, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// ApplyRaid removes looted goods and fallen defenders from a settlement.
// Quantities never drop below zero. Returns false if the settlement is gone.
func (r *Registry) ApplyRaid(id SettlementID, loot economy.Bundle, defenderCasualties int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.index[id]
	if !ok {
		return false
	}
	if s.Holdings == nil {
		s.Holdings = economy.Bundle{}
	}
	for res, n := range loot {
		s.Holdings[res] = max(s.Holdings[res]-n, 0)
	}
	s.Warriors = max(s.Warriors-defenderCasualties, 0)
	return true
}
