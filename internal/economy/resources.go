// Package economy provides resource bundles and the player's resource store.
package economy

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Resource names a stockpiled good.
type Resource string

const (
	Food      Resource = "food"
	Wood      Resource = "wood"
	Silver    Resource = "silver"
	Gold      Resource = "gold"
	Metal     Resource = "metal"
	Cloth     Resource = "cloth"
	Livestock Resource = "livestock"
	Ships     Resource = "ships"
)

// AllResources lists every resource in display order.
var AllResources = []Resource{Food, Wood, Silver, Gold, Metal, Cloth, Livestock, Ships}

// Bundle maps resources to whole-unit quantities.
type Bundle map[Resource]int

// Clone returns an independent copy of the bundle.
func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	for r, n := range b {
		out[r] = n
	}
	return out
}

// Total returns the sum of all quantities.
func (b Bundle) Total() int {
	total := 0
	for _, n := range b {
		total += n
	}
	return total
}

// IsEmpty reports whether no resource has a positive quantity.
func (b Bundle) IsEmpty() bool {
	for _, n := range b {
		if n > 0 {
			return false
		}
	}
	return true
}

// Value weighs the bundle by base trade value. Unknown resources count 1 each.
func (b Bundle) Value() float64 {
	v := 0.0
	for r, n := range b {
		v += float64(n) * BaseValue(r)
	}
	return v
}

// String renders the bundle as "food=10 silver=3" in sorted order.
func (b Bundle) String() string {
	keys := make([]string, 0, len(b))
	for r, n := range b {
		if n != 0 {
			keys = append(keys, fmt.Sprintf("%s=%d", r, n))
		}
	}
	sort.Strings(keys)
	return strings.Join(keys, " ")
}

// BaseValue returns the trade value of one unit of a resource.
func BaseValue(r Resource) float64 {
	switch r {
	case Food, Wood:
		return 1
	case Cloth, Livestock:
		return 3
	case Metal:
		return 4
	case Silver:
		return 10
	case Gold:
		return 25
	case Ships:
		return 100
	default:
		return 1
	}
}

// Store is an in-memory resource stockpile. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	holdings Bundle
}

// NewStore creates a store seeded with the given holdings.
func NewStore(initial Bundle) *Store {
	if initial == nil {
		initial = Bundle{}
	}
	return &Store{holdings: initial.Clone()}
}

// CanAfford reports whether every quantity in the bundle is held.
func (s *Store) CanAfford(b Bundle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canAfford(b)
}

func (s *Store) canAfford(b Bundle) bool {
	for r, n := range b {
		if n > 0 && s.holdings[r] < n {
			return false
		}
	}
	return true
}

// Subtract removes the bundle atomically. Returns false and changes nothing
// if any resource is short.
func (s *Store) Subtract(b Bundle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.canAfford(b) {
		return false
	}
	for r, n := range b {
		if n > 0 {
			s.holdings[r] -= n
		}
	}
	return true
}

// Add deposits the bundle. Non-positive quantities are ignored.
func (s *Store) Add(b Bundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for r, n := range b {
		if n > 0 {
			s.holdings[r] += n
		}
	}
}

// Amount returns the held quantity of one resource.
func (s *Store) Amount(r Resource) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdings[r]
}

// Snapshot returns a copy of all holdings.
func (s *Store) Snapshot() Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdings.Clone()
}
