package agents

import "sync"

// WarriorPool is the player's stock of warriors not currently away on a raid.
type WarriorPool struct {
	mu        sync.Mutex
	available int
}

// NewWarriorPool creates a pool with the given number of idle warriors.
func NewWarriorPool(warriors int) *WarriorPool {
	return &WarriorPool{available: max(warriors, 0)}
}

// ReserveWarriors takes n warriors out of the idle pool. Returns false and
// reserves nothing if fewer than n are idle.
func (p *WarriorPool) ReserveWarriors(n int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n <= 0 || n > p.available {
		return false
	}
	p.available -= n
	return true
}

// ReleaseWarriors returns n warriors to the idle pool.
func (p *WarriorPool) ReleaseWarriors(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n > 0 {
		p.available += n
	}
}

// GetAvailableWarriors returns the number of idle warriors.
func (p *WarriorPool) GetAvailableWarriors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}
