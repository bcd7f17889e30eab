// Leader spawning: creates the player's initial roster of raid leaders.
package agents

import "math/rand"

// Spawner creates leaders for the simulation.
type Spawner struct {
	rng    *rand.Rand
	nextID LeaderID
}

// NewSpawner creates a leader spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
	}
}

// SetNextID sets the next leader ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id LeaderID) {
	s.nextID = id
}

// SpawnLeaders creates count leaders with skills weighted toward the middle
// of the 0–10 range.
func (s *Spawner) SpawnLeaders(count int) []*Leader {
	leaders := make([]*Leader, 0, count)
	for i := 0; i < count; i++ {
		leaders = append(leaders, s.spawnOne())
	}
	return leaders
}

func (s *Spawner) spawnOne() *Leader {
	id := s.nextID
	s.nextID++

	return &Leader{
		ID:   id,
		Name: s.name(),
		Skills: SkillSet{
			Combat:     s.skill(),
			Leadership: s.skill(),
		},
	}
}

// skill averages two uniform draws for a triangular distribution on 0–10.
func (s *Spawner) skill() float64 {
	v := (s.rng.Float64() + s.rng.Float64()) * 5
	return float64(int(v*10)) / 10
}

func (s *Spawner) name() string {
	given := []string{
		"Ragnar", "Ivar", "Bjorn", "Halfdan", "Ubba", "Sigurd", "Harald",
		"Astrid", "Lagertha", "Gunnhild", "Thyra", "Freydis", "Ingrid", "Sigrid",
	}
	epithets := []string{
		"the Bold", "Ironside", "the Boneless", "Snake-in-the-Eye", "Fairhair",
		"the Red", "Bloodaxe", "the Wise", "Forkbeard", "the Black",
	}
	return given[s.rng.Intn(len(given))] + " " + epithets[s.rng.Intn(len(epithets))]
}
