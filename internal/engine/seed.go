// World seeding: a fresh region, its settlements and who rules them.
package engine

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/raid-campaign/internal/agents"
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/social"
	"github.com/talgya/raid-campaign/internal/world"
)

// SeedConfig controls fresh world generation.
type SeedConfig struct {
	Seed           int64
	Settlements    int
	PlayerWarriors int
	PlayerFood     int
	Leaders        int
}

// SeedWorld generates a region and returns the setup for a new campaign. The
// best coastal site becomes the player's seat; the rest are dealt out to the
// other factions. The result is deterministic for a seed.
func SeedWorld(cfg SeedConfig) (Setup, *world.Map) {
	gen := world.DefaultGenConfig()
	gen.Seed = cfg.Seed
	m := world.Generate(gen)

	seeds := world.PlaceSettlements(m, cfg.Settlements)
	rng := rand.New(rand.NewSource(cfg.Seed + 400))
	names := newNamer(cfg.Seed + 200)

	factions := social.SeedFactions()
	diplomacy := social.NewDiplomacy(factions)
	diplomacy.SeedRelations()

	var rivals []*social.Faction
	for _, f := range factions {
		if f.ID != social.PlayerFactionID {
			rivals = append(rivals, f)
		}
	}

	home := 0
	for i, ss := range seeds {
		if ss.Coastal {
			home = i
			break
		}
	}

	settlements := make([]*social.Settlement, 0, len(seeds))
	var homeID social.SettlementID
	for i, ss := range seeds {
		owner := factions[0]
		if i != home {
			owner = rivals[len(settlements)%len(rivals)]
		}

		pop := world.PopulationForSize(ss.Size, rng)
		sid := social.SettlementID(i + 1)
		s := &social.Settlement{
			ID:         sid,
			Name:       names.next(owner.Affiliation),
			Position:   ss.Coord,
			Terrain:    ss.Terrain,
			Coastal:    ss.Coastal,
			Type:       owner.Affiliation,
			FactionID:  owner.ID,
			Population: pop,
			Prosperity: 30 + rng.Intn(50),
			Warriors:   int(pop) / 15,
			Defenses:   defensesForSize(ss.Size, rng),
			Religious:  owner.Affiliation != balance.Viking && rng.Float64() < 0.3,
			Holdings:   holdingsFor(owner.Affiliation, pop, rng),
		}
		if s.Coastal {
			s.Ships = int(pop)/150 + rng.Intn(3)
		}
		if i == home {
			homeID = sid
		}

		hex := m.Get(ss.Coord)
		if hex != nil {
			hex.SettlementID = &sid
		}
		settlements = append(settlements, s)
	}

	leaders := agents.NewSpawner(cfg.Seed).SpawnLeaders(cfg.Leaders)

	slog.Info("world seeded",
		"settlements", len(settlements),
		"home", homeID,
		"leaders", len(leaders),
		"hexes", m.HexCount(),
	)

	return Setup{
		HomeID:      homeID,
		Settlements: settlements,
		Factions:    factions,
		Leaders:     leaders,
		Warriors:    cfg.PlayerWarriors,
		Stock: economy.Bundle{
			economy.Food:   cfg.PlayerFood,
			economy.Wood:   200,
			economy.Silver: 20,
			economy.Ships:  4,
		},
		Seed: cfg.Seed,
	}, m
}

func defensesForSize(size world.SettlementSize, rng *rand.Rand) int {
	switch size {
	case world.SizeCity:
		return 5 + rng.Intn(4)
	case world.SizeTown:
		return 2 + rng.Intn(3)
	default:
		return rng.Intn(2)
	}
}

// holdingsFor stocks a settlement in proportion to its people, weighted by
// what its culture tends to hoard.
func holdingsFor(t balance.SettlementType, pop uint32, rng *rand.Rand) economy.Bundle {
	p := int(pop)
	b := economy.Bundle{
		economy.Food:      p + rng.Intn(p/2+1),
		economy.Wood:      p/2 + rng.Intn(50),
		economy.Livestock: p/10 + rng.Intn(10),
		economy.Cloth:     p/20 + rng.Intn(10),
		economy.Metal:     p/25 + rng.Intn(5),
	}
	switch t {
	case balance.Anglo:
		b[economy.Silver] = p/8 + rng.Intn(20)
		b[economy.Gold] = p/80 + rng.Intn(3)
	case balance.Frankish:
		b[economy.Silver] = p/6 + rng.Intn(25)
		b[economy.Gold] = p/60 + rng.Intn(4)
		b[economy.Cloth] += p / 20
	case balance.Neutral:
		b[economy.Silver] = p/5 + rng.Intn(30)
		b[economy.Cloth] += p / 10
	case balance.Viking:
		b[economy.Silver] = p/15 + rng.Intn(10)
		b[economy.Metal] += p / 25
	}
	return b
}
