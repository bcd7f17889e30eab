// Settlement placement: finds suitable sites for the seeded settlements.
package world

import "sort"

// SettlementSeed holds the parameters for an initial settlement placement.
type SettlementSeed struct {
	Coord   HexCoord
	Terrain Terrain
	Coastal bool
	Size    SettlementSize
	Score   float64
}

// SettlementSize categorizes settlement scale.
type SettlementSize uint8

const (
	SizeVillage SettlementSize = iota
	SizeTown
	SizeCity
)

// PlaceSettlements picks up to count sites on the map, best first. The result
// is deterministic for a given map. Naming is left to whoever settles them.
func PlaceSettlements(m *Map, count int) []SettlementSeed {
	type scored struct {
		coord HexCoord
		score float64
	}
	var candidates []scored

	for coord, hex := range m.Hexes {
		if hex.Terrain == TerrainOcean {
			continue
		}
		if s := settlementScore(m, coord, hex); s > 0 {
			candidates = append(candidates, scored{coord, s})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].coord.Q != candidates[j].coord.Q {
			return candidates[i].coord.Q < candidates[j].coord.Q
		}
		return candidates[i].coord.R < candidates[j].coord.R
	})

	var seeds []SettlementSeed
	minDist := 3
	for _, c := range candidates {
		if len(seeds) >= count {
			break
		}
		if tooClose(c.coord, seeds, minDist) {
			continue
		}
		hex := m.Get(c.coord)
		size := SizeVillage
		switch {
		case len(seeds) < count/4:
			size = SizeCity
		case len(seeds) < count/2:
			size = SizeTown
		}
		seeds = append(seeds, SettlementSeed{
			Coord:   c.coord,
			Terrain: hex.Terrain,
			Coastal: IsCoastal(m, c.coord),
			Size:    size,
			Score:   c.score,
		})
	}

	return seeds
}

// settlementScore evaluates how desirable a hex is for a settlement.
func settlementScore(m *Map, coord HexCoord, hex *Hex) float64 {
	score := 0.0

	switch hex.Terrain {
	case TerrainPlains:
		score += 3.0
	case TerrainCoast:
		score += 4.0 // Harbors are prime locations
	case TerrainRiver:
		score += 3.5
	case TerrainForest:
		score += 1.5
	case TerrainSwamp:
		score += 0.5
	case TerrainMountain:
		score += 0.3
	default:
		return 0
	}

	terrainTypes := make(map[Terrain]bool)
	for _, nc := range coord.Neighbors() {
		nh := m.Get(nc)
		if nh != nil && nh.Terrain != TerrainOcean {
			terrainTypes[nh.Terrain] = true
		}
	}
	score += float64(len(terrainTypes)) * 0.3

	return score
}

func tooClose(coord HexCoord, existing []SettlementSeed, minDist int) bool {
	for _, s := range existing {
		if HexDistance(coord, s.Coord) < minDist {
			return true
		}
	}
	return false
}
