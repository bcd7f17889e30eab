// Package world provides the hex grid, terrain, and the continuous positions
// settlements are measured by. Uses axial coordinates (q, r) for the grid.
package world

import "math"

// HexSize is the distance in world units between adjacent hex centres.
const HexSize = 40.0

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Point is a position on the continuous world plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToPoint converts a hex centre to world-plane units.
// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2, scaled by HexSize.
func (h HexCoord) ToPoint() Point {
	x := float64(h.Q) + float64(h.R)*0.5
	y := float64(h.R) * math.Sqrt(3.0) / 2.0
	return Point{X: x * HexSize, Y: y * HexSize}
}

// Distance returns the Euclidean distance between two world-plane points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainPlains   Terrain = iota // Open ground, no defensive edge
	TerrainForest                  // Cover for defenders
	TerrainMountain                // Strongest defensive position
	TerrainCoast                   // Reachable by ship
	TerrainRiver                   // Fords slow attackers
	TerrainSwamp                   // Bogs attackers down
	TerrainOcean                   // Impassable except by ship
)

// DefenseModifier is the multiplier terrain applies to a defender's strength.
func (t Terrain) DefenseModifier() float64 {
	switch t {
	case TerrainForest:
		return 1.1
	case TerrainMountain:
		return 1.25
	case TerrainRiver:
		return 1.05
	case TerrainSwamp:
		return 1.15
	default:
		return 1.0
	}
}

// String returns a human-readable name for a terrain type.
func (t Terrain) String() string {
	switch t {
	case TerrainPlains:
		return "Plains"
	case TerrainForest:
		return "Forest"
	case TerrainMountain:
		return "Mountain"
	case TerrainCoast:
		return "Coast"
	case TerrainRiver:
		return "River"
	case TerrainSwamp:
		return "Swamp"
	case TerrainOcean:
		return "Ocean"
	default:
		return "Unknown"
	}
}

// Hex represents a single tile on the world map.
type Hex struct {
	Coord     HexCoord `json:"coord"`
	Terrain   Terrain  `json:"terrain"`
	Elevation float64  `json:"elevation"` // 0.0 (sea level) to 1.0 (peak)
	Rainfall  float64  `json:"rainfall"`  // 0.0 (arid) to 1.0 (tropical)

	// Settlement on this hex, if any.
	SettlementID *uint64 `json:"settlement_id,omitempty"`
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = HexCoord{Q: h.Q + dir.Q, R: h.R + dir.R}
	}
	return result
}

// HexDistance returns the grid distance between two coordinates.
func HexDistance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	return max(dq, dr, ds)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
