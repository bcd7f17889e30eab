package raid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/entropy"
	"github.com/talgya/raid-campaign/internal/world"
)

func standardClass(t *testing.T) balance.RaidClass {
	t.Helper()
	c, ok := balance.Default().Class(balance.ClassStandardRaid)
	require.True(t, ok)
	return c
}

func TestSuccessChanceForDoubleStrength(t *testing.T) {
	assert.InDelta(t, 80.0, SuccessChanceBeforeJitter(2.0, 50, 0, 1), 1e-9)
	assert.InDelta(t, 50.0, SuccessChanceBeforeJitter(1.0, 50, 0, 1), 1e-9)
	assert.InDelta(t, 10.0, SuccessChanceBeforeJitter(0, 50, 0, 1), 1e-9)
	assert.InDelta(t, 95.0, SuccessChanceBeforeJitter(10, 50, 0, 1), 1e-9, "ratio bonus is capped at 45")
}

func TestSuccessChanceAlwaysClamped(t *testing.T) {
	class := standardClass(t)
	weak := TargetSnapshot{Warriors: 0, Population: 0}
	fortress := TargetSnapshot{Warriors: 5000, Defenses: 10, Terrain: world.TerrainMountain}

	for _, roll := range []float64{0, 0.5, 0.999} {
		src := &entropy.Fixed{Values: []float64{roll}}

		strong := &Raid{Size: 100, Morale: 100, Leader: &LeaderRef{Combat: 10, Leadership: 10}}
		res := ResolveCombat(strong, class, weak, src)
		assert.LessOrEqual(t, res.SuccessChance, balance.MaxSuccessChance)
		assert.GreaterOrEqual(t, res.SuccessChance, balance.MinSuccessChance)

		hopeless := &Raid{Size: 30, Morale: 0}
		res = ResolveCombat(hopeless, class, fortress, src)
		assert.GreaterOrEqual(t, res.SuccessChance, balance.MinSuccessChance)
		assert.LessOrEqual(t, res.SuccessChance, balance.MaxSuccessChance)
	}
}

func TestDefenderStrength(t *testing.T) {
	base := TargetSnapshot{Warriors: 20, Defenses: 3, Ships: 4, Population: 500}
	assert.InDelta(t, 26.0, DefenderStrength(base), 1e-9)

	coastal := base
	coastal.Coastal = true
	assert.InDelta(t, 32.0, DefenderStrength(coastal), 1e-9)

	militia := TargetSnapshot{Warriors: 2, Population: 300}
	assert.InDelta(t, 32.0, DefenderStrength(militia), 1e-9)
	assert.Equal(t, 32, defenderForce(militia))

	hill := base
	hill.Terrain = world.TerrainMountain
	assert.InDelta(t, 26.0*1.25, DefenderStrength(hill), 1e-9)
}

func TestRaiderStrength(t *testing.T) {
	class := standardClass(t)
	assert.InDelta(t, 50.0, RaiderStrength(100, class, 50, nil, 0), 1e-9)
	assert.InDelta(t, 75.0, RaiderStrength(100, class, 50, &LeaderRef{Combat: 5}, 0), 1e-9)
	assert.InDelta(t, 50.0, RaiderStrength(100, class, 50, nil, 10), 1e-9, "ships only count for ship classes")

	sea, ok := balance.Default().Class(balance.ClassSeaRaid)
	require.True(t, ok)
	assert.InDelta(t, 100*1.1*0.5*1.5, RaiderStrength(100, sea, 50, nil, 10), 1e-9)
}

func TestCasualtiesStayWithinForces(t *testing.T) {
	src := entropy.NewSeeded(99)
	for _, ratio := range []float64{0.01, 0.3, 1, 2.5, 40} {
		for _, success := range []bool{true, false} {
			for range 50 {
				r, d := casualties(12, 7, ratio, success, src)
				assert.GreaterOrEqual(t, r, 0)
				assert.Less(t, r, 12)
				assert.GreaterOrEqual(t, d, 0)
				assert.LessOrEqual(t, d, 7)
			}
		}
	}
	r, d := casualties(1, 0, 0.01, false, src)
	assert.Zero(t, r, "a lone raider always survives")
	assert.Zero(t, d)
}

func TestDefensesWeakenedNeedsAClearWin(t *testing.T) {
	class := standardClass(t)
	target := TargetSnapshot{Warriors: 10}
	win := &entropy.Fixed{Values: []float64{0}}
	lose := &entropy.Fixed{Values: []float64{0.999}}

	crushing := &Raid{Size: 100, Morale: 100}
	assert.True(t, ResolveCombat(crushing, class, target, win).DefensesWeakened)
	assert.False(t, ResolveCombat(crushing, class, target, lose).DefensesWeakened)

	even := &Raid{Size: 12, Morale: 100}
	res := ResolveCombat(even, class, target, win)
	assert.True(t, res.Success)
	assert.False(t, res.DefensesWeakened)
}

func TestDistributeCasualties(t *testing.T) {
	units := Units{UnitWarrior: 30, UnitArcher: 15, UnitBerserker: 5}

	out := distributeCasualties(units, 10)
	assert.Equal(t, 10, out.Total())
	assert.Equal(t, Units{UnitWarrior: 6, UnitArcher: 3, UnitBerserker: 1}, out)

	out = distributeCasualties(units, 7)
	assert.Equal(t, 7, out.Total())
	for ut, n := range out {
		assert.LessOrEqual(t, n, units[ut])
	}

	assert.Equal(t, 50, distributeCasualties(units, 80).Total())
	assert.Zero(t, distributeCasualties(units, 0).Total())
}
