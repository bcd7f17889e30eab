package raid

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/raid-campaign/internal/agents"
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/entropy"
	"github.com/talgya/raid-campaign/internal/social"
	"github.com/talgya/raid-campaign/internal/world"
)

const (
	homeID   social.SettlementID = 1
	targetID social.SettlementID = 2
	inlandID social.SettlementID = 3
)

type fixture struct {
	pool      *agents.WarriorPool
	store     *economy.Store
	registry  *social.Registry
	diplomacy *social.Diplomacy
	fame      *social.FameTracker
	engine    *Engine
}

// newFixture builds a home settlement and an undefended-ish coastal target
// 280 world units away: five days for a quick raid.
func newFixture(t *testing.T, warriors int, stock economy.Bundle) *fixture {
	t.Helper()
	settlements := []*social.Settlement{
		{ID: homeID, Name: "Kaupang", Position: world.HexCoord{}, Type: balance.Viking, FactionID: social.PlayerFactionID, Coastal: true},
		{
			ID: targetID, Name: "Lindisfarne", Position: world.HexCoord{Q: 7}, Terrain: world.TerrainPlains,
			Coastal: true, Type: balance.Anglo, FactionID: 2,
			Population: 200, Prosperity: 50, Warriors: 10, Defenses: 2,
			Holdings: economy.Bundle{economy.Silver: 50, economy.Gold: 5, economy.Food: 100, economy.Cloth: 20},
		},
		{
			ID: inlandID, Name: "Tamworth", Position: world.HexCoord{R: 5}, Terrain: world.TerrainForest,
			Type: balance.Anglo, FactionID: 3, Population: 300, Warriors: 30, Defenses: 4,
			Holdings: economy.Bundle{economy.Silver: 80},
		},
	}
	f := &fixture{
		pool:      agents.NewWarriorPool(warriors),
		store:     economy.NewStore(stock),
		registry:  social.NewRegistry(settlements),
		diplomacy: social.NewDiplomacy(social.SeedFactions()),
		fame:      social.NewFameTracker(0),
	}
	f.diplomacy.SeedRelations()
	f.engine = NewEngine(Deps{
		Population:  f.pool,
		Resources:   f.store,
		Settlements: f.registry,
		Relations:   f.diplomacy,
		Fame:        f.fame,
		Tables:      balance.Default(),
		Random:      &entropy.Fixed{Values: []float64{0.5}},
	})
	return f
}

func quickRaid(size int) CreateParams {
	return CreateParams{ClassID: balance.ClassQuickRaid, OriginID: homeID, TargetID: targetID, Size: size}
}

func requireRejection(t *testing.T, err error, code Code) *Rejection {
	t.Helper()
	var rej *Rejection
	require.True(t, errors.As(err, &rej), "expected a rejection, got %v", err)
	assert.Equal(t, code, rej.Code)
	assert.NotEmpty(t, rej.Message)
	return rej
}

func TestCreateRaidReservesWarriorsAndFood(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})

	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)

	assert.Equal(t, PhasePreparing, r.Phase)
	assert.Equal(t, 3, r.DaysRemaining)
	assert.Equal(t, 5, r.TravelDays)
	assert.Equal(t, 14, r.EstimatedReturnDay)
	assert.Equal(t, 280, r.Supplies)
	assert.Equal(t, "Raid on Lindisfarne", r.Name)
	assert.Equal(t, Units{UnitWarrior: 20}, r.Units)
	assert.Equal(t, 80, f.pool.GetAvailableWarriors())
	assert.Equal(t, 720, f.store.Amount(economy.Food))
	assert.NotEmpty(t, r.ID)
}

func TestCreateRaidRollsBackWhenFoodIsShort(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 279})

	_, err := f.engine.CreateRaid(quickRaid(20))
	rej := requireRejection(t, err, CodeSuppliesInsufficient)
	assert.Equal(t, KindResource, rej.Kind())

	assert.Equal(t, 100, f.pool.GetAvailableWarriors())
	assert.Equal(t, 279, f.store.Amount(economy.Food))
	assert.Empty(t, f.engine.ActiveRaids())
}

func TestCreateRaidRejections(t *testing.T) {
	leader := &agents.Leader{ID: 9, Name: "Ubba"}

	tests := []struct {
		name     string
		warriors int
		params   CreateParams
		code     Code
	}{
		{"unknown class", 100, CreateParams{ClassID: "viking_age", OriginID: homeID, TargetID: targetID, Size: 20}, CodeClassUnknown},
		{"too small", 100, quickRaid(14), CodeSizeOutOfBounds},
		{"too large", 100, quickRaid(51), CodeSizeOutOfBounds},
		{"units mismatch", 100, CreateParams{ClassID: balance.ClassQuickRaid, OriginID: homeID, TargetID: targetID, Size: 20,
			Units: Units{UnitWarrior: 10, UnitArcher: 5}}, CodeCompositionMismatch},
		{"negative units", 100, CreateParams{ClassID: balance.ClassQuickRaid, OriginID: homeID, TargetID: targetID, Size: 20,
			Units: Units{UnitWarrior: 25, UnitArcher: -5}}, CodeCompositionMismatch},
		{"zero units", 100, CreateParams{ClassID: balance.ClassQuickRaid, OriginID: homeID, TargetID: targetID, Size: 20,
			Units: Units{UnitWarrior: 20, UnitBerserker: 0}}, CodeCompositionMismatch},
		{"unknown unit type", 100, CreateParams{ClassID: balance.ClassQuickRaid, OriginID: homeID, TargetID: targetID, Size: 20,
			Units: Units{"dragon": 20}}, CodeCompositionMismatch},
		{"no target", 100, CreateParams{ClassID: balance.ClassQuickRaid, OriginID: homeID, Size: 20}, CodeTargetMissing},
		{"unknown target", 100, CreateParams{ClassID: balance.ClassQuickRaid, OriginID: homeID, TargetID: 99, Size: 20}, CodeTargetMissing},
		{"own settlement", 100, CreateParams{ClassID: balance.ClassQuickRaid, OriginID: homeID, TargetID: homeID, Size: 20}, CodeTargetIsOrigin},
		{"unknown origin", 100, CreateParams{ClassID: balance.ClassQuickRaid, OriginID: 42, TargetID: targetID, Size: 20}, CodeOriginMissing},
		{"inland sea raid", 100, CreateParams{ClassID: balance.ClassSeaRaid, OriginID: homeID, TargetID: inlandID, Size: 20, Ships: 1}, CodeTargetNotCoastal},
		{"too few ships", 100, CreateParams{ClassID: balance.ClassSeaRaid, OriginID: homeID, TargetID: targetID, Size: 40, Ships: 1}, CodeShipsInsufficient},
		{"too few warriors", 10, quickRaid(20), CodeWarriorsInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.warriors, economy.Bundle{economy.Food: 5000, economy.Ships: 5})
			tt.params.Leader = leader

			_, err := f.engine.CreateRaid(tt.params)
			rej := requireRejection(t, err, tt.code)
			assert.Equal(t, tt.code.Kind(), rej.Kind())

			assert.Equal(t, tt.warriors, f.pool.GetAvailableWarriors())
			assert.Equal(t, 5000, f.store.Amount(economy.Food))
			assert.Equal(t, 5, f.store.Amount(economy.Ships))
			assert.Empty(t, f.engine.ActiveRaids())
		})
	}
}

func TestCreateRaidAcceptsMixedParty(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	p := quickRaid(20)
	p.Units = Units{UnitWarrior: 10, UnitArcher: 6, UnitBerserker: 4}

	r, err := f.engine.CreateRaid(p)
	require.NoError(t, err)
	assert.Equal(t, p.Units, r.Units)
}

func TestRejectionsLogAtWarn(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	_, err := f.engine.CreateRaid(quickRaid(14))
	requireRejection(t, err, CodeSizeOutOfBounds)
	assert.Contains(t, buf.String(), "level=WARN msg=\"raid rejected\"")

	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)
	require.NoError(t, f.engine.Recall(r.ID))
	buf.Reset()
	requireRejection(t, f.engine.Recall(r.ID), CodeRaidNotRecallable)
	assert.Contains(t, buf.String(), "level=WARN msg=\"recall refused\"")
}

func TestSnapshotIsConsistentWithStores(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)

	st := f.engine.Snapshot()
	assert.Equal(t, 0, st.Day)
	require.Len(t, st.Active, 1)
	assert.Equal(t, r.ID, st.Active[0].ID)
	assert.Empty(t, st.History)
	assert.Equal(t, 80, st.IdleWarriors)
	assert.Equal(t, 720, st.Stock[economy.Food])
	assert.Len(t, st.Settlements, 3)
	assert.NotEmpty(t, st.Factions)

	st.Active[0].Size = 1
	st.Stock[economy.Food] = 0
	assert.Equal(t, 20, f.engine.ActiveRaids()[0].Size)
	assert.Equal(t, 720, f.store.Amount(economy.Food))
}

func TestCreateRaidRejectsBusyLeader(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 5000})
	leader := &agents.Leader{ID: 3, Name: "Halfdan", Skills: agents.SkillSet{Combat: 6, Leadership: 8}}

	first := quickRaid(20)
	first.Leader = leader
	r, err := f.engine.CreateRaid(first)
	require.NoError(t, err)
	require.NotNil(t, r.Leader)
	assert.InDelta(t, 86.0, r.Morale, 1e-9)

	second := quickRaid(20)
	second.Leader = leader
	_, err = f.engine.CreateRaid(second)
	requireRejection(t, err, CodeLeaderBusy)
	assert.Equal(t, 80, f.pool.GetAvailableWarriors())
}

func TestProcessTickZeroChangesNothing(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	_, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)
	f.engine.ProcessTick(4)

	before := f.engine.ActiveRaids()
	f.engine.ProcessTick(0)
	f.engine.ProcessTick(-3)

	assert.Equal(t, before, f.engine.ActiveRaids())
	assert.Equal(t, 4, f.engine.Day())
}

func TestRaidRunsToCompletion(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	created, err := f.engine.CreateRaid(quickRaid(50))
	require.NoError(t, err)

	f.engine.ProcessTick(7)
	active := f.engine.ActiveRaids()
	require.Len(t, active, 1)
	assert.Equal(t, PhaseTraveling, active[0].Phase)
	assert.Equal(t, 4, active[0].DaysTraveled)

	f.engine.ProcessTick(7)
	assert.Empty(t, f.engine.ActiveRaids())
	history := f.engine.History()
	require.Len(t, history, 1)
	r := history[0]

	assert.Equal(t, created.ID, r.ID)
	assert.Equal(t, PhaseCompleted, r.Phase)
	assert.Equal(t, []Phase{PhasePreparing, PhaseTraveling, PhaseRaiding, PhaseReturning, PhaseCompleted}, r.PhaseHistory)
	require.NotNil(t, r.Combat)
	require.NotNil(t, r.Result)
	assert.True(t, r.Combat.Success)
	assert.True(t, r.Result.Success)
	assert.InDelta(t, balance.MaxSuccessChance, r.Combat.SuccessChance, 1e-9)

	// Warriors net out: only the fallen stay missing.
	assert.Less(t, r.Casualties.RaiderTotal, r.Size)
	assert.Equal(t, r.Casualties.RaiderTotal, r.Casualties.Raiders.Total())
	assert.Equal(t, 100, f.pool.GetAvailableWarriors()+r.Casualties.RaiderTotal)

	// Food not eaten by the fallen comes home with the loot.
	assert.Equal(t, r.Casualties.RaiderTotal*(1+r.TravelDays), r.Supplies)
	assert.Equal(t, 1000-700+r.Supplies+r.Loot.Resources[economy.Food], f.store.Amount(economy.Food))
	assert.Equal(t, r.Loot.Resources[economy.Silver], f.store.Amount(economy.Silver))

	// The live settlement pays for it.
	live, ok := f.registry.GetSettlement(targetID)
	require.True(t, ok)
	assert.Equal(t, 50-r.Loot.Resources[economy.Silver], live.Holdings[economy.Silver])
	assert.Equal(t, 10-r.Casualties.Defenders, live.Warriors)

	assert.Positive(t, r.Result.FameAwarded)
	assert.Equal(t, r.Result.FameAwarded, f.fame.Total())

	// -5 base, -10 success, -10 broken defences, times the quick raid's infamy.
	delta := RelationDelta(r, balance.DefaultClasses()[0])
	assert.InDelta(t, -20.0, delta, 1e-9)
	assert.InDelta(t, -40.0, f.diplomacy.Relation(social.PlayerFactionID, 2), 1e-9)
	assert.InDelta(t, -10.0+delta/3, f.diplomacy.Relation(social.PlayerFactionID, 3), 1e-9)
	assert.InDelta(t, 30.0-delta/6, f.diplomacy.Relation(social.PlayerFactionID, 5), 1e-9)
	assert.InDelta(t, 20.0, f.diplomacy.Relation(social.PlayerFactionID, 6), 1e-9)
	assert.Len(t, r.Result.DiplomaticEffects, 3)
}

func TestSeaRaidReturnsItsShips(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 2000, economy.Ships: 3})
	r, err := f.engine.CreateRaid(CreateParams{ClassID: balance.ClassSeaRaid, OriginID: homeID, TargetID: targetID, Size: 40, Ships: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Amount(economy.Ships))

	days := r.EstimatedReturnDay - r.StartDay
	f.engine.ProcessTick(days)

	require.Len(t, f.engine.History(), 1)
	assert.Equal(t, 3, f.store.Amount(economy.Ships))
}

func TestRecallWhileTravelingSkipsCombat(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)

	f.engine.ProcessTick(5)
	require.NoError(t, f.engine.Recall(r.ID))

	got, ok := f.engine.Raid(r.ID)
	require.True(t, ok)
	assert.Equal(t, PhaseReturning, got.Phase)
	assert.Equal(t, 2, got.DaysRemaining)
	assert.True(t, got.Recalled)
	assert.Nil(t, got.Combat)
	assert.True(t, got.Loot.IsEmpty())
	assert.Zero(t, got.Casualties.RaiderTotal)

	f.engine.ProcessTick(2)
	got, ok = f.engine.Raid(r.ID)
	require.True(t, ok)
	assert.Equal(t, PhaseCompleted, got.Phase)
	assert.Equal(t, []Phase{PhasePreparing, PhaseTraveling, PhaseReturning, PhaseCompleted}, got.PhaseHistory)
	require.NotNil(t, got.Result)
	assert.False(t, got.Result.Success)
	assert.True(t, got.Result.Recalled)
	assert.Zero(t, got.Result.FameAwarded)
	assert.Empty(t, got.Result.DiplomaticEffects)

	assert.Equal(t, 100, f.pool.GetAvailableWarriors())
	assert.InDelta(t, -20.0, f.diplomacy.Relation(social.PlayerFactionID, 2), 1e-9)
	assert.Zero(t, f.fame.Total())
}

func TestRecallWhilePreparingDisbandsAtOnce(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)

	f.engine.ProcessTick(1)
	require.NoError(t, f.engine.Recall(r.ID))

	assert.Empty(t, f.engine.ActiveRaids())
	history := f.engine.History()
	require.Len(t, history, 1)
	assert.Equal(t, PhaseCompleted, history[0].Phase)
	assert.Equal(t, 100, f.pool.GetAvailableWarriors())
	assert.Equal(t, 1000-20, f.store.Amount(economy.Food))
}

func TestRecallRefusedOnceTheRaidStrikes(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)

	f.engine.ProcessTick(8)
	got, _ := f.engine.Raid(r.ID)
	require.Equal(t, PhaseRaiding, got.Phase)

	rej := requireRejection(t, f.engine.Recall(r.ID), CodeRaidNotRecallable)
	assert.Equal(t, KindState, rej.Kind())

	f.engine.ProcessTick(6)
	requireRejection(t, f.engine.Recall(r.ID), CodeRaidNotRecallable)
	requireRejection(t, f.engine.Recall("no-such-raid"), CodeRaidNotFound)
}

func TestVanishedTargetFailsWithEveryoneHome(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)

	f.engine.ProcessTick(5)
	require.True(t, f.registry.Remove(targetID))
	f.engine.ProcessTick(1)

	got, _ := f.engine.Raid(r.ID)
	assert.Equal(t, PhaseReturning, got.Phase)
	assert.True(t, got.TargetLost)
	assert.Equal(t, 3, got.DaysRemaining)

	f.engine.ProcessTick(3)
	got, _ = f.engine.Raid(r.ID)
	assert.Equal(t, PhaseFailed, got.Phase)
	require.NotNil(t, got.Result)
	assert.True(t, got.Result.TargetLost)
	assert.True(t, got.Result.Loot.IsEmpty())
	assert.Zero(t, got.Result.Casualties.Defenders)
	assert.Zero(t, got.Result.Casualties.RaiderTotal)
	assert.Zero(t, got.Result.FameAwarded)

	assert.Equal(t, 100, f.pool.GetAvailableWarriors())
	assert.InDelta(t, -20.0+balance.BaseRelationPenalty, f.diplomacy.Relation(social.PlayerFactionID, 2), 1e-9)
	assert.InDelta(t, -10.0, f.diplomacy.Relation(social.PlayerFactionID, 3), 1e-9)
}

func TestCombatReadsTheDepartureSnapshot(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	r, err := f.engine.CreateRaid(quickRaid(50))
	require.NoError(t, err)

	live, _ := f.registry.GetSettlement(targetID)
	live.Warriors = 1000
	f.registry.Add(live)

	f.engine.ProcessTick(8)
	got, _ := f.engine.Raid(r.ID)
	require.NotNil(t, got.Combat)
	assert.InDelta(t, 14.0, got.Combat.DefenderStrength, 1e-9)
	assert.True(t, got.Combat.Success)
}

func TestPhasesOnlyMoveForward(t *testing.T) {
	f := newFixture(t, 300, economy.Bundle{economy.Food: 50000, economy.Ships: 10})
	f.engine.deps.Random = entropy.NewSeeded(3)

	for _, p := range []CreateParams{
		quickRaid(30),
		{ClassID: balance.ClassStandardRaid, OriginID: homeID, TargetID: inlandID, Size: 60},
		{ClassID: balance.ClassSeaRaid, OriginID: homeID, TargetID: targetID, Size: 60, Ships: 2},
	} {
		_, err := f.engine.CreateRaid(p)
		require.NoError(t, err)
	}

	seen := make(map[string][]Phase)
	for range 40 {
		f.engine.ProcessTick(1)
		for _, r := range append(f.engine.ActiveRaids(), f.engine.History()...) {
			seen[r.ID] = append(seen[r.ID], r.Phase)
		}
	}

	history := f.engine.History()
	require.Len(t, history, 3)
	for _, r := range history {
		assert.True(t, r.Phase.Terminal())
		for i := 1; i < len(r.PhaseHistory); i++ {
			assert.Greater(t, r.PhaseHistory[i].Rank(), r.PhaseHistory[i-1].Rank(), "raid %s: %v", r.Name, r.PhaseHistory)
		}
		for i := 1; i < len(seen[r.ID]); i++ {
			assert.GreaterOrEqual(t, seen[r.ID][i].Rank(), seen[r.ID][i-1].Rank())
		}
		assert.Less(t, r.Casualties.RaiderTotal, r.Size)
		for res, n := range r.Loot.Resources {
			assert.LessOrEqual(t, float64(n), balance.LootCapFraction*float64(r.Target.Holdings[res]))
		}
	}
	sum := 0
	for _, r := range history {
		sum += r.Casualties.RaiderTotal
	}
	assert.Equal(t, 300, f.pool.GetAvailableWarriors()+sum)
}

func TestSubscribersSeeEveryPhaseChange(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})

	var got []Notification
	unsubscribe := f.engine.Subscribe(func(n Notification) {
		got = append(got, n)
	})

	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)
	f.engine.ProcessTick(14)

	require.Len(t, got, 5)
	want := []Phase{PhasePreparing, PhaseTraveling, PhaseRaiding, PhaseReturning, PhaseCompleted}
	for i, n := range got {
		assert.Equal(t, r.ID, n.RaidID)
		assert.Equal(t, want[i], n.To)
		require.NotNil(t, n.Raid)
		assert.Equal(t, want[i], n.Raid.Phase)
	}
	assert.Equal(t, Phase(""), got[0].From)
	assert.Equal(t, PhasePreparing, got[1].From)
	assert.Equal(t, 3, got[1].Day)

	unsubscribe()
	_, err = f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestRestoreResumesMidRaid(t *testing.T) {
	f := newFixture(t, 100, economy.Bundle{economy.Food: 1000})
	r, err := f.engine.CreateRaid(quickRaid(20))
	require.NoError(t, err)
	f.engine.ProcessTick(6)

	saved := f.engine.ActiveRaids()
	day := f.engine.Day()

	resumed := NewEngine(f.engine.deps)
	resumed.Restore(day, saved, nil)
	require.Len(t, resumed.ActiveRaids(), 1)
	assert.Equal(t, 6, resumed.Day())

	resumed.ProcessTick(8)
	got, ok := resumed.Raid(r.ID)
	require.True(t, ok)
	assert.Equal(t, PhaseCompleted, got.Phase)
	assert.Equal(t, 100, f.pool.GetAvailableWarriors()+got.Casualties.RaiderTotal)
}

func TestEngineEvaluateTargets(t *testing.T) {
	f := newFixture(t, 100, nil)

	targets, err := f.engine.EvaluateTargets(homeID, balance.ClassSeaRaid)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, targetID, targets[0].Settlement.ID)

	_, err = f.engine.EvaluateTargets(homeID, "longboat")
	requireRejection(t, err, CodeClassUnknown)
	_, err = f.engine.EvaluateTargets(77, balance.ClassQuickRaid)
	requireRejection(t, err, CodeOriginMissing)
}
