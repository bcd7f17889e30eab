package raid

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/talgya/raid-campaign/internal/agents"
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/entropy"
	"github.com/talgya/raid-campaign/internal/social"
)

// Deps are the stores and tables a raid engine works against.
type Deps struct {
	Population    PopulationStore
	Resources     ResourceStore
	Settlements   SettlementRegistry
	Relations     RelationMatrix
	Fame          FameTracker
	Tables        *balance.Tables
	Random        entropy.Source
	PlayerFaction social.FactionID
}

// Engine owns every raid the player has launched: the active ones it advances
// each day and the finished ones kept as history.
type Engine struct {
	mu      sync.Mutex
	deps    Deps
	conseq  consequences
	day     int
	active  []*Raid
	history []*Raid

	subscribers map[int]func(Notification)
	nextSub     int
	pending     []Notification
}

// NewEngine creates an engine on day 0. Nil tables fall back to the defaults,
// a nil random source to a freshly seeded one.
func NewEngine(deps Deps) *Engine {
	if deps.Tables == nil {
		deps.Tables = balance.Default()
	}
	if deps.Random == nil {
		deps.Random = entropy.NewSeeded(entropy.NewSeed())
	}
	if deps.PlayerFaction == 0 {
		deps.PlayerFaction = social.PlayerFactionID
	}
	return &Engine{
		deps: deps,
		conseq: consequences{
			population:    deps.Population,
			resources:     deps.Resources,
			settlements:   deps.Settlements,
			relations:     deps.Relations,
			fame:          deps.Fame,
			playerFaction: deps.PlayerFaction,
		},
		subscribers: make(map[int]func(Notification)),
	}
}

// CreateParams is a player's request to launch a raid.
type CreateParams struct {
	Name     string              `json:"name"`
	ClassID  string              `json:"class_id"`
	OriginID social.SettlementID `json:"origin_id"`
	TargetID social.SettlementID `json:"target_id"`
	Size     int                 `json:"size"`
	Units    Units               `json:"units,omitempty"` // defaults to all warriors
	Ships    int                 `json:"ships,omitempty"`
	Leader   *agents.Leader      `json:"-"`
}

// CreateRaid validates a request, reserves the warriors, food and ships it
// needs, and starts the raid in the preparing phase. A refused request returns
// a *Rejection and leaves every store as it was.
func (e *Engine) CreateRaid(p CreateParams) (*Raid, error) {
	e.mu.Lock()
	r, err := e.createLocked(p)
	if err != nil {
		e.mu.Unlock()
		var rej *Rejection
		if errors.As(err, &rej) {
			slog.Warn("raid rejected", "code", rej.Code, "kind", rej.Kind(), "reason", rej.Message)
		}
		return nil, err
	}
	out := r.Clone()
	e.unlockAndNotify()
	return out, nil
}

func (e *Engine) createLocked(p CreateParams) (*Raid, error) {
	class, ok := e.deps.Tables.Class(p.ClassID)
	if !ok {
		return nil, reject(CodeClassUnknown, "there is no raid class called %q", p.ClassID)
	}
	if !class.Size.Contains(p.Size) {
		return nil, reject(CodeSizeOutOfBounds, "a %s needs between %d and %d warriors, not %d",
			class.Name, class.Size.Min, class.Size.Max, p.Size)
	}
	units := p.Units.Clone()
	if len(units) == 0 {
		units = Units{UnitWarrior: p.Size}
	} else {
		for t, n := range units {
			if !t.Valid() {
				return nil, reject(CodeCompositionMismatch, "%q is not a kind of warrior", t)
			}
			if n <= 0 {
				return nil, reject(CodeCompositionMismatch, "a party cannot bring %d %ss", n, t)
			}
		}
		if units.Total() != p.Size {
			return nil, reject(CodeCompositionMismatch, "the units add up to %d but the party has %d warriors",
				units.Total(), p.Size)
		}
	}

	if p.TargetID == 0 {
		return nil, reject(CodeTargetMissing, "no target selected")
	}
	if p.TargetID == p.OriginID {
		return nil, reject(CodeTargetIsOrigin, "a raid cannot strike its own settlement")
	}
	origin, ok := e.deps.Settlements.GetSettlement(p.OriginID)
	if !ok {
		return nil, reject(CodeOriginMissing, "settlement %d does not exist", p.OriginID)
	}
	target, ok := e.deps.Settlements.GetSettlement(p.TargetID)
	if !ok {
		return nil, reject(CodeTargetMissing, "settlement %d does not exist", p.TargetID)
	}

	ships := 0
	if class.RequiresShips {
		if !target.Coastal {
			return nil, reject(CodeTargetNotCoastal, "%s cannot be reached by sea", target.Name)
		}
		need := ShipsNeeded(p.Size)
		if p.Ships < need {
			return nil, reject(CodeShipsInsufficient, "%d warriors need %d ships, only %d assigned", p.Size, need, p.Ships)
		}
		ships = p.Ships
	}

	var leader *LeaderRef
	if p.Leader != nil {
		for _, a := range e.active {
			if a.Leader != nil && a.Leader.ID == p.Leader.ID {
				return nil, reject(CodeLeaderBusy, "%s is already leading %s", p.Leader.Name, a.Name)
			}
		}
		leader = &LeaderRef{
			ID:         p.Leader.ID,
			Name:       p.Leader.Name,
			Combat:     p.Leader.Skills.Combat,
			Leadership: p.Leader.Skills.Leadership,
		}
	}

	travel := TravelDays(origin.Point(), target.Point(), class)
	total := TotalDuration(class, travel)
	food := SuppliesNeeded(p.Size, total)

	if !e.deps.Population.ReserveWarriors(p.Size) {
		return nil, reject(CodeWarriorsInsufficient, "%d warriors requested, %d available",
			p.Size, e.deps.Population.GetAvailableWarriors())
	}
	cost := economy.Bundle{economy.Food: food}
	if ships > 0 {
		cost[economy.Ships] = ships
	}
	if !e.deps.Resources.CanAfford(cost) || !e.deps.Resources.Subtract(cost) {
		e.deps.Population.ReleaseWarriors(p.Size)
		return nil, reject(CodeSuppliesInsufficient, "the raid needs %s", cost)
	}

	morale := balance.StartingMorale
	if leader != nil {
		morale += leader.Leadership * balance.LeaderMoralePerPoint
	}

	name := p.Name
	if name == "" {
		name = "Raid on " + target.Name
	}

	r := &Raid{
		ID:                 uuid.NewString(),
		Name:               name,
		ClassID:            class.ID,
		Size:               p.Size,
		Units:              units,
		Ships:              ships,
		Leader:             leader,
		Morale:             clamp(morale, 0, 100),
		Supplies:           food,
		OriginID:           origin.ID,
		Target:             SnapshotOf(target),
		Phase:              PhasePreparing,
		PhaseHistory:       []Phase{PhasePreparing},
		DaysRemaining:      class.PreparationDays,
		TravelDays:         travel,
		StartDay:           e.day,
		EstimatedReturnDay: e.day + total,
		Loot:               Loot{Resources: economy.Bundle{}},
		Casualties:         Casualties{Raiders: Units{}},
	}
	r.logEvent(e.day, "%d warriors gather at %s to raid %s", r.Size, origin.Name, target.Name)
	e.active = append(e.active, r)
	e.queue(r, "")

	slog.Info("raid launched",
		"raid", r.Name,
		"id", r.ID,
		"class", class.ID,
		"size", r.Size,
		"target", target.Name,
		"travel_days", travel,
		"return_day", r.EstimatedReturnDay,
		"food", humanize.Comma(int64(food)),
	)
	return r, nil
}

// ProcessTick advances every active raid by the given number of days, one
// day at a time. Zero or negative days change nothing.
func (e *Engine) ProcessTick(days int) {
	if days <= 0 {
		return
	}
	e.mu.Lock()
	for range days {
		e.day++
		e.advanceDay()
	}
	e.unlockAndNotify()
}

func (e *Engine) advanceDay() {
	still := e.active[:0]
	for _, r := range e.active {
		if r.Phase.Terminal() {
			slog.Debug("skipping finished raid", "raid", r.Name, "phase", r.Phase)
			e.retire(r)
			continue
		}
		e.step(r)
		if r.Phase.Terminal() {
			e.retire(r)
			continue
		}
		still = append(still, r)
	}
	clear(e.active[len(still):])
	e.active = still
}

func (e *Engine) retire(r *Raid) {
	e.history = append(e.history, r)
}

// step runs one day of a raid's life.
func (e *Engine) step(r *Raid) {
	e.eat(r)
	if r.Phase == PhaseTraveling {
		r.DaysTraveled++
		e.travelEvent(r)
	}
	r.DaysRemaining--

	if (r.Phase == PhasePreparing || r.Phase == PhaseTraveling) && !e.targetExists(r) {
		e.turnBack(r)
	}
	for r.DaysRemaining <= 0 && !r.Phase.Terminal() {
		e.advance(r)
	}
}

// eat burns a day's food for every survivor. A hungry party loses heart.
func (e *Engine) eat(r *Raid) {
	need := r.Survivors()
	if r.Supplies >= need {
		r.Supplies -= need
		return
	}
	r.Supplies = 0
	r.Morale = clamp(r.Morale-balance.StarvationMoralePenalty, 0, 100)
	r.logEvent(e.day, "the food has run out; morale falls to %.0f", r.Morale)
}

func (e *Engine) travelEvent(r *Raid) {
	if !entropy.Chance(e.deps.Random, balance.TravelEventChance) {
		return
	}
	if entropy.Chance(e.deps.Random, 0.5) {
		r.Morale = clamp(r.Morale+balance.TravelEventMorale, 0, 100)
		r.logEvent(e.day, "good omens on the road lift the warriors' spirits")
	} else {
		r.Morale = clamp(r.Morale-balance.TravelEventMorale, 0, 100)
		r.logEvent(e.day, "foul weather slows the march and sours the mood")
	}
}

func (e *Engine) targetExists(r *Raid) bool {
	_, ok := e.deps.Settlements.GetSettlementPosition(r.Target.SettlementID)
	return ok
}

// turnBack sends a raid home after its target disappeared. The way back is as
// long as the way already marched.
func (e *Engine) turnBack(r *Raid) {
	r.TargetLost = true
	r.DaysRemaining = r.DaysTraveled
	e.enter(r, PhaseReturning)
	r.logEvent(e.day, "%s is gone; the party turns for home", r.Target.Name)
	slog.Warn("raid target vanished", "raid", r.Name, "target", r.Target.Name, "code", CodeTargetVanished)
}

// advance moves a raid whose phase timer has run out into the next phase.
func (e *Engine) advance(r *Raid) {
	switch r.Phase {
	case PhasePreparing:
		r.DaysRemaining = r.TravelDays
		e.enter(r, PhaseTraveling)
		r.logEvent(e.day, "the party sets out for %s", r.Target.Name)

	case PhaseTraveling:
		if !e.targetExists(r) {
			e.turnBack(r)
			return
		}
		r.DaysRemaining = balance.RaidPhaseDays
		e.enter(r, PhaseRaiding)
		e.strike(r)

	case PhaseRaiding:
		r.DaysRemaining = r.TravelDays
		e.enter(r, PhaseReturning)
		r.logEvent(e.day, "the party starts for home with %d survivors", r.Survivors())

	case PhaseReturning:
		e.finish(r)
	}
}

// strike resolves the raid's one battle and its plunder against the target as
// it stood when the raid set out.
func (e *Engine) strike(r *Raid) {
	class := e.class(r.ClassID)
	combat := ResolveCombat(r, class, r.Target, e.deps.Random)
	r.Combat = &combat
	r.Loot = DetermineLoot(r, class, r.Target, combat, e.deps.Random)
	r.Casualties = Casualties{
		Raiders:     distributeCasualties(r.Units, combat.RaiderCasualties),
		RaiderTotal: combat.RaiderCasualties,
		Defenders:   combat.DefenderCasualties,
	}

	outcome := "repulsed"
	if combat.Success {
		outcome = "victorious"
	}
	r.logEvent(e.day, "the raiders strike %s and are %s (%.0f%% chance); %d raiders and %d defenders fall",
		r.Target.Name, outcome, combat.SuccessChance, combat.RaiderCasualties, combat.DefenderCasualties)
	if !r.Loot.IsEmpty() {
		r.logEvent(e.day, "plunder taken: %s", r.Loot.Resources)
	}
	for _, item := range r.Loot.Items {
		r.logEvent(e.day, "treasure taken: %s", item.Name)
	}

	slog.Info("raid struck",
		"raid", r.Name,
		"target", r.Target.Name,
		"success", combat.Success,
		"ratio", combat.StrengthRatio,
		"chance", combat.SuccessChance,
		"raider_casualties", combat.RaiderCasualties,
		"defender_casualties", combat.DefenderCasualties,
		"loot_value", humanize.Comma(int64(r.Loot.Resources.Value())),
	)
}

// finish applies the raid's consequences and closes it.
func (e *Engine) finish(r *Raid) {
	to := PhaseCompleted
	if r.TargetLost {
		to = PhaseFailed
	}
	r.Result = e.conseq.apply(r, e.class(r.ClassID))
	e.enter(r, to)
	r.logEvent(e.day, "%d warriors are home; fame %+d", r.Survivors(), r.Result.FameAwarded)

	slog.Info("raid resolved",
		"raid", r.Name,
		"phase", r.Phase,
		"success", r.Result.Success,
		"recalled", r.Recalled,
		"survivors", r.Survivors(),
		"fame", r.Result.FameAwarded,
		"loot", r.Loot.Resources.String(),
	)
}

func (e *Engine) enter(r *Raid, to Phase) {
	from := r.Phase
	r.Phase = to
	r.PhaseHistory = append(r.PhaseHistory, to)
	e.queue(r, from)
	slog.Debug("raid phase change", "raid", r.Name, "from", from, "to", to, "day", e.day)
}

// class resolves a raid's class. A class dropped from the tables after launch
// falls back to neutral modifiers.
func (e *Engine) class(id string) balance.RaidClass {
	if c, ok := e.deps.Tables.Class(id); ok {
		return c
	}
	slog.Warn("raid class missing from tables, using neutral modifiers", "class", id)
	return balance.RaidClass{
		ID:                     id,
		Name:                   id,
		TravelSpeedModifier:    1,
		CombatStrengthModifier: 1,
		LootModifier:           1,
		StealthModifier:        1,
		FameModifier:           1,
		InfamyModifier:         1,
	}
}

// Recall orders a raid home before it strikes. A preparing raid disbands on
// the spot. A traveling raid marches back the days it has covered.
func (e *Engine) Recall(id string) error {
	e.mu.Lock()
	r, idx := e.findActive(id)
	if r == nil {
		e.mu.Unlock()
		if _, ok := e.Raid(id); ok {
			return e.refuseRecall(reject(CodeRaidNotRecallable, "raid %s has already finished", id))
		}
		return reject(CodeRaidNotFound, "no raid with id %s", id)
	}

	switch r.Phase {
	case PhasePreparing:
		r.DaysRemaining = 0
	case PhaseTraveling:
		r.DaysRemaining = r.DaysTraveled
	default:
		e.mu.Unlock()
		return e.refuseRecall(reject(CodeRaidNotRecallable, "%s is %s and cannot be called back", r.Name, r.Phase))
	}

	r.Recalled = true
	e.enter(r, PhaseReturning)
	r.logEvent(e.day, "the raid is recalled")
	slog.Info("raid recalled", "raid", r.Name, "days_home", r.DaysRemaining)

	if r.DaysRemaining <= 0 {
		e.finish(r)
		e.active = append(e.active[:idx], e.active[idx+1:]...)
		e.retire(r)
	}
	e.unlockAndNotify()
	return nil
}

func (e *Engine) refuseRecall(rej *Rejection) error {
	slog.Warn("recall refused", "code", rej.Code, "reason", rej.Message)
	return rej
}

func (e *Engine) findActive(id string) (*Raid, int) {
	for i, r := range e.active {
		if r.ID == id {
			return r, i
		}
	}
	return nil, -1
}

// EvaluateTargets ranks every known settlement as a target for a raid of the
// given class launched from origin.
func (e *Engine) EvaluateTargets(originID social.SettlementID, classID string) ([]Target, error) {
	class, ok := e.deps.Tables.Class(classID)
	if !ok {
		return nil, reject(CodeClassUnknown, "there is no raid class called %q", classID)
	}
	origin, ok := e.deps.Settlements.GetSettlement(originID)
	if !ok {
		return nil, reject(CodeOriginMissing, "settlement %d does not exist", originID)
	}
	return EvaluateTargets(e.deps.Settlements.Settlements(), origin, class, e.deps.Relations), nil
}

// ActiveRaids returns copies of the raids still underway, in launch order.
func (e *Engine) ActiveRaids() []*Raid {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAll(e.active)
}

// History returns copies of finished raids, oldest first.
func (e *Engine) History() []*Raid {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneAll(e.history)
}

// Raid looks up an active or finished raid by ID.
func (e *Engine) Raid(id string) (*Raid, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, list := range [][]*Raid{e.active, e.history} {
		for _, r := range list {
			if r.ID == id {
				return r.Clone(), true
			}
		}
	}
	return nil, false
}

// Day returns the number of days the engine has processed.
func (e *Engine) Day() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.day
}

// State is a consistent copy of everything a raid order touches.
type State struct {
	Day          int
	Active       []*Raid
	History      []*Raid
	IdleWarriors int
	Stock        economy.Bundle
	Fame         int
	Settlements  []*social.Settlement
	Factions     []*social.Faction
}

// Snapshot copies raids, idle warriors, stockpile, fame, settlements and
// factions under the engine lock. A raid created or recalled concurrently is
// either wholly in the copy or wholly absent.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Day:          e.day,
		Active:       cloneAll(e.active),
		History:      cloneAll(e.history),
		IdleWarriors: e.deps.Population.GetAvailableWarriors(),
		Stock:        e.deps.Resources.Snapshot(),
		Fame:         e.deps.Fame.Total(),
		Settlements:  e.deps.Settlements.Settlements(),
		Factions:     e.deps.Relations.Factions(),
	}
}

// Restore replaces the engine's state with previously saved raids. Raids in
// the active list that are already finished go to history.
func (e *Engine) Restore(day int, active, history []*Raid) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.day = day
	e.active = e.active[:0]
	e.history = cloneAll(history)
	for _, r := range active {
		if r.Phase.Terminal() {
			e.history = append(e.history, r.Clone())
			continue
		}
		e.active = append(e.active, r.Clone())
	}
}

func cloneAll(raids []*Raid) []*Raid {
	out := make([]*Raid, len(raids))
	for i, r := range raids {
		out[i] = r.Clone()
	}
	return out
}
