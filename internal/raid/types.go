// Package raid runs raiding campaigns: scoring targets, moving each raid
// through its phases one day at a time, and resolving combat, loot and the
// diplomatic fallout when a raid strikes.
package raid

import (
	"fmt"
	"slices"

	"github.com/talgya/raid-campaign/internal/agents"
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/social"
	"github.com/talgya/raid-campaign/internal/world"
)

// Phase is one stage of a raid's lifecycle.
type Phase string

const (
	PhasePreparing Phase = "preparing"
	PhaseTraveling Phase = "traveling"
	PhaseRaiding   Phase = "raiding"
	PhaseReturning Phase = "returning"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether the raid is over.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Rank orders phases along the lifecycle. Completed and failed share a rank.
func (p Phase) Rank() int {
	switch p {
	case PhasePreparing:
		return 0
	case PhaseTraveling:
		return 1
	case PhaseRaiding:
		return 2
	case PhaseReturning:
		return 3
	case PhaseCompleted, PhaseFailed:
		return 4
	default:
		return -1
	}
}

// UnitType is a kind of fighter within a party.
type UnitType string

const (
	UnitWarrior   UnitType = "warrior"
	UnitArcher    UnitType = "archer"
	UnitBerserker UnitType = "berserker"
)

// Valid reports whether t is one of the known fighter kinds.
func (t UnitType) Valid() bool {
	switch t {
	case UnitWarrior, UnitArcher, UnitBerserker:
		return true
	}
	return false
}

// Units counts fighters by type.
type Units map[UnitType]int

// Total returns the number of fighters.
func (u Units) Total() int {
	n := 0
	for _, c := range u {
		n += c
	}
	return n
}

// Clone returns an independent copy.
func (u Units) Clone() Units {
	out := make(Units, len(u))
	for t, c := range u {
		out[t] = c
	}
	return out
}

// LeaderRef is the part of a leader a raid carries with it.
type LeaderRef struct {
	ID         agents.LeaderID `json:"id"`
	Name       string          `json:"name"`
	Combat     float64         `json:"combat"`
	Leadership float64         `json:"leadership"`
}

// TargetSnapshot freezes the target as it stood when the raid departed.
// Combat and loot read only this, never the live settlement.
type TargetSnapshot struct {
	SettlementID social.SettlementID    `json:"settlement_id"`
	Name         string                 `json:"name"`
	FactionID    social.FactionID       `json:"faction_id"`
	Type         balance.SettlementType `json:"type"`
	Terrain      world.Terrain          `json:"terrain"`
	Coastal      bool                   `json:"coastal"`
	Religious    bool                   `json:"religious"`
	Position     world.Point            `json:"position"`
	Population   int                    `json:"population"`
	Prosperity   int                    `json:"prosperity"`
	Warriors     int                    `json:"warriors"`
	Defenses     int                    `json:"defenses"`
	Ships        int                    `json:"ships"`
	Holdings     economy.Bundle         `json:"holdings"`
	Wealth       float64                `json:"wealth"`
}

// SnapshotOf captures a settlement.
func SnapshotOf(s *social.Settlement) TargetSnapshot {
	return TargetSnapshot{
		SettlementID: s.ID,
		Name:         s.Name,
		FactionID:    s.FactionID,
		Type:         s.Type,
		Terrain:      s.Terrain,
		Coastal:      s.Coastal,
		Religious:    s.Religious,
		Position:     s.Point(),
		Population:   int(s.Population),
		Prosperity:   s.Prosperity,
		Warriors:     s.Warriors,
		Defenses:     s.Defenses,
		Ships:        s.Ships,
		Holdings:     s.Holdings.Clone(),
		Wealth:       s.Wealth(),
	}
}

// SpecialLoot is a named treasure carried home.
type SpecialLoot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Loot is everything a raid carries off.
type Loot struct {
	Resources economy.Bundle `json:"resources"`
	Items     []SpecialLoot  `json:"items"`
}

// IsEmpty reports whether nothing was taken.
func (l Loot) IsEmpty() bool {
	return l.Resources.IsEmpty() && len(l.Items) == 0
}

func (l Loot) clone() Loot {
	return Loot{Resources: l.Resources.Clone(), Items: slices.Clone(l.Items)}
}

// Casualties counts the fallen on both sides.
type Casualties struct {
	Raiders     Units `json:"raiders"`
	RaiderTotal int   `json:"raider_total"`
	Defenders   int   `json:"defenders"`
}

func (c Casualties) clone() Casualties {
	c.Raiders = c.Raiders.Clone()
	return c
}

// DiplomaticEffect is one relation change caused by a raid.
type DiplomaticEffect struct {
	FactionID social.FactionID `json:"faction_id"`
	Delta     float64          `json:"delta"`
	NewValue  float64          `json:"new_value"`
	Reason    string           `json:"reason"`
}

// Result is the settled outcome of a finished raid.
type Result struct {
	Success           bool               `json:"success"`
	Recalled          bool               `json:"recalled,omitempty"`
	TargetLost        bool               `json:"target_lost,omitempty"`
	Loot              Loot               `json:"loot"`
	Casualties        Casualties         `json:"casualties"`
	FameAwarded       int                `json:"fame_awarded"`
	DiplomaticEffects []DiplomaticEffect `json:"diplomatic_effects"`
}

// DayEvent is one line of a raid's log.
type DayEvent struct {
	Day         int    `json:"day"`
	Phase       Phase  `json:"phase"`
	Description string `json:"description"`
}

// Raid is a raiding party and everything that has happened to it.
type Raid struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ClassID string `json:"class_id"`

	// Composition
	Size     int        `json:"size"`
	Units    Units      `json:"units"`
	Ships    int        `json:"ships"`
	Leader   *LeaderRef `json:"leader,omitempty"`
	Morale   float64    `json:"morale"`   // 0–100
	Supplies int        `json:"supplies"` // food carried

	OriginID social.SettlementID `json:"origin_id"`
	Target   TargetSnapshot      `json:"target"`

	// Lifecycle
	Phase              Phase   `json:"phase"`
	PhaseHistory       []Phase `json:"phase_history"`
	DaysRemaining      int     `json:"days_remaining"`
	TravelDays         int     `json:"travel_days"`   // one-way
	DaysTraveled       int     `json:"days_traveled"` // outbound days already marched
	StartDay           int     `json:"start_day"`
	EstimatedReturnDay int     `json:"estimated_return_day"`
	Recalled           bool    `json:"recalled,omitempty"`
	TargetLost         bool    `json:"target_lost,omitempty"`

	// Accumulated
	Combat     *CombatResult `json:"combat,omitempty"`
	Loot       Loot          `json:"loot"`
	Casualties Casualties    `json:"casualties"`
	Events     []DayEvent    `json:"events"`

	Result *Result `json:"result,omitempty"`
}

// Survivors returns the number of raiders still standing.
func (r *Raid) Survivors() int {
	return r.Size - r.Casualties.RaiderTotal
}

// Clone returns a deep copy of the raid.
func (r *Raid) Clone() *Raid {
	c := *r
	c.Units = r.Units.Clone()
	if r.Leader != nil {
		l := *r.Leader
		c.Leader = &l
	}
	c.Target.Holdings = r.Target.Holdings.Clone()
	c.PhaseHistory = slices.Clone(r.PhaseHistory)
	if r.Combat != nil {
		cr := *r.Combat
		c.Combat = &cr
	}
	c.Loot = r.Loot.clone()
	c.Casualties = r.Casualties.clone()
	c.Events = slices.Clone(r.Events)
	if r.Result != nil {
		res := *r.Result
		res.Loot = r.Result.Loot.clone()
		res.Casualties = r.Result.Casualties.clone()
		res.DiplomaticEffects = slices.Clone(r.Result.DiplomaticEffects)
		c.Result = &res
	}
	return &c
}

func (r *Raid) logEvent(day int, format string, args ...any) {
	r.Events = append(r.Events, DayEvent{Day: day, Phase: r.Phase, Description: fmt.Sprintf(format, args...)})
}
