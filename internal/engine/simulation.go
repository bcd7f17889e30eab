// Simulation ties together the world's stores and the raid engine and runs
// them each day.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/talgya/raid-campaign/internal/agents"
	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/entropy"
	"github.com/talgya/raid-campaign/internal/raid"
	"github.com/talgya/raid-campaign/internal/social"
)

// WeeklyRelationDrift is the fraction every faction relation decays toward
// zero each sim-week.
const WeeklyRelationDrift = 0.024

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Simulation holds the complete world state and wires systems together.
type Simulation struct {
	HomeID    social.SettlementID // The player's seat, origin of every raid
	Registry  *social.Registry
	Diplomacy *social.Diplomacy
	Pool      *agents.WarriorPool
	Store     *economy.Store
	Fame      *social.FameTracker
	Tables    *balance.Tables
	Raids     *raid.Engine
	Spawner   *agents.Spawner

	mu      sync.Mutex
	leaders []*agents.Leader
	events  []Event
	stats   SimStats // refreshed daily
}

// Event is a notable occurrence in the world.
type Event struct {
	Day         int    `json:"day" db:"day"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "raid", "diplomacy", ...
}

// SimStats tracks aggregate statistics for the daily report.
type SimStats struct {
	Day            int     `json:"day"`
	ActiveRaids    int     `json:"active_raids"`
	FinishedRaids  int     `json:"finished_raids"`
	IdleWarriors   int     `json:"idle_warriors"`
	Fame           int     `json:"fame"`
	StockValue     float64 `json:"stock_value"`
	WorstRelation  float64 `json:"worst_relation"`
	WorstFactionID uint64  `json:"worst_faction_id"`
}

// Setup is everything needed to assemble a Simulation.
type Setup struct {
	HomeID      social.SettlementID
	Settlements []*social.Settlement
	Factions    []*social.Faction
	Leaders     []*agents.Leader
	Warriors    int
	Stock       economy.Bundle
	Fame        int
	Tables      *balance.Tables
	Seed        int64
}

// NewSimulation builds the stores and the raid engine from a setup.
func NewSimulation(setup Setup) *Simulation {
	tables := setup.Tables
	if tables == nil {
		tables = balance.Default()
	}

	s := &Simulation{
		HomeID:    setup.HomeID,
		Registry:  social.NewRegistry(setup.Settlements),
		Diplomacy: social.NewDiplomacy(setup.Factions),
		Pool:      agents.NewWarriorPool(setup.Warriors),
		Store:     economy.NewStore(setup.Stock),
		Fame:      social.NewFameTracker(setup.Fame),
		Tables:    tables,
		Spawner:   agents.NewSpawner(setup.Seed),
		leaders:   setup.Leaders,
	}

	var maxID agents.LeaderID
	for _, l := range setup.Leaders {
		maxID = max(maxID, l.ID)
	}
	s.Spawner.SetNextID(maxID + 1)

	s.Raids = raid.NewEngine(raid.Deps{
		Population:    s.Pool,
		Resources:     s.Store,
		Settlements:   s.Registry,
		Relations:     s.Diplomacy,
		Fame:          s.Fame,
		Tables:        tables,
		Random:        entropy.NewSeeded(setup.Seed + 500),
		PlayerFaction: social.PlayerFactionID,
	})
	s.Raids.Subscribe(s.onRaidChange)

	s.updateStats()
	return s
}

// onRaidChange records raid milestones in the event log and credits leaders
// with the fame their raids earn.
func (s *Simulation) onRaidChange(n raid.Notification) {
	var desc string
	switch n.To {
	case raid.PhasePreparing:
		desc = fmt.Sprintf("%s: %d warriors prepare to strike %s", n.RaidName, n.Raid.Size, n.Raid.Target.Name)
	case raid.PhaseRaiding:
		outcome := "are driven off"
		if n.Raid.Combat != nil && n.Raid.Combat.Success {
			outcome = "sack the settlement"
		}
		desc = fmt.Sprintf("%s: the raiders reach %s and %s", n.RaidName, n.Raid.Target.Name, outcome)
	case raid.PhaseCompleted, raid.PhaseFailed:
		desc = fmt.Sprintf("%s is over (%s), %d warriors home", n.RaidName, n.To, n.Raid.Survivors())
		if n.Raid.Leader != nil && n.Raid.Result != nil {
			s.creditLeader(n.Raid.Leader.ID, n.Raid.Result.FameAwarded)
		}
	default:
		return
	}
	s.recordEvent(Event{Day: n.Day, Description: desc, Category: "raid"})
}

func (s *Simulation) creditLeader(id agents.LeaderID, fame int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leaders {
		if l.ID == id {
			l.Fame += fame
			return
		}
	}
}

func (s *Simulation) recordEvent(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	// Trim old events to prevent unbounded growth.
	if len(s.events) > maxEvents {
		s.events = s.events[len(s.events)-maxEvents:]
	}
}

// TickDay runs every sim-day: raid phases and the daily report.
func (s *Simulation) TickDay(day int) {
	s.Raids.ProcessTick(1)
	if got := s.Raids.Day(); got != day {
		slog.Warn("raid engine day out of step with the calendar", "engine_day", got, "calendar_day", day)
	}
	stats := s.updateStats()

	slog.Info("daily report",
		"day", day,
		"time", SimTime(day),
		"active_raids", stats.ActiveRaids,
		"finished_raids", stats.FinishedRaids,
		"idle_warriors", stats.IdleWarriors,
		"fame", humanize.Comma(int64(stats.Fame)),
		"stock_value", humanize.Comma(int64(stats.StockValue)),
	)
}

// TickWeek runs every sim-week: relations cool toward neutral.
func (s *Simulation) TickWeek(day int) {
	s.Diplomacy.Drift(WeeklyRelationDrift)
	stats := s.updateStats()

	worst := "none"
	if f, ok := s.Diplomacy.Faction(social.FactionID(stats.WorstFactionID)); ok {
		worst = f.Name
	}
	s.recordEvent(Event{
		Day:         day,
		Description: fmt.Sprintf("old grudges fade; %s remains the bitterest enemy at %.0f", worst, stats.WorstRelation),
		Category:    "diplomacy",
	})
	slog.Info("weekly summary",
		"day", day,
		"time", SimTime(day),
		"worst_enemy", worst,
		"relation", fmt.Sprintf("%.1f", stats.WorstRelation),
	)
}

func (s *Simulation) updateStats() SimStats {
	stats := SimStats{
		Day:           s.Raids.Day(),
		ActiveRaids:   len(s.Raids.ActiveRaids()),
		FinishedRaids: len(s.Raids.History()),
		IdleWarriors:  s.Pool.GetAvailableWarriors(),
		Fame:          s.Fame.Total(),
		StockValue:    s.Store.Snapshot().Value(),
	}
	for _, f := range s.Diplomacy.Factions() {
		if f.ID == social.PlayerFactionID {
			continue
		}
		rel := s.Diplomacy.Relation(social.PlayerFactionID, f.ID)
		if stats.WorstFactionID == 0 || rel < stats.WorstRelation {
			stats.WorstRelation = rel
			stats.WorstFactionID = uint64(f.ID)
		}
	}
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
	return stats
}

// Stats returns the figures from the latest daily report.
func (s *Simulation) Stats() SimStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Home returns the player's seat.
func (s *Simulation) Home() (*social.Settlement, bool) {
	return s.Registry.GetSettlement(s.HomeID)
}

// Leaders returns copies of the player's raid leaders.
func (s *Simulation) Leaders() []agents.Leader {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]agents.Leader, len(s.leaders))
	for i, l := range s.leaders {
		out[i] = *l
	}
	return out
}

// Leader looks up a leader by ID.
func (s *Simulation) Leader(id agents.LeaderID) (*agents.Leader, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leaders {
		if l.ID == id {
			c := *l
			return &c, true
		}
	}
	return nil, false
}

// RecruitLeaders adds freshly spawned leaders to the roster.
func (s *Simulation) RecruitLeaders(count int) []*agents.Leader {
	recruits := s.Spawner.SpawnLeaders(count)
	s.mu.Lock()
	s.leaders = append(s.leaders, recruits...)
	s.mu.Unlock()
	return recruits
}

// Events returns the most recent events, newest last.
func (s *Simulation) Events(limit int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := 0
	if limit > 0 && len(s.events) > limit {
		start = len(s.events) - limit
	}
	return append([]Event(nil), s.events[start:]...)
}

// RestoreEvents replaces the event log, used when loading a saved world.
func (s *Simulation) RestoreEvents(events []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]Event(nil), events...)
}
