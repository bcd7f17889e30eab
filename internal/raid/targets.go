package raid

import (
	"sort"

	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/social"
	"github.com/talgya/raid-campaign/internal/world"
)

// Target is a scored candidate for a raid.
type Target struct {
	Settlement      *social.Settlement `json:"settlement"`
	Score           float64            `json:"score"`
	Distance        float64            `json:"distance"`
	DefenseStrength float64            `json:"defense_strength"`
	WealthScore     float64            `json:"wealth_score"`
	Relationship    float64            `json:"relationship"`
}

// EvaluateTargets scores every candidate except the origin for the given raid
// class, best first. Equal scores keep candidate order. Nothing is mutated.
func EvaluateTargets(candidates []*social.Settlement, origin *social.Settlement, class balance.RaidClass, relations RelationReader) []Target {
	from := origin.Point()
	targets := make([]Target, 0, len(candidates))

	for _, s := range candidates {
		if s.ID == origin.ID {
			continue
		}

		dist := world.Distance(from, s.Point())
		defense := DefenderStrength(SnapshotOf(s))
		wealth := s.Wealth()
		rel := 0.0
		if relations != nil && s.FactionID != origin.FactionID {
			rel = relations.Relation(origin.FactionID, s.FactionID)
		}

		score := balance.DistanceWeight*(dist/100) +
			balance.DefenseWeight*defense +
			balance.WealthWeight*(wealth/100) +
			balance.RelationshipWeight*(rel/100)

		if class.RequiresShips {
			if s.Coastal {
				score += balance.ShipCoastalBonus
			} else {
				score += balance.ShipInlandPenalty
			}
		}
		switch class.ID {
		case balance.ClassQuickRaid:
			score += balance.QuickExtraDistance * (dist / 100)
		case balance.ClassPlunderRaid:
			score += balance.PlunderExtraWealth * (wealth / 100)
		}

		targets = append(targets, Target{
			Settlement:      s,
			Score:           score,
			Distance:        dist,
			DefenseStrength: defense,
			WealthScore:     wealth,
			Relationship:    rel,
		})
	}

	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Score > targets[j].Score
	})
	return targets
}
