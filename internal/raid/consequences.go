package raid

import (
	"fmt"
	"math"

	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/social"
)

// consequences commits a finished raid to the shared stores. It runs once per
// raid, on the terminal transition, and is the only code that writes to the
// warrior pool, resource store, settlement registry, relation matrix or fame
// tracker after creation.
type consequences struct {
	population    PopulationStore
	resources     ResourceStore
	settlements   SettlementRegistry
	relations     RelationMatrix
	fame          FameTracker
	playerFaction social.FactionID
}

func (c *consequences) apply(r *Raid, class balance.RaidClass) *Result {
	result := &Result{
		Recalled:   r.Recalled,
		TargetLost: r.TargetLost,
		Loot:       r.Loot.clone(),
		Casualties: r.Casualties.clone(),
	}
	if r.Combat != nil {
		result.Success = r.Combat.Success
	}

	c.population.ReleaseWarriors(r.Survivors())

	// Loot, unspent food and the longships come home in one deposit.
	deposit := r.Loot.Resources.Clone()
	if deposit == nil {
		deposit = economy.Bundle{}
	}
	deposit[economy.Food] += r.Supplies
	if r.Ships > 0 {
		deposit[economy.Ships] += r.Ships
	}
	c.resources.Add(deposit)

	switch {
	case r.Recalled:
		return result
	case r.TargetLost:
		result.DiplomaticEffects = c.applyRelation(r.Target.FactionID, balance.BaseRelationPenalty, "raid on a settlement that fell before it was reached")
		return result
	}

	if c.settlements != nil && r.Combat != nil {
		c.settlements.ApplyRaid(r.Target.SettlementID, r.Loot.Resources, r.Casualties.Defenders)
	}

	result.FameAwarded = fameFor(r, class)
	if c.fame != nil && result.FameAwarded > 0 {
		reason := fmt.Sprintf("%s on %s", r.Name, r.Target.Name)
		if !result.Success {
			reason = fmt.Sprintf("%s on %s (repulsed)", r.Name, r.Target.Name)
		}
		c.fame.AddFame(result.FameAwarded, reason)
	}

	result.DiplomaticEffects = c.applyDiplomacy(r, class)
	return result
}

// fameFor scales with the importance of the target, the value carried off and
// any treasures, multiplied by the class's fame modifier. A repulsed raid earns
// a small flat amount.
func fameFor(r *Raid, class balance.RaidClass) int {
	if r.Combat == nil || !r.Combat.Success {
		return balance.FailureFame
	}
	importance := float64(r.Target.Population)/balance.FameImportanceDiv +
		float64(r.Target.Prosperity)/balance.FameProsperityDiv
	lootValue := r.Loot.Resources.Value() / balance.FameLootValueDiv
	specials := float64(len(r.Loot.Items) * balance.FamePerSpecialItem)
	return int(math.Round((importance + lootValue + specials) * class.FameModifier))
}

// RelationDelta is the change in standing with the target's faction. It grows
// harsher for a successful raid, a religious or wealthy target, heavy defender
// losses and broken defences, and scales with the class's infamy.
func RelationDelta(r *Raid, class balance.RaidClass) float64 {
	delta := balance.BaseRelationPenalty
	if r.Combat != nil && r.Combat.Success {
		delta += balance.SuccessRelationPenalty
	}
	if r.Target.Religious {
		delta += balance.ReligiousPenalty
	}
	if r.Target.Wealth >= balance.HighValueWealth {
		delta += balance.HighValuePenalty
	}
	if r.Casualties.Defenders >= balance.HighCasualtyThreshold {
		delta += balance.HighCasualtyPenalty
	}
	if r.Combat != nil && r.Combat.DefensesWeakened {
		delta += balance.WeakenedDefensesPenalty
	}
	return delta * class.InfamyModifier
}

func (c *consequences) applyDiplomacy(r *Raid, class balance.RaidClass) []DiplomaticEffect {
	targetFaction := r.Target.FactionID
	if c.relations == nil || targetFaction == c.playerFaction {
		return nil
	}

	delta := RelationDelta(r, class)
	effects := c.applyRelation(targetFaction, delta, "raided "+r.Target.Name)

	var affiliation balance.SettlementType
	known := false
	for _, f := range c.relations.Factions() {
		if f.ID == targetFaction {
			affiliation, known = f.Affiliation, true
			break
		}
	}
	if !known {
		return effects
	}

	for _, f := range c.relations.Factions() {
		if f.ID == targetFaction || f.ID == c.playerFaction {
			continue
		}
		switch {
		case f.Affiliation == affiliation:
			effects = append(effects, c.applyRelation(f.ID, delta*balance.SpilloverFraction, "kin of "+r.Target.Name)...)
		case c.relations.Relation(f.ID, targetFaction) <= balance.HostileThreshold:
			effects = append(effects, c.applyRelation(f.ID, -delta*balance.HostileApprovalFraction, "enemy of "+r.Target.Name)...)
		}
	}
	return effects
}

func (c *consequences) applyRelation(faction social.FactionID, delta float64, reason string) []DiplomaticEffect {
	if c.relations == nil || faction == c.playerFaction || delta == 0 {
		return nil
	}
	next := c.relations.ModifyRelation(c.playerFaction, faction, delta)
	return []DiplomaticEffect{{FactionID: faction, Delta: delta, NewValue: next, Reason: reason}}
}
