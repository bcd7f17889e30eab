package raid

import (
	"math"

	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/economy"
	"github.com/talgya/raid-campaign/internal/entropy"
)

// DetermineLoot rolls what the raid carries off. A beaten raid still grabs a
// little food and wood. Every resource is capped at the lootable share of what
// the target held when the raid set out. The target itself is not touched.
func DetermineLoot(r *Raid, class balance.RaidClass, target TargetSnapshot, combat CombatResult, src entropy.Source) Loot {
	loot := Loot{Resources: economy.Bundle{}}

	if !combat.Success {
		for _, drop := range balance.FailedLootTrickle {
			loot.Resources[drop.Resource] += entropy.IntBetween(src, drop.Min, drop.Max)
		}
		capLoot(loot.Resources, target.Holdings)
		return loot
	}

	table := balance.LootTableFor(target.Type)
	effectiveness := combat.StrengthRatio * class.LootModifier

	for _, drop := range table.Common {
		if !entropy.Chance(src, drop.Chance) {
			continue
		}
		loot.Resources[drop.Resource] += scaledAmount(drop, effectiveness, src)
	}

	for _, drop := range table.Rare {
		if !entropy.Chance(src, scaledChance(drop.Chance, balance.RareChanceScale, effectiveness)) {
			continue
		}
		loot.Resources[drop.Resource] += scaledAmount(drop, effectiveness, src)
	}

	for _, item := range table.Special {
		if !entropy.Chance(src, scaledChance(item.Chance, balance.SpecialChanceScale, effectiveness)) {
			continue
		}
		loot.Items = append(loot.Items, SpecialLoot{Name: item.Name, Description: item.Description})
	}

	capLoot(loot.Resources, target.Holdings)
	return loot
}

func scaledAmount(drop balance.ResourceDrop, effectiveness float64, src entropy.Source) int {
	base := entropy.IntBetween(src, drop.Min, drop.Max)
	return int(math.Round(float64(base) * effectiveness))
}

// scaledChance shrinks a table chance for rare finds; it never rises above the
// table's own chance however strong the raid.
func scaledChance(chance, scale, effectiveness float64) float64 {
	return clamp(chance*scale*effectiveness, 0, chance)
}

// capLoot limits each resource to the lootable share of the holding and
// drops resources that end up at zero.
func capLoot(loot, holdings economy.Bundle) {
	for res, n := range loot {
		limit := int(math.Floor(float64(holdings[res]) * balance.LootCapFraction))
		n = clamp(n, 0, limit)
		if n == 0 {
			delete(loot, res)
			continue
		}
		loot[res] = n
	}
}
