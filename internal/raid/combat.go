package raid

import (
	"math"
	"sort"

	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/entropy"
)

// CombatResult is the outcome of the single clash on the raid day.
type CombatResult struct {
	Success            bool    `json:"success"`
	RaiderStrength     float64 `json:"raider_strength"`
	DefenderStrength   float64 `json:"defender_strength"`
	StrengthRatio      float64 `json:"strength_ratio"`
	SuccessChance      float64 `json:"success_chance"` // percent, 5–95
	RaiderCasualties   int     `json:"raider_casualties"`
	DefenderCasualties int     `json:"defender_casualties"`
	DefensesWeakened   bool    `json:"defenses_weakened"`
}

// RaiderStrength is the party's effective fighting strength.
func RaiderStrength(size int, class balance.RaidClass, morale float64, leader *LeaderRef, ships int) float64 {
	moraleFactor := clamp(morale, 0, 100) / 100
	leaderBonus := 1.0
	if leader != nil {
		leaderBonus = 1 + leader.Combat/10
	}
	shipBonus := 1.0
	if class.RequiresShips {
		shipBonus = 1 + float64(ships)*balance.ShipStrengthPerShip
	}
	return float64(size) * class.CombatStrengthModifier * moraleFactor * leaderBonus * shipBonus
}

// DefenderStrength is the target's effective strength including its terrain.
func DefenderStrength(t TargetSnapshot) float64 {
	s := float64(t.Warriors)*balance.DefenderWarriorWeight +
		float64(t.Defenses)*balance.DefenderDefenseWeight
	if t.Coastal {
		s += float64(t.Ships) * balance.DefenderShipWeight
	}
	if t.Warriors < balance.MilitiaThreshold {
		s += float64(t.Population) * balance.MilitiaWeight
	}
	return s * t.Terrain.DefenseModifier()
}

// defenderForce is how many defenders can fall: the garrison plus any militia
// raised because the garrison was thin.
func defenderForce(t TargetSnapshot) int {
	force := t.Warriors
	if t.Warriors < balance.MilitiaThreshold {
		force += int(float64(t.Population) * balance.MilitiaWeight)
	}
	return force
}

// SuccessChanceBeforeJitter applies the strength ratio, morale, leadership
// and stealth adjustments to the base chance. The result is a percentage and
// is not yet clamped.
func SuccessChanceBeforeJitter(ratio, morale, leadership, stealth float64) float64 {
	chance := balance.BaseSuccessChance
	if ratio > 1 {
		chance += min((ratio-1)*balance.RatioBonusPerPoint, balance.RatioBonusCap)
	} else if ratio < 1 {
		chance -= min((1-ratio)*balance.RatioPenaltyPerPoint, balance.RatioPenaltyCap)
	}
	chance += (morale - 50) * balance.MoraleChanceWeight
	chance += leadership * balance.LeadershipChance
	chance += (stealth - 1) * balance.StealthChance
	return chance
}

// ResolveCombat pits the raid against the snapshot of its target.
func ResolveCombat(r *Raid, class balance.RaidClass, target TargetSnapshot, src entropy.Source) CombatResult {
	raider := RaiderStrength(r.Size, class, r.Morale, r.Leader, r.Ships)
	defender := DefenderStrength(target)
	ratio := raider / max(defender, 1)

	leadership := 0.0
	if r.Leader != nil {
		leadership = r.Leader.Leadership
	}
	chance := SuccessChanceBeforeJitter(ratio, r.Morale, leadership, class.StealthModifier)
	chance += entropy.Between(src, -balance.ChanceJitter, balance.ChanceJitter)
	chance = clamp(chance, balance.MinSuccessChance, balance.MaxSuccessChance)

	success := entropy.Chance(src, chance/100)
	raiderLoss, defenderLoss := casualties(r.Size, defenderForce(target), ratio, success, src)

	return CombatResult{
		Success:            success,
		RaiderStrength:     raider,
		DefenderStrength:   defender,
		StrengthRatio:      ratio,
		SuccessChance:      chance,
		RaiderCasualties:   raiderLoss,
		DefenderCasualties: defenderLoss,
		DefensesWeakened:   success && ratio > balance.DefensesWeakenedRatio,
	}
}

// casualties derives losses on both sides. The base rate falls as the raiders'
// advantage grows; winning halves the raiders' share and losing inflates it.
// At least one raider always survives to carry word home.
func casualties(raiders, defenders int, ratio float64, success bool, src entropy.Source) (int, int) {
	rate := clamp(balance.BaseCasualtyRate/max(ratio, 0.25), balance.MinCasualtyRate, balance.MaxCasualtyRate)

	raiderRate := rate * balance.LoserCasualtyFactor
	defenderRate := min(balance.DefenderLossRate*ratio, balance.MaxDefenderLossRate)
	if success {
		raiderRate = rate * balance.WinnerCasualtyFactor
		defenderRate = min(balance.DefenderWinRate*ratio, balance.MaxDefenderLossRate)
	}

	jitter := func() float64 {
		return 1 + entropy.Between(src, -balance.CasualtyJitter, balance.CasualtyJitter)
	}

	raiderLoss := int(math.Round(float64(raiders) * raiderRate * jitter()))
	defenderLoss := int(math.Round(float64(defenders) * defenderRate * jitter()))

	return clamp(raiderLoss, 0, max(raiders-1, 0)), clamp(defenderLoss, 0, defenders)
}

// distributeCasualties spreads total losses across unit types in proportion
// to their share of the party. Rounding remainders fall on the largest groups.
func distributeCasualties(units Units, total int) Units {
	out := make(Units, len(units))
	size := units.Total()
	if size == 0 || total <= 0 {
		return out
	}
	total = min(total, size)

	types := sortedUnitTypes(units)
	assigned := 0
	for _, t := range types {
		n := total * units[t] / size
		out[t] = n
		assigned += n
	}
	for i := 0; assigned < total; i = (i + 1) % len(types) {
		t := types[i]
		if out[t] < units[t] {
			out[t]++
			assigned++
		}
	}
	return out
}

// sortedUnitTypes orders unit types largest group first, then by name.
func sortedUnitTypes(units Units) []UnitType {
	types := make([]UnitType, 0, len(units))
	for t := range units {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if units[types[i]] != units[types[j]] {
			return units[types[i]] > units[types[j]]
		}
		return types[i] < types[j]
	})
	return types
}
