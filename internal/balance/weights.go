package balance

import "github.com/talgya/raid-campaign/internal/economy"

// Target scoring.
const (
	DistanceWeight     = -2.0  // per 100 world units
	DefenseWeight      = -0.05 // per point of defender strength
	WealthWeight       = 1.5   // per 100 wealth
	RelationshipWeight = -1.0  // per 100 relation; enemies score higher

	ShipCoastalBonus   = 50.0
	ShipInlandPenalty  = -100.0
	QuickExtraDistance = -2.0 // per 100 world units, quick raids only
	PlunderExtraWealth = 1.0  // per 100 wealth, plunder raids only
)

// WealthWeights weighs settlement holdings into a wealth score.
var WealthWeights = map[economy.Resource]float64{
	economy.Silver: 2.0,
	economy.Gold:   5.0,
	economy.Food:   0.1,
	economy.Metal:  1.0,
}

// Travel.
const (
	DistancePerDay = 40.0 // world units a party covers in one day at speed 1
	RaidPhaseDays  = 1
	ShipCapacity   = 30 // warriors per ship
)

// Combat.
const (
	DefenderWarriorWeight = 1.0
	DefenderDefenseWeight = 2.0
	DefenderShipWeight    = 1.5
	MilitiaWeight         = 0.1 // per head of population when the garrison is thin
	MilitiaThreshold      = 5   // garrison below this raises the militia

	ShipStrengthPerShip = 0.05

	BaseSuccessChance    = 50.0
	RatioBonusPerPoint   = 30.0
	RatioBonusCap        = 45.0
	RatioPenaltyPerPoint = 40.0
	RatioPenaltyCap      = 40.0
	MoraleChanceWeight   = 0.5 // per point of morale above or below 50
	LeadershipChance     = 1.5 // per point of leadership skill
	StealthChance        = 10.0
	ChanceJitter         = 10.0 // +/- uniform
	MinSuccessChance     = 5.0
	MaxSuccessChance     = 95.0

	BaseCasualtyRate      = 0.15
	MinCasualtyRate       = 0.02
	MaxCasualtyRate       = 0.6
	WinnerCasualtyFactor  = 0.5
	LoserCasualtyFactor   = 1.5
	DefenderWinRate       = 0.25 // defender loss rate per point of ratio when raiders win
	DefenderLossRate      = 0.08 // defender loss rate per point of ratio when raiders lose
	MaxDefenderLossRate   = 0.9
	CasualtyJitter        = 0.25
	DefensesWeakenedRatio = 1.5
)

// Loot.
const (
	LootCapFraction    = 0.8
	RareChanceScale    = 0.5
	SpecialChanceScale = 0.5
)

// FailedLootTrickle is what a beaten raid still carries off.
var FailedLootTrickle = []ResourceDrop{
	{Resource: economy.Food, Min: 2, Max: 8, Chance: 1},
	{Resource: economy.Wood, Min: 1, Max: 5, Chance: 1},
}

// Consequences.
const (
	FailureFame        = 2
	FameImportanceDiv  = 50.0 // population per fame point
	FameProsperityDiv  = 10.0
	FameLootValueDiv   = 20.0
	FamePerSpecialItem = 10

	BaseRelationPenalty     = -5.0
	SuccessRelationPenalty  = -10.0
	ReligiousPenalty        = -10.0
	HighValuePenalty        = -5.0
	HighValueWealth         = 300.0
	HighCasualtyPenalty     = -5.0
	HighCasualtyThreshold   = 10
	WeakenedDefensesPenalty = -10.0
	SpilloverFraction       = 1.0 / 3.0
	HostileApprovalFraction = 1.0 / 6.0
	HostileThreshold        = -50.0
)

// Daily march.
const (
	StartingMorale          = 70.0
	LeaderMoralePerPoint    = 2.0
	StarvationMoralePenalty = 10.0
	TravelEventChance       = 0.15
	TravelEventMorale       = 5.0
)
