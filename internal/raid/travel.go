package raid

import (
	"math"

	"github.com/talgya/raid-campaign/internal/balance"
	"github.com/talgya/raid-campaign/internal/world"
)

// TravelDays returns the whole days a party of the given class needs to cover
// the distance between two points. Never less than one.
func TravelDays(origin, target world.Point, class balance.RaidClass) int {
	dist := world.Distance(origin, target)
	days := int(math.Ceil(dist / balance.DistancePerDay / class.TravelSpeedModifier))
	return max(days, 1)
}

// TotalDuration is preparation, the outbound march, the raid itself and the
// march home.
func TotalDuration(class balance.RaidClass, travelDays int) int {
	return class.PreparationDays + travelDays + balance.RaidPhaseDays + travelDays
}

// SuppliesNeeded is one food per warrior per day.
func SuppliesNeeded(warriors, totalDurationDays int) int {
	return warriors * totalDurationDays
}

// ShipsNeeded returns the longships a party of the given size requires.
func ShipsNeeded(size int) int {
	return (size + balance.ShipCapacity - 1) / balance.ShipCapacity
}
