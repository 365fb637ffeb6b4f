package targeting

import (
	"math"
)

// SelectFirePower returns the banded fire power for a distance.
// Closer targets are worth a heavier, slower bullet.
func SelectFirePower(distance float64) float64 {
	var power float64
	switch {
	case distance < CloseRange:
		power = CloseRangePower
	case distance < MediumRange:
		power = MediumRangePower
	default:
		power = LongRangePower
	}
	return clampPower(power)
}

// SelectFirePowerContinuous returns min(400/distance, 3.0) clamped to the
// legal power range. A zero distance fires at full power.
func SelectFirePowerContinuous(distance float64) float64 {
	if distance <= 0 {
		return MaxFirePower
	}
	return clampPower(math.Min(ContinuousPowerFactor/distance, MaxFirePower))
}

// FirePower returns the power this policy selects for a distance
func (p Policy) FirePower(distance float64) float64 {
	if p.Power == PowerContinuous {
		return SelectFirePowerContinuous(distance)
	}
	return SelectFirePower(distance)
}

func clampPower(power float64) float64 {
	return math.Max(MinFirePower, math.Min(power, MaxFirePower))
}
