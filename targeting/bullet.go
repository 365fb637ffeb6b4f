package targeting

import "math"

// Bullet physics of the host simulator. The engine never fires; these are
// used to lead moving targets and to let callers budget gun heat.
const (
	// BulletBaseSpeed is the speed of a zero-power bullet in units per tick
	BulletBaseSpeed = 20.0
	// BulletSpeedPerPower is how much each unit of power slows the bullet
	BulletSpeedPerPower = 3.0
	// GunHeatBase is the heat generated by any shot before the power term
	GunHeatBase = 1.0
	// GunHeatPowerDivisor scales the power term of generated heat
	GunHeatPowerDivisor = 5.0
)

// BulletSpeed returns the bullet speed for a fire power (units per tick)
func BulletSpeed(power float64) float64 {
	return BulletBaseSpeed - BulletSpeedPerPower*clampPower(power)
}

// GunHeatFor returns the heat a shot of the given power adds to the gun
func GunHeatFor(power float64) float64 {
	return GunHeatBase + clampPower(power)/GunHeatPowerDivisor
}

// BulletDamage returns the damage a hit of the given power deals
func BulletDamage(power float64) float64 {
	power = clampPower(power)
	return 4*power + 2*math.Max(0, power-1)
}

// CooldownTicks returns how many ticks the gun needs to cool from heat to zero
func CooldownTicks(heat, coolingRate float64) int {
	if heat <= 0 {
		return 0
	}
	if coolingRate <= 0 {
		return math.MaxInt32
	}
	return int(math.Ceil(heat / coolingRate))
}
