package targeting

import (
	"math"
)

// maxLoopMagnitude bounds how far NormalizeAngleSigned walks in 2π steps.
// Larger inputs are pre-reduced with math.Remainder.
const maxLoopMagnitude = 2 * math.Pi * 1e6

// NormalizeAngleSigned normalizes an angle to the range (-π, π] by repeatedly
// adding or subtracting 2π. Non-finite input is returned unchanged.
func NormalizeAngleSigned(angle float64) float64 {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return angle
	}
	if math.Abs(angle) > maxLoopMagnitude {
		angle = math.Remainder(angle, 2*math.Pi)
	}
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// AngleDifference returns the magnitude of the smallest turn between two angles
func AngleDifference(a1, a2 float64) float64 {
	return math.Abs(NormalizeAngleSigned(a1 - a2))
}

// AbsoluteBearing returns the world-frame bearing of a target seen at
// relativeBearing from an observer facing observerHeading. The sum is not normalized.
func AbsoluteBearing(observerHeading, relativeBearing float64) float64 {
	return observerHeading + relativeBearing
}

// GunTurn returns the signed turn the gun must make to point along absoluteBearing.
// Positive turns are clockwise; the result lies in (-π, π].
func GunTurn(absoluteBearing, gunHeading float64) float64 {
	return NormalizeAngleSigned(absoluteBearing - gunHeading)
}

// RadarLockTurn returns the radar turn that keeps a target painted.
// The overshoot factor makes the sweep pass beyond the target so the next
// scan still sees it if it moved.
func RadarLockTurn(absoluteBearing, radarHeading, overshoot float64) float64 {
	return NormalizeAngleSigned(absoluteBearing-radarHeading) * overshoot
}

// DegToRad converts degrees to radians
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// BearingTo returns the world-frame bearing from one point to another
// using the clockwise-from-up convention.
func BearingTo(from, to Point) float64 {
	return math.Atan2(to.X-from.X, to.Y-from.Y)
}

// Distance returns the Euclidean distance between two points
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// ProjectTarget returns the world position of an observed target
func ProjectTarget(pose Pose, obs Observation) Point {
	abs := AbsoluteBearing(pose.Heading, obs.Bearing)
	return Point{
		X: pose.X + obs.Distance*math.Sin(abs),
		Y: pose.Y + obs.Distance*math.Cos(abs),
	}
}

// RelativeObservation returns the bearing (relative to the pose heading) and
// distance from pose to a world position.
func RelativeObservation(pose Pose, target Point) (bearing, distance float64) {
	from := Point{X: pose.X, Y: pose.Y}
	distance = Distance(from, target)
	if distance < 1e-9 {
		return 0, 0
	}
	bearing = NormalizeAngleSigned(BearingTo(from, target) - pose.Heading)
	return bearing, distance
}
