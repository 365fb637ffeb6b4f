package targeting

import (
	"math"
)

// Vector represents a velocity in world units per tick
type Vector struct {
	X, Y float64
}

// HeadingVelocity converts a heading (clockwise from up) and speed to a velocity vector
func HeadingVelocity(heading, speed float64) Vector {
	return Vector{X: speed * math.Sin(heading), Y: speed * math.Cos(heading)}
}

// InterceptSolution contains the result of an intercept calculation
type InterceptSolution struct {
	Bearing         float64 // World-frame bearing to fire along
	TimeToIntercept float64 // Ticks until the bullet reaches the target
	InterceptPoint  Point
}

// InterceptDirection calculates the bearing to fire a bullet so it meets a
// target moving in a straight line at constant speed.
//
// It solves |targetPos + targetVel*t - shooterPos| = projSpeed*t for the
// smallest positive t. Returns false when no intercept exists.
func InterceptDirection(shooterPos, targetPos Point, targetVel Vector, projSpeed float64) (InterceptSolution, bool) {
	if projSpeed <= 0 {
		return InterceptSolution{}, false
	}

	relX := targetPos.X - shooterPos.X
	relY := targetPos.Y - shooterPos.Y

	// A target on top of the shooter has no bearing to fire along
	distSq := relX*relX + relY*relY
	if distSq < 1e-9 {
		return InterceptSolution{}, false
	}

	velSq := targetVel.X*targetVel.X + targetVel.Y*targetVel.Y
	if velSq < 1e-9 {
		return InterceptSolution{
			Bearing:         BearingTo(shooterPos, targetPos),
			TimeToIntercept: math.Sqrt(distSq) / projSpeed,
			InterceptPoint:  targetPos,
		}, true
	}

	// a*t² + b*t + c = 0
	a := velSq - projSpeed*projSpeed
	b := 2.0 * (relX*targetVel.X + relY*targetVel.Y)
	c := distSq

	var t float64
	if math.Abs(a) < 1e-9 {
		// Equal speeds: linear case
		if math.Abs(b) < 1e-9 {
			return InterceptSolution{}, false
		}
		t = -c / b
		if t < 0 {
			return InterceptSolution{}, false
		}
	} else {
		discriminant := b*b - 4*a*c
		if discriminant < 0 {
			return InterceptSolution{}, false
		}
		sqrtDisc := math.Sqrt(discriminant)
		t1 := (-b + sqrtDisc) / (2 * a)
		t2 := (-b - sqrtDisc) / (2 * a)

		switch {
		case t1 > 0 && t2 > 0:
			t = math.Min(t1, t2)
		case t1 > 0:
			t = t1
		case t2 > 0:
			t = t2
		default:
			return InterceptSolution{}, false
		}
	}

	intercept := Point{
		X: targetPos.X + targetVel.X*t,
		Y: targetPos.Y + targetVel.Y*t,
	}
	return InterceptSolution{
		Bearing:         BearingTo(shooterPos, intercept),
		TimeToIntercept: t,
		InterceptPoint:  intercept,
	}, true
}

// LeadBearing returns the bearing to fire a bullet of the given power at an
// observed target so it meets the target's straight-line course. When the
// observation has no heading, the target sits on the shooter, or it cannot
// be caught, the direct bearing is returned with ok=false.
func LeadBearing(pose Pose, obs Observation, power float64) (bearing float64, ok bool) {
	direct := AbsoluteBearing(pose.Heading, obs.Bearing)
	if obs.Heading == nil || obs.Velocity == 0 {
		return direct, false
	}

	shooter := Point{X: pose.X, Y: pose.Y}
	target := ProjectTarget(pose, obs)
	vel := HeadingVelocity(*obs.Heading, obs.Velocity)

	solution, found := InterceptDirection(shooter, target, vel, BulletSpeed(power))
	if !found || !finite(solution.Bearing) {
		return direct, false
	}
	return solution.Bearing, true
}
