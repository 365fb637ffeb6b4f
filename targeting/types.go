package targeting

import (
	"errors"
	"fmt"
	"math"
)

// Fire power limits accepted by the host simulator
const (
	MinFirePower = 0.1
	MaxFirePower = 3.0
)

// Banded power policy thresholds (world units)
const (
	CloseRange  = 150.0 // below this distance fire at full power
	MediumRange = 400.0 // below this distance fire at medium power

	CloseRangePower  = 3.0
	MediumRangePower = 2.0
	LongRangePower   = 1.0

	// ContinuousPowerFactor is the numerator of the continuous policy (power = factor/distance)
	ContinuousPowerFactor = 400.0
)

// DefaultAimToleranceDeg is the aim window of the banded policy in degrees
const DefaultAimToleranceDeg = 3.0

// DefaultAimTolerance is DefaultAimToleranceDeg in radians (~0.0524)
var DefaultAimTolerance = DegToRad(DefaultAimToleranceDeg)

// DefaultRadarOvershoot multiplies the radar lock turn so the sweep passes the target
const DefaultRadarOvershoot = 2.0

// ErrInvalidInput is returned for non-finite angles, negative distances or heat,
// and malformed policies.
var ErrInvalidInput = errors.New("invalid input")

// Point represents a position in the arena plane
type Point struct {
	X, Y float64
}

// Pose is the observer's position and body heading.
// Heading is in radians, 0 = arena up (+Y), increasing clockwise.
type Pose struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
}

// GunState is the observer's gun heading and heat. Fire is only permitted at zero heat.
type GunState struct {
	Heading float64 `json:"heading"`
	Heat    float64 `json:"heat"`
}

// Observation is a single radar contact
type Observation struct {
	Target   string   `json:"target"`
	Bearing  float64  `json:"bearing"`           // Relative to observer heading (radians)
	Distance float64  `json:"distance"`          // World units, >= 0
	Heading  *float64 `json:"heading,omitempty"` // Target heading if known
	Velocity float64  `json:"velocity"`          // Target speed in units per tick
}

// FiringSolution is the result of one Solve call
type FiringSolution struct {
	GunTurn         float64 // Signed gun turn in (-π, π], positive = clockwise
	Power           float64 // Fire power in [MinFirePower, MaxFirePower]
	Fire            bool
	AbsoluteBearing float64 // World-frame bearing to the target's current position
	AimBearing      float64 // Bearing the gun is being turned to
	TargetPosition  Point
}

// PowerPolicy selects how fire power is derived from distance
type PowerPolicy int

const (
	PowerBanded PowerPolicy = iota
	PowerContinuous
)

func (p PowerPolicy) String() string {
	switch p {
	case PowerBanded:
		return "banded"
	case PowerContinuous:
		return "continuous"
	default:
		return "unknown"
	}
}

// ParsePowerPolicy converts a policy name to a PowerPolicy
func ParsePowerPolicy(name string) (PowerPolicy, error) {
	switch name {
	case "banded":
		return PowerBanded, nil
	case "continuous":
		return PowerContinuous, nil
	default:
		return 0, fmt.Errorf("%w: unknown power policy %q", ErrInvalidInput, name)
	}
}

// Policy fixes how a configuration selects power and gates fire.
// One policy is chosen per configuration; solutions from different policies
// must not be mixed.
type Policy struct {
	Power        PowerPolicy
	AimTolerance float64 // Radians; +Inf means fire on gun heat alone
	Lead         bool    // Aim at the predicted intercept point instead of the current position
}

// BandedPolicy returns the banded power policy with the 3 degree aim window
func BandedPolicy() Policy {
	return Policy{Power: PowerBanded, AimTolerance: DefaultAimTolerance}
}

// ContinuousPolicy returns the continuous power policy which fires on gun heat alone
func ContinuousPolicy() Policy {
	return Policy{Power: PowerContinuous, AimTolerance: math.Inf(1)}
}

// DefaultPolicy returns the policy a configuration uses when none is named
func DefaultPolicy() Policy {
	return BandedPolicy()
}
