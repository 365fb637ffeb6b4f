package targeting

import (
	"fmt"
	"math"
)

// DecideFire reports whether to fire this tick: the gun must be cold and
// pointing within tolerance of the aim bearing.
func DecideFire(gunHeat, gunTurn, aimTolerance float64) bool {
	return gunHeat == 0 && math.Abs(gunTurn) <= aimTolerance
}

// Solve computes the firing solution for one observation.
// It is a pure function of its inputs and safe for concurrent use.
func Solve(pose Pose, gun GunState, obs Observation, policy Policy) (FiringSolution, error) {
	if err := validatePose(pose); err != nil {
		return FiringSolution{}, err
	}
	if err := validateGun(gun); err != nil {
		return FiringSolution{}, err
	}
	if err := validateObservation(obs); err != nil {
		return FiringSolution{}, err
	}
	if err := validatePolicy(policy); err != nil {
		return FiringSolution{}, err
	}

	// Finite inputs can still overflow once summed or projected
	abs := AbsoluteBearing(pose.Heading, obs.Bearing)
	if !finite(abs) {
		return FiringSolution{}, fmt.Errorf("%w: absolute bearing overflows", ErrInvalidInput)
	}
	position := ProjectTarget(pose, obs)
	if !finite(position.X) || !finite(position.Y) {
		return FiringSolution{}, fmt.Errorf("%w: target position overflows", ErrInvalidInput)
	}

	power := policy.FirePower(obs.Distance)

	aim := abs
	if policy.Lead {
		aim, _ = LeadBearing(pose, obs, power)
	}
	if !finite(aim - gun.Heading) {
		return FiringSolution{}, fmt.Errorf("%w: gun turn overflows", ErrInvalidInput)
	}

	turn := GunTurn(aim, gun.Heading)

	return FiringSolution{
		GunTurn:         turn,
		Power:           power,
		Fire:            DecideFire(gun.Heat, turn, policy.AimTolerance),
		AbsoluteBearing: abs,
		AimBearing:      aim,
		TargetPosition:  position,
	}, nil
}

// Engine binds a fixed policy to Solve
type Engine struct {
	policy Policy
}

// NewEngine creates an engine for a policy, rejecting malformed policies
func NewEngine(policy Policy) (*Engine, error) {
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}
	return &Engine{policy: policy}, nil
}

// Policy returns the engine's policy
func (e *Engine) Policy() Policy {
	return e.policy
}

// Solve computes a firing solution under the engine's policy
func (e *Engine) Solve(pose Pose, gun GunState, obs Observation) (FiringSolution, error) {
	return Solve(pose, gun, obs, e.policy)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func validatePose(pose Pose) error {
	if !finite(pose.X) || !finite(pose.Y) {
		return fmt.Errorf("%w: non-finite position (%v, %v)", ErrInvalidInput, pose.X, pose.Y)
	}
	if !finite(pose.Heading) {
		return fmt.Errorf("%w: non-finite heading %v", ErrInvalidInput, pose.Heading)
	}
	return nil
}

func validateGun(gun GunState) error {
	if !finite(gun.Heading) {
		return fmt.Errorf("%w: non-finite gun heading %v", ErrInvalidInput, gun.Heading)
	}
	if !finite(gun.Heat) || gun.Heat < 0 {
		return fmt.Errorf("%w: gun heat %v", ErrInvalidInput, gun.Heat)
	}
	return nil
}

func validateObservation(obs Observation) error {
	if !finite(obs.Bearing) {
		return fmt.Errorf("%w: non-finite bearing %v", ErrInvalidInput, obs.Bearing)
	}
	if !finite(obs.Distance) || obs.Distance < 0 {
		return fmt.Errorf("%w: distance %v", ErrInvalidInput, obs.Distance)
	}
	if obs.Heading != nil && !finite(*obs.Heading) {
		return fmt.Errorf("%w: non-finite target heading %v", ErrInvalidInput, *obs.Heading)
	}
	if !finite(obs.Velocity) {
		return fmt.Errorf("%w: non-finite target velocity %v", ErrInvalidInput, obs.Velocity)
	}
	return nil
}

func validatePolicy(policy Policy) error {
	if policy.Power != PowerBanded && policy.Power != PowerContinuous {
		return fmt.Errorf("%w: unknown power policy %d", ErrInvalidInput, policy.Power)
	}
	if math.IsNaN(policy.AimTolerance) || policy.AimTolerance < 0 {
		return fmt.Errorf("%w: aim tolerance %v", ErrInvalidInput, policy.AimTolerance)
	}
	return nil
}
