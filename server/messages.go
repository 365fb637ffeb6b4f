package server

import (
	"encoding/json"

	"github.com/lab1702/gunnery/targeting"
)

// Message types
const (
	MsgTypeTick     = "tick"
	MsgTypeForget   = "forget"
	MsgTypeReset    = "reset"
	MsgTypeWelcome  = "welcome"
	MsgTypeSolution = "solution"
	MsgTypeIdle     = "idle"
	MsgTypeError    = "error"
)

// Error codes carried by MsgTypeError
const (
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeBadMessage   = "bad_message"
)

// ClientMessage represents a message from a battle engine agent to the server
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage represents a message from server to agent
type ServerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Handler data structures

// TickData is the agent state for one simulation tick, with at most one new scan
type TickData struct {
	Tick         int64                  `json:"tick"`
	Pose         targeting.Pose         `json:"pose"`
	Gun          targeting.GunState     `json:"gun"`
	RadarHeading *float64               `json:"radarHeading,omitempty"`
	Observation  *targeting.Observation `json:"observation,omitempty"`
}

// ForgetData names a target that should no longer be tracked
type ForgetData struct {
	Target string `json:"target"`
}

// WelcomeData describes the session and the policy it is bound to
type WelcomeData struct {
	Session         string   `json:"session"`
	Policy          string   `json:"policy"`
	AimToleranceDeg *float64 `json:"aimToleranceDeg"` // nil = fire on gun heat alone
	Lead            bool     `json:"lead"`
	TrackMaxAge     int64    `json:"trackMaxAge"`
}

// SolutionData is a firing solution for the host to apply
type SolutionData struct {
	Tick            int64    `json:"tick"`
	Target          string   `json:"target"`
	GunTurn         float64  `json:"gunTurn"`
	Power           float64  `json:"power"`
	Fire            bool     `json:"fire"`
	AbsoluteBearing float64  `json:"absoluteBearing"`
	AimBearing      float64  `json:"aimBearing"`
	TargetX         float64  `json:"targetX"`
	TargetY         float64  `json:"targetY"`
	Distance        float64  `json:"distance"`
	Stale           bool     `json:"stale"`
	RadarTurn       *float64 `json:"radarTurn,omitempty"`
}

// IdleData is sent for ticks with nothing to shoot at
type IdleData struct {
	Tick int64 `json:"tick"`
}

// ErrorData reports a rejected message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// aimToleranceDeg converts a policy tolerance for JSON, which cannot carry +Inf
func aimToleranceDeg(policy targeting.Policy) *float64 {
	if policy.AimTolerance > 1e300 {
		return nil
	}
	deg := targeting.RadToDeg(policy.AimTolerance)
	return &deg
}
