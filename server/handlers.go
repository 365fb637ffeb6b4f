package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lab1702/gunnery/recorder"
	"github.com/lab1702/gunnery/targeting"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// handleTick solves the tick's observation, or re-aims at the last live
// track when the tick carries no new scan.
func (c *Client) handleTick(data json.RawMessage) {
	var tick TickData
	if err := json.Unmarshal(data, &tick); err != nil {
		c.sendError(ErrCodeBadMessage, "invalid tick payload")
		return
	}

	if tick.RadarHeading != nil && (math.IsNaN(*tick.RadarHeading) || math.IsInf(*tick.RadarHeading, 0)) {
		c.rejectInput(tick.Tick, fmt.Errorf("%w: non-finite radar heading", targeting.ErrInvalidInput))
		return
	}

	c.tracker.Prune(tick.Tick)

	var obs targeting.Observation
	stale := false
	if tick.Observation != nil {
		obs = *tick.Observation
	} else {
		track, ok := c.tracker.Latest(tick.Tick)
		if !ok {
			c.sendMessage(MsgTypeIdle, IdleData{Tick: tick.Tick})
			return
		}
		obs = track.ObservationFrom(tick.Pose)
		stale = true
	}

	solution, err := c.server.engine.Solve(tick.Pose, tick.Gun, obs)
	if err != nil {
		c.rejectInput(tick.Tick, err)
		return
	}

	var radarTurn *float64
	if tick.RadarHeading != nil {
		turn := targeting.RadarLockTurn(solution.AbsoluteBearing, *tick.RadarHeading, c.server.opts.RadarOvershoot)
		if math.IsNaN(turn) || math.IsInf(turn, 0) {
			c.rejectInput(tick.Tick, fmt.Errorf("%w: radar turn overflows", targeting.ErrInvalidInput))
			return
		}
		radarTurn = &turn
	}

	// Only an accepted tick may replace the target's track
	if tick.Observation != nil {
		if _, err := c.tracker.Observe(tick.Tick, tick.Pose, obs); err != nil {
			c.rejectInput(tick.Tick, err)
			return
		}
	}

	out := SolutionData{
		Tick:            tick.Tick,
		Target:          obs.Target,
		GunTurn:         solution.GunTurn,
		Power:           solution.Power,
		Fire:            solution.Fire,
		AbsoluteBearing: solution.AbsoluteBearing,
		AimBearing:      solution.AimBearing,
		TargetX:         solution.TargetPosition.X,
		TargetY:         solution.TargetPosition.Y,
		Distance:        obs.Distance,
		Stale:           stale,
		RadarTurn:       radarTurn,
	}

	c.server.observeSolution(c.ID, out)
	c.sendMessage(MsgTypeSolution, out)
}

// handleForget drops a destroyed target
func (c *Client) handleForget(data json.RawMessage) {
	var forget ForgetData
	if err := json.Unmarshal(data, &forget); err != nil {
		c.sendError(ErrCodeBadMessage, "invalid forget payload")
		return
	}
	c.tracker.Forget(forget.Target)
	c.server.log.Debug().Str("session", c.ID).Str("target", forget.Target).Msg("Target forgotten")
}

// handleReset drops every track at the start of a new round
func (c *Client) handleReset() {
	c.tracker.Reset()
	c.server.log.Debug().Str("session", c.ID).Msg("Tracks reset")
}

func (c *Client) rejectInput(tick int64, err error) {
	code := ErrCodeBadMessage
	if errors.Is(err, targeting.ErrInvalidInput) {
		code = ErrCodeInvalidInput
		c.server.stats.invalid.Add(1)
		c.server.metrics.invalid.Add(context.Background(), 1)
	}
	c.server.tickLog.Debug().Str("session", c.ID).Int64("tick", tick).Err(err).Msg("Tick rejected")
	c.sendError(code, err.Error())
}

// observeSolution updates counters and queues fired shots for the recorder
func (s *Server) observeSolution(session string, out SolutionData) {
	ctx := context.Background()
	policy := s.Policy().Power.String()
	attrs := metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.Bool("stale", out.Stale),
	)

	s.stats.solutions.Add(1)
	s.metrics.solutions.Add(ctx, 1, attrs)

	s.tickLog.Debug().
		Str("session", session).
		Int64("tick", out.Tick).
		Str("target", out.Target).
		Float64("gunTurn", out.GunTurn).
		Float64("power", out.Power).
		Bool("fire", out.Fire).
		Bool("stale", out.Stale).
		Msg("Firing solution")

	if !out.Fire {
		return
	}

	s.stats.fired.Add(1)
	s.metrics.fired.Add(ctx, 1, attrs)
	s.metrics.power.Record(ctx, out.Power, metric.WithAttributes(attribute.String("policy", policy)))

	s.queueShot(recorder.Shot{
		CreatedAt: time.Now().UTC(),
		Session:   session,
		Tick:      out.Tick,
		Target:    out.Target,
		Distance:  out.Distance,
		Bearing:   out.AimBearing,
		GunTurn:   out.GunTurn,
		Power:     out.Power,
		Stale:     out.Stale,
		Policy:    policy,
	})
}
