package targeting

import "fmt"

// DefaultTrackMaxAge is how many ticks a track stays usable without a fresh scan
const DefaultTrackMaxAge = 16

// Track is the latest observation of one target, with the world position
// it implied when it was taken.
type Track struct {
	Observation Observation
	Position    Point
	Tick        int64
}

// ObservationFrom re-derives the observation as seen from a new pose.
// Heading and velocity are carried over from the earlier scan.
func (t Track) ObservationFrom(pose Pose) Observation {
	obs := t.Observation
	obs.Bearing, obs.Distance = RelativeObservation(pose, t.Position)
	return obs
}

// Tracker keeps the most recent observation per target. It is owned by a
// single agent and is not safe for concurrent use.
type Tracker struct {
	MaxAge int64

	tracks map[string]Track
	latest string
}

// NewTracker creates a tracker whose tracks expire maxAge ticks after their scan.
// A non-positive maxAge uses DefaultTrackMaxAge.
func NewTracker(maxAge int64) *Tracker {
	if maxAge <= 0 {
		maxAge = DefaultTrackMaxAge
	}
	return &Tracker{
		MaxAge: maxAge,
		tracks: make(map[string]Track),
	}
}

// Observe records a scan taken at tick from pose, replacing any previous
// observation of the same target.
func (tr *Tracker) Observe(tick int64, pose Pose, obs Observation) (Track, error) {
	if err := validatePose(pose); err != nil {
		return Track{}, err
	}
	if err := validateObservation(obs); err != nil {
		return Track{}, err
	}

	position := ProjectTarget(pose, obs)
	if !finite(position.X) || !finite(position.Y) {
		return Track{}, fmt.Errorf("%w: target position overflows", ErrInvalidInput)
	}

	track := Track{
		Observation: obs,
		Position:    position,
		Tick:        tick,
	}
	tr.tracks[obs.Target] = track
	tr.latest = obs.Target
	return track, nil
}

// Latest returns the most recently observed live track. If the last scanned
// target was forgotten, the newest remaining track is used.
func (tr *Tracker) Latest(tick int64) (Track, bool) {
	if track, ok := tr.tracks[tr.latest]; ok {
		if tr.expired(track, tick) {
			return Track{}, false
		}
		return track, true
	}

	var best Track
	found := false
	for _, track := range tr.tracks {
		if tr.expired(track, tick) {
			continue
		}
		if !found || track.Tick > best.Tick {
			best = track
			found = true
		}
	}
	return best, found
}

// Get returns the track for a target if it has not expired by tick
func (tr *Tracker) Get(target string, tick int64) (Track, bool) {
	track, ok := tr.tracks[target]
	if !ok || tr.expired(track, tick) {
		return Track{}, false
	}
	return track, true
}

// Forget drops a target, e.g. after it was destroyed
func (tr *Tracker) Forget(target string) {
	delete(tr.tracks, target)
}

// Reset drops every track
func (tr *Tracker) Reset() {
	tr.tracks = make(map[string]Track)
	tr.latest = ""
}

// Prune drops tracks that have expired by tick and returns how many were dropped
func (tr *Tracker) Prune(tick int64) int {
	dropped := 0
	for name, track := range tr.tracks {
		if tr.expired(track, tick) {
			delete(tr.tracks, name)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracks held
func (tr *Tracker) Len() int {
	return len(tr.tracks)
}

func (tr *Tracker) expired(track Track, tick int64) bool {
	return tick-track.Tick > tr.MaxAge
}
