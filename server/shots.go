package server

import (
	"context"

	"github.com/lab1702/gunnery/recorder"
)

//go:generate go tool mockgen -destination=./mocks/shots_mock.go -package=mocks . ShotStore

// ShotStore persists fired shots. *recorder.Store implements it.
type ShotStore interface {
	RecordShot(ctx context.Context, shot recorder.Shot) error
	RecentShots(ctx context.Context, limit int) ([]recorder.Shot, error)
	Summarize(ctx context.Context) ([]recorder.SessionSummary, error)
}

var _ ShotStore = (*recorder.Store)(nil)

// shotQueueSize bounds how many shots may wait for the store
const shotQueueSize = 256

// queueShot hands a shot to the record loop without blocking the tick reply
func (s *Server) queueShot(shot recorder.Shot) {
	if s.shots == nil {
		return
	}
	select {
	case s.shotQueue <- shot:
	default:
		s.stats.droppedShots.Add(1)
		s.log.Warn().Str("session", shot.Session).Msg("Shot queue full, dropping shot")
	}
}

// startRecording launches the record loop once. It does nothing after Shutdown.
func (s *Server) startRecording() {
	if s.shots == nil {
		return
	}
	s.recordOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		select {
		case <-s.done:
			return
		default:
		}
		s.recordWG.Add(1)
		go s.recordLoop()
	})
}

// recordLoop drains the shot queue into the store. On shutdown it records
// whatever is still queued before returning.
func (s *Server) recordLoop() {
	defer s.recordWG.Done()
	for {
		select {
		case shot := <-s.shotQueue:
			s.recordShot(shot)
		case <-s.done:
			for {
				select {
				case shot := <-s.shotQueue:
					s.recordShot(shot)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) recordShot(shot recorder.Shot) {
	if err := s.shots.RecordShot(context.Background(), shot); err != nil {
		s.stats.recordFailures.Add(1)
		s.log.Warn().Err(err).Str("session", shot.Session).Msg("Failed to record shot")
	}
}
