package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lab1702/gunnery/recorder"
	"github.com/lab1702/gunnery/server/mocks"
	"github.com/lab1702/gunnery/targeting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFiredShotIsRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)

	recorded := make(chan recorder.Shot, 1)
	store.EXPECT().
		RecordShot(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, shot recorder.Shot) error {
			recorded <- shot
			return nil
		})

	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})
	go s.Run()
	defer s.Shutdown()

	c := newTestClient(s)
	c.handleTick(tickPayload(t, TickData{
		Tick:        42,
		Observation: &targeting.Observation{Target: "crazy", Distance: 120},
	}))
	require.True(t, receiveSolution(t, c).Fire)

	select {
	case shot := <-recorded:
		assert.Equal(t, "test-session", shot.Session)
		assert.Equal(t, int64(42), shot.Tick)
		assert.Equal(t, "crazy", shot.Target)
		assert.Equal(t, 3.0, shot.Power)
		assert.Equal(t, "banded", shot.Policy)
	case <-time.After(2 * time.Second):
		t.Fatal("Shot was not recorded")
	}
}

func TestHeldFireIsNotRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)
	// No RecordShot expectation: any call fails the test

	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})
	c := newTestClient(s)
	c.handleTick(tickPayload(t, TickData{
		Tick:        1,
		Gun:         targeting.GunState{Heat: 1.2},
		Observation: &targeting.Observation{Distance: 120},
	}))
	assert.False(t, receiveSolution(t, c).Fire)
	assert.Empty(t, s.shotQueue)
}

func TestShotQueueOverflowIsCounted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)

	// Run is not started, so nothing drains the queue
	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})
	for i := 0; i < shotQueueSize+3; i++ {
		s.queueShot(recorder.Shot{Session: "flood", Tick: int64(i)})
	}
	assert.Equal(t, int64(3), s.Stats().DroppedShots)
}

func TestRecordFailureIsCounted(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)

	failed := make(chan struct{})
	store.EXPECT().
		RecordShot(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, recorder.Shot) error {
			defer close(failed)
			return errors.New("disk full")
		})

	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})
	go s.Run()
	defer s.Shutdown()

	s.queueShot(recorder.Shot{Session: "s1"})
	select {
	case <-failed:
	case <-time.After(2 * time.Second):
		t.Fatal("RecordShot was not called")
	}
	assert.Eventually(t, func() bool {
		return s.Stats().RecordFailures == 1
	}, time.Second, 10*time.Millisecond)
}

func TestShutdownDrainsShotQueue(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)

	const queued = 5
	release := make(chan struct{})
	var recorded atomic.Int64
	store.EXPECT().
		RecordShot(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, recorder.Shot) error {
			<-release
			recorded.Add(1)
			return nil
		}).
		Times(queued)

	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})
	for i := 0; i < queued; i++ {
		s.queueShot(recorder.Shot{Session: "s1", Tick: int64(i)})
	}
	s.startRecording()

	// The store is still busy with the first shot when shutdown begins
	time.AfterFunc(50*time.Millisecond, func() { close(release) })
	s.Shutdown()

	assert.Equal(t, int64(queued), recorded.Load())
}

func TestShutdownBeforeRecordingStarts(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)
	// No RecordShot expectation: a loop started after shutdown would fail the test

	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})
	s.queueShot(recorder.Shot{Session: "late"})
	s.Shutdown()
	s.startRecording()
	s.Shutdown()
}

func TestHandleShots(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)
	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})

	shots := []recorder.Shot{
		{ID: 2, Session: "s1", Tick: 20, Power: 3},
		{ID: 1, Session: "s1", Tick: 10, Power: 1},
	}
	store.EXPECT().RecentShots(gomock.Any(), 5).Return(shots, nil)
	store.EXPECT().RecentShots(gomock.Any(), defaultShotLimit).Return(nil, nil)
	store.EXPECT().RecentShots(gomock.Any(), maxShotLimit).Return(nil, nil)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantShots  int
	}{
		{"explicit limit", "?limit=5", http.StatusOK, 2},
		{"default limit", "", http.StatusOK, 0},
		{"limit capped", "?limit=100000", http.StatusOK, 0},
		{"non-numeric limit", "?limit=lots", http.StatusBadRequest, 0},
		{"zero limit", "?limit=0", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/shots"+tt.query, nil)
			rec := httptest.NewRecorder()
			s.HandleShots(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got []recorder.Shot
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Len(t, got, tt.wantShots)
		})
	}
}

func TestHandleShotsStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)
	store.EXPECT().RecentShots(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})
	rec := httptest.NewRecorder()
	s.HandleShots(rec, httptest.NewRequest(http.MethodGet, "/api/shots", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleShotSummary(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockShotStore(ctrl)
	store.EXPECT().Summarize(gomock.Any()).Return([]recorder.SessionSummary{
		{Session: "s1", Shots: 4, AveragePower: 2.5},
	}, nil)

	s := newTestServer(t, Options{Policy: targeting.BandedPolicy(), Shots: store})
	rec := httptest.NewRecorder()
	s.HandleShotSummary(rec, httptest.NewRequest(http.MethodGet, "/api/shots/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []recorder.SessionSummary
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].Shots)
}

func TestShotEndpointsDisabledWithoutRecorder(t *testing.T) {
	s := newTestServer(t, Options{Policy: targeting.BandedPolicy()})

	rec := httptest.NewRecorder()
	s.HandleShots(rec, httptest.NewRequest(http.MethodGet, "/api/shots", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.HandleShotSummary(rec, httptest.NewRequest(http.MethodGet, "/api/shots/summary", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats(t *testing.T) {
	s := newTestServer(t, Options{Policy: targeting.ContinuousPolicy()})
	c := newTestClient(s)
	c.handleTick(tickPayload(t, TickData{Tick: 1, Observation: &targeting.Observation{Distance: 200}}))
	c.handleTick(tickPayload(t, TickData{Tick: 2, Observation: &targeting.Observation{Distance: -1}}))

	rec := httptest.NewRecorder()
	s.HandleStats(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, int64(1), got.Solutions)
	assert.Equal(t, int64(1), got.Fired)
	assert.Equal(t, "continuous", got.Policy)
	assert.Nil(t, got.AimToleranceDeg, "unconditional policy has no finite tolerance")
}

func TestHandleHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestIsValidOrigin(t *testing.T) {
	s := newTestServer(t, Options{
		Policy:         targeting.BandedPolicy(),
		AllowedOrigins: []string{"https://arena.example.com"},
	})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", false},
		{"http://127.0.0.1", false},
		{"http://gunnery.test", true},
		{"https://arena.example.com", true},
		{"https://evil.example.com", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "http://gunnery.test/ws", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := s.isValidOrigin(req); got != tt.want {
			t.Errorf("isValidOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

// wireMessage decodes a server message with its payload left raw
type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestWebSocketSession(t *testing.T) {
	s := newTestServer(t, Options{Policy: targeting.BandedPolicy()})
	go s.Run()
	defer s.Shutdown()

	ts := httptest.NewServer(http.HandlerFunc(s.HandleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, MsgTypeWelcome, msg.Type)

	var welcome WelcomeData
	require.NoError(t, json.Unmarshal(msg.Data, &welcome))
	assert.NotEmpty(t, welcome.Session)
	assert.Equal(t, "banded", welcome.Policy)
	require.NotNil(t, welcome.AimToleranceDeg)
	assert.InDelta(t, targeting.DefaultAimToleranceDeg, *welcome.AimToleranceDeg, 1e-9)
	assert.Equal(t, int64(targeting.DefaultTrackMaxAge), welcome.TrackMaxAge)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": MsgTypeTick,
		"data": TickData{
			Tick:        1,
			Gun:         targeting.GunState{Heading: -math.Pi / 4},
			Observation: &targeting.Observation{Target: "corners", Bearing: math.Pi / 4, Distance: 500},
		},
	}))

	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, MsgTypeSolution, msg.Type)

	var solution SolutionData
	require.NoError(t, json.Unmarshal(msg.Data, &solution))
	assert.InDelta(t, math.Pi/2, solution.GunTurn, 1e-9)
	assert.Equal(t, 1.0, solution.Power)
	assert.False(t, solution.Fire)
	assert.Equal(t, "corners", solution.Target)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "launch"}))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, MsgTypeError, msg.Type)

	var e ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &e))
	assert.Equal(t, ErrCodeBadMessage, e.Code)

	assert.Eventually(t, func() bool {
		return s.Stats().Sessions == 1
	}, time.Second, 10*time.Millisecond)
}
