package server

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lab1702/gunnery/logging"
	"github.com/lab1702/gunnery/recorder"
	"github.com/lab1702/gunnery/targeting"
	"github.com/rs/zerolog"
)

// Connection timing
const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 256
)

// Options configures a Server
type Options struct {
	Policy         targeting.Policy
	TrackMaxAge    int64
	RadarOvershoot float64
	AllowedOrigins []string
	Shots          ShotStore // nil disables shot recording
	Logger         zerolog.Logger
}

// Client represents a connected battle engine agent
type Client struct {
	ID      string
	conn    *websocket.Conn
	send    chan ServerMessage
	server  *Server
	tracker *targeting.Tracker
}

// Server computes firing solutions for connected agents
type Server struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	engine     *targeting.Engine
	opts       Options
	upgrader   websocket.Upgrader
	shots      ShotStore
	shotQueue  chan recorder.Shot
	recordOnce sync.Once
	recordWG   sync.WaitGroup

	log     zerolog.Logger
	tickLog zerolog.Logger
	metrics *metrics
	stats   stats
}

// NewServer creates a new gunnery server bound to one targeting policy
func NewServer(opts Options) (*Server, error) {
	engine, err := targeting.NewEngine(opts.Policy)
	if err != nil {
		return nil, err
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	if opts.TrackMaxAge <= 0 {
		opts.TrackMaxAge = targeting.DefaultTrackMaxAge
	}
	if opts.RadarOvershoot == 0 {
		opts.RadarOvershoot = targeting.DefaultRadarOvershoot
	}
	if math.IsNaN(opts.RadarOvershoot) || math.IsInf(opts.RadarOvershoot, 0) || opts.RadarOvershoot < 0 {
		return nil, fmt.Errorf("%w: radar overshoot %v", targeting.ErrInvalidInput, opts.RadarOvershoot)
	}

	s := &Server{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		engine:     engine,
		opts:       opts,
		shots:      opts.Shots,
		shotQueue:  make(chan recorder.Shot, shotQueueSize),
		log:        opts.Logger,
		tickLog:    logging.Sampled(opts.Logger),
		metrics:    m,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:       s.isValidOrigin,
		EnableCompression: true,
	}
	return s, nil
}

// isValidOrigin accepts agents that send no Origin, same-host origins and
// the configured allowlist.
func (s *Server) isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		s.log.Warn().Str("origin", origin).Msg("Invalid origin URL")
		return false
	}
	if originURL.Host == r.Host || slices.Contains(s.opts.AllowedOrigins, origin) {
		return true
	}

	s.log.Warn().Str("origin", origin).Msg("Rejected WebSocket connection")
	return false
}

// Run handles client registration until Shutdown is called
func (s *Server) Run() {
	s.startRecording()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			s.stats.sessions.Add(1)
			s.metrics.sessions.Add(context.Background(), 1)
			s.log.Info().Str("session", client.ID).Msg("Agent connected")

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				close(client.send)
				s.stats.sessions.Add(-1)
				s.metrics.sessions.Add(context.Background(), -1)
			}
			s.mu.Unlock()
			s.log.Info().Str("session", client.ID).Msg("Agent disconnected")

		case <-s.done:
			s.mu.Lock()
			for id, client := range s.clients {
				client.conn.Close()
				delete(s.clients, id)
			}
			s.mu.Unlock()
			return
		}
	}
}

// Shutdown stops the hub, drops every connection and waits for queued
// shots to reach the store.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
	})
	s.recordWG.Wait()
}

// Policy returns the policy every session is bound to
func (s *Server) Policy() targeting.Policy {
	return s.engine.Policy()
}

// HandleWebSocket upgrades an agent connection and starts its session
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := &Client{
		ID:      uuid.NewString(),
		conn:    conn,
		send:    make(chan ServerMessage, sendBuffer),
		server:  s,
		tracker: targeting.NewTracker(s.opts.TrackMaxAge),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	policy := s.Policy()
	client.sendMessage(MsgTypeWelcome, WelcomeData{
		Session:         client.ID,
		Policy:          policy.Power.String(),
		AimToleranceDeg: aimToleranceDeg(policy),
		Lead:            policy.Lead,
		TrackMaxAge:     client.tracker.MaxAge,
	})

	go client.writePump()
	go client.readPump()
}

// readPump handles incoming messages from the agent
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg ClientMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.server.log.Warn().Err(err).Str("session", c.ID).Msg("WebSocket error")
			}
			break
		}

		c.handleMessage(msg)
	}
}

// writePump sends messages to the agent
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.done:
			return
		}
	}
}

// handleMessage processes a message from the agent
func (c *Client) handleMessage(msg ClientMessage) {
	// Recover from any panic to prevent disconnection
	defer func() {
		if r := recover(); r != nil {
			c.server.log.Error().Str("session", c.ID).Str("type", msg.Type).
				Interface("panic", r).Msg("PANIC in handleMessage")
		}
	}()

	switch msg.Type {
	case MsgTypeTick:
		c.handleTick(msg.Data)
	case MsgTypeForget:
		c.handleForget(msg.Data)
	case MsgTypeReset:
		c.handleReset()
	default:
		c.sendError(ErrCodeBadMessage, "unknown message type "+msg.Type)
	}
}

// sendMessage queues a message without blocking the read loop
func (c *Client) sendMessage(msgType string, data interface{}) {
	select {
	case c.send <- ServerMessage{Type: msgType, Data: data}:
	default:
		c.server.log.Warn().Str("session", c.ID).Str("type", msgType).Msg("Client send buffer full, dropping message")
	}
}

func (c *Client) sendError(code, message string) {
	c.sendMessage(MsgTypeError, ErrorData{Code: code, Message: message})
}
