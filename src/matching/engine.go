// Package matching pairs online users, runs the accept/decline handshake
// between them and relays WebRTC signaling once both sides agree.
//
// All state lives on a single engine goroutine. Public methods enqueue
// work onto it, repository lookups run elsewhere and post their results
// back, and timers only ever enqueue. Nothing in the package takes a lock
// on connection or pool state.
package matching

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/haze-team/haze-server/src/models"
	"github.com/jonboulle/clockwork"
)

type Config struct {
	IntroduceTimeout      time.Duration
	FaceRecognitionWindow time.Duration
	WebchatTimeout        time.Duration
	RematchDelayFirst     time.Duration
	RematchDelaySecond    time.Duration
	LookupTimeout         time.Duration
	ReporterTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		IntroduceTimeout:      10 * time.Second,
		FaceRecognitionWindow: 10 * time.Second,
		WebchatTimeout:        10 * time.Minute,
		RematchDelayFirst:     time.Second,
		RematchDelaySecond:    3 * time.Second,
		LookupTimeout:         5 * time.Second,
		ReporterTimeout:       5 * time.Second,
	}
}

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l.With("component", "matching") }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

type Engine struct {
	cfg     Config
	deps    Deps
	clock   clockwork.Clock
	log     *slog.Logger
	metrics *Metrics

	work     chan func()
	stopped  chan struct{}
	stopOnce sync.Once
	runCtx   context.Context

	conns   map[ConnID]*Connection
	waiting *pool
	pending *pool
	rooms   map[string][2]ConnID

	inflight  atomic.Int64
	reporters sync.WaitGroup
}

func New(deps Deps, cfg Config, opts ...Option) *Engine {
	if deps.ProfileURLs == nil {
		deps.ProfileURLs = storedURL{}
	}
	e := &Engine{
		cfg:     cfg,
		deps:    deps,
		clock:   clockwork.NewRealClock(),
		log:     slog.Default().With("component", "matching"),
		work:    make(chan func(), 1024),
		stopped: make(chan struct{}),
		runCtx:  context.Background(),
		conns:   make(map[ConnID]*Connection),
		waiting: newPool(),
		pending: newPool(),
		rooms:   make(map[string][2]ConnID),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes engine work until ctx is cancelled. It must be called
// exactly once.
func (e *Engine) Run(ctx context.Context) error {
	e.runCtx = ctx
	e.log.Info("matching engine started")
	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case fn := <-e.work:
			fn()
			e.observe()
		}
	}
}

func (e *Engine) shutdown() {
	e.stopOnce.Do(func() { close(e.stopped) })
	for _, c := range e.conns {
		c.cancelTimer()
	}
	e.log.Info("matching engine stopped", "connections", len(e.conns))
}

// Wait blocks until every fire-and-forget side effect has finished
func (e *Engine) Wait() {
	e.reporters.Wait()
}

func (e *Engine) submit(fn func()) bool {
	select {
	case <-e.stopped:
		return false
	default:
	}
	select {
	case e.work <- fn:
		return true
	case <-e.stopped:
		return false
	}
}

// do runs fn on the loop and waits for it. Never call it from the loop.
func (e *Engine) do(fn func()) bool {
	done := make(chan struct{})
	if !e.submit(func() {
		fn()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-e.stopped:
		return false
	}
}

// await runs lookup off the loop and hands its result to then on the
// loop. then must re-validate any state it depends on.
func await[T any](e *Engine, lookup func(ctx context.Context) T, then func(T)) {
	e.inflight.Add(1)
	base := e.runCtx
	go func() {
		ctx, cancel := context.WithTimeout(base, e.cfg.LookupTimeout)
		res := lookup(ctx)
		cancel()
		if !e.submit(func() {
			e.inflight.Add(-1)
			then(res)
		}) {
			e.inflight.Add(-1)
		}
	}()
}

// after schedules fn on the loop once d has elapsed
func (e *Engine) after(d time.Duration, fn func()) clockwork.Timer {
	return e.clock.AfterFunc(d, func() { e.submit(fn) })
}

func (e *Engine) spawn(what string, fn func(ctx context.Context) error) {
	e.reporters.Add(1)
	go func() {
		defer e.reporters.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ReporterTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.log.Warn("side effect failed", "what", what, "error", err)
		}
	}()
}

func (e *Engine) recordMatch(status models.MatchStatus, userIDs ...string) {
	e.metrics.outcome(string(status))
	if e.deps.MatchLogs == nil {
		return
	}
	e.spawn("match log", func(ctx context.Context) error {
		return e.deps.MatchLogs.Record(ctx, status, userIDs...)
	})
}

func (e *Engine) activity(format string, args ...any) {
	content := fmt.Sprintf(format, args...)
	if e.deps.Activity == nil {
		e.log.Debug(content)
		return
	}
	e.spawn("activity log", func(ctx context.Context) error {
		return e.deps.Activity.CreateLog(ctx, content)
	})
}

func (e *Engine) emit(id ConnID, event string, data any) {
	if e.deps.Emitter == nil {
		return
	}
	e.deps.Emitter.Emit(id, event, data)
}

func (e *Engine) broadcastOnlineUsers() {
	if e.deps.Emitter == nil {
		return
	}
	e.deps.Emitter.Broadcast(EventOnlineUsers, e.onlineUsers())
}

func (e *Engine) onlineUsers() OnlineUsers {
	seen := make(map[string]struct{}, len(e.conns))
	for _, c := range e.conns {
		if c.userID != "" {
			seen[c.userID] = struct{}{}
		}
	}
	users := slices.AppendSeq(make([]string, 0, len(seen)), maps.Keys(seen))
	slices.Sort(users)
	return OnlineUsers{Count: len(e.conns), Users: users}
}

func (e *Engine) observe() {
	e.metrics.observe(len(e.conns), e.waiting.Len(), e.pending.Len(), len(e.rooms))
}

func newID() string {
	return uuid.NewString()
}

// partnerOf resolves the symmetric partner link of c, or nil
func (e *Engine) partnerOf(c *Connection) *Connection {
	if c.partnerConnID == "" {
		return nil
	}
	p := e.conns[c.partnerConnID]
	if p == nil || p.partnerConnID != c.ID {
		return nil
	}
	return p
}

func (e *Engine) leaveRoom(roomID string) {
	if roomID != "" {
		delete(e.rooms, roomID)
	}
}

// Connect registers a new idle connection. authUserID is empty for
// anonymous sockets.
func (e *Engine) Connect(id ConnID, authUserID string) {
	e.submit(func() {
		if _, ok := e.conns[id]; ok {
			return
		}
		e.conns[id] = newConnection(id, authUserID, e.clock.Now())
		e.log.Debug("connection registered", "conn", id, "user", authUserID)
		e.broadcastOnlineUsers()
	})
}

// Disconnect discards the connection and releases its partner
func (e *Engine) Disconnect(id ConnID) {
	e.submit(func() { e.disconnect(id) })
}

func (e *Engine) disconnect(id ConnID) {
	c := e.conns[id]
	if c == nil {
		return
	}
	partner := e.partnerOf(c)
	delete(e.conns, id)

	e.waiting.DeleteConn(id)
	e.pending.DeleteConn(id)
	e.leaveRoom(c.roomID)
	c.cancelTimer()

	if c.status == StatusPending || c.status == StatusMatched {
		if partner != nil {
			e.pending.Remove(partner.userID, partner.ID)
			e.leaveRoom(partner.roomID)
			partner.toIdle()
			e.emit(partner.ID, EventPartnerDisconnected, nil)
		}
		e.recordMatch(models.MatchStatusCanceled, c.userID, c.partnerUserID)
	}

	e.activity("connection %s of user %s disconnected while %s", id, c.userID, c.status)
	e.log.Debug("connection discarded", "conn", id, "user", c.userID, "status", c.status.String())
	e.broadcastOnlineUsers()
}

type Stats struct {
	Connections int `json:"connections"`
	Waiting     int `json:"waiting"`
	Pending     int `json:"pending"`
	Sessions    int `json:"sessions"`
}

// Stats returns the current pool sizes. It returns zero values once the
// engine has stopped.
func (e *Engine) Stats() Stats {
	var s Stats
	e.do(func() {
		s = Stats{
			Connections: len(e.conns),
			Waiting:     e.waiting.Len(),
			Pending:     e.pending.Len(),
			Sessions:    len(e.rooms),
		}
	})
	return s
}
