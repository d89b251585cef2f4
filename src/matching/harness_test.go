package matching

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/haze-team/haze-server/src/models"
	"github.com/haze-team/haze-server/src/repositories"
	"github.com/haze-team/haze-server/src/services"
)

type sent struct {
	to    ConnID
	event string
	data  any
}

type recorder struct {
	mu         sync.Mutex
	events     []sent
	broadcasts []sent
}

func (r *recorder) Emit(id ConnID, event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sent{to: id, event: event, data: data})
}

func (r *recorder) Broadcast(event string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, sent{event: event, data: data})
}

func (r *recorder) to(id ConnID, event string) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.events {
		if s.to == id && s.event == event {
			out = append(out, s)
		}
	}
	return out
}

func (r *recorder) count(id ConnID, event string) int {
	return len(r.to(id, event))
}

func (r *recorder) last(id ConnID, event string) (any, bool) {
	got := r.to(id, event)
	if len(got) == 0 {
		return nil, false
	}
	return got[len(got)-1].data, true
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var testTime = time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

type harness struct {
	t   *testing.T
	e   *Engine
	clk *testClock
	mem *repositories.Memory
	rec *recorder
}

// newHarness runs an engine backed by the memory store. Every user gets
// a profile and one image.
func newHarness(t *testing.T, users ...string) *harness {
	t.Helper()
	return newHarnessWith(t, nil, users...)
}

func newHarnessWith(t *testing.T, opts []Option, users ...string) *harness {
	t.Helper()
	return newHarnessDeps(t, nil, opts, users...)
}

// newHarnessDeps lets wrap replace collaborators before the engine starts
func newHarnessDeps(t *testing.T, wrap func(*Deps), opts []Option, users ...string) *harness {
	t.Helper()
	mem := repositories.NewMemory()
	for _, id := range users {
		addUser(mem, id)
	}
	repos := mem.Repositories()
	matchLogs := services.NewMatchLogService(repos.Users, repos.MatchLogs)

	h := &harness{
		t:   t,
		clk: newTestClock(testTime),
		mem: mem,
		rec: &recorder{},
	}
	deps := Deps{
		Users:     repos.Users,
		Images:    repos.Images,
		BlockLogs: repos.BlockLogs,
		MatchLogs: matchLogs,
		Activity:  services.NewLogService(repos.Logs, discard),
		Reports:   services.NewReportService(repos.Users, matchLogs),
		Emitter:   h.rec,
	}
	if wrap != nil {
		wrap(&deps)
	}
	h.e = New(deps, DefaultConfig(), append([]Option{WithClock(h.clk), WithLogger(discard)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		h.e.Wait()
	})
	return h
}

func addUser(mem *repositories.Memory, id string) {
	mem.PutUser(models.User{
		ID:        id,
		Nickname:  "nick-" + id,
		Gender:    models.GenderFemale,
		Location:  "Seoul",
		Interests: []string{"movies"},
		Purpose:   models.PurposeCoffee,
	})
	mem.PutImages(models.Images{
		UserID: id,
		Keys:   []string{id + "/0.jpg"},
		URLs:   []string{"https://img.example/" + id + ".jpg"},
	})
}

// settle waits until the loop is idle with no lookup in flight and every
// side effect has been written
func (h *harness) settle() {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		idle := false
		h.e.do(func() { idle = h.e.inflight.Load() == 0 })
		if idle {
			break
		}
		if time.Now().After(deadline) {
			h.t.Fatal("engine did not settle")
		}
		time.Sleep(time.Millisecond)
	}
	h.e.Wait()
}

// advance moves the clock one deadline at a time so timers scheduled by
// earlier expiries still fire within d, in deadline order
func (h *harness) advance(d time.Duration) {
	h.t.Helper()
	target := h.clk.Now().Add(d)
	for {
		next, ok := h.clk.nextDue(target)
		if !ok {
			break
		}
		h.clk.Advance(next.Sub(h.clk.Now()))
		h.settle()
	}
	if rest := target.Sub(h.clk.Now()); rest > 0 {
		h.clk.Advance(rest)
	}
	h.settle()
}

// waitUntil polls cond on the loop. Use it instead of settle while a
// lookup is held open.
func (h *harness) waitUntil(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		ok := false
		h.e.do(func() { ok = cond() })
		if ok {
			return
		}
		if time.Now().After(deadline) {
			h.t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func (h *harness) connect(ids ...ConnID) {
	h.t.Helper()
	for _, id := range ids {
		h.e.Connect(id, "")
	}
	h.settle()
}

func (h *harness) start(id ConnID, userID string) {
	h.t.Helper()
	h.e.StartMatching(id, userID)
	h.settle()
}

func (h *harness) respond(id ConnID, userID, response string) {
	h.t.Helper()
	h.e.RespondToIntroduce(id, userID, response)
	h.settle()
}

// pair connects a and b, starts matching for both and returns once they
// have been introduced
func (h *harness) pair(a ConnID, userA string, b ConnID, userB string) {
	h.t.Helper()
	h.connect(a, b)
	h.start(a, userA)
	h.start(b, userB)
	if h.status(a) != StatusPending || h.status(b) != StatusPending {
		h.t.Fatalf("pair: statuses %s/%s, want pending", h.status(a), h.status(b))
	}
}

// session pairs a and b and has both accept
func (h *harness) session(a ConnID, userA string, b ConnID, userB string) {
	h.t.Helper()
	h.pair(a, userA, b, userB)
	h.respond(a, userA, "accept")
	h.respond(b, userB, "accept")
	if h.status(a) != StatusMatched || h.status(b) != StatusMatched {
		h.t.Fatalf("session: statuses %s/%s, want matched", h.status(a), h.status(b))
	}
}

type connState struct {
	exists        bool
	status        Status
	response      Response
	partnerConnID ConnID
	roomID        string
	hasTimer      bool
}

func (h *harness) conn(id ConnID) connState {
	var s connState
	h.e.do(func() {
		c := h.e.conns[id]
		if c == nil {
			return
		}
		s = connState{
			exists:        true,
			status:        c.status,
			response:      c.response,
			partnerConnID: c.partnerConnID,
			roomID:        c.roomID,
			hasTimer:      c.timer != nil,
		}
	})
	return s
}

func (h *harness) status(id ConnID) Status {
	return h.conn(id).status
}

func (h *harness) inWaiting(userID string) bool {
	var ok bool
	h.e.do(func() { ok = h.e.waiting.Has(userID) })
	return ok
}

func (h *harness) inPending(userID string) bool {
	var ok bool
	h.e.do(func() { ok = h.e.pending.Has(userID) })
	return ok
}

func (h *harness) matchLogs(status models.MatchStatus) int {
	n := 0
	for _, l := range h.mem.MatchLogs() {
		if l.Status == status {
			n++
		}
	}
	return n
}

// checkInvariants verifies the pool and partner invariants on the loop
func (h *harness) checkInvariants() {
	h.t.Helper()
	var problems []string
	h.e.do(func() {
		for _, userID := range h.e.waiting.Keys() {
			if h.e.pending.Has(userID) {
				problems = append(problems, "user "+userID+" in both pools")
			}
		}
		for _, userID := range h.e.waiting.Keys() {
			id, _ := h.e.waiting.Get(userID)
			if c := h.e.conns[id]; c == nil || c.status != StatusWaiting {
				problems = append(problems, "waiting pool holds "+userID+" on a connection that is not waiting")
			}
		}
		for _, userID := range h.e.pending.Keys() {
			id, _ := h.e.pending.Get(userID)
			c := h.e.conns[id]
			if c == nil {
				problems = append(problems, "pending pool points at a dead connection")
				continue
			}
			if c.status != StatusPending && c.status != StatusMatched {
				problems = append(problems, "pending pool holds a "+c.status.String()+" connection")
			}
		}
		for _, c := range h.e.conns {
			if c.status == StatusIdle && (c.partnerConnID != "" || c.roomID != "" || c.timer != nil) {
				problems = append(problems, "idle connection "+string(c.ID)+" has stale fields")
			}
			if (c.status == StatusPending || c.status == StatusMatched) && h.e.partnerOf(c) == nil {
				problems = append(problems, "connection "+string(c.ID)+" is "+c.status.String()+" without a partner")
			}
			if c.status == StatusMatched {
				if pair, ok := h.e.rooms[c.roomID]; !ok || (pair[0] != c.ID && pair[1] != c.ID) {
					problems = append(problems, "matched connection "+string(c.ID)+" has no room")
				}
			}
			if c.partnerConnID == "" {
				continue
			}
			if p := h.e.conns[c.partnerConnID]; p != nil && p.partnerConnID != c.ID {
				problems = append(problems, "asymmetric partner link on "+string(c.ID))
			}
		}
	})
	for _, p := range problems {
		h.t.Error(p)
	}
}
