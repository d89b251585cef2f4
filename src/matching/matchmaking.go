package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/haze-team/haze-server/src/models"
)

type candidate struct {
	connID ConnID
	userID string
}

type scanResult struct {
	me          *models.User
	partner     *models.User
	partnerConn ConnID
	// rejected holds the candidates looked at before the chosen one
	rejected []ConnID
	err      error
}

type introLookup struct {
	mine, theirs    PartnerInfo
	myErr, theirErr error
}

// StartMatching puts an idle connection into matchmaking
func (e *Engine) StartMatching(id ConnID, userID string) {
	e.submit(func() { e.startMatching(id, userID) })
}

func (e *Engine) startMatching(id ConnID, claimed string) {
	c := e.conns[id]
	if c == nil {
		return
	}
	userID := c.identity(claimed)

	if c.status != StatusIdle {
		e.emit(c.ID, EventNotIdle, nil)
		e.activity("user %s (connection %s) tried to start matching while %s", userID, id, c.status)
		return
	}
	if userID == "" {
		e.emit(c.ID, EventMatchingFailed, MatchingFailed{Reason: ReasonMissingUserID})
		return
	}
	if owner, ok := e.pending.Get(userID); ok && owner != id {
		e.emit(c.ID, EventNotIdle, nil)
		e.activity("user %s tried to start matching on %s while introduced on %s", userID, id, owner)
		return
	}

	e.supersede(userID, id)
	if c.userID != userID {
		c.userID = userID
		e.broadcastOnlineUsers()
	}
	c.toWaiting(newID())
	e.activity("user %s (connection %s) started matching", userID, id)
	e.search(c, nil)
}

// supersede drops older waiting connections of the same user so one
// identity is never in matchmaking twice
func (e *Engine) supersede(userID string, keep ConnID) {
	for _, other := range e.conns {
		if other.ID == keep || other.userID != userID || other.status != StatusWaiting {
			continue
		}
		e.waiting.Remove(userID, other.ID)
		other.toIdle()
		e.emit(other.ID, EventMatchingFailed, MatchingFailed{Reason: ReasonDuplicateSession})
		e.log.Info("superseded waiting connection", "user", userID, "old", other.ID, "new", keep)
	}
}

// search scans the waiting pool for c. checked holds candidates an
// earlier pass of the same attempt already rejected.
func (e *Engine) search(c *Connection, checked map[ConnID]bool) {
	if checked == nil {
		checked = make(map[ConnID]bool)
	}
	candidates := e.candidatesFor(c, checked)
	attempt := c.pairingID
	userID := c.userID

	await(e, func(ctx context.Context) scanResult {
		return e.scan(ctx, userID, candidates)
	}, func(res scanResult) {
		e.finishSearch(c.ID, attempt, checked, res)
	})
}

// candidatesFor snapshots the waiting pool in insertion order, skipping
// the caller's own identity and entries that are not waiting
func (e *Engine) candidatesFor(c *Connection, checked map[ConnID]bool) []candidate {
	var out []candidate
	e.waiting.Each(func(userID string, id ConnID) bool {
		if userID == c.userID || id == c.ID || checked[id] {
			return true
		}
		if other := e.conns[id]; other == nil || other.status != StatusWaiting {
			return true
		}
		out = append(out, candidate{connID: id, userID: userID})
		return true
	})
	return out
}

// scan runs off the loop. It returns the first candidate neither side
// has blocked.
func (e *Engine) scan(ctx context.Context, userID string, candidates []candidate) scanResult {
	me, err := e.deps.Users.FindByID(ctx, userID)
	if err != nil {
		return scanResult{err: fmt.Errorf("resolve %s: %w", userID, err)}
	}
	myBlocks, err := e.findBlockLog(ctx, userID)
	if err != nil {
		return scanResult{err: err}
	}

	res := scanResult{me: me}
	for _, cand := range candidates {
		theirBlocks, err := e.findBlockLog(ctx, cand.userID)
		if err != nil {
			e.log.Warn("skipping candidate", "user", cand.userID, "error", err)
			res.rejected = append(res.rejected, cand.connID)
			continue
		}
		if myBlocks.Blocks(cand.userID) || theirBlocks.Blocks(userID) {
			res.rejected = append(res.rejected, cand.connID)
			continue
		}
		partner, err := e.deps.Users.FindByID(ctx, cand.userID)
		if err != nil {
			e.log.Warn("skipping candidate", "user", cand.userID, "error", err)
			res.rejected = append(res.rejected, cand.connID)
			continue
		}
		res.partner = partner
		res.partnerConn = cand.connID
		return res
	}
	return res
}

func (e *Engine) findBlockLog(ctx context.Context, userID string) (*models.BlockLog, error) {
	blockLog, err := e.deps.BlockLogs.FindByUserID(ctx, userID)
	if errors.Is(err, models.ErrBlockLogNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("block log of %s: %w", userID, err)
	}
	return blockLog, nil
}

func (e *Engine) finishSearch(id ConnID, attempt string, checked map[ConnID]bool, res scanResult) {
	c := e.conns[id]
	if c == nil || c.status != StatusWaiting || c.pairingID != attempt {
		return
	}
	if res.err != nil {
		e.fail(c, res.err)
		return
	}
	for _, rejected := range res.rejected {
		checked[rejected] = true
	}

	if res.partner == nil {
		// Users who joined the pool during the lookup were not scanned.
		if len(e.candidatesFor(c, checked)) > 0 {
			e.search(c, checked)
			return
		}
		e.enqueue(c)
		return
	}

	partner := e.conns[res.partnerConn]
	owner, inPool := e.waiting.Get(res.partner.ID)
	if partner == nil || partner.status != StatusWaiting || !inPool || owner != partner.ID {
		checked[res.partnerConn] = true
		e.search(c, checked)
		return
	}
	e.introduceUsers(c, partner, res.me, res.partner)
}

// enqueue parks c in the waiting pool
func (e *Engine) enqueue(c *Connection) {
	if owner, ok := e.pending.Get(c.userID); ok && owner != c.ID {
		c.toIdle()
		e.emit(c.ID, EventNotIdle, nil)
		return
	}
	if owner, ok := e.waiting.Get(c.userID); ok && owner != c.ID {
		if old := e.conns[owner]; old != nil {
			old.toIdle()
			e.emit(old.ID, EventMatchingFailed, MatchingFailed{Reason: ReasonDuplicateSession})
		}
		e.waiting.Delete(c.userID)
	}
	e.waiting.Set(c.userID, c.ID)
	e.activity("user %s (connection %s) found no partner and joined the waiting pool", c.userID, c.ID)
}

// fail aborts the matching attempt of c and tells its client why
func (e *Engine) fail(c *Connection, err error) {
	reason := failureReason(err)
	e.log.Warn("matching aborted", "conn", c.ID, "user", c.userID, "reason", reason, "error", err)
	e.waiting.Remove(c.userID, c.ID)
	c.toIdle()
	e.emit(c.ID, EventMatchingFailed, MatchingFailed{Reason: reason})
}

// release returns a claimed partner to matchmaking under a fresh attempt
func (e *Engine) release(c *Connection) {
	c.pairingID = newID()
	e.search(c, nil)
}

// introduceUsers claims partner for c and loads both profiles. The pair
// is only linked once the lookups are back and both are still waiting.
func (e *Engine) introduceUsers(c, partner *Connection, me, them *models.User) {
	c.cancelTimer()
	partner.cancelTimer()
	e.waiting.Remove(partner.userID, partner.ID)

	pairing := c.pairingID
	partner.pairingID = pairing

	await(e, func(ctx context.Context) introLookup {
		var r introLookup
		r.mine, r.myErr = e.profile(ctx, me)
		r.theirs, r.theirErr = e.profile(ctx, them)
		return r
	}, func(r introLookup) {
		e.finishIntroduce(c.ID, partner.ID, pairing, r)
	})
}

func (e *Engine) profile(ctx context.Context, user *models.User) (PartnerInfo, error) {
	images, err := e.deps.Images.FindByUserID(ctx, user.ID)
	if err != nil {
		return PartnerInfo{}, fmt.Errorf("images of %s: %w", user.ID, err)
	}
	url, err := e.deps.ProfileURLs.ProfileURL(ctx, images)
	if err != nil {
		return PartnerInfo{}, fmt.Errorf("profile url of %s: %w", user.ID, err)
	}
	return newPartnerInfo(user, url), nil
}

func (e *Engine) finishIntroduce(myID, partnerID ConnID, pairing string, r introLookup) {
	c := e.conns[myID]
	p := e.conns[partnerID]
	cOK := c != nil && c.status == StatusWaiting && c.pairingID == pairing
	pOK := p != nil && p.status == StatusWaiting && p.pairingID == pairing

	switch {
	case !cOK && !pOK:
		return
	case !cOK:
		e.release(p)
		return
	case !pOK:
		e.search(c, nil)
		return
	}

	if r.myErr != nil {
		e.fail(c, r.myErr)
		e.release(p)
		return
	}
	if r.theirErr != nil {
		e.fail(p, r.theirErr)
		e.search(c, nil)
		return
	}
	if owner, ok := e.pending.Get(c.userID); ok && owner != c.ID {
		c.toIdle()
		e.emit(c.ID, EventNotIdle, nil)
		e.release(p)
		return
	}

	e.waiting.Remove(c.userID, c.ID)
	e.waiting.Remove(p.userID, p.ID)
	e.pending.Set(c.userID, c.ID)
	e.pending.Set(p.userID, p.ID)

	c.toPending(p, pairing)
	p.toPending(c, pairing)

	e.emit(c.ID, EventIntroduceEachUser, r.theirs)
	e.emit(p.ID, EventIntroduceEachUser, r.mine)

	e.recordMatch(models.MatchStatusPending, c.userID, p.userID)
	e.metrics.introduced()
	e.activity("user %s (%s) and user %s (%s) were introduced", p.userID, r.theirs.Nickname, c.userID, r.mine.Nickname)

	timer := e.after(e.cfg.IntroduceTimeout, func() {
		e.handleMatchingTimeout(myID, partnerID, pairing)
	})
	c.armTimer(timer)
	p.armTimer(timer)
}

// handleMatchingTimeout expires an unanswered introduction. It does
// nothing unless both sides are still pending in the same pairing.
func (e *Engine) handleMatchingTimeout(myID, partnerID ConnID, pairing string) {
	c := e.conns[myID]
	p := e.conns[partnerID]
	if c == nil || p == nil {
		return
	}
	if c.status != StatusPending || p.status != StatusPending {
		return
	}
	if c.pairingID != pairing || p.pairingID != pairing {
		return
	}
	e.dissolve(c, p, models.MatchStatusExpired, EventMatchResult, MatchResult{Result: false})
	e.activity("introduction of user %s and user %s expired", c.userID, p.userID)
}

// RespondToIntroduce records an accept or decline for the pending pair
func (e *Engine) RespondToIntroduce(id ConnID, userID, response string) {
	e.submit(func() { e.respondToIntroduce(id, ParseResponse(response)) })
}

func (e *Engine) respondToIntroduce(id ConnID, response Response) {
	c := e.conns[id]
	if c == nil {
		return
	}
	p := e.partnerOf(c)
	if p == nil {
		e.emit(c.ID, EventInvalidRespondToIntroduce, nil)
		return
	}
	if c.status == StatusMatched && p.status == StatusMatched {
		return
	}
	if c.status != StatusPending || p.status != StatusPending {
		e.log.Debug("late response ignored", "conn", id, "status", c.status.String())
		return
	}

	if response != ResponseAccept {
		e.dissolve(c, p, models.MatchStatusDeclined, EventMatchResult, MatchResult{Result: false})
		e.activity("user %s declined user %s", c.userID, p.userID)
		return
	}

	c.response = ResponseAccept
	if p.response != ResponseAccept {
		return
	}
	e.promote(c, p)
}

// promote turns a mutually accepted introduction into a session. me is
// the side that accepted second and opens the WebRTC offer.
func (e *Engine) promote(me, partner *Connection) {
	room := fmt.Sprintf("room-%s-%s", partner.userID, me.userID)

	e.pending.Remove(me.userID, me.ID)
	e.pending.Remove(partner.userID, partner.ID)

	me.toMatched(room)
	partner.toMatched(room)
	e.rooms[room] = [2]ConnID{me.ID, partner.ID}

	e.emit(me.ID, EventMatchResult, MatchResult{Result: true, Initiator: true, RoomName: room})
	e.emit(partner.ID, EventMatchResult, MatchResult{Result: true, RoomName: room})

	e.recordMatch(models.MatchStatusMatched, me.userID, partner.userID)
	e.activity("user %s and user %s matched in %s", me.userID, partner.userID, room)

	e.armSessionTimer(me, partner)
}

// CancelMatching takes a waiting connection out of matchmaking
func (e *Engine) CancelMatching(id ConnID, userID string) {
	e.submit(func() { e.cancelMatching(id) })
}

func (e *Engine) cancelMatching(id ConnID) {
	c := e.conns[id]
	if c == nil {
		return
	}
	if c.status != StatusWaiting {
		e.emit(c.ID, EventNotWaiting, nil)
		e.activity("user %s (connection %s) tried to cancel matching while %s", c.userID, id, c.status)
		return
	}
	e.waiting.Remove(c.userID, c.ID)
	c.toIdle()
	e.activity("user %s (connection %s) cancelled matching", c.userID, id)
}

// dissolve ends the pairing of first and second, notifies both and
// prompts them to match again. first is the side whose action ended it.
func (e *Engine) dissolve(first, second *Connection, status models.MatchStatus, event string, data any) {
	firstUser, secondUser := first.userID, second.userID

	e.pending.Remove(firstUser, first.ID)
	e.pending.Remove(secondUser, second.ID)
	e.leaveRoom(first.roomID)
	e.leaveRoom(second.roomID)

	first.toIdle()
	second.toIdle()

	e.emit(first.ID, event, data)
	e.emit(second.ID, event, data)

	e.recordMatch(status, firstUser, secondUser)
	e.promptRematch(first.ID, second.ID)
}

// promptRematch nudges both sides to start matching again, staggered so
// they do not collide on the next attempt
func (e *Engine) promptRematch(first, second ConnID) {
	e.after(e.cfg.RematchDelayFirst, func() { e.sendRematch(first) })
	e.after(e.cfg.RematchDelaySecond, func() { e.sendRematch(second) })
}

func (e *Engine) sendRematch(id ConnID) {
	c := e.conns[id]
	if c == nil || c.status != StatusIdle {
		return
	}
	e.emit(id, EventRestartMatchingRequest, nil)
}
