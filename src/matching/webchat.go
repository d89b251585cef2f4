package matching

import (
	"context"
	"time"

	"github.com/haze-team/haze-server/src/models"
)

// LeaveWebchat ends a live session at the request of one side
func (e *Engine) LeaveWebchat(id ConnID, userID string) {
	e.submit(func() { e.leaveWebchat(id) })
}

func (e *Engine) leaveWebchat(id ConnID) {
	c := e.conns[id]
	if c == nil {
		return
	}
	p := e.partnerOf(c)
	if p == nil || c.status != StatusMatched {
		e.log.Debug("leave_webchat without a session", "conn", id, "status", c.status.String())
		return
	}
	e.dissolve(c, p, models.MatchStatusCanceled, EventWebchatEnded, nil)
	e.activity("user %s and user %s ended their webchat", c.userID, p.userID)
}

// armSessionTimer (re)starts the inactivity timer shared by a live pair
func (e *Engine) armSessionTimer(c, p *Connection) {
	myID, partnerID, pairing := c.ID, p.ID, c.pairingID
	timer := e.after(e.cfg.WebchatTimeout, func() {
		e.handleWebchatTimeout(myID, partnerID, pairing)
	})
	c.armTimer(timer)
	p.armTimer(timer)
}

func (e *Engine) handleWebchatTimeout(myID, partnerID ConnID, pairing string) {
	c := e.conns[myID]
	p := e.conns[partnerID]
	if c == nil || p == nil {
		return
	}
	if c.status != StatusMatched || p.status != StatusMatched {
		return
	}
	if c.pairingID != pairing || p.pairingID != pairing {
		return
	}
	e.dissolve(c, p, models.MatchStatusCompleted, EventWebchatTimeout, nil)
	e.activity("webchat of user %s and user %s timed out", c.userID, p.userID)
}

// RequestFaceRecognition asks the partner of a live session to reveal faces
func (e *Engine) RequestFaceRecognition(id ConnID, userID string) {
	e.submit(func() { e.requestFaceRecognition(id) })
}

func (e *Engine) requestFaceRecognition(id ConnID) {
	c := e.conns[id]
	if c == nil {
		return
	}
	p := e.partnerOf(c)
	if p == nil || c.status != StatusMatched {
		return
	}
	if c.faceRecognitionRequested || p.faceRecognitionRequested {
		e.emit(c.ID, EventAlreadyRequested, nil)
		e.emit(p.ID, EventAlreadyRequested, nil)
		return
	}

	now := e.clock.Now()
	c.faceRecognitionRequested, c.faceRequestedAt = true, now
	p.faceRecognitionRequested, p.faceRequestedAt = true, now
	e.emit(p.ID, EventRequestFaceRecognition, nil)
}

// RespondFaceRecognition answers an outstanding face recognition request.
// receivedTime is the client's view of when the request arrived and is
// only used when the server has no record of the request.
func (e *Engine) RespondFaceRecognition(id ConnID, userID, response string, receivedTime time.Time) {
	e.submit(func() { e.respondFaceRecognition(id, ParseResponse(response), receivedTime) })
}

func (e *Engine) respondFaceRecognition(id ConnID, response Response, receivedTime time.Time) {
	c := e.conns[id]
	if c == nil {
		return
	}
	p := e.partnerOf(c)
	if p == nil || c.status != StatusMatched {
		return
	}

	requestedAt := c.faceRequestedAt
	if requestedAt.IsZero() {
		requestedAt = receivedTime
	}
	if requestedAt.IsZero() || !e.clock.Now().Before(requestedAt.Add(e.cfg.FaceRecognitionWindow)) {
		e.emit(c.ID, EventRespondIsTooLate, nil)
		e.emit(p.ID, EventRespondIsTooLate, nil)
		return
	}

	event := EventFaceRecognitionRequestDenied
	if response == ResponseAccept {
		event = EventPerformFaceRecognition
	}
	e.emit(c.ID, event, nil)
	e.emit(p.ID, event, nil)
}

// ReportUser reports targetID, or the current partner when targetID is empty
func (e *Engine) ReportUser(id ConnID, userID, targetID string) {
	e.submit(func() { e.reportUser(id, userID, targetID) })
}

func (e *Engine) reportUser(id ConnID, claimed, targetID string) {
	c := e.conns[id]
	if c == nil || e.deps.Reports == nil {
		return
	}
	reporter := c.identity(claimed)
	if reporter == "" {
		reporter = c.userID
	}
	if targetID == "" {
		targetID = c.partnerUserID
	}
	if reporter == "" || targetID == "" || reporter == targetID {
		e.log.Debug("report_user ignored", "conn", id, "reporter", reporter, "target", targetID)
		return
	}

	e.metrics.outcome(string(models.MatchStatusReported))
	e.spawn("report", func(ctx context.Context) error {
		return e.deps.Reports.ReportUser(ctx, reporter, targetID)
	})
	e.activity("user %s reported user %s", reporter, targetID)
}
