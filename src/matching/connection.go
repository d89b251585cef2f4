package matching

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// ConnID identifies one live realtime connection
type ConnID string

type Status int

const (
	StatusIdle Status = iota
	StatusWaiting
	StatusPending
	StatusMatched
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusWaiting:
		return "waiting"
	case StatusPending:
		return "pending"
	case StatusMatched:
		return "matched"
	}
	return "unknown"
}

type Response int

const (
	ResponseUnset Response = iota
	ResponseAccept
	ResponseDecline
)

// ParseResponse maps a client answer to a Response. Anything other than
// "accept" is a decline.
func ParseResponse(s string) Response {
	if s == "accept" {
		return ResponseAccept
	}
	return ResponseDecline
}

// Connection is the engine's record of one client session. It is only
// touched from the engine loop.
type Connection struct {
	ID ConnID
	// AuthUserID is the identity proven at connect time, empty for
	// anonymous sockets.
	AuthUserID string

	userID        string
	status        Status
	response      Response
	partnerConnID ConnID
	partnerUserID string
	roomID        string
	pairingID     string
	timer         clockwork.Timer

	faceRecognitionRequested bool
	faceRequestedAt          time.Time

	connectedAt time.Time
}

func newConnection(id ConnID, authUserID string, now time.Time) *Connection {
	return &Connection{
		ID:          id,
		AuthUserID:  authUserID,
		userID:      authUserID,
		connectedAt: now,
	}
}

// identity returns the user the connection acts for. An authenticated
// socket always acts for its own user whatever the event claims.
func (c *Connection) identity(claimed string) string {
	if c.AuthUserID != "" {
		return c.AuthUserID
	}
	return claimed
}

func (c *Connection) toIdle() {
	c.cancelTimer()
	c.status = StatusIdle
	c.response = ResponseUnset
	c.partnerConnID = ""
	c.partnerUserID = ""
	c.roomID = ""
	c.pairingID = ""
}

// toWaiting starts a new matching attempt identified by attempt. The face
// recognition flag belongs to a pairing and is reset here.
func (c *Connection) toWaiting(attempt string) {
	c.toIdle()
	c.status = StatusWaiting
	c.pairingID = attempt
	c.faceRecognitionRequested = false
	c.faceRequestedAt = time.Time{}
}

func (c *Connection) toPending(partner *Connection, pairingID string) {
	c.cancelTimer()
	c.status = StatusPending
	c.response = ResponseUnset
	c.partnerConnID = partner.ID
	c.partnerUserID = partner.userID
	c.roomID = ""
	c.pairingID = pairingID
}

func (c *Connection) toMatched(roomID string) {
	c.cancelTimer()
	c.status = StatusMatched
	c.response = ResponseUnset
	c.roomID = roomID
}

// armTimer replaces the current timer. Both sides of a pair share one
// timer, so stopping it from either side stops it for both.
func (c *Connection) armTimer(t clockwork.Timer) {
	c.cancelTimer()
	c.timer = t
}

func (c *Connection) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Connection) Status() Status {
	return c.status
}
