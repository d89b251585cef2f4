package matching

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

type SignalKind string

const (
	SignalOffer  SignalKind = "offer"
	SignalAnswer SignalKind = "answer"
	SignalIce    SignalKind = "ice"
)

var errEmptySignal = errors.New("empty signal")

// Relay forwards a WebRTC message to the partner of a matched connection.
// roomName is optional; when set it must name the sender's room.
func (e *Engine) Relay(id ConnID, kind SignalKind, payload json.RawMessage, roomName string) {
	e.submit(func() { e.relay(id, kind, payload, roomName) })
}

func (e *Engine) relay(id ConnID, kind SignalKind, payload json.RawMessage, roomName string) {
	c := e.conns[id]
	if c == nil {
		return
	}
	p := e.partnerOf(c)
	if p == nil || c.status != StatusMatched || c.roomID == "" || p.roomID != c.roomID {
		e.metrics.signal(kind, false)
		e.log.Debug("signal outside a session dropped", "conn", id, "kind", kind, "status", c.status.String())
		return
	}
	if roomName != "" && roomName != c.roomID {
		e.metrics.signal(kind, false)
		e.log.Warn("signal for another room dropped", "conn", id, "kind", kind, "room", roomName)
		return
	}
	if err := validateSignal(kind, payload); err != nil {
		e.metrics.signal(kind, false)
		e.log.Warn("malformed signal dropped", "conn", id, "kind", kind, "error", err)
		return
	}

	switch kind {
	case SignalOffer:
		e.emit(p.ID, EventOffer, OfferSignal{Offer: payload, RoomName: c.roomID})
	case SignalAnswer:
		e.emit(p.ID, EventAnswer, AnswerSignal{Answer: payload})
	case SignalIce:
		e.emit(p.ID, EventIce, IceSignal{Ice: payload})
		e.armSessionTimer(c, p)
	}
	e.metrics.signal(kind, true)
}

// validateSignal checks that payload has the shape of the WebRTC message
// it claims to be. The payload itself is forwarded untouched.
func validateSignal(kind SignalKind, payload json.RawMessage) error {
	if len(payload) == 0 || string(payload) == "null" {
		return errEmptySignal
	}

	switch kind {
	case SignalOffer, SignalAnswer:
		var desc webrtc.SessionDescription
		if err := json.Unmarshal(payload, &desc); err != nil {
			return fmt.Errorf("decode session description: %w", err)
		}
		want := webrtc.SDPTypeOffer
		if kind == SignalAnswer {
			want = webrtc.SDPTypeAnswer
		}
		if desc.Type != want {
			return fmt.Errorf("session description type %q, want %q", desc.Type, want)
		}
		if _, err := desc.Unmarshal(); err != nil {
			return fmt.Errorf("parse sdp: %w", err)
		}
	case SignalIce:
		// An empty candidate marks the end of gathering and is forwarded.
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(payload, &candidate); err != nil {
			return fmt.Errorf("decode ice candidate: %w", err)
		}
	default:
		return fmt.Errorf("unknown signal kind %q", kind)
	}
	return nil
}
