package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/haze-team/haze-server/src/matching"
)

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrBadPayload   = errors.New("malformed payload")
)

// Engine is the part of the matching engine driven by client frames
type Engine interface {
	Connect(id matching.ConnID, authUserID string)
	Disconnect(id matching.ConnID)
	StartMatching(id matching.ConnID, userID string)
	CancelMatching(id matching.ConnID, userID string)
	RespondToIntroduce(id matching.ConnID, userID, response string)
	LeaveWebchat(id matching.ConnID, userID string)
	RequestFaceRecognition(id matching.ConnID, userID string)
	RespondFaceRecognition(id matching.ConnID, userID, response string, receivedTime time.Time)
	ReportUser(id matching.ConnID, userID, targetID string)
	Relay(id matching.ConnID, kind matching.SignalKind, payload json.RawMessage, roomName string)
}

// Dispatch decodes one inbound frame and hands it to the engine
func Dispatch(engine Engine, id matching.ConnID, frame Frame) error {
	switch frame.Event {
	case matching.EventOffer, matching.EventAnswer, matching.EventIce:
		return dispatchSignal(engine, id, frame)
	}

	p, err := decodeUserPayload(frame.Data)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", frame.Event, ErrBadPayload, err)
	}

	switch frame.Event {
	case matching.EventStartMatching:
		engine.StartMatching(id, p.UserID)
	case matching.EventCancelMatching:
		engine.CancelMatching(id, p.UserID)
	case matching.EventRespondToIntroduce:
		engine.RespondToIntroduce(id, p.UserID, p.Response)
	case matching.EventLeaveWebchat:
		engine.LeaveWebchat(id, p.UserID)
	case matching.EventRequestFaceRecognition:
		engine.RequestFaceRecognition(id, p.UserID)
	case matching.EventRespondFaceRecognition:
		engine.RespondFaceRecognition(id, p.UserID, p.Response, p.ReceivedTime.Time)
	case matching.EventReportUser:
		engine.ReportUser(id, p.UserID, p.TargetID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
	}
	return nil
}

func dispatchSignal(engine Engine, id matching.ConnID, frame Frame) error {
	var p signalPayload
	if err := json.Unmarshal(frame.Data, &p); err != nil {
		return fmt.Errorf("%s: %w: %v", frame.Event, ErrBadPayload, err)
	}

	var payload json.RawMessage
	switch matching.SignalKind(frame.Event) {
	case matching.SignalOffer:
		payload = p.Offer
	case matching.SignalAnswer:
		payload = p.Answer
	case matching.SignalIce:
		payload = p.Ice
	}
	if len(payload) == 0 {
		return fmt.Errorf("%s: %w: missing %s", frame.Event, ErrBadPayload, frame.Event)
	}
	engine.Relay(id, matching.SignalKind(frame.Event), payload, p.RoomName)
	return nil
}
