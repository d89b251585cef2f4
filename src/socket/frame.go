// Package socket carries the realtime contract over WebSocket. Every
// message in either direction is a JSON frame {"event": ..., "data": ...}.
package socket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

const maxFrameBytes = 1 << 20

var errEmptyEvent = errors.New("frame has no event")

type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode builds an outbound frame. A nil data omits the data field.
func Encode(event string, data any) ([]byte, error) {
	frame := Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		frame.Data = raw
	}
	return json.Marshal(frame)
}

func Decode(raw []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if frame.Event == "" {
		return Frame{}, errEmptyEvent
	}
	return frame, nil
}

// userPayload is the body of every event that names the acting user.
// Older clients send the user id as a bare JSON string.
type userPayload struct {
	UserID       string     `json:"userId"`
	Response     string     `json:"response"`
	TargetID     string     `json:"targetId"`
	ReceivedTime clientTime `json:"receivedTime"`
}

func decodeUserPayload(data json.RawMessage) (userPayload, error) {
	var p userPayload
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return p, nil
	}
	if data[0] == '"' {
		err := json.Unmarshal(data, &p.UserID)
		return p, err
	}
	err := json.Unmarshal(data, &p)
	return p, err
}

// signalPayload wraps an offer, answer or ice message. Only the field
// named after the event is set.
type signalPayload struct {
	Offer    json.RawMessage `json:"offer"`
	Answer   json.RawMessage `json:"answer"`
	Ice      json.RawMessage `json:"ice"`
	RoomName string          `json:"roomName"`
}

// clientTime accepts a unix time in milliseconds or an RFC 3339 string
type clientTime struct {
	time.Time
}

func (t *clientTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms)
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("receivedTime: %w", err)
		}
		t.Time = parsed
		return nil
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("receivedTime: %w", err)
	}
	t.Time = time.UnixMilli(int64(ms))
	return nil
}
