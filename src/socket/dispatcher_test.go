package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/haze-team/haze-server/src/matching"
)

type call struct {
	method   string
	id       matching.ConnID
	userID   string
	arg      string
	when     time.Time
	payload  string
	roomName string
}

type fakeEngine struct {
	calls []call
}

func (f *fakeEngine) record(c call) { f.calls = append(f.calls, c) }

func (f *fakeEngine) Connect(id matching.ConnID, authUserID string) {
	f.record(call{method: "Connect", id: id, userID: authUserID})
}
func (f *fakeEngine) Disconnect(id matching.ConnID) {
	f.record(call{method: "Disconnect", id: id})
}
func (f *fakeEngine) StartMatching(id matching.ConnID, userID string) {
	f.record(call{method: "StartMatching", id: id, userID: userID})
}
func (f *fakeEngine) CancelMatching(id matching.ConnID, userID string) {
	f.record(call{method: "CancelMatching", id: id, userID: userID})
}
func (f *fakeEngine) RespondToIntroduce(id matching.ConnID, userID, response string) {
	f.record(call{method: "RespondToIntroduce", id: id, userID: userID, arg: response})
}
func (f *fakeEngine) LeaveWebchat(id matching.ConnID, userID string) {
	f.record(call{method: "LeaveWebchat", id: id, userID: userID})
}
func (f *fakeEngine) RequestFaceRecognition(id matching.ConnID, userID string) {
	f.record(call{method: "RequestFaceRecognition", id: id, userID: userID})
}
func (f *fakeEngine) RespondFaceRecognition(id matching.ConnID, userID, response string, receivedTime time.Time) {
	f.record(call{method: "RespondFaceRecognition", id: id, userID: userID, arg: response, when: receivedTime})
}
func (f *fakeEngine) ReportUser(id matching.ConnID, userID, targetID string) {
	f.record(call{method: "ReportUser", id: id, userID: userID, arg: targetID})
}
func (f *fakeEngine) Relay(id matching.ConnID, kind matching.SignalKind, payload json.RawMessage, roomName string) {
	f.record(call{method: "Relay", id: id, arg: string(kind), payload: string(payload), roomName: roomName})
}

func TestDispatch(t *testing.T) {
	received := time.Date(2024, 3, 1, 20, 0, 5, 0, time.UTC)
	tests := []struct {
		name  string
		frame string
		want  call
	}{
		{
			name:  "start matching",
			frame: `{"event":"start_matching","data":{"userId":"u1"}}`,
			want:  call{method: "StartMatching", id: "c1", userID: "u1"},
		},
		{
			name:  "bare user id",
			frame: `{"event":"start_matching","data":"u1"}`,
			want:  call{method: "StartMatching", id: "c1", userID: "u1"},
		},
		{
			name:  "no payload",
			frame: `{"event":"cancel_matching"}`,
			want:  call{method: "CancelMatching", id: "c1"},
		},
		{
			name:  "respond to introduce",
			frame: `{"event":"respond_to_introduce","data":{"userId":"u1","response":"accept"}}`,
			want:  call{method: "RespondToIntroduce", id: "c1", userID: "u1", arg: "accept"},
		},
		{
			name:  "leave webchat",
			frame: `{"event":"leave_webchat","data":{"userId":"u1"}}`,
			want:  call{method: "LeaveWebchat", id: "c1", userID: "u1"},
		},
		{
			name:  "request face recognition",
			frame: `{"event":"request_face_recognition","data":{"userId":"u1"}}`,
			want:  call{method: "RequestFaceRecognition", id: "c1", userID: "u1"},
		},
		{
			name:  "respond face recognition with millis",
			frame: fmt.Sprintf(`{"event":"respond_face_recognition","data":{"userId":"u1","response":"accept","receivedTime":%d}}`, received.UnixMilli()),
			want:  call{method: "RespondFaceRecognition", id: "c1", userID: "u1", arg: "accept", when: received},
		},
		{
			name:  "respond face recognition with rfc3339",
			frame: `{"event":"respond_face_recognition","data":{"userId":"u1","response":"decline","receivedTime":"2024-03-01T20:00:05Z"}}`,
			want:  call{method: "RespondFaceRecognition", id: "c1", userID: "u1", arg: "decline", when: received},
		},
		{
			name:  "report user",
			frame: `{"event":"report_user","data":{"userId":"u1","targetId":"u2"}}`,
			want:  call{method: "ReportUser", id: "c1", userID: "u1", arg: "u2"},
		},
		{
			name:  "offer",
			frame: `{"event":"offer","data":{"offer":{"type":"offer","sdp":"v=0"},"roomName":"room-a-b"}}`,
			want:  call{method: "Relay", id: "c1", arg: "offer", payload: `{"type":"offer","sdp":"v=0"}`, roomName: "room-a-b"},
		},
		{
			name:  "ice",
			frame: `{"event":"ice","data":{"ice":{"candidate":"c","sdpMid":"0"}}}`,
			want:  call{method: "Relay", id: "c1", arg: "ice", payload: `{"candidate":"c","sdpMid":"0"}`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Decode([]byte(tt.frame))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			engine := &fakeEngine{}
			if err := Dispatch(engine, "c1", frame); err != nil {
				t.Fatalf("Dispatch() error = %v", err)
			}
			if len(engine.calls) != 1 {
				t.Fatalf("calls = %+v", engine.calls)
			}
			got := engine.calls[0]
			if !got.when.Equal(tt.want.when) {
				t.Errorf("time = %s, want %s", got.when, tt.want.when)
			}
			got.when, tt.want.when = time.Time{}, time.Time{}
			if got != tt.want {
				t.Errorf("call = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDispatchRejects(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  error
	}{
		{name: "unknown event", frame: Frame{Event: "hello"}, want: ErrUnknownEvent},
		{name: "payload not an object", frame: Frame{Event: "start_matching", Data: json.RawMessage(`[1]`)}, want: ErrBadPayload},
		{name: "offer without body", frame: Frame{Event: "offer", Data: json.RawMessage(`{"roomName":"r"}`)}, want: ErrBadPayload},
		{name: "answer with wrong key", frame: Frame{Event: "answer", Data: json.RawMessage(`{"offer":{}}`)}, want: ErrBadPayload},
		{name: "signal not json", frame: Frame{Event: "ice", Data: json.RawMessage(`nope`)}, want: ErrBadPayload},
		{name: "bad received time", frame: Frame{Event: "respond_face_recognition", Data: json.RawMessage(`{"receivedTime":"yesterday"}`)}, want: ErrBadPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{}
			err := Dispatch(engine, "c1", tt.frame)
			if !errors.Is(err, tt.want) {
				t.Errorf("Dispatch() error = %v, want %v", err, tt.want)
			}
			if len(engine.calls) != 0 {
				t.Errorf("engine was called: %+v", engine.calls)
			}
		})
	}
}
