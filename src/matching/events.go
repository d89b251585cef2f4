package matching

import (
	"encoding/json"

	"github.com/haze-team/haze-server/src/models"
)

// Client to server
const (
	EventStartMatching          = "start_matching"
	EventCancelMatching         = "cancel_matching"
	EventRespondToIntroduce     = "respond_to_introduce"
	EventLeaveWebchat           = "leave_webchat"
	EventRespondFaceRecognition = "respond_face_recognition"
	EventReportUser             = "report_user"
)

// Server to client
const (
	EventNotIdle                      = "not_idle"
	EventNotWaiting                   = "not_waiting"
	EventIntroduceEachUser            = "introduce_each_user"
	EventMatchResult                  = "match_result"
	EventInvalidRespondToIntroduce    = "invalid_respond_to_introduce"
	EventRestartMatchingRequest       = "restart_matching_request"
	EventPartnerDisconnected          = "partner_disconnected"
	EventWebchatEnded                 = "webchat_ended"
	EventWebchatTimeout               = "webchat_timeout"
	EventAlreadyRequested             = "already_requested"
	EventRespondIsTooLate             = "respond_is_too_late"
	EventPerformFaceRecognition       = "perform_face_recognition"
	EventFaceRecognitionRequestDenied = "face_recognition_request_denied"
	EventOnlineUsers                  = "online_users"
	EventMatchingFailed               = "matching_failed"
)

// Sent in both directions
const (
	EventRequestFaceRecognition = "request_face_recognition"
	EventOffer                  = "offer"
	EventAnswer                 = "answer"
	EventIce                    = "ice"
)

// PartnerInfo is what one side of an introduction sees of the other
type PartnerInfo struct {
	ID         string         `json:"id"`
	Gender     models.Gender  `json:"gender"`
	Interests  []string       `json:"interests"`
	Purpose    models.Purpose `json:"purpose"`
	Nickname   string         `json:"nickname"`
	Location   string         `json:"location"`
	ProfileURL string         `json:"profileUrl"`
}

func newPartnerInfo(user *models.User, profileURL string) PartnerInfo {
	return PartnerInfo{
		ID:         user.ID,
		Gender:     user.Gender,
		Interests:  user.Interests,
		Purpose:    user.Purpose,
		Nickname:   user.Nickname,
		Location:   user.Location,
		ProfileURL: profileURL,
	}
}

type MatchResult struct {
	Result    bool   `json:"result"`
	Initiator bool   `json:"initiator,omitempty"`
	RoomName  string `json:"roomName,omitempty"`
}

// OnlineUsers counts live connections and lists the distinct users they
// act for. Anonymous connections that never named a user are counted only.
type OnlineUsers struct {
	Count int      `json:"count"`
	Users []string `json:"users"`
}

type MatchingFailed struct {
	Reason string `json:"reason"`
}

type OfferSignal struct {
	Offer    json.RawMessage `json:"offer"`
	RoomName string          `json:"roomName,omitempty"`
}

type AnswerSignal struct {
	Answer json.RawMessage `json:"answer"`
}

type IceSignal struct {
	Ice json.RawMessage `json:"ice"`
}
