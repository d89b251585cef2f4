package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BlockLog struct {
	MongoID      primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	UserID       string             `json:"userId" bson:"userId"`
	BlockUserIDs []string           `json:"blockUserIds" bson:"blockUserIds"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Blocks reports whether the owner of the log has blocked userID
func (b *BlockLog) Blocks(userID string) bool {
	if b == nil {
		return false
	}
	return slices.Contains(b.BlockUserIDs, userID)
}

type MatchLog struct {
	MongoID   primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	ID        string             `json:"id" bson:"id"`
	UserIDs   []string           `json:"userIds" bson:"userIds"`
	Status    MatchStatus        `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusDeclined  MatchStatus = "declined"
	MatchStatusExpired   MatchStatus = "expired"
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusReported  MatchStatus = "reported"
	MatchStatusCanceled  MatchStatus = "canceled"
	MatchStatusCompleted MatchStatus = "completed"
)

// MatchStatuses lists every status a match log may carry
var MatchStatuses = []MatchStatus{
	MatchStatusPending,
	MatchStatusDeclined,
	MatchStatusExpired,
	MatchStatusMatched,
	MatchStatusReported,
	MatchStatusCanceled,
	MatchStatusCompleted,
}

// Valid reports whether s is a known match status
func (s MatchStatus) Valid() bool {
	return slices.Contains(MatchStatuses, s)
}

// Log is a free-text activity record
type Log struct {
	MongoID   primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Content   string             `json:"content" bson:"content"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}
