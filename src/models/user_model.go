package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	MongoID   primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	ID        string             `json:"id" bson:"id"`
	Gender    Gender             `json:"gender" bson:"gender"`
	Nickname  string             `json:"nickname" bson:"nickname"`
	Birth     string             `json:"birth" bson:"birth"`
	Location  string             `json:"location" bson:"location"`
	Interests []string           `json:"interests" bson:"interests"`
	Purpose   Purpose            `json:"purpose" bson:"purpose"`
	Bans      []string           `json:"bans" bson:"bans"`
	Reported  int                `json:"reported" bson:"reported"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

type Purpose string

const (
	PurposeSeriousDating Purpose = "진지한연애"
	PurposeCoffee        Purpose = "커피한잔"
	PurposeCasualFriend  Purpose = "캐쥬얼한친구"
	PurposeDrink         Purpose = "술한잔"
)

// Images holds the uploaded profile images of a user; urls[0] is the profile picture
type Images struct {
	MongoID   primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	UserID    string             `json:"userId" bson:"userId"`
	Keys      []string           `json:"keys" bson:"keys"`
	URLs      []string           `json:"urls" bson:"urls"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}
