package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity types recorded on the community feed.
const (
	ActivityMemberJoined   = "member_joined"
	ActivityMemberLeft     = "member_left"
	ActivityMemberApproved = "member_approved"
	ActivityItemCreated    = "item_created"
	ActivityItemApproved   = "item_approved"
	ActivityItemRemoved    = "item_removed"
	ActivityItemJoined     = "item_joined"
)

type Activity struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CommunityID primitive.ObjectID `bson:"community_id" json:"community_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type        string             `bson:"type" json:"type"`
	TargetID    primitive.ObjectID `bson:"target_id" json:"target_id"` // the membership, item, etc. acted on
	Message     string             `bson:"message" json:"message"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
}
