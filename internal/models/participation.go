package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Participation statuses. Rows are upserted on join and on every progress
// read, never hard-deleted.
const (
	ParticipationJoined = "joined"
	ParticipationLeft   = "left"
)

type Participation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CommunityID     primitive.ObjectID `bson:"community_id" json:"community_id"`
	ItemID          primitive.ObjectID `bson:"item_id" json:"item_id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type            string             `bson:"type" json:"type"`
	Status          string             `bson:"status" json:"status"`
	ProgressPercent int                `bson:"progress_percent" json:"progress_percent"`
	JoinedAt        time.Time          `bson:"joined_at" json:"joined_at"`
	LastUpdatedAt   time.Time          `bson:"last_updated_at" json:"last_updated_at"`
}

// JoinedItem is the feed-ready projection of a joined participation row,
// denormalized against its item and community.
type JoinedItem struct {
	Participation Participation `json:"participation"`
	Item          Item          `json:"item"`
	CommunityName string        `json:"community_name"`
}
