package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Item types. An item wraps a personal source record exposed to the community.
const (
	ItemTypeGoal  = "goal"
	ItemTypeHabit = "habit"
)

// Participation modes. Habits are always individual; only goals may be
// collaborative.
const (
	ParticipationIndividual    = "individual"
	ParticipationCollaborative = "collaborative"
)

// Item statuses.
const (
	ItemPending  = "pending"
	ItemApproved = "approved"
	ItemRejected = "rejected"
)

type ItemStats struct {
	ParticipantCount int `bson:"participant_count" json:"participant_count"`
}

type Item struct {
	ID                primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CommunityID       primitive.ObjectID  `bson:"community_id" json:"community_id"`
	Type              string              `bson:"type" json:"type"`
	ParticipationType string              `bson:"participation_type" json:"participation_type"`
	SourceID          primitive.ObjectID  `bson:"source_id" json:"source_id"`
	Title             string              `bson:"title" json:"title"`
	Description       string              `bson:"description,omitempty" json:"description,omitempty"`
	Status            string              `bson:"status" json:"status"`
	CreatedBy         primitive.ObjectID  `bson:"created_by" json:"created_by"`
	ApprovedBy        *primitive.ObjectID `bson:"approved_by,omitempty" json:"approved_by,omitempty"`
	ApprovedAt        *time.Time          `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	Stats             ItemStats           `bson:"stats" json:"stats"`
	IsActive          bool                `bson:"is_active" json:"is_active"`
	CreatedAt         time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsJoinable reports whether the item is visible to join and aggregation
// operations.
func (i *Item) IsJoinable() bool {
	return i != nil && i.Status == ItemApproved && i.IsActive
}

// IsCollaborative reports whether community progress sums contributions toward
// one shared target instead of averaging.
func (i *Item) IsCollaborative() bool {
	return i.Type == ItemTypeGoal && i.ParticipationType == ParticipationCollaborative
}
