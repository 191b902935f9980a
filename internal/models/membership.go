package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership roles.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// Membership statuses. Exactly one non-historical row exists per
// (community, user); status flips instead of row deletion.
const (
	MembershipActive   = "active"
	MembershipPending  = "pending"
	MembershipRejected = "rejected"
	MembershipRemoved  = "removed"
)

type Membership struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CommunityID primitive.ObjectID  `bson:"community_id" json:"community_id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"user_id"`
	Role        string              `bson:"role" json:"role"`
	Status      string              `bson:"status" json:"status"`
	DecidedBy   *primitive.ObjectID `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
	JoinedAt    time.Time           `bson:"joined_at" json:"joined_at"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the member currently counts toward the community.
func (m *Membership) IsActive() bool {
	return m != nil && m.Status == MembershipActive
}
