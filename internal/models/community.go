package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Community visibility values.
const (
	VisibilityPublic     = "public"
	VisibilityPrivate    = "private"
	VisibilityInviteOnly = "invite_only"
)

const (
	DefaultMemberLimit = 50
	MaxMemberLimit     = 100
)

// CommunitySettings is the explicit permission/limit configuration of a community.
// Toggles are "restrictive when true".
type CommunitySettings struct {
	MemberLimit                    int  `bson:"member_limit" json:"member_limit"`
	MembershipApprovalRequired     bool `bson:"membership_approval_required" json:"membership_approval_required"`
	OnlyAdminsCanAddItems          bool `bson:"only_admins_can_add_items" json:"only_admins_can_add_items"`
	OnlyAdminsCanAddGoals          bool `bson:"only_admins_can_add_goals" json:"only_admins_can_add_goals"`
	OnlyAdminsCanAddHabits         bool `bson:"only_admins_can_add_habits" json:"only_admins_can_add_habits"`
	OnlyAdminsCanManageMembers     bool `bson:"only_admins_can_manage_members" json:"only_admins_can_manage_members"`
	OnlyAdminsCanChangeImages      bool `bson:"only_admins_can_change_images" json:"only_admins_can_change_images"`
	OnlyAdminsCanPostAnnouncements bool `bson:"only_admins_can_post_announcements" json:"only_admins_can_post_announcements"`
}

// CommunityStats holds the denormalized counters kept on the community document.
// MemberCount and WeeklyActivityCount are mutated with atomic increments, never
// recomputed on read.
type CommunityStats struct {
	MemberCount         int     `bson:"member_count" json:"member_count"`
	TotalPoints         int     `bson:"total_points" json:"total_points"`
	WeeklyActivityCount int     `bson:"weekly_activity_count" json:"weekly_activity_count"`
	CompletionRate      float64 `bson:"completion_rate" json:"completion_rate"`
}

type Community struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Visibility  string             `bson:"visibility" json:"visibility"`
	Interests   []string           `bson:"interests,omitempty" json:"interests,omitempty"`
	Settings    CommunitySettings  `bson:"settings" json:"settings"`
	Stats       CommunityStats     `bson:"stats" json:"stats"`
	ImageURL    string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	BannerURL   string             `bson:"banner_url,omitempty" json:"banner_url,omitempty"`
	OwnerID     primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	IsActive    bool               `bson:"is_active" json:"is_active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// EffectiveMemberLimit clamps the configured limit into (0, MaxMemberLimit].
func (c *Community) EffectiveMemberLimit() int {
	limit := c.Settings.MemberLimit
	if limit <= 0 {
		limit = DefaultMemberLimit
	}
	if limit > MaxMemberLimit {
		limit = MaxMemberLimit
	}
	return limit
}

// RequiresJoinApproval reports whether a join request lands in the pending
// queue instead of becoming active immediately.
func (c *Community) RequiresJoinApproval() bool {
	return c.Visibility != VisibilityPublic || c.Settings.MembershipApprovalRequired
}
