// Package permissions is the pure decision layer consulted before every
// mutation. Functions take the community settings and the actor's membership
// row and return whether the action is allowed plus, on denial, the rule that
// failed. Nothing here touches persistence.
package permissions

import (
	"github.com/stridehq/community-engine/internal/models"
)

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// requireActive is the precondition of every check: a pending, removed or
// rejected actor is always denied.
func requireActive(m *models.Membership) (Decision, bool) {
	if !m.IsActive() {
		return deny("you are not an active member of this community"), false
	}
	return allow(), true
}

// CanAddItem applies the OR'd toggle rule: adding is restricted only when the
// global toggle AND the type-specific toggle are both restrictive. If either
// is permissive any active member may add. When restricted, admins and
// moderators still qualify.
func CanAddItem(settings models.CommunitySettings, m *models.Membership, itemType string) Decision {
	if d, ok := requireActive(m); !ok {
		return d
	}

	typeRestricted := settings.OnlyAdminsCanAddGoals
	if itemType == models.ItemTypeHabit {
		typeRestricted = settings.OnlyAdminsCanAddHabits
	}

	if !settings.OnlyAdminsCanAddItems || !typeRestricted {
		return allow()
	}
	if m.Role == models.RoleAdmin || m.Role == models.RoleModerator {
		return allow()
	}
	if itemType == models.ItemTypeHabit {
		return deny("only admins can add habits here")
	}
	return deny("only admins can add goals here")
}

// CanManageMembers gates membership approvals and the pending-member list.
// Restrictive toggle: admin only. Permissive: admin or moderator. Plain
// members never qualify.
func CanManageMembers(settings models.CommunitySettings, m *models.Membership) Decision {
	return tieredCheck(settings.OnlyAdminsCanManageMembers, m, "only admins can manage members here", "only admins and moderators can manage members")
}

// CanChangeImages gates community image and banner updates.
func CanChangeImages(settings models.CommunitySettings, m *models.Membership) Decision {
	return tieredCheck(settings.OnlyAdminsCanChangeImages, m, "only admins can change community images here", "only admins and moderators can change community images")
}

// CanPostAnnouncements gates announcement creation.
func CanPostAnnouncements(settings models.CommunitySettings, m *models.Membership) Decision {
	return tieredCheck(settings.OnlyAdminsCanPostAnnouncements, m, "only admins can post announcements here", "only admins and moderators can post announcements")
}

func tieredCheck(restrictive bool, m *models.Membership, adminOnlyReason, tieredReason string) Decision {
	if d, ok := requireActive(m); !ok {
		return d
	}
	if restrictive {
		if m.Role == models.RoleAdmin {
			return allow()
		}
		return deny(adminOnlyReason)
	}
	if m.Role == models.RoleAdmin || m.Role == models.RoleModerator {
		return allow()
	}
	return deny(tieredReason)
}

// CanApproveItems gates item approval and rejection.
func CanApproveItems(m *models.Membership) Decision {
	if d, ok := requireActive(m); !ok {
		return d
	}
	if m.Role == models.RoleAdmin || m.Role == models.RoleModerator {
		return allow()
	}
	return deny("only admins and moderators can approve items")
}

// CanRemoveItem allows the item's creator or a community admin.
func CanRemoveItem(m *models.Membership, createdBy bool) Decision {
	if d, ok := requireActive(m); !ok {
		return d
	}
	if createdBy || m.Role == models.RoleAdmin {
		return allow()
	}
	return deny("only the item creator or an admin can remove an item")
}
