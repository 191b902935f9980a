package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stridehq/community-engine/internal/models"
)

func activeMember(role string) *models.Membership {
	return &models.Membership{Role: role, Status: models.MembershipActive}
}

func TestCanAddItemORRule(t *testing.T) {
	member := activeMember(models.RoleMember)

	tests := []struct {
		name         string
		globalLocked bool
		goalsLocked  bool
		habitsLocked bool
		itemType     string
		want         bool
	}{
		{"all permissive", false, false, false, models.ItemTypeGoal, true},
		{"global locked, goals open", true, false, true, models.ItemTypeGoal, true},
		{"global locked, goals open, habit blocked", true, false, true, models.ItemTypeHabit, false},
		{"global open, goals locked", false, true, false, models.ItemTypeGoal, true},
		{"both locked for goals", true, true, false, models.ItemTypeGoal, false},
		{"both locked for habits", true, false, true, models.ItemTypeHabit, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := models.CommunitySettings{
				OnlyAdminsCanAddItems:  tt.globalLocked,
				OnlyAdminsCanAddGoals:  tt.goalsLocked,
				OnlyAdminsCanAddHabits: tt.habitsLocked,
			}
			d := CanAddItem(settings, member, tt.itemType)
			assert.Equal(t, tt.want, d.Allowed)
			if !tt.want {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestCanAddItemRestrictedStillAllowsStaff(t *testing.T) {
	settings := models.CommunitySettings{
		OnlyAdminsCanAddItems: true,
		OnlyAdminsCanAddGoals: true,
	}

	assert.True(t, CanAddItem(settings, activeMember(models.RoleAdmin), models.ItemTypeGoal).Allowed)
	assert.True(t, CanAddItem(settings, activeMember(models.RoleModerator), models.ItemTypeGoal).Allowed)
	assert.False(t, CanAddItem(settings, activeMember(models.RoleMember), models.ItemTypeGoal).Allowed)
}

func TestInactiveActorAlwaysDenied(t *testing.T) {
	settings := models.CommunitySettings{}

	for _, status := range []string{models.MembershipPending, models.MembershipRejected, models.MembershipRemoved} {
		m := &models.Membership{Role: models.RoleAdmin, Status: status}
		assert.False(t, CanAddItem(settings, m, models.ItemTypeGoal).Allowed, status)
		assert.False(t, CanManageMembers(settings, m).Allowed, status)
		assert.False(t, CanApproveItems(m).Allowed, status)
	}

	assert.False(t, CanManageMembers(settings, nil).Allowed)
}

func TestManageMembersRoleTiering(t *testing.T) {
	restrictive := models.CommunitySettings{OnlyAdminsCanManageMembers: true}
	permissive := models.CommunitySettings{OnlyAdminsCanManageMembers: false}

	assert.True(t, CanManageMembers(restrictive, activeMember(models.RoleAdmin)).Allowed)
	assert.False(t, CanManageMembers(restrictive, activeMember(models.RoleModerator)).Allowed)
	assert.False(t, CanManageMembers(restrictive, activeMember(models.RoleMember)).Allowed)

	assert.True(t, CanManageMembers(permissive, activeMember(models.RoleAdmin)).Allowed)
	assert.True(t, CanManageMembers(permissive, activeMember(models.RoleModerator)).Allowed)
	// Plain members never qualify for management actions.
	assert.False(t, CanManageMembers(permissive, activeMember(models.RoleMember)).Allowed)
}

func TestCanRemoveItem(t *testing.T) {
	assert.True(t, CanRemoveItem(activeMember(models.RoleMember), true).Allowed)
	assert.True(t, CanRemoveItem(activeMember(models.RoleAdmin), false).Allowed)
	assert.False(t, CanRemoveItem(activeMember(models.RoleModerator), false).Allowed)
	assert.False(t, CanRemoveItem(activeMember(models.RoleMember), false).Allowed)
}
