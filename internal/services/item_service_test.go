package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestSuggestItemApprovedWhenPolicyAllows(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})
	member := f.seedMember(t, communityID, models.RoleMember)

	goal, err := f.goals.Create(ctx, &models.Goal{UserID: member, Title: "Run a marathon"})
	require.NoError(t, err)

	item, err := f.itemService.SuggestItem(ctx, member, communityID, ItemInput{
		Type:     models.ItemTypeGoal,
		Title:    "Run a marathon",
		SourceID: goal.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ItemApproved, item.Status)
	assert.Equal(t, models.ParticipationIndividual, item.ParticipationType)
	assert.Equal(t, 1, item.Stats.ParticipantCount)

	// The creator is auto-joined.
	row, err := f.participation.Get(ctx, communityID, item.ID, member)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.ParticipationJoined, row.Status)
}

func TestSuggestItemQueuesPendingWhenRestricted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{
		OnlyAdminsCanAddItems: true,
		OnlyAdminsCanAddGoals: true,
	})
	member := f.seedMember(t, communityID, models.RoleMember)

	goal, err := f.goals.Create(ctx, &models.Goal{UserID: member, Title: "Run a marathon"})
	require.NoError(t, err)

	item, err := f.itemService.SuggestItem(ctx, member, communityID, ItemInput{
		Type:     models.ItemTypeGoal,
		Title:    "Run a marathon",
		SourceID: goal.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ItemPending, item.Status)
}

func TestSuggestItemRejectsForeignSource(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})
	member := f.seedMember(t, communityID, models.RoleMember)

	goal, err := f.goals.Create(ctx, &models.Goal{UserID: primitive.NewObjectID(), Title: "Not yours"})
	require.NoError(t, err)

	_, err = f.itemService.SuggestItem(ctx, member, communityID, ItemInput{
		Type:     models.ItemTypeGoal,
		SourceID: goal.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreateOwnedItemBlockedWhenRestricted(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{
		OnlyAdminsCanAddItems:  true,
		OnlyAdminsCanAddHabits: true,
	})
	member := f.seedMember(t, communityID, models.RoleMember)

	_, err := f.itemService.CreateOwnedItem(ctx, member, communityID, ItemInput{
		Type:  models.ItemTypeHabit,
		Title: "Meditate",
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestCreateOwnedItemBuildsZeroProgressRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})
	member := f.seedMember(t, communityID, models.RoleMember)

	item, err := f.itemService.CreateOwnedItem(ctx, member, communityID, ItemInput{
		Type:  models.ItemTypeHabit,
		Title: "Meditate",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ItemApproved, item.Status)

	habit, err := f.habits.GetByID(ctx, item.SourceID)
	require.NoError(t, err)
	require.NotNil(t, habit)
	assert.Equal(t, member, habit.UserID)
	assert.Equal(t, models.FrequencyDaily, habit.Frequency)
	assert.Zero(t, habit.CurrentStreak)
}

func TestCopyFromPersonalResetsProgress(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})
	member := f.seedMember(t, communityID, models.RoleMember)

	source, err := f.goals.Create(ctx, &models.Goal{
		UserID: member,
		Title:  "Learn Spanish",
		Subgoals: []models.Subgoal{
			{Title: "Finish course A1", Done: true},
			{Title: "Finish course A2", Done: false},
		},
		Completed: true,
	})
	require.NoError(t, err)

	item, err := f.itemService.CopyFromPersonal(ctx, member, communityID, ItemInput{
		Type:     models.ItemTypeGoal,
		SourceID: source.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Learn Spanish", item.Title)
	assert.NotEqual(t, source.ID, item.SourceID)

	clone, err := f.goals.GetByID(ctx, item.SourceID)
	require.NoError(t, err)
	require.NotNil(t, clone)
	assert.False(t, clone.Completed)
	require.Len(t, clone.Subgoals, 2)
	assert.False(t, clone.Subgoals[0].Done)
	assert.False(t, clone.Subgoals[1].Done)
}

func TestHabitItemsForcedIndividual(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})
	member := f.seedMember(t, communityID, models.RoleMember)

	item, err := f.itemService.CreateOwnedItem(ctx, member, communityID, ItemInput{
		Type:              models.ItemTypeHabit,
		ParticipationType: models.ParticipationCollaborative,
		Title:             "Drink water",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ParticipationIndividual, item.ParticipationType)
}

func TestCreateItemRejectsUnknownType(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})
	member := f.seedMember(t, communityID, models.RoleMember)

	_, err := f.itemService.CreateOwnedItem(ctx, member, communityID, ItemInput{
		Type:  "chore",
		Title: "Dishes",
	})
	assert.Error(t, err)
}

func TestCreateItemRequiresActiveMembership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})

	_, err := f.itemService.CreateOwnedItem(ctx, primitive.NewObjectID(), communityID, ItemInput{
		Type:  models.ItemTypeGoal,
		Title: "Outsider goal",
	})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestApproveItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{
		OnlyAdminsCanAddItems: true,
		OnlyAdminsCanAddGoals: true,
	})
	member := f.seedMember(t, communityID, models.RoleMember)

	goal, err := f.goals.Create(ctx, &models.Goal{UserID: member, Title: "Pending goal"})
	require.NoError(t, err)
	item, err := f.itemService.SuggestItem(ctx, member, communityID, ItemInput{
		Type:     models.ItemTypeGoal,
		Title:    "Pending goal",
		SourceID: goal.ID,
	})
	require.NoError(t, err)
	require.Equal(t, models.ItemPending, item.Status)

	approved, err := f.itemService.ApproveItem(ctx, item.ID, ownerID, true)
	require.NoError(t, err)
	assert.Equal(t, models.ItemApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, ownerID, *approved.ApprovedBy)

	// Already decided.
	_, err = f.itemService.ApproveItem(ctx, item.ID, ownerID, false)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestApproveItemRequiresStaff(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{
		OnlyAdminsCanAddItems: true,
		OnlyAdminsCanAddGoals: true,
	})
	member := f.seedMember(t, communityID, models.RoleMember)
	other := f.seedMember(t, communityID, models.RoleMember)

	goal, err := f.goals.Create(ctx, &models.Goal{UserID: member, Title: "Pending goal"})
	require.NoError(t, err)
	item, err := f.itemService.SuggestItem(ctx, member, communityID, ItemInput{
		Type:     models.ItemTypeGoal,
		Title:    "Pending goal",
		SourceID: goal.ID,
	})
	require.NoError(t, err)

	_, err = f.itemService.ApproveItem(ctx, item.ID, other, true)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestRemoveItemFlipsAllParticipants(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{})
	item := f.seedGoalItem(t, communityID, ownerID, models.ParticipationIndividual)

	users := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}
	for _, u := range users {
		f.joinParticipant(t, item, u, 30)
	}

	require.NoError(t, f.itemService.RemoveItem(ctx, item.ID, ownerID))

	stored, err := f.items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	for _, u := range users {
		row, err := f.participation.Get(ctx, communityID, item.ID, u)
		require.NoError(t, err)
		assert.Equal(t, models.ParticipationLeft, row.Status)
	}

	// A deactivated item disappears from the listing.
	listed, err := f.itemService.ListCommunityItems(ctx, communityID, ownerID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	// And from the participants' feeds.
	feed, err := f.progressService.ListMyJoinedItems(ctx, users[0])
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestRemoveItemByCreator(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})
	creator := f.seedMember(t, communityID, models.RoleMember)
	item := f.seedGoalItem(t, communityID, creator, models.ParticipationIndividual)

	require.NoError(t, f.itemService.RemoveItem(ctx, item.ID, creator))
}

func TestRemoveItemForbiddenForOthers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{})
	bystander := f.seedMember(t, communityID, models.RoleMember)
	item := f.seedGoalItem(t, communityID, ownerID, models.ParticipationIndividual)

	err := f.itemService.RemoveItem(ctx, item.ID, bystander)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestListCommunityItemsHidesPendingFromMembers(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{
		OnlyAdminsCanAddItems: true,
		OnlyAdminsCanAddGoals: true,
	})
	member := f.seedMember(t, communityID, models.RoleMember)

	goal, err := f.goals.Create(ctx, &models.Goal{UserID: member, Title: "Pending goal"})
	require.NoError(t, err)
	_, err = f.itemService.SuggestItem(ctx, member, communityID, ItemInput{
		Type:     models.ItemTypeGoal,
		Title:    "Pending goal",
		SourceID: goal.ID,
	})
	require.NoError(t, err)

	memberView, err := f.itemService.ListCommunityItems(ctx, communityID, member)
	require.NoError(t, err)
	assert.Empty(t, memberView)

	adminView, err := f.itemService.ListCommunityItems(ctx, communityID, ownerID)
	require.NoError(t, err)
	require.Len(t, adminView, 1)
	assert.Equal(t, models.ItemPending, adminView[0].Status)
}
