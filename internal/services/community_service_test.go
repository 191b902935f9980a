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

func TestCreateCommunitySeedsOwnerMembership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ownerID := primitive.NewObjectID()

	community, err := f.communityService.CreateCommunity(ctx, ownerID, &models.Community{Name: "Book Club"})
	require.NoError(t, err)

	assert.Equal(t, 1, community.Stats.MemberCount)
	assert.True(t, community.IsActive)
	assert.Equal(t, models.DefaultMemberLimit, community.Settings.MemberLimit)

	owner, err := f.memberships.Get(ctx, community.ID, ownerID)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, models.RoleAdmin, owner.Role)
	assert.Equal(t, models.MembershipActive, owner.Status)
}

func TestCreateCommunityRejectsInvalidInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.communityService.CreateCommunity(ctx, primitive.NewObjectID(), &models.Community{})
	assert.Error(t, err)

	_, err = f.communityService.CreateCommunity(ctx, primitive.NewObjectID(), &models.Community{
		Name:       "Bad",
		Visibility: "secret",
	})
	assert.Error(t, err)
}

func TestJoinPublicCommunityActivatesImmediately(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})

	userID := primitive.NewObjectID()
	membership, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipActive, membership.Status)
	assert.Equal(t, models.RoleMember, membership.Role)

	community, err := f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 2, community.Stats.MemberCount)
}

func TestJoinWithApprovalRequiredQueuesPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{MembershipApprovalRequired: true})

	userID := primitive.NewObjectID()
	membership, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipPending, membership.Status)

	// Pending members do not count.
	community, err := f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 1, community.Stats.MemberCount)

	// Joining again while pending returns the same row instead of resetting it.
	again, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)
	assert.Equal(t, membership.ID, again.ID)
	assert.Equal(t, models.MembershipPending, again.Status)
}

func TestJoinFullCommunityHitsLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{MemberLimit: 1})

	_, err := f.communityService.Join(ctx, primitive.NewObjectID(), communityID)
	assert.ErrorIs(t, err, apperrors.ErrLimitReached)

	community, err := f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 1, community.Stats.MemberCount)
}

func TestDecideMembershipApprove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{MembershipApprovalRequired: true})

	userID := primitive.NewObjectID()
	_, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)

	membership, err := f.communityService.DecideMembership(ctx, communityID, userID, ownerID, true)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipActive, membership.Status)
	require.NotNil(t, membership.DecidedBy)
	assert.Equal(t, ownerID, *membership.DecidedBy)

	community, err := f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 2, community.Stats.MemberCount)

	// A second decision on the same request conflicts.
	_, err = f.communityService.DecideMembership(ctx, communityID, userID, ownerID, false)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestDecideMembershipRejectKeepsCount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{MembershipApprovalRequired: true})

	userID := primitive.NewObjectID()
	_, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)

	membership, err := f.communityService.DecideMembership(ctx, communityID, userID, ownerID, false)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRejected, membership.Status)

	community, err := f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 1, community.Stats.MemberCount)
}

func TestDecideMembershipRequiresStaff(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{MembershipApprovalRequired: true})
	plainMember := f.seedMember(t, communityID, models.RoleMember)

	userID := primitive.NewObjectID()
	_, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)

	_, err = f.communityService.DecideMembership(ctx, communityID, userID, plainMember, true)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.communityService.DecideMembership(ctx, communityID, primitive.NewObjectID(), plainMember, true)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestDecideMembershipMissingRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{})

	_, err := f.communityService.DecideMembership(ctx, communityID, primitive.NewObjectID(), ownerID, true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLeaveCommunity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})

	userID := primitive.NewObjectID()
	_, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)

	require.NoError(t, f.communityService.Leave(ctx, userID, communityID))

	membership, err := f.memberships.Get(ctx, communityID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRemoved, membership.Status)

	community, err := f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 1, community.Stats.MemberCount)

	// Leaving twice must not decrement again.
	require.NoError(t, f.communityService.Leave(ctx, userID, communityID))
	community, err = f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 1, community.Stats.MemberCount)
}

func TestJoinAfterRemovalReactivates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})

	userID := primitive.NewObjectID()
	_, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)
	require.NoError(t, f.communityService.Leave(ctx, userID, communityID))

	membership, err := f.communityService.Join(ctx, userID, communityID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipActive, membership.Status)

	community, err := f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 2, community.Stats.MemberCount)
}

func TestUpdateSettingsAdminOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{})
	moderator := f.seedMember(t, communityID, models.RoleModerator)

	settings := models.CommunitySettings{MemberLimit: 25, OnlyAdminsCanAddItems: true}
	_, err := f.communityService.UpdateSettings(ctx, communityID, moderator, settings)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := f.communityService.UpdateSettings(ctx, communityID, ownerID, settings)
	require.NoError(t, err)
	assert.Equal(t, 25, updated.Settings.MemberLimit)
	assert.True(t, updated.Settings.OnlyAdminsCanAddItems)
}

func TestUpdateSettingsRejectsBadLimit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{})

	_, err := f.communityService.UpdateSettings(ctx, communityID, ownerID, models.CommunitySettings{MemberLimit: 0})
	assert.Error(t, err)

	_, err = f.communityService.UpdateSettings(ctx, communityID, ownerID, models.CommunitySettings{MemberLimit: models.MaxMemberLimit + 1})
	assert.Error(t, err)
}

func TestGetStatsRecomputesCompletionRate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, ownerID := f.seedCommunity(t, models.CommunitySettings{})
	item := f.seedGoalItem(t, communityID, ownerID, models.ParticipationIndividual)

	f.joinParticipant(t, item, primitive.NewObjectID(), 100)
	f.joinParticipant(t, item, primitive.NewObjectID(), 40)
	f.joinParticipant(t, item, primitive.NewObjectID(), 100)
	f.joinParticipant(t, item, primitive.NewObjectID(), 0)

	stats, err := f.communityService.GetStats(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, stats.CompletionRate)

	community, err := f.communities.GetByID(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 0.5, community.Stats.CompletionRate)
}

func TestGetStatsEmptyCommunity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})

	stats, err := f.communityService.GetStats(ctx, communityID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.CompletionRate)
	assert.Equal(t, 1, stats.MemberCount)
}

func TestJoinInactiveCommunity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	communityID, _ := f.seedCommunity(t, models.CommunitySettings{})
	f.communities.communities[communityID].IsActive = false

	_, err := f.communityService.Join(ctx, primitive.NewObjectID(), communityID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
