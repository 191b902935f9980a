package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/permissions"
	"github.com/stridehq/community-engine/internal/repository"
	"github.com/stridehq/community-engine/pkg/apperrors"
	"github.com/stridehq/community-engine/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CommunityService owns the community and membership lifecycle: creation,
// join/leave, the approval workflow and the member-count counter.
type CommunityService struct {
	communityRepo     repository.CommunityRepository
	membershipRepo    repository.MembershipRepository
	participationRepo repository.ParticipationRepository
	itemRepo          repository.ItemRepository
	userRepo          repository.UserRepository
}

// NewCommunityService creates a new CommunityService.
func NewCommunityService(
	communityRepo repository.CommunityRepository,
	membershipRepo repository.MembershipRepository,
	participationRepo repository.ParticipationRepository,
	itemRepo repository.ItemRepository,
	userRepo repository.UserRepository,
) *CommunityService {
	return &CommunityService{
		communityRepo:     communityRepo,
		membershipRepo:    membershipRepo,
		participationRepo: participationRepo,
		itemRepo:          itemRepo,
		userRepo:          userRepo,
	}
}

// CreateCommunity creates the community together with its first admin
// membership as one atomic unit. A community always has at least one active
// admin: its creator.
func (s *CommunityService) CreateCommunity(ctx context.Context, ownerID primitive.ObjectID, community *models.Community) (*models.Community, error) {
	if community.Name == "" {
		return nil, fmt.Errorf("community name is required")
	}
	if community.Visibility == "" {
		community.Visibility = models.VisibilityPublic
	}
	switch community.Visibility {
	case models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityInviteOnly:
	default:
		return nil, fmt.Errorf("invalid visibility %q", community.Visibility)
	}

	if community.Settings.MemberLimit <= 0 {
		community.Settings.MemberLimit = models.DefaultMemberLimit
	}
	if community.Settings.MemberLimit > models.MaxMemberLimit {
		community.Settings.MemberLimit = models.MaxMemberLimit
	}

	community.OwnerID = ownerID
	community.IsActive = true
	community.Stats = models.CommunityStats{MemberCount: 1}

	owner := &models.Membership{
		UserID: ownerID,
		Role:   models.RoleAdmin,
		Status: models.MembershipActive,
	}

	created, err := s.communityRepo.CreateWithOwner(ctx, community, owner)
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to create community")
		return nil, fmt.Errorf("failed to create community: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"community_id": created.ID.Hex(),
		"owner_id":     ownerID.Hex(),
	}).Info("Community created")
	return created, nil
}

// GetCommunity fetches an active community.
func (s *CommunityService) GetCommunity(ctx context.Context, id primitive.ObjectID) (*models.Community, error) {
	community, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if community == nil || !community.IsActive {
		return nil, apperrors.NotFound("community")
	}
	return community, nil
}

// Join adds the user to the community. Non-public communities and those with
// approval required queue the row as pending; otherwise it becomes active and
// the member counter is incremented. Re-joining while active or pending
// returns the existing row unchanged.
//
// The limit check reads the counter and the increment is a separate $inc, so
// two concurrent joins can both pass the check and overshoot the limit by one.
// Known race, kept to match the single-writer transaction model.
func (s *CommunityService) Join(ctx context.Context, userID, communityID primitive.ObjectID) (*models.Membership, error) {
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	existing, err := s.membershipRepo.Get(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil && (existing.Status == models.MembershipActive || existing.Status == models.MembershipPending) {
		return existing, nil
	}

	if community.Stats.MemberCount >= community.EffectiveMemberLimit() {
		return nil, apperrors.LimitReached(fmt.Sprintf("community is full (%d members)", community.EffectiveMemberLimit()))
	}

	status := models.MembershipActive
	if community.RequiresJoinApproval() {
		status = models.MembershipPending
	}

	membership := &models.Membership{
		CommunityID: communityID,
		UserID:      userID,
		Role:        models.RoleMember,
		Status:      status,
		JoinedAt:    time.Now(),
	}
	saved, err := s.membershipRepo.Upsert(ctx, membership)
	if err != nil {
		return nil, fmt.Errorf("failed to join community: %w", err)
	}

	if status == models.MembershipActive {
		if err := s.communityRepo.IncMemberCount(ctx, communityID, 1); err != nil {
			return nil, err
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"community_id": communityID.Hex(),
		"user_id":      userID.Hex(),
		"status":       status,
	}).Info("User joined community")
	return saved, nil
}

// DecideMembership flips a pending membership to active or rejected. The
// approver must pass the manage-members policy.
func (s *CommunityService) DecideMembership(ctx context.Context, communityID, targetUserID, approverID primitive.ObjectID, approve bool) (*models.Membership, error) {
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	approver, err := s.membershipRepo.Get(ctx, communityID, approverID)
	if err != nil {
		return nil, err
	}
	if d := permissions.CanManageMembers(community.Settings, approver); !d.Allowed {
		return nil, apperrors.Forbidden(d.Reason)
	}

	target, err := s.membershipRepo.Get(ctx, communityID, targetUserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, apperrors.NotFound("membership request")
	}
	if target.Status != models.MembershipPending {
		return nil, apperrors.Conflict("membership request already decided")
	}

	status := models.MembershipRejected
	if approve {
		status = models.MembershipActive
	}
	if err := s.membershipRepo.UpdateStatus(ctx, communityID, targetUserID, status, &approverID); err != nil {
		return nil, err
	}
	if approve {
		if err := s.communityRepo.IncMemberCount(ctx, communityID, 1); err != nil {
			return nil, err
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"community_id": communityID.Hex(),
		"user_id":      targetUserID.Hex(),
		"approved":     approve,
	}).Info("Membership decided")
	return s.membershipRepo.Get(ctx, communityID, targetUserID)
}

// Leave flips an active membership to removed and decrements the member
// counter. Leaving while not active is a no-op.
func (s *CommunityService) Leave(ctx context.Context, userID, communityID primitive.ObjectID) error {
	membership, err := s.membershipRepo.Get(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if membership == nil || membership.Status != models.MembershipActive {
		return nil
	}

	if err := s.membershipRepo.UpdateStatus(ctx, communityID, userID, models.MembershipRemoved, nil); err != nil {
		return err
	}
	if err := s.communityRepo.IncMemberCount(ctx, communityID, -1); err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"community_id": communityID.Hex(),
		"user_id":      userID.Hex(),
	}).Info("User left community")
	return nil
}

// ListMembers returns the active member list, open to any active member.
func (s *CommunityService) ListMembers(ctx context.Context, communityID, callerID primitive.ObjectID) ([]models.Membership, error) {
	if _, err := s.GetCommunity(ctx, communityID); err != nil {
		return nil, err
	}
	caller, err := s.membershipRepo.Get(ctx, communityID, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsActive() {
		return nil, apperrors.Forbidden("you are not an active member of this community")
	}
	return s.membershipRepo.ListByStatus(ctx, communityID, models.MembershipActive)
}

// ListPendingMembers returns the pending queue, gated by the same policy as
// membership decisions.
func (s *CommunityService) ListPendingMembers(ctx context.Context, communityID, callerID primitive.ObjectID) ([]models.Membership, error) {
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	caller, err := s.membershipRepo.Get(ctx, communityID, callerID)
	if err != nil {
		return nil, err
	}
	if d := permissions.CanManageMembers(community.Settings, caller); !d.Allowed {
		return nil, apperrors.Forbidden(d.Reason)
	}
	return s.membershipRepo.ListByStatus(ctx, communityID, models.MembershipPending)
}

// UpdateSettings replaces the community settings. Admin only.
func (s *CommunityService) UpdateSettings(ctx context.Context, communityID, callerID primitive.ObjectID, settings models.CommunitySettings) (*models.Community, error) {
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}
	caller, err := s.membershipRepo.Get(ctx, communityID, callerID)
	if err != nil {
		return nil, err
	}
	if !caller.IsActive() || caller.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can change community settings")
	}

	if settings.MemberLimit <= 0 || settings.MemberLimit > models.MaxMemberLimit {
		return nil, fmt.Errorf("member limit must be between 1 and %d", models.MaxMemberLimit)
	}
	if err := s.communityRepo.UpdateSettings(ctx, communityID, settings); err != nil {
		return nil, err
	}
	community.Settings = settings
	return community, nil
}

// UpdateImages updates the community image and banner, gated by the
// change-images policy.
func (s *CommunityService) UpdateImages(ctx context.Context, communityID, callerID primitive.ObjectID, imageURL, bannerURL string) error {
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return err
	}
	caller, err := s.membershipRepo.Get(ctx, communityID, callerID)
	if err != nil {
		return err
	}
	if d := permissions.CanChangeImages(community.Settings, caller); !d.Allowed {
		return apperrors.Forbidden(d.Reason)
	}
	return s.communityRepo.UpdateImages(ctx, communityID, imageURL, bannerURL)
}

// GetStats returns the community stats with the completion rate freshly
// recomputed from the joined participation rows on active items.
func (s *CommunityService) GetStats(ctx context.Context, communityID primitive.ObjectID) (*models.CommunityStats, error) {
	community, err := s.GetCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	rows, err := s.participationRepo.ListJoinedByCommunity(ctx, communityID)
	if err != nil {
		return nil, err
	}

	rate := 0.0
	if len(rows) > 0 {
		completed := 0
		for _, row := range rows {
			if row.ProgressPercent >= 100 {
				completed++
			}
		}
		rate = math.Round(float64(completed)/float64(len(rows))*100) / 100
	}
	if err := s.communityRepo.SetCompletionRate(ctx, communityID, rate); err != nil {
		return nil, err
	}

	stats := community.Stats
	stats.CompletionRate = rate
	return &stats, nil
}

// CountOwnedActive is a counting primitive for the external capability gate.
func (s *CommunityService) CountOwnedActive(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.communityRepo.CountOwnedActive(ctx, userID)
}

// CountJoinedActive is a counting primitive for the external capability gate.
func (s *CommunityService) CountJoinedActive(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.membershipRepo.CountActiveByUser(ctx, userID)
}
