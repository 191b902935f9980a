package services

import (
	"context"
	"fmt"

	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/permissions"
	"github.com/stridehq/community-engine/internal/repository"
	"github.com/stridehq/community-engine/pkg/apperrors"
	"github.com/stridehq/community-engine/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AnnouncementService handles community announcements. Plain content records,
// no state machine.
type AnnouncementService struct {
	announcementRepo repository.AnnouncementRepository
	communityRepo    repository.CommunityRepository
	membershipRepo   repository.MembershipRepository
}

// NewAnnouncementService creates a new AnnouncementService.
func NewAnnouncementService(
	announcementRepo repository.AnnouncementRepository,
	communityRepo repository.CommunityRepository,
	membershipRepo repository.MembershipRepository,
) *AnnouncementService {
	return &AnnouncementService{
		announcementRepo: announcementRepo,
		communityRepo:    communityRepo,
		membershipRepo:   membershipRepo,
	}
}

func (s *AnnouncementService) communityAndMember(ctx context.Context, communityID, userID primitive.ObjectID) (*models.Community, *models.Membership, error) {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return nil, nil, err
	}
	if community == nil || !community.IsActive {
		return nil, nil, apperrors.NotFound("community")
	}
	membership, err := s.membershipRepo.Get(ctx, communityID, userID)
	if err != nil {
		return nil, nil, err
	}
	return community, membership, nil
}

// CreateAnnouncement posts an announcement, gated by the posting policy.
func (s *AnnouncementService) CreateAnnouncement(ctx context.Context, authorID, communityID primitive.ObjectID, title, body string, pinned bool) (*models.Announcement, error) {
	if title == "" {
		return nil, fmt.Errorf("announcement title is required")
	}
	community, membership, err := s.communityAndMember(ctx, communityID, authorID)
	if err != nil {
		return nil, err
	}
	if d := permissions.CanPostAnnouncements(community.Settings, membership); !d.Allowed {
		return nil, apperrors.Forbidden(d.Reason)
	}

	announcement := &models.Announcement{
		CommunityID: communityID,
		AuthorID:    authorID,
		Title:       title,
		Body:        body,
		IsPinned:    pinned,
	}
	created, err := s.announcementRepo.Create(ctx, announcement)
	if err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}

	logger.Log.WithField("announcement_id", created.ID.Hex()).Info("Announcement created")
	return created, nil
}

// ListAnnouncements returns active announcements, pinned first. Open to any
// active member.
func (s *AnnouncementService) ListAnnouncements(ctx context.Context, callerID, communityID primitive.ObjectID) ([]models.Announcement, error) {
	_, membership, err := s.communityAndMember(ctx, communityID, callerID)
	if err != nil {
		return nil, err
	}
	if !membership.IsActive() {
		return nil, apperrors.Forbidden("you are not an active member of this community")
	}
	return s.announcementRepo.ListActive(ctx, communityID)
}

// SetPinned pins or unpins an announcement, management tier.
func (s *AnnouncementService) SetPinned(ctx context.Context, callerID, communityID, announcementID primitive.ObjectID, pinned bool) error {
	community, membership, err := s.communityAndMember(ctx, communityID, callerID)
	if err != nil {
		return err
	}
	if d := permissions.CanManageMembers(community.Settings, membership); !d.Allowed {
		return apperrors.Forbidden(d.Reason)
	}

	announcement, err := s.announcementRepo.GetByID(ctx, announcementID)
	if err != nil {
		return err
	}
	if announcement == nil || !announcement.IsActive || announcement.CommunityID != communityID {
		return apperrors.NotFound("announcement")
	}
	return s.announcementRepo.SetPinned(ctx, announcementID, pinned)
}

// DeleteAnnouncement soft-deletes an announcement. Author or admin.
func (s *AnnouncementService) DeleteAnnouncement(ctx context.Context, callerID, communityID, announcementID primitive.ObjectID) error {
	_, membership, err := s.communityAndMember(ctx, communityID, callerID)
	if err != nil {
		return err
	}
	announcement, err := s.announcementRepo.GetByID(ctx, announcementID)
	if err != nil {
		return err
	}
	if announcement == nil || !announcement.IsActive || announcement.CommunityID != communityID {
		return apperrors.NotFound("announcement")
	}
	if !membership.IsActive() {
		return apperrors.Forbidden("you are not an active member of this community")
	}
	if announcement.AuthorID != callerID && membership.Role != models.RoleAdmin {
		return apperrors.Forbidden("only the author or an admin can delete an announcement")
	}
	return s.announcementRepo.Deactivate(ctx, announcementID)
}
