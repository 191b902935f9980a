package services

import (
	"context"

	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/repository"
	"github.com/stridehq/community-engine/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityService records entries on the community activity feed and bumps
// the weekly activity counter. Logging is best-effort: failures are logged
// and never surfaced to the caller.
type ActivityService struct {
	activityRepo  repository.ActivityRepository
	communityRepo repository.CommunityRepository
}

// NewActivityService creates a new ActivityService.
func NewActivityService(activityRepo repository.ActivityRepository, communityRepo repository.CommunityRepository) *ActivityService {
	return &ActivityService{activityRepo: activityRepo, communityRepo: communityRepo}
}

// LogActivity appends an activity entry and increments the community's
// weekly activity counter.
func (s *ActivityService) LogActivity(ctx context.Context, communityID, userID primitive.ObjectID, activityType string, targetID primitive.ObjectID, message string) error {
	activity := &models.Activity{
		CommunityID: communityID,
		UserID:      userID,
		Type:        activityType,
		TargetID:    targetID,
		Message:     message,
	}
	if err := s.activityRepo.Insert(ctx, activity); err != nil {
		logger.Log.WithError(err).Warn("Failed to log community activity")
		return err
	}
	if err := s.communityRepo.IncWeeklyActivity(ctx, communityID, 1); err != nil {
		logger.Log.WithError(err).Warn("Failed to bump weekly activity counter")
		return err
	}
	return nil
}

// GetRecentActivity returns the latest feed entries for the community.
func (s *ActivityService) GetRecentActivity(ctx context.Context, communityID primitive.ObjectID, limit int64) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.activityRepo.ListByCommunity(ctx, communityID, limit)
}
