package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/repository"
	"github.com/stridehq/community-engine/pkg/apperrors"
	"github.com/stridehq/community-engine/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemProgress is the result of a progress read: the caller's own progress
// and the community-wide aggregate.
type ItemProgress struct {
	Personal  int `json:"personal"`
	Community int `json:"community"`
}

// ProgressService owns participation rows and computes community-wide
// progress from them, pulling personal progress through the source record
// adapter. State is recomputed on every read; nothing is pushed.
type ProgressService struct {
	itemRepo          repository.ItemRepository
	participationRepo repository.ParticipationRepository
	communityRepo     repository.CommunityRepository
	membershipRepo    repository.MembershipRepository
	adapter           *SourceRecordAdapter
}

// NewProgressService creates a new ProgressService.
func NewProgressService(
	itemRepo repository.ItemRepository,
	participationRepo repository.ParticipationRepository,
	communityRepo repository.CommunityRepository,
	membershipRepo repository.MembershipRepository,
	adapter *SourceRecordAdapter,
) *ProgressService {
	return &ProgressService{
		itemRepo:          itemRepo,
		participationRepo: participationRepo,
		communityRepo:     communityRepo,
		membershipRepo:    membershipRepo,
		adapter:           adapter,
	}
}

// getJoinableItem fetches the item and checks it is approved, active and
// belongs to the given community.
func (s *ProgressService) getJoinableItem(ctx context.Context, communityID, itemID primitive.ObjectID) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.CommunityID != communityID || !item.IsJoinable() {
		return nil, apperrors.NotFound("item")
	}
	return item, nil
}

func (s *ProgressService) requireActiveMember(ctx context.Context, communityID, userID primitive.ObjectID) error {
	membership, err := s.membershipRepo.Get(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if !membership.IsActive() {
		return apperrors.Forbidden("you are not an active member of this community")
	}
	return nil
}

// JoinItem upserts a joined participation row for the user and increments the
// item's participant counter. Joining an item the user is already joined on is
// a no-op: the row is keyed on the unique (community, item, user) triple.
func (s *ProgressService) JoinItem(ctx context.Context, userID, communityID, itemID primitive.ObjectID) (*models.Participation, error) {
	item, err := s.getJoinableItem(ctx, communityID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveMember(ctx, communityID, userID); err != nil {
		return nil, err
	}

	existing, err := s.participationRepo.Get(ctx, communityID, itemID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == models.ParticipationJoined {
		return existing, nil
	}

	participation := &models.Participation{
		CommunityID: communityID,
		ItemID:      itemID,
		UserID:      userID,
		Type:        item.Type,
		Status:      models.ParticipationJoined,
		JoinedAt:    time.Now(),
	}
	if existing != nil {
		// Re-joining keeps the previously recorded snapshot.
		participation.ProgressPercent = existing.ProgressPercent
	}
	saved, err := s.participationRepo.Upsert(ctx, participation)
	if err != nil {
		return nil, fmt.Errorf("failed to join item: %w", err)
	}
	if err := s.itemRepo.IncParticipantCount(ctx, itemID, 1); err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"item_id": itemID.Hex(),
		"user_id": userID.Hex(),
	}).Info("User joined item")
	return saved, nil
}

// LeaveItem flips the user's joined row to left and decrements the counter.
// No-op when not currently joined.
func (s *ProgressService) LeaveItem(ctx context.Context, userID, communityID, itemID primitive.ObjectID) error {
	existing, err := s.participationRepo.Get(ctx, communityID, itemID, userID)
	if err != nil {
		return err
	}
	if existing == nil || existing.Status != models.ParticipationJoined {
		return nil
	}

	existing.Status = models.ParticipationLeft
	if _, err := s.participationRepo.Upsert(ctx, existing); err != nil {
		return err
	}
	if err := s.itemRepo.IncParticipantCount(ctx, itemID, -1); err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"item_id": itemID.Hex(),
		"user_id": userID.Hex(),
	}).Info("User left item")
	return nil
}

// GetItemProgress computes the caller's personal progress and the
// community-wide aggregate for the item, then persists the fresh personal
// snapshot back into the caller's participation row.
//
// Collaborative goals sum every joined contribution toward one shared target,
// capped at 100. Everything else averages the joined participants' personal
// values, 0 when nobody joined.
func (s *ProgressService) GetItemProgress(ctx context.Context, userID, communityID, itemID primitive.ObjectID) (*ItemProgress, error) {
	item, err := s.getJoinableItem(ctx, communityID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.requireActiveMember(ctx, communityID, userID); err != nil {
		return nil, err
	}

	existing, err := s.participationRepo.Get(ctx, communityID, itemID, userID)
	if err != nil {
		return nil, err
	}
	stored := 0
	if existing != nil {
		stored = existing.ProgressPercent
	}

	personal, err := s.adapter.PersonalProgress(ctx, item, stored)
	if err != nil {
		return nil, err
	}

	joined, err := s.participationRepo.ListJoinedByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	community := AggregateCommunityProgress(item, joined)

	if err := s.persistSnapshot(ctx, item, existing, userID, personal); err != nil {
		return nil, err
	}

	// First time this participant crosses the finish line on an approved
	// item, the community earns a point.
	if personal >= 100 && stored < 100 {
		if err := s.communityRepo.IncTotalPoints(ctx, communityID, 1); err != nil {
			logger.Log.WithError(err).Warn("Failed to award completion point")
		}
	}

	return &ItemProgress{Personal: personal, Community: community}, nil
}

// AggregateCommunityProgress folds the joined participation rows into the
// community-wide number. Collaborative goals: min(100, sum). Individual goals
// and habits: rounded mean, 0 with no participants.
func AggregateCommunityProgress(item *models.Item, joined []models.Participation) int {
	if len(joined) == 0 {
		return 0
	}
	if item.IsCollaborative() {
		sum := 0
		for _, row := range joined {
			sum += row.ProgressPercent
		}
		if sum > 100 {
			return 100
		}
		return sum
	}

	total := 0.0
	for _, row := range joined {
		total += float64(row.ProgressPercent)
	}
	return int(math.Round(total / float64(len(joined))))
}

// persistSnapshot writes the fresh personal value back into the caller's
// participation row. A missing row is created as joined; a left row keeps its
// status so a progress read never re-joins anyone.
func (s *ProgressService) persistSnapshot(ctx context.Context, item *models.Item, existing *models.Participation, userID primitive.ObjectID, personal int) error {
	if existing != nil {
		return s.participationRepo.SetProgress(ctx, item.CommunityID, item.ID, userID, personal)
	}

	participation := &models.Participation{
		CommunityID:     item.CommunityID,
		ItemID:          item.ID,
		UserID:          userID,
		Type:            item.Type,
		Status:          models.ParticipationJoined,
		ProgressPercent: personal,
		JoinedAt:        time.Now(),
	}
	if _, err := s.participationRepo.Upsert(ctx, participation); err != nil {
		return err
	}
	return s.itemRepo.IncParticipantCount(ctx, item.ID, 1)
}

// UpdateContribution records a collaborative contribution. This is the
// explicit write path for collaborative personal progress, which is otherwise
// carried forward untouched on reads.
func (s *ProgressService) UpdateContribution(ctx context.Context, userID, communityID, itemID primitive.ObjectID, amount int) (*models.Participation, error) {
	item, err := s.getJoinableItem(ctx, communityID, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsCollaborative() {
		return nil, apperrors.Conflict("contributions only apply to collaborative goals")
	}

	existing, err := s.participationRepo.Get(ctx, communityID, itemID, userID)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.Status != models.ParticipationJoined {
		return nil, apperrors.Forbidden("join the item before contributing")
	}

	if err := s.participationRepo.SetProgress(ctx, communityID, itemID, userID, clampPercent(amount)); err != nil {
		return nil, err
	}
	return s.participationRepo.Get(ctx, communityID, itemID, userID)
}

// ListMyJoinedItems denormalizes the user's joined participation rows into a
// feed-ready shape. Rows whose item or community fell out of approved/active
// are omitted, treated as implicitly left.
func (s *ProgressService) ListMyJoinedItems(ctx context.Context, userID primitive.ObjectID) ([]models.JoinedItem, error) {
	rows, err := s.participationRepo.ListJoinedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []models.JoinedItem{}, nil
	}

	itemIDs := make([]primitive.ObjectID, 0, len(rows))
	for _, row := range rows {
		itemIDs = append(itemIDs, row.ItemID)
	}
	items, err := s.itemRepo.ListActiveApprovedByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	itemsByID := make(map[primitive.ObjectID]models.Item, len(items))
	for _, item := range items {
		itemsByID[item.ID] = item
	}

	communities := make(map[primitive.ObjectID]*models.Community)
	feed := make([]models.JoinedItem, 0, len(rows))
	for _, row := range rows {
		item, ok := itemsByID[row.ItemID]
		if !ok {
			continue
		}
		community, seen := communities[row.CommunityID]
		if !seen {
			community, err = s.communityRepo.GetByID(ctx, row.CommunityID)
			if err != nil {
				return nil, err
			}
			communities[row.CommunityID] = community
		}
		if community == nil || !community.IsActive {
			continue
		}
		feed = append(feed, models.JoinedItem{
			Participation: row,
			Item:          item,
			CommunityName: community.Name,
		})
	}
	return feed, nil
}
