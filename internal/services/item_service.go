package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/permissions"
	"github.com/stridehq/community-engine/internal/repository"
	"github.com/stridehq/community-engine/pkg/apperrors"
	"github.com/stridehq/community-engine/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemInput carries the fields shared by the three item creation paths.
type ItemInput struct {
	Type              string
	ParticipationType string
	Title             string
	Description       string
	Category          string
	Frequency         string
	SourceID          primitive.ObjectID
}

// ItemService owns the community item lifecycle: suggestion, direct creation,
// copy-from-personal, approval and soft removal.
type ItemService struct {
	itemRepo          repository.ItemRepository
	participationRepo repository.ParticipationRepository
	communityRepo     repository.CommunityRepository
	membershipRepo    repository.MembershipRepository
	adapter           *SourceRecordAdapter
}

// NewItemService creates a new ItemService.
func NewItemService(
	itemRepo repository.ItemRepository,
	participationRepo repository.ParticipationRepository,
	communityRepo repository.CommunityRepository,
	membershipRepo repository.MembershipRepository,
	adapter *SourceRecordAdapter,
) *ItemService {
	return &ItemService{
		itemRepo:          itemRepo,
		participationRepo: participationRepo,
		communityRepo:     communityRepo,
		membershipRepo:    membershipRepo,
		adapter:           adapter,
	}
}

func normalizeInput(input *ItemInput) error {
	switch input.Type {
	case models.ItemTypeGoal:
		if input.ParticipationType == "" {
			input.ParticipationType = models.ParticipationIndividual
		}
		if input.ParticipationType != models.ParticipationIndividual && input.ParticipationType != models.ParticipationCollaborative {
			return fmt.Errorf("invalid participation type %q", input.ParticipationType)
		}
	case models.ItemTypeHabit:
		// Habits are always individual.
		input.ParticipationType = models.ParticipationIndividual
	default:
		return fmt.Errorf("invalid item type %q", input.Type)
	}
	return nil
}

// membershipAndCommunity re-reads the caller's membership alongside the
// community; every mutation starts here.
func (s *ItemService) membershipAndCommunity(ctx context.Context, communityID, userID primitive.ObjectID) (*models.Community, *models.Membership, error) {
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
	if !membership.IsActive() {
		return nil, nil, apperrors.Forbidden("you are not an active member of this community")
	}
	return community, membership, nil
}

// SuggestItem wraps an existing personal record the creator supplies. The item
// is approved immediately when the add-item policy allows the creator to add
// that type unrestricted; otherwise it queues as pending for staff review.
func (s *ItemService) SuggestItem(ctx context.Context, userID, communityID primitive.ObjectID, input ItemInput) (*models.Item, error) {
	if err := normalizeInput(&input); err != nil {
		return nil, err
	}
	community, membership, err := s.membershipAndCommunity(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.adapter.VerifySourceOwnership(ctx, input.Type, input.SourceID, userID); err != nil {
		return nil, err
	}

	status := models.ItemPending
	if permissions.CanAddItem(community.Settings, membership, input.Type).Allowed {
		status = models.ItemApproved
	}
	return s.createItem(ctx, userID, communityID, input, input.SourceID, status)
}

// CreateOwnedItem builds a brand-new zero-progress personal record for the
// creator and wraps it. Unlike suggestion, a disallowed creation is blocked
// outright instead of queued.
func (s *ItemService) CreateOwnedItem(ctx context.Context, userID, communityID primitive.ObjectID, input ItemInput) (*models.Item, error) {
	if err := normalizeInput(&input); err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, fmt.Errorf("item title is required")
	}
	community, membership, err := s.membershipAndCommunity(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if d := permissions.CanAddItem(community.Settings, membership, input.Type); !d.Allowed {
		return nil, apperrors.Forbidden(d.Reason)
	}

	sourceID, err := s.createSourceRecord(ctx, userID, input)
	if err != nil {
		return nil, err
	}
	return s.createItem(ctx, userID, communityID, input, sourceID, models.ItemApproved)
}

// CopyFromPersonal clones an existing personal record's static fields into a
// new zero-progress record and wraps it like a direct creation. Lets a member
// contribute a template without exposing their private progress history.
func (s *ItemService) CopyFromPersonal(ctx context.Context, userID, communityID primitive.ObjectID, input ItemInput) (*models.Item, error) {
	if err := normalizeInput(&input); err != nil {
		return nil, err
	}
	community, membership, err := s.membershipAndCommunity(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if d := permissions.CanAddItem(community.Settings, membership, input.Type); !d.Allowed {
		return nil, apperrors.Forbidden(d.Reason)
	}

	var sourceID primitive.ObjectID
	switch input.Type {
	case models.ItemTypeGoal:
		clone, err := s.adapter.CloneGoalRecord(ctx, input.SourceID, userID)
		if err != nil {
			return nil, err
		}
		sourceID = clone.ID
		if input.Title == "" {
			input.Title = clone.Title
		}
		if input.Description == "" {
			input.Description = clone.Description
		}
	case models.ItemTypeHabit:
		clone, err := s.adapter.CloneHabitRecord(ctx, input.SourceID, userID)
		if err != nil {
			return nil, err
		}
		sourceID = clone.ID
		if input.Title == "" {
			input.Title = clone.Title
		}
		if input.Description == "" {
			input.Description = clone.Description
		}
	}
	return s.createItem(ctx, userID, communityID, input, sourceID, models.ItemApproved)
}

func (s *ItemService) createSourceRecord(ctx context.Context, userID primitive.ObjectID, input ItemInput) (primitive.ObjectID, error) {
	switch input.Type {
	case models.ItemTypeGoal:
		goal, err := s.adapter.CreateGoalRecord(ctx, userID, input.Title, input.Description, input.Category)
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("failed to create goal record: %w", err)
		}
		return goal.ID, nil
	default:
		frequency := input.Frequency
		if frequency == "" {
			frequency = models.FrequencyDaily
		}
		habit, err := s.adapter.CreateHabitRecord(ctx, userID, input.Title, input.Description, frequency)
		if err != nil {
			return primitive.NilObjectID, fmt.Errorf("failed to create habit record: %w", err)
		}
		return habit.ID, nil
	}
}

// createItem inserts the item plus the creator's auto-join participation row.
func (s *ItemService) createItem(ctx context.Context, userID, communityID primitive.ObjectID, input ItemInput, sourceID primitive.ObjectID, status string) (*models.Item, error) {
	item := &models.Item{
		CommunityID:       communityID,
		Type:              input.Type,
		ParticipationType: input.ParticipationType,
		SourceID:          sourceID,
		Title:             input.Title,
		Description:       input.Description,
		Status:            status,
		CreatedBy:         userID,
		Stats:             models.ItemStats{ParticipantCount: 1},
	}
	created, err := s.itemRepo.Create(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	participation := &models.Participation{
		CommunityID: communityID,
		ItemID:      created.ID,
		UserID:      userID,
		Type:        input.Type,
		Status:      models.ParticipationJoined,
		JoinedAt:    time.Now(),
	}
	if _, err := s.participationRepo.Upsert(ctx, participation); err != nil {
		return nil, fmt.Errorf("failed to auto-join creator: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"item_id":      created.ID.Hex(),
		"community_id": communityID.Hex(),
		"type":         input.Type,
		"status":       status,
	}).Info("Item created")
	return created, nil
}

// ApproveItem sets the item status and stamps the approver. Admins and
// moderators only.
func (s *ItemService) ApproveItem(ctx context.Context, itemID, approverID primitive.ObjectID, approve bool) (*models.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || !item.IsActive {
		return nil, apperrors.NotFound("item")
	}

	approver, err := s.membershipRepo.Get(ctx, item.CommunityID, approverID)
	if err != nil {
		return nil, err
	}
	if d := permissions.CanApproveItems(approver); !d.Allowed {
		return nil, apperrors.Forbidden(d.Reason)
	}
	if item.Status != models.ItemPending {
		return nil, apperrors.Conflict("item already decided")
	}

	status := models.ItemRejected
	if approve {
		status = models.ItemApproved
	}
	if err := s.itemRepo.SetStatus(ctx, itemID, status, approverID, time.Now()); err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"item_id":  itemID.Hex(),
		"approved": approve,
	}).Info("Item decided")
	return s.itemRepo.GetByID(ctx, itemID)
}

// RemoveItem soft-deactivates the item and flips every joined participation
// row to left. The underlying personal record is untouched: it still belongs
// to its creator outside the community.
func (s *ItemService) RemoveItem(ctx context.Context, itemID, requesterID primitive.ObjectID) error {
	item, err := s.itemRepo.GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil || !item.IsActive {
		return apperrors.NotFound("item")
	}

	requester, err := s.membershipRepo.Get(ctx, item.CommunityID, requesterID)
	if err != nil {
		return err
	}
	if d := permissions.CanRemoveItem(requester, item.CreatedBy == requesterID); !d.Allowed {
		return apperrors.Forbidden(d.Reason)
	}

	if err := s.itemRepo.Deactivate(ctx, itemID); err != nil {
		return err
	}
	flipped, err := s.participationRepo.LeaveAllForItem(ctx, itemID)
	if err != nil {
		return err
	}
	if flipped > 0 {
		if err := s.itemRepo.IncParticipantCount(ctx, itemID, -int(flipped)); err != nil {
			return err
		}
	}

	logger.Log.WithFields(map[string]interface{}{
		"item_id":      itemID.Hex(),
		"requester_id": requesterID.Hex(),
		"participants": flipped,
	}).Info("Item removed")
	return nil
}

// ListCommunityItems returns the community's approved active items. Admins and
// moderators also see the pending queue.
func (s *ItemService) ListCommunityItems(ctx context.Context, communityID, callerID primitive.ObjectID) ([]models.Item, error) {
	_, membership, err := s.membershipAndCommunity(ctx, communityID, callerID)
	if err != nil {
		return nil, err
	}
	includePending := membership.Role == models.RoleAdmin || membership.Role == models.RoleModerator
	return s.itemRepo.ListByCommunity(ctx, communityID, includePending)
}
