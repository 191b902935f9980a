package services

import (
	"context"
	"fmt"
	"math"

	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/internal/repository"
	"github.com/stridehq/community-engine/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceRecordAdapter is the read-only accessor over personal goal and habit
// records. It converts a record into a 0-100 personal progress number and
// provides the two write helpers the item lifecycle needs: creating a
// zero-progress record and cloning static fields from an existing one.
type SourceRecordAdapter struct {
	goalRepo  repository.GoalRepository
	habitRepo repository.HabitRepository
}

// NewSourceRecordAdapter creates a new SourceRecordAdapter.
func NewSourceRecordAdapter(goalRepo repository.GoalRepository, habitRepo repository.HabitRepository) *SourceRecordAdapter {
	return &SourceRecordAdapter{goalRepo: goalRepo, habitRepo: habitRepo}
}

// PersonalProgress computes the user's personal progress on the item.
//
// Individual goal: 100 when completed, otherwise the share of completed
// subgoals over all sub-units (subgoals plus linked habits).
// Collaborative goal: the stored contribution is carried forward untouched;
// contributions are written through an explicit update, not derived from the
// source record.
// Habit: current streak relative to the longest streak, capped at 100.
func (a *SourceRecordAdapter) PersonalProgress(ctx context.Context, item *models.Item, storedProgress int) (int, error) {
	if item.IsCollaborative() {
		return clampPercent(storedProgress), nil
	}

	switch item.Type {
	case models.ItemTypeGoal:
		goal, err := a.goalRepo.GetByID(ctx, item.SourceID)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch source goal: %w", err)
		}
		if goal == nil {
			return 0, apperrors.NotFound("source goal record")
		}
		return GoalProgress(goal), nil
	case models.ItemTypeHabit:
		habit, err := a.habitRepo.GetByID(ctx, item.SourceID)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch source habit: %w", err)
		}
		if habit == nil {
			return 0, apperrors.NotFound("source habit record")
		}
		return HabitProgress(habit), nil
	default:
		return 0, fmt.Errorf("unknown item type %q", item.Type)
	}
}

// GoalProgress converts a personal goal record into a 0-100 number.
func GoalProgress(goal *models.Goal) int {
	if goal.Completed {
		return 100
	}
	totalSubUnits := goal.SubgoalCount() + len(goal.LinkedHabitIDs)
	if totalSubUnits < 1 {
		totalSubUnits = 1
	}
	return int(math.Round(float64(goal.CompletedSubgoalCount()) / float64(totalSubUnits) * 100))
}

// HabitProgress converts a personal habit record into a 0-100 number.
func HabitProgress(habit *models.Habit) int {
	longest := habit.LongestStreak
	if longest < 1 {
		longest = 1
	}
	progress := int(math.Round(float64(habit.CurrentStreak) / float64(longest) * 100))
	if progress > 100 {
		progress = 100
	}
	return progress
}

// CreateGoalRecord builds a brand-new zero-progress goal record for the user.
func (a *SourceRecordAdapter) CreateGoalRecord(ctx context.Context, userID primitive.ObjectID, title, description, category string) (*models.Goal, error) {
	goal := &models.Goal{
		UserID:      userID,
		Title:       title,
		Description: description,
		Category:    category,
	}
	return a.goalRepo.Create(ctx, goal)
}

// CreateHabitRecord builds a brand-new zero-progress habit record for the user.
func (a *SourceRecordAdapter) CreateHabitRecord(ctx context.Context, userID primitive.ObjectID, title, description, frequency string) (*models.Habit, error) {
	habit := &models.Habit{
		UserID:      userID,
		Title:       title,
		Description: description,
		Frequency:   frequency,
	}
	return a.habitRepo.Create(ctx, habit)
}

// CloneGoalRecord copies the static fields of one of the user's own goals into
// a new record with no progress. The source's completion history stays private.
func (a *SourceRecordAdapter) CloneGoalRecord(ctx context.Context, sourceID, userID primitive.ObjectID) (*models.Goal, error) {
	source, err := a.goalRepo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, apperrors.NotFound("source goal record")
	}
	if source.UserID != userID {
		return nil, apperrors.Forbidden("you can only copy your own goal records")
	}

	var subgoals []models.Subgoal
	for _, sub := range source.Subgoals {
		subgoals = append(subgoals, models.Subgoal{Title: sub.Title, Done: false})
	}

	clone := &models.Goal{
		UserID:      userID,
		Title:       source.Title,
		Description: source.Description,
		Category:    source.Category,
		Subgoals:    subgoals,
	}
	return a.goalRepo.Create(ctx, clone)
}

// CloneHabitRecord copies the static fields of one of the user's own habits
// into a new record with zeroed streaks.
func (a *SourceRecordAdapter) CloneHabitRecord(ctx context.Context, sourceID, userID primitive.ObjectID) (*models.Habit, error) {
	source, err := a.habitRepo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, apperrors.NotFound("source habit record")
	}
	if source.UserID != userID {
		return nil, apperrors.Forbidden("you can only copy your own habit records")
	}

	clone := &models.Habit{
		UserID:      userID,
		Title:       source.Title,
		Description: source.Description,
		Frequency:   source.Frequency,
	}
	return a.habitRepo.Create(ctx, clone)
}

// VerifySourceOwnership confirms the referenced record exists and belongs to
// the user. Source records are exclusively owned, never shared.
func (a *SourceRecordAdapter) VerifySourceOwnership(ctx context.Context, itemType string, sourceID, userID primitive.ObjectID) error {
	switch itemType {
	case models.ItemTypeGoal:
		goal, err := a.goalRepo.GetByID(ctx, sourceID)
		if err != nil {
			return err
		}
		if goal == nil {
			return apperrors.NotFound("source goal record")
		}
		if goal.UserID != userID {
			return apperrors.Forbidden("source record belongs to another user")
		}
	case models.ItemTypeHabit:
		habit, err := a.habitRepo.GetByID(ctx, sourceID)
		if err != nil {
			return err
		}
		if habit == nil {
			return apperrors.NotFound("source habit record")
		}
		if habit.UserID != userID {
			return apperrors.Forbidden("source record belongs to another user")
		}
	default:
		return fmt.Errorf("unknown item type %q", itemType)
	}
	return nil
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
