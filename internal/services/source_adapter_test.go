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

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name string
		goal models.Goal
		want int
	}{
		{
			name: "completed goal is always 100",
			goal: models.Goal{Completed: true},
			want: 100,
		},
		{
			name: "no sub-units and not completed",
			goal: models.Goal{},
			want: 0,
		},
		{
			name: "one of two subgoals done",
			goal: models.Goal{Subgoals: []models.Subgoal{
				{Done: true},
				{Done: false},
			}},
			want: 50,
		},
		{
			name: "two of three subgoals done rounds up",
			goal: models.Goal{Subgoals: []models.Subgoal{
				{Done: true},
				{Done: true},
				{Done: false},
			}},
			want: 67,
		},
		{
			name: "linked habits widen the denominator",
			goal: models.Goal{
				Subgoals:       []models.Subgoal{{Done: true}},
				LinkedHabitIDs: []primitive.ObjectID{primitive.NewObjectID()},
			},
			want: 50,
		},
		{
			name: "all subgoals done but not marked completed",
			goal: models.Goal{Subgoals: []models.Subgoal{
				{Done: true},
				{Done: true},
			}},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goal := tt.goal
			assert.Equal(t, tt.want, GoalProgress(&goal))
		})
	}
}

func TestHabitProgress(t *testing.T) {
	tests := []struct {
		name    string
		current int
		longest int
		want    int
	}{
		{"half the longest streak", 3, 6, 50},
		{"matching the longest streak", 6, 6, 100},
		{"streak exceeding the recorded longest caps at 100", 8, 5, 100},
		{"no streak yet", 0, 0, 0},
		{"first day with no history", 1, 0, 100},
		{"rounds to nearest", 1, 3, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			habit := &models.Habit{CurrentStreak: tt.current, LongestStreak: tt.longest}
			assert.Equal(t, tt.want, HabitProgress(habit))
		})
	}
}

func TestPersonalProgressCollaborativePassthrough(t *testing.T) {
	adapter := NewSourceRecordAdapter(newFakeGoalRepo(), newFakeHabitRepo())
	item := &models.Item{
		Type:              models.ItemTypeGoal,
		ParticipationType: models.ParticipationCollaborative,
	}

	got, err := adapter.PersonalProgress(context.Background(), item, 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	// Stored values outside [0, 100] are clamped, never propagated.
	got, err = adapter.PersonalProgress(context.Background(), item, 250)
	require.NoError(t, err)
	assert.Equal(t, 100, got)
}

func TestPersonalProgressMissingSource(t *testing.T) {
	adapter := NewSourceRecordAdapter(newFakeGoalRepo(), newFakeHabitRepo())
	item := &models.Item{
		Type:              models.ItemTypeGoal,
		ParticipationType: models.ParticipationIndividual,
		SourceID:          primitive.NewObjectID(),
	}

	_, err := adapter.PersonalProgress(context.Background(), item, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCloneGoalRecordOwnership(t *testing.T) {
	goals := newFakeGoalRepo()
	adapter := NewSourceRecordAdapter(goals, newFakeHabitRepo())
	ctx := context.Background()

	owner := primitive.NewObjectID()
	source, err := goals.Create(ctx, &models.Goal{UserID: owner, Title: "Mine"})
	require.NoError(t, err)

	_, err = adapter.CloneGoalRecord(ctx, source.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	clone, err := adapter.CloneGoalRecord(ctx, source.ID, owner)
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, clone.ID)
	assert.Equal(t, "Mine", clone.Title)
}

func TestCloneHabitRecordZeroesStreaks(t *testing.T) {
	habits := newFakeHabitRepo()
	adapter := NewSourceRecordAdapter(newFakeGoalRepo(), habits)
	ctx := context.Background()

	owner := primitive.NewObjectID()
	source, err := habits.Create(ctx, &models.Habit{
		UserID:        owner,
		Title:         "Journal",
		Frequency:     models.FrequencyWeekly,
		CurrentStreak: 9,
		LongestStreak: 14,
	})
	require.NoError(t, err)

	clone, err := adapter.CloneHabitRecord(ctx, source.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.FrequencyWeekly, clone.Frequency)
	assert.Zero(t, clone.CurrentStreak)
	assert.Zero(t, clone.LongestStreak)
}

func TestVerifySourceOwnership(t *testing.T) {
	goals := newFakeGoalRepo()
	habits := newFakeHabitRepo()
	adapter := NewSourceRecordAdapter(goals, habits)
	ctx := context.Background()

	owner := primitive.NewObjectID()
	goal, err := goals.Create(ctx, &models.Goal{UserID: owner})
	require.NoError(t, err)
	habit, err := habits.Create(ctx, &models.Habit{UserID: owner})
	require.NoError(t, err)

	assert.NoError(t, adapter.VerifySourceOwnership(ctx, models.ItemTypeGoal, goal.ID, owner))
	assert.NoError(t, adapter.VerifySourceOwnership(ctx, models.ItemTypeHabit, habit.ID, owner))

	err = adapter.VerifySourceOwnership(ctx, models.ItemTypeGoal, goal.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	err = adapter.VerifySourceOwnership(ctx, models.ItemTypeGoal, primitive.NewObjectID(), owner)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = adapter.VerifySourceOwnership(ctx, "chore", goal.ID, owner)
	assert.Error(t, err)
}

func TestAggregateCommunityProgressTable(t *testing.T) {
	collaborative := &models.Item{Type: models.ItemTypeGoal, ParticipationType: models.ParticipationCollaborative}
	individual := &models.Item{Type: models.ItemTypeGoal, ParticipationType: models.ParticipationIndividual}

	rows := func(values ...int) []models.Participation {
		out := make([]models.Participation, 0, len(values))
		for _, v := range values {
			out = append(out, models.Participation{Status: models.ParticipationJoined, ProgressPercent: v})
		}
		return out
	}

	tests := []struct {
		name   string
		item   *models.Item
		joined []models.Participation
		want   int
	}{
		{"collaborative sums below target", collaborative, rows(25, 30), 55},
		{"collaborative caps at 100", collaborative, rows(40, 70), 100},
		{"collaborative single contributor", collaborative, rows(80), 80},
		{"individual averages", individual, rows(0, 100), 50},
		{"individual rounds the mean", individual, rows(33, 33, 34), 33},
		{"no participants", individual, nil, 0},
		{"collaborative no participants", collaborative, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AggregateCommunityProgress(tt.item, tt.joined))
		})
	}
}
