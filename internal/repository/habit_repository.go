package repository

import (
	"context"
	"errors"
	"time"

	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// HabitRepository persists personal habit records, consumed read-only for
// streak-based progress.
type HabitRepository interface {
	Create(ctx context.Context, habit *models.Habit) (*models.Habit, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Habit, error)
}

type mongoHabitRepository struct {
	collection *mongo.Collection
}

// NewHabitRepository creates a Mongo-backed habit repository.
func NewHabitRepository(db *mongo.Database) HabitRepository {
	return &mongoHabitRepository{collection: db.Collection("habits")}
}

func (r *mongoHabitRepository) Create(ctx context.Context, habit *models.Habit) (*models.Habit, error) {
	now := time.Now()
	habit.CreatedAt = now
	habit.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, habit)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert habit")
		return nil, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.New("failed to cast inserted habit ID")
	}
	habit.ID = insertedID
	return habit, nil
}

func (r *mongoHabitRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Habit, error) {
	var habit models.Habit
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&habit)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		logger.Log.WithError(err).WithField("habit_id", id.Hex()).Error("Failed to find habit")
		return nil, err
	}
	return &habit, nil
}
