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

// GoalRepository persists personal goal records. The engine consumes them
// read-only for progress and writes only brand-new zero-progress records.
type GoalRepository interface {
	Create(ctx context.Context, goal *models.Goal) (*models.Goal, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Goal, error)
}

type mongoGoalRepository struct {
	collection *mongo.Collection
}

// NewGoalRepository creates a Mongo-backed goal repository.
func NewGoalRepository(db *mongo.Database) GoalRepository {
	return &mongoGoalRepository{collection: db.Collection("goals")}
}

func (r *mongoGoalRepository) Create(ctx context.Context, goal *models.Goal) (*models.Goal, error) {
	now := time.Now()
	goal.CreatedAt = now
	goal.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, goal)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert goal")
		return nil, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.New("failed to cast inserted goal ID")
	}
	goal.ID = insertedID
	return goal, nil
}

func (r *mongoGoalRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Goal, error) {
	var goal models.Goal
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&goal)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		logger.Log.WithError(err).WithField("goal_id", id.Hex()).Error("Failed to find goal")
		return nil, err
	}
	return &goal, nil
}
