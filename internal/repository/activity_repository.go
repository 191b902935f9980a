package repository

import (
	"context"
	"time"

	"github.com/stridehq/community-engine/internal/models"
	"github.com/stridehq/community-engine/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ActivityRepository persists the append-only community activity feed.
type ActivityRepository interface {
	Insert(ctx context.Context, activity *models.Activity) error
	ListByCommunity(ctx context.Context, communityID primitive.ObjectID, limit int64) ([]models.Activity, error)
}

type mongoActivityRepository struct {
	collection *mongo.Collection
}

// NewActivityRepository creates a Mongo-backed activity repository.
func NewActivityRepository(db *mongo.Database) ActivityRepository {
	return &mongoActivityRepository{collection: db.Collection("community_activities")}
}

func (r *mongoActivityRepository) Insert(ctx context.Context, activity *models.Activity) error {
	activity.Timestamp = time.Now()
	_, err := r.collection.InsertOne(ctx, activity)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert activity")
	}
	return err
}

func (r *mongoActivityRepository) ListByCommunity(ctx context.Context, communityID primitive.ObjectID, limit int64) ([]models.Activity, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"community_id": communityID}, findOptions)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list activities")
		return nil, err
	}
	defer cursor.Close(ctx)

	var activities []models.Activity
	for cursor.Next(ctx) {
		var a models.Activity
		if err := cursor.Decode(&a); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, nil
}
