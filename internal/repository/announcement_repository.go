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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AnnouncementRepository persists community announcements.
type AnnouncementRepository interface {
	Create(ctx context.Context, a *models.Announcement) (*models.Announcement, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error)
	ListActive(ctx context.Context, communityID primitive.ObjectID) ([]models.Announcement, error)
	SetPinned(ctx context.Context, id primitive.ObjectID, pinned bool) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

type mongoAnnouncementRepository struct {
	collection *mongo.Collection
}

// NewAnnouncementRepository creates a Mongo-backed announcement repository.
func NewAnnouncementRepository(db *mongo.Database) AnnouncementRepository {
	return &mongoAnnouncementRepository{collection: db.Collection("announcements")}
}

func (r *mongoAnnouncementRepository) Create(ctx context.Context, a *models.Announcement) (*models.Announcement, error) {
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.IsActive = true

	result, err := r.collection.InsertOne(ctx, a)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert announcement")
		return nil, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.New("failed to cast inserted announcement ID")
	}
	a.ID = insertedID
	return a, nil
}

func (r *mongoAnnouncementRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Announcement, error) {
	var a models.Announcement
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *mongoAnnouncementRepository) ListActive(ctx context.Context, communityID primitive.ObjectID) ([]models.Announcement, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "is_pinned", Value: -1}, {Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"community_id": communityID, "is_active": true}, findOptions)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list announcements")
		return nil, err
	}
	defer cursor.Close(ctx)

	var announcements []models.Announcement
	for cursor.Next(ctx) {
		var a models.Announcement
		if err := cursor.Decode(&a); err != nil {
			return nil, err
		}
		announcements = append(announcements, a)
	}
	return announcements, nil
}

func (r *mongoAnnouncementRepository) SetPinned(ctx context.Context, id primitive.ObjectID, pinned bool) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_pinned": pinned, "updated_at": time.Now()},
	})
	return err
}

func (r *mongoAnnouncementRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now()},
	})
	return err
}
