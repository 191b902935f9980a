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

// ItemRepository persists community items. Removal is soft: is_active flips
// to false, the row stays.
type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) (*models.Item, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string, approvedBy primitive.ObjectID, approvedAt time.Time) error
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	IncParticipantCount(ctx context.Context, id primitive.ObjectID, delta int) error
	ListByCommunity(ctx context.Context, communityID primitive.ObjectID, includePending bool) ([]models.Item, error)
	ListActiveApprovedByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Item, error)
}

type mongoItemRepository struct {
	collection *mongo.Collection
}

// NewItemRepository creates a Mongo-backed item repository.
func NewItemRepository(db *mongo.Database) ItemRepository {
	return &mongoItemRepository{collection: db.Collection("community_items")}
}

func (r *mongoItemRepository) Create(ctx context.Context, item *models.Item) (*models.Item, error) {
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.IsActive = true

	result, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert item")
		return nil, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, errors.New("failed to cast inserted item ID")
	}
	item.ID = insertedID

	logger.Log.WithField("item_id", item.ID.Hex()).Info("Item created")
	return item, nil
}

func (r *mongoItemRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	var item models.Item
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		logger.Log.WithError(err).WithField("item_id", id.Hex()).Error("Failed to find item")
		return nil, err
	}
	return &item, nil
}

func (r *mongoItemRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status string, approvedBy primitive.ObjectID, approvedAt time.Time) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":      status,
			"approved_by": approvedBy,
			"approved_at": approvedAt,
			"updated_at":  time.Now(),
		},
	})
	if err != nil {
		logger.Log.WithError(err).WithField("item_id", id.Hex()).Error("Failed to set item status")
	}
	return err
}

func (r *mongoItemRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_active": false, "updated_at": time.Now()},
	})
	return err
}

func (r *mongoItemRepository) IncParticipantCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stats.participant_count": delta},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		logger.Log.WithError(err).WithField("item_id", id.Hex()).Error("Failed to increment participant count")
	}
	return err
}

func (r *mongoItemRepository) ListByCommunity(ctx context.Context, communityID primitive.ObjectID, includePending bool) ([]models.Item, error) {
	filter := bson.M{"community_id": communityID, "is_active": true}
	if includePending {
		filter["status"] = bson.M{"$in": []string{models.ItemApproved, models.ItemPending}}
	} else {
		filter["status"] = models.ItemApproved
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list community items")
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.Item
	for cursor.Next(ctx) {
		var item models.Item
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *mongoItemRepository) ListActiveApprovedByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{
		"_id":       bson.M{"$in": ids},
		"status":    models.ItemApproved,
		"is_active": true,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []models.Item
	for cursor.Next(ctx) {
		var item models.Item
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
