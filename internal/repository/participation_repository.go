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

// ParticipationRepository persists per-user participation rows keyed on the
// unique (community, item, user) triple. Rows are upserted, never deleted.
type ParticipationRepository interface {
	Get(ctx context.Context, communityID, itemID, userID primitive.ObjectID) (*models.Participation, error)
	Upsert(ctx context.Context, p *models.Participation) (*models.Participation, error)
	SetProgress(ctx context.Context, communityID, itemID, userID primitive.ObjectID, progress int) error
	ListJoinedByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.Participation, error)
	ListJoinedByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Participation, error)
	ListJoinedByCommunity(ctx context.Context, communityID primitive.ObjectID) ([]models.Participation, error)
	LeaveAllForItem(ctx context.Context, itemID primitive.ObjectID) (int64, error)
}

type mongoParticipationRepository struct {
	collection *mongo.Collection
}

// NewParticipationRepository creates a Mongo-backed participation repository.
func NewParticipationRepository(db *mongo.Database) ParticipationRepository {
	return &mongoParticipationRepository{collection: db.Collection("participations")}
}

func tripleFilter(communityID, itemID, userID primitive.ObjectID) bson.M {
	return bson.M{"community_id": communityID, "item_id": itemID, "user_id": userID}
}

func (r *mongoParticipationRepository) Get(ctx context.Context, communityID, itemID, userID primitive.ObjectID) (*models.Participation, error) {
	var p models.Participation
	err := r.collection.FindOne(ctx, tripleFilter(communityID, itemID, userID)).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		logger.Log.WithError(err).Error("Failed to find participation")
		return nil, err
	}
	return &p, nil
}

func (r *mongoParticipationRepository) Upsert(ctx context.Context, p *models.Participation) (*models.Participation, error) {
	p.LastUpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"type":             p.Type,
			"status":           p.Status,
			"progress_percent": p.ProgressPercent,
			"last_updated_at":  p.LastUpdatedAt,
		},
		"$setOnInsert": bson.M{
			"community_id": p.CommunityID,
			"item_id":      p.ItemID,
			"user_id":      p.UserID,
			"joined_at":    p.JoinedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, tripleFilter(p.CommunityID, p.ItemID, p.UserID), update, options.Update().SetUpsert(true))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to upsert participation")
		return nil, err
	}
	return r.Get(ctx, p.CommunityID, p.ItemID, p.UserID)
}

func (r *mongoParticipationRepository) SetProgress(ctx context.Context, communityID, itemID, userID primitive.ObjectID, progress int) error {
	_, err := r.collection.UpdateOne(ctx, tripleFilter(communityID, itemID, userID), bson.M{
		"$set": bson.M{"progress_percent": progress, "last_updated_at": time.Now()},
	})
	return err
}

func (r *mongoParticipationRepository) ListJoinedByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.Participation, error) {
	return r.list(ctx, bson.M{"item_id": itemID, "status": models.ParticipationJoined})
}

func (r *mongoParticipationRepository) ListJoinedByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Participation, error) {
	return r.list(ctx, bson.M{"user_id": userID, "status": models.ParticipationJoined})
}

func (r *mongoParticipationRepository) ListJoinedByCommunity(ctx context.Context, communityID primitive.ObjectID) ([]models.Participation, error) {
	return r.list(ctx, bson.M{"community_id": communityID, "status": models.ParticipationJoined})
}

func (r *mongoParticipationRepository) list(ctx context.Context, filter bson.M) ([]models.Participation, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list participations")
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []models.Participation
	for cursor.Next(ctx) {
		var p models.Participation
		if err := cursor.Decode(&p); err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
	return rows, nil
}

// LeaveAllForItem flips every joined row on the item to left and returns how
// many rows changed, so the caller can settle the participant counter.
func (r *mongoParticipationRepository) LeaveAllForItem(ctx context.Context, itemID primitive.ObjectID) (int64, error) {
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"item_id": itemID, "status": models.ParticipationJoined},
		bson.M{"$set": bson.M{"status": models.ParticipationLeft, "last_updated_at": time.Now()}},
	)
	if err != nil {
		logger.Log.WithError(err).WithField("item_id", itemID.Hex()).Error("Failed to cascade leave")
		return 0, err
	}
	return result.ModifiedCount, nil
}
