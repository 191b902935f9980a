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

// CommunityRepository persists communities and their denormalized stats
// counters. Counter methods apply atomic $inc updates, never read-modify-write.
type CommunityRepository interface {
	CreateWithOwner(ctx context.Context, community *models.Community, owner *models.Membership) (*models.Community, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Community, error)
	UpdateSettings(ctx context.Context, id primitive.ObjectID, settings models.CommunitySettings) error
	UpdateImages(ctx context.Context, id primitive.ObjectID, imageURL, bannerURL string) error
	IncMemberCount(ctx context.Context, id primitive.ObjectID, delta int) error
	IncTotalPoints(ctx context.Context, id primitive.ObjectID, delta int) error
	IncWeeklyActivity(ctx context.Context, id primitive.ObjectID, delta int) error
	SetCompletionRate(ctx context.Context, id primitive.ObjectID, rate float64) error
	CountOwnedActive(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type mongoCommunityRepository struct {
	collection  *mongo.Collection
	memberships *mongo.Collection
}

// NewCommunityRepository creates a Mongo-backed community repository.
func NewCommunityRepository(db *mongo.Database) CommunityRepository {
	return &mongoCommunityRepository{
		collection:  db.Collection("communities"),
		memberships: db.Collection("memberships"),
	}
}

// CreateWithOwner inserts the community and its first admin membership in one
// session transaction: a community without its owning membership is an
// invariant violation, so a partial write must roll back as a unit.
func (r *mongoCommunityRepository) CreateWithOwner(ctx context.Context, community *models.Community, owner *models.Membership) (*models.Community, error) {
	now := time.Now()
	community.CreatedAt = now
	community.UpdatedAt = now

	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		logger.Log.WithError(err).Error("Failed to start session for community creation")
		return nil, err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		result, err := r.collection.InsertOne(sc, community)
		if err != nil {
			return nil, err
		}
		insertedID, ok := result.InsertedID.(primitive.ObjectID)
		if !ok {
			return nil, errors.New("failed to cast inserted community ID")
		}
		community.ID = insertedID

		owner.CommunityID = insertedID
		owner.JoinedAt = now
		owner.UpdatedAt = now
		memberResult, err := r.memberships.InsertOne(sc, owner)
		if err != nil {
			return nil, err
		}
		if memberID, ok := memberResult.InsertedID.(primitive.ObjectID); ok {
			owner.ID = memberID
		}
		return nil, nil
	})
	if err != nil {
		logger.Log.WithError(err).Error("Community creation transaction failed")
		return nil, err
	}

	logger.Log.WithField("community_id", community.ID.Hex()).Info("Community created with owner membership")
	return community, nil
}

func (r *mongoCommunityRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Community, error) {
	var community models.Community
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&community)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		logger.Log.WithError(err).WithField("community_id", id.Hex()).Error("Failed to find community")
		return nil, err
	}
	return &community, nil
}

func (r *mongoCommunityRepository) UpdateSettings(ctx context.Context, id primitive.ObjectID, settings models.CommunitySettings) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"settings": settings, "updated_at": time.Now()},
	})
	return err
}

func (r *mongoCommunityRepository) UpdateImages(ctx context.Context, id primitive.ObjectID, imageURL, bannerURL string) error {
	set := bson.M{"updated_at": time.Now()}
	if imageURL != "" {
		set["image_url"] = imageURL
	}
	if bannerURL != "" {
		set["banner_url"] = bannerURL
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (r *mongoCommunityRepository) IncMemberCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	return r.incStat(ctx, id, "stats.member_count", delta)
}

func (r *mongoCommunityRepository) IncTotalPoints(ctx context.Context, id primitive.ObjectID, delta int) error {
	return r.incStat(ctx, id, "stats.total_points", delta)
}

func (r *mongoCommunityRepository) IncWeeklyActivity(ctx context.Context, id primitive.ObjectID, delta int) error {
	return r.incStat(ctx, id, "stats.weekly_activity_count", delta)
}

func (r *mongoCommunityRepository) incStat(ctx context.Context, id primitive.ObjectID, field string, delta int) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		logger.Log.WithError(err).WithField("community_id", id.Hex()).Errorf("Failed to increment %s", field)
	}
	return err
}

func (r *mongoCommunityRepository) SetCompletionRate(ctx context.Context, id primitive.ObjectID, rate float64) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"stats.completion_rate": rate, "updated_at": time.Now()},
	})
	return err
}

func (r *mongoCommunityRepository) CountOwnedActive(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"owner_id": userID, "is_active": true})
}
