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

// MembershipRepository persists the (community, user) relationship. The pair
// is unique; joins and decisions flip the status of the single row instead of
// inserting new history.
type MembershipRepository interface {
	Get(ctx context.Context, communityID, userID primitive.ObjectID) (*models.Membership, error)
	Upsert(ctx context.Context, membership *models.Membership) (*models.Membership, error)
	UpdateStatus(ctx context.Context, communityID, userID primitive.ObjectID, status string, decidedBy *primitive.ObjectID) error
	ListByStatus(ctx context.Context, communityID primitive.ObjectID, status string) ([]models.Membership, error)
	CountActiveByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type mongoMembershipRepository struct {
	collection *mongo.Collection
}

// NewMembershipRepository creates a Mongo-backed membership repository.
func NewMembershipRepository(db *mongo.Database) MembershipRepository {
	return &mongoMembershipRepository{collection: db.Collection("memberships")}
}

func (r *mongoMembershipRepository) Get(ctx context.Context, communityID, userID primitive.ObjectID) (*models.Membership, error) {
	var membership models.Membership
	err := r.collection.FindOne(ctx, bson.M{"community_id": communityID, "user_id": userID}).Decode(&membership)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		logger.Log.WithError(err).Error("Failed to find membership")
		return nil, err
	}
	return &membership, nil
}

// Upsert writes the membership keyed on the unique (community, user) pair.
// Concurrent duplicate joins resolve through the upsert instead of surfacing
// a conflict.
func (r *mongoMembershipRepository) Upsert(ctx context.Context, membership *models.Membership) (*models.Membership, error) {
	membership.UpdatedAt = time.Now()
	filter := bson.M{"community_id": membership.CommunityID, "user_id": membership.UserID}
	update := bson.M{
		"$set": bson.M{
			"role":       membership.Role,
			"status":     membership.Status,
			"updated_at": membership.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"community_id": membership.CommunityID,
			"user_id":      membership.UserID,
			"joined_at":    membership.JoinedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to upsert membership")
		return nil, err
	}
	return r.Get(ctx, membership.CommunityID, membership.UserID)
}

func (r *mongoMembershipRepository) UpdateStatus(ctx context.Context, communityID, userID primitive.ObjectID, status string, decidedBy *primitive.ObjectID) error {
	set := bson.M{"status": status, "updated_at": time.Now()}
	if decidedBy != nil {
		set["decided_by"] = decidedBy
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"community_id": communityID, "user_id": userID},
		bson.M{"$set": set},
	)
	if err != nil {
		logger.Log.WithError(err).WithField("status", status).Error("Failed to update membership status")
	}
	return err
}

func (r *mongoMembershipRepository) ListByStatus(ctx context.Context, communityID primitive.ObjectID, status string) ([]models.Membership, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"community_id": communityID, "status": status})
	if err != nil {
		logger.Log.WithError(err).Error("Failed to list memberships")
		return nil, err
	}
	defer cursor.Close(ctx)

	var memberships []models.Membership
	for cursor.Next(ctx) {
		var m models.Membership
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, nil
}

func (r *mongoMembershipRepository) CountActiveByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "status": models.MembershipActive})
}
