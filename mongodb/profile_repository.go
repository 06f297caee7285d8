package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultProfileListLimit = 200

// ProfileRepositoryMongo implements domain.ProfileRepository.
type ProfileRepositoryMongo struct {
	collection *mongo.Collection
}

func NewProfileRepositoryMongo(ctx context.Context, db *mongo.Database) (*ProfileRepositoryMongo, error) {
	repo := &ProfileRepositoryMongo{collection: db.Collection(ProfilesCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create influencer_profiles indexes")
	}
	return repo, nil
}

func (r *ProfileRepositoryMongo) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "location", Value: 1}}},
		{Keys: bson.D{{Key: "is_public", Value: 1}, {Key: "approved", Value: 1}}},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for %s collection: %w", ProfilesCollection, err)
	}
	return nil
}

func (r *ProfileRepositoryMongo) GetProfileByUser(ctx context.Context, userID string) (*domain.InfluencerProfile, error) {
	var profile domain.InfluencerProfile
	if err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&profile); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.NewNotFound("profile", userID)
		}
		log.Error().Err(err).Str("userID", userID).Msg("Error getting influencer profile")
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepositoryMongo) ListPublicProfiles(ctx context.Context, f domain.ProfileFilter) ([]*domain.InfluencerProfile, error) {
	filter := bson.M{"is_public": true, "approved": true}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Location != "" {
		filter["location"] = bson.Regex{Pattern: regexp.QuoteMeta(f.Location), Options: "i"}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultProfileListLimit
	}

	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Msg("Error listing public profiles")
		return nil, err
	}
	defer cursor.Close(ctx)

	profiles := make([]*domain.InfluencerProfile, 0)
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *ProfileRepositoryMongo) EnsureProfile(ctx context.Context, userID string) error {
	ts := now()
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        NewObjectID(),
		"user_id":    userID,
		"is_public":  false,
		"approved":   false,
		"created_at": ts,
		"updated_at": ts,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		log.Error().Err(err).Str("userID", userID).Msg("Error ensuring influencer profile")
		return err
	}
	return nil
}

var _ domain.ProfileRepository = (*ProfileRepositoryMongo)(nil)
