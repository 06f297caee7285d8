package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/pilab-dev/creator-insights/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MediaRepositoryMongo implements domain.MediaRepository.
type MediaRepositoryMongo struct {
	collection *mongo.Collection
}

func NewMediaRepositoryMongo(ctx context.Context, db *mongo.Database) (*MediaRepositoryMongo, error) {
	repo := &MediaRepositoryMongo{collection: db.Collection(MediaCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create media indexes")
	}
	return repo, nil
}

func (r *MediaRepositoryMongo) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "media_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for %s collection: %w", MediaCollection, err)
	}
	return nil
}

// UpsertMedia writes the item keyed by platform media id. Reach and impressions
// are only overwritten when the new value carries them.
func (r *MediaRepositoryMongo) UpsertMedia(ctx context.Context, m *domain.Media) error {
	ts := now()
	set := bson.M{
		"account_id":     m.AccountID,
		"media_type":     m.MediaType,
		"media_url":      m.MediaURL,
		"thumbnail_url":  m.ThumbnailURL,
		"permalink":      m.Permalink,
		"caption":        m.Caption,
		"like_count":     m.LikeCount,
		"comments_count": m.CommentsCount,
		"share_count":    m.ShareCount,
		"saved_count":    m.SavedCount,
		"timestamp":      m.Timestamp.UTC(),
		"updated_at":     ts,
	}
	if m.Reach != nil {
		set["reach"] = *m.Reach
	}
	if m.Impressions != nil {
		set["impressions"] = *m.Impressions
	}
	if m.InsightsAt != nil {
		set["insights_at"] = m.InsightsAt.UTC()
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": NewObjectID(), "created_at": ts},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"media_id": m.MediaID}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		log.Error().Err(err).Str("mediaID", m.MediaID).Msg("Error upserting media")
		return err
	}
	return nil
}

func (r *MediaRepositoryMongo) find(ctx context.Context, filter bson.M, limit int64) ([]*domain.Media, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "media_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Interface("filter", filter).Msg("Error listing media")
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]*domain.Media, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *MediaRepositoryMongo) ListMediaInRange(ctx context.Context, accountID string, dr domain.DateRange) ([]*domain.Media, error) {
	return r.find(ctx, bson.M{
		"account_id": accountID,
		"timestamp":  bson.M{"$gte": dr.From.UTC(), "$lte": dr.To.UTC()},
	}, 0)
}

func (r *MediaRepositoryMongo) ListMediaSince(ctx context.Context, accountID string, after, until time.Time) ([]*domain.Media, error) {
	return r.find(ctx, bson.M{
		"account_id": accountID,
		"timestamp":  bson.M{"$gt": after.UTC(), "$lte": until.UTC()},
	}, 0)
}

func (r *MediaRepositoryMongo) ListRecentMedia(ctx context.Context, accountID string, limit int) ([]*domain.Media, error) {
	if limit <= 0 {
		limit = 6
	}
	return r.find(ctx, bson.M{"account_id": accountID}, int64(limit))
}

var _ domain.MediaRepository = (*MediaRepositoryMongo)(nil)
