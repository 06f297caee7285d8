package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/pilab-dev/creator-insights/domain"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// InsightRepositoryMongo implements domain.InsightRepository.
type InsightRepositoryMongo struct {
	collection *mongo.Collection
}

func NewInsightRepositoryMongo(ctx context.Context, db *mongo.Database) (*InsightRepositoryMongo, error) {
	repo := &InsightRepositoryMongo{collection: db.Collection(InsightsCollection)}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create insights indexes")
	}
	return repo, nil
}

func (r *InsightRepositoryMongo) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "account_id", Value: 1},
				{Key: "metric", Value: 1},
				{Key: "date", Value: 1},
				{Key: "period", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "metric", Value: 1}, {Key: "date", Value: -1}},
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for %s collection: %w", InsightsCollection, err)
	}
	return nil
}

// UpsertInsight keeps one sample per (account, metric, date, period); the last write wins.
func (r *InsightRepositoryMongo) UpsertInsight(ctx context.Context, in *domain.Insight) error {
	ts := now()
	filter := bson.M{
		"account_id": in.AccountID,
		"metric":     in.Metric,
		"date":       in.Date.UTC(),
		"period":     in.Period,
	}
	set := bson.M{"value": in.Value, "updated_at": ts}
	if in.Breakdown != nil {
		set["breakdown"] = in.Breakdown
	}
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": NewObjectID(), "created_at": ts},
	}
	if _, err := r.collection.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		log.Error().Err(err).Str("accountID", in.AccountID).Str("metric", in.Metric).Msg("Error upserting insight")
		return err
	}
	return nil
}

func (r *InsightRepositoryMongo) ListInsights(ctx context.Context, accountID string, metrics []string, dr domain.DateRange) ([]*domain.Insight, error) {
	filter := bson.M{
		"account_id": accountID,
		"metric":     bson.M{"$in": metrics},
		"date":       bson.M{"$gte": dr.From.UTC(), "$lte": dr.To.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "metric", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		log.Error().Err(err).Str("accountID", accountID).Msg("Error listing insights")
		return nil, err
	}
	defer cursor.Close(ctx)

	samples := make([]*domain.Insight, 0)
	if err := cursor.All(ctx, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

func (r *InsightRepositoryMongo) LatestInsight(ctx context.Context, accountID string, metrics []string) (*domain.Insight, error) {
	filter := bson.M{"account_id": accountID, "metric": bson.M{"$in": metrics}}
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "updated_at", Value: -1}})

	var sample domain.Insight
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&sample); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		log.Error().Err(err).Str("accountID", accountID).Msg("Error getting latest insight")
		return nil, err
	}
	return &sample, nil
}

var _ domain.InsightRepository = (*InsightRepositoryMongo)(nil)
