package mongodb

import (
	"context"
	"fmt"

	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type SyncLogRepositoryMongo struct {
	collection *mongo.Collection
}

func NewSyncLogRepositoryMongo(ctx context.Context, db *mongo.Database) (*SyncLogRepositoryMongo, error) {
	repo := &SyncLogRepositoryMongo{collection: db.Collection(SyncLogsCollection)}
	_, err := repo.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "started_at", Value: -1}},
	})
	if err != nil {
		log.Warn().Err(err).Msgf("Failed to create %s indexes", SyncLogsCollection)
	}
	return repo, nil
}

func (r *SyncLogRepositoryMongo) CreateSyncLog(ctx context.Context, entry *domain.SyncLog) error {
	if entry.ID == "" {
		entry.ID = NewObjectID()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = now()
	}
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		log.Error().Err(err).Str("accountID", entry.AccountID).Msg("Error creating sync log")
		return fmt.Errorf("create sync log: %w", err)
	}
	return nil
}

func (r *SyncLogRepositoryMongo) FinishSyncLog(ctx context.Context, entry *domain.SyncLog) error {
	update := bson.M{"$set": bson.M{
		"status":        entry.Status,
		"finished_at":   entry.FinishedAt,
		"error_message": entry.ErrorMessage,
		"meta":          entry.Meta,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": entry.ID}, update)
	if err != nil {
		log.Error().Err(err).Str("id", entry.ID).Msg("Error finishing sync log")
		return fmt.Errorf("finish sync log: %w", err)
	}
	if result.MatchedCount == 0 {
		return serrors.NewNotFound("sync log", entry.ID)
	}
	return nil
}

func (r *SyncLogRepositoryMongo) ListRecentSyncLogs(ctx context.Context, accountID string, limit int) ([]*domain.SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := make([]*domain.SyncLog, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

var _ domain.SyncLogRepository = (*SyncLogRepositoryMongo)(nil)
