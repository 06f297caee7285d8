package mongodb

import (
	"context"
	"fmt"

	"github.com/pilab-dev/creator-insights/internal/crypto"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repositories groups every Mongo-backed repository built on one database.
type Repositories struct {
	Accounts *AccountRepositoryMongo
	Media    *MediaRepositoryMongo
	Insights *InsightRepositoryMongo
	SyncLogs *SyncLogRepositoryMongo
	Profiles *ProfileRepositoryMongo
}

// NewRepositories builds all repositories and ensures their indexes.
func NewRepositories(ctx context.Context, db *mongo.Database, sealer crypto.Sealer) (*Repositories, error) {
	var (
		repos Repositories
		err   error
	)
	if repos.Accounts, err = NewAccountRepositoryMongo(ctx, db, sealer); err != nil {
		return nil, fmt.Errorf("accounts repository: %w", err)
	}
	if repos.Media, err = NewMediaRepositoryMongo(ctx, db); err != nil {
		return nil, fmt.Errorf("media repository: %w", err)
	}
	if repos.Insights, err = NewInsightRepositoryMongo(ctx, db); err != nil {
		return nil, fmt.Errorf("insights repository: %w", err)
	}
	if repos.SyncLogs, err = NewSyncLogRepositoryMongo(ctx, db); err != nil {
		return nil, fmt.Errorf("sync log repository: %w", err)
	}
	if repos.Profiles, err = NewProfileRepositoryMongo(ctx, db); err != nil {
		return nil, fmt.Errorf("profile repository: %w", err)
	}
	return &repos, nil
}
