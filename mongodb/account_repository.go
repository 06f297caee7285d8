package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/internal/crypto"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrAccountLinkedElsewhere is returned when the platform account is already
// connected by a different user.
var ErrAccountLinkedElsewhere = fmt.Errorf("%w: instagram account already connected to another user", serrors.ErrInvalidArgument)

// AccountRepositoryMongo implements domain.AccountRepository. Credentials are
// passed through the sealer on every write and read.
type AccountRepositoryMongo struct {
	collection *mongo.Collection
	sealer     crypto.Sealer
}

func NewAccountRepositoryMongo(ctx context.Context, db *mongo.Database, sealer crypto.Sealer) (*AccountRepositoryMongo, error) {
	if sealer == nil {
		sealer = crypto.PlainSealer{}
	}
	repo := &AccountRepositoryMongo{
		collection: db.Collection(AccountsCollection),
		sealer:     sealer,
	}
	if err := repo.createIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to create connected_accounts indexes")
	}
	return repo, nil
}

func (r *AccountRepositoryMongo) createIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "platform_account_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// A platform account can be linked by one user only.
			Keys:    bson.D{{Key: "platform_account_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "token_expires_at", Value: 1}},
		},
	}
	if _, err := r.collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for %s collection: %w", AccountsCollection, err)
	}
	log.Debug().Msgf("Indexes for %s collection ensured.", AccountsCollection)
	return nil
}

// RawCollection exposes the underlying collection for maintenance tooling.
func (r *AccountRepositoryMongo) RawCollection() *mongo.Collection {
	return r.collection
}

func (r *AccountRepositoryMongo) open(account *domain.ConnectedAccount) error {
	var err error
	if account.AccessToken, err = r.sealer.Open(account.AccessToken); err != nil {
		return fmt.Errorf("open access token of account %s: %w", account.ID, err)
	}
	if account.LongLivedToken, err = r.sealer.Open(account.LongLivedToken); err != nil {
		return fmt.Errorf("open long-lived token of account %s: %w", account.ID, err)
	}
	return nil
}

func (r *AccountRepositoryMongo) findOne(ctx context.Context, filter bson.M, id string) (*domain.ConnectedAccount, error) {
	var account domain.ConnectedAccount
	if err := r.collection.FindOne(ctx, filter).Decode(&account); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, serrors.NewNotFound("account", id)
		}
		log.Error().Err(err).Interface("filter", filter).Msg("Error getting connected account")
		return nil, err
	}
	if err := r.open(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepositoryMongo) GetAccount(ctx context.Context, id string) (*domain.ConnectedAccount, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *AccountRepositoryMongo) GetAccountByPlatformID(ctx context.Context, userID, platformAccountID string) (*domain.ConnectedAccount, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "platform_account_id": platformAccountID}, platformAccountID)
}

func (r *AccountRepositoryMongo) list(ctx context.Context, filter bson.M) ([]*domain.ConnectedAccount, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		log.Error().Err(err).Msg("Error listing connected accounts")
		return nil, err
	}
	defer cursor.Close(ctx)

	accounts := make([]*domain.ConnectedAccount, 0)
	if err := cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if err := r.open(a); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

func (r *AccountRepositoryMongo) ListAccounts(ctx context.Context) ([]*domain.ConnectedAccount, error) {
	return r.list(ctx, bson.M{})
}

func (r *AccountRepositoryMongo) ListAccountsByUser(ctx context.Context, userID string) ([]*domain.ConnectedAccount, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *AccountRepositoryMongo) UpsertAccount(ctx context.Context, account *domain.ConnectedAccount) error {
	accessToken, err := r.sealer.Seal(account.AccessToken)
	if err != nil {
		return err
	}
	longLived, err := r.sealer.Seal(account.LongLivedToken)
	if err != nil {
		return err
	}

	ts := now()
	filter := bson.M{"user_id": account.UserID, "platform_account_id": account.PlatformAccountID}
	update := bson.M{
		"$set": bson.M{
			"username":            account.Username,
			"account_type":        account.AccountType,
			"biography":           account.Biography,
			"profile_picture_url": account.ProfilePictureURL,
			"followers_count":     account.FollowersCount,
			"follows_count":       account.FollowsCount,
			"media_count":         account.MediaCount,
			"access_token":        accessToken,
			"long_lived_token":    longLived,
			"token_expires_at":    account.TokenExpiresAt,
			"updated_at":          ts,
		},
		"$setOnInsert": bson.M{
			"_id":        NewObjectID(),
			"created_at": ts,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var stored domain.ConnectedAccount
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAccountLinkedElsewhere
		}
		log.Error().Err(err).Str("userID", account.UserID).Str("platformAccountID", account.PlatformAccountID).Msg("Error upserting connected account")
		return err
	}
	account.ID = stored.ID
	account.CreatedAt = stored.CreatedAt
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *AccountRepositoryMongo) updateByID(ctx context.Context, id string, set bson.M) error {
	set["updated_at"] = now()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error updating connected account")
		return err
	}
	if result.MatchedCount == 0 {
		return serrors.NewNotFound("account", id)
	}
	return nil
}

// UpdateCredential replaces the long-lived token and its expiry in a single
// document update, so readers never observe one without the other.
func (r *AccountRepositoryMongo) UpdateCredential(ctx context.Context, id, longLivedToken string, expiresAt time.Time) error {
	sealed, err := r.sealer.Seal(longLivedToken)
	if err != nil {
		return err
	}
	return r.updateByID(ctx, id, bson.M{
		"long_lived_token": sealed,
		"token_expires_at": expiresAt.UTC(),
	})
}

func (r *AccountRepositoryMongo) UpdateProfile(ctx context.Context, id string, p domain.AccountProfile) error {
	return r.updateByID(ctx, id, bson.M{
		"username":            p.Username,
		"account_type":        p.AccountType,
		"biography":           p.Biography,
		"profile_picture_url": p.ProfilePictureURL,
		"followers_count":     p.FollowersCount,
		"follows_count":       p.FollowsCount,
		"media_count":         p.MediaCount,
	})
}

func (r *AccountRepositoryMongo) MarkSynced(ctx context.Context, id string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{"last_synced_at": at.UTC()})
}

var _ domain.AccountRepository = (*AccountRepositoryMongo)(nil)
