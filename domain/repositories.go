package domain

import (
	"context"
	"time"
)

// AccountRepository stores connected accounts and their credentials.
type AccountRepository interface {
	GetAccount(ctx context.Context, id string) (*ConnectedAccount, error)
	GetAccountByPlatformID(ctx context.Context, userID, platformAccountID string) (*ConnectedAccount, error)
	ListAccounts(ctx context.Context) ([]*ConnectedAccount, error)
	ListAccountsByUser(ctx context.Context, userID string) ([]*ConnectedAccount, error)
	// UpsertAccount creates or replaces the account for (UserID, PlatformAccountID)
	// and sets account.ID.
	UpsertAccount(ctx context.Context, account *ConnectedAccount) error
	// UpdateCredential writes the long-lived token and its expiry in one update.
	UpdateCredential(ctx context.Context, id, longLivedToken string, expiresAt time.Time) error
	UpdateProfile(ctx context.Context, id string, profile AccountProfile) error
	MarkSynced(ctx context.Context, id string, at time.Time) error
}

// MediaRepository stores media items keyed by platform media id.
type MediaRepository interface {
	UpsertMedia(ctx context.Context, media *Media) error
	// ListMediaInRange returns items published within r (inclusive), newest first.
	ListMediaInRange(ctx context.Context, accountID string, r DateRange) ([]*Media, error)
	// ListMediaSince returns items published in (after, until], newest first.
	ListMediaSince(ctx context.Context, accountID string, after, until time.Time) ([]*Media, error)
	// ListRecentMedia returns the latest limit items, newest first.
	ListRecentMedia(ctx context.Context, accountID string, limit int) ([]*Media, error)
}

// InsightRepository stores account-level metric samples.
type InsightRepository interface {
	UpsertInsight(ctx context.Context, insight *Insight) error
	// ListInsights returns samples of the given metrics dated within r, oldest first.
	ListInsights(ctx context.Context, accountID string, metrics []string, r DateRange) ([]*Insight, error)
	// LatestInsight returns the most recent sample among metrics, or nil when none exists.
	LatestInsight(ctx context.Context, accountID string, metrics []string) (*Insight, error)
}

type SyncLogRepository interface {
	CreateSyncLog(ctx context.Context, entry *SyncLog) error
	FinishSyncLog(ctx context.Context, entry *SyncLog) error
	ListRecentSyncLogs(ctx context.Context, accountID string, limit int) ([]*SyncLog, error)
}

type ProfileRepository interface {
	GetProfileByUser(ctx context.Context, userID string) (*InfluencerProfile, error)
	// ListPublicProfiles returns profiles marked public and approved.
	ListPublicProfiles(ctx context.Context, filter ProfileFilter) ([]*InfluencerProfile, error)
	// EnsureProfile creates an empty private profile for userID if none exists.
	EnsureProfile(ctx context.Context, userID string) error
}
