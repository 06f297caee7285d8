package services

import (
	"context"
	"time"

	"github.com/pilab-dev/creator-insights/domain"
	"github.com/pilab-dev/creator-insights/internal/instagram"
	"github.com/stretchr/testify/mock"
)

// --- Mock Implementations ---

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetAccount(ctx context.Context, id string) (*domain.ConnectedAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectedAccount), args.Error(1)
}

func (m *MockAccountRepository) GetAccountByPlatformID(ctx context.Context, userID, platformAccountID string) (*domain.ConnectedAccount, error) {
	args := m.Called(ctx, userID, platformAccountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectedAccount), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context) ([]*domain.ConnectedAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConnectedAccount), args.Error(1)
}

func (m *MockAccountRepository) ListAccountsByUser(ctx context.Context, userID string) ([]*domain.ConnectedAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConnectedAccount), args.Error(1)
}

func (m *MockAccountRepository) UpsertAccount(ctx context.Context, account *domain.ConnectedAccount) error {
	args := m.Called(ctx, account)
	if account.ID == "" {
		account.ID = "mock-account-id"
	}
	return args.Error(0)
}

func (m *MockAccountRepository) UpdateCredential(ctx context.Context, id, longLivedToken string, expiresAt time.Time) error {
	return m.Called(ctx, id, longLivedToken, expiresAt).Error(0)
}

func (m *MockAccountRepository) UpdateProfile(ctx context.Context, id string, profile domain.AccountProfile) error {
	return m.Called(ctx, id, profile).Error(0)
}

func (m *MockAccountRepository) MarkSynced(ctx context.Context, id string, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type MockMediaRepository struct {
	mock.Mock
}

func (m *MockMediaRepository) UpsertMedia(ctx context.Context, media *domain.Media) error {
	return m.Called(ctx, media).Error(0)
}

func (m *MockMediaRepository) ListMediaInRange(ctx context.Context, accountID string, r domain.DateRange) ([]*domain.Media, error) {
	args := m.Called(ctx, accountID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Media), args.Error(1)
}

func (m *MockMediaRepository) ListMediaSince(ctx context.Context, accountID string, after, until time.Time) ([]*domain.Media, error) {
	args := m.Called(ctx, accountID, after, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Media), args.Error(1)
}

func (m *MockMediaRepository) ListRecentMedia(ctx context.Context, accountID string, limit int) ([]*domain.Media, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Media), args.Error(1)
}

type MockInsightRepository struct {
	mock.Mock
}

func (m *MockInsightRepository) UpsertInsight(ctx context.Context, insight *domain.Insight) error {
	return m.Called(ctx, insight).Error(0)
}

func (m *MockInsightRepository) ListInsights(ctx context.Context, accountID string, metrics []string, r domain.DateRange) ([]*domain.Insight, error) {
	args := m.Called(ctx, accountID, metrics, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Insight), args.Error(1)
}

func (m *MockInsightRepository) LatestInsight(ctx context.Context, accountID string, metrics []string) (*domain.Insight, error) {
	args := m.Called(ctx, accountID, metrics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Insight), args.Error(1)
}

type MockSyncLogRepository struct {
	mock.Mock
}

func (m *MockSyncLogRepository) CreateSyncLog(ctx context.Context, entry *domain.SyncLog) error {
	args := m.Called(ctx, entry)
	if entry.ID == "" {
		entry.ID = "mock-log-id"
	}
	return args.Error(0)
}

func (m *MockSyncLogRepository) FinishSyncLog(ctx context.Context, entry *domain.SyncLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockSyncLogRepository) ListRecentSyncLogs(ctx context.Context, accountID string, limit int) ([]*domain.SyncLog, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SyncLog), args.Error(1)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) GetProfileByUser(ctx context.Context, userID string) (*domain.InfluencerProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InfluencerProfile), args.Error(1)
}

func (m *MockProfileRepository) ListPublicProfiles(ctx context.Context, filter domain.ProfileFilter) ([]*domain.InfluencerProfile, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InfluencerProfile), args.Error(1)
}

func (m *MockProfileRepository) EnsureProfile(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type MockCredentialRefresher struct {
	mock.Mock
}

func (m *MockCredentialRefresher) RefreshLongLived(ctx context.Context, token string) (*instagram.TokenResponse, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*instagram.TokenResponse), args.Error(1)
}

type MockCredentialProvider struct {
	mock.Mock
}

func (m *MockCredentialProvider) EnsureValidCredential(ctx context.Context, accountID string) (string, error) {
	args := m.Called(ctx, accountID)
	return args.String(0), args.Error(1)
}

type MockGraphReader struct {
	mock.Mock
}

func (m *MockGraphReader) FetchProfile(ctx context.Context, igUserID, token string) (*instagram.Profile, error) {
	args := m.Called(ctx, igUserID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*instagram.Profile), args.Error(1)
}

func (m *MockGraphReader) FetchMedia(ctx context.Context, igUserID, token string) ([]instagram.Media, error) {
	args := m.Called(ctx, igUserID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]instagram.Media), args.Error(1)
}

func (m *MockGraphReader) FetchMediaInsights(ctx context.Context, mediaID, token string) (*instagram.MediaInsights, error) {
	args := m.Called(ctx, mediaID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*instagram.MediaInsights), args.Error(1)
}

func (m *MockGraphReader) FetchInsights(ctx context.Context, igUserID, token string, metrics []string, period string) ([]instagram.InsightSeries, error) {
	args := m.Called(ctx, igUserID, token, metrics, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]instagram.InsightSeries), args.Error(1)
}

type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) AuthCodeURL(state string) string {
	return m.Called(state).String(0)
}

func (m *MockAuthorizer) ExchangeCode(ctx context.Context, code string) (*instagram.TokenResponse, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*instagram.TokenResponse), args.Error(1)
}

func (m *MockAuthorizer) ExchangeLongLived(ctx context.Context, shortLivedToken string) (*instagram.TokenResponse, error) {
	args := m.Called(ctx, shortLivedToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*instagram.TokenResponse), args.Error(1)
}

func (m *MockAuthorizer) FetchBusinessAccount(ctx context.Context, token string) (*instagram.BusinessAccount, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*instagram.BusinessAccount), args.Error(1)
}

func int64p(v int64) *int64 { return &v }

func timep(t time.Time) *time.Time { return &t }
