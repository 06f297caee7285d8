package ginapi_test

import (
	"context"
	"time"

	"github.com/pilab-dev/creator-insights/domain"
	"github.com/pilab-dev/creator-insights/services"
	"github.com/stretchr/testify/mock"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) ListForUser(ctx context.Context, userID string) ([]*domain.ConnectedAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ConnectedAccount), args.Error(1)
}

func (m *MockAccountService) OwnedAccount(ctx context.Context, actor *domain.Actor, accountID string) (*domain.ConnectedAccount, error) {
	args := m.Called(ctx, actor, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectedAccount), args.Error(1)
}

func (m *MockAccountService) CampaignSummary(ctx context.Context, accountIDs []string) (*services.CampaignSummary, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CampaignSummary), args.Error(1)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Report(ctx context.Context, accountID string, window domain.DateRange) (*domain.AnalyticsReport, error) {
	args := m.Called(ctx, accountID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AnalyticsReport), args.Error(1)
}

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Sync(ctx context.Context, accountID string, typ domain.SyncType) (*domain.SyncLog, error) {
	args := m.Called(ctx, accountID, typ)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncLog), args.Error(1)
}

func (m *MockSyncService) SyncAllAccounts(ctx context.Context) ([]services.AccountSyncResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.AccountSyncResult), args.Error(1)
}

type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) ForceRefresh(ctx context.Context, accountID string) (*domain.ConnectedAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectedAccount), args.Error(1)
}

type MockConnectService struct {
	mock.Mock
}

func (m *MockConnectService) Begin(ctx context.Context, actor *domain.Actor) (*services.ConnectRequest, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ConnectRequest), args.Error(1)
}

func (m *MockConnectService) Complete(ctx context.Context, actor *domain.Actor, state, code string) (*domain.ConnectedAccount, error) {
	args := m.Called(ctx, actor, state, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectedAccount), args.Error(1)
}

func (m *MockConnectService) StateTTL() time.Duration {
	return 10 * time.Minute
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, f services.SearchFilter) ([]*services.InfluencerSummary, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*services.InfluencerSummary), args.Error(1)
}

func (m *MockSearchService) PublicProfile(ctx context.Context, userID string) (*services.PublicProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PublicProfile), args.Error(1)
}
