package services

import (
	"context"
	"math"
	"time"

	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/log"
)

// CampaignSummary aggregates a brand's selection of accounts over the last 30 days.
type CampaignSummary struct {
	CampaignReach   int64   `json:"campaign_reach"`
	AvgEngagement   float64 `json:"avg_engagement"`
	TotalFollowers  int64   `json:"total_followers"`
	InfluencerCount int     `json:"influencer_count"`
	MediaCount      int     `json:"media_count"`
}

// AccountService resolves connected accounts on behalf of an actor.
type AccountService struct {
	accounts domain.AccountRepository
	media    domain.MediaRepository
	now      func() time.Time
	logger   log.Logger
}

func NewAccountService(accounts domain.AccountRepository, media domain.MediaRepository, logger log.Logger) *AccountService {
	if logger == nil {
		logger = log.Nop()
	}
	return &AccountService{
		accounts: accounts,
		media:    media,
		now:      time.Now,
		logger:   logger.With(log.Fields{"component": "account_service"}),
	}
}

// SetClock replaces the time source.
func (s *AccountService) SetClock(now func() time.Time) {
	s.now = now
}

// ListForUser returns the accounts connected by userID.
func (s *AccountService) ListForUser(ctx context.Context, userID string) ([]*domain.ConnectedAccount, error) {
	return s.accounts.ListAccountsByUser(ctx, userID)
}

// OwnedAccount returns the account when it belongs to actor. An account of
// another user is reported as not found.
func (s *AccountService) OwnedAccount(ctx context.Context, actor *domain.Actor, accountID string) (*domain.ConnectedAccount, error) {
	if actor == nil {
		return nil, serrors.ErrUnauthorized
	}
	if accountID == "" {
		return nil, serrors.InvalidArgument("instagramAccountId is required")
	}
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != actor.ID {
		s.logger.Debug(ctx, "Account requested by non-owner", log.Fields{"account_id": accountID, "user_id": actor.ID})
		return nil, serrors.NewNotFound("account", accountID)
	}
	return account, nil
}

// CampaignSummary sums the followers of the given accounts and averages the
// per-item engagement (likes, comments, shares and saves over followers) of
// their media published in the last 30 days. Unknown ids are ignored; media
// of accounts without followers is not averaged.
func (s *AccountService) CampaignSummary(ctx context.Context, accountIDs []string) (*CampaignSummary, error) {
	out := &CampaignSummary{}
	now := s.now()
	window := domain.DateRange{From: now.Add(-EngagementWindow), To: now}

	var rateSum float64
	var rated int
	for _, id := range accountIDs {
		account, err := s.accounts.GetAccount(ctx, id)
		if serrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out.InfluencerCount++
		out.TotalFollowers += account.Followers()

		items, err := s.media.ListMediaInRange(ctx, id, window)
		if err != nil {
			return nil, err
		}
		out.MediaCount += len(items)

		followers := account.Followers()
		if followers <= 0 {
			continue
		}
		for _, m := range items {
			engagement := m.Engagement() + m.ShareCount + m.SavedCount
			rateSum += float64(engagement) / float64(followers) * 100
			rated++
		}
	}

	out.CampaignReach = out.TotalFollowers
	if rated > 0 {
		out.AvgEngagement = math.Round(rateSum/float64(rated)*100) / 100
	}
	return out, nil
}
