package services

import (
	"context"
	"sort"
	"strings"

	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/log"
)

const samplePostsLimit = 6

// EngagementRater computes the standalone trailing engagement rate.
type EngagementRater interface {
	EngagementRate(ctx context.Context, accountID string, method domain.EngagementMethod) (float64, error)
}

// SearchFilter narrows an influencer search. Nil bounds and empty strings do not filter.
type SearchFilter struct {
	Category      string
	Location      string
	MinFollowers  *int64
	MaxFollowers  *int64
	MinEngagement *float64
	MaxEngagement *float64
	Query         string
	Limit         int
}

// InfluencerSummary is one search hit.
type InfluencerSummary struct {
	UserID            string             `json:"id"`
	Name              string             `json:"name,omitempty"`
	Username          string             `json:"username"`
	ProfilePictureURL string             `json:"profile_picture_url,omitempty"`
	FollowersCount    int64              `json:"followers_count"`
	EngagementRate    float64            `json:"engagement_rate"`
	Category          string             `json:"category,omitempty"`
	Location          string             `json:"location,omitempty"`
	Bio               string             `json:"bio,omitempty"`
	AccountType       domain.AccountType `json:"account_type"`
}

// PublicProfile is what a brand sees of a visible influencer.
type PublicProfile struct {
	Profile        *domain.InfluencerProfile `json:"profile"`
	Username       string                    `json:"username"`
	ProfilePicture string                    `json:"profile_picture_url,omitempty"`
	FollowersCount *int64                    `json:"followers_count,omitempty"`
	FollowsCount   *int64                    `json:"follows_count,omitempty"`
	EngagementRate float64                   `json:"engagement_rate"`
	SamplePosts    []*domain.Media           `json:"sample_posts"`
}

// SearchService lists influencers that brands are allowed to see.
type SearchService struct {
	profiles domain.ProfileRepository
	accounts domain.AccountRepository
	media    domain.MediaRepository
	rater    EngagementRater
	logger   log.Logger
}

func NewSearchService(profiles domain.ProfileRepository, accounts domain.AccountRepository, media domain.MediaRepository, rater EngagementRater, logger log.Logger) *SearchService {
	if logger == nil {
		logger = log.Nop()
	}
	return &SearchService{
		profiles: profiles,
		accounts: accounts,
		media:    media,
		rater:    rater,
		logger:   logger.With(log.Fields{"component": "search_service"}),
	}
}

// primaryAccount returns the first account the user connected, or nil.
func (s *SearchService) primaryAccount(ctx context.Context, userID string) (*domain.ConnectedAccount, error) {
	accounts, err := s.accounts.ListAccountsByUser(ctx, userID)
	if err != nil || len(accounts) == 0 {
		return nil, err
	}
	return accounts[0], nil
}

// Search returns visible influencers matching f, most followed first.
func (s *SearchService) Search(ctx context.Context, f SearchFilter) ([]*InfluencerSummary, error) {
	profiles, err := s.profiles.ListPublicProfiles(ctx, domain.ProfileFilter{
		Category: f.Category,
		Location: f.Location,
	})
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	results := make([]*InfluencerSummary, 0)
	skipped := map[string]int{}

	for _, p := range profiles {
		account, err := s.primaryAccount(ctx, p.UserID)
		if err != nil {
			return nil, err
		}
		vis := domain.Visibility{Approved: p.Approved, IsPublic: p.IsPublic, HasConnectedAccount: account != nil}
		if !vis.Visible() {
			skipped["not_visible"]++
			continue
		}

		followers := account.Followers()
		if (f.MinFollowers != nil && followers < *f.MinFollowers) || (f.MaxFollowers != nil && followers > *f.MaxFollowers) {
			skipped["followers"]++
			continue
		}

		rate, err := s.rater.EngagementRate(ctx, account.ID, domain.EngagementByFollowers)
		if err != nil {
			return nil, err
		}
		if (f.MinEngagement != nil && rate < *f.MinEngagement) || (f.MaxEngagement != nil && rate > *f.MaxEngagement) {
			skipped["engagement"]++
			continue
		}

		if query != "" && !matchesQuery(query, account.Username, p.DisplayName, p.Bio) {
			skipped["query"]++
			continue
		}

		results = append(results, &InfluencerSummary{
			UserID:            p.UserID,
			Name:              p.DisplayName,
			Username:          account.Username,
			ProfilePictureURL: account.ProfilePictureURL,
			FollowersCount:    followers,
			EngagementRate:    rate,
			Category:          p.Category,
			Location:          p.Location,
			Bio:               p.Bio,
			AccountType:       account.AccountType,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FollowersCount > results[j].FollowersCount
	})
	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}

	s.logger.Debug(ctx, "Influencer search", log.Fields{"profiles": len(profiles), "results": len(results), "skipped": skipped})
	return results, nil
}

func matchesQuery(query string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), query) {
			return true
		}
	}
	return false
}

// PublicProfile returns the profile of userID when it is visible; otherwise
// the influencer is reported as not found.
func (s *SearchService) PublicProfile(ctx context.Context, userID string) (*PublicProfile, error) {
	profile, err := s.profiles.GetProfileByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	account, err := s.primaryAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	vis := domain.Visibility{Approved: profile.Approved, IsPublic: profile.IsPublic, HasConnectedAccount: account != nil}
	if !vis.Visible() {
		return nil, serrors.NewNotFound("influencer", userID)
	}

	rate, err := s.rater.EngagementRate(ctx, account.ID, domain.EngagementByFollowers)
	if err != nil {
		return nil, err
	}
	posts, err := s.media.ListRecentMedia(ctx, account.ID, samplePostsLimit)
	if err != nil {
		return nil, err
	}

	return &PublicProfile{
		Profile:        profile,
		Username:       account.Username,
		ProfilePicture: account.ProfilePictureURL,
		FollowersCount: account.FollowersCount,
		FollowsCount:   account.FollowsCount,
		EngagementRate: rate,
		SamplePosts:    posts,
	}, nil
}
