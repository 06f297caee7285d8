package ginapi_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	ginapi "github.com/pilab-dev/creator-insights/api/gin"
	"github.com/pilab-dev/creator-insights/cache"
	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/internal/instagram"
	"github.com/pilab-dev/creator-insights/middleware"
	"github.com/pilab-dev/creator-insights/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type apiFixture struct {
	router    *gin.Engine
	resolver  *middleware.JWTSessionResolver
	accounts  *MockAccountService
	analytics *MockAnalyticsService
	sync      *MockSyncService
	tokens    *MockTokenService
	connect   *MockConnectService
	search    *MockSearchService
	healthErr error
}

func newAPIFixture(t *testing.T, mutate ...func(*ginapi.APIOptions)) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &apiFixture{
		resolver:  middleware.NewJWTSessionResolver("secret", "iap_session"),
		accounts:  new(MockAccountService),
		analytics: new(MockAnalyticsService),
		sync:      new(MockSyncService),
		tokens:    new(MockTokenService),
		connect:   new(MockConnectService),
		search:    new(MockSearchService),
	}
	opts := ginapi.APIOptions{
		Accounts:   f.accounts,
		Analytics:  f.analytics,
		Sync:       f.sync,
		Tokens:     f.tokens,
		Connect:    f.connect,
		Search:     f.search,
		Resolver:   f.resolver,
		CronSecret: "cron-secret",
		BaseURL:    "http://app.test",
		Health:     func(_ context.Context) error { return f.healthErr },
		Metrics:    http.NotFoundHandler(),
		Now:        func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&opts)
	}

	f.router = gin.New()
	ginapi.NewAPI(opts).RegisterRoutes(f.router)
	return f
}

func (f *apiFixture) do(t *testing.T, method, target string, body any, actor *domain.Actor, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := f.resolver.Issue(actor, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

var (
	influencer = &domain.Actor{ID: "user-1", Role: domain.RoleInfluencer}
	brand      = &domain.Actor{ID: "brand-1", Role: domain.RoleBrand}
)

func isActor(id string) any {
	return mock.MatchedBy(func(a *domain.Actor) bool { return a != nil && a.ID == id })
}

func ownedAccount() *domain.ConnectedAccount {
	followers := int64(1200)
	return &domain.ConnectedAccount{
		ID: "acc-1", UserID: "user-1", Username: "creator", AccountType: domain.AccountTypeBusiness,
		FollowersCount: &followers, AccessToken: "short-secret", LongLivedToken: "long-secret",
	}
}

func sampleReport() *domain.AnalyticsReport {
	return &domain.AnalyticsReport{
		AccountID: "acc-1",
		Username:  "creator",
		Window:    domain.LastDays(fixedNow, 30),
		Overview: &domain.Overview{
			PostsCount:                3,
			FollowerCount:             1200,
			EngagementRateByFollowers: 3.2667,
			EngagementRateByReach:     9.8,
			AvgReach:                  400,
			AvgImpressions:            512.4,
			PostingFrequencyPerWeek:   0.7,
		},
		TopContent: []*domain.RankedMedia{},
		Growth:     []*domain.GrowthPoint{},
		Audience:   domain.Breakdown{},
	}
}

func TestAccountsHandler(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/instagram/accounts", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	f.accounts.On("ListForUser", mock.Anything, "user-1").Return([]*domain.ConnectedAccount{ownedAccount()}, nil)
	w = f.do(t, http.MethodGet, "/api/instagram/accounts", nil, influencer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"creator"`)
	assert.NotContains(t, w.Body.String(), "secret", "credentials never leave the API")
}

func TestOverviewHandler(t *testing.T) {
	t.Run("Requires account id", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/api/instagram/analytics/overview", nil, influencer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Rejects bad days", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/api/instagram/analytics/overview?instagramAccountId=acc-1&days=0", nil, influencer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Foreign account is not found", func(t *testing.T) {
		f := newAPIFixture(t)
		f.accounts.On("OwnedAccount", mock.Anything, isActor("user-1"), "acc-2").Return(nil, serrors.NewNotFound("account", "acc-2"))
		w := f.do(t, http.MethodGet, "/api/instagram/analytics/overview?instagramAccountId=acc-2", nil, influencer)
		assert.Equal(t, http.StatusNotFound, w.Code)
		f.analytics.AssertNotCalled(t, "Report", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Defaults to thirty days", func(t *testing.T) {
		f := newAPIFixture(t)
		f.accounts.On("OwnedAccount", mock.Anything, isActor("user-1"), "acc-1").Return(ownedAccount(), nil)
		f.analytics.On("Report", mock.Anything, "acc-1", domain.LastDays(fixedNow, 30)).Return(sampleReport(), nil)

		w := f.do(t, http.MethodGet, "/api/instagram/analytics/overview?instagramAccountId=acc-1", nil, influencer)
		require.Equal(t, http.StatusOK, w.Code)

		var got domain.AnalyticsReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.InDelta(t, 3.2667, got.Overview.EngagementRateByFollowers, 1e-9)
		f.analytics.AssertExpectations(t)
	})

	t.Run("Rate limited", func(t *testing.T) {
		limiter := cache.NewRateLimiter(1, time.Minute)
		t.Cleanup(limiter.Stop)
		f := newAPIFixture(t, func(o *ginapi.APIOptions) { o.Limiter = limiter })
		f.accounts.On("OwnedAccount", mock.Anything, mock.Anything, "acc-1").Return(ownedAccount(), nil)
		f.analytics.On("Report", mock.Anything, "acc-1", mock.Anything).Return(sampleReport(), nil)

		target := "/api/instagram/analytics/overview?instagramAccountId=acc-1"
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, target, nil, influencer).Code)
		w := f.do(t, http.MethodGet, target, nil, influencer)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Contains(t, w.Body.String(), "retryAfter")
	})
}

func TestExportHandler(t *testing.T) {
	newExport := func(t *testing.T) *apiFixture {
		f := newAPIFixture(t)
		f.accounts.On("OwnedAccount", mock.Anything, isActor("user-1"), "acc-1").Return(ownedAccount(), nil)
		f.analytics.On("Report", mock.Anything, "acc-1", domain.LastDays(fixedNow, 7)).Return(sampleReport(), nil)
		return f
	}

	t.Run("CSV", func(t *testing.T) {
		f := newExport(t)
		w := f.do(t, http.MethodGet, "/api/instagram/analytics/export?instagramAccountId=acc-1&days=7&format=csv", nil, influencer)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="analytics-creator-2024-06-01.csv"`, w.Header().Get("Content-Disposition"))

		lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
		assert.Equal(t, []string{
			"Metric,Value",
			"Followers,1200",
			"Engagement Rate (Followers),3.27%",
			"Engagement Rate (Reach),9.80%",
			"Average Reach,400",
			"Average Impressions,512",
			"Total Posts,3",
			"Posting Frequency (per week),0.70",
		}, lines)
	})

	t.Run("JSON", func(t *testing.T) {
		f := newExport(t)
		w := f.do(t, http.MethodGet, "/api/instagram/analytics/export?instagramAccountId=acc-1&days=7", nil, influencer)
		require.Equal(t, http.StatusOK, w.Code)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		for _, key := range []string{"account", "period", "metrics", "topMedia", "growthSeries", "demographics", "exportedAt"} {
			assert.Contains(t, doc, key)
		}
		assert.EqualValues(t, 7, doc["period"].(map[string]any)["days"])
	})

	t.Run("Unknown format", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/api/instagram/analytics/export?instagramAccountId=acc-1&format=xml", nil, influencer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSyncHandler(t *testing.T) {
	body := map[string]string{"instagramAccountId": "acc-1"}

	t.Run("Unknown type", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodPost, "/api/instagram/sync/weekly", body, influencer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Missing body", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodPost, "/api/instagram/sync/media", nil, influencer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Partial run is reported", func(t *testing.T) {
		f := newAPIFixture(t)
		f.accounts.On("OwnedAccount", mock.Anything, isActor("user-1"), "acc-1").Return(ownedAccount(), nil)
		f.sync.On("Sync", mock.Anything, "acc-1", domain.SyncTypeAll).
			Return(&domain.SyncLog{ID: "log-1", Status: domain.SyncStatusPartial}, errors.New("partial sync: insights"))

		w := f.do(t, http.MethodPost, "/api/instagram/sync/all", body, influencer)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"success":true`)
		assert.Contains(t, w.Body.String(), `"status":"partial"`)
	})

	t.Run("Credential failure", func(t *testing.T) {
		f := newAPIFixture(t)
		f.accounts.On("OwnedAccount", mock.Anything, isActor("user-1"), "acc-1").Return(ownedAccount(), nil)
		refreshErr := &serrors.CredentialRefreshError{AccountID: "acc-1", Err: errors.New("invalid token")}
		f.sync.On("Sync", mock.Anything, "acc-1", domain.SyncTypeMedia).
			Return(&domain.SyncLog{ID: "log-1", Status: domain.SyncStatusFailed}, refreshErr)

		w := f.do(t, http.MethodPost, "/api/instagram/sync/media", body, influencer)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Contains(t, w.Body.String(), `"success":false`)
	})
}

func TestRefreshHandler(t *testing.T) {
	f := newAPIFixture(t)
	f.accounts.On("OwnedAccount", mock.Anything, isActor("user-1"), "acc-1").Return(ownedAccount(), nil)
	expires := fixedNow.Add(60 * 24 * time.Hour)
	refreshed := ownedAccount()
	refreshed.TokenExpiresAt = &expires
	f.tokens.On("ForceRefresh", mock.Anything, "acc-1").Return(refreshed, nil)

	w := f.do(t, http.MethodPost, "/api/auth/instagram/refresh", map[string]string{"instagramAccountId": "acc-1"}, influencer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.Contains(t, w.Body.String(), "2024-07-31")
}

func TestLoginHandler(t *testing.T) {
	t.Run("Sets state cookie and redirects", func(t *testing.T) {
		f := newAPIFixture(t)
		f.connect.On("Begin", mock.Anything, isActor("user-1")).
			Return(&services.ConnectRequest{State: "abc", AuthURL: "https://www.facebook.com/dialog?state=abc"}, nil)

		w := f.do(t, http.MethodGet, "/api/auth/instagram/login", nil, influencer)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://www.facebook.com/dialog?state=abc", w.Header().Get("Location"))
		cookie := w.Header().Get("Set-Cookie")
		assert.Contains(t, cookie, ginapi.StateCookie+"=abc")
		assert.Contains(t, cookie, "HttpOnly")
		assert.Contains(t, cookie, "Max-Age=600")
	})

	t.Run("Brand members cannot connect", func(t *testing.T) {
		f := newAPIFixture(t)
		f.connect.On("Begin", mock.Anything, isActor("brand-1")).Return(nil, services.ErrOnlyInfluencers)

		w := f.do(t, http.MethodGet, "/api/auth/instagram/login", nil, brand)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://app.test/auth/error?error=only_influencers_can_connect_instagram", w.Header().Get("Location"))
	})
}

func TestCallbackHandler(t *testing.T) {
	stateCookie := &http.Cookie{Name: ginapi.StateCookie, Value: "abc"}

	errorTarget := func(w *httptest.ResponseRecorder) string {
		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/auth/error", loc.Path)
		return loc.Query().Get("error")
	}

	t.Run("Provider error", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/api/auth/instagram/callback?error=access_denied&error_reason=user_denied", nil, influencer)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, errorTarget(w), "Access denied")
	})

	t.Run("Missing code", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/api/auth/instagram/callback?state=abc", nil, influencer)
		assert.Contains(t, errorTarget(w), "cancelled")
	})

	t.Run("State cookie mismatch", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/api/auth/instagram/callback?code=c&state=xyz", nil, influencer, stateCookie)
		assert.Equal(t, "invalid_oauth_state", errorTarget(w))
		f.connect.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("No business account", func(t *testing.T) {
		f := newAPIFixture(t)
		f.connect.On("Complete", mock.Anything, isActor("user-1"), "abc", "c").Return(nil, instagram.ErrBusinessAccountRequired)
		w := f.do(t, http.MethodGet, "/api/auth/instagram/callback?code=c&state=abc", nil, influencer, stateCookie)
		assert.Equal(t, "instagram_business_or_creator_required", errorTarget(w))
	})

	t.Run("Network failure", func(t *testing.T) {
		f := newAPIFixture(t)
		f.connect.On("Complete", mock.Anything, isActor("user-1"), "abc", "c").
			Return(nil, &serrors.TransientNetworkError{Op: "exchange", Err: errors.New("timeout")})
		w := f.do(t, http.MethodGet, "/api/auth/instagram/callback?code=c&state=abc", nil, influencer, stateCookie)
		assert.Contains(t, errorTarget(w), "Network error")
	})

	t.Run("Connected", func(t *testing.T) {
		f := newAPIFixture(t)
		f.connect.On("Complete", mock.Anything, isActor("user-1"), "abc", "c").Return(ownedAccount(), nil)
		w := f.do(t, http.MethodGet, "/api/auth/instagram/callback?code=c&state=abc", nil, influencer, stateCookie)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "http://app.test/dashboard/influencer", w.Header().Get("Location"))
		assert.Contains(t, w.Header().Get("Set-Cookie"), ginapi.StateCookie+"=;")
	})
}

func TestSearchHandler(t *testing.T) {
	t.Run("Parses filters", func(t *testing.T) {
		f := newAPIFixture(t)
		minFollowers := int64(1000)
		maxEngagement := 5.5
		f.search.On("Search", mock.Anything, services.SearchFilter{
			Category:      "travel",
			MinFollowers:  &minFollowers,
			MaxEngagement: &maxEngagement,
			Query:         "anna",
		}).Return([]*services.InfluencerSummary{{UserID: "u-1", Username: "anna"}}, nil)

		w := f.do(t, http.MethodGet, "/api/influencers/search?category=travel&minFollowers=1000&maxEngagement=5.5&search=anna", nil, brand)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":1`)
	})

	t.Run("Bad bound", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/api/influencers/search?minFollowers=lots", nil, brand)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPublicProfileHandler(t *testing.T) {
	f := newAPIFixture(t)
	f.search.On("PublicProfile", mock.Anything, "hidden").Return(nil, serrors.NewNotFound("influencer", "hidden"))
	f.search.On("PublicProfile", mock.Anything, "u-1").Return(&services.PublicProfile{Username: "creator"}, nil)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/influencers/public/hidden", nil, nil).Code)

	w := f.do(t, http.MethodGet, "/api/influencers/public/u-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"creator"`)
}

func TestBrandAnalyticsHandler(t *testing.T) {
	f := newAPIFixture(t)
	f.accounts.On("CampaignSummary", mock.Anything, []string{"a", "b"}).
		Return(&services.CampaignSummary{TotalFollowers: 3000, InfluencerCount: 2}, nil)

	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/brand/analytics?accountIds=a,b", nil, influencer).Code)

	w := f.do(t, http.MethodGet, "/api/brand/analytics?accountIds=a,,b", nil, brand)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"influencer_count":2`)
}

func TestCronSyncHandler(t *testing.T) {
	f := newAPIFixture(t)
	f.sync.On("SyncAllAccounts", mock.Anything).Return([]services.AccountSyncResult{
		{AccountID: "acc-1", Status: domain.SyncStatusSuccess},
	}, nil)

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/cron/sync", nil, nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/cron/sync", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"account_id":"acc-1"`)
}

func TestHealthHandler(t *testing.T) {
	f := newAPIFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil, nil).Code)

	f.healthErr = errors.New("mongo down")
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/healthz", nil, nil).Code)
}
