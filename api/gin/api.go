package ginapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/creator-insights/cache"
	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/middleware"
	"github.com/pilab-dev/creator-insights/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// StateCookie carries the OAuth state between login and callback.
	StateCookie = "iap_oauth_state"

	defaultDays = 30
	maxDays     = 365
)

// AccountService is the account lookup used by account-scoped routes.
type AccountService interface {
	ListForUser(ctx context.Context, userID string) ([]*domain.ConnectedAccount, error)
	OwnedAccount(ctx context.Context, actor *domain.Actor, accountID string) (*domain.ConnectedAccount, error)
	CampaignSummary(ctx context.Context, accountIDs []string) (*services.CampaignSummary, error)
}

type AnalyticsService interface {
	Report(ctx context.Context, accountID string, window domain.DateRange) (*domain.AnalyticsReport, error)
}

type SyncService interface {
	Sync(ctx context.Context, accountID string, typ domain.SyncType) (*domain.SyncLog, error)
	SyncAllAccounts(ctx context.Context) ([]services.AccountSyncResult, error)
}

type TokenService interface {
	ForceRefresh(ctx context.Context, accountID string) (*domain.ConnectedAccount, error)
}

type ConnectService interface {
	Begin(ctx context.Context, actor *domain.Actor) (*services.ConnectRequest, error)
	Complete(ctx context.Context, actor *domain.Actor, state, code string) (*domain.ConnectedAccount, error)
	StateTTL() time.Duration
}

type SearchService interface {
	Search(ctx context.Context, f services.SearchFilter) ([]*services.InfluencerSummary, error)
	PublicProfile(ctx context.Context, userID string) (*services.PublicProfile, error)
}

// APIOptions holds the dependencies of the HTTP API.
type APIOptions struct {
	Accounts  AccountService
	Analytics AnalyticsService
	Sync      SyncService
	Tokens    TokenService
	Connect   ConnectService
	Search    SearchService

	Resolver middleware.ActorResolver
	// Limiter throttles the sync and analytics routes per user. Nil disables it.
	Limiter *cache.RateLimiter
	// CronSecret enables POST /api/cron/sync for callers presenting it as a Bearer token.
	CronSecret string
	// BaseURL is where the callback redirects the browser afterwards.
	BaseURL      string
	SecureCookie bool
	// Health reports storage readiness for /healthz. Nil always reports ok.
	Health  func(ctx context.Context) error
	Metrics http.Handler
	Logger  log.Logger
	Now     func() time.Time
}

// API serves the analytics, sync, connect and discovery routes.
type API struct {
	opts   APIOptions
	logger log.Logger
	now    func() time.Time
}

func NewAPI(opts APIOptions) *API {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = promhttp.Handler()
	}
	return &API{opts: opts, logger: logger.With(log.Fields{"component": "http_api"}), now: now}
}

// RegisterRoutes registers every route on e.
func (a *API) RegisterRoutes(e *gin.Engine) {
	e.GET("/healthz", a.HealthHandler)
	e.GET("/metrics", gin.WrapH(a.opts.Metrics))
	e.POST("/api/cron/sync", middleware.RequireBearerSecret(a.opts.CronSecret), a.CronSyncHandler)

	api := e.Group("/api", middleware.Authenticate(a.opts.Resolver))

	authed := api.Group("", middleware.RequireActor())
	authed.GET("/instagram/accounts", a.AccountsHandler)
	authed.GET("/instagram/analytics/overview", a.limit("analytics"), a.OverviewHandler)
	authed.GET("/instagram/analytics/export", a.limit("analytics"), a.ExportHandler)
	authed.POST("/instagram/sync/:type", a.limit("sync"), a.SyncHandler)
	authed.POST("/auth/instagram/refresh", a.RefreshHandler)
	authed.GET("/influencers/search", a.SearchHandler)
	authed.GET("/brand/analytics", middleware.RequireActor(domain.RoleBrand, domain.RoleAdmin), a.BrandAnalyticsHandler)

	// The OAuth browser flow reports failures by redirect, not JSON.
	api.GET("/auth/instagram/login", a.LoginHandler)
	api.GET("/auth/instagram/callback", a.CallbackHandler)
	api.GET("/influencers/public/:id", a.PublicProfileHandler)
}

func (a *API) limit(scope string) gin.HandlerFunc {
	if a.opts.Limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(a.opts.Limiter, scope)
}

// fail writes err as an API error. Server-side errors are logged.
func (a *API) fail(c *gin.Context, err error) {
	status, _ := serrors.ToAPIError(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error(c.Request.Context(), "Request failed", err, log.Fields{"path": c.FullPath()})
	}
	middleware.AbortWithError(c, err)
}

// parseDays reads the days query parameter, defaulting to 30.
func parseDays(c *gin.Context) (int, error) {
	raw := c.Query("days")
	if raw == "" {
		return defaultDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxDays {
		return 0, serrors.InvalidArgument("days must be an integer between 1 and %d", maxDays)
	}
	return days, nil
}

func (a *API) HealthHandler(c *gin.Context) {
	if a.opts.Health != nil {
		if err := a.opts.Health(c.Request.Context()); err != nil {
			a.logger.Warn(c.Request.Context(), "Health check failed", log.Fields{"error": err.Error()})
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
