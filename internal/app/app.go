// Package app wires configuration, storage, the Graph API client and the
// services into one object shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ginapi "github.com/pilab-dev/creator-insights/api/gin"
	"github.com/pilab-dev/creator-insights/cache"
	redisstore "github.com/pilab-dev/creator-insights/cache/redis"
	"github.com/pilab-dev/creator-insights/config"
	"github.com/pilab-dev/creator-insights/internal/crypto"
	"github.com/pilab-dev/creator-insights/internal/instagram"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/middleware"
	"github.com/pilab-dev/creator-insights/mongodb"
	"github.com/pilab-dev/creator-insights/services"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "creator-insights"

// App holds the long-lived dependencies of the process.
type App struct {
	Config *config.Config
	Logger log.Logger

	Mongo  *mongodb.Client
	Repos  *mongodb.Repositories
	Graph  *instagram.Client
	States cache.StateStore

	Tokens    *services.TokenService
	Sync      *services.SyncService
	Analytics *services.AnalyticsService
	Accounts  *services.AccountService
	Connect   *services.ConnectService
	Search    *services.SearchService

	closers []func(context.Context) error
}

// New connects to MongoDB (and Redis when configured) and builds the services.
// On error everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	key, err := cfg.Token.Key()
	if err != nil {
		return nil, err
	}
	if key == nil {
		logger.Warn(ctx, "token.encryption_key is not set, credentials are stored unsealed")
	}

	a.Mongo, err = mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	a.closers = append(a.closers, a.Mongo.Close)

	a.Repos, err = mongodb.NewRepositories(ctx, a.Mongo.DB(), crypto.NewSealer(key))
	if err != nil {
		return nil, err
	}

	a.Graph, err = instagram.NewClient(instagram.Config{
		AppID:        cfg.Meta.AppID,
		AppSecret:    cfg.Meta.AppSecret,
		RedirectURI:  cfg.Meta.RedirectURI,
		GraphBaseURL: cfg.Meta.GraphBaseURL,
		DialogURL:    cfg.Meta.DialogURL,
		Scopes:       cfg.Meta.Scopes,
		Timeout:      cfg.Meta.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if a.States, err = a.stateStore(ctx); err != nil {
		return nil, err
	}

	a.Tokens = services.NewTokenService(a.Repos.Accounts, a.Graph, cfg.Token.RefreshMargin, logger)
	a.Sync = services.NewSyncService(
		a.Repos.Accounts, a.Repos.Media, a.Repos.Insights, a.Repos.SyncLogs,
		a.Tokens, a.Graph,
		services.SyncServiceOptions{MediaInsights: cfg.Sync.MediaInsights, Logger: logger},
	)
	a.Analytics = services.NewAnalyticsService(a.Repos.Accounts, a.Repos.Media, a.Repos.Insights, logger)
	a.Accounts = services.NewAccountService(a.Repos.Accounts, a.Repos.Media, logger)
	a.Connect = services.NewConnectService(a.Graph, a.States, a.Repos.Accounts, a.Repos.Profiles, services.ConnectServiceOptions{
		StateTTL: cfg.StateTTL,
		Syncer:   a.Sync,
		Logger:   logger,
	})
	a.Search = services.NewSearchService(a.Repos.Profiles, a.Repos.Accounts, a.Repos.Media, a.Analytics, logger)

	return a, nil
}

func (a *App) stateStore(ctx context.Context) (cache.StateStore, error) {
	switch a.Config.StateStore {
	case config.StateStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to Redis: %w", err)
		}
		return redisstore.NewStateStore(client, redisKeyPrefix), nil
	default:
		store := cache.NewMemoryStateStore(a.Config.StateTTL)
		a.closers = append(a.closers, func(context.Context) error { store.Stop(); return nil })
		return store, nil
	}
}

// API builds the HTTP API on top of the services. The returned limiter must
// be stopped by the caller.
func (a *App) API() (*ginapi.API, *cache.RateLimiter) {
	limiter := cache.NewRateLimiter(a.Config.RateLimit.Requests, a.Config.RateLimit.Window)
	return ginapi.NewAPI(ginapi.APIOptions{
		Accounts:     a.Accounts,
		Analytics:    a.Analytics,
		Sync:         a.Sync,
		Tokens:       a.Tokens,
		Connect:      a.Connect,
		Search:       a.Search,
		Resolver:     middleware.NewJWTSessionResolver(a.Config.SessionSecret, a.Config.SessionCookie),
		Limiter:      limiter,
		CronSecret:   a.Config.Sync.CronSecret,
		BaseURL:      a.Config.BaseURL,
		SecureCookie: strings.HasPrefix(a.Config.BaseURL, "https://"),
		Health:       a.Mongo.Ping,
		Logger:       a.Logger,
	}), limiter
}

// Close releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
