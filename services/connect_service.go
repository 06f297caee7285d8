package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/creator-insights/cache"
	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/internal/instagram"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	stateBytes = 32
	// DefaultStateTTL bounds the time between login redirect and callback.
	DefaultStateTTL = 10 * time.Minute
	// defaultLongLivedLifetime applies when the exchange omits expires_in.
	defaultLongLivedLifetime = 60 * 24 * time.Hour
)

var (
	// ErrInvalidState is returned for a missing, expired, reused or foreign OAuth state.
	ErrInvalidState = fmt.Errorf("%w: invalid_oauth_state", serrors.ErrInvalidArgument)
	// ErrOnlyInfluencers is returned when a non-influencer starts a connection.
	ErrOnlyInfluencers = fmt.Errorf("%w: only_influencers_can_connect_instagram", serrors.ErrForbidden)
)

// Authorizer is the OAuth side of the Graph API.
type Authorizer interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*instagram.TokenResponse, error)
	ExchangeLongLived(ctx context.Context, shortLivedToken string) (*instagram.TokenResponse, error)
	FetchBusinessAccount(ctx context.Context, token string) (*instagram.BusinessAccount, error)
}

// AccountSyncer runs the first ingestion of a freshly connected account.
type AccountSyncer interface {
	SyncAll(ctx context.Context, accountID string) (*domain.SyncLog, error)
}

// ConnectRequest is what the login endpoint needs to redirect the user.
type ConnectRequest struct {
	State   string
	AuthURL string
}

// ConnectService links an Instagram professional account to an influencer.
type ConnectService struct {
	auth     Authorizer
	states   cache.StateStore
	accounts domain.AccountRepository
	profiles domain.ProfileRepository
	syncer   AccountSyncer
	stateTTL time.Duration
	now      func() time.Time
	logger   log.Logger
}

type ConnectServiceOptions struct {
	StateTTL time.Duration
	// Syncer, when set, ingests the account right after it is connected.
	// Its failure does not fail the connection.
	Syncer AccountSyncer
	Logger log.Logger
}

func NewConnectService(auth Authorizer, states cache.StateStore, accounts domain.AccountRepository, profiles domain.ProfileRepository, opts ConnectServiceOptions) *ConnectService {
	if opts.StateTTL <= 0 {
		opts.StateTTL = DefaultStateTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	return &ConnectService{
		auth:     auth,
		states:   states,
		accounts: accounts,
		profiles: profiles,
		syncer:   opts.Syncer,
		stateTTL: opts.StateTTL,
		now:      time.Now,
		logger:   logger.With(log.Fields{"component": "connect_service"}),
	}
}

// SetClock replaces the time source.
func (s *ConnectService) SetClock(now func() time.Time) {
	s.now = now
}

// StateTTL is how long a state issued by Begin stays valid.
func (s *ConnectService) StateTTL() time.Duration {
	return s.stateTTL
}

// generateState returns a hex encoded random string of n bytes.
func generateState(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Begin issues a single-use state bound to actor and returns the dialog URL.
func (s *ConnectService) Begin(ctx context.Context, actor *domain.Actor) (*ConnectRequest, error) {
	if actor == nil {
		return nil, serrors.ErrUnauthorized
	}
	if actor.Role != domain.RoleInfluencer {
		return nil, ErrOnlyInfluencers
	}

	state, err := generateState(stateBytes)
	if err != nil {
		return nil, fmt.Errorf("generate oauth state: %w", err)
	}
	pending := cache.PendingState{UserID: actor.ID, CreatedAt: s.now().UTC()}
	if err := s.states.Save(ctx, state, pending, s.stateTTL); err != nil {
		return nil, err
	}
	return &ConnectRequest{State: state, AuthURL: s.auth.AuthCodeURL(state)}, nil
}

// Complete consumes state, exchanges code for short and long-lived
// credentials, and stores the linked business account for actor.
func (s *ConnectService) Complete(ctx context.Context, actor *domain.Actor, state, code string) (account *domain.ConnectedAccount, err error) {
	ctx, span := tracing.Start(ctx, "connect.complete")
	defer func() { tracing.End(span, err) }()

	if actor == nil {
		return nil, serrors.ErrUnauthorized
	}
	if actor.Role != domain.RoleInfluencer {
		return nil, ErrOnlyInfluencers
	}
	if state == "" || code == "" {
		return nil, ErrInvalidState
	}

	pending, err := s.states.Consume(ctx, state)
	if err != nil {
		if errors.Is(err, cache.ErrStateNotFound) {
			return nil, ErrInvalidState
		}
		return nil, err
	}
	if pending.UserID != actor.ID {
		s.logger.Warn(ctx, "OAuth state presented by another user", log.Fields{"user_id": actor.ID})
		return nil, ErrInvalidState
	}

	short, err := s.auth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	long, err := s.auth.ExchangeLongLived(ctx, short.AccessToken)
	if err != nil {
		return nil, err
	}
	biz, err := s.auth.FetchBusinessAccount(ctx, long.AccessToken)
	if err != nil {
		return nil, err
	}

	lifetime := long.Lifetime()
	if lifetime <= 0 {
		lifetime = defaultLongLivedLifetime
	}
	expiresAt := s.now().Add(lifetime).UTC()

	account = &domain.ConnectedAccount{
		UserID:            actor.ID,
		PlatformAccountID: biz.ID,
		Username:          biz.Username,
		AccountType:       domain.AccountTypeBusiness,
		Biography:         biz.Biography,
		ProfilePictureURL: biz.ProfilePictureURL,
		FollowersCount:    biz.FollowersCount,
		FollowsCount:      biz.FollowsCount,
		AccessToken:       short.AccessToken,
		LongLivedToken:    long.AccessToken,
		TokenExpiresAt:    &expiresAt,
	}
	if err := s.accounts.UpsertAccount(ctx, account); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("account.id", account.ID))

	if err := s.profiles.EnsureProfile(ctx, actor.ID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Instagram account connected", log.Fields{
		"user_id":    actor.ID,
		"account_id": account.ID,
		"username":   account.Username,
	})

	if s.syncer != nil {
		if _, err := s.syncer.SyncAll(ctx, account.ID); err != nil {
			s.logger.Warn(ctx, "Initial sync after connect did not complete", log.Fields{"account_id": account.ID, "error": err.Error()})
		}
	}
	return account, nil
}
