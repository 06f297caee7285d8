package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/internal/instagram"
	"github.com/pilab-dev/creator-insights/internal/metrics"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultRefreshMargin is how close to expiry a credential gets renewed.
const DefaultRefreshMargin = 5 * 24 * time.Hour

var (
	ErrNoLongLivedCredential = fmt.Errorf("%w: account has no long-lived credential", serrors.ErrInvalidArgument)
	errNoExpiry              = errors.New("refresh response carries no expires_in")
)

// CredentialRefresher renews a long-lived platform credential.
type CredentialRefresher interface {
	RefreshLongLived(ctx context.Context, token string) (*instagram.TokenResponse, error)
}

// TokenService keeps the stored credential of a connected account usable.
//
// Two concurrent callers may both refresh the same account; each persists a
// valid credential and the last write wins.
type TokenService struct {
	accounts  domain.AccountRepository
	refresher CredentialRefresher
	margin    time.Duration
	now       func() time.Time
	logger    log.Logger
}

func NewTokenService(accounts domain.AccountRepository, refresher CredentialRefresher, margin time.Duration, logger log.Logger) *TokenService {
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &TokenService{
		accounts:  accounts,
		refresher: refresher,
		margin:    margin,
		now:       time.Now,
		logger:    logger.With(log.Fields{"component": "token_service"}),
	}
}

// SetClock replaces the time source.
func (s *TokenService) SetClock(now func() time.Time) {
	s.now = now
}

// EnsureValidCredential returns a credential for the account, refreshing and
// persisting it first when its expiry is unknown or closer than the margin.
// On refresh failure nothing is written and a *CredentialRefreshError is returned.
func (s *TokenService) EnsureValidCredential(ctx context.Context, accountID string) (token string, err error) {
	ctx, span := tracing.Start(ctx, "tokens.ensure_valid", attribute.String("account.id", accountID))
	defer func() { tracing.End(span, err) }()

	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	now := s.now()
	if !account.NeedsRefresh(now, s.margin) {
		return account.Credential(), nil
	}
	span.SetAttributes(attribute.Bool("credential.refreshed", true))

	token, _, err = s.refresh(ctx, account, account.Credential(), now)
	return token, err
}

// ForceRefresh renews the stored long-lived credential regardless of its expiry.
func (s *TokenService) ForceRefresh(ctx context.Context, accountID string) (*domain.ConnectedAccount, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.LongLivedToken == "" {
		return nil, ErrNoLongLivedCredential
	}

	token, expiresAt, err := s.refresh(ctx, account, account.LongLivedToken, s.now())
	if err != nil {
		return nil, err
	}
	account.LongLivedToken = token
	account.TokenExpiresAt = &expiresAt
	return account, nil
}

func (s *TokenService) refresh(ctx context.Context, account *domain.ConnectedAccount, current string, now time.Time) (string, time.Time, error) {
	fields := log.Fields{"account_id": account.ID}

	resp, err := s.refresher.RefreshLongLived(ctx, current)
	if err == nil && resp.ExpiresIn <= 0 {
		err = errNoExpiry
	}
	if err != nil {
		outcome := "failed"
		if serrors.IsTransient(err) {
			outcome = "transient"
		}
		metrics.CredentialRefreshTotal.WithLabelValues(outcome).Inc()
		s.logger.Warn(ctx, "Credential refresh failed", fields, log.Fields{"outcome": outcome, "error": err.Error()})
		return "", time.Time{}, &serrors.CredentialRefreshError{AccountID: account.ID, Err: err}
	}

	expiresAt := now.Add(resp.Lifetime())
	if err := s.accounts.UpdateCredential(ctx, account.ID, resp.AccessToken, expiresAt); err != nil {
		metrics.CredentialRefreshTotal.WithLabelValues("failed").Inc()
		s.logger.Error(ctx, "Failed to persist refreshed credential", err, fields)
		return "", time.Time{}, fmt.Errorf("persist refreshed credential for account %s: %w", account.ID, err)
	}

	metrics.CredentialRefreshTotal.WithLabelValues("success").Inc()
	s.logger.Info(ctx, "Credential refreshed", fields, log.Fields{"expires_at": expiresAt})
	return resp.AccessToken, expiresAt, nil
}
