// Package cache holds short-lived state: pending OAuth authorizations and
// request rate buckets.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStateNotFound is returned for unknown, expired or already consumed states.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// PendingState is what is remembered between the login redirect and the callback.
type PendingState struct {
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// StateStore keeps OAuth states until their callback arrives. Consume is single use.
type StateStore interface {
	Save(ctx context.Context, state string, pending PendingState, ttl time.Duration) error
	Consume(ctx context.Context, state string) (*PendingState, error)
}
