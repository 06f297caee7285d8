package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks caller supplied input that cannot be served.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized marks a request without a resolvable actor.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks an actor whose role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
)

// NotFoundError reports a missing entity, or one the actor may not see.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFound returns a *NotFoundError for the given resource.
func NewNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// CredentialRefreshError is returned when a credential could not be renewed.
// Stored credential state is untouched when it is returned.
type CredentialRefreshError struct {
	AccountID string
	Err       error
}

func (e *CredentialRefreshError) Error() string {
	return fmt.Sprintf("refresh credential for account %s: %v", e.AccountID, e.Err)
}

func (e *CredentialRefreshError) Unwrap() error { return e.Err }

// TransientNetworkError wraps a timeout or connection failure that is worth retrying.
type TransientNetworkError struct {
	Op  string
	Err error
}

func (e *TransientNetworkError) Error() string {
	return fmt.Sprintf("%s: transient network error: %v", e.Op, e.Err)
}

func (e *TransientNetworkError) Unwrap() error { return e.Err }

// Temporary reports true; it lets callers test with an interface assertion.
func (e *TransientNetworkError) Temporary() bool { return true }

// InvalidArgument wraps ErrInvalidArgument with a message.
func InvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTransient reports whether err, or any error it wraps, is a TransientNetworkError.
func IsTransient(err error) bool {
	var te *TransientNetworkError
	return errors.As(err, &te)
}

func IsCredentialRefresh(err error) bool {
	var ce *CredentialRefreshError
	return errors.As(err, &ce)
}
