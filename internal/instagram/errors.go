package instagram

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	serrors "github.com/pilab-dev/creator-insights/errors"
)

var (
	ErrMisconfigured           = errors.New("instagram: app id, secret and redirect uri are required")
	ErrMalformedResponse       = errors.New("instagram: malformed response")
	ErrBusinessAccountRequired = errors.New("instagram: no business or creator account is linked to the user's pages")
)

// GraphError is a non-2xx answer from the Graph API.
type GraphError struct {
	Status  int
	Type    string
	Code    int
	Message string
	Body    string
}

func (e *GraphError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("graph api: status %d: %s (%s code %d)", e.Status, e.Message, e.Type, e.Code)
	}
	return fmt.Sprintf("graph api: status %d: %s", e.Status, e.Body)
}

// Upstream marks the error as originating from the platform.
func (e *GraphError) Upstream() bool { return true }

type graphErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// classify turns transport failures worth retrying into TransientNetworkError.
func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &netErr) && netErr.Timeout():
		return &serrors.TransientNetworkError{Op: op, Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
