package errors

import (
	"errors"
	"net/http"
)

// APIError is the JSON error body returned by the HTTP API.
type APIError struct {
	Code      string `json:"error"`
	Message   string `json:"message,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

const (
	CodeNotFound          = "not_found"
	CodeInvalidRequest    = "invalid_request"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeRefreshFailed     = "credential_refresh_failed"
	CodeUpstreamTransient = "upstream_unavailable"
	CodeUpstreamFailed    = "upstream_error"
	CodeServerError       = "server_error"
)

// ToAPIError maps an error to an HTTP status and response body.
// Internal error text is only exposed for client-side errors.
func ToAPIError(err error) (int, *APIError) {
	var apiErr *APIError
	switch {
	case err == nil:
		return http.StatusOK, nil
	case errors.As(err, &apiErr):
		return http.StatusBadRequest, apiErr
	case IsNotFound(err):
		return http.StatusNotFound, &APIError{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, &APIError{Code: CodeInvalidRequest, Message: err.Error()}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, &APIError{Code: CodeUnauthorized}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, &APIError{Code: CodeForbidden, Message: err.Error()}
	case IsCredentialRefresh(err) && IsTransient(err):
		return http.StatusServiceUnavailable, &APIError{Code: CodeRefreshFailed, Message: "platform temporarily unreachable", Retryable: true}
	case IsCredentialRefresh(err):
		return http.StatusBadGateway, &APIError{Code: CodeRefreshFailed, Message: "reconnect the account or retry later", Retryable: true}
	case IsTransient(err):
		return http.StatusServiceUnavailable, &APIError{Code: CodeUpstreamTransient, Retryable: true}
	case IsUpstream(err):
		return http.StatusBadGateway, &APIError{Code: CodeUpstreamFailed}
	default:
		return http.StatusInternalServerError, &APIError{Code: CodeServerError}
	}
}

// upstream is implemented by errors that originate from the platform API.
type upstream interface {
	Upstream() bool
}

// IsUpstream reports whether err was produced by the external platform.
func IsUpstream(err error) bool {
	var u upstream
	return errors.As(err, &u) && u.Upstream()
}
