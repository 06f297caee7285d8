package ginapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/internal/instagram"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/middleware"
	"github.com/pilab-dev/creator-insights/services"
)

const (
	errInvalidState        = "invalid_oauth_state"
	errBusinessRequired    = "instagram_business_or_creator_required"
	errOnlyInfluencers     = "only_influencers_can_connect_instagram"
	errUnauthorized        = "unauthorized"
	errAccessDenied        = "Access denied. Please grant the required permissions to connect your Instagram account."
	errUserDenied          = "You denied the permission request. Please try again and grant the required permissions."
	errCancelled           = "Authentication was cancelled or failed. Please try again."
	errNetwork             = "Network error: Could not connect to Facebook API. Please check your internet connection and try again."
	dashboardPath          = "/dashboard/influencer"
	authErrorPath          = "/auth/error"
	stateCookiePath        = "/"
	clearedCookieMaxAgeSec = -1
)

func (a *API) redirectError(c *gin.Context, message string) {
	target := strings.TrimRight(a.opts.BaseURL, "/") + authErrorPath + "?error=" + url.QueryEscape(message)
	c.Redirect(http.StatusFound, target)
}

func (a *API) setStateCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(StateCookie, value, maxAge, stateCookiePath, "", a.opts.SecureCookie, true)
}

// LoginHandler starts the connect flow: it stores a single-use state for the
// caller and redirects to the platform's authorization dialog.
func (a *API) LoginHandler(c *gin.Context) {
	req, err := a.opts.Connect.Begin(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		a.logger.Warn(c.Request.Context(), "Failed to start Instagram login", log.Fields{"error": err.Error()})
		a.redirectError(c, connectErrorMessage(err))
		return
	}
	a.setStateCookie(c, req.State, int(a.opts.Connect.StateTTL().Seconds()))
	c.Redirect(http.StatusFound, req.AuthURL)
}

// CallbackHandler completes the connect flow. Every outcome is a redirect:
// the dashboard on success, the error page otherwise.
func (a *API) CallbackHandler(c *gin.Context) {
	ctx := c.Request.Context()

	if oauthErr := c.Query("error"); oauthErr != "" {
		a.redirectError(c, providerErrorMessage(oauthErr, c.Query("error_reason"), c.Query("error_description")))
		return
	}

	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		if reason := c.Query("error_reason"); reason != "" {
			msg := "Authentication failed: " + reason
			if desc := c.Query("error_description"); desc != "" {
				msg += " - " + desc
			}
			a.redirectError(c, msg)
			return
		}
		a.redirectError(c, errCancelled)
		return
	}

	stored, err := c.Cookie(StateCookie)
	a.setStateCookie(c, "", clearedCookieMaxAgeSec)
	if err != nil || stored != state {
		a.redirectError(c, errInvalidState)
		return
	}

	if _, err := a.opts.Connect.Complete(ctx, middleware.ActorFrom(c), state, code); err != nil {
		a.logger.Warn(ctx, "Instagram connect failed", log.Fields{"error": err.Error()})
		a.redirectError(c, connectErrorMessage(err))
		return
	}

	c.Redirect(http.StatusFound, strings.TrimRight(a.opts.BaseURL, "/")+dashboardPath)
}

func providerErrorMessage(code, reason, description string) string {
	switch {
	case code == "access_denied":
		return errAccessDenied
	case reason == "user_denied":
		return errUserDenied
	}
	msg := code
	if reason != "" {
		msg += " (" + reason + ")"
	}
	if description != "" {
		msg += ": " + description
	}
	return msg
}

func connectErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidState):
		return errInvalidState
	case errors.Is(err, services.ErrOnlyInfluencers):
		return errOnlyInfluencers
	case errors.Is(err, serrors.ErrUnauthorized):
		return errUnauthorized
	case errors.Is(err, instagram.ErrBusinessAccountRequired):
		return errBusinessRequired
	case serrors.IsTransient(err):
		return errNetwork
	default:
		return "OAuth failed: " + err.Error()
	}
}
