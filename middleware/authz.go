package middleware

import (
	"crypto/subtle"
	"fmt"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
)

// RequireActor rejects anonymous requests. When roles are given the actor
// must hold one of them.
func RequireActor(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if actor == nil {
			AbortWithError(c, serrors.ErrUnauthorized)
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, actor.Role) {
			AbortWithError(c, fmt.Errorf("%w: role %q not allowed", serrors.ErrForbidden, actor.Role))
			return
		}
		c.Next()
	}
}

// RequireBearerSecret guards machine endpoints with a shared secret. An
// empty secret disables the route.
func RequireBearerSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			AbortWithError(c, serrors.NewNotFound("route", c.FullPath()))
			return
		}
		got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			AbortWithError(c, serrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}
