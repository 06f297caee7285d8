// Package middleware holds the gin middleware shared by the HTTP API.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pilab-dev/creator-insights/domain"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/tracing"
)

// ActorKey is the gin context key holding the resolved *domain.Actor.
const ActorKey = "actor"

// ErrInvalidSession is returned for a session token that fails validation.
var ErrInvalidSession = fmt.Errorf("%w: invalid session", serrors.ErrUnauthorized)

// ActorResolver resolves the authenticated user behind a request.
// It returns (nil, nil) when the request carries no credentials.
type ActorResolver interface {
	Resolve(r *http.Request) (*domain.Actor, error)
}

// SessionClaims are the claims of a marketplace session token.
type SessionClaims struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTSessionResolver validates HS256 session tokens taken from the session
// cookie or a Bearer Authorization header.
type JWTSessionResolver struct {
	secret []byte
	cookie string
}

func NewJWTSessionResolver(secret, cookie string) *JWTSessionResolver {
	return &JWTSessionResolver{secret: []byte(secret), cookie: cookie}
}

// Issue signs a session token for actor valid for ttl.
func (r *JWTSessionResolver) Issue(actor *domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID: actor.ID,
		Role:   actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}

func (r *JWTSessionResolver) Resolve(req *http.Request) (*domain.Actor, error) {
	raw := r.extract(req)
	if raw == "" {
		return nil, nil
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrInvalidSession
	}
	return &domain.Actor{ID: userID, Role: claims.Role}, nil
}

func (r *JWTSessionResolver) extract(req *http.Request) string {
	if r.cookie != "" {
		if c, err := req.Cookie(r.cookie); err == nil && c.Value != "" {
			return c.Value
		}
	}
	const prefix = "Bearer "
	if h := req.Header.Get("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

// Authenticate resolves the actor and stores it in both the gin and request
// contexts. Requests without credentials continue anonymously; invalid
// credentials are rejected.
func Authenticate(resolver ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := tracing.Start(c.Request.Context(), "middleware.authenticate")
		actor, err := resolver.Resolve(c.Request)
		tracing.End(span, err)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if actor != nil {
			c.Set(ActorKey, actor)
			c.Request = c.Request.WithContext(domain.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}

// ActorFrom returns the actor resolved by Authenticate, or nil.
func ActorFrom(c *gin.Context) *domain.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(*domain.Actor); ok {
			return actor
		}
	}
	return nil
}

// AbortWithError writes the API error body for err and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	status, body := serrors.ToAPIError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}
