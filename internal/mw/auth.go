package mw

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/auth"
	"evcharging-backend/internal/model"
)

const (
	AuthorizationHeaderKey  = "Authorization"
	AuthorizationTypeBearer = "Bearer"
	EmailKey                = "email"
	RoleKey                 = "role"
)

// TokenValidator validates an access token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's email and role in the context.
func Authenticate(tokens TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := strings.Fields(c.GetHeader(AuthorizationHeaderKey))
		if len(fields) != 2 || !strings.EqualFold(fields[0], AuthorizationTypeBearer) {
			Abort(c, apperr.ErrUnauthorized)
			return
		}

		claims, err := tokens.ValidateToken(fields[1])
		if err != nil {
			logger.Debug("rejected token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			Abort(c, apperr.ErrUnauthorized)
			return
		}

		c.Set(EmailKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// RouteRoles maps "METHOD /full/route/pattern" to the role it requires.
// Routes not listed only need an authenticated caller.
type RouteRoles map[string]model.Role

// RouteKey builds a RouteRoles key.
func RouteKey(method, fullPath string) string {
	return method + " " + fullPath
}

// AuthorizeRole enforces the role table. It must run after Authenticate.
func AuthorizeRole(roles RouteRoles) gin.HandlerFunc {
	return func(c *gin.Context) {
		required, ok := roles[RouteKey(c.Request.Method, c.FullPath())]
		if !ok {
			c.Next()
			return
		}

		role, _ := c.Get(RoleKey)
		if role != required {
			Abort(c, apperr.ErrForbidden)
			return
		}
		c.Next()
	}
}

// CurrentEmail returns the authenticated caller's email, if any.
func CurrentEmail(c *gin.Context) (string, bool) {
	email := c.GetString(EmailKey)
	return email, email != ""
}

// CurrentRole returns the authenticated caller's role, if any.
func CurrentRole(c *gin.Context) (model.Role, bool) {
	v, ok := c.Get(RoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(model.Role)
	return role, ok
}
