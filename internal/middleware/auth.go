package middleware

import (
	"context"
	"net/http"
	"strings"

	"hospital-portal/internal/service"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	principalKey      = "principal"
	accessTokenCookie = "access_token"
)

// TokenParser validates access tokens
type TokenParser interface {
	ParseAccessToken(token string) (*utils.Claims, error)
}

// PrincipalResolver turns token claims into a Principal
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID uint, role string) (service.Principal, error)
}

// Auth builds the authentication middlewares around one token parser and resolver
type Auth struct {
	tokens   TokenParser
	identity PrincipalResolver
}

func NewAuth(tokens TokenParser, identity PrincipalResolver) *Auth {
	return &Auth{tokens: tokens, identity: identity}
}

// extractToken reads the access token from the Authorization header or the access_token cookie
func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	token, _ := c.Cookie(accessTokenCookie)
	return token
}

func (a *Auth) authenticate(c *gin.Context) (service.Principal, bool) {
	token := extractToken(c)
	if token == "" {
		return service.Principal{}, false
	}
	claims, err := a.tokens.ParseAccessToken(token)
	if err != nil {
		return service.Principal{}, false
	}
	principal, err := a.identity.Resolve(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		return service.Principal{}, false
	}

	c.Set("userID", principal.UserID)
	c.Set("role", principal.Role)
	c.Set(principalKey, principal)
	return principal, true
}

// AuthMiddleware requires a valid token of any role and answers 401 otherwise
func (a *Auth) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := a.authenticate(c); !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole requires a valid token for role. Anything else is redirected to that role's login page.
func (a *Auth) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := a.authenticate(c)
		if !ok || principal.Role != role {
			c.Redirect(http.StatusFound, service.LoginPath(role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireApproved stops doctors and patients whose account is still pending
func RequireApproved() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
			c.Abort()
			return
		}
		if !principal.Approved {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success":  false,
				"error":    "pending_approval",
				"redirect": service.AfterLogin(principal),
			})
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal stored by the auth middlewares
func GetPrincipal(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}
