package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identityapp "github.com/invoicely/backend/internal/application/identity"
	identity "github.com/invoicely/backend/internal/domain/identity"
	"github.com/invoicely/backend/internal/infrastructure/auth"
	"github.com/invoicely/backend/internal/infrastructure/logger"
	"github.com/invoicely/backend/internal/interfaces/http/dto"
)

// Context keys set by the auth middleware
const (
	PrincipalKey  = "principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AuthMiddlewareConfig configures the auth middleware
type AuthMiddlewareConfig struct {
	AuthService *identityapp.AuthService
	// SkipPaths are exact request paths that bypass authentication.
	SkipPaths []string
	Logger    *zap.Logger
}

// AuthMiddleware validates the bearer token on every request and stores the
// authenticated principal in the gin context. Validation goes through the
// auth service so revoked tokens are rejected.
func AuthMiddleware(authService *identityapp.AuthService, log *zap.Logger) gin.HandlerFunc {
	return AuthMiddlewareWithConfig(AuthMiddlewareConfig{
		AuthService: authService,
		Logger:      log,
	})
}

// AuthMiddlewareWithConfig is AuthMiddleware with skip paths for public
// endpoints, so it can be applied to the whole API group.
func AuthMiddlewareWithConfig(cfg AuthMiddlewareConfig) gin.HandlerFunc {
	authService := cfg.AuthService
	log := cfg.Logger
	skipPaths := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipPaths[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortUnauthorized(c, "UNAUTHORIZED", "Missing authorization header")
			return
		}
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, "UNAUTHORIZED", "Invalid authorization header format")
			return
		}
		token := strings.TrimPrefix(header, BearerPrefix)
		if token == "" {
			abortUnauthorized(c, "UNAUTHORIZED", "Missing token")
			return
		}

		principal, err := authService.ValidateAccess(c.Request.Context(), token)
		if err != nil {
			if log != nil {
				log.Debug("Token validation failed",
					zap.Error(err),
					zap.String("path", c.Request.URL.Path),
				)
			}
			code, message := authErrorCode(err)
			abortUnauthorized(c, code, message)
			return
		}

		c.Set(PrincipalKey, *principal)

		// Propagate the user to the request-scoped logger.
		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), principal.ID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetPrincipal returns the authenticated principal stored by AuthMiddleware
func GetPrincipal(c *gin.Context) (identity.Principal, bool) {
	value, ok := c.Get(PrincipalKey)
	if !ok {
		return identity.Principal{}, false
	}
	principal, ok := value.(identity.Principal)
	return principal, ok
}

// RequireRole rejects requests whose principal does not hold one of the
// given roles. Must run after AuthMiddleware.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			abortUnauthorized(c, "UNAUTHORIZED", "Authentication required")
			return
		}
		for _, role := range roles {
			if principal.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
			dto.ErrCodeForbidden,
			"Access to this resource is forbidden",
		))
	}
}

func authErrorCode(err error) (code, message string) {
	switch err {
	case auth.ErrExpiredToken:
		return "TOKEN_EXPIRED", "Token has expired"
	case auth.ErrTokenBlacklisted:
		return "TOKEN_REVOKED", "Token has been revoked"
	case auth.ErrTokenNotYetValid:
		return "TOKEN_NOT_VALID", "Token is not yet valid"
	case auth.ErrInvalidTokenType:
		return "INVALID_TOKEN_TYPE", "Invalid token type"
	default:
		return "INVALID_TOKEN", "Invalid token"
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}
