package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
)

var middlewareTracer = otel.Tracer("auth-middleware")

// Gin context keys set by RequireAuth and OptionalAuth.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRoles    = "user_roles"
	ContextClaims   = "claims"
)

var errMissingToken = errors.New("missing JWT token")

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// RequestToken returns the token of a WebSocket handshake. Browsers cannot
// set headers on the upgrade request, so the token query parameter wins.
func RequestToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	return BearerToken(c.GetHeader("Authorization"))
}

// AuthenticateToken validates a raw token taken from outside the Authorization header.
func AuthenticateToken(ctx context.Context, jwtManager *JWTManager, token string) (*Claims, error) {
	if token == "" {
		return nil, errMissingToken
	}
	return jwtManager.ValidateToken(ctx, token)
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextRoles, claims.Roles)
	c.Set(ContextClaims, claims)
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message, Code: code})
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.require_auth")
		defer span.End()

		token := BearerToken(c.GetHeader("Authorization"))
		span.SetAttributes(attribute.Bool("auth.token_present", token != ""))
		if token == "" {
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Missing or malformed authorization header")
			return
		}

		claims, err := jwtManager.ValidateToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			log.Printf(`{"level":"warn","message":"Invalid token","path":"%s","error":%q}`, c.Request.URL.Path, err)
			abort(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid or expired token")
			return
		}

		span.SetAttributes(attribute.String("user.id", claims.UserID))
		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth attaches the caller's claims when a valid token is present
// and lets anonymous requests through.
func OptionalAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := middlewareTracer.Start(c.Request.Context(), "auth.optional_auth")
		defer span.End()

		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			span.SetAttributes(attribute.Bool("auth.authenticated", false))
			c.Next()
			return
		}

		claims, err := jwtManager.ValidateToken(ctx, token)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.Bool("auth.authenticated", false))
			log.Printf(`{"level":"warn","message":"Invalid optional token","error":%q}`, err)
			c.Next()
			return
		}

		span.SetAttributes(attribute.Bool("auth.authenticated", true))
		setClaims(c, claims)
		c.Next()
	}
}

// RequireRole must run after RequireAuth. Stream tokens never carry RoleUser,
// so RequireRole(RoleUser) keeps them off the REST API.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := middlewareTracer.Start(c.Request.Context(), "auth.require_role")
		defer span.End()
		span.SetAttributes(attribute.String("required.role", role))

		roles, _ := c.Get(ContextRoles)
		granted, _ := roles.([]string)
		if !slices.Contains(granted, role) {
			span.SetAttributes(attribute.Bool("auth.role_authorized", false))
			log.Printf(`{"level":"warn","message":"Insufficient permissions","user_id":"%s","required_role":"%s"}`,
				c.GetString(ContextUserID), role)
			abort(c, http.StatusForbidden, models.ErrCodeForbidden, "Insufficient permissions")
			return
		}

		c.Next()
	}
}
