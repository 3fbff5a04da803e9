package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrMissingSigningKey is returned when no signing secret was configured.
	ErrMissingSigningKey = errors.New("auth: JWT signing key is required")
	// ErrWrongRun is returned when a stream token is presented for another run.
	ErrWrongRun = errors.New("auth: token is scoped to a different run")
)

const (
	issuer = "travel-planner"

	// RoleUser is granted to every login.
	RoleUser = "user"
	// RoleStream only opens the event stream of the run named in the token.
	RoleStream = "stream"
)

// JWTManager issues and validates HMAC-signed tokens.
type JWTManager struct {
	signingKey []byte
	parser     *jwt.Parser
	tracer     trace.Tracer
}

// Claims identifies the caller. RunID is set on stream tokens only.
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	RunID    string   `json:"run_id,omitempty"`
	jwt.RegisteredClaims
}

// CanStream reports whether the claims may open the event stream of runID.
func (c *Claims) CanStream(runID uuid.UUID) error {
	if c.RunID != "" && c.RunID != runID.String() {
		return ErrWrongRun
	}
	return nil
}

// NewJWTManager creates a JWT manager signing with the given HMAC secret.
func NewJWTManager(signingKey string) (*JWTManager, error) {
	if signingKey == "" {
		return nil, ErrMissingSigningKey
	}

	return &JWTManager{
		signingKey: []byte(signingKey),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
		tracer: otel.Tracer("jwt-manager"),
	}, nil
}

// GenerateToken issues a login token.
func (jm *JWTManager) GenerateToken(ctx context.Context, userID, username string, roles []string, duration time.Duration) (string, error) {
	_, span := jm.tracer.Start(ctx, "jwt.generate_token")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	return jm.sign(span, Claims{UserID: userID, Username: username, Roles: roles}, duration)
}

// GenerateStreamToken issues a short-lived token that can only open the
// WebSocket stream of one run. It is safe to put in a URL where a login
// token would leak into access logs.
func (jm *JWTManager) GenerateStreamToken(ctx context.Context, userID string, runID uuid.UUID, duration time.Duration) (string, error) {
	_, span := jm.tracer.Start(ctx, "jwt.generate_stream_token")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("run.id", runID.String()),
	)

	return jm.sign(span, Claims{UserID: userID, Roles: []string{RoleStream}, RunID: runID.String()}, duration)
}

func (jm *JWTManager) sign(span trace.Span, claims Claims, duration time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    issuer,
		Subject:   claims.UserID,
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(jm.signingKey)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	span.SetAttributes(attribute.String("jwt.id", claims.ID))
	return signed, nil
}

// ValidateToken checks signature, issuer and expiry and returns the claims.
func (jm *JWTManager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	_, span := jm.tracer.Start(ctx, "jwt.validate_token")
	defer span.End()

	claims := &Claims{}
	_, err := jm.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return jm.signingKey, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	span.SetAttributes(
		attribute.String("user.id", claims.UserID),
		attribute.String("jwt.id", claims.ID),
	)
	return claims, nil
}

// RefreshToken re-issues a valid login token with a new expiry. Stream
// tokens cannot be refreshed.
func (jm *JWTManager) RefreshToken(ctx context.Context, tokenString string, duration time.Duration) (string, error) {
	ctx, span := jm.tracer.Start(ctx, "jwt.refresh_token")
	defer span.End()

	claims, err := jm.ValidateToken(ctx, tokenString)
	if err != nil {
		return "", fmt.Errorf("cannot refresh invalid token: %w", err)
	}
	if claims.RunID != "" {
		return "", errors.New("cannot refresh a stream token")
	}

	return jm.GenerateToken(ctx, claims.UserID, claims.Username, claims.Roles, duration)
}
