package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-travel-planner"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	jm, err := NewJWTManager(testSecret)
	require.NoError(t, err)
	return jm
}

func TestNewJWTManager(t *testing.T) {
	_, err := NewJWTManager("")
	assert.ErrorIs(t, err, ErrMissingSigningKey)

	jm, err := NewJWTManager(testSecret)
	require.NoError(t, err)
	assert.NotNil(t, jm.parser)
}

func TestJWTManager_RoundTrip(t *testing.T) {
	jm := newTestManager(t)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-123", "ana@example.com", []string{"user"}, time.Hour)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Username)
	assert.Equal(t, []string{"user"}, claims.Roles)
	assert.Equal(t, "travel-planner", claims.Issuer)
}

func TestJWTManager_ValidateToken_Rejects(t *testing.T) {
	jm := newTestManager(t)
	ctx := context.Background()

	expired, err := jm.GenerateToken(ctx, "user-123", "ana", nil, -time.Minute)
	require.NoError(t, err)

	other, err := NewJWTManager("another-secret")
	require.NoError(t, err)
	foreign, err := other.GenerateToken(ctx, "user-123", "ana", nil, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: expired},
		{name: "wrong_key", token: foreign},
		{name: "wrong_issuer", token: wrongIssuer},
		{name: "garbage", token: "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := jm.ValidateToken(ctx, tt.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTManager_RefreshToken(t *testing.T) {
	jm := newTestManager(t)
	ctx := context.Background()

	token, err := jm.GenerateToken(ctx, "user-123", "ana", []string{"user"}, time.Minute)
	require.NoError(t, err)

	refreshed, err := jm.RefreshToken(ctx, token, time.Hour)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(ctx, refreshed)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)

	_, err = jm.RefreshToken(ctx, "bogus", time.Hour)
	assert.Error(t, err)
}

func TestJWTManager_StreamToken(t *testing.T) {
	jm := newTestManager(t)
	ctx := context.Background()
	runID := uuid.New()

	token, err := jm.GenerateStreamToken(ctx, "user-123", runID, time.Minute)
	require.NoError(t, err)

	claims, err := jm.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, []string{RoleStream}, claims.Roles)
	assert.NoError(t, claims.CanStream(runID))
	assert.ErrorIs(t, claims.CanStream(uuid.New()), ErrWrongRun)

	_, err = jm.RefreshToken(ctx, token, time.Hour)
	assert.Error(t, err)

	login, err := jm.GenerateToken(ctx, "user-123", "ana", []string{RoleUser}, time.Hour)
	require.NoError(t, err)
	loginClaims, err := jm.ValidateToken(ctx, login)
	require.NoError(t, err)
	assert.NoError(t, loginClaims.CanStream(runID))
}

func TestRequireRole_RejectsStreamToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jm := newTestManager(t)

	token, err := jm.GenerateStreamToken(context.Background(), "user-123", uuid.New(), time.Minute)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/plans", RequireAuth(jm), RequireRole(RoleUser), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/plans", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("Bearer  abc "))
	assert.Empty(t, BearerToken("Basic abc"))
	assert.Empty(t, BearerToken(""))
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jm := newTestManager(t)

	valid, err := jm.GenerateToken(context.Background(), "user-123", "ana", []string{"user"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		expectedStatus int
	}{
		{name: "valid_token", header: "Bearer " + valid, expectedStatus: http.StatusOK},
		{name: "missing_header", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "wrong_scheme", header: "Token " + valid, expectedStatus: http.StatusUnauthorized},
		{name: "invalid_token", header: "Bearer nope", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/protected", RequireAuth(jm), RequireRole("user"), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(ContextUserID)})
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), "user-123")
			}
		})
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jm := newTestManager(t)

	token, err := jm.GenerateToken(context.Background(), "user-123", "ana", []string{"viewer"}, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/admin", RequireAuth(jm), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jm := newTestManager(t)

	token, err := jm.GenerateToken(context.Background(), "user-123", "ana", nil, time.Hour)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/maybe", OptionalAuth(jm), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID))
	})

	for header, expected := range map[string]string{
		"":                   "",
		"Bearer " + token:    "user-123",
		"Bearer not-a-token": "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, expected, w.Body.String())
	}
}

func TestRequestToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		url      string
		header   string
		expected string
	}{
		{name: "query_parameter", url: "/ws?token=q-token", expected: "q-token"},
		{name: "header_fallback", url: "/ws", header: "Bearer h-token", expected: "h-token"},
		{name: "query_wins", url: "/ws?token=q-token", header: "Bearer h-token", expected: "q-token"},
		{name: "none", url: "/ws", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.expected, RequestToken(c))
		})
	}

	_, err := AuthenticateToken(context.Background(), newTestManager(t), "")
	assert.ErrorIs(t, err, errMissingToken)
}
