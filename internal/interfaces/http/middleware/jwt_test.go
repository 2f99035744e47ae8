package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/schoolgrants/backend/internal/infrastructure/auth"
	"github.com/schoolgrants/backend/internal/infrastructure/config"
	"github.com/schoolgrants/backend/internal/infrastructure/logger"
	"github.com/schoolgrants/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-chars"

func signToken(t *testing.T, name string, expiresIn time.Duration) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    "moe-idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
		Name: name,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func authRouter(required bool) (*gin.Engine, *string, *string) {
	var actor, ctxUser string
	verifier := auth.NewVerifier(config.JWTConfig{Secret: testSecret, Issuer: "moe-idp"})
	r := gin.New()
	r.Use(RequestID(), JWTAuthMiddlewareWithConfig(DefaultJWTConfig(verifier, required)))
	r.GET("/api/v1/accountability", func(c *gin.Context) {
		actor = GetActor(c)
		ctxUser = logger.GetActor(c.Request.Context())
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r, &actor, &ctxUser
}

func doAuth(r *gin.Engine, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(AuthHeaderKey, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestJWT_ValidTokenSetsActor(t *testing.T) {
	r, actor, ctxUser := authRouter(true)

	w := doAuth(r, "/api/v1/accountability", "Bearer "+signToken(t, "Mary Akol", time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Mary Akol", *actor)
	assert.Equal(t, "Mary Akol", *ctxUser)
}

func TestJWT_Rejections(t *testing.T) {
	r, _, _ := authRouter(true)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", dto.ErrCodeUnauthorized},
		{"wrong scheme", "Basic abc", dto.ErrCodeTokenInvalid},
		{"garbage token", "Bearer not.a.token", dto.ErrCodeTokenInvalid},
		{"expired", "Bearer " + signToken(t, "Mary Akol", -time.Hour), dto.ErrCodeTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doAuth(r, "/api/v1/accountability", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestJWT_OptionalAllowsAnonymous(t *testing.T) {
	r, actor, _ := authRouter(false)

	w := doAuth(r, "/api/v1/accountability", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, *actor)

	w = doAuth(r, "/api/v1/accountability", "Bearer not.a.token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWT_SkipPaths(t *testing.T) {
	r, _, _ := authRouter(true)
	assert.Equal(t, http.StatusOK, doAuth(r, "/health", "").Code)
}
