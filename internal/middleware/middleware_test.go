package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"salonpay-be/internal/auth"
	"salonpay-be/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCors(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.POST("/payments/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/payments/status", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Stripe-Signature")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Tabby-Signature")
	})

	t.Run("Normal request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/payments/status", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	secret := []byte("test-secret")

	router := gin.New()
	router.POST("/admin", RequireAdmin(secret), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		assert.True(t, ok)
		c.String(http.StatusOK, claims.Subject)
	})

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Missing Token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("").Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("Bearer invalid-token").Code)
	})

	t.Run("Expired Token", func(t *testing.T) {
		tok, _ := auth.IssueToken("staff-1", auth.RoleAdmin, secret, -time.Hour)
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+tok).Code)
	})

	t.Run("Non Admin", func(t *testing.T) {
		tok, _ := auth.IssueToken("staff-2", "receptionist", secret, time.Hour)
		assert.Equal(t, http.StatusForbidden, do("Bearer "+tok).Code)
	})

	t.Run("Valid Admin", func(t *testing.T) {
		tok, _ := auth.IssueToken("staff-1", auth.RoleAdmin, secret, time.Hour)
		w := do("Bearer " + tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "staff-1", w.Body.String())
	})
}

func TestRequireAdmin_NoSecret(t *testing.T) {
	reached := false
	router := gin.New()
	router.POST("/admin", RequireAdmin(nil), func(c *gin.Context) {
		reached = true
		c.Status(http.StatusOK)
	})

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: auth.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "intruder",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(""))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"Admin access is not configured"}`, w.Body.String())
	assert.False(t, reached)
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit())
	router.POST("/payments/stripe/refund", func(c *gin.Context) { c.Status(http.StatusOK) })

	var limited bool
	for i := 0; i < burstStrict+1; i++ {
		req := httptest.NewRequest(http.MethodPost, "/payments/stripe/refund", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	assert.True(t, limited)
}

func TestResolveRateTier(t *testing.T) {
	cases := map[string]string{
		"/payments/tabby/webhook":  "webhook",
		"/payments/tamara/capture": "strict",
		"/payments/stripe/cancel":  "strict",
		"/payments/status":         "general",
	}
	for path, want := range cases {
		_, _, tier := resolveRateTier(httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, want, tier, path)
	}
}

func TestRecovery(t *testing.T) {
	core, observed := observer.New(zapcore.ErrorLevel)
	defer logger.Replace(zap.New(core))()

	router := gin.New()
	router.Use(Recovery())
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.Equal(t, 1, observed.FilterMessage("panic recovered").Len())
}
