package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "middleware_secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

type capturedIdentity struct {
	userID     any
	username   any
	userTypeID any
}

func newAuthedRouter() (*gin.Engine, *capturedIdentity) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	captured := &capturedIdentity{}
	r.GET("/protected", AuthMiddleware(testSecret), func(c *gin.Context) {
		captured.userID, _ = c.Get("userID")
		captured.username, _ = c.Get("username")
		captured.userTypeID, _ = c.Get("userTypeID")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r, captured
}

func TestAuthMiddleware_Unauthorized(t *testing.T) {
	r, _ := newAuthedRouter()

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"garbage token", "Bearer not.a.token"},
		{"wrong secret", "Bearer " + signToken(t, "other_secret", jwt.MapClaims{
			"sub": "1",
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub": "1",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"missing subject", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
		{"non-numeric subject", "Bearer " + signToken(t, testSecret, jwt.MapClaims{
			"sub": "maria",
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestAuthMiddleware_SetsContextValues(t *testing.T) {
	r, captured := newAuthedRouter()

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":          "42",
		"name":         "Maria",
		"username":     "maria",
		"user_type_id": 2,
		"exp":          time.Now().Add(time.Hour).Unix(),
		"iat":          time.Now().Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if captured.userID != uint(42) {
		t.Errorf("userID = %v, want 42", captured.userID)
	}
	if captured.username != "maria" {
		t.Errorf("username = %v", captured.username)
	}
	if captured.userTypeID != uint(2) {
		t.Errorf("userTypeID = %v", captured.userTypeID)
	}
}
