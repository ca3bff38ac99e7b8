package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("0123456789abcdef", time.Hour)
	raw, err := tokens.Issue(42)
	require.NoError(t, err)

	uid, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, uint(42), uid)
}

func TestTokensRejects(t *testing.T) {
	tokens := NewTokens("0123456789abcdef", time.Hour)

	other := NewTokens("fedcba9876543210", time.Hour)
	foreign, err := other.Issue(1)
	require.NoError(t, err)

	expired := NewTokens("0123456789abcdef", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(1)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, raw := range map[string]string{
		"wrong secret": foreign,
		"expired":      old,
		"alg none":     none,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Parse(raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "correct horse"))
	assert.ErrorIs(t, CheckPassword(hash, "battery staple"), ErrInvalidCredentials)
}

func TestMiddlewareAndRequireAuth(t *testing.T) {
	tokens := NewTokens("0123456789abcdef", time.Hour)
	raw, err := tokens.Issue(7)
	require.NoError(t, err)

	var seen uint
	h := tokens.Middleware(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, uint(7), seen)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestRequireAuthVerifier(t *testing.T) {
	SetUserVerifier(func(_ context.Context, uid uint) bool { return uid != 13 })
	t.Cleanup(func() { SetUserVerifier(nil) })

	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), 13)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, req.WithContext(WithUserID(req.Context(), 12)))
	assert.Equal(t, http.StatusOK, w.Code)
}
