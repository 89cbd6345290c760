package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/auth"
)

var fixedNow = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func newAuth(secret string) *auth.Authenticator {
	return auth.New(secret, time.Hour).WithClock(func() time.Time { return fixedNow })
}

func protected(a *auth.Authenticator) http.Handler {
	return a.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if ok {
			w.Header().Set("X-Subject", claims.Subject)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func call(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodDelete, "/employees/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIssueAndValidate(t *testing.T) {
	a := newAuth("s3cret")

	token, err := a.Issue("ops")
	require.NoError(t, err)

	claims, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestValidate_Rejections(t *testing.T) {
	a := newAuth("s3cret")
	token, err := a.Issue("ops")
	require.NoError(t, err)

	// Wrong secret
	_, err = newAuth("other").Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// Expired
	later := auth.New("s3cret", time.Hour).WithClock(func() time.Time { return fixedNow.Add(2 * time.Hour) })
	_, err = later.Validate(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// Not an admin
	claims := &auth.Claims{
		Role: "kiosk",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
		},
	}
	kiosk, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = a.Validate(kiosk)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// Garbage
	_, err = a.Validate("not.a.jwt")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRequireAdmin(t *testing.T) {
	a := newAuth("s3cret")
	token, err := a.Issue("ops")
	require.NoError(t, err)
	h := protected(a)

	rec := call(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"ok":false,"error":"missing bearer token"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(h, "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, call(h, "Basic abc").Code)

	rec = call(h, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ops", rec.Header().Get("X-Subject"))
}

func TestRequireAdmin_OpenWithoutSecret(t *testing.T) {
	a := newAuth("")
	assert.False(t, a.Enabled())
	assert.Equal(t, http.StatusNoContent, call(protected(a), "").Code)

	_, err := a.Issue("ops")
	assert.Error(t, err)
}
