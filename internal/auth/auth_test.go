package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundmate/soundmate/internal/auth"
	"github.com/soundmate/soundmate/internal/config"
)

func testAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()
	cfg := config.New()
	cfg.Auth.Secret = "test-secret"
	cfg.Auth.TokenTTL = time.Minute
	return auth.New(cfg)
}

func stubHandler(gotUser *uint64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := auth.CurrentUser(r.Context()); ok {
			*gotUser = id
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	a := testAuthenticator(t)

	token, err := a.IssueToken(42)
	require.NoError(t, err)

	var gotUser uint64
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	a.Middleware(stubHandler(&gotUser)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(42), gotUser)
}

func TestMiddleware_Rejections(t *testing.T) {
	a := testAuthenticator(t)

	otherCfg := config.New()
	otherCfg.Auth.Secret = "other-secret"
	otherCfg.Auth.TokenTTL = time.Minute
	foreign, err := auth.New(otherCfg).IssueToken(42)
	require.NoError(t, err)

	cases := map[string]string{
		"no header":     "",
		"not bearer":    "Basic abc",
		"garbage token": "Bearer not.a.jwt",
		"wrong secret":  "Bearer " + foreign,
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			var gotUser uint64
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()

			a.Middleware(stubHandler(&gotUser)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Zero(t, gotUser)
			assert.Contains(t, rec.Body.String(), "unauthorized")
		})
	}
}

func TestIssueToken_SubjectRoundTrip(t *testing.T) {
	a := testAuthenticator(t)
	for _, id := range []uint64{1, 42, 1 << 40} {
		token, err := a.IssueToken(id)
		require.NoError(t, err)

		var gotUser uint64
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		a.Middleware(stubHandler(&gotUser)).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, id, gotUser, "user id %s", strconv.FormatUint(id, 10))
	}
}
