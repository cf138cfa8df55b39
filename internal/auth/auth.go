// Package auth resolves the requesting user from a Bearer JWT issued by
// the external auth collaborator. The engine only needs the user id;
// sign-up, SSO and token exchange all live elsewhere.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/soundmate/soundmate/internal/config"
	svcErr "github.com/soundmate/soundmate/internal/errors"
)

type contextKey struct{}

var userIDKey contextKey

type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func New(cfg *config.Config) *Authenticator {
	return &Authenticator{
		secret: []byte(cfg.Auth.Secret),
		ttl:    cfg.Auth.TokenTTL,
	}
}

// IssueToken mints a session token for the user. Used by the seed tool
// and tests; production tokens come from the auth collaborator, which
// shares the signing secret.
func (a *Authenticator) IssueToken(userID uint64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Middleware authenticates the request and stores the user id in the
// request context. Requests without a valid Bearer token get 401 with
// the engine's error envelope.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := a.userFromRequest(r)
		if err != nil {
			svcErr.WriteHTTP(w, svcErr.Unauthorized("missing or invalid session token"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (a *Authenticator) userFromRequest(r *http.Request) (uint64, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return 0, fmt.Errorf("no bearer token")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return 0, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	return userID, nil
}

// WithUserID returns a context carrying the authenticated user id.
func WithUserID(ctx context.Context, userID uint64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// CurrentUser extracts the authenticated user id from the context.
func CurrentUser(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(userIDKey).(uint64)
	return id, ok
}
