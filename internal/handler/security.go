package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/auth"
)

// APIKeyHeader carries a raw API key.
const APIKeyHeader = "X-API-Key"

// Security authenticates requests by API key or HS256 bearer token and
// stores the resulting auth.Identity in the request context.
type Security struct {
	apikeys   auth.Repository
	pepper    []byte
	jwtSecret []byte
}

// NewSecurity creates a Security. An empty jwtSecret disables bearer tokens.
func NewSecurity(apikeys auth.Repository, pepper, jwtSecret []byte) *Security {
	return &Security{apikeys: apikeys, pepper: pepper, jwtSecret: jwtSecret}
}

// Authenticate rejects requests without valid credentials with 401.
func (s *Security) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.identify(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

func (s *Security) identify(r *http.Request) (auth.Identity, error) {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return s.apiKey(r.Context(), key)
	}
	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return s.bearer(strings.TrimSpace(raw))
	}
	return auth.Identity{}, auth.ErrUnauthenticated
}

func (s *Security) apiKey(ctx context.Context, key string) (auth.Identity, error) {
	hash := auth.HashAPIKey(s.pepper, key)
	info, err := s.apikeys.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			return auth.Identity{}, auth.ErrUnauthenticated
		}
		return auth.Identity{}, errors.Wrap(err, "find api key")
	}
	// The stored row must match byte for byte; compare without leaking timing.
	if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	return info.Identity(), nil
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Security) bearer(raw string) (auth.Identity, error) {
	if len(s.jwtSecret) == 0 || raw == "" {
		return auth.Identity{}, auth.ErrUnauthenticated
	}
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || claims.Subject == "" {
		return auth.Identity{}, auth.ErrUnauthenticated
	}

	role := auth.RoleCustomer
	if auth.Role(claims.Role) == auth.RoleAdmin {
		role = auth.RoleAdmin
	}
	return auth.Identity{UserID: claims.Subject, Role: role}, nil
}

// identity returns the caller set by Authenticate.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
