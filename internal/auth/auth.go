// Package auth registers learners and resolves their identity from API tokens.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/store"
)

var (
	// ErrInvalidToken is returned when a token does not belong to any user.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptyName is returned when registering without a name.
	ErrEmptyName = errors.New("name is required")
)

// HashToken returns the stored form of an API token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Register creates a user and returns it together with its API token.
// The token is only available here; the store keeps its hash.
func Register(s *store.Store, name string) (*store.User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", ErrEmptyName
	}

	token := uuid.NewString()
	u := &store.User{
		ID:        uuid.NewString(),
		Name:      name,
		TokenHash: HashToken(token),
	}
	if err := s.Users().Create(u); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}
	return u, token, nil
}

// Authenticate resolves a token to an identity.
func Authenticate(s *store.Store, token string) (session.Identity, error) {
	u, err := s.Users().GetByTokenHash(HashToken(token))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return session.Identity{}, ErrInvalidToken
		}
		return session.Identity{}, err
	}
	return session.Identity{UserID: u.ID, Name: u.Name}, nil
}

type contextKey struct{}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity session.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext returns the request identity. Requests without one are guests.
func IdentityFromContext(ctx context.Context) session.Identity {
	identity, _ := ctx.Value(contextKey{}).(session.Identity)
	return identity
}

// Middleware resolves the bearer token of each request. Requests without an
// Authorization header continue as guests; unknown tokens are rejected.
func Middleware(s *store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				unauthorized(w, "malformed authorization header")
				return
			}

			identity, err := Authenticate(s, strings.TrimSpace(token))
			if err != nil {
				if errors.Is(err, ErrInvalidToken) {
					unauthorized(w, ErrInvalidToken.Error())
					return
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"error": "failed to authenticate"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireUser rejects guest requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()).IsGuest() {
			unauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
