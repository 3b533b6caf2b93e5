// Package auth resolves each request to an opaque caller identity.
//
// Token issuance and password handling live outside this service; all the
// API layer needs is "which user id does this bearer token belong to", and
// it trusts the answer unconditionally.
package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNoToken      = errors.New("missing bearer token")
	ErrUnknownToken = errors.New("unknown token")
)

// Resolver maps a presented bearer token to the owning user id.
type Resolver interface {
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

// TokenStore looks up a sha256 token digest (hex-encoded).
type TokenStore interface {
	ResolveToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
}

// StoreResolver resolves tokens against a persistent token store.
// Tokens are stored hashed; the plaintext never touches the database.
type StoreResolver struct {
	store TokenStore
}

func NewStoreResolver(store TokenStore) *StoreResolver {
	return &StoreResolver{store: store}
}

func (r *StoreResolver) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrNoToken
	}

	userID, err := r.store.ResolveToken(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrUnknownToken
		}
		return uuid.Nil, err
	}
	return userID, nil
}

// HashToken returns the hex sha256 digest of a plaintext token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// BearerToken extracts the bearer token from an Authorization header.
// Returns ErrNoToken when the header is absent or not a Bearer scheme.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}

	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrNoToken
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}
