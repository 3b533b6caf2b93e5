package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type fakeTokenStore struct {
	tokens map[string]uuid.UUID
	err    error
}

func (s *fakeTokenStore) ResolveToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	if s.err != nil {
		return uuid.Nil, s.err
	}
	id, ok := s.tokens[tokenHash]
	if !ok {
		return uuid.Nil, sql.ErrNoRows
	}
	return id, nil
}

func TestStoreResolver_KnownToken(t *testing.T) {
	userID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	store := &fakeTokenStore{tokens: map[string]uuid.UUID{
		HashToken("secret-token"): userID,
	}}
	resolver := NewStoreResolver(store)

	got, err := resolver.Resolve(context.Background(), "secret-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != userID {
		t.Errorf("Resolve = %s, want %s", got, userID)
	}
}

func TestStoreResolver_UnknownToken(t *testing.T) {
	resolver := NewStoreResolver(&fakeTokenStore{tokens: map[string]uuid.UUID{}})

	_, err := resolver.Resolve(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
}

func TestStoreResolver_EmptyToken(t *testing.T) {
	resolver := NewStoreResolver(&fakeTokenStore{})

	_, err := resolver.Resolve(context.Background(), "")
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}
}

func TestStoreResolver_StoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	resolver := NewStoreResolver(&fakeTokenStore{err: storeErr})

	_, err := resolver.Resolve(context.Background(), "secret-token")
	if !errors.Is(err, storeErr) {
		t.Errorf("expected store error to propagate, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid", "Bearer abc123", "abc123", false},
		{"lowercase scheme", "bearer abc123", "abc123", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic abc123", "", true},
		{"scheme only", "Bearer ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got, err := BearerToken(req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("BearerToken = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	if HashToken("a") != HashToken("a") {
		t.Error("same input should hash identically")
	}
	if HashToken("a") == HashToken("b") {
		t.Error("different inputs should hash differently")
	}
	if len(HashToken("a")) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(HashToken("a")))
	}
}
