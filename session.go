package blogsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL matches the 7-day cookie lifetime of the web client.
const SessionTTL = 7 * 24 * time.Hour

// Credential is an opaque bearer token proving an authenticated identity,
// with the expiry it was stored under.
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the credential is past its expiry at now.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Session owns the persisted credential: written at login, erased at logout,
// read by the Remote client on every request.
type Session struct {
	mu     sync.Mutex
	store  LocalStore
	cred   *Credential
	logger *slog.Logger
}

// NewSession loads any persisted credential from the store.
func NewSession(ctx context.Context, store LocalStore, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cred, err := store.LoadCredential(ctx)
	if err != nil && !errors.Is(err, ErrNoCredential) {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	return &Session{store: store, cred: cred, logger: logger}, nil
}

// SetToken stores a fresh credential. The expiry is seven days out, or the
// token's own exp claim when it parses as a JWT and expires sooner.
func (s *Session) SetToken(ctx context.Context, token string) error {
	expires := time.Now().Add(SessionTTL)
	if exp, ok := tokenExpiry(token); ok && exp.Before(expires) {
		expires = exp
	}
	cred := &Credential{Token: token, ExpiresAt: expires}
	if err := s.store.SaveCredential(ctx, cred); err != nil {
		return fmt.Errorf("failed to persist credential: %w", err)
	}

	s.mu.Lock()
	s.cred = cred
	s.mu.Unlock()
	return nil
}

// Token returns the bearer token if a live credential exists.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cred == nil || s.cred.Expired(time.Now()) {
		return "", false
	}
	return s.cred.Token, true
}

// Authenticated reports whether a live credential exists.
func (s *Session) Authenticated() bool {
	_, ok := s.Token()
	return ok
}

// Clear erases the credential from memory and the store.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.DeleteCredential(ctx); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	s.mu.Lock()
	s.cred = nil
	s.mu.Unlock()
	return nil
}

// tokenExpiry peeks at the exp claim of a JWT without verifying the
// signature. The client has no verification key; the server stays
// authoritative and the claim only tightens the local expiry.
func tokenExpiry(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
