// Package session persists the local credential and region preference.
//
// The store is an injected object with a single owner per process; nothing
// here is ambient package state, so tests construct isolated instances.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
)

// ErrNoToken signals that no valid access token is stored (login required).
var ErrNoToken = errors.New("no valid token (login required)")

type state struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	Region       string          `json:"region,omitempty"`
	User         *model.AuthUser `json:"user,omitempty"`
}

// Store is a file-backed session: access token, region preference and the
// last known user identity. Writes are last-write-wins; one interactive
// session per config dir is assumed.
type Store struct {
	path string
	st   state
}

// Open loads the session file under dir, creating an empty session when the
// file does not exist.
func Open(dir string) (*Store, error) {
	s := &Store{path: filepath.Join(dir, "session.json")}
	b, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(b, &s.st); err != nil {
			// Corrupt session files are discarded, not fatal.
			s.st = state{}
		}
	case os.IsNotExist(err):
		// fresh session
	default:
		return nil, err
	}
	return s, nil
}

func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s.st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Token returns the stored access token, or ErrNoToken when absent or past
// its recorded expiry.
func (s *Store) Token() (string, error) {
	if s.st.AccessToken == "" {
		return "", ErrNoToken
	}
	if s.st.ExpiresAt != nil && time.Now().After(*s.st.ExpiresAt) {
		return "", ErrNoToken
	}
	return s.st.AccessToken, nil
}

// HasToken reports token presence without expiry diagnostics.
func (s *Store) HasToken() bool {
	_, err := s.Token()
	return err == nil
}

// SetTokens persists issued tokens. When the access token parses as a JWT
// its exp claim is recorded; otherwise the token is treated as opaque and
// non-expiring. The refresh token is stored but never exchanged.
func (s *Store) SetTokens(tok model.Tokens) error {
	s.st.AccessToken = tok.AccessToken
	s.st.RefreshToken = tok.RefreshToken
	s.st.ExpiresAt = tokenExpiry(tok.AccessToken)
	if tok.User != nil {
		s.st.User = tok.User
	}
	return s.flush()
}

// ClearToken removes the credential but keeps the region preference.
func (s *Store) ClearToken() error {
	s.st.AccessToken = ""
	s.st.RefreshToken = ""
	s.st.ExpiresAt = nil
	s.st.User = nil
	return s.flush()
}

// User returns the last known account identity. A stored token without a
// profile yields a minimal placeholder.
func (s *Store) User() *model.AuthUser {
	if !s.HasToken() {
		return nil
	}
	if s.st.User != nil {
		u := *s.st.User
		return &u
	}
	return &model.AuthUser{}
}

// SetUser records the profile fetched from the backend.
func (s *Store) SetUser(u *model.AuthUser) error {
	s.st.User = u
	return s.flush()
}

// Region returns the persisted region preference, empty when never chosen.
func (s *Store) Region() string {
	if s.st.Region == "global" || s.st.Region == "cn" {
		return s.st.Region
	}
	return ""
}

// SetRegion persists an interactively chosen region. Only "global" and
// "cn" are storable; anything else is a validation error.
func (s *Store) SetRegion(region string) error {
	if region != "global" && region != "cn" {
		return fmt.Errorf("%w: unknown region %q", errs.ErrValidation, region)
	}
	s.st.Region = region
	return s.flush()
}

func tokenExpiry(token string) *time.Time {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(token, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return nil
	}
	t := claims.ExpiresAt.Time
	return &t
}
