package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.SetTokens(model.Tokens{AccessToken: "opaque-token"}))

	// reopen: state survives the process
	s2, err := Open(dir)
	require.NoError(t, err)
	got, err := s2.Token()
	require.NoError(t, err)
	assert.Equal(t, "opaque-token", got)
}

func TestStore_JWTExpiry(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	expired := signedToken(t, time.Now().Add(-time.Minute))
	require.NoError(t, s.SetTokens(model.Tokens{AccessToken: expired}))
	_, err = s.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	valid := signedToken(t, time.Now().Add(time.Hour))
	require.NoError(t, s.SetTokens(model.Tokens{AccessToken: valid}))
	got, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, valid, got)
}

func TestTokenExpiry_ReadsExpClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got := tokenExpiry(signedToken(t, exp))
	require.NotNil(t, got)
	assert.WithinDuration(t, exp, *got, time.Second)

	assert.Nil(t, tokenExpiry("opaque-token"))
}

func TestStore_ClearKeepsRegion(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.SetRegion("cn"))
	require.NoError(t, s.SetTokens(model.Tokens{
		AccessToken: "tok",
		User:        &model.AuthUser{Phone: "555"},
	}))
	require.NoError(t, s.ClearToken())

	assert.False(t, s.HasToken())
	assert.Nil(t, s.User())
	assert.Equal(t, "cn", s.Region())
}

func TestStore_PlaceholderUser(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.SetTokens(model.Tokens{AccessToken: "tok"}))

	u := s.User()
	require.NotNil(t, u)
	assert.Empty(t, u.ID)
}

func TestStore_RejectsBogusRegion(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetRegion("mars"), errs.ErrValidation)
	assert.Empty(t, s.Region())

	require.NoError(t, s.SetRegion("cn"))
	assert.Equal(t, "cn", s.Region())
}
