package learnhub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
	"github.com/learnhub/learnhub-go/internal/session"
)

func newAuth(t *testing.T, srvURL string) (*AuthService, *session.Store) {
	t.Helper()
	sess, err := session.Open(t.TempDir())
	require.NoError(t, err)
	c := api.New(func() string { return srvURL }, api.WithTokenSource(sess))
	return NewAuthService(c, sess), sess
}

func TestVerifySMSCode_PersistsTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/sms/verify", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "13800000000", body["phone"])
		envelope(w, model.Tokens{
			AccessToken: "access-1",
			User:        &model.AuthUser{ID: "u1", Phone: "13800000000"},
		})
	}))
	defer srv.Close()

	auth, sess := newAuth(t, srv.URL)
	user, err := auth.VerifySMSCode(context.Background(), "13800000000", "0000")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)

	tok, err := sess.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)
	assert.True(t, auth.IsAuthenticated())
}

func TestVerifySMSCode_Validation(t *testing.T) {
	auth, _ := newAuth(t, "http://unused")
	_, err := auth.VerifySMSCode(context.Background(), "", "0000")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestLogin_MissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, model.Tokens{})
	}))
	defer srv.Close()

	auth, _ := newAuth(t, srv.URL)
	_, err := auth.VerifyGoogle(context.Background(), "google-id-token")
	assert.Error(t, err)
	assert.False(t, auth.IsAuthenticated())
}

func TestCurrentUser_PlaceholderWithoutProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, model.Tokens{AccessToken: "tok"})
	}))
	defer srv.Close()

	auth, _ := newAuth(t, srv.URL)
	user, err := auth.ExchangeCode(context.Background(), "oauth-code")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Empty(t, user.ID, "local token only: identity unknown, minimal placeholder")
}

func TestMe_RecordsProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/sms/verify":
			envelope(w, model.Tokens{AccessToken: "tok"})
		case "/api/v1/me":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			envelope(w, model.AuthUser{ID: "u1", Nickname: "study"})
		}
	}))
	defer srv.Close()

	auth, _ := newAuth(t, srv.URL)
	_, err := auth.VerifySMSCode(context.Background(), "555", "0000")
	require.NoError(t, err)

	me, err := auth.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "study", me.Nickname)
	assert.Equal(t, "study", auth.CurrentUser().Nickname)
}

func TestLogout_ClearsEverything(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, model.Tokens{AccessToken: "tok", User: &model.AuthUser{ID: "u1"}})
	}))
	defer srv.Close()

	auth, _ := newAuth(t, srv.URL)
	_, err := auth.VerifySMSCode(context.Background(), "555", "0000")
	require.NoError(t, err)

	require.NoError(t, auth.Logout())
	assert.False(t, auth.IsAuthenticated())
	assert.Nil(t, auth.CurrentUser())
}
