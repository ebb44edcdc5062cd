// Package learnhub contains the typed operation services the CLI composes:
// authentication, collections and problems over the API client.
package learnhub

import (
	"context"
	"fmt"
	"net/http"

	"github.com/learnhub/learnhub-go/internal/api"
	"github.com/learnhub/learnhub-go/internal/errs"
	"github.com/learnhub/learnhub-go/internal/model"
	"github.com/learnhub/learnhub-go/internal/session"
)

// AuthService reconciles identity-provider verification with the locally
// persisted token and drives the login flows.
type AuthService struct {
	api  *api.Client
	sess *session.Store
}

// NewAuthService constructs an AuthService.
func NewAuthService(apiClient *api.Client, sess *session.Store) *AuthService {
	return &AuthService{api: apiClient, sess: sess}
}

// SendSMSCode requests a login code for the phone number.
func (s *AuthService) SendSMSCode(ctx context.Context, phone string) error {
	if phone == "" {
		return fmt.Errorf("%w: empty phone", errs.ErrValidation)
	}
	_, err := s.api.Do(ctx, "/api/v1/auth/sms/send", api.Options{
		Method: http.MethodPost,
		NoAuth: true,
		Body:   map[string]string{"phone": phone},
	})
	return err
}

// VerifySMSCode exchanges a phone/code pair for tokens and persists them.
func (s *AuthService) VerifySMSCode(ctx context.Context, phone, code string) (*model.AuthUser, error) {
	if phone == "" || code == "" {
		return nil, fmt.Errorf("%w: empty phone/code", errs.ErrValidation)
	}
	return s.login(ctx, "/api/v1/auth/sms/verify", map[string]string{"phone": phone, "code": code})
}

// ExchangeCode completes a redirect-based OAuth flow with the one-time code.
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (*model.AuthUser, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", errs.ErrValidation)
	}
	return s.login(ctx, "/api/v1/auth/exchange", map[string]string{"code": code})
}

// VerifyGoogle exchanges a Google id_token for tokens. The identity-provider
// session takes precedence over any previously stored local token.
func (s *AuthService) VerifyGoogle(ctx context.Context, idToken string) (*model.AuthUser, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty id_token", errs.ErrValidation)
	}
	return s.login(ctx, "/api/v1/auth/google/verify", map[string]string{"id_token": idToken})
}

func (s *AuthService) login(ctx context.Context, path string, body map[string]string) (*model.AuthUser, error) {
	tok, err := api.DoAs[model.Tokens](ctx, s.api, path, api.Options{
		Method: http.MethodPost,
		NoAuth: true,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, &api.Error{Kind: api.KindServer, Message: "login response missing access token"}
	}
	if err := s.sess.SetTokens(*tok); err != nil {
		return nil, fmt.Errorf("persist tokens: %w", err)
	}
	return s.CurrentUser(), nil
}

// Me fetches the account profile and records it in the session.
func (s *AuthService) Me(ctx context.Context) (*model.AuthUser, error) {
	user, err := api.DoAs[model.AuthUser](ctx, s.api, "/api/v1/me", api.Options{AuthRequired: true})
	if err != nil {
		return nil, err
	}
	if user != nil {
		if err := s.sess.SetUser(user); err != nil {
			return nil, fmt.Errorf("persist profile: %w", err)
		}
	}
	return user, nil
}

// CurrentUser returns the session's view of the authenticated user: the
// recorded profile when one exists, a minimal placeholder when only a token
// is present, nil when logged out.
func (s *AuthService) CurrentUser() *model.AuthUser {
	return s.sess.User()
}

// IsAuthenticated reports whether a usable credential is stored.
func (s *AuthService) IsAuthenticated() bool {
	return s.sess.HasToken()
}

// Logout clears the stored credential and identity synchronously.
func (s *AuthService) Logout() error {
	return s.sess.ClearToken()
}
