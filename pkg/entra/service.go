package entra

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/different-technology/entra-be-auth/pkg/authpipe"
	"github.com/different-technology/entra-be-auth/pkg/config"
	"github.com/different-technology/entra-be-auth/pkg/errors"
	"github.com/different-technology/entra-be-auth/pkg/provision"
)

// Service implements the authpipe.Service contract for the identity
// provider's authorization-code flow. An instance is scoped to a single
// login attempt: ProcessLoginData records the resolved identity that GetUser
// and AuthUser read later in the same request.
type Service struct {
	cfg         *config.EntraConfig
	client      *Client
	provisioner *provision.Service

	login authpipe.LoginData
	info  authpipe.AuthInfo

	identifier string
	claims     Claims
	token      *oauth2.Token
}

var _ authpipe.Service = (*Service)(nil)

// Option is a function that configures a Service
type Option func(*svcOptions)

type svcOptions struct {
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *svcOptions) {
		o.httpClient = client
	}
}

// New creates an attempt-scoped authentication service.
func New(cfg *config.EntraConfig, rules *config.MergeRules, provisioner *provision.Service, opts ...Option) *Service {
	o := &svcOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return &Service{
		cfg:         cfg,
		client:      NewClient(cfg, rules, o.httpClient),
		provisioner: provisioner,
	}
}

// Factory returns an authpipe.ServiceFactory producing one fresh Service per
// login attempt.
func Factory(cfg *config.EntraConfig, rules *config.MergeRules, provisioner *provision.Service, opts ...Option) authpipe.ServiceFactory {
	return func() authpipe.Service {
		return New(cfg, rules, provisioner, opts...)
	}
}

// InitAuth stores the login data and user-store metadata for this attempt.
func (s *Service) InitAuth(login authpipe.LoginData, info authpipe.AuthInfo) {
	s.login = login
	s.info = info
}

// ProcessLoginData drives the redirect round trip.
//
// A submitted password means another service owns this attempt. With no
// authorization code present, a state value is generated, stored in the
// session, and the caller is told to redirect to the provider. On the
// callback leg the state is validated (mismatch fails closed: session
// destroyed, Rejected, no exchange attempted), the code is exchanged for
// tokens, and the identity claims are decoded from the ID token.
func (s *Service) ProcessLoginData(ctx context.Context, sess authpipe.Session) (authpipe.ProcessResult, error) {
	if s.login.Password != "" {
		return authpipe.Continue(false), nil
	}

	if s.login.AuthCode == "" {
		state, err := GenerateState()
		if err != nil {
			return authpipe.ProcessResult{}, err
		}
		if err := sess.Set(SessionStateKey, state); err != nil {
			return authpipe.ProcessResult{}, errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to persist state in session")
		}

		authURL := s.client.BuildAuthorizationURL(state, s.login.LoginHint)
		slog.Info("Redirecting to identity provider", "has_login_hint", s.login.LoginHint != "")
		return authpipe.RedirectTo(authURL), nil
	}

	sessionState, _ := sess.Get(SessionStateKey)
	if !ValidateState(sessionState, s.login.State) {
		slog.Warn("State mismatch on provider callback, failing closed")
		if err := sess.Destroy(); err != nil {
			slog.Error("Failed to destroy session after state mismatch", "error", err)
		}
		return authpipe.Rejected(), nil
	}
	// The state value is single use.
	if err := sess.Set(SessionStateKey, ""); err != nil {
		slog.Warn("Failed to clear consumed state from session", "error", err)
	}

	token, err := s.client.ExchangeCodeForToken(ctx, s.login.AuthCode)
	if err != nil {
		return authpipe.ProcessResult{}, err
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return authpipe.ProcessResult{}, errors.New(errors.ErrCodeMalformedToken, "token response contains no ID token")
	}

	claims, err := DecodeIDTokenClaims(rawIDToken)
	if err != nil {
		return authpipe.ProcessResult{}, err
	}
	identifier, err := claims.Identifier()
	if err != nil {
		return authpipe.ProcessResult{}, err
	}

	s.identifier = identifier
	s.claims = claims
	s.token = token
	slog.Info("Resolved identity from ID token", "username", identifier)
	return authpipe.Continue(true), nil
}

// GetUser materializes the user record for the resolved identity via the
// provisioner. Finding a record does not yet mean the user is authenticated;
// it does keep competing services from claiming an SSO attempt.
func (s *Service) GetUser(ctx context.Context) (*provision.UserRecord, error) {
	if s.login.Status != authpipe.LoginStatusLogin || s.identifier == "" {
		return nil, nil
	}

	return s.provisioner.Resolve(ctx, provision.ResolveRequest{
		Store: provision.StoreSpec{
			Table:         s.info.UserTable,
			EnabledClause: s.info.EnabledClause,
		},
		Identifier:  s.identifier,
		DisplayName: s.claims.DisplayName(),
		Claims:      s.claims,
		Groups:      &membershipSource{client: s.client, token: s.token},
	})
}

// AuthUser grades the materialized record: no resolved identifier means the
// attempt was never ours, otherwise login is granted - or explicitly denied
// when the deployment toggles DenyLogin.
func (s *Service) AuthUser(record *provision.UserRecord) int {
	if s.identifier == "" {
		return authpipe.CodeNotResponsible
	}
	if s.cfg.DenyLogin {
		return authpipe.CodeDenied
	}
	return authpipe.CodeAuthenticated
}

// membershipSource adapts the provider client and this attempt's access
// token to the provisioner's fetch interface.
type membershipSource struct {
	client *Client
	token  *oauth2.Token
}

func (m *membershipSource) Memberships(ctx context.Context) (*provision.Memberships, error) {
	return m.client.FetchGroupMemberships(ctx, m.token)
}
