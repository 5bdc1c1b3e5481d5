package authpipe

import (
	"context"
	"log/slog"

	"github.com/different-technology/entra-be-auth/pkg/provision"
)

// OutcomeKind discriminates the final result of a dispatched login attempt.
type OutcomeKind int

const (
	// OutcomeUnauthenticated: no service authenticated the user.
	OutcomeUnauthenticated OutcomeKind = iota

	// OutcomeRedirect: the host must emit a redirect and suspend the attempt.
	OutcomeRedirect

	// OutcomeAuthenticated: a service authenticated the user.
	OutcomeAuthenticated

	// OutcomeDenied: a service explicitly denied the login.
	OutcomeDenied
)

// Outcome is the final result of Pipeline.Authenticate.
type Outcome struct {
	Kind        OutcomeKind
	RedirectURL string
	User        *provision.UserRecord
}

// Pipeline dispatches a login attempt across registered authentication
// services in order. Each attempt gets fresh service instances from the
// registered factories.
type Pipeline struct {
	factories []ServiceFactory
}

// NewPipeline creates a pipeline with the given service factories. Order is
// evaluation order.
func NewPipeline(factories ...ServiceFactory) *Pipeline {
	return &Pipeline{factories: factories}
}

// Register appends a service factory to the evaluation order.
func (p *Pipeline) Register(factory ServiceFactory) {
	p.factories = append(p.factories, factory)
}

// Authenticate runs one login attempt through the registered services.
//
// For each service: InitAuth, then ProcessLoginData. A redirect or rejection
// result ends the attempt immediately. Otherwise GetUser and AuthUser decide
// whether this service owns the attempt: CodeAuthenticated and CodeDenied
// stop evaluation, CodeNotResponsible moves on to the next service.
//
// Errors from ProcessLoginData and GetUser are attempt-ending and propagate
// to the caller unchanged.
func (p *Pipeline) Authenticate(ctx context.Context, login LoginData, info AuthInfo, sess Session) (*Outcome, error) {
	for _, factory := range p.factories {
		svc := factory()
		svc.InitAuth(login, info)

		res, err := svc.ProcessLoginData(ctx, sess)
		if err != nil {
			return nil, err
		}

		switch res.Kind {
		case ProcessRedirect:
			return &Outcome{Kind: OutcomeRedirect, RedirectURL: res.RedirectURL}, nil
		case ProcessRejected:
			slog.Warn("Authentication service rejected login attempt")
			return &Outcome{Kind: OutcomeUnauthenticated}, nil
		}

		user, err := svc.GetUser(ctx)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}

		switch code := svc.AuthUser(user); code {
		case CodeAuthenticated:
			slog.Info("User authenticated", "username", user.Username)
			return &Outcome{Kind: OutcomeAuthenticated, User: user}, nil
		case CodeDenied:
			slog.Warn("Login explicitly denied", "username", user.Username)
			return &Outcome{Kind: OutcomeDenied, User: user}, nil
		default:
			// CodeNotResponsible: keep evaluating other services
		}
	}

	return &Outcome{Kind: OutcomeUnauthenticated}, nil
}

var _ Session = (*MemorySession)(nil)

// MemorySession is an in-process Session, used in tests and the demo host.
type MemorySession struct {
	values    map[string]string
	destroyed bool
}

// NewMemorySession creates an empty in-process session.
func NewMemorySession() *MemorySession {
	return &MemorySession{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *MemorySession) Get(key string) (string, bool) {
	if s.destroyed {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key.
func (s *MemorySession) Set(key, value string) error {
	if s.destroyed {
		s.values = make(map[string]string)
		s.destroyed = false
	}
	s.values[key] = value
	return nil
}

// Destroy drops all session values.
func (s *MemorySession) Destroy() error {
	s.values = make(map[string]string)
	s.destroyed = true
	return nil
}

// Destroyed reports whether Destroy was called since the last Set.
func (s *MemorySession) Destroyed() bool {
	return s.destroyed
}
