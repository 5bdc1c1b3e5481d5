package authpipe

import (
	"context"

	"github.com/different-technology/entra-be-auth/pkg/provision"
)

// Session is the host-owned session context for the current request. The CSRF
// state round trip is the only thing authentication services store in it.
// Access is exclusive for the duration of a single request; concurrent
// requests for the same session rely on the host's session-store locking.
type Session interface {
	// Get returns the value stored under key, and whether it was present.
	Get(key string) (string, bool)

	// Set stores value under key.
	Set(key, value string) error

	// Destroy invalidates the whole session.
	Destroy() error
}

// Service is the contract an authentication service implements to take part
// in a login attempt. The host dispatcher invokes the four operations in
// order, once per attempt, and may interleave competing services; no service
// may assume it is the only one.
//
// A Service instance is scoped to a single attempt: InitAuth stores
// request-local state the later calls read. Use a factory to register one
// with a Pipeline.
type Service interface {
	// InitAuth stores the login data and user-store metadata for this
	// attempt. It has no side effects and always succeeds.
	InitAuth(login LoginData, info AuthInfo)

	// ProcessLoginData inspects the submitted credentials and either passes
	// (Continue(false)), initiates the provider redirect (RedirectTo),
	// resolves an identity (Continue(true)), or fails closed (Rejected).
	// Provider and token errors end the attempt and propagate to the host.
	ProcessLoginData(ctx context.Context, sess Session) (ProcessResult, error)

	// GetUser materializes the user record for the resolved identity,
	// creating or updating it in the user store. It returns (nil, nil) when
	// this service resolved no identity or the attempt is not in the login
	// phase.
	GetUser(ctx context.Context) (*provision.UserRecord, error)

	// AuthUser grades the record found by GetUser: CodeNotResponsible,
	// CodeAuthenticated or CodeDenied.
	AuthUser(record *provision.UserRecord) int
}

// ServiceFactory builds a fresh attempt-scoped Service.
type ServiceFactory func() Service
