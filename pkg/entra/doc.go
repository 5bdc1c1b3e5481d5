// Package entra authenticates backend users against an external identity
// provider using the OAuth2 Authorization Code flow with ID-token inspection.
//
// The package plugs into a host authentication pipeline through the
// authpipe.Service contract. One login attempt spans two independent
// requests linked only by the session-stored CSRF state and the provider's
// authorization code:
//
//  1. Initiating leg: no code present. A state value is generated and stored
//     in the session, and the host is told to redirect (303) to the
//     provider's authorize endpoint, optionally carrying the submitted email
//     as login_hint.
//  2. Callback leg: the provider redirects back with code and state. The
//     state is validated (mismatch fails closed), the code is exchanged for
//     tokens, and the identity claims are decoded from the ID token payload.
//     GetUser then provisions the local user record and AuthUser grants
//     login.
//
// The ID token's signature is deliberately not verified: the token comes
// straight from the token endpoint over TLS, and channel trust keeps
// behavior identical for tokens with non-standard signing.
package entra
