// Package authpipe defines the pluggable authentication-pipeline contract
// between a host application and its authentication services.
//
// A host builds a Pipeline from service factories and runs one login attempt
// at a time through it. Services implement the four-operation Service
// contract (InitAuth, ProcessLoginData, GetUser, AuthUser) and communicate
// flow control through explicit result variants instead of exceptions:
// ProcessLoginData returns Continue, RedirectTo or Rejected, and AuthUser
// returns one of the CodeNotResponsible / CodeAuthenticated / CodeDenied
// outcome codes.
//
// Session state (the CSRF round-trip value) is passed in explicitly through
// the Session interface; services never reach into ambient request state.
package authpipe
