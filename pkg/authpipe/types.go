package authpipe

// LoginStatusLogin marks the credential-processing phase of a login attempt.
// GetUser only materializes a record during this phase.
const LoginStatusLogin = "login"

// LoginData carries the login-phase data submitted by the user and collected
// by the host from the current request. It is immutable once handed to a
// service via InitAuth.
type LoginData struct {
	// Status is the authentication phase flag, LoginStatusLogin during login.
	Status string

	// Username and Password are the form credentials, if any. A non-empty
	// Password means a password-based service owns this attempt.
	Username string
	Password string

	// LoginHint is the optional email submitted in the ad_email form field,
	// forwarded to the provider as login_hint.
	LoginHint string

	// AuthCode and State are the query parameters echoed by the identity
	// provider on the callback leg of the redirect flow. Both are empty on
	// the initiating leg.
	AuthCode string
	State    string
}

// AuthInfo describes the user store the host wants services to authenticate
// against: which table holds user records and how enabled records are
// selected.
type AuthInfo struct {
	// UserTable is the table containing user records.
	UserTable string

	// EnabledClause is an additional SQL restriction excluding disabled or
	// soft-deleted records from lookups. Empty means no restriction.
	EnabledClause string
}

// Authentication outcome codes returned by AuthUser. The dispatcher stops
// evaluating further services on anything but CodeNotResponsible.
const (
	// CodeNotResponsible: this service did not identify the user; other
	// services may still do so.
	CodeNotResponsible = 100

	// CodeAuthenticated: the user is fully authenticated, stop evaluating.
	CodeAuthenticated = 300

	// CodeDenied: the user is explicitly denied, stop evaluating.
	CodeDenied = -100
)

// ProcessResultKind discriminates the outcome of ProcessLoginData.
type ProcessResultKind int

const (
	// ProcessContinue: request handling proceeds to GetUser/AuthUser.
	ProcessContinue ProcessResultKind = iota

	// ProcessRedirect: the host must emit a redirect to RedirectURL instead
	// of continuing the attempt. The flow resumes on the callback leg.
	ProcessRedirect

	// ProcessRejected: the attempt failed closed (e.g. state mismatch). The
	// host treats the user as unauthenticated and restarts the login flow.
	ProcessRejected
)

// ProcessResult is the explicit result variant of ProcessLoginData.
type ProcessResult struct {
	Kind ProcessResultKind

	// Handled reports whether this service resolved an identity. False with
	// Kind == ProcessContinue means the attempt belongs to another service.
	Handled bool

	// RedirectURL is set when Kind == ProcessRedirect.
	RedirectURL string
}

// Continue builds a ProcessContinue result.
func Continue(handled bool) ProcessResult {
	return ProcessResult{Kind: ProcessContinue, Handled: handled}
}

// RedirectTo builds a ProcessRedirect result.
func RedirectTo(url string) ProcessResult {
	return ProcessResult{Kind: ProcessRedirect, RedirectURL: url}
}

// Rejected builds a ProcessRejected result.
func Rejected() ProcessResult {
	return ProcessResult{Kind: ProcessRejected}
}
