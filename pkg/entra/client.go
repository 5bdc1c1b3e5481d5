package entra

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/different-technology/entra-be-auth/pkg/config"
	"github.com/different-technology/entra-be-auth/pkg/errors"
	"github.com/different-technology/entra-be-auth/pkg/provision"
)

// Baseline identity scopes requested on every redirect. The membership-read
// scope is added only while group mapping is configured.
var baseScopes = []string{"User.Read", "profile", "openid", "email"}

const membershipScope = "Directory.Read.All"

// Client talks to the identity provider: authorization redirect construction,
// code-for-token exchange, and the optional group-membership fetch.
type Client struct {
	cfg        *config.EntraConfig
	rules      *config.MergeRules
	httpClient *http.Client
}

// NewClient creates a provider client. A nil httpClient gets a default with
// a 30 second timeout.
func NewClient(cfg *config.EntraConfig, rules *config.MergeRules, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, rules: rules, httpClient: httpClient}
}

// oauthConfig builds the provider configuration for the current request.
// Scopes are computed here, at request-build time, not cached: toggling the
// group-rule table changes the next redirect.
func (c *Client) oauthConfig() *oauth2.Config {
	scopes := append([]string(nil), baseScopes...)
	if c.rules.GroupMappingEnabled() {
		scopes = append(scopes, membershipScope)
	}
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
		RedirectURL:  c.cfg.RedirectURI,
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  c.cfg.AuthorizeURL,
			TokenURL: c.cfg.TokenURL,
		},
	}
}

// BuildAuthorizationURL constructs the authorization redirect URL carrying
// the CSRF state and, when submitted, the user's email as login_hint. No
// network I/O happens here.
func (c *Client) BuildAuthorizationURL(state, loginHint string) string {
	var opts []oauth2.AuthCodeOption
	if loginHint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", loginHint))
	}
	return c.oauthConfig().AuthCodeURL(state, opts...)
}

// ExchangeCodeForToken performs the code-for-token exchange. Provider
// rejections are logged with full detail and classified: an invalid_client
// answer means the client secret is wrong or expired and surfaces as a
// distinct error kind carrying an operator remediation hint.
func (c *Client) ExchangeCodeForToken(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauthConfig().Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if stderrors.As(err, &retrieveErr) {
			slog.Error("Identity provider rejected code exchange",
				"error_code", retrieveErr.ErrorCode,
				"error_description", retrieveErr.ErrorDescription,
				"body", string(retrieveErr.Body))

			if retrieveErr.ErrorCode == "invalid_client" {
				return nil, errors.Wrap(err, errors.ErrCodeInvalidClientSecret,
					`"invalid_client" - you may have to refresh your client secret`).
					WithDetail("remediation",
						"https://portal.azure.com/#view/Microsoft_AAD_RegisteredApps/ApplicationMenuBlade/~/Credentials/appId/"+c.cfg.ClientID)
			}
			return nil, errors.Wrap(err, errors.ErrCodeProviderRejected, "identity provider rejected the code exchange")
		}

		slog.Error("Token exchange failed", "error", err)
		return nil, errors.Wrap(err, errors.ErrCodeProviderRejected, "token exchange failed")
	}

	return token, nil
}

// FetchGroupMemberships performs an authenticated GET against the provider's
// memberships resource and returns the verbatim body plus the parsed group
// entries.
func (c *Client) FetchGroupMemberships(ctx context.Context, token *oauth2.Token) (*provision.Memberships, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.MembershipsURL, nil)
	if err != nil {
		return nil, errors.InternalWrap(err, "failed to create memberships request")
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderRejected, "memberships request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderRejected, "failed to read memberships response")
	}
	if resp.StatusCode != http.StatusOK {
		slog.Error("Memberships request rejected", "status", resp.StatusCode, "body", string(body))
		return nil, errors.Newf(errors.ErrCodeProviderRejected, "memberships request failed with status %d", resp.StatusCode)
	}

	var parsed struct {
		Value []map[string]interface{} `json:"value"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeProviderRejected, "failed to parse memberships response")
	}

	return &provision.Memberships{Raw: body, Groups: parsed.Value}, nil
}
