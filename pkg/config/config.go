package config

import (
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/different-technology/entra-be-auth/pkg/errors"
)

// EntraConfig is the deployment configuration for the identity-provider
// integration. It is populated once at process start and passed by reference;
// the core logic never reads the environment itself.
type EntraConfig struct {
	ClientID     string `env:"ENTRA_BE_CLIENT_ID"`
	ClientSecret string `env:"ENTRA_BE_CLIENT_SECRET"`

	AuthorizeURL string `env:"ENTRA_BE_URL_AUTHORIZE" env-default:"https://login.microsoftonline.com/common/oauth2/v2.0/authorize"`
	TokenURL     string `env:"ENTRA_BE_URL_TOKEN" env-default:"https://login.microsoftonline.com/common/oauth2/v2.0/token"`

	// RedirectURI is the callback URL registered with the provider. The
	// provider sends the user back here with code and state.
	RedirectURI string `env:"ENTRA_BE_REDIRECT_URI"`

	// MembershipsURL is the provider resource listing the authenticated
	// subject's group memberships.
	MembershipsURL string `env:"ENTRA_BE_MEMBERSHIPS_URL" env-default:"https://graph.microsoft.com/v1.0/me/memberOf"`

	// GroupRulesFile points to the YAML field-merge rule table. Empty
	// disables group mapping.
	GroupRulesFile string `env:"ENTRA_BE_GROUP_RULES_FILE"`

	// StrictRules rejects a malformed rule table at startup instead of
	// silently disabling group mapping.
	StrictRules bool `env:"ENTRA_BE_STRICT_RULES" env-default:"false"`

	// DenyLogin makes AuthUser answer with the explicit-deny outcome for
	// every resolved identity. Off by default.
	DenyLogin bool `env:"ENTRA_BE_DENY_LOGIN" env-default:"false"`
}

// Load reads EntraConfig from the environment.
func Load() (*EntraConfig, error) {
	cfg := &EntraConfig{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read environment")
	}
	return cfg, nil
}

// Validate checks the fields every deployment must supply.
func (c *EntraConfig) Validate() error {
	if c.ClientID == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "client ID is required")
	}
	if c.ClientSecret == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "client secret is required")
	}
	if c.RedirectURI == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "redirect URI is required")
	}
	return nil
}
