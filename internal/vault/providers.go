package vault

import (
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/autoinvoice/autoinvoice/internal/config"
	domain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
)

const (
	// defaultExpiresIn applies when the token response carries no expires_in.
	defaultExpiresIn = 3500 * time.Second
	// expirySkew is subtracted so a token is never used right at its edge.
	expirySkew = 60 * time.Second
)

var (
	gmailScopes = []string{"https://www.googleapis.com/auth/gmail.send"}
	m365Scopes  = []string{"Mail.Send", "offline_access", "openid", "profile", "User.Read"}
)

// OAuthConfig returns the client configuration for provider. Client
// credentials travel as form parameters on the token endpoint.
func OAuthConfig(cfg config.Config, p domain.Provider) (*oauth2.Config, error) {
	switch p {
	case domain.ProviderGmail:
		ep := google.Endpoint
		if cfg.GoogleAuthURL != "" {
			ep.AuthURL = cfg.GoogleAuthURL
		}
		if cfg.GoogleTokenURL != "" {
			ep.TokenURL = cfg.GoogleTokenURL
		}
		ep.AuthStyle = oauth2.AuthStyleInParams
		return &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Endpoint:     ep,
			Scopes:       gmailScopes,
		}, nil
	case domain.ProviderM365:
		tenant := cfg.MSTenant
		if tenant == "" {
			tenant = "common"
		}
		ep := microsoft.AzureADEndpoint(tenant)
		if cfg.MSLoginBaseURL != "" {
			ep.AuthURL = cfg.MSAuthURL()
			ep.TokenURL = cfg.MSTokenURL()
		}
		ep.AuthStyle = oauth2.AuthStyleInParams
		return &oauth2.Config{
			ClientID:     cfg.MSClientID,
			ClientSecret: cfg.MSClientSecret,
			RedirectURL:  cfg.MSRedirectURI,
			Endpoint:     ep,
			Scopes:       m365Scopes,
		}, nil
	}
	return nil, fmt.Errorf("unknown mail provider %q", p)
}

// authCodeOptions are the provider specific consent parameters.
func authCodeOptions(p domain.Provider) []oauth2.AuthCodeOption {
	if p == domain.ProviderGmail {
		return []oauth2.AuthCodeOption{
			oauth2.AccessTypeOffline,
			oauth2.SetAuthURLParam("prompt", "consent"),
			oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		}
	}
	return []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("response_mode", "query")}
}

// expiresAt converts a token response into the stored expiry.
func expiresAt(tok *oauth2.Token, now time.Time) time.Time {
	if tok.Expiry.IsZero() {
		return now.Add(defaultExpiresIn - expirySkew)
	}
	return tok.Expiry.Add(-expirySkew)
}
