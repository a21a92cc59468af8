package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/autoinvoice/autoinvoice/internal/config"
	"github.com/autoinvoice/autoinvoice/internal/logger"
	domain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	"github.com/autoinvoice/autoinvoice/internal/version"
)

// Linker connects a user's mailbox: consent URL, code exchange, profile
// lookup and encrypted upsert.
type Linker struct {
	repo      domain.Repository
	cipher    *Cipher
	cfg       config.Config
	hc        *http.Client
	gmailBase string
	graphBase string
	log       zerolog.Logger
	now       func() time.Time
}

func NewLinker(repo domain.Repository, c *Cipher, cfg config.Config, log zerolog.Logger) *Linker {
	timeout := cfg.OAuthHTTPTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	gmail, graph := cfg.GmailAPIBaseURL, cfg.GraphAPIBaseURL
	if gmail == "" {
		gmail = "https://gmail.googleapis.com"
	}
	if graph == "" {
		graph = "https://graph.microsoft.com"
	}
	return &Linker{
		repo:      repo,
		cipher:    c,
		cfg:       cfg,
		hc:        &http.Client{Timeout: timeout},
		gmailBase: strings.TrimRight(gmail, "/"),
		graphBase: strings.TrimRight(graph, "/"),
		log:       logger.Component(log, "vault"),
		now:       time.Now,
	}
}

// WithHTTPClient replaces the client used for token and profile calls.
func (l *Linker) WithHTTPClient(hc *http.Client) *Linker { l.hc = hc; return l }

// AuthCodeURL is the provider consent URL carrying state.
func (l *Linker) AuthCodeURL(p domain.Provider, state string) (string, error) {
	conf, err := OAuthConfig(l.cfg, p)
	if err != nil {
		return "", apperror.Validation("provider", err.Error())
	}
	return conf.AuthCodeURL(state, authCodeOptions(p)...), nil
}

// Link exchanges an authorization code and stores the resulting tokens for
// the mailbox the access token belongs to.
func (l *Linker) Link(ctx context.Context, user uuid.UUID, p domain.Provider, code string) (domain.Account, error) {
	if strings.TrimSpace(code) == "" {
		return domain.Account{}, apperror.Validation("code", "missing authorization code")
	}
	conf, err := OAuthConfig(l.cfg, p)
	if err != nil {
		return domain.Account{}, apperror.Validation("provider", err.Error())
	}
	tok, err := conf.Exchange(context.WithValue(ctx, oauth2.HTTPClient, l.hc), code)
	if err != nil {
		return domain.Account{}, upstream(string(p)+" token", err)
	}
	email, err := l.profileEmail(ctx, p, tok.AccessToken)
	if err != nil {
		return domain.Account{}, err
	}

	access, err := l.cipher.Encrypt(tok.AccessToken)
	if err != nil {
		return domain.Account{}, err
	}
	refresh, err := l.cipher.encryptOptional(tok.RefreshToken)
	if err != nil {
		return domain.Account{}, err
	}
	exp := expiresAt(tok, l.now())
	a, err := l.repo.Upsert(ctx, domain.Account{
		UserID:          user,
		Provider:        p,
		Email:           email,
		AccessTokenEnc:  access,
		RefreshTokenEnc: refresh,
		ExpiresAt:       &exp,
	})
	if err != nil {
		return domain.Account{}, err
	}
	l.log.Info().Str("user_id", user.String()).Str("provider", string(p)).Str("account_id", a.ID.String()).Msg("mail account linked")
	return a, nil
}

type gmailProfile struct {
	EmailAddress string `json:"emailAddress"`
}

type graphMe struct {
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func (l *Linker) profileEmail(ctx context.Context, p domain.Provider, accessToken string) (string, error) {
	client := resty.NewWithClient(l.hc).
		SetHeader("User-Agent", version.UserAgent()).
		SetAuthToken(accessToken)

	var email, service string
	var resp *resty.Response
	var err error
	switch p {
	case domain.ProviderGmail:
		service = "gmail profile"
		var prof gmailProfile
		resp, err = client.R().SetContext(ctx).SetResult(&prof).Get(l.gmailBase + "/gmail/v1/users/me/profile")
		email = prof.EmailAddress
	default:
		service = "graph profile"
		var me graphMe
		resp, err = client.R().SetContext(ctx).SetResult(&me).Get(l.graphBase + "/v1.0/me")
		email = me.Mail
		if email == "" {
			email = me.UserPrincipalName
		}
	}
	if err != nil {
		return "", upstream(service, err)
	}
	if resp.IsError() {
		return "", apperror.UpstreamError{Service: service, StatusCode: resp.StatusCode(), Detail: apperror.Truncate(resp.String(), apperror.MaxDetail)}
	}
	if email == "" {
		return "", apperror.UpstreamError{Service: service, StatusCode: resp.StatusCode(), Detail: "profile has no email address"}
	}
	return email, nil
}

func upstream(service string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return apperror.UpstreamError{Service: service, StatusCode: re.Response.StatusCode, Detail: apperror.Truncate(string(re.Body), apperror.MaxDetail)}
	}
	return apperror.UpstreamError{Service: service, Detail: fmt.Sprint(err)}
}
