package vault

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/autoinvoice/autoinvoice/internal/config"
	"github.com/autoinvoice/autoinvoice/internal/logger"
	domain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	"github.com/autoinvoice/autoinvoice/internal/metrics"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

// Credential is a usable access token for one account. The plaintext lives
// only as long as the caller holds the value.
type Credential struct {
	Account     domain.Account
	AccessToken string
	ExpiresAt   time.Time
}

// Refresher hands out access tokens, refreshing expired ones under a row
// lock so concurrent callers trigger a single provider round trip.
type Refresher struct {
	repo   domain.Repository
	cipher *Cipher
	cfg    config.Config
	hc     *http.Client
	log    zerolog.Logger
	now    func() time.Time
}

func NewRefresher(repo domain.Repository, c *Cipher, cfg config.Config, log zerolog.Logger) *Refresher {
	timeout := cfg.OAuthHTTPTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Refresher{
		repo:   repo,
		cipher: c,
		cfg:    cfg,
		hc:     &http.Client{Timeout: timeout},
		log:    logger.Component(log, "vault"),
		now:    time.Now,
	}
}

// WithHTTPClient replaces the client used for token endpoint calls.
func (r *Refresher) WithHTTPClient(hc *http.Client) *Refresher { r.hc = hc; return r }

// Credential returns a valid access token for a, refreshing it first when
// it is expired or has no recorded expiry.
func (r *Refresher) Credential(ctx context.Context, a domain.Account) (Credential, error) {
	if a.Expired(r.now()) {
		fresh, err := r.refresh(ctx, a)
		if err != nil {
			return Credential{}, err
		}
		a = fresh
	}
	tok, err := r.cipher.Decrypt(a.AccessTokenEnc)
	if err != nil {
		return Credential{}, apperror.RefreshFailedError{Provider: string(a.Provider), Err: err}
	}
	c := Credential{Account: a, AccessToken: tok}
	if a.ExpiresAt != nil {
		c.ExpiresAt = *a.ExpiresAt
	}
	return c, nil
}

func (r *Refresher) refresh(ctx context.Context, a domain.Account) (domain.Account, error) {
	refreshed := false
	fresh, err := r.repo.RefreshLocked(ctx, a.ID, func(cur domain.Account) (*domain.Tokens, error) {
		// Another request may have refreshed while we waited for the lock.
		if !cur.Expired(r.now()) {
			return nil, nil
		}
		next, err := r.exchange(ctx, cur)
		if err != nil {
			return nil, apperror.RefreshFailedError{Provider: string(cur.Provider), Err: err}
		}
		refreshed = true
		return next, nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrRefreshFailed) {
			metrics.IncTokenRefresh(string(a.Provider), "failed")
			r.log.Warn().Str("account_id", a.ID.String()).Str("provider", string(a.Provider)).Err(errors.Unwrap(err)).Msg("token refresh failed")
		}
		return domain.Account{}, err
	}
	if refreshed {
		metrics.IncTokenRefresh(string(a.Provider), "ok")
		r.log.Debug().Str("account_id", a.ID.String()).Str("provider", string(a.Provider)).Msg("token refreshed")
	}
	return fresh, nil
}

var errNoRefreshToken = errors.New("no refresh token stored")

// exchange trades the stored refresh token for a new access token. A rotated
// refresh token replaces the stored one.
func (r *Refresher) exchange(ctx context.Context, cur domain.Account) (*domain.Tokens, error) {
	if len(cur.RefreshTokenEnc) == 0 {
		return nil, errNoRefreshToken
	}
	rt, err := r.cipher.Decrypt(cur.RefreshTokenEnc)
	if err != nil {
		return nil, err
	}
	if rt == "" {
		return nil, errNoRefreshToken
	}
	conf, err := OAuthConfig(r.cfg, cur.Provider)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.hc)
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		return nil, err
	}

	access, err := r.cipher.Encrypt(tok.AccessToken)
	if err != nil {
		return nil, err
	}
	next := &domain.Tokens{AccessTokenEnc: access, RefreshTokenEnc: cur.RefreshTokenEnc}
	if tok.RefreshToken != "" && tok.RefreshToken != rt {
		if next.RefreshTokenEnc, err = r.cipher.Encrypt(tok.RefreshToken); err != nil {
			return nil, err
		}
	}
	exp := expiresAt(tok, r.now())
	next.ExpiresAt = &exp
	return next, nil
}
