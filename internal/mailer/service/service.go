package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	evdomain "github.com/autoinvoice/autoinvoice/internal/events/domain"
	"github.com/autoinvoice/autoinvoice/internal/logger"
	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	domain "github.com/autoinvoice/autoinvoice/internal/mailer/domain"
	"github.com/autoinvoice/autoinvoice/internal/metrics"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	sdomain "github.com/autoinvoice/autoinvoice/internal/settings/domain"
	"github.com/autoinvoice/autoinvoice/internal/vault"
)

var _ domain.Service = (*Service)(nil)

// Credentials yields a usable access token for an account.
type Credentials interface {
	Credential(ctx context.Context, a madomain.Account) (vault.Credential, error)
}

// Sender routes a raw MIME message to the provider API.
type Sender interface {
	Send(ctx context.Context, p madomain.Provider, accessToken string, raw []byte) error
}

type Service struct {
	accounts madomain.Repository
	creds    Credentials
	sender   Sender
	settings sdomain.Service
	pub      evdomain.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func New(accounts madomain.Repository, creds Credentials, sender Sender, log zerolog.Logger) *Service {
	return &Service{
		accounts: accounts,
		creds:    creds,
		sender:   sender,
		log:      logger.Component(log, "mailer"),
		now:      time.Now,
	}
}

// WithSettings enables the per-owner sender display name.
func (s *Service) WithSettings(st sdomain.Service) *Service { s.settings = st; return s }

// WithPublisher injects an audit event publisher.
func (s *Service) WithPublisher(p evdomain.Publisher) *Service { s.pub = p; return s }

func (s *Service) publish(ctx context.Context, typ string, user, subject uuid.UUID, meta map[string]string) {
	if s.pub == nil {
		return
	}
	_ = s.pub.Publish(ctx, evdomain.Event{Type: typ, OwnerID: user, SubjectID: subject, Meta: meta, Time: s.now()})
}

func checkProvider(p madomain.Provider) error {
	if p != "" && !p.Valid() {
		return apperror.Validation("provider", "must be gmail or m365")
	}
	return nil
}

// Token returns a valid access token for the user's first linked mailbox,
// optionally restricted to one provider.
func (s *Service) Token(ctx context.Context, user uuid.UUID, provider madomain.Provider) (domain.Token, error) {
	if err := checkProvider(provider); err != nil {
		return domain.Token{}, err
	}
	acct, err := s.accounts.First(ctx, user, provider)
	if err != nil {
		return domain.Token{}, err
	}
	cred, err := s.creds.Credential(ctx, acct)
	if err != nil {
		return domain.Token{}, err
	}
	t := domain.Token{Provider: acct.Provider, From: acct.Email, AccessToken: cred.AccessToken}
	if !cred.ExpiresAt.IsZero() {
		exp := cred.ExpiresAt
		t.ExpiresAt = &exp
	}
	return t, nil
}

// Send assembles the message and submits it from the user's mailbox of the
// requested provider (gmail by default).
func (s *Service) Send(ctx context.Context, req domain.SendRequest) error {
	p := req.Provider
	if p == "" {
		p = madomain.ProviderGmail
	}
	if err := checkProvider(p); err != nil {
		return err
	}
	msg := req.Message
	if strings.TrimSpace(msg.To) == "" {
		return apperror.Validation("to", "is required")
	}

	acct, err := s.accounts.First(ctx, req.UserID, p)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound(string(p) + " account")
		}
		return err
	}
	cred, err := s.creds.Credential(ctx, acct)
	if err != nil {
		return err
	}

	if msg.From == "" {
		msg.From = acct.Email
	}
	if msg.FromName == "" && s.settings != nil {
		msg.FromName, _ = s.settings.GetString(ctx, sdomain.KeyMailerSender, &req.UserID, "")
	}
	raw, err := BuildMIME(msg, s.now())
	if err != nil {
		return err
	}

	start := s.now()
	err = s.sender.Send(ctx, p, cred.AccessToken, raw)
	meta := map[string]string{"provider": string(p), "to": msg.To}
	if err != nil {
		metrics.IncMailRelay(string(p), "failed")
		s.log.Warn().Str("user_id", req.UserID.String()).Str("provider", string(p)).Err(err).Msg("mail relay failed")
		meta["result"] = "failed"
		s.publish(ctx, evdomain.TypeMailRelayed, req.UserID, acct.ID, meta)
		return err
	}
	metrics.IncMailRelay(string(p), "ok")
	s.log.Info().Str("user_id", req.UserID.String()).Str("provider", string(p)).Dur("took", s.now().Sub(start)).Msg("mail relayed")
	meta["result"] = "ok"
	s.publish(ctx, evdomain.TypeMailRelayed, req.UserID, acct.ID, meta)
	return nil
}

// Event acknowledges a delivery notification by recording it.
func (s *Service) Event(ctx context.Context, ev domain.Event) error {
	user, _ := uuid.Parse(ev.UserID)
	meta := map[string]string{"type": ev.Type}
	if ev.ID != "" {
		meta["id"] = ev.ID
	}
	if ev.IP != "" {
		meta["ip"] = ev.IP
	}
	if user == uuid.Nil && ev.UserID != "" {
		meta["user_id"] = ev.UserID
	}
	s.publish(ctx, evdomain.TypeMailerEvent, user, uuid.Nil, meta)
	return nil
}
