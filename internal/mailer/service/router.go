package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/autoinvoice/autoinvoice/internal/config"
	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	domain "github.com/autoinvoice/autoinvoice/internal/mailer/domain"
)

// Router picks the transport matching the account's provider.
type Router struct {
	transports map[madomain.Provider]domain.Transport
}

func NewRouter(cfg config.Config) *Router {
	timeout := cfg.MailSendTimeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return NewRouterWithClient(&http.Client{Timeout: timeout}, cfg)
}

func NewRouterWithClient(hc *http.Client, cfg config.Config) *Router {
	gmail, graph := cfg.GmailAPIBaseURL, cfg.GraphAPIBaseURL
	if gmail == "" {
		gmail = "https://gmail.googleapis.com"
	}
	if graph == "" {
		graph = "https://graph.microsoft.com"
	}
	return &Router{transports: map[madomain.Provider]domain.Transport{
		madomain.ProviderGmail: NewGmail(hc, gmail),
		madomain.ProviderM365:  NewGraph(hc, graph),
	}}
}

// With overrides the transport for one provider.
func (r *Router) With(p madomain.Provider, t domain.Transport) *Router {
	r.transports[p] = t
	return r
}

func (r *Router) Send(ctx context.Context, p madomain.Provider, accessToken string, raw []byte) error {
	t, ok := r.transports[p]
	if !ok {
		return fmt.Errorf("no transport for provider %q", p)
	}
	return t.Send(ctx, accessToken, raw)
}
