package webhook

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/autoinvoice/autoinvoice/internal/config"
	custdomain "github.com/autoinvoice/autoinvoice/internal/customers/domain"
	invdomain "github.com/autoinvoice/autoinvoice/internal/invoices/domain"
	"github.com/autoinvoice/autoinvoice/internal/logger"
	"github.com/autoinvoice/autoinvoice/internal/metrics"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	"github.com/autoinvoice/autoinvoice/internal/platform/signature"
	"github.com/autoinvoice/autoinvoice/internal/version"
)

// Result is the outcome of one delivery attempt. Upstream failures are
// reported here, never as a Go error.
type Result struct {
	OK         bool
	StatusCode int
	Error      string
	Duration   time.Duration
}

// Dispatcher posts signed invoice payloads to the workflow webhook.
type Dispatcher struct {
	client *resty.Client
	url    string
	secret string
	log    zerolog.Logger
}

func New(cfg config.Config, log zerolog.Logger) *Dispatcher {
	return NewWithClient(&http.Client{}, cfg, log)
}

// NewWithClient lets tests and callers supply the transport.
func NewWithClient(hc *http.Client, cfg config.Config, log zerolog.Logger) *Dispatcher {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	client := resty.NewWithClient(hc).
		SetTimeout(timeout).
		SetHeader("User-Agent", version.UserAgent())
	return &Dispatcher{
		client: client,
		url:    strings.TrimSpace(cfg.WebhookURL),
		secret: cfg.HMACSharedSecret,
		log:    logger.Component(log, "webhook"),
	}
}

// Signed reports whether outgoing requests carry an X-Signature header.
func (d *Dispatcher) Signed() bool { return d.secret != "" }

// Dispatch builds, signs and posts the payload for inv.
func (d *Dispatcher) Dispatch(ctx context.Context, inv invdomain.Invoice, cust custdomain.Customer) Result {
	body, err := Encode(BuildPayload(inv, cust))
	if err != nil {
		return Result{Error: fmt.Sprintf("encode payload: %v", err)}
	}
	res := d.Post(ctx, body)
	ev := d.log.Info()
	if !res.OK {
		ev = d.log.Warn().Str("error", res.Error)
	}
	ev.Str("invoice_id", inv.ID.String()).
		Str("owner_id", inv.OwnerID.String()).
		Int("status_code", res.StatusCode).
		Dur("duration", res.Duration).
		Msg("webhook dispatched")
	return res
}

// Post delivers raw payload bytes.
func (d *Dispatcher) Post(ctx context.Context, body []byte) Result {
	if d.url == "" {
		return Result{Error: "webhook url not configured"}
	}
	start := time.Now()
	req := d.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body)
	if d.secret != "" {
		req.SetHeader(signature.Header, signature.Sign(d.secret, body))
	}
	resp, err := req.Post(d.url)
	res := Result{Duration: time.Since(start)}
	defer func() { metrics.ObserveWebhookDispatch(res.OK, res.Duration.Seconds()) }()

	if err != nil {
		res.Error = apperror.Truncate(err.Error(), apperror.MaxDetail)
		return res
	}
	res.StatusCode = resp.StatusCode()
	if resp.IsSuccess() {
		res.OK = true
		return res
	}
	text := strings.TrimSpace(string(resp.Body()))
	if text == "" {
		text = fmt.Sprintf("HTTP %d", res.StatusCode)
	}
	res.Error = apperror.Truncate(text, apperror.MaxDetail)
	return res
}
