package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	madomain "github.com/autoinvoice/autoinvoice/internal/mailaccounts/domain"
	domain "github.com/autoinvoice/autoinvoice/internal/mailer/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	"github.com/autoinvoice/autoinvoice/internal/version"
)

var (
	_ domain.Transport = (*Gmail)(nil)
	_ domain.Transport = (*Graph)(nil)
)

func newClient(hc *http.Client) *resty.Client {
	return resty.NewWithClient(hc).SetHeader("User-Agent", version.UserAgent())
}

// Gmail submits through users.messages.send with the raw message encoded
// as unpadded base64url.
type Gmail struct {
	client *resty.Client
	base   string
}

func NewGmail(hc *http.Client, baseURL string) *Gmail {
	return &Gmail{client: newClient(hc), base: strings.TrimRight(baseURL, "/")}
}

func (g *Gmail) Send(ctx context.Context, accessToken string, raw []byte) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(map[string]string{"raw": base64.RawURLEncoding.EncodeToString(raw)}).
		Post(g.base + "/gmail/v1/users/me/messages/send")
	return sendResult(madomain.ProviderGmail, resp, err)
}

// Graph submits through /me/sendMail, which takes the MIME message as
// standard base64 text.
type Graph struct {
	client *resty.Client
	base   string
}

func NewGraph(hc *http.Client, baseURL string) *Graph {
	return &Graph{client: newClient(hc), base: strings.TrimRight(baseURL, "/")}
}

func (g *Graph) Send(ctx context.Context, accessToken string, raw []byte) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Content-Type", "text/plain").
		SetBody(base64.StdEncoding.EncodeToString(raw)).
		Post(g.base + "/v1.0/me/sendMail")
	return sendResult(madomain.ProviderM365, resp, err)
}

// sendResult turns a provider response into an UpstreamError carrying the
// provider's body verbatim (capped).
func sendResult(p madomain.Provider, resp *resty.Response, err error) error {
	if err != nil {
		return apperror.UpstreamError{Service: string(p), Detail: apperror.Truncate(fmt.Sprint(err), apperror.MaxDetail)}
	}
	if resp.StatusCode() >= 300 {
		return apperror.UpstreamError{Service: string(p), StatusCode: resp.StatusCode(), Detail: apperror.Truncate(resp.String(), apperror.MaxDetail)}
	}
	return nil
}
