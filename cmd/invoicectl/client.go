package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/autoinvoice/autoinvoice/internal/platform/signature"
	"github.com/autoinvoice/autoinvoice/internal/version"
)

// Client talks to the autoinvoice API. Session routes use Token; mailer
// routes are signed with Secret instead.
type Client struct {
	BaseURL string
	Token   string
	Secret  string

	http *resty.Client
}

type apiError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// InvoiceSummary is the subset of an invoice the CLI prints.
type InvoiceSummary struct {
	ID             string   `json:"id"`
	Number         string   `json:"number"`
	Status         string   `json:"status"`
	Currency       string   `json:"currency"`
	TotalAmount    string   `json:"total_amount"`
	DueDate        string   `json:"due_date"`
	LastError      *string  `json:"last_error"`
	AllowedActions []string `json:"allowed_actions"`
}

type invoicePage struct {
	Items []InvoiceSummary `json:"items"`
	Total int64            `json:"total"`
}

// MailerToken mirrors GET /api/mailer/token.
type MailerToken struct {
	Provider    string `json:"provider"`
	From        string `json:"from"`
	AccessToken string `json:"access_token"`
	ExpiresAt   *int64 `json:"expires_at"`
}

// SendMail mirrors the POST /api/mailer/send body.
type SendMail struct {
	UserID    string `json:"user_id"`
	Provider  string `json:"provider,omitempty"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	From      string `json:"from,omitempty"`
	PDFName   string `json:"pdf_name,omitempty"`
	PDFBase64 string `json:"pdf_base64,omitempty"`
}

// NewClient returns a Client with a 30s timeout.
func NewClient(baseURL, token, secret string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		Secret:  secret,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", version.UserAgent()),
	}
}

func (c *Client) session() *resty.Request {
	r := c.http.R()
	if c.Token != "" {
		r.SetAuthToken(c.Token)
	}
	return r
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	logVerbose("%s %s -> %s", resp.Request.Method, resp.Request.URL, resp.Status())
	if resp.IsError() {
		var e apiError
		if json.Unmarshal(resp.Body(), &e) == nil && e.Error != "" {
			if e.Detail != "" {
				return fmt.Errorf("API error (%d): %s: %s", resp.StatusCode(), e.Error, e.Detail)
			}
			return fmt.Errorf("API error (%d): %s", resp.StatusCode(), e.Error)
		}
		return fmt.Errorf("API error (%d): %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// ListInvoices returns one page of the owner's invoices, optionally filtered by status.
func (c *Client) ListInvoices(status string, page, pageSize int) ([]InvoiceSummary, int64, error) {
	var out invoicePage
	r := c.session().SetResult(&out).
		SetQueryParam("page", fmt.Sprint(page)).
		SetQueryParam("page_size", fmt.Sprint(pageSize))
	if status != "" {
		r.SetQueryParam("status", status)
	}
	if err := check(r.Get("/api/v1/invoices")); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}

// Transition applies send, mark-paid or cancel to an invoice. A failed send
// still returns the invoice so the stored error can be shown.
func (c *Client) Transition(id, action string) (*InvoiceSummary, error) {
	var out InvoiceSummary
	resp, err := c.session().SetResult(&out).SetError(&out).
		Post("/api/v1/invoices/" + url.PathEscape(id) + "/" + action)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		if out.ID != "" {
			return &out, fmt.Errorf("API error (%d): %s", resp.StatusCode(), derefOr(out.LastError, resp.Status()))
		}
		return nil, check(resp, nil)
	}
	return &out, nil
}

// MailerToken fetches a valid access token for user through the signed mailer API.
func (c *Client) MailerToken(userID, provider string) (*MailerToken, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	if provider != "" {
		q.Set("provider", provider)
	}
	raw := q.Encode()

	var out MailerToken
	resp, err := c.http.R().
		SetResult(&out).
		SetHeader(signature.Header, signature.Sign(c.Secret, []byte(raw))).
		Get("/api/mailer/token?" + raw)
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMail relays a message through the signed mailer API.
func (c *Client) SendMail(m SendMail) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return check(c.http.R().
		SetHeader("Content-Type", "application/json").
		SetHeader(signature.Header, signature.Sign(c.Secret, body)).
		SetBody(body).
		Post("/api/mailer/send"))
}

// Health returns the decoded /healthz document. A degraded instance answers
// 503 with the same document, which is returned without an error.
func (c *Client) Health() (map[string]any, error) {
	out := map[string]any{}
	resp, err := c.http.R().SetResult(&out).SetError(&out).Get("/healthz")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() == http.StatusServiceUnavailable && out["status"] != nil {
		return out, nil
	}
	if err := check(resp, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func derefOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func encodePDF(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
