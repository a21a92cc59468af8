package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoinvoice/autoinvoice/internal/config"
	custdomain "github.com/autoinvoice/autoinvoice/internal/customers/domain"
	invdomain "github.com/autoinvoice/autoinvoice/internal/invoices/domain"
	"github.com/autoinvoice/autoinvoice/internal/logger"
	"github.com/autoinvoice/autoinvoice/internal/platform/signature"
)

func fixture() (invdomain.Invoice, custdomain.Customer) {
	email := "billing@acme.test"
	cust := custdomain.Customer{ID: uuid.New(), Name: "Acme", Email: &email}
	item := invdomain.Item{
		ID:          uuid.New(),
		Description: "Hosting",
		Quantity:    decimal.RequireFromString("2"),
		UnitPrice:   decimal.RequireFromString("100"),
		VATRate:     decimal.RequireFromString("23"),
	}
	inv := invdomain.Invoice{
		ID:         uuid.New(),
		OwnerID:    uuid.New(),
		CustomerID: cust.ID,
		Type:       invdomain.TypeInvoice,
		Number:     "INV-1",
		IssueDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:    time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Currency:   "PLN",
		Status:     invdomain.StatusDraft,
		Items:      []invdomain.Item{item, item},
	}
	return inv, cust
}

type captured struct {
	body        []byte
	contentType string
	sig         string
	hasSig      bool
}

func server(t *testing.T, status int, reply string, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.body, _ = io.ReadAll(r.Body)
		got.contentType = r.Header.Get("Content-Type")
		_, got.hasSig = r.Header[signature.Header]
		got.sig = r.Header.Get(signature.Header)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBuildPayload(t *testing.T) {
	inv, cust := fixture()
	p := BuildPayload(inv, cust)

	assert.Equal(t, "invoice.send", p.Event)
	assert.Equal(t, "2024-03-01", p.IssueDate)
	assert.Equal(t, "2024-03-15", p.DueDate)
	require.Len(t, p.Items, 2)
	assert.Equal(t, "2.00", p.Items[0].Quantity)
	assert.Equal(t, "23.00", p.Items[0].VATRate)
	assert.Equal(t, "246.00", p.Items[0].TotalPrice)
	assert.Equal(t, "492.00", p.TotalAmount)
}

func TestEncode_CompactAndOrdered(t *testing.T) {
	inv, cust := fixture()
	inv.Items = nil
	body, err := Encode(BuildPayload(inv, cust))
	require.NoError(t, err)

	s := string(body)
	assert.NotContains(t, s, " ")
	assert.True(t, strings.HasPrefix(s, `{"event":"invoice.send","invoice_id":"`))
	assert.Contains(t, s, `"notes":null`)
	assert.Contains(t, s, `"items":[]`)
	assert.True(t, strings.HasSuffix(s, `"total_amount":"0.00"}`))

	again, _ := Encode(BuildPayload(inv, cust))
	assert.Equal(t, body, again)
}

func TestDispatch_SignedSuccess(t *testing.T) {
	var got captured
	srv := server(t, http.StatusOK, "ok", &got)
	d := New(config.Config{WebhookURL: srv.URL, HMACSharedSecret: "s3cret"}, logger.Nop())

	inv, cust := fixture()
	res := d.Dispatch(context.Background(), inv, cust)

	require.True(t, res.OK, res.Error)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", got.contentType)
	assert.True(t, signature.Verify("s3cret", got.body, got.sig))

	var decoded Payload
	require.NoError(t, json.Unmarshal(got.body, &decoded))
	assert.Equal(t, inv.ID.String(), decoded.InvoiceID)
}

func TestDispatch_UnsignedOmitsHeader(t *testing.T) {
	var got captured
	srv := server(t, http.StatusAccepted, "", &got)
	d := New(config.Config{WebhookURL: srv.URL}, logger.Nop())

	inv, cust := fixture()
	res := d.Dispatch(context.Background(), inv, cust)

	assert.True(t, res.OK)
	assert.False(t, d.Signed())
	assert.False(t, got.hasSig)
}

func TestDispatch_FailureCarriesStatusAndBody(t *testing.T) {
	var got captured
	srv := server(t, http.StatusInternalServerError, "workflow exploded", &got)
	d := New(config.Config{WebhookURL: srv.URL}, logger.Nop())

	inv, cust := fixture()
	res := d.Dispatch(context.Background(), inv, cust)

	assert.False(t, res.OK)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "workflow exploded", res.Error)
}

func TestDispatch_EmptyBodyAndTruncation(t *testing.T) {
	var got captured
	srv := server(t, http.StatusBadGateway, "", &got)
	res := New(config.Config{WebhookURL: srv.URL}, logger.Nop()).Post(context.Background(), []byte(`{}`))
	assert.Equal(t, "HTTP 502", res.Error)

	long := strings.Repeat("ż", 2500)
	srv = server(t, http.StatusBadRequest, long, &got)
	res = New(config.Config{WebhookURL: srv.URL}, logger.Nop()).Post(context.Background(), []byte(`{}`))
	assert.Equal(t, 2000, len([]rune(res.Error)))
}

func TestDispatch_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := New(config.Config{WebhookURL: url, WebhookTimeout: time.Second}, logger.Nop()).Post(context.Background(), []byte(`{}`))
	assert.False(t, res.OK)
	assert.Zero(t, res.StatusCode)
	assert.NotEmpty(t, res.Error)
}

func TestDispatch_NoURLConfigured(t *testing.T) {
	res := New(config.Config{}, logger.Nop()).Post(context.Background(), []byte(`{}`))
	assert.False(t, res.OK)
	assert.Equal(t, "webhook url not configured", res.Error)
}
