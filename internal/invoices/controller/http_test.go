package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	"github.com/autoinvoice/autoinvoice/internal/config"
	domain "github.com/autoinvoice/autoinvoice/internal/invoices/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
)

// fakeService keeps one invoice per id and applies the lifecycle rules
// without persistence concerns.
type fakeService struct {
	rows      map[uuid.UUID]domain.Invoice
	sendErr   error
	lastInput domain.Input
}

func (f *fakeService) Create(_ context.Context, owner uuid.UUID, in domain.Input) (domain.Invoice, error) {
	f.lastInput = in
	inv := domain.Invoice{ID: uuid.New(), OwnerID: owner, CustomerID: in.CustomerID, Number: in.Number, Type: domain.TypeInvoice, Status: domain.StatusDraft, IssueDate: in.IssueDate}
	for _, it := range in.Items {
		inv.Items = append(inv.Items, domain.Item{ID: uuid.New(), Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice, VATRate: it.VATRate})
	}
	f.rows[inv.ID] = inv
	return inv, nil
}

func (f *fakeService) Get(_ context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	inv, ok := f.rows[id]
	if !ok || inv.OwnerID != owner {
		return domain.Invoice{}, apperror.NotFound("invoice")
	}
	return inv, nil
}

func (f *fakeService) List(_ context.Context, owner uuid.UUID, opts domain.ListOptions) (domain.ListResult, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return domain.ListResult{}, apperror.Validation("status", "unknown status")
	}
	var items []domain.Invoice
	for _, inv := range f.rows {
		if inv.OwnerID == owner {
			items = append(items, inv)
		}
	}
	return domain.ListResult{Items: items, Total: int64(len(items)), Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (f *fakeService) Update(ctx context.Context, owner, id uuid.UUID, in domain.Input) (domain.Invoice, error) {
	return f.Get(ctx, owner, id)
}

func (f *fakeService) Delete(ctx context.Context, owner, id uuid.UUID) error {
	_, err := f.Get(ctx, owner, id)
	return err
}

func (f *fakeService) AddItem(ctx context.Context, owner, invoiceID uuid.UUID, in domain.ItemInput) (domain.Item, error) {
	if _, err := f.Get(ctx, owner, invoiceID); err != nil {
		return domain.Item{}, err
	}
	return domain.Item{ID: uuid.New(), InvoiceID: invoiceID, Description: in.Description, Quantity: in.Quantity, UnitPrice: in.UnitPrice, VATRate: in.VATRate}, nil
}

func (f *fakeService) RemoveItem(ctx context.Context, owner, invoiceID, itemID uuid.UUID) error {
	_, err := f.Get(ctx, owner, invoiceID)
	return err
}

func (f *fakeService) move(ctx context.Context, owner, id uuid.UUID, t domain.Transition) (domain.Invoice, error) {
	inv, err := f.Get(ctx, owner, id)
	if err != nil {
		return inv, err
	}
	to, err := domain.Next(inv.Status, t)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv.Status = to
	f.rows[id] = inv
	return inv, nil
}

func (f *fakeService) Send(ctx context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	if f.sendErr != nil {
		inv, _ := f.Get(ctx, owner, id)
		msg := "boom"
		inv.LastError = &msg
		return inv, f.sendErr
	}
	return f.move(ctx, owner, id, domain.TransitionSend)
}

func (f *fakeService) MarkPaid(ctx context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	return f.move(ctx, owner, id, domain.TransitionMarkPaid)
}

func (f *fakeService) Cancel(ctx context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	return f.move(ctx, owner, id, domain.TransitionCancel)
}

func (f *fakeService) Stats(context.Context, uuid.UUID) (domain.Stats, error) {
	return domain.Stats{Customers: 2, Invoices: 3, ByStatus: map[domain.Status]int64{domain.StatusPaid: 1}, PaidRevenue: decimal.RequireFromString("246")}, nil
}

type harness struct {
	e     *echo.Echo
	svc   *fakeService
	cfg   config.Config
	owner uuid.UUID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Config{JWTSigningKey: "test-key", SessionCookieName: "autoinvoice_session"}
	e := echo.New()
	e.Validator = validation.New()
	svc := &fakeService{rows: map[uuid.UUID]domain.Invoice{}}
	New(svc, amw.NewJWT(cfg)).Register(e)
	return &harness{e: e, svc: svc, cfg: cfg, owner: uuid.New()}
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	tok, _, err := amw.MintToken(h.cfg, h.owner, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(&http.Cookie{Name: h.cfg.SessionCookieName, Value: tok})
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func (h *harness) seed(status domain.Status) domain.Invoice {
	inv := domain.Invoice{ID: uuid.New(), OwnerID: h.owner, Number: "INV-1", Status: status, Type: domain.TypeInvoice}
	h.svc.rows[inv.ID] = inv
	return inv
}

func TestCreateInvoice_ParsesBody(t *testing.T) {
	h := newHarness(t)
	cust := uuid.New()
	body := `{"customer_id":"` + cust.String() + `","number":"INV-1","issue_date":"2024-03-01","due_date":"2024-03-15",
		"items":[{"description":"Hosting","quantity":"2","unit_price":"100.00","vat_rate":"23"}]}`

	rec := h.do(t, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got invoiceResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "246.00", got.TotalAmount)
	assert.Equal(t, []string{"send", "cancel"}, got.AllowedActions)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "100.00", got.Items[0].UnitPrice)

	assert.Equal(t, cust, h.svc.lastInput.CustomerID)
	require.NotNil(t, h.svc.lastInput.DueDate)
	assert.Equal(t, "2024-03-15", h.svc.lastInput.DueDate.Format(dateLayout))
}

func TestCreateInvoice_ValidationErrors(t *testing.T) {
	h := newHarness(t)
	body := `{"customer_id":"nope","invoice_type":"CREDIT_NOTE","issue_date":"01/03/2024",
		"items":[{"description":"x","quantity":"abc","unit_price":"1e20","vat_rate":"7"}]}`

	rec := h.do(t, http.MethodPost, "/api/v1/invoices", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var got validation.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	for _, field := range []string{"customer_id", "invoice_type", "number", "issue_date", "quantity", "unit_price", "vat_rate"} {
		assert.Contains(t, got.Fields, field)
	}
	assert.Equal(t, []string{"amount"}, got.Fields["unit_price"])
}

func TestAPIAction_ConflictOnInvalidTransition(t *testing.T) {
	h := newHarness(t)
	inv := h.seed(domain.StatusDraft)

	rec := h.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/mark-paid", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, domain.StatusDraft, h.svc.rows[inv.ID].Status)

	rec = h.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/send", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"SENT"`)
}

func TestAPIAction_SendFailureReturnsInvoice(t *testing.T) {
	h := newHarness(t)
	inv := h.seed(domain.StatusDraft)
	h.svc.sendErr = apperror.UpstreamError{Service: "workflow", StatusCode: 500, Detail: "boom"}

	rec := h.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/send", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body struct {
		Error   string      `json:"error"`
		Invoice invoiceResp `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "DRAFT", body.Invoice.Status)
	require.NotNil(t, body.Invoice.LastError)
	assert.Equal(t, "boom", *body.Invoice.LastError)
}

func redirectStatus(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/invoices", loc.Path)
	return loc.Query().Get("status")
}

func TestFormActions_RedirectWithMessage(t *testing.T) {
	h := newHarness(t)
	inv := h.seed(domain.StatusDraft)
	base := "/invoices/" + inv.ID.String()

	assert.Equal(t, "Invoice INV-1 sent.", redirectStatus(t, h.do(t, http.MethodPost, base+"/send", "")))
	assert.Equal(t, "Invoice INV-1 marked as paid.", redirectStatus(t, h.do(t, http.MethodPost, base+"/mark-paid", "")))
	assert.Equal(t, "Invoice cannot be cancelled while PAID.", redirectStatus(t, h.do(t, http.MethodPost, base+"/cancel", "")))
	assert.Equal(t, "Invoice not found.", redirectStatus(t, h.do(t, http.MethodPost, "/invoices/"+uuid.NewString()+"/send", "")))
}

func TestFormActions_PostOnly(t *testing.T) {
	h := newHarness(t)
	inv := h.seed(domain.StatusDraft)
	rec := h.do(t, http.MethodGet, "/invoices/"+inv.ID.String()+"/send", "")
	assert.NotEqual(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, domain.StatusDraft, h.svc.rows[inv.ID].Status)
}

func TestListAndStats(t *testing.T) {
	h := newHarness(t)
	h.seed(domain.StatusDraft)

	rec := h.do(t, http.MethodGet, "/api/v1/invoices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = h.do(t, http.MethodGet, "/api/v1/invoices?status=LOST", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"customers":2,"invoices":3,"by_status":{"PAID":1},"paid_revenue":"246.00"}`, rec.Body.String())
}
