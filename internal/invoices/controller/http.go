package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	domain "github.com/autoinvoice/autoinvoice/internal/invoices/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
)

const dateLayout = "2006-01-02"

type Controller struct {
	svc  domain.Service
	auth echo.MiddlewareFunc
}

func New(svc domain.Service, auth echo.MiddlewareFunc) *Controller {
	return &Controller{svc: svc, auth: auth}
}

func (h *Controller) Register(e *echo.Echo) {
	api := e.Group("/api/v1", h.auth)
	api.POST("/invoices", h.createInvoice)
	api.GET("/invoices", h.listInvoices)
	api.GET("/invoices/:id", h.getInvoice)
	api.PUT("/invoices/:id", h.updateInvoice)
	api.DELETE("/invoices/:id", h.deleteInvoice)
	api.POST("/invoices/:id/items", h.addItem)
	api.DELETE("/invoices/:id/items/:itemId", h.removeItem)
	api.POST("/invoices/:id/send", h.apiAction(domain.TransitionSend))
	api.POST("/invoices/:id/mark-paid", h.apiAction(domain.TransitionMarkPaid))
	api.POST("/invoices/:id/cancel", h.apiAction(domain.TransitionCancel))
	api.GET("/stats", h.getStats)

	// Form actions from the invoice list page. POST only; answer with a
	// redirect carrying a human readable status.
	actions := e.Group("/invoices", h.auth)
	actions.POST("/:id/send", h.formAction(domain.TransitionSend))
	actions.POST("/:id/mark-paid", h.formAction(domain.TransitionMarkPaid))
	actions.POST("/:id/cancel", h.formAction(domain.TransitionCancel))
}

type itemReq struct {
	Description string `json:"description" validate:"required,max=500"`
	Quantity    string `json:"quantity" validate:"required,amount"`
	UnitPrice   string `json:"unit_price" validate:"required,amount"`
	VATRate     string `json:"vat_rate" validate:"required,vatrate"`
}

func (r itemReq) input() domain.ItemInput {
	// Tags guarantee the strings parse.
	return domain.ItemInput{
		Description: r.Description,
		Quantity:    decimal.RequireFromString(r.Quantity),
		UnitPrice:   decimal.RequireFromString(r.UnitPrice),
		VATRate:     decimal.RequireFromString(r.VATRate),
	}
}

type invoiceReq struct {
	CustomerID  string    `json:"customer_id" validate:"required,uuid"`
	InvoiceType string    `json:"invoice_type" validate:"omitempty,oneof=INVOICE PROFORMA"`
	Number      string    `json:"number" validate:"required,max=64"`
	IssueDate   string    `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate     string    `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Currency    string    `json:"currency" validate:"omitempty,currency"`
	Notes       *string   `json:"notes" validate:"omitempty,max=2000"`
	Items       []itemReq `json:"items" validate:"omitempty,dive"`
}

func (r invoiceReq) input() domain.Input {
	in := domain.Input{
		CustomerID: uuid.MustParse(r.CustomerID),
		Type:       domain.Type(r.InvoiceType),
		Number:     r.Number,
		Currency:   r.Currency,
		Notes:      r.Notes,
	}
	if r.IssueDate != "" {
		in.IssueDate, _ = time.Parse(dateLayout, r.IssueDate)
	}
	if r.DueDate != "" {
		d, _ := time.Parse(dateLayout, r.DueDate)
		in.DueDate = &d
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, it.input())
	}
	return in
}

type itemResp struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	VATRate     string `json:"vat_rate"`
	TotalPrice  string `json:"total_price"`
}

type invoiceResp struct {
	ID                 string     `json:"id"`
	CustomerID         string     `json:"customer_id"`
	InvoiceType        string     `json:"invoice_type"`
	Number             string     `json:"number"`
	IssueDate          string     `json:"issue_date"`
	DueDate            string     `json:"due_date"`
	Currency           string     `json:"currency"`
	Notes              *string    `json:"notes"`
	Status             string     `json:"status"`
	SentAt             *time.Time `json:"sent_at"`
	PaidAt             *time.Time `json:"paid_at"`
	CancelledAt        *time.Time `json:"cancelled_at"`
	LastError          *string    `json:"last_error"`
	LastDispatchStatus *int       `json:"last_dispatch_status"`
	Items              []itemResp `json:"items"`
	TotalAmount        string     `json:"total_amount"`
	AllowedActions     []string   `json:"allowed_actions"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toItemResp(it domain.Item) itemResp {
	return itemResp{
		ID:          it.ID.String(),
		Description: it.Description,
		Quantity:    domain.Money(it.Quantity),
		UnitPrice:   domain.Money(it.UnitPrice),
		VATRate:     domain.Money(it.VATRate),
		TotalPrice:  domain.Money(it.Total()),
	}
}

func toResp(inv domain.Invoice) invoiceResp {
	items := make([]itemResp, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, toItemResp(it))
	}
	actions := []string{}
	for _, t := range domain.Allowed(inv.Status) {
		actions = append(actions, string(t))
	}
	return invoiceResp{
		ID:                 inv.ID.String(),
		CustomerID:         inv.CustomerID.String(),
		InvoiceType:        string(inv.Type),
		Number:             inv.Number,
		IssueDate:          inv.IssueDate.Format(dateLayout),
		DueDate:            inv.DueDate.Format(dateLayout),
		Currency:           inv.Currency,
		Notes:              inv.Notes,
		Status:             string(inv.Status),
		SentAt:             inv.SentAt,
		PaidAt:             inv.PaidAt,
		CancelledAt:        inv.CancelledAt,
		LastError:          inv.LastError,
		LastDispatchStatus: inv.LastDispatchStatus,
		Items:              items,
		TotalAmount:        domain.Money(inv.Total()),
		AllowedActions:     actions,
		CreatedAt:          inv.CreatedAt,
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
}

func parseID(c echo.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	return id, err == nil
}

// decodeInvoice binds and validates the request body. A non-nil second
// value is the 400 response body.
func decodeInvoice(c echo.Context) (domain.Input, any) {
	var req invoiceReq
	if err := c.Bind(&req); err != nil {
		return domain.Input{}, map[string]string{"error": "invalid json"}
	}
	if err := c.Validate(&req); err != nil {
		return domain.Input{}, validation.ErrorResponse(err)
	}
	return req.input(), nil
}

// Create Invoice godoc
// @Summary      Create a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        body  body  invoiceReq  true  "invoice"
// @Success      201   {object}  invoiceResp
// @Failure      400   {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/invoices [post]
func (h *Controller) createInvoice(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return unauthorized(c)
	}
	in, bad := decodeInvoice(c)
	if bad != nil {
		return c.JSON(http.StatusBadRequest, bad)
	}
	inv, err := h.svc.Create(c.Request().Context(), owner, in)
	if err != nil {
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, toResp(inv))
}

func (h *Controller) getInvoice(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c)
	}
	inv, err := h.svc.Get(c.Request().Context(), owner, id)
	if err != nil {
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusOK, toResp(inv))
}

// Update Invoice godoc
// @Summary      Replace a draft invoice header
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path  string      true  "Invoice ID (UUID)"
// @Param        body  body  invoiceReq  true  "invoice"
// @Success      200   {object}  invoiceResp
// @Failure      409   {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/v1/invoices/{id} [put]
func (h *Controller) updateInvoice(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c)
	}
	in, bad := decodeInvoice(c)
	if bad != nil {
		return c.JSON(http.StatusBadRequest, bad)
	}
	in.Items = nil
	inv, err := h.svc.Update(c.Request().Context(), owner, id, in)
	if err != nil {
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusOK, toResp(inv))
}

func (h *Controller) deleteInvoice(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c)
	}
	if err := h.svc.Delete(c.Request().Context(), owner, id); err != nil {
		return apperror.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) addItem(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c)
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	it, err := h.svc.AddItem(c.Request().Context(), owner, id, req.input())
	if err != nil {
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, toItemResp(it))
}

func (h *Controller) removeItem(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badID(c)
	}
	itemID, ok := parseID(c, "itemId")
	if !ok {
		return badID(c)
	}
	if err := h.svc.RemoveItem(c.Request().Context(), owner, id, itemID); err != nil {
		return apperror.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type listQuery struct {
	Status   string `query:"status"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

type listResponse struct {
	Items      []invoiceResp `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// List Invoices godoc
// @Summary      List invoices
// @Description  Newest issue date first
// @Tags         invoices
// @Produce      json
// @Param        status     query  string  false  "DRAFT, SENT, PAID or CANCELLED"
// @Param        page       query  int     false  "Page (1-based)"
// @Param        page_size  query  int     false  "Page size (max 100)"
// @Success      200  {object}  listResponse
// @Security     BearerAuth
// @Router       /api/v1/invoices [get]
func (h *Controller) listInvoices(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return unauthorized(c)
	}
	var q listQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid query"})
	}
	res, err := h.svc.List(c.Request().Context(), owner, domain.ListOptions{
		Status:   domain.Status(q.Status),
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		return apperror.JSON(c, err)
	}
	items := make([]invoiceResp, 0, len(res.Items))
	for _, inv := range res.Items {
		items = append(items, toResp(inv))
	}
	return c.JSON(http.StatusOK, listResponse{Items: items, Total: res.Total, Page: res.Page, PageSize: res.PageSize, TotalPages: res.TotalPages})
}

func (h *Controller) run(c echo.Context, owner, id uuid.UUID, t domain.Transition) (domain.Invoice, error) {
	ctx := c.Request().Context()
	switch t {
	case domain.TransitionSend:
		return h.svc.Send(ctx, owner, id)
	case domain.TransitionMarkPaid:
		return h.svc.MarkPaid(ctx, owner, id)
	default:
		return h.svc.Cancel(ctx, owner, id)
	}
}

// apiAction answers with the updated invoice. A failed send responds 502
// with the invoice as it was left (still DRAFT, last_error set).
func (h *Controller) apiAction(t domain.Transition) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, ok := amw.OwnerID(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := parseID(c, "id")
		if !ok {
			return badID(c)
		}
		inv, err := h.run(c, owner, id, t)
		if err != nil {
			if errors.Is(err, apperror.ErrUpstream) && inv.ID != uuid.Nil {
				resp := toResp(inv)
				return c.JSON(http.StatusBadGateway, map[string]any{"error": apperror.Message(err), "invoice": resp})
			}
			return apperror.JSON(c, err)
		}
		return c.JSON(http.StatusOK, toResp(inv))
	}
}

func (h *Controller) formAction(t domain.Transition) echo.HandlerFunc {
	return func(c echo.Context) error {
		owner, ok := amw.OwnerID(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := parseID(c, "id")
		if !ok {
			return redirectWithStatus(c, "Invoice not found.")
		}
		inv, err := h.run(c, owner, id, t)
		return redirectWithStatus(c, actionMessage(t, inv, err))
	}
}

func redirectWithStatus(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/invoices?status="+url.QueryEscape(msg))
}

// actionMessage is the flash text shown after a form action.
func actionMessage(t domain.Transition, inv domain.Invoice, err error) string {
	if err == nil {
		return fmt.Sprintf("Invoice %s %s.", inv.Number, t.Verb())
	}
	var ite apperror.InvalidTransitionError
	var up apperror.UpstreamError
	switch {
	case errors.As(err, &ite):
		if ite.Reason != "" {
			return fmt.Sprintf("Invoice cannot be %s while %s: %s.", t.Verb(), ite.Status, ite.Reason)
		}
		return fmt.Sprintf("Invoice cannot be %s while %s.", t.Verb(), ite.Status)
	case errors.As(err, &up):
		return fmt.Sprintf("Sending invoice %s failed: %s", inv.Number, up.Detail)
	case errors.Is(err, apperror.ErrNotFound):
		return "Invoice not found."
	default:
		return "Something went wrong, please try again."
	}
}

type statsResp struct {
	Customers   int64            `json:"customers"`
	Invoices    int64            `json:"invoices"`
	ByStatus    map[string]int64 `json:"by_status"`
	PaidRevenue string           `json:"paid_revenue"`
}

// Get Stats godoc
// @Summary      Dashboard counters
// @Tags         invoices
// @Produce      json
// @Success      200  {object}  statsResp
// @Security     BearerAuth
// @Router       /api/v1/stats [get]
func (h *Controller) getStats(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return unauthorized(c)
	}
	st, err := h.svc.Stats(c.Request().Context(), owner)
	if err != nil {
		return apperror.JSON(c, err)
	}
	by := make(map[string]int64, len(st.ByStatus))
	for k, v := range st.ByStatus {
		by[string(k)] = v
	}
	return c.JSON(http.StatusOK, statsResp{Customers: st.Customers, Invoices: st.Invoices, ByStatus: by, PaidRevenue: domain.Money(st.PaidRevenue)})
}
