package controller

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	amw "github.com/autoinvoice/autoinvoice/internal/auth/middleware"
	domain "github.com/autoinvoice/autoinvoice/internal/customers/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
)

type Controller struct {
	svc  domain.Service
	auth echo.MiddlewareFunc
}

func New(svc domain.Service, auth echo.MiddlewareFunc) *Controller {
	return &Controller{svc: svc, auth: auth}
}

func (h *Controller) Register(e *echo.Echo) {
	g := e.Group("/api/v1", h.auth)
	g.POST("/customers", h.createCustomer)
	g.GET("/customers", h.listCustomers)
	g.GET("/customers/:id", h.getCustomer)
	g.PUT("/customers/:id", h.updateCustomer)
	g.DELETE("/customers/:id", h.deleteCustomer)
}

type customerReq struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
	VATID   *string `json:"vat_id,omitempty" validate:"omitempty,max=32"`
	IBAN    *string `json:"iban,omitempty" validate:"omitempty,max=42"`
	BIC     *string `json:"bic,omitempty" validate:"omitempty,max=11"`
}

func (r customerReq) input() domain.Input {
	return domain.Input{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
		VATID:   r.VATID,
		IBAN:    r.IBAN,
		BIC:     r.BIC,
	}
}

type customerResp struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	VATID     *string `json:"vat_id"`
	IBAN      *string `json:"iban"`
	BIC       *string `json:"bic"`
	CreatedAt string  `json:"created_at"`
}

func toResp(c domain.Customer) customerResp {
	return customerResp{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		VATID:     c.VATID,
		IBAN:      c.IBAN,
		BIC:       c.BIC,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func ownerAndID(c echo.Context) (uuid.UUID, uuid.UUID, bool) {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return owner, uuid.Nil, false
	}
	return owner, id, true
}

// Create Customer godoc
// @Summary      Create customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Param        body  body  customerReq  true  "customer"
// @Success      201   {object}  customerResp
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/customers [post]
func (h *Controller) createCustomer(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	cust, err := h.svc.Create(c.Request().Context(), owner, req.input())
	if err != nil {
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusCreated, toResp(cust))
}

// Get Customer godoc
// @Summary      Get customer
// @Tags         customers
// @Produce      json
// @Param        id   path   string  true  "Customer ID (UUID)"
// @Success      200  {object}  customerResp
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/customers/{id} [get]
func (h *Controller) getCustomer(c echo.Context) error {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	cust, err := h.svc.Get(c.Request().Context(), owner, id)
	if err != nil {
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusOK, toResp(cust))
}

func (h *Controller) updateCustomer(c echo.Context) error {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var req customerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	cust, err := h.svc.Update(c.Request().Context(), owner, id, req.input())
	if err != nil {
		return apperror.JSON(c, err)
	}
	return c.JSON(http.StatusOK, toResp(cust))
}

// Delete Customer godoc
// @Summary      Delete customer
// @Description  Deletes a customer together with its invoices
// @Tags         customers
// @Param        id   path   string  true  "Customer ID (UUID)"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/customers/{id} [delete]
func (h *Controller) deleteCustomer(c echo.Context) error {
	owner, id, ok := ownerAndID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	if err := h.svc.Delete(c.Request().Context(), owner, id); err != nil {
		return apperror.JSON(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type listQuery struct {
	Q        string `query:"q"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

type listResponse struct {
	Items      []customerResp `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// List Customers godoc
// @Summary      List customers
// @Tags         customers
// @Produce      json
// @Param        q          query  string  false  "Name or email filter"
// @Param        page       query  int     false  "Page (1-based)"
// @Param        page_size  query  int     false  "Page size (max 100)"
// @Success      200  {object}  listResponse
// @Router       /api/v1/customers [get]
func (h *Controller) listCustomers(c echo.Context) error {
	owner, ok := amw.OwnerID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
	var q listQuery
	if err := c.Bind(&q); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid query"})
	}
	res, err := h.svc.List(c.Request().Context(), owner, domain.ListOptions{Query: q.Q, Page: q.Page, PageSize: q.PageSize})
	if err != nil {
		return apperror.JSON(c, err)
	}
	items := make([]customerResp, 0, len(res.Items))
	for _, it := range res.Items {
		items = append(items, toResp(it))
	}
	return c.JSON(http.StatusOK, listResponse{
		Items:      items,
		Total:      res.Total,
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalPages: res.TotalPages,
	})
}
