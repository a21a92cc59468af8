package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/autoinvoice/autoinvoice/internal/config"
	custdomain "github.com/autoinvoice/autoinvoice/internal/customers/domain"
	evdomain "github.com/autoinvoice/autoinvoice/internal/events/domain"
	domain "github.com/autoinvoice/autoinvoice/internal/invoices/domain"
	"github.com/autoinvoice/autoinvoice/internal/logger"
	"github.com/autoinvoice/autoinvoice/internal/metrics"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
	"github.com/autoinvoice/autoinvoice/internal/platform/validation"
	sdomain "github.com/autoinvoice/autoinvoice/internal/settings/domain"
	"github.com/autoinvoice/autoinvoice/internal/webhook"
)

// Dispatcher delivers an invoice to the workflow webhook.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv domain.Invoice, cust custdomain.Customer) webhook.Result
}

type Service struct {
	repo       domain.Repository
	customers  custdomain.Repository
	dispatcher Dispatcher
	settings   sdomain.Service
	pub        evdomain.Publisher
	log        zerolog.Logger

	defaultCurrency string
	claimTTL        time.Duration
	now             func() time.Time
}

func New(repo domain.Repository, customers custdomain.Repository, d Dispatcher, cfg config.Config, log zerolog.Logger) *Service {
	cur := cfg.DefaultCurrency
	if cur == "" {
		cur = "PLN"
	}
	return &Service{
		repo:            repo,
		customers:       customers,
		dispatcher:      d,
		log:             logger.Component(log, "invoices"),
		defaultCurrency: cur,
		claimTTL:        cfg.ClaimTTL(),
		now:             time.Now,
	}
}

// WithSettings enables per-owner currency and payment term defaults.
func (s *Service) WithSettings(st sdomain.Service) *Service { s.settings = st; return s }

// WithPublisher injects an audit event publisher.
func (s *Service) WithPublisher(p evdomain.Publisher) *Service { s.pub = p; return s }

func (s *Service) publish(ctx context.Context, typ string, inv domain.Invoice, meta map[string]string) {
	if s.pub == nil {
		return
	}
	if meta == nil {
		meta = map[string]string{}
	}
	meta["number"] = inv.Number
	meta["status"] = string(inv.Status)
	_ = s.pub.Publish(ctx, evdomain.Event{Type: typ, OwnerID: inv.OwnerID, SubjectID: inv.ID, Meta: meta, Time: s.now()})
}

func (s *Service) defaults(ctx context.Context, owner uuid.UUID) (string, int) {
	cur, days := s.defaultCurrency, sdomain.DefaultDueDays
	if s.settings == nil {
		return cur, days
	}
	if v, err := s.settings.GetString(ctx, sdomain.KeyInvoiceCurrency, &owner, cur); err == nil {
		cur = v
	}
	if v, err := s.settings.GetInt(ctx, sdomain.KeyInvoiceDueDays, &owner, days); err == nil && v >= 0 {
		days = v
	}
	return cur, days
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// prepare normalizes the header, resolves defaults and checks the customer
// belongs to owner. It returns the effective due date.
func (s *Service) prepare(ctx context.Context, owner uuid.UUID, in *domain.Input) (time.Time, error) {
	in.Number = strings.TrimSpace(in.Number)
	if in.Number == "" {
		return time.Time{}, apperror.Validation("number", "is required")
	}
	if in.Type == "" {
		in.Type = domain.TypeInvoice
	}
	if !in.Type.Valid() {
		return time.Time{}, apperror.Validation("invoice_type", "must be INVOICE or PROFORMA")
	}
	if in.IssueDate.IsZero() {
		in.IssueDate = s.now()
	}
	in.IssueDate = dateOnly(in.IssueDate)
	in.Notes = optional(in.Notes)

	cur, days := s.defaults(ctx, owner)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = cur
	}
	due := in.IssueDate.AddDate(0, 0, days)
	if in.DueDate != nil {
		due = dateOnly(*in.DueDate)
	}
	if due.Before(in.IssueDate) {
		return time.Time{}, apperror.Validation("due_date", "must not be before issue_date")
	}

	if _, err := s.customers.Get(ctx, owner, in.CustomerID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return time.Time{}, apperror.Validation("customer_id", "customer does not belong to this account")
		}
		return time.Time{}, err
	}
	for i := range in.Items {
		if err := checkItem(&in.Items[i]); err != nil {
			return time.Time{}, err
		}
	}
	return due, nil
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func checkItem(it *domain.ItemInput) error {
	it.Description = strings.TrimSpace(it.Description)
	if it.Description == "" {
		return apperror.Validation("description", "is required")
	}
	if !it.Quantity.IsPositive() {
		return apperror.Validation("quantity", "must be greater than zero")
	}
	if it.UnitPrice.IsNegative() {
		return apperror.Validation("unit_price", "must not be negative")
	}
	if !validation.IsAmount(it.Quantity) {
		return apperror.Validation("quantity", "must be below 10000000000 with at most 2 decimal places")
	}
	if !validation.IsAmount(it.UnitPrice) {
		return apperror.Validation("unit_price", "must be below 10000000000 with at most 2 decimal places")
	}
	if !validation.IsAllowedVATRate(it.VATRate) {
		return apperror.Validation("vat_rate", "must be one of 0, 5, 8, 23")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, owner uuid.UUID, in domain.Input) (domain.Invoice, error) {
	due, err := s.prepare(ctx, owner, &in)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv, items, err := s.repo.Create(ctx, domain.Invoice{
		ID:         uuid.New(),
		OwnerID:    owner,
		CustomerID: in.CustomerID,
		Type:       in.Type,
		Number:     in.Number,
		IssueDate:  in.IssueDate,
		DueDate:    due,
		Currency:   in.Currency,
		Notes:      in.Notes,
		Status:     domain.StatusDraft,
	}, in.Items)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	inv, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return s.withItems(ctx, inv)
}

func (s *Service) withItems(ctx context.Context, inv domain.Invoice) (domain.Invoice, error) {
	items, err := s.repo.Items(ctx, inv.OwnerID, inv.ID)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, opts domain.ListOptions) (domain.ListResult, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return domain.ListResult{}, apperror.Validation("status", "unknown status")
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, total, err := s.repo.List(ctx, owner, opts.Status, int32(pageSize), int32(offset))
	if err != nil {
		return domain.ListResult{}, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	items, err := s.repo.ItemsFor(ctx, owner, ids)
	if err != nil {
		return domain.ListResult{}, err
	}
	for i := range rows {
		rows[i].Items = items[rows[i].ID]
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return domain.ListResult{Items: rows, Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

// draftOnly re-reads after a guarded write matched nothing and reports why.
func (s *Service) draftOnly(ctx context.Context, owner, id uuid.UUID, action string) error {
	inv, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	return apperror.InvalidTransitionError{Transition: action, Status: string(inv.Status), Reason: "only draft invoices can be changed"}
}

func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, in domain.Input) (domain.Invoice, error) {
	due, err := s.prepare(ctx, owner, &in)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv, err := s.repo.UpdateDraft(ctx, owner, id, in, due)
	if errors.Is(err, domain.ErrStale) {
		return domain.Invoice{}, s.draftOnly(ctx, owner, id, "edit")
	}
	if err != nil {
		return domain.Invoice{}, err
	}
	return s.withItems(ctx, inv)
}

func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	err := s.repo.Delete(ctx, owner, id)
	if !errors.Is(err, domain.ErrStale) {
		return err
	}
	inv, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	return apperror.InvalidTransitionError{Transition: "delete", Status: string(inv.Status), Reason: "only draft or cancelled invoices can be deleted"}
}

func (s *Service) AddItem(ctx context.Context, owner, invoiceID uuid.UUID, in domain.ItemInput) (domain.Item, error) {
	if err := checkItem(&in); err != nil {
		return domain.Item{}, err
	}
	it, err := s.repo.AddItem(ctx, owner, invoiceID, in)
	if errors.Is(err, domain.ErrStale) {
		return domain.Item{}, s.draftOnly(ctx, owner, invoiceID, "edit")
	}
	return it, err
}

func (s *Service) RemoveItem(ctx context.Context, owner, invoiceID, itemID uuid.UUID) error {
	err := s.repo.RemoveItem(ctx, owner, invoiceID, itemID)
	if !errors.Is(err, domain.ErrStale) {
		return err
	}
	inv, err := s.repo.Get(ctx, owner, invoiceID)
	if err != nil {
		return err
	}
	if inv.Status != domain.StatusDraft {
		return apperror.InvalidTransitionError{Transition: "edit", Status: string(inv.Status), Reason: "only draft invoices can be changed"}
	}
	return apperror.NotFound("invoice item")
}

// refused builds the error for a guarded transition that lost a race,
// reporting the freshly read status.
func (s *Service) refused(ctx context.Context, owner, id uuid.UUID, t domain.Transition, reason string) error {
	inv, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if inv.Status == domain.StatusDraft && (t == domain.TransitionSend || s.claimHeld(inv)) {
		reason = "send already in progress"
	}
	return apperror.InvalidTransitionError{Transition: string(t), Status: string(inv.Status), Reason: reason}
}

func (s *Service) claimHeld(inv domain.Invoice) bool {
	return inv.DispatchClaimedAt != nil && !inv.DispatchClaimedAt.Before(s.now().Add(-s.claimTTL))
}

// Send claims a draft invoice, posts it to the workflow and records the
// outcome. On delivery failure the invoice stays DRAFT with last_error set
// and both the updated invoice and an UpstreamError are returned.
func (s *Service) Send(ctx context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	inv, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if _, err := domain.Next(inv.Status, domain.TransitionSend); err != nil {
		metrics.IncInvoiceTransition(string(domain.TransitionSend), "refused")
		return domain.Invoice{}, err
	}

	claimed, err := s.repo.ClaimDispatch(ctx, owner, id, s.now().Add(-s.claimTTL))
	if errors.Is(err, domain.ErrStale) {
		metrics.IncInvoiceTransition(string(domain.TransitionSend), "refused")
		return domain.Invoice{}, s.refused(ctx, owner, id, domain.TransitionSend, "")
	}
	if err != nil {
		return domain.Invoice{}, err
	}

	// Once claimed, the outcome must be recorded even if the caller goes
	// away, or the claim stays held and a later send dispatches again.
	bg := context.WithoutCancel(ctx)

	claimed, cust, err := s.loadForDispatch(ctx, claimed)
	if err != nil {
		// Release the claim so the invoice can be retried.
		if _, rerr := s.repo.RecordDispatchFailure(bg, owner, id, 0, apperror.Truncate(err.Error(), apperror.MaxDetail)); rerr != nil {
			s.log.Warn().Err(rerr).Str("invoice_id", id.String()).Msg("failed to release dispatch claim")
		}
		return domain.Invoice{}, err
	}

	res := s.dispatcher.Dispatch(ctx, claimed, cust)
	if !res.OK {
		failed, err := s.repo.RecordDispatchFailure(bg, owner, id, res.StatusCode, res.Error)
		if err != nil {
			if errors.Is(err, domain.ErrStale) {
				return domain.Invoice{}, s.refused(bg, owner, id, domain.TransitionSend, "")
			}
			return domain.Invoice{}, err
		}
		metrics.IncInvoiceTransition(string(domain.TransitionSend), "failed")
		s.log.Warn().
			Str("invoice_id", id.String()).
			Str("owner_id", owner.String()).
			Int("status_code", res.StatusCode).
			Msg("invoice dispatch failed")
		s.publish(bg, evdomain.TypeInvoiceSendFailed, failed, map[string]string{"status_code": strconv.Itoa(res.StatusCode)})
		failed.Items = claimed.Items
		return failed, apperror.UpstreamError{Service: "workflow", StatusCode: res.StatusCode, Detail: res.Error}
	}

	sent, err := s.repo.MarkSent(bg, owner, id, res.StatusCode)
	if errors.Is(err, domain.ErrStale) {
		// Delivered, but the invoice left DRAFT meanwhile (claim expired and
		// someone else acted). The workflow already has it.
		s.log.Warn().Str("invoice_id", id.String()).Msg("invoice changed while dispatching")
		return domain.Invoice{}, s.refused(bg, owner, id, domain.TransitionSend, "changed while sending")
	}
	if err != nil {
		return domain.Invoice{}, err
	}
	metrics.IncInvoiceTransition(string(domain.TransitionSend), "ok")
	s.log.Info().Str("invoice_id", id.String()).Str("owner_id", owner.String()).Int("status_code", res.StatusCode).Msg("invoice sent")
	s.publish(bg, evdomain.TypeInvoiceSent, sent, map[string]string{"status_code": strconv.Itoa(res.StatusCode)})
	sent.Items = claimed.Items
	return sent, nil
}

func (s *Service) loadForDispatch(ctx context.Context, inv domain.Invoice) (domain.Invoice, custdomain.Customer, error) {
	inv, err := s.withItems(ctx, inv)
	if err != nil {
		return inv, custdomain.Customer{}, fmt.Errorf("load items: %w", err)
	}
	cust, err := s.customers.Get(ctx, inv.OwnerID, inv.CustomerID)
	if err != nil {
		return inv, custdomain.Customer{}, fmt.Errorf("load customer: %w", err)
	}
	return inv, cust, nil
}

func (s *Service) MarkPaid(ctx context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	return s.transition(ctx, owner, id, domain.TransitionMarkPaid, evdomain.TypeInvoicePaid)
}

func (s *Service) Cancel(ctx context.Context, owner, id uuid.UUID) (domain.Invoice, error) {
	return s.transition(ctx, owner, id, domain.TransitionCancel, evdomain.TypeInvoiceCancelled)
}

func (s *Service) transition(ctx context.Context, owner, id uuid.UUID, t domain.Transition, event string) (domain.Invoice, error) {
	inv, err := s.repo.Get(ctx, owner, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	to, err := domain.Next(inv.Status, t)
	if err != nil {
		metrics.IncInvoiceTransition(string(t), "refused")
		return domain.Invoice{}, err
	}
	updated, err := s.repo.Transition(ctx, owner, id, inv.Status, to, s.now().Add(-s.claimTTL))
	if errors.Is(err, domain.ErrStale) {
		metrics.IncInvoiceTransition(string(t), "refused")
		return domain.Invoice{}, s.refused(ctx, owner, id, t, "")
	}
	if err != nil {
		return domain.Invoice{}, err
	}
	metrics.IncInvoiceTransition(string(t), "ok")
	s.publish(ctx, event, updated, nil)
	return s.withItems(ctx, updated)
}

func (s *Service) Stats(ctx context.Context, owner uuid.UUID) (domain.Stats, error) {
	counts, err := s.repo.StatusCounts(ctx, owner)
	if err != nil {
		return domain.Stats{}, err
	}
	revenue, err := s.repo.PaidRevenue(ctx, owner)
	if err != nil {
		return domain.Stats{}, err
	}
	_, customers, err := s.customers.List(ctx, owner, "", 1, 0)
	if err != nil {
		return domain.Stats{}, err
	}
	st := domain.Stats{Customers: customers, ByStatus: map[domain.Status]int64{}, PaidRevenue: revenue}
	for _, status := range []domain.Status{domain.StatusDraft, domain.StatusSent, domain.StatusPaid, domain.StatusCancelled} {
		st.ByStatus[status] = counts[status]
		st.Invoices += counts[status]
	}
	return st, nil
}
