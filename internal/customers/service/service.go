package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	domain "github.com/autoinvoice/autoinvoice/internal/customers/domain"
	"github.com/autoinvoice/autoinvoice/internal/platform/apperror"
)

type service struct {
	repo domain.Repository
}

func New(repo domain.Repository) domain.Service {
	return &service{repo: repo}
}

// normalize trims every field, drops empty optionals and canonicalizes the
// bank and tax identifiers so uniqueness checks compare like with like.
func normalize(in domain.Input) (domain.Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, apperror.Validation("name", "is required")
	}
	in.Email = optional(in.Email, strings.ToLower)
	in.Phone = optional(in.Phone, nil)
	in.Address = optional(in.Address, nil)
	in.VATID = optional(in.VATID, compactUpper)
	in.IBAN = optional(in.IBAN, compactUpper)
	in.BIC = optional(in.BIC, compactUpper)
	return in, nil
}

func optional(s *string, f func(string) string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	if f != nil {
		v = f(v)
	}
	return &v
}

func compactUpper(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", ""))
}

func (s *service) Create(ctx context.Context, owner uuid.UUID, in domain.Input) (domain.Customer, error) {
	in, err := normalize(in)
	if err != nil {
		return domain.Customer{}, err
	}
	return s.repo.Create(ctx, owner, uuid.New(), in)
}

func (s *service) Get(ctx context.Context, owner, id uuid.UUID) (domain.Customer, error) {
	return s.repo.Get(ctx, owner, id)
}

func (s *service) Update(ctx context.Context, owner, id uuid.UUID, in domain.Input) (domain.Customer, error) {
	in, err := normalize(in)
	if err != nil {
		return domain.Customer{}, err
	}
	return s.repo.Update(ctx, owner, id, in)
}

func (s *service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return s.repo.Delete(ctx, owner, id)
}

func (s *service) List(ctx context.Context, owner uuid.UUID, opts domain.ListOptions) (domain.ListResult, error) {
	if opts.PageSize <= 0 || opts.PageSize > 100 {
		opts.PageSize = 20
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	limit := int32(opts.PageSize)
	offset := int32((opts.Page - 1) * opts.PageSize)

	items, total, err := s.repo.List(ctx, owner, strings.TrimSpace(opts.Query), limit, offset)
	if err != nil {
		return domain.ListResult{}, err
	}
	totalPages := int(total) / opts.PageSize
	if int(total)%opts.PageSize != 0 {
		totalPages++
	}
	return domain.ListResult{
		Items:      items,
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
	}, nil
}
