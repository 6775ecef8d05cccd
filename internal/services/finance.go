package services

import (
	"context"
	"strings"

	"github.com/musicclub/apiserver/types"
)

// FinanceRepository defines persistence operations for the ledger.
type FinanceRepository interface {
	List(ctx context.Context) ([]types.Finance, error)
	Get(ctx context.Context, id int) (types.Finance, error)
	Create(ctx context.Context, f types.Finance) (int, error)
	Update(ctx context.Context, id int, patch types.FinancePatch) error
	Delete(ctx context.Context, id int) error
	MonthlySummary(ctx context.Context, year int) ([]types.MonthlySummary, error)
}

type FinanceService struct {
	repo FinanceRepository
}

func NewFinanceService(repo FinanceRepository) *FinanceService {
	return &FinanceService{repo: repo}
}

func (s *FinanceService) List(ctx context.Context) ([]types.Finance, error) {
	return s.repo.List(ctx)
}

func (s *FinanceService) Get(ctx context.Context, id int) (types.Finance, error) {
	return s.repo.Get(ctx, id)
}

func (s *FinanceService) Create(ctx context.Context, f types.Finance) (int, error) {
	if !f.Type.Valid() {
		return 0, invalidInput("type must be income or expense")
	}
	category, err := required("category", f.Category)
	if err != nil {
		return 0, err
	}
	if _, err := checkDate("date", f.Date); err != nil {
		return 0, err
	}
	f.Category = category
	f.Description = blankToNil(f.Description)
	f.Attachment = blankToNil(f.Attachment)
	return s.repo.Create(ctx, f)
}

// Update applies a partial change. An empty patch is rejected.
func (s *FinanceService) Update(ctx context.Context, id int, patch types.FinancePatch) error {
	if patch.Empty() {
		return invalidInput("nothing to update")
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return invalidInput("type must be income or expense")
	}
	if patch.Category != nil {
		category, err := required("category", *patch.Category)
		if err != nil {
			return err
		}
		patch.Category = &category
	}
	if patch.Date != nil {
		if _, err := checkDate("date", *patch.Date); err != nil {
			return err
		}
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *FinanceService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func (s *FinanceService) MonthlySummary(ctx context.Context, year int) ([]types.MonthlySummary, error) {
	if year < 1900 || year > 9999 {
		return nil, invalidInput("year %d is out of range", year)
	}
	return s.repo.MonthlySummary(ctx, year)
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
