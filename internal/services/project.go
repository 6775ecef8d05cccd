package services

import (
	"context"

	"github.com/musicclub/apiserver/types"
)

type ProjectRepository interface {
	List(ctx context.Context) ([]types.Project, error)
	Get(ctx context.Context, id int) (types.Project, error)
	Create(ctx context.Context, p types.Project) (types.Project, error)
	Update(ctx context.Context, p types.Project) error
	Delete(ctx context.Context, id int) error
}

type ProjectService struct {
	repo ProjectRepository
}

func NewProjectService(repo ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

func (s *ProjectService) List(ctx context.Context) ([]types.Project, error) {
	return s.repo.List(ctx)
}

func (s *ProjectService) Get(ctx context.Context, id int) (types.Project, error) {
	return s.repo.Get(ctx, id)
}

func (s *ProjectService) Create(ctx context.Context, p types.Project) (types.Project, error) {
	p, err := validateProject(p)
	if err != nil {
		return types.Project{}, err
	}
	return s.repo.Create(ctx, p)
}

func (s *ProjectService) Update(ctx context.Context, id int, p types.Project) (types.Project, error) {
	p, err := validateProject(p)
	if err != nil {
		return types.Project{}, err
	}
	p.ID = id
	if err := s.repo.Update(ctx, p); err != nil {
		return types.Project{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *ProjectService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

func validateProject(p types.Project) (types.Project, error) {
	var err error
	if p.Name, err = required("name", p.Name); err != nil {
		return p, err
	}
	if p.Budget.IsNegative() {
		return p, invalidInput("budget must not be negative")
	}
	if p.Status == "" {
		p.Status = types.ProjectPending
	}
	if !p.Status.Valid() {
		return p, invalidInput("status must be pending, ongoing or done")
	}
	start, err := checkDate("start_date", p.StartDate)
	if err != nil {
		return p, err
	}
	end, err := checkDate("end_date", p.EndDate)
	if err != nil {
		return p, err
	}
	if end.Before(start) {
		return p, invalidInput("end_date is before start_date")
	}
	p.Description = blankToNil(p.Description)
	return p, nil
}
