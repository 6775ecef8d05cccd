package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/musicclub/apiserver/types"
)

// ProjectRepository handles persistence for club projects.
type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectSelect = `
	SELECT id, name, description, budget,
		to_char(start_date, 'YYYY-MM-DD') AS start_date,
		to_char(end_date, 'YYYY-MM-DD') AS end_date,
		status, created_at, updated_at
	FROM projects`

func (r *ProjectRepository) List(ctx context.Context) ([]types.Project, error) {
	projects := make([]types.Project, 0)
	if err := r.db.SelectContext(ctx, &projects, projectSelect+` ORDER BY start_date DESC, id DESC`); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) Get(ctx context.Context, id int) (types.Project, error) {
	var project types.Project
	if err := r.db.GetContext(ctx, &project, projectSelect+` WHERE id = $1`, id); err != nil {
		return types.Project{}, notFound(err)
	}
	return project, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p types.Project) (types.Project, error) {
	const query = `
		INSERT INTO projects (name, description, budget, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id`
	var id int
	if err := r.db.QueryRowxContext(ctx, query, p.Name, p.Description, p.Budget, p.StartDate, p.EndDate, p.Status, time.Now()).Scan(&id); err != nil {
		return types.Project{}, translate(err)
	}
	return r.Get(ctx, id)
}

func (r *ProjectRepository) Update(ctx context.Context, p types.Project) error {
	const query = `
		UPDATE projects
		SET name = $1, description = $2, budget = $3, start_date = $4, end_date = $5, status = $6, updated_at = $7
		WHERE id = $8`
	result, err := r.db.ExecContext(ctx, query, p.Name, p.Description, p.Budget, p.StartDate, p.EndDate, p.Status, time.Now(), p.ID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
