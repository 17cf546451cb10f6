package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// ProjectRepository manages project persistence.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
}

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository builds the repository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	const query = `
        INSERT INTO projects (name, description, created_by)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		project.Name,
		project.Description,
		project.CreatedBy,
	).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	const query = `
        SELECT id, name, description, created_by, created_at, updated_at
        FROM projects WHERE id=$1`
	var project domain.Project
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.Description,
		&project.CreatedBy,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context) ([]domain.Project, error) {
	const query = `
        SELECT id, name, description, created_by, created_at, updated_at
        FROM projects ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Project
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(&project.ID, &project.Name, &project.Description, &project.CreatedBy, &project.CreatedAt, &project.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, project)
	}
	return result, rows.Err()
}
