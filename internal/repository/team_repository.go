package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// TeamRepository manages persistence for teams.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context, projectID *string) ([]domain.Team, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (project_id, name, description, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		team.ProjectID,
		team.Name,
		team.Description,
		team.CreatedBy,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	const query = `
        SELECT id, project_id, name, description, created_by, created_at, updated_at
        FROM teams WHERE id=$1`
	var team domain.Team
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&team.ID,
		&team.ProjectID,
		&team.Name,
		&team.Description,
		&team.CreatedBy,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context, projectID *string) ([]domain.Team, error) {
	if projectID != nil && !validID(*projectID) {
		return nil, nil
	}
	query := `
        SELECT id, project_id, name, description, created_by, created_at, updated_at
        FROM teams`
	args := []any{}
	if projectID != nil {
		query += ` WHERE project_id=$1`
		args = append(args, *projectID)
	}
	query += ` ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.ProjectID, &team.Name, &team.Description, &team.CreatedBy, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}
