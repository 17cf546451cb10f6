package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Roles  []domain.Role
	TeamID *string
	Limit  int
	Offset int
}

// UserRepository defines persistence access for accounts. Role, parent and
// team bindings are written once by Create and never updated.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	UpdateCredentials(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, role, parent_id, team_id, status, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, role, parent_id, team_id, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.ParentID,
		user.TeamID,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *userRepository) UpdateCredentials(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, password_hash=$2, status=$3, updated_at=NOW()
        WHERE id=$4`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.PasswordHash,
		user.Status,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	if filter.TeamID != nil && !validID(*filter.TeamID) {
		return nil, nil
	}
	clauses := []string{"1=1"}
	args := []any{}
	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			args = append(args, role)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at ASC LIMIT %d OFFSET %d`,
		userColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *user)
	}
	return result, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.ParentID,
		&user.TeamID,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
