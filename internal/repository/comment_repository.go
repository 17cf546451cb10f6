package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// CommentRepository appends and reads ticket comments. Comments are never
// updated or deleted.
type CommentRepository interface {
	Append(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Append(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_id, author_role, content, is_internal)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.AuthorRole,
		comment.Content,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	if !validID(ticketID) {
		return nil, nil
	}
	const query = `
        SELECT id, ticket_id, author_id, author_role, content, is_internal, created_at
        FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(
			&c.ID,
			&c.TicketID,
			&c.AuthorID,
			&c.AuthorRole,
			&c.Content,
			&c.IsInternal,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
