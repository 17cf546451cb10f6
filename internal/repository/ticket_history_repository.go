package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// TicketHistoryRepository reads audit entries. Entries are written by
// TicketRepository inside the transaction that produced them.
type TicketHistoryRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func insertHistory(ctx context.Context, tx pgx.Tx, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_history (ticket_id, changed_by_id, changed_role, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		history.TicketID,
		history.ChangedByID,
		history.ChangedRole,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if !validID(ticketID) {
		return nil, nil
	}
	const query = `
        SELECT id, ticket_id, changed_by_id, changed_role, change_type, old_value, new_value, created_at
        FROM ticket_history WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketHistory
	for rows.Next() {
		var history domain.TicketHistory
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.ChangedByID,
			&history.ChangedRole,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
