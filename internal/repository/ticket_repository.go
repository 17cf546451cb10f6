package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatorID  *string
	ProjectID  *string
	TeamID     *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ApplyTransition writes status and decision fields only if the stored
	// version still equals expectedVersion, recording entry in the same
	// transaction. On success ticket.Version is advanced.
	ApplyTransition(ctx context.Context, ticket *domain.Ticket, expectedVersion int, entry *domain.TicketHistory) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, type, category, department, priority, due_date,
               project_id, team_id, creator_id, status, rejection_reason, expected_closure_at,
               decided_by, decided_at, created_at, updated_at, modified_by, version`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TicketHistory) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (title, description, type, category, department, priority, due_date,
            project_id, team_id, creator_id, status, modified_by, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1)
        RETURNING id, created_at, updated_at, version`
	if err := tx.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Type,
		ticket.Category,
		ticket.Department,
		ticket.Priority,
		ticket.DueDate,
		ticket.ProjectID,
		ticket.TeamID,
		ticket.CreatorID,
		ticket.Status,
		ticket.ModifiedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt, &ticket.Version); err != nil {
		return err
	}
	if entry != nil {
		entry.TicketID = ticket.ID
		if err := insertHistory(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) ApplyTransition(ctx context.Context, ticket *domain.Ticket, expectedVersion int, entry *domain.TicketHistory) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE tickets SET status=$1, priority=$2, rejection_reason=$3, expected_closure_at=$4,
            decided_by=$5, decided_at=$6, modified_by=$7, updated_at=$8, version=version+1
        WHERE id=$9 AND version=$10
        RETURNING version`
	var newVersion int
	err = tx.QueryRow(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.RejectionReason,
		ticket.ExpectedClosureAt,
		ticket.DecidedBy,
		ticket.DecidedAt,
		ticket.ModifiedBy,
		ticket.UpdatedAt,
		ticket.ID,
		expectedVersion,
	).Scan(&newVersion)
	if err != nil {
		if err == pgx.ErrNoRows {
			var exists bool
			if qerr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); qerr != nil {
				return qerr
			}
			if !exists {
				return pgx.ErrNoRows
			}
			return ErrVersionConflict
		}
		return err
	}
	if entry != nil {
		entry.TicketID = ticket.ID
		if err := insertHistory(ctx, tx, entry); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	ticket.Version = newVersion
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	for _, id := range []*string{filter.CreatorID, filter.ProjectID, filter.TeamID} {
		if id != nil && !validID(*id) {
			return nil, nil
		}
	}
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		clauses = append(clauses, fmt.Sprintf("project_id=$%d", len(args)))
	}
	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var dueDate time.Time
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Type,
		&ticket.Category,
		&ticket.Department,
		&ticket.Priority,
		&dueDate,
		&ticket.ProjectID,
		&ticket.TeamID,
		&ticket.CreatorID,
		&ticket.Status,
		&ticket.RejectionReason,
		&ticket.ExpectedClosureAt,
		&ticket.DecidedBy,
		&ticket.DecidedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ModifiedBy,
		&ticket.Version,
	); err != nil {
		return nil, err
	}
	ticket.DueDate = dueDate.UTC()
	return &ticket, nil
}

// normalizePage applies the default page size used by every listing.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
