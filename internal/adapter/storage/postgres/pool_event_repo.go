package postgres

import (
	"context"
	"fmt"

	"invoice-financing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const poolEventColumns = `id, pool_id, type, amount, shares_delta, invoice_id, position_id, external_tx_ref, created_at`

// PoolEventRepo implements ports.PoolEventRepository. The ledger is
// append-only: there is no update or delete path.
type PoolEventRepo struct {
	pool Pool
}

// NewPoolEventRepo creates a new PoolEventRepo.
func NewPoolEventRepo(pool Pool) *PoolEventRepo {
	return &PoolEventRepo{pool: pool}
}

// Create appends a ledger entry within a transaction.
func (r *PoolEventRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.PoolEvent) error {
	query := `INSERT INTO pool_events (` + poolEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.PoolID, e.Type, e.Amount, e.SharesDelta,
		e.InvoiceID, e.PositionID, e.ExternalTxRef, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pool event: %w", err)
	}
	return nil
}

// ListByInvoice returns the ledger entries tied to one invoice, oldest first.
func (r *PoolEventRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.PoolEvent, error) {
	query := `SELECT ` + poolEventColumns + ` FROM pool_events
		WHERE invoice_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list pool events: %w", err)
	}
	defer rows.Close()

	var events []domain.PoolEvent
	for rows.Next() {
		e := domain.PoolEvent{}
		if err := rows.Scan(
			&e.ID, &e.PoolID, &e.Type, &e.Amount, &e.SharesDelta,
			&e.InvoiceID, &e.PositionID, &e.ExternalTxRef, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pool event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
