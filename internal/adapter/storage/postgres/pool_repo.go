package postgres

import (
	"context"
	"errors"
	"fmt"

	"invoice-financing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const poolColumns = `id, total_shares, balance, active_financed_total, created_at, updated_at`

// PoolRepo implements ports.PoolRepository.
type PoolRepo struct {
	pool Pool
}

// NewPoolRepo creates a new PoolRepo.
func NewPoolRepo(pool Pool) *PoolRepo {
	return &PoolRepo{pool: pool}
}

func scanPool(row pgx.Row) (*domain.Pool, error) {
	p := &domain.Pool{}
	err := row.Scan(
		&p.ID, &p.TotalShares, &p.Balance, &p.ActiveFinancedTotal,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new pool ledger row.
func (r *PoolRepo) Create(ctx context.Context, p *domain.Pool) error {
	query := `INSERT INTO liquidity_pools (` + poolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.TotalShares, p.Balance, p.ActiveFinancedTotal, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// Get fetches a pool by ID (without locking).
func (r *PoolRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM liquidity_pools WHERE id = $1`

	p, err := scanPool(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return p, nil
}

// GetForUpdate fetches a pool with pessimistic locking. This MUST be called
// within a transaction: the row lock is what serializes all pool mutations.
func (r *PoolRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Pool, error) {
	query := `SELECT ` + poolColumns + ` FROM liquidity_pools WHERE id = $1 FOR UPDATE`

	p, err := scanPool(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pool for update: %w", err)
	}
	return p, nil
}

// UpdateTotals persists the pool's ledger totals within a transaction.
func (r *PoolRepo) UpdateTotals(ctx context.Context, tx pgx.Tx, p *domain.Pool) error {
	query := `UPDATE liquidity_pools SET
		total_shares = $1, balance = $2, active_financed_total = $3, updated_at = $4
		WHERE id = $5`

	tag, err := tx.Exec(ctx, query,
		p.TotalShares, p.Balance, p.ActiveFinancedTotal, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update pool totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pool not found: %s", p.ID)
	}
	return nil
}
