package postgres

import (
	"context"
	"errors"
	"fmt"

	"invoice-financing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const positionColumns = `id, pool_id, owner_id, shares, status, deposited_at, updated_at`

// PositionRepo implements ports.PositionRepository.
type PositionRepo struct {
	pool Pool
}

// NewPositionRepo creates a new PositionRepo.
func NewPositionRepo(pool Pool) *PositionRepo {
	return &PositionRepo{pool: pool}
}

func scanPosition(row pgx.Row) (*domain.LiquidityPosition, error) {
	p := &domain.LiquidityPosition{}
	err := row.Scan(
		&p.ID, &p.PoolID, &p.OwnerID, &p.Shares, &p.Status,
		&p.DepositedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new position within a transaction.
func (r *PositionRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.LiquidityPosition) error {
	query := `INSERT INTO liquidity_positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.PoolID, p.OwnerID, p.Shares, p.Status, p.DepositedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetActiveByOwner fetches an owner's ACTIVE position in a pool (non-locking).
func (r *PositionRepo) GetActiveByOwner(ctx context.Context, poolID, ownerID uuid.UUID) (*domain.LiquidityPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM liquidity_positions
		WHERE pool_id = $1 AND owner_id = $2 AND status = $3`

	p, err := scanPosition(r.pool.QueryRow(ctx, query, poolID, ownerID, domain.PositionStatusActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active position: %w", err)
	}
	return p, nil
}

// GetActiveByOwnerForUpdate fetches an owner's ACTIVE position with
// pessimistic locking. This MUST be called within a transaction.
func (r *PositionRepo) GetActiveByOwnerForUpdate(ctx context.Context, tx pgx.Tx, poolID, ownerID uuid.UUID) (*domain.LiquidityPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM liquidity_positions
		WHERE pool_id = $1 AND owner_id = $2 AND status = $3 FOR UPDATE`

	p, err := scanPosition(tx.QueryRow(ctx, query, poolID, ownerID, domain.PositionStatusActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get position for update: %w", err)
	}
	return p, nil
}

// Update persists the mutable state of a position within a transaction.
func (r *PositionRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.LiquidityPosition) error {
	query := `UPDATE liquidity_positions SET shares = $1, status = $2, updated_at = $3 WHERE id = $4`

	tag, err := tx.Exec(ctx, query, p.Shares, p.Status, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("position not found: %s", p.ID)
	}
	return nil
}

// ListActive returns all ACTIVE positions in a pool.
func (r *PositionRepo) ListActive(ctx context.Context, poolID uuid.UUID) ([]domain.LiquidityPosition, error) {
	query := `SELECT ` + positionColumns + ` FROM liquidity_positions
		WHERE pool_id = $1 AND status = $2 ORDER BY deposited_at ASC`

	rows, err := r.pool.Query(ctx, query, poolID, domain.PositionStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.LiquidityPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}
