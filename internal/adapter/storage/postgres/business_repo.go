package postgres

import (
	"context"
	"errors"
	"fmt"

	"invoice-financing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const businessColumns = `id, wallet_address, name, risk_score, invoices_financed, total_financed, created_at, updated_at`

// BusinessRepo implements ports.BusinessRepository.
type BusinessRepo struct {
	pool Pool
}

// NewBusinessRepo creates a new BusinessRepo.
func NewBusinessRepo(pool Pool) *BusinessRepo {
	return &BusinessRepo{pool: pool}
}

func scanBusiness(row pgx.Row) (*domain.Business, error) {
	b := &domain.Business{}
	err := row.Scan(
		&b.ID, &b.WalletAddress, &b.Name, &b.RiskScore,
		&b.InvoicesFinanced, &b.TotalFinanced, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Create inserts a new business.
func (r *BusinessRepo) Create(ctx context.Context, b *domain.Business) error {
	query := `INSERT INTO businesses (` + businessColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		b.ID, b.WalletAddress, b.Name, b.RiskScore,
		b.InvoicesFinanced, b.TotalFinanced, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert business: %w", err)
	}
	return nil
}

// GetByID fetches a business by its UUID (without locking).
func (r *BusinessRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1`

	b, err := scanBusiness(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business by id: %w", err)
	}
	return b, nil
}

// GetByIDForUpdate fetches a business by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *BusinessRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Business, error) {
	query := `SELECT ` + businessColumns + ` FROM businesses WHERE id = $1 FOR UPDATE`

	b, err := scanBusiness(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get business for update: %w", err)
	}
	return b, nil
}

// Update persists the mutable state of a business within a transaction.
func (r *BusinessRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Business) error {
	query := `UPDATE businesses SET
		risk_score = $1, invoices_financed = $2, total_financed = $3, updated_at = $4
		WHERE id = $5`

	tag, err := tx.Exec(ctx, query,
		b.RiskScore, b.InvoicesFinanced, b.TotalFinanced, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update business: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("business not found: %s", b.ID)
	}
	return nil
}
