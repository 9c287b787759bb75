package ports

import (
	"context"
	"time"

	"invoice-financing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InvoiceRepository defines persistence operations for invoices.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Invoice, error)
	Update(ctx context.Context, tx pgx.Tx, invoice *domain.Invoice) error
	// ListOverdueFinanced returns FINANCED invoices whose due date is before
	// the cutoff; used by the default sweep.
	ListOverdueFinanced(ctx context.Context, dueBefore time.Time) ([]domain.Invoice, error)
	List(ctx context.Context, params InvoiceListParams) ([]domain.Invoice, int64, error)
}

// InvoiceListParams holds filter + pagination for listing invoices.
type InvoiceListParams struct {
	BusinessID uuid.UUID
	Status     *domain.InvoiceStatus
	Page       int
	PageSize   int
}

// BusinessRepository defines persistence operations for businesses.
type BusinessRepository interface {
	Create(ctx context.Context, business *domain.Business) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Business, error)
	Update(ctx context.Context, tx pgx.Tx, business *domain.Business) error
}

// PoolRepository defines persistence operations for the liquidity pool
// ledger row. All mutations go through UpdateTotals under a FOR UPDATE lock.
type PoolRepository interface {
	Create(ctx context.Context, pool *domain.Pool) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Pool, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Pool, error)
	UpdateTotals(ctx context.Context, tx pgx.Tx, pool *domain.Pool) error
}

// PositionRepository defines persistence operations for liquidity positions.
type PositionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, position *domain.LiquidityPosition) error
	GetActiveByOwner(ctx context.Context, poolID, ownerID uuid.UUID) (*domain.LiquidityPosition, error)
	GetActiveByOwnerForUpdate(ctx context.Context, tx pgx.Tx, poolID, ownerID uuid.UUID) (*domain.LiquidityPosition, error)
	Update(ctx context.Context, tx pgx.Tx, position *domain.LiquidityPosition) error
	ListActive(ctx context.Context, poolID uuid.UUID) ([]domain.LiquidityPosition, error)
}

// PoolEventRepository appends immutable pool ledger entries.
type PoolEventRepository interface {
	Create(ctx context.Context, tx pgx.Tx, event *domain.PoolEvent) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.PoolEvent, error)
}

// IdempotencyLog is a durable record of a completed mutating operation,
// keyed by operation + invoice.
type IdempotencyLog struct {
	Key          string
	ResponseJSON []byte
	CreatedAt    time.Time
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup
// behind the redis fast path).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *IdempotencyLog) error
	Get(ctx context.Context, key string) (*IdempotencyLog, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
