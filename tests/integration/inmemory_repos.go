package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"invoice-financing-engine/internal/core/domain"
	"invoice-financing-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Invoice Repo ---

type inMemoryInvoiceRepo struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]*domain.Invoice
}

func newInMemoryInvoiceRepo() *inMemoryInvoiceRepo {
	return &inMemoryInvoiceRepo{invoices: make(map[uuid.UUID]*domain.Invoice)}
}

func (r *inMemoryInvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *inMemoryInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (r *inMemoryInvoiceRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Invoice, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryInvoiceRepo) Update(ctx context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[inv.ID]; !ok {
		return fmt.Errorf("invoice not found")
	}
	cp := *inv
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *inMemoryInvoiceRepo) ListOverdueFinanced(ctx context.Context, dueBefore time.Time) ([]domain.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Invoice
	for _, inv := range r.invoices {
		if inv.Status == domain.InvoiceStatusFinanced && inv.DueDate.Before(dueBefore) {
			result = append(result, *inv)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DueDate.Before(result[j].DueDate) })
	return result, nil
}

func (r *inMemoryInvoiceRepo) List(ctx context.Context, params ports.InvoiceListParams) ([]domain.Invoice, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Invoice
	for _, inv := range r.invoices {
		if inv.BusinessID != params.BusinessID {
			continue
		}
		if params.Status != nil && inv.Status != *params.Status {
			continue
		}
		result = append(result, *inv)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	total := int64(len(result))

	// Simple pagination
	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Invoice{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Business Repo ---

type inMemoryBusinessRepo struct {
	mu         sync.RWMutex
	businesses map[uuid.UUID]*domain.Business
}

func newInMemoryBusinessRepo() *inMemoryBusinessRepo {
	return &inMemoryBusinessRepo{businesses: make(map[uuid.UUID]*domain.Business)}
}

func (r *inMemoryBusinessRepo) Create(ctx context.Context, b *domain.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.businesses[b.ID] = &cp
	return nil
}

func (r *inMemoryBusinessRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.businesses[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *inMemoryBusinessRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Business, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryBusinessRepo) Update(ctx context.Context, tx pgx.Tx, b *domain.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.businesses[b.ID]; !ok {
		return fmt.Errorf("business not found")
	}
	cp := *b
	r.businesses[b.ID] = &cp
	return nil
}

// --- In-Memory Pool Repo ---

type inMemoryPoolRepo struct {
	mu    sync.RWMutex
	pools map[uuid.UUID]*domain.Pool
}

func newInMemoryPoolRepo() *inMemoryPoolRepo {
	return &inMemoryPoolRepo{pools: make(map[uuid.UUID]*domain.Pool)}
}

func (r *inMemoryPoolRepo) Create(ctx context.Context, p *domain.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.pools[p.ID] = &cp
	return nil
}

func (r *inMemoryPoolRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *inMemoryPoolRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Pool, error) {
	return r.Get(ctx, id)
}

func (r *inMemoryPoolRepo) UpdateTotals(ctx context.Context, tx pgx.Tx, p *domain.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[p.ID]; !ok {
		return fmt.Errorf("pool not found")
	}
	cp := *p
	r.pools[p.ID] = &cp
	return nil
}

// --- In-Memory Position Repo ---

type inMemoryPositionRepo struct {
	mu        sync.RWMutex
	positions map[uuid.UUID]*domain.LiquidityPosition
}

func newInMemoryPositionRepo() *inMemoryPositionRepo {
	return &inMemoryPositionRepo{positions: make(map[uuid.UUID]*domain.LiquidityPosition)}
}

func (r *inMemoryPositionRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.LiquidityPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.positions[p.ID] = &cp
	return nil
}

func (r *inMemoryPositionRepo) GetActiveByOwner(ctx context.Context, poolID, ownerID uuid.UUID) (*domain.LiquidityPosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.positions {
		if p.PoolID == poolID && p.OwnerID == ownerID && p.Status == domain.PositionStatusActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryPositionRepo) GetActiveByOwnerForUpdate(ctx context.Context, tx pgx.Tx, poolID, ownerID uuid.UUID) (*domain.LiquidityPosition, error) {
	return r.GetActiveByOwner(ctx, poolID, ownerID)
}

func (r *inMemoryPositionRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.LiquidityPosition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.positions[p.ID]; !ok {
		return fmt.Errorf("position not found")
	}
	cp := *p
	r.positions[p.ID] = &cp
	return nil
}

func (r *inMemoryPositionRepo) ListActive(ctx context.Context, poolID uuid.UUID) ([]domain.LiquidityPosition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.LiquidityPosition
	for _, p := range r.positions {
		if p.PoolID == poolID && p.Status == domain.PositionStatusActive {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DepositedAt.Before(result[j].DepositedAt) })
	return result, nil
}

// --- In-Memory Pool Event Repo ---

type inMemoryPoolEventRepo struct {
	mu     sync.RWMutex
	events []domain.PoolEvent
}

func newInMemoryPoolEventRepo() *inMemoryPoolEventRepo {
	return &inMemoryPoolEventRepo{}
}

func (r *inMemoryPoolEventRepo) Create(ctx context.Context, tx pgx.Tx, event *domain.PoolEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *inMemoryPoolEventRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.PoolEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.PoolEvent
	for _, e := range r.events {
		if e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			result = append(result, e)
		}
	}
	return result, nil
}

// --- In-Memory Idempotency Repo ---

type inMemoryIdempotencyRepo struct {
	mu   sync.RWMutex
	logs map[string]*ports.IdempotencyLog
}

func newInMemoryIdempotencyRepo() *inMemoryIdempotencyRepo {
	return &inMemoryIdempotencyRepo{logs: make(map[string]*ports.IdempotencyLog)}
}

func (r *inMemoryIdempotencyRepo) Create(ctx context.Context, tx pgx.Tx, log *ports.IdempotencyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs[log.Key] = log
	return nil
}

func (r *inMemoryIdempotencyRepo) Get(ctx context.Context, key string) (*ports.IdempotencyLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[key]
	if !ok {
		return nil, nil
	}
	return l, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions with a mutex, standing in for
// the row-level locks the real store takes. Concurrent mutations therefore
// observe committed state, never a half-applied one.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &serialTx{unlock: t.mu.Unlock}, nil
}

// serialTx releases the transactor lock exactly once, whether the caller
// commits, rolls back, or both (the deferred-rollback pattern).
type serialTx struct {
	once   sync.Once
	unlock func()
}

func (t *serialTx) Commit(ctx context.Context) error {
	t.once.Do(t.unlock)
	return nil
}

func (t *serialTx) Rollback(ctx context.Context) error {
	t.once.Do(t.unlock)
	return nil
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }
