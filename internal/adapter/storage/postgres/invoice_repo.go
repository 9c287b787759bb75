package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"invoice-financing-engine/internal/core/domain"
	"invoice-financing-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const invoiceColumns = `id, business_id, buyer_name, currency, face_value, issue_date, due_date,
	status, risk_score, assessment_payload, fraud_flags, advance_rate_bps,
	financed_amount, fee_amount, financed_at, repaid_at, finance_tx_ref, repay_tx_ref,
	created_at, updated_at`

// InvoiceRepo implements ports.InvoiceRepository.
type InvoiceRepo struct {
	pool Pool
}

// NewInvoiceRepo creates a new InvoiceRepo.
func NewInvoiceRepo(pool Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	err := row.Scan(
		&inv.ID, &inv.BusinessID, &inv.BuyerName, &inv.Currency, &inv.FaceValue,
		&inv.IssueDate, &inv.DueDate, &inv.Status, &inv.RiskScore,
		&inv.AssessmentPayload, &inv.FraudFlags, &inv.AdvanceRateBps,
		&inv.FinancedAmount, &inv.FeeAmount, &inv.FinancedAt, &inv.RepaidAt,
		&inv.FinanceTxRef, &inv.RepayTxRef, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Create inserts a new invoice.
func (r *InvoiceRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	query := `INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.pool.Exec(ctx, query,
		inv.ID, inv.BusinessID, inv.BuyerName, inv.Currency, inv.FaceValue,
		inv.IssueDate, inv.DueDate, inv.Status, inv.RiskScore,
		inv.AssessmentPayload, inv.FraudFlags, inv.AdvanceRateBps,
		inv.FinancedAmount, inv.FeeAmount, inv.FinancedAt, inv.RepaidAt,
		inv.FinanceTxRef, inv.RepayTxRef, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID fetches an invoice by its UUID (without locking).
func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	inv, err := scanInvoice(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice by id: %w", err)
	}
	return inv, nil
}

// GetByIDForUpdate fetches an invoice by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *InvoiceRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`

	inv, err := scanInvoice(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice for update: %w", err)
	}
	return inv, nil
}

// Update persists the full mutable state of an invoice within a transaction.
func (r *InvoiceRepo) Update(ctx context.Context, tx pgx.Tx, inv *domain.Invoice) error {
	query := `UPDATE invoices SET
		status = $1, risk_score = $2, assessment_payload = $3, fraud_flags = $4,
		advance_rate_bps = $5, financed_amount = $6, fee_amount = $7,
		financed_at = $8, repaid_at = $9, finance_tx_ref = $10, repay_tx_ref = $11,
		updated_at = $12
		WHERE id = $13`

	tag, err := tx.Exec(ctx, query,
		inv.Status, inv.RiskScore, inv.AssessmentPayload, inv.FraudFlags,
		inv.AdvanceRateBps, inv.FinancedAmount, inv.FeeAmount,
		inv.FinancedAt, inv.RepaidAt, inv.FinanceTxRef, inv.RepayTxRef,
		inv.UpdatedAt, inv.ID,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice not found: %s", inv.ID)
	}
	return nil
}

// ListOverdueFinanced returns FINANCED invoices whose due date is before the
// cutoff, oldest first.
func (r *InvoiceRepo) ListOverdueFinanced(ctx context.Context, dueBefore time.Time) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE status = $1 AND due_date < $2 ORDER BY due_date ASC`

	rows, err := r.pool.Query(ctx, query, domain.InvoiceStatusFinanced, dueBefore)
	if err != nil {
		return nil, fmt.Errorf("list overdue invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan overdue invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

// List returns a business's invoices with optional status filter and
// pagination, newest first.
func (r *InvoiceRepo) List(ctx context.Context, params ports.InvoiceListParams) ([]domain.Invoice, int64, error) {
	countQuery := `SELECT COUNT(*) FROM invoices WHERE business_id = $1 AND ($2::text IS NULL OR status = $2)`

	var status *string
	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}

	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, params.BusinessID, status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE business_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, query, params.BusinessID, status, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, rows.Err()
}
