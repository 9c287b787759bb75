package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"invoice-financing-engine/config"
	"invoice-financing-engine/internal/core/domain"
	"invoice-financing-engine/internal/core/ports"
	"invoice-financing-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// FinancingServiceImpl implements ports.FinancingService. Every mutating
// operation runs inside a single database transaction: the invoice row, the
// pool row and the business row are locked FOR UPDATE so the lifecycle
// transition and the pool-side funds movement commit as one unit.
type FinancingServiceImpl struct {
	invoiceRepo  ports.InvoiceRepository
	businessRepo ports.BusinessRepository
	poolRepo     ports.PoolRepository
	eventRepo    ports.PoolEventRepository
	idempRepo    ports.IdempotencyRepository
	idempCache   ports.IdempotencyCache
	transactor   ports.DBTransactor
	calc         *TermsCalculator
	poolID       uuid.UUID
	cfg          config.FinancingConfig
	log          zerolog.Logger
}

// NewFinancingService creates a new FinancingServiceImpl bound to one pool.
func NewFinancingService(
	invoiceRepo ports.InvoiceRepository,
	businessRepo ports.BusinessRepository,
	poolRepo ports.PoolRepository,
	eventRepo ports.PoolEventRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	poolID uuid.UUID,
	cfg config.FinancingConfig,
	log zerolog.Logger,
) *FinancingServiceImpl {
	return &FinancingServiceImpl{
		invoiceRepo:  invoiceRepo,
		businessRepo: businessRepo,
		poolRepo:     poolRepo,
		eventRepo:    eventRepo,
		idempRepo:    idempRepo,
		idempCache:   idempCache,
		transactor:   transactor,
		calc:         NewTermsCalculator(cfg),
		poolID:       poolID,
		cfg:          cfg,
		log:          log,
	}
}

func financeIdempotencyKey(invoiceID uuid.UUID) string {
	return "finance:" + invoiceID.String()
}

func repayIdempotencyKey(invoiceID uuid.UUID) string {
	return "repay:" + invoiceID.String()
}

// CreateInvoice registers a new PENDING invoice for an existing business.
func (s *FinancingServiceImpl) CreateInvoice(ctx context.Context, req ports.CreateInvoiceRequest) (*domain.Invoice, error) {
	business, err := s.businessRepo.GetByID(ctx, req.BusinessID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch business: %w", err))
	}
	if business == nil {
		return nil, apperror.ErrNotFound("business")
	}

	now := time.Now().UTC()
	invoice, err := domain.NewInvoice(req.BusinessID, req.BuyerName, req.Currency, req.FaceValue, req.IssueDate, req.DueDate, now)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create invoice: %w", err))
	}

	s.log.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("business_id", req.BusinessID.String()).
		Int64("face_value", req.FaceValue).
		Msg("invoice created")

	return invoice, nil
}

// Verify applies an external risk assessment to a PENDING invoice. The
// assessment is structurally validated at the boundary; verification is not
// retryable once decided.
func (s *FinancingServiceImpl) Verify(ctx context.Context, invoiceID uuid.UUID, assessment domain.RiskAssessment) (*domain.Invoice, error) {
	if err := assessment.Validate(); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.invoiceRepo.GetByIDForUpdate(ctx, dbTx, invoiceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}

	if err := invoice.ApplyAssessment(assessment, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Update(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("invoice_id", invoiceID.String()).
		Int("risk_score", assessment.OverallScore).
		Str("status", string(invoice.Status)).
		Msg("invoice verified")

	return invoice, nil
}

// Finance disburses an advance for a VERIFIED invoice. The exposure-cap
// checks read the pool balance under the same row lock that the debit
// mutates, so two concurrent financings cannot both pass against a stale
// balance. A retry of an already-financed invoice returns the recorded
// response from the idempotency layers or an already-processed error.
func (s *FinancingServiceImpl) Finance(ctx context.Context, req ports.FinanceRequest) (*ports.FinancingResult, error) {
	idempKey := financeIdempotencyKey(req.InvoiceID)

	// Layer 1: redis idempotency check
	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalFinancingResult(cached)
	}

	// Layer 2: DB idempotency check
	idempLog, err := s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return unmarshalFinancingResult(idempLog.ResponseJSON)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.invoiceRepo.GetByIDForUpdate(ctx, dbTx, req.InvoiceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}

	// The invoice row lock plus this status check is what makes a
	// same-invoice race resolve to exactly one winner.
	switch invoice.Status {
	case domain.InvoiceStatusVerified:
		// eligible
	case domain.InvoiceStatusFinanced, domain.InvoiceStatusRepaid, domain.InvoiceStatusDefaulted:
		return nil, apperror.ErrAlreadyProcessed("finance", invoice.ID.String())
	default:
		return nil, apperror.ErrInvalidStateTransition("finance", string(invoice.Status))
	}

	if invoice.RiskScore == nil {
		return nil, apperror.ErrRiskScoreMissing()
	}
	if *invoice.RiskScore < s.cfg.MinRiskScore {
		return nil, apperror.ErrRiskScoreBelowMinimum(*invoice.RiskScore, s.cfg.MinRiskScore)
	}

	terms, err := s.calc.ComputeTerms(invoice.FaceValue, *invoice.RiskScore)
	if err != nil {
		return nil, err
	}

	pool, err := s.poolRepo.GetForUpdate(ctx, dbTx, s.poolID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock pool: %w", err))
	}
	if pool == nil {
		return nil, apperror.ErrNotFound("pool")
	}

	advance := terms.AdvanceAmount
	if advance > pool.Balance {
		return nil, apperror.ErrInsufficientPoolFunds(advance, pool.Balance)
	}
	if limit := mulDivFloor(pool.Balance, int64(s.cfg.MaxSingleInvoiceBps), bpsDenominator); advance > limit {
		return nil, apperror.ErrExposureCapExceeded("single-invoice", advance, limit)
	}
	if limit := mulDivFloor(pool.Balance, int64(s.cfg.MaxUtilizationBps), bpsDenominator); advance > limit {
		return nil, apperror.ErrExposureCapExceeded("utilization", advance, limit)
	}

	now := time.Now().UTC()
	if err := invoice.MarkFinanced(terms, req.ExternalTxRef, now); err != nil {
		return nil, err
	}

	business, err := s.businessRepo.GetByIDForUpdate(ctx, dbTx, invoice.BusinessID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock business: %w", err))
	}
	if business == nil {
		return nil, apperror.ErrNotFound("business")
	}
	business.RecordFinancing(advance, now)

	pool.Balance -= advance
	pool.ActiveFinancedTotal += advance
	pool.UpdatedAt = now

	if err := s.invoiceRepo.Update(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}
	if err := s.businessRepo.Update(ctx, dbTx, business); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update business: %w", err))
	}
	if err := s.poolRepo.UpdateTotals(ctx, dbTx, pool); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update pool: %w", err))
	}

	txRef := req.ExternalTxRef
	invoiceID := invoice.ID
	event := &domain.PoolEvent{
		ID:            uuid.New(),
		PoolID:        pool.ID,
		Type:          domain.PoolEventFinanceOut,
		Amount:        advance,
		InvoiceID:     &invoiceID,
		ExternalTxRef: &txRef,
		CreatedAt:     now,
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create pool event: %w", err))
	}

	result := &ports.FinancingResult{
		Invoice:     invoice,
		Terms:       terms,
		PoolBalance: pool.Balance,
	}
	respJSON, err := json.Marshal(result)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if err := s.idempRepo.Create(ctx, dbTx, &ports.IdempotencyLog{
		Key:          idempKey,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-commit: cache in redis (best-effort)
	if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
	}

	s.log.Info().
		Str("invoice_id", invoice.ID.String()).
		Int64("advance_amount", advance).
		Int64("fee_amount", terms.FeeAmount).
		Int("rate_bps", terms.AdvanceRateBps).
		Int64("pool_balance", pool.Balance).
		Msg("invoice financed")

	return result, nil
}

// Repay settles a FINANCED invoice in full and returns the capital plus fee
// to the pool, in the same committed unit as the lifecycle transition.
func (s *FinancingServiceImpl) Repay(ctx context.Context, req ports.RepayRequest) (*domain.Invoice, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount(req.Amount)
	}

	idempKey := repayIdempotencyKey(req.InvoiceID)

	cached, err := s.idempCache.Get(ctx, idempKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalInvoice(cached)
	}

	idempLog, err := s.idempRepo.Get(ctx, idempKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog != nil {
		return unmarshalInvoice(idempLog.ResponseJSON)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.invoiceRepo.GetByIDForUpdate(ctx, dbTx, req.InvoiceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}

	financedAmount := int64(0)
	if invoice.FinancedAmount != nil {
		financedAmount = *invoice.FinancedAmount
	}

	now := time.Now().UTC()
	if err := invoice.MarkRepaid(req.Amount, req.ExternalTxRef, now); err != nil {
		return nil, err
	}

	business, err := s.businessRepo.GetByIDForUpdate(ctx, dbTx, invoice.BusinessID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock business: %w", err))
	}
	if business == nil {
		return nil, apperror.ErrNotFound("business")
	}
	business.RecordRepayment(s.cfg.RepaymentScoreBonus, now)

	pool, err := s.poolRepo.GetForUpdate(ctx, dbTx, s.poolID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock pool: %w", err))
	}
	if pool == nil {
		return nil, apperror.ErrNotFound("pool")
	}

	// The full settlement flows back in: advance plus fee (and any excess)
	// enrich remaining shareholders without minting shares.
	pool.Balance += req.Amount
	pool.ActiveFinancedTotal -= financedAmount
	if pool.ActiveFinancedTotal < 0 {
		pool.ActiveFinancedTotal = 0
	}
	pool.UpdatedAt = now

	if err := s.invoiceRepo.Update(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}
	if err := s.businessRepo.Update(ctx, dbTx, business); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update business: %w", err))
	}
	if err := s.poolRepo.UpdateTotals(ctx, dbTx, pool); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update pool: %w", err))
	}

	txRef := req.ExternalTxRef
	invoiceID := invoice.ID
	event := &domain.PoolEvent{
		ID:            uuid.New(),
		PoolID:        pool.ID,
		Type:          domain.PoolEventRepayIn,
		Amount:        req.Amount,
		InvoiceID:     &invoiceID,
		ExternalTxRef: &txRef,
		CreatedAt:     now,
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create pool event: %w", err))
	}

	respJSON, err := json.Marshal(invoice)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
	}
	if err := s.idempRepo.Create(ctx, dbTx, &ports.IdempotencyLog{
		Key:          idempKey,
		ResponseJSON: respJSON,
		CreatedAt:    now,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
	}

	s.log.Info().
		Str("invoice_id", invoice.ID.String()).
		Int64("amount", req.Amount).
		Int64("pool_balance", pool.Balance).
		Msg("invoice repaid")

	return invoice, nil
}

// Cancel withdraws a PENDING invoice.
func (s *FinancingServiceImpl) Cancel(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.invoiceRepo.GetByIDForUpdate(ctx, dbTx, invoiceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}

	if err := invoice.MarkCancelled(time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Update(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("invoice_id", invoiceID.String()).Msg("invoice cancelled")
	return invoice, nil
}

// MarkDefaulted moves a FINANCED invoice past its grace period to DEFAULTED
// and writes the deployed capital off the pool's active financed total. The
// pool balance is untouched: the loss was realized when the advance left.
func (s *FinancingServiceImpl) MarkDefaulted(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	invoice, err := s.invoiceRepo.GetByIDForUpdate(ctx, dbTx, invoiceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}

	now := time.Now().UTC()
	if invoice.Status == domain.InvoiceStatusFinanced {
		if deadline := invoice.DueDate.Add(s.cfg.GracePeriod()); now.Before(deadline) {
			return nil, apperror.ErrGracePeriodActive(invoice.DueDate.Format(time.RFC3339))
		}
	}
	if err := invoice.MarkDefaulted(now); err != nil {
		return nil, err
	}

	pool, err := s.poolRepo.GetForUpdate(ctx, dbTx, s.poolID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock pool: %w", err))
	}
	if pool == nil {
		return nil, apperror.ErrNotFound("pool")
	}
	if invoice.FinancedAmount != nil {
		pool.ActiveFinancedTotal -= *invoice.FinancedAmount
		if pool.ActiveFinancedTotal < 0 {
			pool.ActiveFinancedTotal = 0
		}
	}
	pool.UpdatedAt = now

	if err := s.invoiceRepo.Update(ctx, dbTx, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update invoice: %w", err))
	}
	if err := s.poolRepo.UpdateTotals(ctx, dbTx, pool); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update pool: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Warn().
		Str("invoice_id", invoiceID.String()).
		Time("due_date", invoice.DueDate).
		Msg("invoice defaulted")

	return invoice, nil
}

// SweepOverdue defaults every FINANCED invoice whose grace period has
// elapsed. Per-invoice failures are logged and the sweep continues; the
// count of defaulted invoices is returned.
func (s *FinancingServiceImpl) SweepOverdue(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.GracePeriod())
	overdue, err := s.invoiceRepo.ListOverdueFinanced(ctx, cutoff)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list overdue invoices: %w", err))
	}

	defaulted := 0
	for _, inv := range overdue {
		if _, err := s.MarkDefaulted(ctx, inv.ID); err != nil {
			s.log.Error().Err(err).Str("invoice_id", inv.ID.String()).Msg("sweep: failed to default invoice")
			continue
		}
		defaulted++
	}

	if defaulted > 0 {
		s.log.Info().Int("defaulted", defaulted).Int("scanned", len(overdue)).Msg("overdue sweep completed")
	}
	return defaulted, nil
}

// GetQuote returns financing terms plus eligibility against the current
// pool balance. Read-only: nothing is locked, reserved or mutated.
func (s *FinancingServiceImpl) GetQuote(ctx context.Context, faceValue int64, riskScore int) (*ports.Quote, error) {
	terms, err := s.calc.ComputeTerms(faceValue, riskScore)
	if err != nil {
		return nil, err
	}

	quote := &ports.Quote{
		Terms:          terms,
		DisplayRatePct: terms.DisplayRatePct(),
	}

	if riskScore < s.cfg.MinRiskScore {
		quote.Reason = apperror.ErrRiskScoreBelowMinimum(riskScore, s.cfg.MinRiskScore).Message
		return quote, nil
	}

	pool, err := s.poolRepo.Get(ctx, s.poolID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch pool: %w", err))
	}
	if pool == nil {
		return nil, apperror.ErrNotFound("pool")
	}

	advance := terms.AdvanceAmount
	switch {
	case advance > pool.Balance:
		quote.Reason = apperror.ErrInsufficientPoolFunds(advance, pool.Balance).Message
	case advance > mulDivFloor(pool.Balance, int64(s.cfg.MaxSingleInvoiceBps), bpsDenominator):
		quote.Reason = apperror.ErrExposureCapExceeded("single-invoice", advance,
			mulDivFloor(pool.Balance, int64(s.cfg.MaxSingleInvoiceBps), bpsDenominator)).Message
	case advance > mulDivFloor(pool.Balance, int64(s.cfg.MaxUtilizationBps), bpsDenominator):
		quote.Reason = apperror.ErrExposureCapExceeded("utilization", advance,
			mulDivFloor(pool.Balance, int64(s.cfg.MaxUtilizationBps), bpsDenominator)).Message
	default:
		quote.IsEligible = true
	}

	return quote, nil
}

// GetInvoice fetches one invoice.
func (s *FinancingServiceImpl) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch invoice: %w", err))
	}
	if invoice == nil {
		return nil, apperror.ErrNotFound("invoice")
	}
	return invoice, nil
}

// ListInvoices returns a business's invoices with pagination.
func (s *FinancingServiceImpl) ListInvoices(ctx context.Context, params ports.InvoiceListParams) ([]domain.Invoice, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	invoices, total, err := s.invoiceRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list invoices: %w", err))
	}
	return invoices, total, nil
}

func unmarshalFinancingResult(data []byte) (*ports.FinancingResult, error) {
	result := &ports.FinancingResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached result: %w", err))
	}
	return result, nil
}

func unmarshalInvoice(data []byte) (*domain.Invoice, error) {
	invoice := &domain.Invoice{}
	if err := json.Unmarshal(data, invoice); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached invoice: %w", err))
	}
	return invoice, nil
}
