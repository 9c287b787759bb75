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

const statsCacheTTL = 30 * time.Second

// LiquidityServiceImpl implements ports.LiquidityService. Share math uses
// integer floor division throughout, which always rounds in the pool's
// favor: a depositor can never mint shares worth more than their deposit
// and a withdrawal can never redeem more than the shares are worth.
type LiquidityServiceImpl struct {
	poolRepo     ports.PoolRepository
	positionRepo ports.PositionRepository
	eventRepo    ports.PoolEventRepository
	transactor   ports.DBTransactor
	statsCache   ports.StatsCache
	cfg          config.FinancingConfig
	log          zerolog.Logger
}

// NewLiquidityService creates a new LiquidityServiceImpl.
func NewLiquidityService(
	poolRepo ports.PoolRepository,
	positionRepo ports.PositionRepository,
	eventRepo ports.PoolEventRepository,
	transactor ports.DBTransactor,
	statsCache ports.StatsCache,
	cfg config.FinancingConfig,
	log zerolog.Logger,
) *LiquidityServiceImpl {
	return &LiquidityServiceImpl{
		poolRepo:     poolRepo,
		positionRepo: positionRepo,
		eventRepo:    eventRepo,
		transactor:   transactor,
		statsCache:   statsCache,
		cfg:          cfg,
		log:          log,
	}
}

// Deposit adds liquidity and mints shares at the pool's current price per
// share. The first deposit into an empty pool mints 1:1.
func (s *LiquidityServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*ports.DepositResult, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount(req.Amount)
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	pool, err := s.poolRepo.GetForUpdate(ctx, dbTx, req.PoolID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock pool: %w", err))
	}
	if pool == nil {
		return nil, apperror.ErrNotFound("pool")
	}

	// Shares minted proportional to the share of the post-deposit pool the
	// deposit represents: shares = amount * totalShares / balance. Bootstrap
	// (no shares, or no balance backing existing shares) mints 1:1.
	var minted int64
	if pool.TotalShares == 0 || pool.Balance == 0 {
		minted = req.Amount
	} else {
		minted = mulDivFloor(req.Amount, pool.TotalShares, pool.Balance)
	}
	if minted == 0 {
		return nil, apperror.Validation("deposit too small to mint shares at the current price per share")
	}

	now := time.Now().UTC()
	position, err := s.positionRepo.GetActiveByOwnerForUpdate(ctx, dbTx, req.PoolID, req.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock position: %w", err))
	}
	if position == nil {
		position = &domain.LiquidityPosition{
			ID:          uuid.New(),
			PoolID:      req.PoolID,
			OwnerID:     req.OwnerID,
			Shares:      minted,
			Status:      domain.PositionStatusActive,
			DepositedAt: now,
			UpdatedAt:   now,
		}
		if err := s.positionRepo.Create(ctx, dbTx, position); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create position: %w", err))
		}
	} else {
		position.Shares += minted
		position.UpdatedAt = now
		if err := s.positionRepo.Update(ctx, dbTx, position); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("update position: %w", err))
		}
	}

	pool.Balance += req.Amount
	pool.TotalShares += minted
	pool.UpdatedAt = now
	if err := s.poolRepo.UpdateTotals(ctx, dbTx, pool); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update pool: %w", err))
	}

	event := &domain.PoolEvent{
		ID:          uuid.New(),
		PoolID:      pool.ID,
		Type:        domain.PoolEventDeposit,
		Amount:      req.Amount,
		SharesDelta: minted,
		PositionID:  &position.ID,
		CreatedAt:   now,
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create pool event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.invalidateStats(ctx, pool.ID)

	s.log.Info().
		Str("pool_id", pool.ID.String()).
		Str("owner_id", req.OwnerID.String()).
		Int64("amount", req.Amount).
		Int64("shares_minted", minted).
		Int64("pool_balance", pool.Balance).
		Msg("liquidity deposited")

	return &ports.DepositResult{
		Position:      position,
		SharesMinted:  minted,
		PoolBalance:   pool.Balance,
		PricePerShare: pool.PricePerShare(),
	}, nil
}

// Withdraw burns shares and pays out their proportional slice of the pool
// balance. Capital deployed in active financings is not redeemable, so a
// withdrawal larger than the liquid balance is rejected rather than queued.
func (s *LiquidityServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*ports.WithdrawResult, error) {
	if req.Shares <= 0 {
		return nil, apperror.Validation("shares must be positive")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	pool, err := s.poolRepo.GetForUpdate(ctx, dbTx, req.PoolID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock pool: %w", err))
	}
	if pool == nil {
		return nil, apperror.ErrNotFound("pool")
	}

	position, err := s.positionRepo.GetActiveByOwnerForUpdate(ctx, dbTx, req.PoolID, req.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock position: %w", err))
	}
	if position == nil {
		return nil, apperror.ErrNotFound("position")
	}
	if req.Shares > position.Shares {
		return nil, apperror.ErrInsufficientShares(req.Shares, position.Shares)
	}

	amountOut := mulDivFloor(req.Shares, pool.Balance, pool.TotalShares)
	if amountOut > pool.Balance {
		return nil, apperror.ErrInsufficientPoolFunds(amountOut, pool.Balance)
	}

	now := time.Now().UTC()
	position.Shares -= req.Shares
	position.UpdatedAt = now
	if position.Shares == 0 {
		position.Status = domain.PositionStatusWithdrawn
	}
	if err := s.positionRepo.Update(ctx, dbTx, position); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update position: %w", err))
	}

	pool.Balance -= amountOut
	pool.TotalShares -= req.Shares
	pool.UpdatedAt = now
	if err := s.poolRepo.UpdateTotals(ctx, dbTx, pool); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update pool: %w", err))
	}

	event := &domain.PoolEvent{
		ID:          uuid.New(),
		PoolID:      pool.ID,
		Type:        domain.PoolEventWithdraw,
		Amount:      amountOut,
		SharesDelta: -req.Shares,
		PositionID:  &position.ID,
		CreatedAt:   now,
	}
	if err := s.eventRepo.Create(ctx, dbTx, event); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create pool event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.invalidateStats(ctx, pool.ID)

	s.log.Info().
		Str("pool_id", pool.ID.String()).
		Str("owner_id", req.OwnerID.String()).
		Int64("shares_burned", req.Shares).
		Int64("amount_out", amountOut).
		Int64("pool_balance", pool.Balance).
		Msg("liquidity withdrawn")

	return &ports.WithdrawResult{
		Position:    position,
		AmountOut:   amountOut,
		PoolBalance: pool.Balance,
	}, nil
}

// GetPosition returns a depositor's stake and its current redeemable value.
func (s *LiquidityServiceImpl) GetPosition(ctx context.Context, poolID, ownerID uuid.UUID) (*ports.PositionView, error) {
	position, err := s.positionRepo.GetActiveByOwner(ctx, poolID, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch position: %w", err))
	}
	if position == nil {
		return nil, apperror.ErrNotFound("position")
	}

	pool, err := s.poolRepo.Get(ctx, poolID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch pool: %w", err))
	}
	if pool == nil {
		return nil, apperror.ErrNotFound("pool")
	}

	redeemable := int64(0)
	if pool.TotalShares > 0 {
		redeemable = mulDivFloor(position.Shares, pool.Balance, pool.TotalShares)
	}

	return &ports.PositionView{
		Position:        position,
		RedeemableValue: redeemable,
		PricePerShare:   pool.PricePerShare(),
	}, nil
}

// GetPoolStats returns the dashboard view of a pool, cached for a short TTL.
// Cache failures are logged and ignored: the DB is the fallback.
func (s *LiquidityServiceImpl) GetPoolStats(ctx context.Context, poolID uuid.UUID) (*ports.PoolStats, error) {
	if cached, err := s.statsCache.Get(ctx, poolID.String()); err == nil && cached != nil {
		stats := &ports.PoolStats{}
		if err := json.Unmarshal(cached, stats); err == nil {
			return stats, nil
		}
	}

	pool, err := s.poolRepo.Get(ctx, poolID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("fetch pool: %w", err))
	}
	if pool == nil {
		return nil, apperror.ErrNotFound("pool")
	}

	stats := &ports.PoolStats{
		PoolID:              pool.ID,
		Balance:             pool.Balance,
		TotalShares:         pool.TotalShares,
		ActiveFinancedTotal: pool.ActiveFinancedTotal,
		PricePerShare:       pool.PricePerShare(),
		Utilization:         pool.Utilization(),
		EstimatedAPYPct:     EstimateAPY(pool.Balance, pool.ActiveFinancedTotal, s.cfg.BaseAPYPct, s.cfg.MaxAPYPct),
	}

	if data, err := json.Marshal(stats); err == nil {
		if err := s.statsCache.Set(ctx, poolID.String(), data, statsCacheTTL); err != nil {
			s.log.Warn().Err(err).Str("pool_id", poolID.String()).Msg("failed to cache pool stats")
		}
	}

	return stats, nil
}

// invalidateStats drops the cached stats after a mutation by overwriting
// with an immediate-expiry entry. Best-effort.
func (s *LiquidityServiceImpl) invalidateStats(ctx context.Context, poolID uuid.UUID) {
	if err := s.statsCache.Set(ctx, poolID.String(), nil, time.Millisecond); err != nil {
		s.log.Warn().Err(err).Str("pool_id", poolID.String()).Msg("failed to invalidate pool stats cache")
	}
}
