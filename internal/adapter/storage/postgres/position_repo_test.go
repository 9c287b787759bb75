package postgres

import (
	"context"
	"testing"
	"time"

	"invoice-financing-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPosition(poolID, ownerID uuid.UUID) *domain.LiquidityPosition {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.LiquidityPosition{
		ID:          uuid.New(),
		PoolID:      poolID,
		OwnerID:     ownerID,
		Shares:      500_000,
		Status:      domain.PositionStatusActive,
		DepositedAt: now,
		UpdatedAt:   now,
	}
}

func positionColumnNames() []string {
	return []string{"id", "pool_id", "owner_id", "shares", "status", "deposited_at", "updated_at"}
}

func positionRow(p *domain.LiquidityPosition) *pgxmock.Rows {
	return pgxmock.NewRows(positionColumnNames()).AddRow(
		p.ID, p.PoolID, p.OwnerID, p.Shares, p.Status, p.DepositedAt, p.UpdatedAt,
	)
}

func TestPositionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPositionRepo(mock)
	p := newTestPosition(uuid.New(), uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO liquidity_positions").
		WithArgs(p.ID, p.PoolID, p.OwnerID, p.Shares, p.Status, p.DepositedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPositionRepo_GetActiveByOwner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPositionRepo(mock)
	p := newTestPosition(uuid.New(), uuid.New())

	mock.ExpectQuery("SELECT .+ FROM liquidity_positions WHERE pool_id").
		WithArgs(p.PoolID, p.OwnerID, domain.PositionStatusActive).
		WillReturnRows(positionRow(p))

	result, err := repo.GetActiveByOwner(context.Background(), p.PoolID, p.OwnerID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, p.Shares, result.Shares)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPositionRepo_GetActiveByOwner_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPositionRepo(mock)
	poolID, ownerID := uuid.New(), uuid.New()

	mock.ExpectQuery("SELECT .+ FROM liquidity_positions WHERE pool_id").
		WithArgs(poolID, ownerID, domain.PositionStatusActive).
		WillReturnRows(pgxmock.NewRows(positionColumnNames()))

	result, err := repo.GetActiveByOwner(context.Background(), poolID, ownerID)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPositionRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPositionRepo(mock)
	p := newTestPosition(uuid.New(), uuid.New())
	p.Shares = 0
	p.Status = domain.PositionStatusWithdrawn

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE liquidity_positions SET").
		WithArgs(p.Shares, p.Status, p.UpdatedAt, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), tx, p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPositionRepo_ListActive(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPositionRepo(mock)
	poolID := uuid.New()
	p1 := newTestPosition(poolID, uuid.New())
	p2 := newTestPosition(poolID, uuid.New())

	rows := pgxmock.NewRows(positionColumnNames()).
		AddRow(p1.ID, p1.PoolID, p1.OwnerID, p1.Shares, p1.Status, p1.DepositedAt, p1.UpdatedAt).
		AddRow(p2.ID, p2.PoolID, p2.OwnerID, p2.Shares, p2.Status, p2.DepositedAt, p2.UpdatedAt)

	mock.ExpectQuery("SELECT .+ FROM liquidity_positions WHERE pool_id").
		WithArgs(poolID, domain.PositionStatusActive).
		WillReturnRows(rows)

	result, err := repo.ListActive(context.Background(), poolID)
	require.NoError(t, err)
	assert.Len(t, result, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
