package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"invoice-financing-engine/internal/adapter/http/dto"
	"invoice-financing-engine/internal/core/domain"
	"invoice-financing-engine/internal/core/ports"
	"invoice-financing-engine/internal/core/ports/mocks"
	"invoice-financing-engine/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func pendingInvoice(businessID uuid.UUID) *domain.Invoice {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Invoice{
		ID:         uuid.New(),
		BusinessID: businessID,
		BuyerName:  "Acme Corp",
		Currency:   "USD",
		FaceValue:  1_000_000,
		IssueDate:  now.AddDate(0, 0, -5),
		DueDate:    now.AddDate(0, 0, 60),
		Status:     domain.InvoiceStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// --- Financing Handler Tests ---

func TestCreateInvoice_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	businessID := uuid.New()
	invoice := pendingInvoice(businessID)
	mockSvc.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(invoice, nil)

	body, _ := json.Marshal(dto.CreateInvoiceRequest{
		BusinessID: businessID.String(),
		BuyerName:  "Acme Corp",
		Currency:   "USD",
		FaceValue:  1_000_000,
		IssueDate:  invoice.IssueDate,
		DueDate:    invoice.DueDate,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateInvoice(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, invoice.ID.String(), data["id"])
	assert.Equal(t, "PENDING", data["status"])
}

func TestCreateInvoice_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	// Empty body => binding error
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{}")))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateInvoice(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateInvoice_UnknownBusiness(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	mockSvc.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrNotFound("business"))

	businessID := uuid.New()
	inv := pendingInvoice(businessID)
	body, _ := json.Marshal(dto.CreateInvoiceRequest{
		BusinessID: businessID.String(),
		BuyerName:  "Acme Corp",
		Currency:   "USD",
		FaceValue:  1_000_000,
		IssueDate:  inv.IssueDate,
		DueDate:    inv.DueDate,
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.CreateInvoice(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerify_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	invoice := pendingInvoice(uuid.New())
	invoice.Status = domain.InvoiceStatusVerified
	score := 72
	invoice.RiskScore = &score

	mockSvc.EXPECT().Verify(gomock.Any(), invoice.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, a domain.RiskAssessment) (*domain.Invoice, error) {
			assert.Equal(t, 72, a.OverallScore)
			assert.Equal(t, domain.RecommendationApprove, a.Recommendation)
			assert.NotEmpty(t, a.Payload)
			return invoice, nil
		})

	body, _ := json.Marshal(dto.VerifyRequest{
		OverallScore:   72,
		Recommendation: "approve",
	})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: invoice.ID.String()}}

	h.Verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "VERIFIED", data["status"])
	assert.Equal(t, float64(72), data["risk_score"])
}

func TestVerify_InvalidInvoiceID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	h.Verify(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFinance_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	invoice := pendingInvoice(uuid.New())
	invoice.Status = domain.InvoiceStatusFinanced
	terms := domain.FinancingTerms{AdvanceRateBps: 7500, GrossAdvance: 750_000, FeeAmount: 11_250, AdvanceAmount: 738_750}

	mockSvc.EXPECT().Finance(gomock.Any(), ports.FinanceRequest{
		InvoiceID:     invoice.ID,
		ExternalTxRef: "wire-2026-0001",
	}).Return(&ports.FinancingResult{
		Invoice:     invoice,
		Terms:       terms,
		PoolBalance: 99_261_250,
	}, nil)

	body, _ := json.Marshal(dto.FinanceRequest{ExternalTxRef: "wire-2026-0001"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: invoice.ID.String()}}

	h.Finance(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	termsData := data["terms"].(map[string]interface{})
	assert.Equal(t, float64(738_750), termsData["advance_amount"])
	assert.Equal(t, float64(99_261_250), data["pool_balance"])
}

func TestFinance_AlreadyProcessed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	invoiceID := uuid.New()
	mockSvc.EXPECT().Finance(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrAlreadyProcessed("finance", invoiceID.String()))

	body, _ := json.Marshal(dto.FinanceRequest{ExternalTxRef: "wire-2026-0001"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: invoiceID.String()}}

	h.Finance(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFinance_UnsafeTxRef(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	body, _ := json.Marshal(dto.FinanceRequest{ExternalTxRef: "wire 2026 <script>"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

	h.Finance(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRepay_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	invoice := pendingInvoice(uuid.New())
	invoice.Status = domain.InvoiceStatusRepaid

	mockSvc.EXPECT().Repay(gomock.Any(), ports.RepayRequest{
		InvoiceID:     invoice.ID,
		Amount:        750_000,
		ExternalTxRef: "wire-2026-0002",
	}).Return(invoice, nil)

	body, _ := json.Marshal(dto.RepayRequest{Amount: 750_000, ExternalTxRef: "wire-2026-0002"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: invoice.ID.String()}}

	h.Repay(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "REPAID", data["status"])
}

func TestRepay_InsufficientAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	mockSvc.EXPECT().Repay(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientRepayment(500_000, 750_000))

	body, _ := json.Marshal(dto.RepayRequest{Amount: 500_000, ExternalTxRef: "wire-2026-0003"})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: uuid.New().String()}}

	h.Repay(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCancel_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	invoice := pendingInvoice(uuid.New())
	invoice.Status = domain.InvoiceStatusCancelled
	mockSvc.EXPECT().Cancel(gomock.Any(), invoice.ID).Return(invoice, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: invoice.ID.String()}}

	h.Cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetInvoice_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	invoiceID := uuid.New()
	mockSvc.EXPECT().GetInvoice(gomock.Any(), invoiceID).Return(nil, apperror.ErrNotFound("invoice"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "id", Value: invoiceID.String()}}

	h.GetInvoice(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListInvoices_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	businessID := uuid.New()
	mockSvc.EXPECT().ListInvoices(gomock.Any(), ports.InvoiceListParams{
		BusinessID: businessID,
		Page:       1,
		PageSize:   20,
	}).Return([]domain.Invoice{*pendingInvoice(businessID)}, int64(1), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?business_id="+businessID.String(), nil)

	h.ListInvoices(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	assert.Len(t, items, 1)
	assert.Equal(t, float64(1), data["total"])
	assert.Equal(t, float64(1), data["total_pages"])
}

func TestListInvoices_MissingBusinessID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.ListInvoices(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetQuote_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	mockSvc.EXPECT().GetQuote(gomock.Any(), int64(1_000_000), 50).Return(&ports.Quote{
		Terms:          domain.FinancingTerms{AdvanceRateBps: 7500, GrossAdvance: 750_000, FeeAmount: 11_250, AdvanceAmount: 738_750},
		DisplayRatePct: 75,
		IsEligible:     true,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?face_value=1000000&risk_score=50", nil)

	h.GetQuote(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["is_eligible"])
	assert.Equal(t, float64(75), data["display_rate_pct"])
}

func TestGetQuote_InvalidQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockFinancingService(ctrl)
	h := NewFinancingHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?face_value=-5&risk_score=50", nil)

	h.GetQuote(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Liquidity Handler Tests ---

func TestDeposit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLiquidityService(ctrl)
	poolID := uuid.New()
	h := NewLiquidityHandler(mockSvc, poolID)

	ownerID := uuid.New()
	positionID := uuid.New()
	mockSvc.EXPECT().Deposit(gomock.Any(), ports.DepositRequest{
		PoolID:  poolID,
		OwnerID: ownerID,
		Amount:  100_000,
	}).Return(&ports.DepositResult{
		Position: &domain.LiquidityPosition{
			ID:      positionID,
			PoolID:  poolID,
			OwnerID: ownerID,
			Shares:  100_000,
			Status:  domain.PositionStatusActive,
		},
		SharesMinted:  100_000,
		PoolBalance:   100_000,
		PricePerShare: 1.0,
	}, nil)

	body, _ := json.Marshal(dto.DepositRequest{OwnerID: ownerID.String(), Amount: 100_000})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Deposit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, positionID.String(), data["position_id"])
	assert.Equal(t, float64(100_000), data["shares_minted"])
}

func TestDeposit_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLiquidityService(ctrl)
	h := NewLiquidityHandler(mockSvc, uuid.New())

	body, _ := json.Marshal(dto.DepositRequest{OwnerID: uuid.New().String(), Amount: -5})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Deposit(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWithdraw_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLiquidityService(ctrl)
	poolID := uuid.New()
	h := NewLiquidityHandler(mockSvc, poolID)

	ownerID := uuid.New()
	positionID := uuid.New()
	mockSvc.EXPECT().Withdraw(gomock.Any(), ports.WithdrawRequest{
		PoolID:  poolID,
		OwnerID: ownerID,
		Shares:  50_000,
	}).Return(&ports.WithdrawResult{
		Position: &domain.LiquidityPosition{
			ID:      positionID,
			PoolID:  poolID,
			OwnerID: ownerID,
			Shares:  50_000,
			Status:  domain.PositionStatusActive,
		},
		AmountOut:   55_000,
		PoolBalance: 55_000,
	}, nil)

	body, _ := json.Marshal(dto.WithdrawRequest{OwnerID: ownerID.String(), Shares: 50_000})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Withdraw(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(55_000), data["amount_out"])
}

func TestWithdraw_InsufficientShares(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLiquidityService(ctrl)
	h := NewLiquidityHandler(mockSvc, uuid.New())

	mockSvc.EXPECT().Withdraw(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientShares(500_000, 100_000))

	body, _ := json.Marshal(dto.WithdrawRequest{OwnerID: uuid.New().String(), Shares: 500_000})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Withdraw(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetPoolStats_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLiquidityService(ctrl)
	poolID := uuid.New()
	h := NewLiquidityHandler(mockSvc, poolID)

	mockSvc.EXPECT().GetPoolStats(gomock.Any(), poolID).Return(&ports.PoolStats{
		PoolID:              poolID,
		Balance:             50_000_000,
		TotalShares:         45_000_000,
		ActiveFinancedTotal: 25_000_000,
		PricePerShare:       1.111,
		Utilization:         0.5,
		EstimatedAPYPct:     12.5,
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.GetPoolStats(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(12.5), data["estimated_apy_pct"])
	assert.Equal(t, float64(0.5), data["utilization"])
}

func TestGetPosition_InvalidOwnerID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSvc := mocks.NewMockLiquidityService(ctrl)
	h := NewLiquidityHandler(mockSvc, uuid.New())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: "owner_id", Value: "not-a-uuid"}}

	h.GetPosition(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health Check Tests ---

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                  { return s.name }
func (s stubChecker) Check(_ context.Context) error { return s.err }

func TestHealthCheck_AllHealthy(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(stubChecker{name: "postgresql"}, stubChecker{name: "redis"})(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(
		stubChecker{name: "postgresql"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	redisDep := deps["redis"].(map[string]interface{})
	assert.Equal(t, "unhealthy", redisDep["status"])
}
