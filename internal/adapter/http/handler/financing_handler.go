package handler

import (
	"encoding/json"

	"invoice-financing-engine/internal/adapter/http/dto"
	"invoice-financing-engine/internal/core/domain"
	"invoice-financing-engine/internal/core/ports"
	"invoice-financing-engine/pkg/apperror"
	"invoice-financing-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FinancingHandler handles invoice lifecycle endpoints.
type FinancingHandler struct {
	financingSvc ports.FinancingService
}

// NewFinancingHandler creates a new FinancingHandler.
func NewFinancingHandler(financingSvc ports.FinancingService) *FinancingHandler {
	return &FinancingHandler{financingSvc: financingSvc}
}

func parseInvoiceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid invoice id"))
		return uuid.Nil, false
	}
	return id, true
}

// CreateInvoice handles POST /api/v1/invoices.
func (h *FinancingHandler) CreateInvoice(c *gin.Context) {
	var req dto.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid business id"))
		return
	}

	invoice, err := h.financingSvc.CreateInvoice(c.Request.Context(), ports.CreateInvoiceRequest{
		BusinessID: businessID,
		BuyerName:  req.BuyerName,
		Currency:   req.Currency,
		FaceValue:  req.FaceValue,
		IssueDate:  req.IssueDate,
		DueDate:    req.DueDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromInvoice(invoice))
}

// Verify handles POST /api/v1/invoices/:id/verify.
func (h *FinancingHandler) Verify(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payload := req.Payload
	if payload == nil {
		// Keep the raw request body as provenance when no explicit payload
		// was supplied.
		raw, _ := json.Marshal(req)
		payload = raw
	}

	invoice, err := h.financingSvc.Verify(c.Request.Context(), id, domain.RiskAssessment{
		OverallScore:   req.OverallScore,
		Recommendation: domain.Recommendation(req.Recommendation),
		FraudFlags:     req.FraudFlags,
		Payload:        payload,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromInvoice(invoice))
}

// Finance handles POST /api/v1/invoices/:id/finance.
func (h *FinancingHandler) Finance(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	var req dto.FinanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.financingSvc.Finance(c.Request.Context(), ports.FinanceRequest{
		InvoiceID:     id,
		ExternalTxRef: req.ExternalTxRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FinancingResponse{
		Invoice:     dto.FromInvoice(result.Invoice),
		Terms:       dto.FromTerms(result.Terms),
		PoolBalance: result.PoolBalance,
	})
}

// Repay handles POST /api/v1/invoices/:id/repay.
func (h *FinancingHandler) Repay(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	var req dto.RepayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	invoice, err := h.financingSvc.Repay(c.Request.Context(), ports.RepayRequest{
		InvoiceID:     id,
		Amount:        req.Amount,
		ExternalTxRef: req.ExternalTxRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromInvoice(invoice))
}

// Cancel handles POST /api/v1/invoices/:id/cancel.
func (h *FinancingHandler) Cancel(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.financingSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromInvoice(invoice))
}

// GetInvoice handles GET /api/v1/invoices/:id.
func (h *FinancingHandler) GetInvoice(c *gin.Context) {
	id, ok := parseInvoiceID(c)
	if !ok {
		return
	}

	invoice, err := h.financingSvc.GetInvoice(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromInvoice(invoice))
}

// ListInvoices handles GET /api/v1/invoices?business_id=&status=&page=&page_size=.
func (h *FinancingHandler) ListInvoices(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		response.Error(c, apperror.Validation("business_id query parameter is required"))
		return
	}

	params := ports.InvoiceListParams{BusinessID: businessID}
	if s := c.Query("status"); s != "" {
		status := domain.InvoiceStatus(s)
		params.Status = &status
	}
	params.Page = queryInt(c, "page", 1)
	params.PageSize = queryInt(c, "page_size", 20)

	invoices, total, err := h.financingSvc.ListInvoices(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, dto.FromInvoice(&invoices[i]))
	}

	totalPages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	response.OK(c, dto.InvoiceListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	})
}

// GetQuote handles GET /api/v1/quotes?face_value=&risk_score=.
func (h *FinancingHandler) GetQuote(c *gin.Context) {
	var q dto.QuoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	quote, err := h.financingSvc.GetQuote(c.Request.Context(), q.FaceValue, q.RiskScore)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.QuoteResponse{
		Terms:          dto.FromTerms(quote.Terms),
		DisplayRatePct: quote.DisplayRatePct,
		IsEligible:     quote.IsEligible,
		Reason:         quote.Reason,
	})
}
