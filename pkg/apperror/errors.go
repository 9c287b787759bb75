package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Invalid Input (INV) ----

func ErrInvalidFaceValue(faceValue int64) *AppError {
	return New("INV_001", fmt.Sprintf("Face value must be positive, got %d", faceValue), http.StatusBadRequest)
}

func ErrInvalidAmount(amount int64) *AppError {
	return New("INV_001", fmt.Sprintf("Amount must be positive, got %d", amount), http.StatusBadRequest)
}

func ErrInvalidRiskScore(score int) *AppError {
	return New("INV_002", fmt.Sprintf("Risk score must be in [0,100], got %d", score), http.StatusBadRequest)
}

func ErrInvalidDates() *AppError {
	return New("INV_003", "Due date must be after issue date", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("INV_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrMalformedAssessment(reason string) *AppError {
	return New("INV_005", fmt.Sprintf("Malformed risk assessment: %s", reason), http.StatusBadRequest)
}

// ---- Financing Business Rules (FIN) ----

func ErrInvalidStateTransition(operation string, currentStatus string) *AppError {
	return New("FIN_001",
		fmt.Sprintf("Operation %q is not legal from status %s", operation, currentStatus),
		http.StatusConflict)
}

func ErrAlreadyProcessed(operation string, invoiceID string) *AppError {
	return New("FIN_002",
		fmt.Sprintf("Operation %q was already applied to invoice %s", operation, invoiceID),
		http.StatusConflict)
}

func ErrRiskScoreBelowMinimum(score, minimum int) *AppError {
	return New("FIN_003",
		fmt.Sprintf("Risk score %d below minimum %d", score, minimum),
		http.StatusUnprocessableEntity)
}

func ErrRiskScoreMissing() *AppError {
	return New("FIN_003", "Invoice has no risk score; verification required before financing", http.StatusUnprocessableEntity)
}

func ErrExposureCapExceeded(cap string, requested, limit int64) *AppError {
	return New("FIN_004",
		fmt.Sprintf("Advance %d exceeds %s cap of %d", requested, cap, limit),
		http.StatusUnprocessableEntity)
}

func ErrInsufficientRepayment(amount, required int64) *AppError {
	return New("FIN_005",
		fmt.Sprintf("Repayment %d below required settlement %d", amount, required),
		http.StatusUnprocessableEntity)
}

func ErrGracePeriodActive(dueDate string) *AppError {
	return New("FIN_006",
		fmt.Sprintf("Grace period after due date %s has not elapsed", dueDate),
		http.StatusUnprocessableEntity)
}

// ---- Pool Accounting (LIQ) ----

func ErrInsufficientPoolFunds(requested, available int64) *AppError {
	return New("LIQ_001",
		fmt.Sprintf("Pool balance %d cannot cover %d", available, requested),
		http.StatusPaymentRequired)
}

func ErrInsufficientShares(requested, owned int64) *AppError {
	return New("LIQ_002",
		fmt.Sprintf("Position holds %d shares, cannot burn %d", owned, requested),
		http.StatusUnprocessableEntity)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a validation error with a caller-supplied message.
func Validation(message string) *AppError {
	return New("INV_000", message, http.StatusBadRequest)
}
