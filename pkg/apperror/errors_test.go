package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := New("FIN_001", "bad transition", http.StatusConflict)
	assert.Equal(t, "[FIN_001] bad transition", err.Error())

	wrapped := Wrap("SYS_001", "internal", http.StatusInternalServerError, fmt.Errorf("pg down"))
	assert.Equal(t, "[SYS_001] internal: pg down", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := InternalError(inner)
	assert.ErrorIs(t, err, inner)
}

func TestErrorConstructors_CarryDetail(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
		contains   string
	}{
		{"risk below minimum", ErrRiskScoreBelowMinimum(25, 30), "FIN_003", http.StatusUnprocessableEntity, "Risk score 25 below minimum 30"},
		{"exposure cap", ErrExposureCapExceeded("single-invoice", 15000000, 10000000), "FIN_004", http.StatusUnprocessableEntity, "15000000"},
		{"insufficient repayment", ErrInsufficientRepayment(749999, 750000), "FIN_005", http.StatusUnprocessableEntity, "below required settlement 750000"},
		{"insufficient pool funds", ErrInsufficientPoolFunds(500, 100), "LIQ_001", http.StatusPaymentRequired, "balance 100"},
		{"insufficient shares", ErrInsufficientShares(10, 5), "LIQ_002", http.StatusUnprocessableEntity, "holds 5 shares"},
		{"invalid face value", ErrInvalidFaceValue(-1), "INV_001", http.StatusBadRequest, "got -1"},
		{"invalid risk score", ErrInvalidRiskScore(101), "INV_002", http.StatusBadRequest, "got 101"},
		{"not found", ErrNotFound("invoice"), "INV_004", http.StatusNotFound, "invoice not found"},
		{"invalid transition", ErrInvalidStateTransition("finance", "PENDING"), "FIN_001", http.StatusConflict, `"finance" is not legal from status PENDING`},
		{"already processed", ErrAlreadyProcessed("finance", "abc"), "FIN_002", http.StatusConflict, "already applied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
			assert.Contains(t, tt.err.Message, tt.contains)
		})
	}
}
