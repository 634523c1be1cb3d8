package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"vehicle not found", NewVehicleNotFoundError("id: 1"), http.StatusNotFound},
		{"loan not found", NewLoanNotFoundError(""), http.StatusNotFound},
		{"ineligible", NewApplicantNotEligibleError([]string{"credit_score"}), http.StatusBadRequest},
		{"validation", NewValidationError("invalid request", "vin required"), http.StatusBadRequest},
		{"invalid status", NewInvalidLoanStatusError("archived"), http.StatusBadRequest},
		{"upstream", NewVehicleDataFetchFailedError(fmt.Errorf("timeout")), http.StatusBadGateway},
		{"conflict", NewVehicleAlreadyExistsError("VIN1"), http.StatusConflict},
		{"credentials", NewInvalidCredentialsError(), http.StatusUnauthorized},
		{"forbidden", NewForbiddenError("role customer"), http.StatusForbidden},
		{"database", NewQueryExecutionFailedError("find_loan", fmt.Errorf("boom")), http.StatusInternalServerError},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("create loan: %w", NewUserNotFoundError("")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("lifecycle: %w", NewVehicleNotFoundError("id: 7"))

	assert.True(t, stderrors.Is(err, ErrVehicleNotFound))
	assert.False(t, stderrors.Is(err, ErrUserNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUnwrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := NewVehicleDataFetchFailedError(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "dial tcp: refused", err.Details)
	assert.True(t, err.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	t.Run("retryable upstream failure keeps retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewVehicleDataFetchFailedError(fmt.Errorf("503")))

		assert.Equal(t, "VEHICLE_DATA_FETCH_FAILED", bpmn.Code)
		assert.Equal(t, 2, bpmn.Retries)
		assert.Equal(t, "UpstreamFailure", bpmn.ErrorVariables["errorKind"])
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewApplicantNotEligibleError([]string{"min_income", "min_age"}))

		assert.Equal(t, 0, bpmn.Retries)
		assert.Equal(t, "min_income,min_age", bpmn.Details)
	})

	t.Run("non retryable workflow error drops retries", func(t *testing.T) {
		bpmn := ConvertToBPMNError(NewWorkflowEngineError("create instance", false, fmt.Errorf("not found")))
		assert.Equal(t, 0, bpmn.Retries)
	})

	t.Run("variables carry code and message", func(t *testing.T) {
		vars := ConvertToBPMNError(NewLoanNotFoundError("id: 3")).ToErrorVariables()

		assert.Equal(t, "LOAN_NOT_FOUND", vars["errorCode"])
		assert.Equal(t, "loan not found", vars["errorMessage"])
		assert.Equal(t, "LOAN_NOT_FOUND", vars["originalErrorCode"])
	})
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeWorkflowEngineFailed))
	assert.Equal(t, 3, GetRetryCount(ErrCodeDatabaseInsertFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodeSearchIndexFailed))
	assert.Equal(t, 0, GetRetryCount(ErrCodeLoanNotFound))

	assert.True(t, IsRetryableErrorCode(ErrCodeVehicleDataFetchFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeApplicantNotEligible))
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeVehicleDataFetchFailed: "UPSTREAM",
		ErrCodeVehicleNotFound:        "NOT_FOUND",
		ErrCodeApplicantNotEligible:   "ELIGIBILITY",
		ErrCodeQueryExecutionFailed:   "DATABASE",
		ErrCodeSearchIndexFailed:      "SEARCH",
		ErrCodeNotificationSendFailed: "NOTIFICATION",
		ErrCodeWorkflowEngineFailed:   "WORKFLOW",
		ErrCodeInvalidCredentials:     "AUTH",
		ErrCodeInvalidLoanStatus:      "VALIDATION",
		ErrCodeInternal:               "OTHER",
	}
	for code, want := range tests {
		assert.Equal(t, want, GetErrorCategory(code), string(code))
	}
}

func TestWithMetadata(t *testing.T) {
	err := NewForbiddenError("").WithMetadata("role", "customer")

	require.NotNil(t, err.Metadata)
	assert.Equal(t, "customer", err.Metadata["role"])
	assert.Equal(t, KindForbidden, err.Kind())
}
