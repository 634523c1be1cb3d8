// Package errors provides the standardized error model shared by the HTTP API
// and the Zeebe job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeVehicleNotFound ErrorCode = "VEHICLE_NOT_FOUND"
	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrCodeLoanNotFound    ErrorCode = "LOAN_NOT_FOUND"

	ErrCodeApplicantNotEligible ErrorCode = "APPLICANT_NOT_ELIGIBLE"

	ErrCodeVehicleDataFetchFailed ErrorCode = "VEHICLE_DATA_FETCH_FAILED"

	ErrCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidLoanStatus       ErrorCode = "INVALID_LOAN_STATUS"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"

	ErrCodeVehicleAlreadyExists ErrorCode = "VEHICLE_ALREADY_EXISTS"
	ErrCodeUserAlreadyExists    ErrorCode = "USER_ALREADY_EXISTS"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeSearchIndexFailed      ErrorCode = "SEARCH_INDEX_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWorkflowEngineFailed   ErrorCode = "WORKFLOW_ENGINE_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Kind groups error codes into the categories callers branch on.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindIneligible
	KindUpstreamFailure
	KindValidationFailure
	KindConflict
	KindUnauthorized
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindIneligible:
		return "Ineligible"
	case KindUpstreamFailure:
		return "UpstreamFailure"
	case KindValidationFailure:
		return "ValidationFailure"
	case KindConflict:
		return "Conflict"
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	}
	return "Internal"
}

var codeKinds = map[ErrorCode]Kind{
	ErrCodeVehicleNotFound:         KindNotFound,
	ErrCodeUserNotFound:            KindNotFound,
	ErrCodeLoanNotFound:            KindNotFound,
	ErrCodeApplicantNotEligible:    KindIneligible,
	ErrCodeVehicleDataFetchFailed:  KindUpstreamFailure,
	ErrCodeValidationFailed:        KindValidationFailure,
	ErrCodeInvalidLoanStatus:       KindValidationFailure,
	ErrCodeInvalidStatusTransition: KindValidationFailure,
	ErrCodeVehicleAlreadyExists:    KindConflict,
	ErrCodeUserAlreadyExists:       KindConflict,
	ErrCodeInvalidCredentials:      KindUnauthorized,
	ErrCodeUnauthorized:            KindUnauthorized,
	ErrCodeForbidden:               KindForbidden,
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so the package
// sentinels work with errors.Is regardless of message or details.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Kind returns the category of the error code.
func (e *StandardError) Kind() Kind {
	if k, ok := codeKinds[e.Code]; ok {
		return k
	}
	return KindInternal
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrVehicleNotFound         = &StandardError{Code: ErrCodeVehicleNotFound}
	ErrUserNotFound            = &StandardError{Code: ErrCodeUserNotFound}
	ErrLoanNotFound            = &StandardError{Code: ErrCodeLoanNotFound}
	ErrApplicantNotEligible    = &StandardError{Code: ErrCodeApplicantNotEligible}
	ErrVehicleDataFetchFailed  = &StandardError{Code: ErrCodeVehicleDataFetchFailed}
	ErrValidationFailed        = &StandardError{Code: ErrCodeValidationFailed}
	ErrInvalidLoanStatus       = &StandardError{Code: ErrCodeInvalidLoanStatus}
	ErrInvalidStatusTransition = &StandardError{Code: ErrCodeInvalidStatusTransition}
	ErrVehicleAlreadyExists    = &StandardError{Code: ErrCodeVehicleAlreadyExists}
	ErrUserAlreadyExists       = &StandardError{Code: ErrCodeUserAlreadyExists}
	ErrInvalidCredentials      = &StandardError{Code: ErrCodeInvalidCredentials}
	ErrUnauthorized            = &StandardError{Code: ErrCodeUnauthorized}
	ErrForbidden               = &StandardError{Code: ErrCodeForbidden}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewVehicleNotFoundError(details string) *StandardError {
	return newError(ErrCodeVehicleNotFound, "vehicle not found", details, false)
}

func NewUserNotFoundError(details string) *StandardError {
	return newError(ErrCodeUserNotFound, "user not found", details, false)
}

func NewLoanNotFoundError(details string) *StandardError {
	return newError(ErrCodeLoanNotFound, "loan not found", details, false)
}

// NewApplicantNotEligibleError carries the failed criteria names as details.
func NewApplicantNotEligibleError(failed []string) *StandardError {
	return newError(ErrCodeApplicantNotEligible, "applicant not eligible", strings.Join(failed, ","), false)
}

// NewVehicleDataFetchFailedError wraps a lookup failure. It is retryable
// from the workflow engine's point of view; the estimator itself never retries.
func NewVehicleDataFetchFailedError(err error) *StandardError {
	e := newError(ErrCodeVehicleDataFetchFailed, "vehicle data fetch failed", errDetails(err), true)
	e.cause = err
	return e
}

func NewValidationError(message, details string) *StandardError {
	return newError(ErrCodeValidationFailed, message, details, false)
}

func NewInvalidLoanStatusError(status string) *StandardError {
	return newError(ErrCodeInvalidLoanStatus, "invalid loan status", fmt.Sprintf("status: %s", status), false)
}

func NewInvalidStatusTransitionError(from, to string) *StandardError {
	return newError(ErrCodeInvalidStatusTransition, "loan status transition not allowed",
		fmt.Sprintf("from: %s, to: %s", from, to), false)
}

func NewVehicleAlreadyExistsError(vin string) *StandardError {
	return newError(ErrCodeVehicleAlreadyExists, "vehicle already exists", fmt.Sprintf("vin: %s", vin), false)
}

func NewUserAlreadyExistsError(username string) *StandardError {
	return newError(ErrCodeUserAlreadyExists, "user already exists", fmt.Sprintf("username: %s", username), false)
}

func NewInvalidCredentialsError() *StandardError {
	return newError(ErrCodeInvalidCredentials, "invalid credentials", "", false)
}

func NewUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeUnauthorized, "unauthorized", details, false)
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "forbidden", details, false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	e := newError(ErrCodeDatabaseConnectionFailed, "database connection error", errDetails(err), true)
	e.cause = err
	return e
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	e := newError(ErrCodeQueryExecutionFailed, "database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, errDetails(err)), true)
	e.cause = err
	return e
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	e := newError(ErrCodeDatabaseInsertFailed, "database insert operation failed", errDetails(err), true)
	e.cause = err
	return e
}

func NewSearchIndexFailedError(index string, err error) *StandardError {
	e := newError(ErrCodeSearchIndexFailed, "search indexing failed",
		fmt.Sprintf("index: %s, error: %s", index, errDetails(err)), true)
	e.cause = err
	return e
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, "notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errDetails(err)), true)
	e.cause = err
	return e
}

// NewWorkflowEngineError wraps a failed Zeebe command.
func NewWorkflowEngineError(operation string, retryable bool, err error) *StandardError {
	e := newError(ErrCodeWorkflowEngineFailed, "workflow engine request failed",
		fmt.Sprintf("operation: %s, error: %s", operation, errDetails(err)), retryable)
	e.cause = err
	return e
}

func NewInternalError(err error) *StandardError {
	e := newError(ErrCodeInternal, "unexpected error", errDetails(err), false)
	e.cause = err
	return e
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion
// ==========================

// AsStandardError extracts the first StandardError in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, KindInternal for anything unrecognized.
func KindOf(err error) Kind {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Kind()
	}
	return KindInternal
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindIneligible, KindValidationFailure:
		return http.StatusBadRequest
	case KindUpstreamFailure:
		return http.StatusBadGateway
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeWorkflowEngineFailed:
		return 3

	case ErrCodeVehicleDataFetchFailed,
		ErrCodeSearchIndexFailed:
		return 2

	default:
		return 0 // business errors are thrown, not retried
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
// BPMN error codes are the internal codes.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"errorKind":         stdErr.Kind().String(),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VEHICLE_DATA"):
		return "UPSTREAM"
	case strings.HasSuffix(codeStr, "NOT_FOUND"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "ELIGIBLE"):
		return "ELIGIBILITY"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "CREDENTIALS") || strings.Contains(codeStr, "AUTHORIZED") || strings.Contains(codeStr, "FORBIDDEN"):
		return "AUTH"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
