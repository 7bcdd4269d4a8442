package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Access error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Posting rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeUnbalancedEntry is used when entry debits and credits differ
	ErrCodeUnbalancedEntry = "ERR_UNBALANCED_ENTRY"
	// ErrCodeEmptyEntry is used when an entry carries no lines
	ErrCodeEmptyEntry = "ERR_EMPTY_ENTRY"
	// ErrCodePeriodClosed is used when posting into a closed or locked period
	ErrCodePeriodClosed = "ERR_PERIOD_CLOSED"
	// ErrCodeNonLeafPosting is used when posting to a summary account
	ErrCodeNonLeafPosting = "ERR_NON_LEAF_POSTING"
	// ErrCodeInactiveAccount is used when posting to a deactivated account
	ErrCodeInactiveAccount = "ERR_INACTIVE_ACCOUNT"
	// ErrCodeCurrencyMismatch is used when amounts in mixed currencies meet
	ErrCodeCurrencyMismatch = "ERR_CURRENCY_MISMATCH"
	// ErrCodeMissingExchangeRate is used when no rate covers a conversion
	ErrCodeMissingExchangeRate = "ERR_MISSING_EXCHANGE_RATE"
	// ErrCodeAlreadyReversed is used when reversing an entry a second time
	ErrCodeAlreadyReversed = "ERR_ALREADY_REVERSED"
	// ErrCodeBudgetExceeded is used when a posting would overrun a hard budget
	ErrCodeBudgetExceeded = "ERR_BUDGET_EXCEEDED"
	// ErrCodeNothingToClose is used when a period close finds no balances
	ErrCodeNothingToClose = "ERR_NOTHING_TO_CLOSE"
	// ErrCodeNothingToAdjust is used when a revaluation finds no exposure
	ErrCodeNothingToAdjust = "ERR_NOTHING_TO_ADJUST"
)

// Reconciliation error codes
const (
	// ErrCodeReconciliationOpen is used when another run is already open
	ErrCodeReconciliationOpen = "ERR_RECONCILIATION_OPEN"
	// ErrCodeReconciliationCompleted is used when mutating a completed run
	ErrCodeReconciliationCompleted = "ERR_RECONCILIATION_COMPLETED"
	// ErrCodeReconciliationIncomplete is used when completing with open items
	ErrCodeReconciliationIncomplete = "ERR_RECONCILIATION_INCOMPLETE"
	// ErrCodeReconciliationUnbalanced is used when balances do not reconcile
	ErrCodeReconciliationUnbalanced = "ERR_RECONCILIATION_UNBALANCED"
	// ErrCodeStatementImportTimeout is used when the statement fetch times out
	ErrCodeStatementImportTimeout = "ERR_STATEMENT_IMPORT_TIMEOUT"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeTooManyRequests is an alias for rate limiting
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Access errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Posting rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeUnbalancedEntry:     http.StatusUnprocessableEntity,
	ErrCodeEmptyEntry:          http.StatusUnprocessableEntity,
	ErrCodePeriodClosed:        http.StatusUnprocessableEntity,
	ErrCodeNonLeafPosting:      http.StatusUnprocessableEntity,
	ErrCodeInactiveAccount:     http.StatusUnprocessableEntity,
	ErrCodeCurrencyMismatch:    http.StatusUnprocessableEntity,
	ErrCodeMissingExchangeRate: http.StatusUnprocessableEntity,
	ErrCodeAlreadyReversed:     http.StatusUnprocessableEntity,
	ErrCodeBudgetExceeded:      http.StatusUnprocessableEntity,
	ErrCodeNothingToClose:      http.StatusUnprocessableEntity,
	ErrCodeNothingToAdjust:     http.StatusUnprocessableEntity,

	// Reconciliation errors
	ErrCodeReconciliationOpen:       http.StatusConflict,
	ErrCodeReconciliationCompleted:  http.StatusUnprocessableEntity,
	ErrCodeReconciliationIncomplete: http.StatusUnprocessableEntity,
	ErrCodeReconciliationUnbalanced: http.StatusUnprocessableEntity,
	ErrCodeStatementImportTimeout:   http.StatusGatewayTimeout,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the standardized codes
// carried on the wire. Domain code families that share an HTTP semantics
// collapse into one wire code; the response message keeps the detail.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ACCOUNT_NOT_FOUND":    ErrCodeNotFound,
	"PERIOD_NOT_FOUND":     ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"CONSISTENCY_ERROR":    ErrCodeInternal,

	"INVALID_STATE": ErrCodeInvalidState,

	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_TENANT":        ErrCodeInvalidInput,
	"INVALID_ACCOUNT":       ErrCodeInvalidInput,
	"INVALID_ACCOUNT_CODE":  ErrCodeInvalidInput,
	"INVALID_ACCOUNT_NAME":  ErrCodeInvalidInput,
	"INVALID_ACCOUNT_TYPE":  ErrCodeInvalidInput,
	"INVALID_PARENT":        ErrCodeInvalidInput,
	"INVALID_CURRENCY":      ErrCodeInvalidInput,
	"INVALID_AMOUNT":        ErrCodeInvalidInput,
	"INVALID_DIRECTION":     ErrCodeInvalidInput,
	"INVALID_RATE":          ErrCodeInvalidInput,
	"INVALID_ENTRY_NUMBER":  ErrCodeInvalidInput,
	"INVALID_ENTRY_DATE":    ErrCodeInvalidInput,
	"INVALID_SOURCE_TYPE":   ErrCodeInvalidInput,
	"INVALID_FISCAL_YEAR":   ErrCodeInvalidInput,
	"INVALID_PERIOD_NAME":   ErrCodeInvalidInput,
	"INVALID_PERIOD_NUMBER": ErrCodeInvalidInput,
	"INVALID_PERIOD_TYPE":   ErrCodeInvalidInput,
	"INVALID_PERIOD_RANGE":  ErrCodeInvalidInput,

	"UNBALANCED_ENTRY":      ErrCodeUnbalancedEntry,
	"EMPTY_ENTRY":           ErrCodeEmptyEntry,
	"PERIOD_CLOSED":         ErrCodePeriodClosed,
	"NON_LEAF_POSTING":      ErrCodeNonLeafPosting,
	"INACTIVE_ACCOUNT":      ErrCodeInactiveAccount,
	"CURRENCY_MISMATCH":     ErrCodeCurrencyMismatch,
	"MISSING_EXCHANGE_RATE": ErrCodeMissingExchangeRate,
	"ALREADY_REVERSED":      ErrCodeAlreadyReversed,
	"BUDGET_EXCEEDED":       ErrCodeBudgetExceeded,
	"NOTHING_TO_CLOSE":      ErrCodeNothingToClose,
	"NOTHING_TO_ADJUST":     ErrCodeNothingToAdjust,

	"RECONCILIATION_OPEN":       ErrCodeReconciliationOpen,
	"RECONCILIATION_COMPLETED":  ErrCodeReconciliationCompleted,
	"RECONCILIATION_INCOMPLETE": ErrCodeReconciliationIncomplete,
	"RECONCILIATION_UNBALANCED": ErrCodeReconciliationUnbalanced,
	"STATEMENT_IMPORT_TIMEOUT":  ErrCodeStatementImportTimeout,

	"VALIDATION_ERROR": ErrCodeValidation,
	"BAD_REQUEST":      ErrCodeBadRequest,
	"INTERNAL_ERROR":   ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
