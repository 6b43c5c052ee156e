package dto

import "net/http"

// Error codes produced by the HTTP layer itself. Domain errors keep the code
// of their shared.DomainError.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Input errors
	"INVALID_INPUT":          http.StatusBadRequest,
	"INVALID_EMAIL":          http.StatusBadRequest,
	"INVALID_NAME":           http.StatusBadRequest,
	"INVALID_ROLE":           http.StatusBadRequest,
	"INVALID_COMPANY_NAME":   http.StatusBadRequest,
	"INVALID_WEBSITE":        http.StatusBadRequest,
	"INVALID_DESCRIPTION":    http.StatusBadRequest,
	"INVALID_ADDRESS":        http.StatusBadRequest,
	"INVALID_LOGO":           http.StatusBadRequest,
	"INVALID_LISTING_NAME":   http.StatusBadRequest,
	"INVALID_PRICE":          http.StatusBadRequest,
	"INVALID_PRICE_RANGE":    http.StatusBadRequest,
	"INVALID_PRICING_MODEL":  http.StatusBadRequest,
	"INVALID_CURRENCY":       http.StatusBadRequest,
	"INVALID_CATEGORY":       http.StatusBadRequest,
	"INVALID_IMAGE":          http.StatusBadRequest,
	"INVALID_TYPE":           http.StatusBadRequest,
	"INVALID_SORT":           http.StatusBadRequest,
	"INVALID_SUBJECT":        http.StatusBadRequest,
	"INVALID_BODY":           http.StatusBadRequest,
	"INVALID_RECIPIENT":      http.StatusBadRequest,
	"INVALID_LISTING":        http.StatusBadRequest,
	"INVALID_PAYLOAD":        http.StatusBadRequest,
	"TOO_MANY_IMAGES":        http.StatusBadRequest,
	"WEAK_PASSWORD":          http.StatusBadRequest,
	"EMPTY_FILE":             http.StatusBadRequest,
	"FILE_TOO_LARGE":         http.StatusRequestEntityTooLarge,
	"UNSUPPORTED_MEDIA_TYPE": http.StatusUnsupportedMediaType,

	// Authentication
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"SESSION_INVALID":     http.StatusUnauthorized,
	"INVALID_SIGNATURE":   http.StatusUnauthorized,
	"ACCOUNT_LOCKED":      http.StatusTooManyRequests,
	"INVALID_TOKEN":       http.StatusBadRequest,

	// Authorization
	"ADMIN_REQUIRED":     http.StatusForbidden,
	"CANNOT_DELETE_SELF": http.StatusForbidden,
	"NOT_PARTICIPANT":    http.StatusForbidden,
	"NOT_RECIPIENT":      http.StatusForbidden,
	"COMPANY_INACTIVE":   http.StatusForbidden,

	// Conflicts
	"ALREADY_EXISTS":      http.StatusConflict,
	"EMAIL_TAKEN":         http.StatusConflict,
	"SLUG_TAKEN":          http.StatusConflict,
	"INVITATION_ACCEPTED": http.StatusConflict,
	"ALREADY_ACTIVE":      http.StatusConflict,
	"STALE_WRITE":         http.StatusConflict,

	// Business rules
	"INVALID_STATE":              http.StatusUnprocessableEntity,
	"SELF_MESSAGE":               http.StatusUnprocessableEntity,
	"LAST_ADMIN":                 http.StatusUnprocessableEntity,
	"CATEGORY_MISMATCH":          http.StatusUnprocessableEntity,
	"PRICING_MODEL_SERVICE_ONLY": http.StatusUnprocessableEntity,
	"COMPANY_NOT_ACTIVE":         http.StatusUnprocessableEntity,

	// Unavailable features
	"PDF_DISABLED": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorStatus returns the status of a domain error code. Domain errors
// not in the table are business rule violations.
func DomainErrorStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
