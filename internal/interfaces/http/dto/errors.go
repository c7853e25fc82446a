package dto

import "net/http"

// Common error codes used by handlers directly
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeTooLarge     = "REQUEST_TOO_LARGE"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed here default to 500 so a new domain error can never
// silently leak as a success.
var errorCodeHTTPStatus = map[string]int{
	// Input problems
	"BAD_REQUEST":             http.StatusBadRequest,
	"INVALID_INPUT":           http.StatusBadRequest,
	"INVALID_PROMPT":          http.StatusBadRequest,
	"INVALID_TYPE":            http.StatusBadRequest,
	"INVALID_FILTER":          http.StatusBadRequest,
	"INVALID_REFERENCE_IMAGE": http.StatusBadRequest,
	"INVALID_PASSWORD":        http.StatusBadRequest,
	"INVALID_EMAIL":           http.StatusBadRequest,
	"INVALID_TOKENS":          http.StatusBadRequest,
	"INVALID_AMOUNT":          http.StatusBadRequest,
	"INVALID_PAYMENT_PAYLOAD": http.StatusBadRequest,

	// Auth problems
	"UNAUTHORIZED":        http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_INVALID":       http.StatusUnauthorized,
	"SIGNATURE_INVALID":   http.StatusUnauthorized,
	"FORBIDDEN":           http.StatusForbidden,
	"ACCOUNT_INACTIVE":    http.StatusForbidden,

	// Resource problems
	"NOT_FOUND":      http.StatusNotFound,
	"USER_NOT_FOUND": http.StatusNotFound,
	"ALREADY_EXISTS": http.StatusConflict,
	"EMAIL_TAKEN":    http.StatusConflict,

	// Business rules
	"INSUFFICIENT_TOKENS": http.StatusPaymentRequired,

	// Upstream collaborators
	"PROVIDER_ERROR": http.StatusBadGateway,
	"STORAGE_ERROR":  http.StatusBadGateway,

	"INTERNAL_ERROR": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for a domain error code.
// Returns 500 Internal Server Error if the code is not recognized.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
