package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that instances carrying formatted
// messages still compare equal to the package sentinels via errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound              = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists         = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput          = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized          = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden             = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrUserNotFound          = NewDomainError("USER_NOT_FOUND", "User not found")
	ErrInsufficientTokens    = NewDomainError("INSUFFICIENT_TOKENS", "Insufficient token balance")
	ErrInvalidFilter         = NewDomainError("INVALID_FILTER", "Invalid filter value")
	ErrInvalidPaymentPayload = NewDomainError("INVALID_PAYMENT_PAYLOAD", "Invalid payment payload")
	ErrSignatureInvalid      = NewDomainError("SIGNATURE_INVALID", "Webhook signature verification failed")
	ErrProviderFailure       = NewDomainError("PROVIDER_ERROR", "Media generation provider failed")
	ErrStorageFailure        = NewDomainError("STORAGE_ERROR", "Object storage operation failed")
)

// NewInsufficientTokensError builds an INSUFFICIENT_TOKENS error that
// discloses the current and required amounts to the caller.
func NewInsufficientTokensError(available, required int) *DomainError {
	return NewDomainError(
		ErrInsufficientTokens.Code,
		fmt.Sprintf("Insufficient tokens: available %d, required %d", available, required),
	)
}
