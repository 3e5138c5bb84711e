package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches sentinel domain errors by code and message so wrapped
// instances created with NewDomainErrorWithCause still compare equal.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeProvider         = "PROVIDER_ERROR"
	ErrCodeIndex            = "INDEX_ERROR"
)

// Validation errors
var (
	ErrMissingRequiredField    = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidDocumentStatus   = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidIngestionStatus  = NewDomainError(ErrCodeValidation, "invalid ingestion job status")
	ErrUnscopedVectorOperation = NewDomainError(ErrCodeValidation, "vector operation requires a non-empty metadata filter")
	ErrUnsupportedDocumentType = NewDomainError(ErrCodeValidation, "unsupported document type")
	ErrEmptyDocument           = NewDomainError(ErrCodeValidation, "document has no extractable text")
)

// Not found errors
var (
	ErrUserNotFound          = NewDomainError(ErrCodeNotFound, "user not found")
	ErrAPIKeyNotFound        = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrAgentNotFound         = NewDomainError(ErrCodeNotFound, "agent not found")
	ErrKnowledgeBaseNotFound = NewDomainError(ErrCodeNotFound, "knowledge base not found")
	ErrDocumentNotFound      = NewDomainError(ErrCodeNotFound, "document not found")
)

// Already exists errors
var (
	ErrUserAlreadyExists   = NewDomainError(ErrCodeAlreadyExists, "user already exists")
	ErrAPIKeyAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "api key already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Ownership errors. Raised by the layer that resolves the caller, never by
// the retrieval core itself.
var (
	ErrAgentNotOwned         = NewDomainError(ErrCodeForbidden, "agent does not belong to caller")
	ErrKnowledgeBaseNotOwned = NewDomainError(ErrCodeForbidden, "knowledge base does not belong to caller")
)

// Upstream errors
var (
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
	ErrGenerationDisabled   = NewDomainError(ErrCodeInvalidOperation, "grounded generation is not configured")
)

// NewProviderError wraps a failure of an embedding or generation provider.
func NewProviderError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProvider, message, err)
}

// NewIndexError wraps a failure of the vector index.
func NewIndexError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeIndex, message, err)
}

// IsProviderError reports whether err is, or wraps, a ProviderError.
func IsProviderError(err error) bool {
	return CodeOf(err) == ErrCodeProvider
}

// IsIndexError reports whether err is, or wraps, an IndexError.
func IsIndexError(err error) bool {
	return CodeOf(err) == ErrCodeIndex
}
