package domain

import "fmt"

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

// Common domain error codes
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeExtractionFailed  = "EXTRACTION_FAILED"
	ErrCodeDimensionMismatch = "DIMENSION_MISMATCH"
	ErrCodeServiceError      = "SERVICE_ERROR"
	ErrCodePlanningFailed    = "PLANNING_FAILED"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

// Ingestion errors
var (
	ErrUnsupportedFormat  = NewDomainError(ErrCodeUnsupportedFormat, "unsupported document format")
	ErrExtractionFailed   = NewDomainError(ErrCodeExtractionFailed, "failed to extract text from document")
	ErrEmptyDocument      = NewDomainError(ErrCodeValidation, "document contains no extractable text")
	ErrInvalidChunkConfig = NewDomainError(ErrCodeValidation, "chunk overlap must be smaller than chunk size")
)

// Vector store errors
var (
	ErrDimensionMismatch = NewDomainError(ErrCodeDimensionMismatch, "embedding dimension does not match store configuration")
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
)

// External service errors, retryable up to the shared backoff budget
var (
	ErrEmbeddingService  = NewDomainError(ErrCodeServiceError, "embedding service unavailable")
	ErrGenerationService = NewDomainError(ErrCodeServiceError, "generation service unavailable")
)

// Task agent errors
var (
	ErrPlanningFailed = NewDomainError(ErrCodePlanningFailed, "task could not be decomposed into a plan")
	ErrAccessDenied   = NewDomainError(ErrCodeForbidden, "access denied")
)

// Authentication errors
var (
	ErrUserNotFound         = NewDomainError(ErrCodeNotFound, "user not found")
	ErrUserAlreadyExists    = NewDomainError(ErrCodeAlreadyExists, "user already exists")
	ErrAPIKeyNotFound       = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrAPIKeyRevoked        = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey        = NewDomainError(ErrCodeUnauthorized, "invalid api key")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Ingest job errors
var (
	ErrInvalidIngestJobStatus = NewDomainError(ErrCodeValidation, "invalid ingest job status")
	ErrIngestJobNotFound      = NewDomainError(ErrCodeNotFound, "ingest job not found")
)
