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

// Is matches DomainErrors by code so sentinel values compare equal to wrapped
// instances carrying a cause.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeUnsupportedType = "UNSUPPORTED_TYPE"
	ErrCodeEmptyDocument   = "EMPTY_DOCUMENT"
	ErrCodeNoChunks        = "NO_CHUNKS_PRODUCED"
	ErrCodeEmbedding       = "EMBEDDING_FAILURE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeEmptyDeleteSet  = "EMPTY_DELETE_SET"
	ErrCodeVectorStore     = "VECTOR_STORE_FAILURE"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidInput         = NewDomainError(ErrCodeValidation, "input text is blank")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrKnowledgeItemNotFound = NewDomainError(ErrCodeNotFound, "knowledge item not found")
)

// Ingestion pipeline errors
var (
	ErrUnsupportedType  = NewDomainError(ErrCodeUnsupportedType, "unsupported document type")
	ErrEmptyDocument    = NewDomainError(ErrCodeEmptyDocument, "document contains no extractable text")
	ErrNoChunksProduced = NewDomainError(ErrCodeNoChunks, "segmentation produced no chunks")
	ErrEmbeddingFailure = NewDomainError(ErrCodeEmbedding, "embedding service request failed")
	ErrRateLimited      = NewDomainError(ErrCodeRateLimited, "embedding service rate limit exhausted")
)

// Vector store errors
var (
	ErrEmptyDeleteSet     = NewDomainError(ErrCodeEmptyDeleteSet, "no vector ids to delete")
	ErrVectorStoreFailure = NewDomainError(ErrCodeVectorStore, "vector store operation failed")
)
