package errors

import "fmt"

// Error codes
const (
	CodeEngineError = "ENGINE_ERROR"
	CodeAPIError    = "API_ERROR"
	CodeValidation  = "VALIDATION_ERROR"
	CodeCache       = "CACHE_ERROR"
	CodeService     = "SERVICE_ERROR"
	CodeQuota       = "QUOTA_ERROR"
)

type EngineError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}

func NewEngineError(message, code string, statusCode int, context map[string]any) *EngineError {
	return &EngineError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *EngineError) WithCause(cause error) *EngineError {
	e.Cause = cause
	return e
}

// ValidationError marks a programming contract violation (nil required
// argument, malformed identifier). Data-quality problems are never errors;
// they degrade to null fields instead.
type ValidationError struct {
	*EngineError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		EngineError: &EngineError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type APIError struct {
	*EngineError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		EngineError: &EngineError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

type CacheError struct {
	*EngineError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		EngineError: &EngineError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

type ServiceError struct {
	*EngineError
	Service   string
	Operation string
}

func NewServiceError(message, service, operation string, cause error) *ServiceError {
	return &ServiceError{
		EngineError: &EngineError{
			Message:    message,
			Code:       CodeService,
			StatusCode: 500,
			Context: map[string]any{
				"service":   service,
				"operation": operation,
			},
			Cause: cause,
		},
		Service:   service,
		Operation: operation,
	}
}

// QuotaError is returned when a YouTube API call would exceed the remaining
// daily quota budget.
type QuotaError struct {
	*APIError
}

func NewQuotaError(message string, context map[string]any) *QuotaError {
	return &QuotaError{
		APIError: &APIError{
			EngineError: &EngineError{
				Message:    message,
				Code:       CodeQuota,
				StatusCode: 429,
				Context:    context,
			},
		},
	}
}
