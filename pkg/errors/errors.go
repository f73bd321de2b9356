package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeValidation represents caller-supplied argument errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeExtraction represents LLM extraction errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeEmbedding represents embedding provider errors
	ErrorTypeEmbedding ErrorType = "embedding"
	// ErrorTypeTool represents tool execution errors
	ErrorTypeTool ErrorType = "tool"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrType reports the error's category. Promoted by every typed error that
// embeds BaseError, so category checks work without naming concrete types.
func (e *BaseError) ErrType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Validation Errors

// ErrInvalidArgument is returned when a tool argument fails schema constraints
type ErrInvalidArgument struct {
	*BaseError
	Argument string
	Reason   string
}

func NewInvalidArgument(argument, reason string) *ErrInvalidArgument {
	return &ErrInvalidArgument{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid argument %q: %s", argument, reason), nil),
		Argument:  argument,
		Reason:    reason,
	}
}

// Extraction Errors

// ErrExtractionFailed is returned when the LLM transport fails during extraction
type ErrExtractionFailed struct {
	*BaseError
	Stage string // entities, relationships, summary
}

func NewExtractionFailed(stage string, err error) *ErrExtractionFailed {
	return &ErrExtractionFailed{
		BaseError: NewBaseError(ErrorTypeExtraction, fmt.Sprintf("extraction failed at stage %q", stage), err),
		Stage:     stage,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when the Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphWriteFailed is returned when a batch write is rejected by the store
type ErrGraphWriteFailed struct {
	*BaseError
	Batch string // nodes, edges
}

func NewGraphWriteFailed(batch string, err error) *ErrGraphWriteFailed {
	return &ErrGraphWriteFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to persist %s batch", batch), err),
		Batch:     batch,
	}
}

// Ingestion Errors

// ErrEpisodeFailed names the episode that aborted a batch ingest
type ErrEpisodeFailed struct {
	*BaseError
	Episode string
}

func NewEpisodeFailed(episode string, err error) *ErrEpisodeFailed {
	return &ErrEpisodeFailed{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("failed to ingest episode %q", episode), err),
		Episode:   episode,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type anywhere in its chain
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if typed, ok := err.(interface{ ErrType() ErrorType }); ok && typed.ErrType() == errType {
			return true
		}
		wrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = wrapper.Unwrap()
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Caller mistakes and missing config never succeed on retry
	if IsErrorType(err, ErrorTypeValidation) || IsErrorType(err, ErrorTypeConfig) {
		return false
	}
	// Transport-level failures against the store or providers may clear
	if IsErrorType(err, ErrorTypeGraph) || IsErrorType(err, ErrorTypeExtraction) || IsErrorType(err, ErrorTypeEmbedding) {
		return true
	}
	return false
}
