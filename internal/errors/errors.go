// Package errors provides error handling utilities.
package errors

import (
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeInput indicates an input validation error
	TypeInput Type = "INPUT_ERROR"

	// TypeInvalidInterval indicates a malformed billing interval (exit <= entry)
	TypeInvalidInterval Type = "INVALID_INTERVAL"

	// TypeNoApplicableRule indicates no enabled rule version matched the scope and instant
	TypeNoApplicableRule Type = "NO_APPLICABLE_RULE"

	// TypeAmbiguousRuleVersion indicates more than one version survived all tie-breaks
	TypeAmbiguousRuleVersion Type = "AMBIGUOUS_RULE_VERSION"

	// TypeUncoveredInterval indicates an instant in the billed range no segment claims
	TypeUncoveredInterval Type = "UNCOVERED_INTERVAL"

	// TypeOverlappingVersion indicates a version write would overlap an existing effective range
	TypeOverlappingVersion Type = "OVERLAPPING_VERSION"

	// TypeSegmentComputation indicates an internal invariant breach during fee computation
	TypeSegmentComputation Type = "SEGMENT_COMPUTATION_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeStorage indicates a storage error
	TypeStorage Type = "STORAGE_ERROR"

	// TypeNotFound indicates a resource not found error
	TypeNotFound Type = "NOT_FOUND"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == t
	}
	return false
}

// Input creates an input error
func Input(message string) *Error {
	return New(TypeInput, message)
}

// InvalidInterval creates an invalid interval error
func InvalidInterval(message string) *Error {
	return New(TypeInvalidInterval, message)
}

// NoApplicableRule creates a no applicable rule error
func NoApplicableRule(regionCode, lotCode string) *Error {
	return Newf(TypeNoApplicableRule, "no applicable rule for region %s lot %s", regionCode, lotCode)
}

// AmbiguousRuleVersion creates an ambiguous rule version error
func AmbiguousRuleVersion(message string) *Error {
	return New(TypeAmbiguousRuleVersion, message)
}

// UncoveredInterval creates an uncovered interval error
func UncoveredInterval(message string) *Error {
	return New(TypeUncoveredInterval, message)
}

// OverlappingVersion creates an overlapping version error
func OverlappingVersion(message string) *Error {
	return New(TypeOverlappingVersion, message)
}

// SegmentComputation creates a segment computation error
func SegmentComputation(message string) *Error {
	return New(TypeSegmentComputation, message)
}

// Config creates a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// Storage creates a storage error
func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
