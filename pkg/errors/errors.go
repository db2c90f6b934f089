package errors

import (
	"errors"
	"fmt"
)

// Error types for classifying supervisor, plugin and health failures

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeDiscovery     ErrorType = "discovery"
	ErrorTypeNoPlugins     ErrorType = "no_plugins"
	ErrorTypePluginLoad    ErrorType = "plugin_load"
	ErrorTypePluginRuntime ErrorType = "plugin_runtime"
	ErrorTypeHealthCheck   ErrorType = "health_check"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeIO            ErrorType = "io"
	ErrorTypePermission    ErrorType = "permission"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeCancelled     ErrorType = "cancelled"
)

// DomainError represents a structured error with type and context
type DomainError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *DomainError) Is(target error) bool {
	if other, ok := target.(*DomainError); ok {
		return e.Type == other.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errorType ErrorType, message string, cause error) *DomainError {
	return &DomainError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

func NewValidationError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeValidation, message, cause)
}

func NewNotFoundError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNotFound, message, cause)
}

// Plugin errors
func NewDiscoveryError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeDiscovery, message, cause)
}

func NewNoPluginsError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNoPlugins, message, cause)
}

func NewPluginLoadError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypePluginLoad, message, cause)
}

func NewPluginRuntimeError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypePluginRuntime, message, cause)
}

func NewHealthCheckError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeHealthCheck, message, cause)
}

// System errors
func NewNetworkError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeNetwork, message, cause)
}

func NewIOError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeIO, message, cause)
}

func NewPermissionError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypePermission, message, cause)
}

func NewInternalError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeInternal, message, cause)
}

func NewCancelledError(message string, cause error) *DomainError {
	return NewDomainError(ErrorTypeCancelled, message, cause)
}

func isType(err error, errorType ErrorType) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Type == errorType
}

// Error checking helpers
func IsValidationError(err error) bool    { return isType(err, ErrorTypeValidation) }
func IsNotFoundError(err error) bool      { return isType(err, ErrorTypeNotFound) }
func IsDiscoveryError(err error) bool     { return isType(err, ErrorTypeDiscovery) }
func IsNoPluginsError(err error) bool     { return isType(err, ErrorTypeNoPlugins) }
func IsPluginLoadError(err error) bool    { return isType(err, ErrorTypePluginLoad) }
func IsPluginRuntimeError(err error) bool { return isType(err, ErrorTypePluginRuntime) }
func IsHealthCheckError(err error) bool   { return isType(err, ErrorTypeHealthCheck) }
func IsNetworkError(err error) bool       { return isType(err, ErrorTypeNetwork) }
func IsIOError(err error) bool            { return isType(err, ErrorTypeIO) }
func IsPermissionError(err error) bool    { return isType(err, ErrorTypePermission) }
func IsInternalError(err error) bool      { return isType(err, ErrorTypeInternal) }
func IsCancelledError(err error) bool     { return isType(err, ErrorTypeCancelled) }

// Error aggregation for bulk operations
type ErrorCollection struct {
	Errors []error
}

func (e *ErrorCollection) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(e.Errors), e.Errors[0])
}

func (e *ErrorCollection) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

func (e *ErrorCollection) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrorCollection) ToError() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

// NewErrorCollection creates a new error collection
func NewErrorCollection() *ErrorCollection {
	return &ErrorCollection{
		Errors: make([]error, 0),
	}
}
