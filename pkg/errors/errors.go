package errors

import (
	"fmt"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a runtime failure while executing a step.
type ExecutionError struct {
	StepID string
	Err    error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(stepID string, err error) error {
	return &ExecutionError{StepID: stepID, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.StepID != "" {
		return fmt.Sprintf("execution error on step %s: %v", e.StepID, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PluginError indicates issues within plugin registration or execution.
type PluginError struct {
	Plugin  string
	Message string
	Err     error
}

// NewPluginError constructs a PluginError for the given plugin type.
func NewPluginError(plugin string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PluginError{Plugin: plugin, Message: message, Err: err}
}

func (e *PluginError) Error() string {
	if e == nil {
		return ""
	}
	if e.Plugin != "" {
		return fmt.Sprintf("plugin error [%s]: %s", e.Plugin, e.Message)
	}
	return fmt.Sprintf("plugin error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *PluginError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RegistryError indicates a failure loading or looking up a component spec.
// Code is one of SpecParseError, SpecSchemaError, DuplicateComponent,
// UnknownComponent, UnknownDriver.
type RegistryError struct {
	Code      string
	Component string
	Err       error
}

// NewRegistryError constructs a RegistryError with the given stable code.
func NewRegistryError(code, component string, err error) error {
	return &RegistryError{Code: code, Component: component, Err: err}
}

func (e *RegistryError) Error() string {
	if e == nil {
		return ""
	}
	if e.Component != "" {
		return fmt.Sprintf("registry error [%s]: component %q: %v", e.Code, e.Component, e.Err)
	}
	return fmt.Sprintf("registry error [%s]: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying error.
func (e *RegistryError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConnectionError indicates a failure resolving a symbolic connection
// reference. Code is one of UnknownFamily, UnknownAlias, ForbiddenOverride,
// MissingEnv.
type ConnectionError struct {
	Code  string
	Ref   string
	Field string
	Err   error
}

// NewConnectionError constructs a ConnectionError.
func NewConnectionError(code, ref, field string, err error) error {
	return &ConnectionError{Code: code, Ref: ref, Field: field, Err: err}
}

func (e *ConnectionError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Field != "":
		return fmt.Sprintf("connection error [%s]: %s: field %q", e.Code, e.Ref, e.Field)
	case e.Err != nil:
		return fmt.Sprintf("connection error [%s]: %s: %v", e.Code, e.Ref, e.Err)
	default:
		return fmt.Sprintf("connection error [%s]: %s", e.Code, e.Ref)
	}
}

// Unwrap exposes the underlying error.
func (e *ConnectionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CompileError indicates a failure compiling an OML document into a
// manifest. Code is one of IOError, CanonicalizationError, ValidationFailed,
// RegistryLookupFailed.
type CompileError struct {
	Code string
	Err  error
}

// NewCompileError constructs a CompileError.
func NewCompileError(code string, err error) error {
	return &CompileError{Code: code, Err: err}
}

func (e *CompileError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("compile error [%s]: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying error.
func (e *CompileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RemoteError indicates a failure in the remote transparent proxy. Code is
// one of SandboxCreateFailed, RemoteTimeout, RemoteTransportLost,
// WorkerProtocolError.
type RemoteError struct {
	Code   string
	StepID string
	Err    error
}

// NewRemoteError constructs a RemoteError.
func NewRemoteError(code, stepID string, err error) error {
	return &RemoteError{Code: code, StepID: stepID, Err: err}
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	if e.StepID != "" {
		return fmt.Sprintf("remote error [%s]: step %s: %v", e.Code, e.StepID, e.Err)
	}
	return fmt.Sprintf("remote error [%s]: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying error.
func (e *RemoteError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IndexError indicates a run-index read or write failure. Code is one of
// InvalidHashFormat, CorruptRecord.
type IndexError struct {
	Code string
	Path string
	Err  error
}

// NewIndexError constructs an IndexError.
func NewIndexError(code, path string, err error) error {
	return &IndexError{Code: code, Path: path, Err: err}
}

func (e *IndexError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("index error [%s]: %s: %v", e.Code, e.Path, e.Err)
}

// Unwrap exposes the underlying error.
func (e *IndexError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AIOPError indicates an AI Operation Package export failure or warning.
// Code is one of TruncationApplied (warning), DeterminismMismatch
// (assertion failure, must never occur).
type AIOPError struct {
	Code string
	Err  error
}

// NewAIOPError constructs an AIOPError.
func NewAIOPError(code string, err error) error {
	return &AIOPError{Code: code, Err: err}
}

func (e *AIOPError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("aiop error [%s]: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying error.
func (e *AIOPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
