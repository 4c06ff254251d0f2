// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateName indicates an insert collided with an existing tool name.
var ErrDuplicateName = errors.New("duplicate tool name")

// ErrValidation indicates the request failed domain validation.
var ErrValidation = errors.New("validation failed")

// ErrGenerationInvalid indicates the model returned an unusable tool definition.
var ErrGenerationInvalid = errors.New("generated tool definition invalid")

// ErrGenerationFailed indicates the generation pipeline failed (gateway error,
// unusable output, or a registry collision on the generated name).
var ErrGenerationFailed = errors.New("tool generation failed")

// ErrUnsupportedLanguage indicates a tool carries a language no backend handles.
// This is a configuration error and is raised before any process is spawned.
var ErrUnsupportedLanguage = errors.New("unsupported tool language")

// ErrExecutionTimeout indicates a tool exceeded the shared wall-clock timeout.
var ErrExecutionTimeout = errors.New("tool execution timed out")

// ErrExecution indicates tool code ran and failed (non-zero exit or returned error).
var ErrExecution = errors.New("tool execution failed")
