package model

import (
	"errors"
	"fmt"
)

// Code categorizes every error the core can return. Codes are stable
// strings surfaced in JSON output and mapped to CLI exit codes.
type Code string

const (
	// Validation errors: caller-fixable, transaction rolled back,
	// no partial state change, no history entry.
	CodeCycleDetected          Code = "CYCLE_DETECTED"
	CodeSelfDependency         Code = "SELF_DEPENDENCY"
	CodeCrossPlanEdge          Code = "CROSS_PLAN_EDGE"
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeDependencyNotSatisfied Code = "DEPENDENCY_NOT_SATISFIED"
	CodeTerminalState          Code = "TERMINAL_STATE"
	CodePlanNameConflict       Code = "PLAN_NAME_CONFLICT"
	CodeAmbiguousRef           Code = "AMBIGUOUS_REF"
	CodeNoActivePlan           Code = "NO_ACTIVE_PLAN"
	CodeValidation             Code = "VALIDATION_ERROR"

	// Lookup errors: reported, no side effect.
	CodePlanNotFound     Code = "PLAN_NOT_FOUND"
	CodeTaskNotFound     Code = "TASK_NOT_FOUND"
	CodeDocumentNotFound Code = "DOCUMENT_NOT_FOUND"

	// Environment errors: fatal to the invoking command, never retried
	// by the core.
	CodeNoRepositoryRoot Code = "NO_REPOSITORY_ROOT"
	CodeNotInitialized   Code = "NOT_INITIALIZED"
	CodeSchemaMismatch   Code = "SCHEMA_MISMATCH"
	CodeLockTimeout      Code = "LOCK_TIMEOUT"
	CodeStorage          Code = "STORAGE_ERROR"
)

// Error is the structured error type shared by every core package.
// EntityID carries the offending plan/task/document id when one exists.
type Error struct {
	Code     Code
	Message  string
	EntityID string
}

func (e *Error) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.EntityID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errf builds an *Error with a formatted message and no entity id.
func Errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func ErrPlanNotFound(ref string) *Error {
	return &Error{Code: CodePlanNotFound, Message: "plan not found", EntityID: ref}
}

func ErrTaskNotFound(ref string) *Error {
	return &Error{Code: CodeTaskNotFound, Message: "task not found", EntityID: ref}
}

func ErrDocumentNotFound(ownerID string) *Error {
	return &Error{Code: CodeDocumentNotFound, Message: "no document revision found", EntityID: ownerID}
}

func ErrCycleDetected(from, to string) *Error {
	return &Error{
		Code:     CodeCycleDetected,
		Message:  fmt.Sprintf("dependency %s -> %s would create a cycle", from, to),
		EntityID: to,
	}
}

func ErrSelfDependency(id string) *Error {
	return &Error{Code: CodeSelfDependency, Message: "task cannot depend on itself", EntityID: id}
}

func ErrCrossPlanEdge(from, to string) *Error {
	return &Error{
		Code:     CodeCrossPlanEdge,
		Message:  fmt.Sprintf("tasks %s and %s belong to different plans", from, to),
		EntityID: to,
	}
}

func ErrInvalidTransition(id string, from, to TaskStatus) *Error {
	return &Error{
		Code:     CodeInvalidTransition,
		Message:  fmt.Sprintf("invalid status transition: %s -> %s", from, to),
		EntityID: id,
	}
}

func ErrTerminalState(id string, status string) *Error {
	return &Error{
		Code:     CodeTerminalState,
		Message:  fmt.Sprintf("%s is terminal, no further transitions allowed", status),
		EntityID: id,
	}
}

func ErrDependencyNotSatisfied(id string, unfinished []string) *Error {
	return &Error{
		Code:     CodeDependencyNotSatisfied,
		Message:  fmt.Sprintf("unfinished dependencies: %v", unfinished),
		EntityID: id,
	}
}

func ErrPlanNameConflict(name string) *Error {
	return &Error{Code: CodePlanNameConflict, Message: "a plan with this name already exists", EntityID: name}
}

func ErrAmbiguousRef(ref string, candidates []string) *Error {
	return &Error{
		Code:     CodeAmbiguousRef,
		Message:  fmt.Sprintf("ambiguous reference, candidates: %v", candidates),
		EntityID: ref,
	}
}

func ErrNoActivePlan() *Error {
	return &Error{Code: CodeNoActivePlan, Message: "no active plan, use `taskai plan activate <name>` or --plan <ref>"}
}

func ErrNoRepositoryRoot(dir string) *Error {
	return &Error{
		Code:     CodeNoRepositoryRoot,
		Message:  "not inside a version-controlled repository",
		EntityID: dir,
	}
}

func ErrNotInitialized() *Error {
	return &Error{Code: CodeNotInitialized, Message: "store is not initialized, run `taskai init` first"}
}

func ErrSchemaMismatch(got, want int) *Error {
	return &Error{
		Code:    CodeSchemaMismatch,
		Message: fmt.Sprintf("store schema version %d, this build expects %d", got, want),
	}
}

func ErrLockTimeout() *Error {
	return &Error{Code: CodeLockTimeout, Message: "timed out waiting for the store write lock"}
}

// Storage wraps a driver-level failure as an environment error,
// preserving the cause for errors.Is/As.
func Storage(err error) *Error {
	return &Error{Code: CodeStorage, Message: err.Error()}
}

// CodeOf extracts the Code from err, or CodeStorage for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorage
}

// IsValidation reports whether err is a caller-fixable validation error.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case CodeCycleDetected, CodeSelfDependency, CodeCrossPlanEdge,
		CodeInvalidTransition, CodeDependencyNotSatisfied, CodeTerminalState,
		CodePlanNameConflict, CodeAmbiguousRef, CodeNoActivePlan, CodeValidation:
		return true
	}
	return false
}

// IsLookup reports whether err is a lookup error (entity absent, no side
// effect).
func IsLookup(err error) bool {
	switch CodeOf(err) {
	case CodePlanNotFound, CodeTaskNotFound, CodeDocumentNotFound:
		return true
	}
	return false
}

// IsEnvironment reports whether err is fatal to the invoking command
// (store location, schema, locking, I/O).
func IsEnvironment(err error) bool {
	switch CodeOf(err) {
	case CodeNoRepositoryRoot, CodeNotInitialized, CodeSchemaMismatch,
		CodeLockTimeout, CodeStorage:
		return true
	}
	return false
}
