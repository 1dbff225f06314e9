package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrNoTables       = errors.New("no tables provided")
	ErrDuplicateTable = errors.New("duplicate table name")
	ErrRaggedTable    = errors.New("columns have different row counts")
	ErrNoArtifact     = errors.New("renderer produced no image")
	ErrNoCandidate    = errors.New("no usable candidate in model response")
)

// Kind classifies a failure for callers. Each kind maps to its own
// user-visible failure class.
type Kind string

const (
	KindInput      Kind = "input"
	KindInference  Kind = "inference"
	KindRender     Kind = "render"
	KindGeneration Kind = "generation"
)

// Stage names the step that failed.
type Stage string

const (
	StageLoad                 Stage = "load"
	StageKeyExtraction        Stage = "key_extraction"
	StageRelationshipMatching Stage = "relationship_matching"
	StageRoleClassification   Stage = "role_classification"
	StageDiagramAssembly      Stage = "diagram_assembly"
	StageRender               Stage = "render"
	StageGeneration           Stage = "generation"
)

// Error is a kinded failure carrying the stage where it happened.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Stage != "" {
		prefix = fmt.Sprintf("%s (%s)", e.Kind, e.Stage)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInputError reports bad or missing input tables.
func NewInputError(stage Stage, message string, err error) *Error {
	return &Error{Kind: KindInput, Stage: stage, Message: message, Err: err}
}

// NewInferenceError reports an internal fault during extraction, matching or classification.
func NewInferenceError(stage Stage, message string, err error) *Error {
	return &Error{Kind: KindInference, Stage: stage, Message: message, Err: err}
}

// NewRenderError reports a renderer failure or a missing image.
func NewRenderError(message string, err error) *Error {
	return &Error{Kind: KindRender, Stage: StageRender, Message: message, Err: err}
}

// NewGenerationError reports a language-model failure.
func NewGenerationError(message string, err error) *Error {
	return &Error{Kind: KindGeneration, Stage: StageGeneration, Message: message, Err: err}
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// StageOf returns the stage of err, or "" if err is not an *Error.
func StageOf(err error) Stage {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Stage
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
