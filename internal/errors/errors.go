package errors

import "fmt"

// Kind categorises pipeline failures.
type Kind string

const (
	KindUnreadableImage   Kind = "unreadable_image"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindNoBubblesDetected Kind = "no_bubbles_detected"
	KindMalformedGrid     Kind = "malformed_grid"
	KindMissingAnswerKey  Kind = "missing_answer_key"
	KindInternal          Kind = "internal"
)

// Stage names the pipeline stage a failure originated in.
type Stage string

const (
	StageNormalize Stage = "normalize"
	StageDetect    Stage = "detect"
	StageClassify  Stage = "classify"
	StageMap       Stage = "map"
	StageScore     Stage = "score"
	StageRender    Stage = "render"
)

// PipelineError is a structured per-sheet failure. Terminal errors end the
// sheet's pipeline run; non-terminal ones leave partial results usable.
// Errors are captured into the sheet's ProcessingResult and never cross a
// batch boundary.
type PipelineError struct {
	Kind     Kind   `json:"kind"`
	Stage    Stage  `json:"stage"`
	Message  string `json:"message"`
	Terminal bool   `json:"terminal"`
	Cause    error  `json:"-"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewUnreadableImageError reports a source that could not be decoded.
func NewUnreadableImageError(message string, cause error) *PipelineError {
	return &PipelineError{
		Kind:     KindUnreadableImage,
		Stage:    StageNormalize,
		Message:  message,
		Terminal: true,
		Cause:    cause,
	}
}

// NewUnsupportedFormatError reports an encoding the pipeline does not accept.
func NewUnsupportedFormatError(message string, cause error) *PipelineError {
	return &PipelineError{
		Kind:     KindUnsupportedFormat,
		Stage:    StageNormalize,
		Message:  message,
		Terminal: true,
		Cause:    cause,
	}
}

// NewNoBubblesDetectedError reports an empty detection result.
func NewNoBubblesDetectedError(message string) *PipelineError {
	return &PipelineError{
		Kind:     KindNoBubblesDetected,
		Stage:    StageDetect,
		Message:  message,
		Terminal: true,
	}
}

// NewMalformedGridError reports grid irregularity. It is terminal only in
// strict mode; otherwise the sheet degrades to a partial result.
func NewMalformedGridError(message string, terminal bool) *PipelineError {
	return &PipelineError{
		Kind:     KindMalformedGrid,
		Stage:    StageDetect,
		Message:  message,
		Terminal: terminal,
	}
}

// NewMissingAnswerKeyError reports that no key exists for a sheet version.
// Detection and mapping results remain valid.
func NewMissingAnswerKeyError(version string) *PipelineError {
	return &PipelineError{
		Kind:    KindMissingAnswerKey,
		Stage:   StageScore,
		Message: fmt.Sprintf("no answer key for version %q", version),
	}
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message string, cause error) *PipelineError {
	return &PipelineError{
		Kind:     KindInternal,
		Stage:    StageNormalize,
		Message:  message,
		Terminal: true,
		Cause:    cause,
	}
}

// IsKind checks if the error is a PipelineError of a specific kind.
func IsKind(err error, kind Kind) bool {
	if pErr, ok := err.(*PipelineError); ok {
		return pErr.Kind == kind
	}
	return false
}

// AsPipelineError extracts a PipelineError, wrapping foreign errors as
// internal so callers always get a structured payload.
func AsPipelineError(err error, stage Stage) *PipelineError {
	if err == nil {
		return nil
	}
	if pErr, ok := err.(*PipelineError); ok {
		return pErr
	}
	return &PipelineError{
		Kind:     KindInternal,
		Stage:    stage,
		Message:  err.Error(),
		Terminal: true,
		Cause:    err,
	}
}
