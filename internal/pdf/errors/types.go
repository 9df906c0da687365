package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorKind represents the categories of failure a pipeline invocation can end with
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindFormat
	KindEmptySelection
	KindOracleResponse
	KindOracleUnavailable
	KindDocumentLoad
	KindNoExtractableText
	KindStamp
	KindWrite
)

// String returns a string representation of the ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "FORMAT_ERROR"
	case KindEmptySelection:
		return "EMPTY_SELECTION"
	case KindOracleResponse:
		return "ORACLE_RESPONSE"
	case KindOracleUnavailable:
		return "ORACLE_UNAVAILABLE"
	case KindDocumentLoad:
		return "DOCUMENT_LOAD"
	case KindNoExtractableText:
		return "NO_EXTRACTABLE_TEXT"
	case KindStamp:
		return "STAMP_FAILED"
	case KindWrite:
		return "WRITE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsUserCorrectable reports whether the user can fix the failure by changing
// their input (page range, uploaded file) rather than waiting or retrying
func (k ErrorKind) IsUserCorrectable() bool {
	switch k {
	case KindFormat, KindEmptySelection, KindDocumentLoad, KindNoExtractableText:
		return true
	default:
		return false
	}
}

// Kinded is implemented by errors that know their own kind
type Kinded interface {
	ErrorKind() ErrorKind
}

// PipelineError is a terminal failure of one crop, extract or stamp invocation
type PipelineError struct {
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Input    string    `json:"input,omitempty"`
	FilePath string    `json:"file_path,omitempty"`
	Err      error     `json:"-"`
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind.String(), e.Message)
	if e.Input != "" {
		msg += fmt.Sprintf(" (input: %q)", e.Input)
	}
	if e.FilePath != "" {
		msg += fmt.Sprintf(" (file: %s)", e.FilePath)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ErrorKind implements Kinded
func (e *PipelineError) ErrorKind() ErrorKind {
	return e.Kind
}

// New creates a PipelineError of the given kind
func New(kind ErrorKind, message string) *PipelineError {
	return &PipelineError{Kind: kind, Message: message}
}

// Wrap wraps err as a PipelineError of the given kind
func Wrap(kind ErrorKind, err error, message string) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, Err: err}
}

// WithInput records the user input that caused the failure
func (e *PipelineError) WithInput(input string) *PipelineError {
	e.Input = input
	return e
}

// WithFile adds file path information to an existing PipelineError
func (e *PipelineError) WithFile(filePath string) *PipelineError {
	e.FilePath = filePath
	return e
}

// KindOf returns the kind of the first Kinded error in err's chain
func KindOf(err error) ErrorKind {
	var k Kinded
	if stderrors.As(err, &k) {
		return k.ErrorKind()
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
