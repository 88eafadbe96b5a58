package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for retry and API mapping decisions
type Kind int

const (
	// Unknown - unclassified failure, not retried
	Unknown Kind = iota
	// InvalidInput - bad config, format or request data, not retried
	InvalidInput
	// ProviderUnavailable - transient upstream failure, retried with backoff
	ProviderUnavailable
	// Timeout - upstream call timed out, retried
	Timeout
	// EditRejected - feedback produced an invalid structure, prior structure kept
	EditRejected
	// InvalidState - operation attempted in a wrong job state
	InvalidState
	// NotFound - unknown job id
	NotFound
)

var kindCode = map[Kind]string{Unknown: "SERVICE_ERROR", InvalidInput: "INVALID_INPUT",
	ProviderUnavailable: "PROVIDER_UNAVAILABLE", Timeout: "TIMEOUT",
	EditRejected: "EDIT_REJECTED", InvalidState: "INVALID_STATE", NotFound: "NOT_FOUND"}

// Code returns machine readable code of the kind
func (k Kind) Code() string {
	c, found := kindCode[k]
	if found {
		return c
	}
	return kindCode[Unknown]
}

// Transient indicates the failure may succeed on retry
func (k Kind) Transient() bool {
	return k == ProviderUnavailable || k == Timeout
}

// Error is a classified failure with an optional originating stage
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	res := e.Msg
	if res == "" {
		res = e.Kind.Code()
	}
	if e.Stage != "" {
		res = e.Stage + ": " + res
	}
	if e.Err != nil {
		res = res + ": " + e.Err.Error()
	}
	return res
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Errorf creates a classified error with a formatted message
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an existing error
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// WithStage marks the originating stage, keeping an already assigned one
func WithStage(err error, stage string) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		if de.Stage == "" {
			de.Stage = stage
		}
		return err
	}
	return &Error{Kind: Unknown, Stage: stage, Err: err}
}

// KindOf extracts the kind from an error chain
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return Unknown
}

// StageOf extracts the originating stage from an error chain
func StageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Stage
	}
	return ""
}
