package errors

import (
	stderrors "errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeConfiguration   ErrorType = "CONFIGURATION"
	ErrTypeExtraction      ErrorType = "EXTRACTION"
	ErrTypeAPI             ErrorType = "API"
	ErrTypeInvalidResponse ErrorType = "INVALID_RESPONSE"
	ErrTypePersistence     ErrorType = "PERSISTENCE"
	ErrTypeInvalidInput    ErrorType = "INVALID_INPUT"
	ErrTypeNotFound        ErrorType = "NOT_FOUND"
	ErrTypeUnavailable     ErrorType = "UNAVAILABLE"
	ErrTypeInternal        ErrorType = "INTERNAL"
)

type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Stack   []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func Configuration(message string, err error) *DomainError {
	return New(ErrTypeConfiguration, message, err)
}

func Extraction(message string, err error) *DomainError {
	return New(ErrTypeExtraction, message, err)
}

func API(message string, err error) *DomainError {
	return New(ErrTypeAPI, message, err)
}

func InvalidResponse(message string, err error) *DomainError {
	return New(ErrTypeInvalidResponse, message, err)
}

func Persistence(message string, err error) *DomainError {
	return New(ErrTypePersistence, message, err)
}

func InvalidInput(message string, err error) *DomainError {
	return New(ErrTypeInvalidInput, message, err)
}

func NotFound(message string, err error) *DomainError {
	return New(ErrTypeNotFound, message, err)
}

func Unavailable(message string, err error) *DomainError {
	return New(ErrTypeUnavailable, message, err)
}

func Internal(message string, err error) *DomainError {
	return New(ErrTypeInternal, message, err)
}

// TypeOf returns the type of the outermost DomainError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var de *DomainError
	if stderrors.As(err, &de) {
		return de.Type
	}
	return ""
}

// IsType reports whether err carries a DomainError of one of the given types.
func IsType(err error, types ...ErrorType) bool {
	t := TypeOf(err)
	if t == "" {
		return false
	}
	for _, want := range types {
		if t == want {
			return true
		}
	}
	return false
}

// Message is the human-readable text shown to whoever triggered the operation.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if stderrors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}
