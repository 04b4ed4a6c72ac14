package pipeline

import (
	"fmt"
	"net/http"
)

// ClientInputError is a request the caller must fix. Status is the HTTP
// status to answer with.
type ClientInputError struct {
	Status  int
	Message string
	Err     error
}

func (e *ClientInputError) Error() string {
	return e.Message
}

func (e *ClientInputError) Unwrap() error { return e.Err }

func badRequest(err error, format string, args ...any) *ClientInputError {
	return &ClientInputError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...), Err: err}
}

// ServerFault is an unexpected failure while assembling a report. Its
// details are logged, not shown to clients.
type ServerFault struct {
	Err error
}

func (e *ServerFault) Error() string {
	return fmt.Sprintf("analysis failed: %v", e.Err)
}

func (e *ServerFault) Unwrap() error { return e.Err }
