package apiclient

import "fmt"

// TransportError is returned when the guardian service could not be reached
// or the request could not be completed. Its message is the one of the
// underlying cause.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ServerError is returned when the guardian service answered with a non
// success status or with an explicit failure in the payload. Message is safe
// to display to the user.
type ServerError struct {
	Status  int
	Message string
	// Err holds the decoding error, if the payload could not be read.
	Err error
}

func (e *ServerError) Error() string {
	return e.Message
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

func statusMessage(what string, status int) string {
	return fmt.Sprintf("failed to %s (HTTP %d)", what, status)
}
