package models

import "errors"

// OpError is the structured failure shape every store operation returns to
// its caller. Status carries the remote status code when one exists, zero
// otherwise.
type OpError struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

func (e *OpError) Error() string {
	return e.Message
}

// NewOpError builds an OpError from a message and optional status.
func NewOpError(message string, status int) *OpError {
	return &OpError{Message: message, Status: status}
}

// NormalizeError converts any failure crossing a store boundary into an
// OpError. Structured remote failures pass through unchanged; anything else
// is wrapped, falling back to "Unknown error" when the cause carries no
// message.
func NormalizeError(err error) *OpError {
	if err == nil {
		return nil
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr
	}

	msg := err.Error()
	if msg == "" {
		msg = "Unknown error"
	}
	return &OpError{Message: msg}
}
