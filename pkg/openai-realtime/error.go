package openairealtime

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when sending on a transport that is not
// connected.
var ErrNotConnected = errors.New("openai-realtime: not connected")

// Error codes produced locally.
const (
	ErrorTypeClient = "client_error"

	ErrorCodeSendFailed       = "send_failed"
	ErrorCodeConnectionFailed = "connection_failed"
)

// Error represents an API error from OpenAI Realtime, or a local failure
// reported in the same shape.
type Error struct {
	// Type is the error type (e.g., "invalid_request_error").
	Type string `json:"type,omitzero"`

	// Code is the error code (e.g., "invalid_value").
	Code string `json:"code,omitzero"`

	// Message is the human-readable error message.
	Message string `json:"message,omitzero"`

	// Param is the parameter that caused the error, if applicable.
	Param string `json:"param,omitzero"`

	// EventID is the ID of the event that caused the error.
	EventID string `json:"event_id,omitzero"`

	// HTTPStatus is the HTTP status code, if applicable.
	HTTPStatus int `json:"-"`

	// Err is the local cause, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai-realtime: %s: %s", e.Code, e.Message)
	}
	if e.Type != "" {
		return fmt.Sprintf("openai-realtime: %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("openai-realtime: %s", e.Message)
}

// Unwrap returns the local cause.
func (e *Error) Unwrap() error { return e.Err }

// NewSendError wraps a failure to send ev.
func NewSendError(ev ClientEvent, err error) *Error {
	e := &Error{
		Type:    ErrorTypeClient,
		Code:    ErrorCodeSendFailed,
		Message: err.Error(),
		Err:     err,
	}
	if ev != nil {
		e.Message = fmt.Sprintf("send %s: %v", ev.EventType(), err)
		e.EventID = ev.Header().EventID
	}
	return e
}

// EventError contains error information from error events and failed
// transcriptions.
type EventError struct {
	Type    string `json:"type,omitzero"`
	Code    string `json:"code,omitzero"`
	Message string `json:"message,omitzero"`
	Param   string `json:"param,omitzero"`
	EventID string `json:"event_id,omitzero"`
}

// ToError converts EventError to Error.
func (e *EventError) ToError() *Error {
	return &Error{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Param:   e.Param,
		EventID: e.EventID,
	}
}

// DecodeError reports an inbound frame that could not be decoded. It does
// not end the event sequence.
type DecodeError struct {
	// Data is the raw frame.
	Data []byte
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("openai-realtime: decode event: %v", e.Err)
}

// Unwrap returns the underlying decode failure.
func (e *DecodeError) Unwrap() error { return e.Err }
