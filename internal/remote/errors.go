package remote

import (
	"errors"
	"fmt"
)

// UnknownError is shown when nothing better can be extracted from an error.
const UnknownError = "Unknown error"

// ErrorBody is the structured part of a service failure.
type ErrorBody struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// Error is a failure reported by a remote service. Body is set when the
// service answered with a structured payload; Msg carries a flat message
// otherwise.
type Error struct {
	Service    string
	StatusCode int
	Body       *ErrorBody
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Body != nil && e.Body.Message != "" {
		msg = e.Body.Message
	}
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Service, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message maps any error to the single string shown in a toast: the
// structured body message when present, then the flat message, then
// UnknownError.
func Message(err error) string {
	if err == nil {
		return UnknownError
	}

	var re *Error
	if errors.As(err, &re) {
		if re.Body != nil && re.Body.Message != "" {
			return re.Body.Message
		}
		if re.Msg != "" {
			return re.Msg
		}
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return UnknownError
}
