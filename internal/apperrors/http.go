package apperrors

import (
	"fmt"
	"net/http"
)

// FromStatus maps a non-2xx control-plane response to the taxonomy. The
// response body is carried in the message for diagnostics.
func FromStatus(op string, status int, body string) error {
	msg := fmt.Sprintf("%s: HTTP %d: %s", op, status, body)
	switch {
	case status == http.StatusNotFound:
		return &Error{Sentinel: ErrNotFound, Message: msg, Op: op}
	case status == http.StatusConflict:
		return &Error{Sentinel: ErrConflict, Message: msg, Op: op}
	case status >= 400 && status < 500:
		return &Error{Sentinel: ErrValidation, Message: msg, Op: op}
	default:
		return &Error{Sentinel: ErrTransport, Message: msg, Op: op}
	}
}
