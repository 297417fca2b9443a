package aggregator

import (
	"fmt"
)

// ClientError describes a failed stats fetch. Code is the HTTP status when
// the aggregator answered, 0 otherwise.
type ClientError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	SatID   string `json:"sat_id,omitempty"`
	Err     error  `json:"-"`
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Code != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Code)
	}
	if e.SatID != "" {
		msg = fmt.Sprintf("%s for %s", msg, e.SatID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ClientError) Unwrap() error { return e.Err }

// Predefined error types
var (
	ErrRequestFailed   = &ClientError{Message: "aggregator request failed"}
	ErrBadStatus       = &ClientError{Message: "aggregator returned unexpected status"}
	ErrInvalidResponse = &ClientError{Message: "invalid response from aggregator"}
)

// Is matches on Message so wrapped instances compare equal to the predefined errors
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Message == e.Message
}

func newClientError(kind *ClientError, code int, satID string, err error) *ClientError {
	return &ClientError{Code: code, Message: kind.Message, SatID: satID, Err: err}
}
