package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmptyCode indicates the submitted cell was blank.
	ErrEmptyCode = errors.New("No code was submitted -- did you select the correct cell?")
	// ErrNotAuthenticated indicates the server holds no usable GitHub token.
	ErrNotAuthenticated = errors.New("not authenticated with GitHub")
	// ErrSubmissionInFlight indicates another submission has not finished yet.
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	// ErrSubmissionTooSoon indicates a submission arrived inside the debounce window.
	ErrSubmissionTooSoon = errors.New("submitted too soon after the previous submission")
	// ErrAlreadyAuthenticated indicates the poller reached its terminal state.
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	// ErrPollInProgress indicates a poll session is already running.
	ErrPollInProgress = errors.New("authentication poll already in progress")
	// ErrPollCanceled indicates a poll session was canceled before it began polling.
	ErrPollCanceled = errors.New("authentication poll canceled")
	// ErrClosed indicates the component was disposed.
	ErrClosed = errors.New("closed")
	// ErrCellNotFound indicates a notebook cell index is out of range.
	ErrCellNotFound = errors.New("cell not found")
)

// NetworkError reports a transport failure where no response was received.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResponseError reports a non-2xx response. Message is the server's
// explanation when the body carried one.
type ResponseError struct {
	URL     string
	Status  int
	Message *string
}

func (e *ResponseError) Error() string {
	if e.Message != nil && *e.Message != "" {
		return fmt.Sprintf("response error: %s: status %d: %s", e.URL, e.Status, *e.Message)
	}
	return fmt.Sprintf("response error: %s: status %d", e.URL, e.Status)
}

// ParseError reports a body that is not valid JSON or does not match the
// declared response shape.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MessageOf extracts the best available server message from err, or nil.
func MessageOf(err error) *string {
	var respErr *ResponseError
	if errors.As(err, &respErr) && respErr.Message != nil {
		msg := *respErr.Message
		return &msg
	}
	return nil
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.Status == 404
}
