package extraction

import (
	"errors"
	"fmt"
)

// NetworkError means the extraction service was unreachable or returned a
// failure status. The composer recovers by returning the user to input with
// the draft intact.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("extraction: network: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedResponseError means the service answered but the body did not
// match the expected JSON shape. Treated exactly like a network failure by
// callers.
type MalformedResponseError struct {
	Err  error
	Body string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("extraction: malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsNetwork reports whether the error chain contains a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsMalformed reports whether the error chain contains a
// MalformedResponseError.
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}

// snippet truncates a response body for error messages and logs.
func snippet(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
