package crewapi

import (
	"errors"
	"fmt"
)

var (
	// ErrStatus marks a response with a non-success status code.
	ErrStatus = errors.New("unexpected status")
	// ErrTooLarge marks a response body above the size limit.
	ErrTooLarge = errors.New("response too large")
)

// NetworkError covers transport failures and non-success responses.
type NetworkError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
