package exchange

import (
	"errors"
	"fmt"
)

// Errors returned by Session.Start.
var (
	ErrAlreadyRunning   = errors.New("exchange session is already running")
	ErrEmptyCommandList = errors.New("command list is empty")
)

// TransportError is a failure of the serial link. It ends the current run.
type TransportError struct {
	Op  string // "open", "flush", "write", "read"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
