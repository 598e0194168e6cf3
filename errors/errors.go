package errors

import "fmt"

var (
	// ErrRemoteUnavailable covers timeouts and refused/reset connections.
	// Always retried, never fatal.
	ErrRemoteUnavailable = fmt.Errorf("remote unavailable")
	// ErrRemoteProtocol covers malformed or unexpected response shapes.
	// The affected record is skipped, not the whole operation.
	ErrRemoteProtocol = fmt.Errorf("remote protocol error")
	ErrNotFound       = fmt.Errorf("not found")
	ErrWorkerPanic    = fmt.Errorf("worker panic")
)
