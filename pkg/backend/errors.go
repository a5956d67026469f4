package backend

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNetwork              = errors.New("network failure")
	ErrRejected             = errors.New("backend rejected request")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyTitle           = errors.New("title cannot be empty")
	ErrEmptyQuery           = errors.New("search query cannot be empty")
)

// NetworkFailure reports a request that could not complete.
type NetworkFailure struct {
	Op  string
	Err error
}

func (e *NetworkFailure) Error() string {
	if e == nil {
		return ErrNetwork.Error()
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrNetwork, e.Err)
}

func (e *NetworkFailure) Unwrap() error { return e.Err }

func (e *NetworkFailure) Is(target error) bool { return target == ErrNetwork }

// BackendRejection reports a completed request the backend answered with a
// failure.
type BackendRejection struct {
	Op         string
	Message    string
	StatusCode int
	// Cause is set when the rejection maps to a known sentinel.
	Cause error
}

func (e *BackendRejection) Error() string {
	if e == nil {
		return ErrRejected.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *BackendRejection) Unwrap() error { return e.Cause }

func (e *BackendRejection) Is(target error) bool { return target == ErrRejected }

func reject(op string, cause error) error {
	return &BackendRejection{Op: op, Message: cause.Error(), Cause: cause}
}

// Message returns the text shown to the user for err.
func Message(err error) string {
	var rejection *BackendRejection
	if errors.As(err, &rejection) {
		return rejection.Message
	}
	var network *NetworkFailure
	if errors.As(err, &network) {
		return fmt.Sprintf("%s: %v", ErrNetwork, network.Err)
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
