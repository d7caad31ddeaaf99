package executor

import (
	"errors"
	"fmt"

	"github.com/studiowebux/blitzbar/internal/types"
)

// ErrTransport matches every failure to reach the service
var ErrTransport = errors.New("transport error")

// ErrEngineUsed is returned when Execute is called twice on the same engine
var ErrEngineUsed = errors.New("engine already executed")

// TransportError is a connection or protocol level failure. It is never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: could not reach service: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Kind() types.ErrorKind { return types.KindTransport }

// AuthenticationError is the service rejecting the login credentials
type AuthenticationError struct {
	Code   string
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s (%s)", e.Reason, e.Code)
}

func (e *AuthenticationError) Kind() types.ErrorKind { return types.KindAuthentication }

// ServiceError is any other error document returned by the service, such as
// throttling on submit
type ServiceError struct {
	Op     string
	Code   string
	Reason string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Reason)
}

func (e *ServiceError) Kind() types.ErrorKind { return types.KindService }
