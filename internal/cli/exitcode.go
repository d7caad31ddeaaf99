package cli

import (
	"errors"

	"github.com/studiowebux/blitzbar/internal/types"
)

// Process exit codes
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitUsage          = 2
	ExitAuthentication = 3
	ExitService        = 4
	ExitTransport      = 5
	ExitAborted        = 6
)

// ExitCode maps an error returned by a command to the process exit code
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrAborted) {
		return ExitAborted
	}
	switch types.KindOf(err) {
	case types.KindCompile, types.KindValidation:
		return ExitUsage
	case types.KindAuthentication:
		return ExitAuthentication
	case types.KindService:
		return ExitService
	case types.KindTransport:
		return ExitTransport
	}
	return ExitFailure
}
