// Package exitcode defines the skywindow CLI exit codes.
package exitcode

import (
	"errors"

	"github.com/large-farva/skywindow/internal/window"
)

const (
	// Success - command completed
	Success = 0

	// Failure - anything not covered below: an unreachable daemon, a
	// propagation failure, a cancelled search
	Failure = 1

	// InvalidArgument - a bad flag, location, time, or catalog
	// Don't retry: fix the input first
	InvalidArgument = 2
)

// For maps an error returned by a command onto its exit code.
func For(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, window.ErrInvalidArgument):
		return InvalidArgument
	default:
		return Failure
	}
}
