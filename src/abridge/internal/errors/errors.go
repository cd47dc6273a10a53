// Package errors defines the error taxonomy of the bridge. Session-fatal
// conditions (startup and process failures) carry enough captured state to
// be surfaced once as a single actionable message; everything else is
// recoverable and stays in the logs.
package errors

import (
	stderr "errors"
	"fmt"

	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
)

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// ErrSessionTerminated reports that a pending command was cut short by a
	// kill, restart or unexpected process exit.
	ErrSessionTerminated = New("session terminated")
	// ErrNotReady reports a write attempted while the process cannot accept
	// a command.
	ErrNotReady = New("process is not ready for a command")
)

// StartupError is fatal to the session: the binary failed to spawn, reported
// a version below the minimum, or never produced its first prompt. It is
// surfaced once and never auto-retried.
type StartupError struct {
	Reason string
	Stderr string
	Err    error
}

// Error is an implementation of the error interface.
func (e *StartupError) Error() string {
	msg := fmt.Sprintf("agda failed to start: %s", e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s\nstderr:\n%s", msg, e.Stderr)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *StartupError) Unwrap() error {
	return e.Err
}

// VersionBelowMinimumError reports a binary too old for the JSON interaction
// protocol. Fatal to the session: no process is started.
type VersionBelowMinimumError struct {
	Detected agdaversion.Version
	Minimum  agdaversion.Version
}

// Error is an implementation of the error interface.
func (e *VersionBelowMinimumError) Error() string {
	return fmt.Sprintf("agda %s is below the minimum supported version %s", e.Detected, e.Minimum)
}

// ProcessExitError is fatal to the session: the process terminated while a
// session was live. In-flight commands reject with the captured exit state.
type ProcessExitError struct {
	ExitCode int
	Signal   string
	Stderr   string
}

// Error is an implementation of the error interface.
func (e *ProcessExitError) Error() string {
	msg := fmt.Sprintf("agda exited unexpectedly with code %d", e.ExitCode)
	if e.Signal != "" {
		msg = fmt.Sprintf("agda terminated by signal %s", e.Signal)
	}
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s\nstderr:\n%s", msg, e.Stderr)
	}
	return msg
}

// CapabilityError rejects a command whose wire shape requires a newer
// process than the one running. Raised before any I/O.
type CapabilityError struct {
	Operation string
	Required  agdaversion.Version
	Actual    agdaversion.Version
}

// Error is an implementation of the error interface.
func (e *CapabilityError) Error() string {
	return fmt.Sprintf("%s requires agda >= %s (running %s)", e.Operation, e.Required, e.Actual)
}

// IsSessionFatal reports whether the error ends the session, as opposed to a
// per-command or per-line condition.
func IsSessionFatal(e error) bool {
	var startup *StartupError
	var tooOld *VersionBelowMinimumError
	var exit *ProcessExitError
	return stderr.As(e, &startup) || stderr.As(e, &tooOld) || stderr.As(e, &exit)
}
