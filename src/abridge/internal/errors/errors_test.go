package errors

import (
	"fmt"
	"testing"

	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStartupError(t *testing.T) {
	err := &StartupError{
		Reason: "no prompt within 10s",
		Stderr: "boot log",
		Err:    New("underlying"),
	}
	assert.Contains(t, err.Error(), "no prompt within 10s")
	assert.Contains(t, err.Error(), "boot log")
	assert.Contains(t, err.Error(), "underlying")
	assert.True(t, IsSessionFatal(fmt.Errorf("wrapped: %w", err)))
}

func TestVersionBelowMinimumError(t *testing.T) {
	err := &VersionBelowMinimumError{
		Detected: agdaversion.MustNew(2, 5, 2),
		Minimum:  agdaversion.MustNew(2, 6),
	}
	assert.Contains(t, err.Error(), "2.5.2")
	assert.Contains(t, err.Error(), "2.6")
	assert.True(t, IsSessionFatal(fmt.Errorf("starting: %w", err)))
}

func TestProcessExitError(t *testing.T) {
	t.Run("exit code", func(t *testing.T) {
		err := &ProcessExitError{ExitCode: 2, Stderr: "tail"}
		assert.Contains(t, err.Error(), "code 2")
		assert.Contains(t, err.Error(), "tail")
	})

	t.Run("signal supersedes exit code", func(t *testing.T) {
		err := &ProcessExitError{ExitCode: -1, Signal: "killed"}
		assert.Contains(t, err.Error(), "signal killed")
	})

	assert.True(t, IsSessionFatal(&ProcessExitError{}))
}

func TestCapabilityError(t *testing.T) {
	err := &CapabilityError{
		Operation: "Cmd_autoAll",
		Required:  agdaversion.MustNew(2, 6, 0, 1),
		Actual:    agdaversion.MustNew(2, 6),
	}
	assert.Contains(t, err.Error(), "Cmd_autoAll")
	assert.Contains(t, err.Error(), "2.6.0.1")
	assert.False(t, IsSessionFatal(err))
}

func TestNotFound(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	wrapped := fmt.Errorf("lookup: %w", &UUIDNotFoundError{UUID: id})

	got, ok := NotFoundUUID(wrapped)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = NotFoundUUID(New("other"))
	assert.False(t, ok)
}
