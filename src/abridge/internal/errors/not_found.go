package errors

import (
	stderr "errors"
	"fmt"

	"github.com/gofrs/uuid"
)

// UUIDNotFoundError is a service domain error for not found.
type UUIDNotFoundError struct {
	UUID uuid.UUID
}

// Error is an implementation of the error interface.
func (n *UUIDNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", n.UUID)
}

// NotFoundUUID returns a UUID and true if UUIDNotFoundError is part of the
// error chain.
func NotFoundUUID(e error) (_ uuid.UUID, ok bool) {
	var nf *UUIDNotFoundError
	if !stderr.As(e, &nf) {
		return uuid.Nil, false
	}
	return nf.UUID, true
}

// WorkspaceNotFoundError reports that no live session exists for a workspace.
type WorkspaceNotFoundError struct {
	WorkspaceRoot string
}

// Error is an implementation of the error interface.
func (n *WorkspaceNotFoundError) Error() string {
	return fmt.Sprintf("no session for workspace %q", n.WorkspaceRoot)
}

// WorkspaceConflictError reports an attempt to start a second live session
// in a workspace that already has one.
type WorkspaceConflictError struct {
	WorkspaceRoot string
	Existing      uuid.UUID
}

// Error is an implementation of the error interface.
func (n *WorkspaceConflictError) Error() string {
	return fmt.Sprintf("workspace %q already has live session %s", n.WorkspaceRoot, n.Existing)
}

// NoSessionFoundError indicates that a session cannot be found within the context.
type NoSessionFoundError struct{}

// Error is an implementation of the error interface.
func (n *NoSessionFoundError) Error() string {
	return "no session found in context"
}
