// Package entity contains the domain logic for the agda-bridge daemon.
package entity

import (
	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/wire"
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
)

type keyType string

// SessionContextKey indicates the key to be used to identify the session UUID in the context.
const SessionContextKey keyType = "SessionUUID"

// SessionState describes where a session's agda process is in its lifecycle.
type SessionState string

// Session states. Busy and Ready alternate on command boundaries; Dead is
// terminal.
const (
	StateNotStarted SessionState = "notStarted"
	StateStarting   SessionState = "starting"
	StateReady      SessionState = "ready"
	StateBusy       SessionState = "busy"
	StateExiting    SessionState = "exiting"
	StateDead       SessionState = "dead"
)

// Terminal returns true once the session can no longer accept commands.
func (s SessionState) Terminal() bool {
	return s == StateDead
}

// Session entity representing one editor's attachment to one agda process.
type Session struct {
	UUID          uuid.UUID           `json:"uuid" zap:"uuid"`
	Conn          *jsonrpc2.Conn      `json:"-" zap:"-"`
	WorkspaceRoot string              `json:"workspaceRoot" zap:"workspaceRoot"`
	AgdaPath      string              `json:"agdaPath" zap:"agdaPath"`
	AgdaArgs      []string            `json:"agdaArgs" zap:"agdaArgs"`
	Version       agdaversion.Version `json:"version" zap:"version"`
	State         SessionState        `json:"state" zap:"state"`
	PID           int                 `json:"pid" zap:"pid"`
}

// EventKind discriminates the events a supervised process emits.
type EventKind string

// Event kinds.
const (
	// EventResponse carries one decoded record from the process's stdout.
	EventResponse EventKind = "response"
	// EventReady marks a ready prompt on stdout, ending a command window.
	EventReady EventKind = "ready"
	// EventFatal carries an error after which the process is unusable.
	EventFatal EventKind = "fatal"
	// EventExit reports process termination, voluntary or not.
	EventExit EventKind = "exit"
	// EventBinaryChanged reports that the agda executable on disk was
	// replaced or rewritten while the session was running.
	EventBinaryChanged EventKind = "binaryChanged"
)

// Event is one observation from a supervised process. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind     EventKind
	Response wire.Response
	Err      error
	ExitCode int
	Signal   string
}
