package model

import (
	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
)

// Session is the repository layer model for an individual editor session.
type Session struct {
	UUID          uuid.UUID
	Conn          *jsonrpc2.Conn
	WorkspaceRoot string
	AgdaPath      string
	AgdaArgs      []string
	Version       agdaversion.Version
	State         string
	PID           int
}
