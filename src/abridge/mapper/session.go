package mapper

import (
	"context"

	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/errors"
	"github.com/agda-tools/agda-bridge/src/abridge/model"
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
)

// SessionToModel maps a Session entity to its model equivalent.
func SessionToModel(f *entity.Session) *model.Session {
	return &model.Session{
		UUID:          f.UUID,
		Conn:          f.Conn,
		WorkspaceRoot: f.WorkspaceRoot,
		AgdaPath:      f.AgdaPath,
		AgdaArgs:      f.AgdaArgs,
		Version:       f.Version,
		State:         string(f.State),
		PID:           f.PID,
	}
}

// ModelToSession maps a model Session to its entity equivalent.
func ModelToSession(f *model.Session) (*entity.Session, error) {
	return &entity.Session{
		UUID:          f.UUID,
		Conn:          f.Conn,
		WorkspaceRoot: f.WorkspaceRoot,
		AgdaPath:      f.AgdaPath,
		AgdaArgs:      f.AgdaArgs,
		Version:       f.Version,
		State:         entity.SessionState(f.State),
		PID:           f.PID,
	}, nil
}

// UUIDToSession initializes a new Session entity with the assigned uuid and connection.
func UUIDToSession(u uuid.UUID, c *jsonrpc2.Conn) *entity.Session {
	return &entity.Session{
		UUID:  u,
		Conn:  c,
		State: entity.StateNotStarted,
	}
}

// ContextToSessionUUID extracts the UUID from a context
func ContextToSessionUUID(c context.Context) (uuid.UUID, error) {
	s, ok := c.Value(entity.SessionContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, &errors.NoSessionFoundError{}
	}
	return s, nil
}
