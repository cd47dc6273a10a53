package factory

import (
	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// JSONRPCRequest is a user-defined factory for a JSON-RPC request containing the specified method and parameters.
func JSONRPCRequest(method string, params interface{}) jsonrpc2.Request {
	req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), method, params)
	return req
}

// Session is a factory for a ready session against a current agda.
func Session() *entity.Session {
	return &entity.Session{
		UUID:          UUID(),
		WorkspaceRoot: "/home/user/proj",
		AgdaPath:      "/usr/bin/agda",
		Version:       agdaversion.MustNew(2, 6, 4),
		State:         entity.StateReady,
		PID:           4242,
	}
}
