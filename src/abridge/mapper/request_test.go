package mapper

import (
	"testing"

	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/factory"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/command"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/textpos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
)

func TestRequestToInitializeParams(t *testing.T) {
	req := factory.JSONRPCRequest(protocol.MethodInitialize, protocol.InitializeParams{ProcessID: 42})
	params, err := RequestToInitializeParams(req)
	require.NoError(t, err)
	assert.Equal(t, int32(42), params.ProcessID)
}

func TestRequestToStartAgdaParams(t *testing.T) {
	req := factory.JSONRPCRequest("abridge/start", entity.StartAgdaParams{
		WorkspaceRoot: "/home/user/proj",
		AgdaPath:      "/usr/bin/agda",
		AgdaArgs:      []string{"--no-libraries"},
	})
	params, err := RequestToStartAgdaParams(req)
	require.NoError(t, err)
	assert.Equal(t, "/home/user/proj", params.WorkspaceRoot)
	assert.Equal(t, "/usr/bin/agda", params.AgdaPath)
	assert.Equal(t, []string{"--no-libraries"}, params.AgdaArgs)
}

func TestRequestToSubmitParams(t *testing.T) {
	req := factory.JSONRPCRequest("abridge/submit", entity.SubmitParams{
		File:    "/home/user/proj/Foo.agda",
		Command: "Cmd_load",
	})
	params, err := RequestToSubmitParams(req)
	require.NoError(t, err)
	assert.Equal(t, "Cmd_load", params.Command)
}

func TestSubmitParamsToCommand(t *testing.T) {
	t.Run("full mapping", func(t *testing.T) {
		params := &entity.SubmitParams{
			File:          "/home/user/proj/Foo.agda",
			Command:       "Cmd_give",
			GoalID:        3,
			Expression:    "suc n",
			Normalization: "Normalised",
			Range: &entity.SubmitRange{
				Start: entity.SubmitPos{Offset: 10, Line: 2, Col: 1},
				End:   entity.SubmitPos{Offset: 15, Line: 2, Col: 6},
			},
		}

		req, err := SubmitParamsToCommand(params)
		require.NoError(t, err)
		assert.Equal(t, command.KindGive, req.Kind)
		assert.Equal(t, "/home/user/proj/Foo.agda", req.FilePath)
		assert.Equal(t, 3, req.GoalID)
		assert.Equal(t, "suc n", req.Expression)
		assert.Equal(t, command.Normalised, req.Normalization)
		require.NotNil(t, req.Range)
		assert.Equal(t, textpos.CodePoint(10), req.Range.Start.Offset)
		assert.Equal(t, textpos.CodePoint(6), req.Range.End.Col)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := SubmitParamsToCommand(&entity.SubmitParams{Command: "Cmd_load"})
		assert.Error(t, err)
	})

	t.Run("missing command", func(t *testing.T) {
		_, err := SubmitParamsToCommand(&entity.SubmitParams{File: "/a/b.agda"})
		assert.Error(t, err)
	})
}
