package mapper

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agda-tools/agda-bridge/src/abridge/entity"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/command"
	"github.com/agda-tools/agda-bridge/src/abridge/internal/textpos"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

func wrapErrParse(err error) error {
	return fmt.Errorf("parsing request parameters: %w", err)
}

// RequestToInitializeParams maps the parameters from a jsonrpc2.Request into protocol.InitializeParams.
func RequestToInitializeParams(req jsonrpc2.Request) (*protocol.InitializeParams, error) {
	params := protocol.InitializeParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToInitializedParams maps the parameters from a jsonrpc2.Request into protocol.InitializedParams.
func RequestToInitializedParams(req jsonrpc2.Request) (*protocol.InitializedParams, error) {
	params := protocol.InitializedParams{}
	if len(req.Params()) > 0 {
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return nil, wrapErrParse(err)
		}
	}
	return &params, nil
}

// RequestToStartAgdaParams maps the parameters from a jsonrpc2.Request into entity.StartAgdaParams.
func RequestToStartAgdaParams(req jsonrpc2.Request) (*entity.StartAgdaParams, error) {
	params := entity.StartAgdaParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// RequestToSubmitParams maps the parameters from a jsonrpc2.Request into entity.SubmitParams.
func RequestToSubmitParams(req jsonrpc2.Request) (*entity.SubmitParams, error) {
	params := entity.SubmitParams{}
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return nil, wrapErrParse(err)
	}
	return &params, nil
}

// SubmitParamsToCommand maps submitted parameters onto a command request.
// Validation of the operation itself happens at encode time, where the
// process version is known.
func SubmitParamsToCommand(p *entity.SubmitParams) (command.Request, error) {
	if p.File == "" {
		return command.Request{}, errors.New("submit parameters are missing a file path")
	}
	if p.Command == "" {
		return command.Request{}, errors.New("submit parameters are missing a command")
	}

	req := command.Request{
		FilePath:      p.File,
		Kind:          command.Kind(p.Command),
		Args:          p.Args,
		Backend:       p.Backend,
		GoalID:        p.GoalID,
		Expression:    p.Expression,
		Normalization: command.Normalization(p.Normalization),
		ComputeMode:   command.ComputeMode(p.ComputeMode),
		Remove:        p.Remove,
	}
	if p.Range != nil {
		req.Range = &command.SourceRange{
			Start: submitPosToSourcePos(p.Range.Start),
			End:   submitPosToSourcePos(p.Range.End),
		}
	}
	return req, nil
}

func submitPosToSourcePos(p entity.SubmitPos) command.SourcePos {
	return command.SourcePos{
		Offset: textpos.CodePoint(p.Offset),
		Line:   p.Line,
		Col:    textpos.CodePoint(p.Col),
	}
}
