// Package wire decodes the JSON interaction protocol spoken by agda
// --interaction-json: one JSON value per line on stdout, and a literal
// "JSON> " prompt (no line terminator) whenever the process is idle.
//
// Responses form a closed set of kinds; consumers switch on Kind and read
// the matching payload field. There is deliberately no interface hierarchy
// here, so every consumption site can be checked for exhaustiveness.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/agda-tools/agda-bridge/src/abridge/internal/textpos"
)

// Kind tags a top-level response record.
type Kind string

// Top-level response kinds.
const (
	KindHighlightingInfo  Kind = "HighlightingInfo"
	KindStatus            Kind = "Status"
	KindJumpToError       Kind = "JumpToError"
	KindInteractionPoints Kind = "InteractionPoints"
	KindGiveAction        Kind = "GiveAction"
	KindMakeCase          Kind = "MakeCase"
	KindSolveAll          Kind = "SolveAll"
	KindDisplayInfo       Kind = "DisplayInfo"
	KindRunningInfo       Kind = "RunningInfo"
	KindClearRunningInfo  Kind = "ClearRunningInfo"
	KindClearHighlighting Kind = "ClearHighlighting"
	KindDoneAborting      Kind = "DoneAborting"
	KindDoneExiting       Kind = "DoneExiting"
)

// Response is one decoded record. Kind selects which payload field is set;
// kinds without a payload (ClearRunningInfo, DoneAborting, DoneExiting) set
// none.
type Response struct {
	Kind Kind `json:"kind"`

	Status            *Status            `json:"status,omitempty"`
	JumpToError       *JumpToError       `json:"jumpToError,omitempty"`
	InteractionPoints []InteractionPoint `json:"interactionPoints,omitempty"`
	GiveAction        *GiveAction        `json:"giveAction,omitempty"`
	MakeCase          *MakeCase          `json:"makeCase,omitempty"`
	Solutions         []Solution         `json:"solutions,omitempty"`
	Info              *DisplayInfo       `json:"info,omitempty"`
	RunningInfo       *RunningInfo       `json:"runningInfo,omitempty"`
	Highlighting      *Highlighting      `json:"highlighting,omitempty"`
	ClearHighlighting *ClearHighlighting `json:"clearHighlighting,omitempty"`
}

// Position is a point in a source file as Agda addresses it.
type Position struct {
	Pos  textpos.CodePoint `json:"pos"`
	Line int               `json:"line"`
	Col  textpos.CodePoint `json:"col"`
}

// Interval is a half-open source span.
type Interval struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// InteractionPoint identifies a hole, with its source range when the
// process supplied one. Older processes send bare integer ids.
type InteractionPoint struct {
	ID    int
	Range []Interval
}

// UnmarshalJSON accepts both the modern object shape and the legacy bare
// integer id.
func (p *InteractionPoint) UnmarshalJSON(data []byte) error {
	var id int
	if err := json.Unmarshal(data, &id); err == nil {
		p.ID = id
		p.Range = nil
		return nil
	}
	var obj struct {
		ID    int        `json:"id"`
		Range []Interval `json:"range"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.ID = obj.ID
	p.Range = obj.Range
	return nil
}

// MarshalJSON always emits the modern object shape.
func (p InteractionPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    int        `json:"id"`
		Range []Interval `json:"range,omitempty"`
	}{ID: p.ID, Range: p.Range})
}

// Status reports the process's display toggles and whether the loaded
// module checked without unsolved metas.
type Status struct {
	ShowImplicitArguments   bool `json:"showImplicitArguments"`
	ShowIrrelevantArguments bool `json:"showIrrelevantArguments"`
	Checked                 bool `json:"checked"`
}

// JumpToError asks the editor to move the cursor to an error position.
// Position counts code points from the start of the file.
type JumpToError struct {
	Filepath string            `json:"filepath"`
	Position textpos.CodePoint `json:"position"`
}

// GiveResult is what the process decided to put into a hole: replacement
// text, or an instruction to parenthesize the existing hole text.
type GiveResult struct {
	Expression string `json:"expression"`
	Paren      bool   `json:"paren,omitempty"`
}

// UnmarshalJSON accepts {"str": ...}, {"paren": ...} and a bare string.
func (g *GiveResult) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		g.Expression = s
		return nil
	}
	var obj struct {
		Str   *string `json:"str"`
		Paren *bool   `json:"paren"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Str != nil {
		g.Expression = *obj.Str
	}
	if obj.Paren != nil {
		g.Paren = *obj.Paren
	}
	return nil
}

// GiveAction reports the outcome of a give or refine.
type GiveAction struct {
	InteractionPoint InteractionPoint `json:"interactionPoint"`
	GiveResult       GiveResult       `json:"giveResult"`
}

// MakeCase carries the clauses produced by a case split.
type MakeCase struct {
	Variant          string           `json:"variant"`
	Clauses          []string         `json:"clauses"`
	InteractionPoint InteractionPoint `json:"interactionPoint"`
}

// Solution is one solved goal from a solve-all/solve-one run.
type Solution struct {
	InteractionPoint InteractionPoint `json:"interactionPoint"`
	Expression       string           `json:"expression"`
}

// RunningInfo is a progress message emitted while checking.
type RunningInfo struct {
	DebugLevel int    `json:"debugLevel"`
	Message    string `json:"message"`
}

// DefinitionSite points a highlighting token at its definition.
type DefinitionSite struct {
	Filepath string            `json:"filepath"`
	Position textpos.CodePoint `json:"position"`
}

// HighlightingToken is one highlighted span with its syntactic atoms.
type HighlightingToken struct {
	Range          []textpos.CodePoint `json:"range"`
	Atoms          []string            `json:"atoms"`
	TokenBased     string              `json:"tokenBased"`
	Note           string              `json:"note"`
	DefinitionSite *DefinitionSite     `json:"definitionSite"`
}

// Highlighting carries highlighting either inline (Direct) or as a path to
// a temp file holding the payload (indirect).
type Highlighting struct {
	Direct   bool                `json:"direct"`
	Remove   bool                `json:"remove"`
	Filepath string              `json:"filepath,omitempty"`
	Payload  []HighlightingToken `json:"payload,omitempty"`
}

// ClearHighlighting asks the editor to drop decorations.
type ClearHighlighting struct {
	TokenBased string `json:"tokenBased"`
}

type envelope struct {
	Kind Kind `json:"kind"`

	Status            *Status           `json:"status"`
	Filepath          string            `json:"filepath"`
	Position          textpos.CodePoint `json:"position"`
	InteractionPoints json.RawMessage   `json:"interactionPoints"`
	InteractionPoint  *InteractionPoint `json:"interactionPoint"`
	GiveResult        *GiveResult       `json:"giveResult"`
	Variant           string            `json:"variant"`
	Clauses           []string          `json:"clauses"`
	Solutions         []Solution        `json:"solutions"`
	Info              json.RawMessage   `json:"info"`
	DebugLevel        int               `json:"debugLevel"`
	Message           string            `json:"message"`
	Direct            *bool             `json:"direct"`
	TokenBased        string            `json:"tokenBased"`
}

// Decode parses one line of process output into a Response. The
// diagnostic-info payload of DisplayInfo records is normalized here, at the
// decode boundary, so no raw cross-version shape escapes this package.
func Decode(line []byte) (Response, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Response{}, fmt.Errorf("decoding response line: %w", err)
	}

	resp := Response{Kind: env.Kind}
	switch env.Kind {
	case KindStatus:
		resp.Status = env.Status
		if resp.Status == nil {
			resp.Status = &Status{}
		}
	case KindJumpToError:
		resp.JumpToError = &JumpToError{Filepath: env.Filepath, Position: env.Position}
	case KindInteractionPoints:
		var points []InteractionPoint
		if len(env.InteractionPoints) > 0 {
			if err := json.Unmarshal(env.InteractionPoints, &points); err != nil {
				return Response{}, fmt.Errorf("decoding interaction points: %w", err)
			}
		}
		resp.InteractionPoints = points
	case KindGiveAction:
		action := &GiveAction{}
		if env.InteractionPoint != nil {
			action.InteractionPoint = *env.InteractionPoint
		}
		if env.GiveResult != nil {
			action.GiveResult = *env.GiveResult
		}
		resp.GiveAction = action
	case KindMakeCase:
		resp.MakeCase = &MakeCase{Variant: env.Variant, Clauses: env.Clauses}
		if env.InteractionPoint != nil {
			resp.MakeCase.InteractionPoint = *env.InteractionPoint
		}
	case KindSolveAll:
		resp.Solutions = env.Solutions
	case KindDisplayInfo:
		info, err := decodeDisplayInfo(env.Info)
		if err != nil {
			return Response{}, err
		}
		resp.Info = info
	case KindRunningInfo:
		resp.RunningInfo = &RunningInfo{DebugLevel: env.DebugLevel, Message: env.Message}
	case KindHighlightingInfo:
		h, err := decodeHighlighting(line, env)
		if err != nil {
			return Response{}, err
		}
		resp.Highlighting = h
	case KindClearHighlighting:
		resp.ClearHighlighting = &ClearHighlighting{TokenBased: env.TokenBased}
	case KindClearRunningInfo, KindDoneAborting, KindDoneExiting:
		// No payload.
	default:
		return Response{}, fmt.Errorf("unknown response kind %q", env.Kind)
	}
	return resp, nil
}

func decodeHighlighting(line []byte, env envelope) (*Highlighting, error) {
	h := &Highlighting{Direct: env.Direct == nil || *env.Direct, Filepath: env.Filepath}
	if !h.Direct {
		return h, nil
	}
	var body struct {
		Info struct {
			Remove  bool                `json:"remove"`
			Payload []HighlightingToken `json:"payload"`
		} `json:"info"`
	}
	if err := json.Unmarshal(line, &body); err != nil {
		return nil, fmt.Errorf("decoding highlighting payload: %w", err)
	}
	h.Remove = body.Info.Remove
	h.Payload = body.Info.Payload
	return h, nil
}
