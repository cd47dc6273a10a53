package wire

import (
	"encoding/json"
)

// DisplayInfoKind tags the nested diagnostic-info union inside a
// DisplayInfo record.
type DisplayInfoKind string

// Diagnostic-info kinds.
const (
	InfoCompilationOk           DisplayInfoKind = "CompilationOk"
	InfoConstraints             DisplayInfoKind = "Constraints"
	InfoAllGoalsWarnings        DisplayInfoKind = "AllGoalsWarnings"
	InfoTime                    DisplayInfoKind = "Time"
	InfoError                   DisplayInfoKind = "Error"
	InfoIntroNotFound           DisplayInfoKind = "IntroNotFound"
	InfoIntroConstructorUnknown DisplayInfoKind = "IntroConstructorUnknown"
	InfoAuto                    DisplayInfoKind = "Auto"
	InfoModuleContents          DisplayInfoKind = "ModuleContents"
	InfoSearchAbout             DisplayInfoKind = "SearchAbout"
	InfoWhyInScope              DisplayInfoKind = "WhyInScope"
	InfoNormalForm              DisplayInfoKind = "NormalForm"
	InfoInferredType            DisplayInfoKind = "InferredType"
	InfoContext                 DisplayInfoKind = "Context"
	InfoVersion                 DisplayInfoKind = "Version"
	InfoGoalSpecific            DisplayInfoKind = "GoalSpecific"
)

// _noMessagePlaceholder stands in when an error report carries no usable
// message anywhere.
const _noMessagePlaceholder = "(no error message)"

// DisplayInfo is the normalized diagnostic-info payload. Warning, error and
// constraint lists are guaranteed to be plain text regardless of which wire
// shape the process used; the error message is guaranteed non-empty for
// Error records. Payload retains the verbatim info JSON for consumers that
// need kind-specific detail (goals, module contents, normal forms).
type DisplayInfo struct {
	Kind DisplayInfoKind `json:"kind"`

	Warnings    []string `json:"warnings,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	Message     string   `json:"message,omitempty"`

	InteractionPoint *InteractionPoint `json:"interactionPoint,omitempty"`
	Payload          json.RawMessage   `json:"payload,omitempty"`
}

type displayInfoEnvelope struct {
	Kind             DisplayInfoKind   `json:"kind"`
	Warnings         []json.RawMessage `json:"warnings"`
	Errors           []json.RawMessage `json:"errors"`
	Constraints      []json.RawMessage `json:"constraints"`
	Message          string            `json:"message"`
	Error            json.RawMessage   `json:"error"`
	Time             string            `json:"time"`
	Version          string            `json:"version"`
	Expr             string            `json:"expr"`
	InteractionPoint *InteractionPoint `json:"interactionPoint"`
}

func decodeDisplayInfo(raw json.RawMessage) (*DisplayInfo, error) {
	info := &DisplayInfo{}
	if len(raw) == 0 {
		return info, nil
	}
	var env displayInfoEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	info.Kind = env.Kind
	info.Warnings = flattenList(env.Warnings)
	info.Errors = flattenList(env.Errors)
	info.Constraints = flattenList(env.Constraints)
	info.InteractionPoint = env.InteractionPoint
	info.Payload = append(json.RawMessage(nil), raw...)

	switch {
	case env.Message != "":
		info.Message = env.Message
	case len(env.Error) > 0:
		// Some versions nest the report under "error" instead of a
		// top-level message; promote it.
		info.Message = flattenText(env.Error)
	case env.Time != "":
		info.Message = env.Time
	case env.Version != "":
		info.Message = env.Version
	case env.Expr != "":
		info.Message = env.Expr
	}
	if info.Kind == InfoError && info.Message == "" {
		info.Message = _noMessagePlaceholder
	}
	return info, nil
}

// Normalize re-applies the diagnostic-info guarantees to an already decoded
// record. Decoding normalizes on the way in, so for records produced by
// Decode this is a no-op; it exists so callers holding hand-built or
// replayed records can rely on the same invariants. Idempotent by
// construction and never fails.
func Normalize(resp Response) Response {
	if resp.Kind != KindDisplayInfo || resp.Info == nil {
		return resp
	}
	info := *resp.Info
	if info.Kind == InfoError && info.Message == "" {
		info.Message = _noMessagePlaceholder
	}
	resp.Info = &info
	return resp
}

// flattenList reduces every element of a warning/error/constraint list to
// plain text.
func flattenList(raw []json.RawMessage) []string {
	if raw == nil {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, flattenText(r))
	}
	return out
}

// Wrapper object fields known to hold the displayable text, in lookup order.
var _textWrapperKeys = []string{"message", "warning", "error", "constraint"}

// flattenText reduces one diagnostic element to plain text: bare strings
// pass through, known wrapper objects are unwrapped (recursively), and
// anything unrecognized degrades to a pretty-printed structural dump so no
// information is ever dropped. It never fails.
func flattenText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range _textWrapperKeys {
			if inner, ok := obj[key]; ok {
				return flattenText(inner)
			}
		}
	}

	return structuralDump(raw)
}

func structuralDump(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(pretty)
}
