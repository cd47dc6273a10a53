package entity

// StartAgdaParams are the parameters of an abridge/start request.
type StartAgdaParams struct {
	WorkspaceRoot string   `json:"workspaceRoot"`
	AgdaPath      string   `json:"agdaPath"`
	AgdaArgs      []string `json:"agdaArgs,omitempty"`
}

// SubmitPos is one bound of a submitted source range, in Agda's own
// addressing (code points, 1-based lines and columns).
type SubmitPos struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Col    int `json:"col"`
}

// SubmitRange is a source span attached to a submitted command.
type SubmitRange struct {
	Start SubmitPos `json:"start"`
	End   SubmitPos `json:"end"`
}

// SubmitParams are the parameters of an abridge/submit request. Command
// carries the operation name; only the fields that operation consults need
// to be populated.
type SubmitParams struct {
	File    string `json:"file"`
	Command string `json:"command"`

	Args          []string     `json:"args,omitempty"`
	Backend       string       `json:"backend,omitempty"`
	GoalID        int          `json:"goalId,omitempty"`
	Expression    string       `json:"expression,omitempty"`
	Normalization string       `json:"normalization,omitempty"`
	ComputeMode   string       `json:"computeMode,omitempty"`
	Range         *SubmitRange `json:"range,omitempty"`
	Remove        bool         `json:"remove,omitempty"`
}
