// Package command renders editor operations into the textual IOTCM
// commands agda reads on stdin. Rendering is pure: given the same request
// and process version, Encode always produces the same single line of wire
// text, and performs no I/O.
package command

import (
	"github.com/agda-tools/agda-bridge/src/abridge/internal/textpos"
)

// Kind names a logical operation. The values double as the primary wire
// spelling; version-dependent respellings are handled at encode time.
type Kind string

// Operations.
const (
	KindLoad                  Kind = "Cmd_load"
	KindLoadNoMetas           Kind = "Cmd_load_no_metas"
	KindCompile               Kind = "Cmd_compile"
	KindConstraints           Kind = "Cmd_constraints"
	KindMetas                 Kind = "Cmd_metas"
	KindShowModuleContentsTop Kind = "Cmd_show_module_contents_toplevel"
	KindSearchAboutTop        Kind = "Cmd_search_about_toplevel"
	KindSolveAll              Kind = "Cmd_solveAll"
	KindSolveOne              Kind = "Cmd_solveOne"
	KindAutoOne               Kind = "Cmd_autoOne"
	KindAutoAll               Kind = "Cmd_autoAll"
	KindInferTop              Kind = "Cmd_infer_toplevel"
	KindComputeTop            Kind = "Cmd_compute_toplevel"
	KindWhyInScopeTop         Kind = "Cmd_why_in_scope_toplevel"
	KindShowVersion           Kind = "Cmd_show_version"
	KindAbort                 Kind = "Cmd_abort"
	KindExit                  Kind = "Cmd_exit"
	KindToggleImplicitArgs    Kind = "ToggleImplicitArgs"
	KindToggleIrrelevantArgs  Kind = "ToggleIrrelevantArgs"
	KindGive                  Kind = "Cmd_give"
	KindRefine                Kind = "Cmd_refine_or_intro"
	KindIntro                 Kind = "Cmd_intro"
	KindElaborateGive         Kind = "Cmd_elaborate_give"
	KindMakeCase              Kind = "Cmd_make_case"
	KindGoalType              Kind = "Cmd_goal_type"
	KindContext               Kind = "Cmd_context"
	KindGoalTypeContext       Kind = "Cmd_goal_type_context"
	KindGoalTypeContextInfer  Kind = "Cmd_goal_type_context_infer"
	KindGoalTypeContextCheck  Kind = "Cmd_goal_type_context_check"
	KindInfer                 Kind = "Cmd_infer"
	KindCompute               Kind = "Cmd_compute"
	KindWhyInScope            Kind = "Cmd_why_in_scope"
	KindShowModuleContents    Kind = "Cmd_show_module_contents"
	KindHelperFunction        Kind = "Cmd_helper_function"
	KindHighlight             Kind = "Cmd_highlight"
	KindTokenHighlighting     Kind = "Cmd_tokenHighlighting"
	KindLoadHighlightingInfo  Kind = "Cmd_load_highlighting_info"
	KindBackendTop            Kind = "Cmd_backend_top"
	KindBackendHole           Kind = "Cmd_backend_hole"
)

// Normalization controls how deeply displayed terms are reduced.
type Normalization string

// Normalization modes.
const (
	AsIs         Normalization = "AsIs"
	Simplified   Normalization = "Simplified"
	Instantiated Normalization = "Instantiated"
	HeadNormal   Normalization = "HeadNormal"
	Normalised   Normalization = "Normalised"
)

func (n Normalization) orDefault() Normalization {
	if n == "" {
		return Simplified
	}
	return n
}

// ComputeMode selects the evaluation strategy for compute commands.
type ComputeMode string

// Compute modes.
const (
	DefaultCompute  ComputeMode = "DefaultCompute"
	IgnoreAbstract  ComputeMode = "IgnoreAbstract"
	UseShowInstance ComputeMode = "UseShowInstance"
	HeadCompute     ComputeMode = "HeadCompute"
)

func (m ComputeMode) orDefault() ComputeMode {
	if m == "" {
		return DefaultCompute
	}
	return m
}

// HighlightingLevel is the IOTCM interaction-mode tag.
type HighlightingLevel string

// Highlighting levels.
const (
	LevelNone           HighlightingLevel = "None"
	LevelNonInteractive HighlightingLevel = "NonInteractive"
	LevelInteractive    HighlightingLevel = "Interactive"
)

// HighlightingMethod selects inline or temp-file highlighting delivery.
type HighlightingMethod string

// Highlighting methods.
const (
	MethodDirect   HighlightingMethod = "Direct"
	MethodIndirect HighlightingMethod = "Indirect"
)

// SourcePos is one bound of a highlight-refresh range, in Agda's own
// addressing.
type SourcePos struct {
	Offset textpos.CodePoint
	Line   int
	Col    textpos.CodePoint
}

// SourceRange is the span a highlight refresh applies to.
type SourceRange struct {
	Start SourcePos
	End   SourcePos
}

// Request is an immutable description of one command to send. Only the
// fields relevant to Kind are consulted at encode time.
type Request struct {
	FilePath string
	Kind     Kind

	// IOTCM tags; Encode defaults them to NonInteractive/Direct.
	Level  HighlightingLevel
	Method HighlightingMethod

	Args          []string
	Backend       string
	GoalID        int
	Expression    string
	Normalization Normalization
	ComputeMode   ComputeMode
	Range         *SourceRange
	Remove        bool
}

// Load checks a file, producing goals and highlighting.
func Load(path string, args []string) Request {
	return Request{FilePath: path, Kind: KindLoad, Args: args}
}

// LoadNoMetas checks a file, failing if any metas remain unsolved.
func LoadNoMetas(path string, args []string) Request {
	return Request{FilePath: path, Kind: KindLoadNoMetas, Args: args}
}

// Compile runs a backend over an already checked file.
func Compile(path, backend string, args []string) Request {
	return Request{FilePath: path, Kind: KindCompile, Backend: backend, Args: args}
}

// Constraints lists the open constraints.
func Constraints(path string) Request {
	return Request{FilePath: path, Kind: KindConstraints}
}

// Metas lists the open goals.
func Metas(path string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindMetas, Normalization: normalization}
}

// Give fills a hole with an expression.
func Give(path string, goalID int, expression string) Request {
	return Request{FilePath: path, Kind: KindGive, GoalID: goalID, Expression: expression}
}

// Refine refines a hole with an expression, introducing fresh holes for
// missing arguments.
func Refine(path string, goalID int, expression string) Request {
	return Request{FilePath: path, Kind: KindRefine, GoalID: goalID, Expression: expression}
}

// Intro introduces a constructor into an empty hole.
func Intro(path string, goalID int) Request {
	return Request{FilePath: path, Kind: KindIntro, GoalID: goalID}
}

// ElaborateGive type-checks an expression and gives the elaborated term.
func ElaborateGive(path string, goalID int, expression string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindElaborateGive, GoalID: goalID, Expression: expression, Normalization: normalization}
}

// MakeCase splits a hole on a variable.
func MakeCase(path string, goalID int, variable string) Request {
	return Request{FilePath: path, Kind: KindMakeCase, GoalID: goalID, Expression: variable}
}

// GoalType shows a goal's type.
func GoalType(path string, goalID int, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindGoalType, GoalID: goalID, Normalization: normalization}
}

// Context shows the variables in scope at a goal.
func Context(path string, goalID int, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindContext, GoalID: goalID, Normalization: normalization}
}

// GoalTypeContext shows a goal's type together with its context.
func GoalTypeContext(path string, goalID int, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindGoalTypeContext, GoalID: goalID, Normalization: normalization}
}

// GoalTypeContextInfer additionally infers the type of an expression.
func GoalTypeContextInfer(path string, goalID int, expression string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindGoalTypeContextInfer, GoalID: goalID, Expression: expression, Normalization: normalization}
}

// GoalTypeContextCheck additionally checks an expression against the goal.
func GoalTypeContextCheck(path string, goalID int, expression string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindGoalTypeContextCheck, GoalID: goalID, Expression: expression, Normalization: normalization}
}

// Infer infers the type of an expression at a goal.
func Infer(path string, goalID int, expression string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindInfer, GoalID: goalID, Expression: expression, Normalization: normalization}
}

// InferTop infers the type of an expression at top level.
func InferTop(path, expression string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindInferTop, Expression: expression, Normalization: normalization}
}

// Compute evaluates an expression at a goal.
func Compute(path string, goalID int, expression string, mode ComputeMode) Request {
	return Request{FilePath: path, Kind: KindCompute, GoalID: goalID, Expression: expression, ComputeMode: mode}
}

// ComputeTop evaluates an expression at top level.
func ComputeTop(path, expression string, mode ComputeMode) Request {
	return Request{FilePath: path, Kind: KindComputeTop, Expression: expression, ComputeMode: mode}
}

// AutoOne runs the automatic prover on one goal.
func AutoOne(path string, goalID int, hint string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindAutoOne, GoalID: goalID, Expression: hint, Normalization: normalization}
}

// AutoAll runs the automatic prover on every goal.
func AutoAll(path string) Request {
	return Request{FilePath: path, Kind: KindAutoAll}
}

// SolveOne solves one constraint-determined goal.
func SolveOne(path string, goalID int, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindSolveOne, GoalID: goalID, Normalization: normalization}
}

// SolveAll solves every constraint-determined goal.
func SolveAll(path string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindSolveAll, Normalization: normalization}
}

// ShowModuleContents lists a module's contents relative to a goal.
func ShowModuleContents(path string, goalID int, module string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindShowModuleContents, GoalID: goalID, Expression: module, Normalization: normalization}
}

// ShowModuleContentsTop lists a module's contents at top level.
func ShowModuleContentsTop(path, module string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindShowModuleContentsTop, Expression: module, Normalization: normalization}
}

// SearchAboutTop searches definitions mentioning a name.
func SearchAboutTop(path, name string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindSearchAboutTop, Expression: name, Normalization: normalization}
}

// WhyInScope explains how a name at a goal came into scope.
func WhyInScope(path string, goalID int, name string) Request {
	return Request{FilePath: path, Kind: KindWhyInScope, GoalID: goalID, Expression: name}
}

// WhyInScopeTop explains how a top-level name came into scope.
func WhyInScopeTop(path, name string) Request {
	return Request{FilePath: path, Kind: KindWhyInScopeTop, Expression: name}
}

// HelperFunction produces the type a helper function would need.
func HelperFunction(path string, goalID int, expression string, normalization Normalization) Request {
	return Request{FilePath: path, Kind: KindHelperFunction, GoalID: goalID, Expression: expression, Normalization: normalization}
}

// ToggleImplicitArgs toggles display of implicit arguments.
func ToggleImplicitArgs(path string) Request {
	return Request{FilePath: path, Kind: KindToggleImplicitArgs}
}

// ToggleIrrelevantArgs toggles display of irrelevant arguments.
func ToggleIrrelevantArgs(path string) Request {
	return Request{FilePath: path, Kind: KindToggleIrrelevantArgs}
}

// Highlight refreshes highlighting for a span after a give.
func Highlight(path string, goalID int, rng SourceRange, content string) Request {
	return Request{FilePath: path, Kind: KindHighlight, GoalID: goalID, Range: &rng, Expression: content}
}

// TokenHighlighting requests token-based highlighting for a file.
func TokenHighlighting(path string, remove bool) Request {
	return Request{FilePath: path, Kind: KindTokenHighlighting, Remove: remove}
}

// LoadHighlightingInfo re-reads highlighting for an already checked file.
func LoadHighlightingInfo(path string) Request {
	return Request{FilePath: path, Kind: KindLoadHighlightingInfo}
}

// ShowVersion asks the process to report its version.
func ShowVersion(path string) Request {
	return Request{FilePath: path, Kind: KindShowVersion}
}

// Abort asks the process to abort the current command. It is delivered as
// an ordinary queued command, not an out-of-band interrupt.
func Abort(path string) Request {
	return Request{FilePath: path, Kind: KindAbort}
}

// Exit asks the process to terminate voluntarily.
func Exit(path string) Request {
	return Request{FilePath: path, Kind: KindExit}
}

// BackendTop runs a backend-specific top-level command.
func BackendTop(path, backend, cmd string) Request {
	return Request{FilePath: path, Kind: KindBackendTop, Backend: backend, Expression: cmd}
}

// BackendHole runs a backend-specific command at a goal.
func BackendHole(path, backend string, goalID int, cmd string) Request {
	return Request{FilePath: path, Kind: KindBackendHole, Backend: backend, GoalID: goalID, Expression: cmd}
}
