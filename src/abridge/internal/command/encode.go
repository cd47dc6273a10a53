package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
)

// Encode renders a request against the running process's version into one
// line of wire text (without the trailing line break). Hard-gated
// operations reject with a CapabilityError before any text is produced;
// soft-gated ones select among their version-dependent shapes.
func Encode(req Request, version agdaversion.Version) (string, error) {
	if err := checkCapability(req.Kind, version); err != nil {
		return "", err
	}

	inner, err := interaction(req, version)
	if err != nil {
		return "", err
	}

	level := req.Level
	if level == "" {
		level = LevelNonInteractive
	}
	method := req.Method
	if method == "" {
		method = MethodDirect
	}
	return fmt.Sprintf("IOTCM %s %s %s (%s)", quote(req.FilePath), level, method, inner), nil
}

func interaction(req Request, version agdaversion.Version) (string, error) {
	norm := req.Normalization.orDefault()
	mode := req.ComputeMode.orDefault()
	goal := strconv.Itoa(req.GoalID)

	switch req.Kind {
	case KindLoad:
		return join("Cmd_load", quote(req.FilePath), quoteList(req.Args)), nil
	case KindLoadNoMetas:
		name := "Cmd_no_metas"
		if version.GTE(_loadNoMetasRenameSince) {
			name = "Cmd_load_no_metas"
		}
		return join(name, quote(req.FilePath), quoteList(req.Args)), nil
	case KindCompile:
		backend := req.Backend
		if backend == "" {
			backend = "GHC"
		}
		return join("Cmd_compile", backend, quote(req.FilePath), quoteList(req.Args)), nil
	case KindConstraints:
		return "Cmd_constraints", nil
	case KindMetas:
		if version.GTE(_metasNormalizationSince) {
			return join("Cmd_metas", string(norm)), nil
		}
		return "Cmd_metas", nil
	case KindShowModuleContentsTop:
		return join("Cmd_show_module_contents_toplevel", string(norm), quote(req.Expression)), nil
	case KindSearchAboutTop:
		return join("Cmd_search_about_toplevel", string(norm), quote(req.Expression)), nil
	case KindSolveAll:
		return join("Cmd_solveAll", string(norm)), nil
	case KindSolveOne:
		return join("Cmd_solveOne", string(norm), goal, "noRange", quote(req.Expression)), nil
	case KindAutoOne:
		switch {
		case version.LT(_autoRenameSince):
			return join("Cmd_auto", goal, "noRange", quote(req.Expression)), nil
		case version.LT(_autoNormalizationSince):
			return join("Cmd_autoOne", goal, "noRange", quote(req.Expression)), nil
		default:
			return join("Cmd_autoOne", string(norm), goal, "noRange", quote(req.Expression)), nil
		}
	case KindAutoAll:
		return "Cmd_autoAll", nil
	case KindInferTop:
		return join("Cmd_infer_toplevel", string(norm), quote(req.Expression)), nil
	case KindComputeTop:
		return join("Cmd_compute_toplevel", string(mode), quote(req.Expression)), nil
	case KindWhyInScopeTop:
		return join("Cmd_why_in_scope_toplevel", quote(req.Expression)), nil
	case KindShowVersion:
		return "Cmd_show_version", nil
	case KindAbort:
		return "Cmd_abort", nil
	case KindExit:
		return "Cmd_exit", nil
	case KindToggleImplicitArgs:
		return "ToggleImplicitArgs", nil
	case KindToggleIrrelevantArgs:
		return "ToggleIrrelevantArgs", nil
	case KindGive:
		return join("Cmd_give", "WithoutForce", goal, "noRange", quote(req.Expression)), nil
	case KindRefine:
		return join("Cmd_refine_or_intro", "False", goal, "noRange", quote(req.Expression)), nil
	case KindIntro:
		return join("Cmd_intro", "False", goal, "noRange", quote(req.Expression)), nil
	case KindElaborateGive:
		return join("Cmd_elaborate_give", string(norm), goal, "noRange", quote(req.Expression)), nil
	case KindMakeCase:
		return join("Cmd_make_case", goal, "noRange", quote(req.Expression)), nil
	case KindGoalType:
		return join("Cmd_goal_type", string(norm), goal, "noRange", quote("")), nil
	case KindContext:
		return join("Cmd_context", string(norm), goal, "noRange", quote("")), nil
	case KindGoalTypeContext:
		return join("Cmd_goal_type_context", string(norm), goal, "noRange", quote("")), nil
	case KindGoalTypeContextInfer:
		return join("Cmd_goal_type_context_infer", string(norm), goal, "noRange", quote(req.Expression)), nil
	case KindGoalTypeContextCheck:
		return join("Cmd_goal_type_context_check", string(norm), goal, "noRange", quote(req.Expression)), nil
	case KindInfer:
		return join("Cmd_infer", string(norm), goal, "noRange", quote(req.Expression)), nil
	case KindCompute:
		return join("Cmd_compute", string(mode), goal, "noRange", quote(req.Expression)), nil
	case KindWhyInScope:
		return join("Cmd_why_in_scope", goal, "noRange", quote(req.Expression)), nil
	case KindShowModuleContents:
		return join("Cmd_show_module_contents", string(norm), goal, "noRange", quote(req.Expression)), nil
	case KindHelperFunction:
		return join("Cmd_helper_function", string(norm), goal, "noRange", quote(req.Expression)), nil
	case KindHighlight:
		if req.Range == nil {
			return "", fmt.Errorf("highlight request without a range")
		}
		return join("Cmd_highlight", goal, rangeLiteral(req.FilePath, *req.Range, version), quote(req.Expression)), nil
	case KindTokenHighlighting:
		action := "Keep"
		if req.Remove {
			action = "Remove"
		}
		return join("Cmd_tokenHighlighting", quote(req.FilePath), action), nil
	case KindLoadHighlightingInfo:
		return join("Cmd_load_highlighting_info", quote(req.FilePath)), nil
	case KindBackendTop:
		return join("Cmd_backend_top", req.Backend, quote(req.Expression)), nil
	case KindBackendHole:
		return join("Cmd_backend_hole", req.Backend, goal, "noRange", quote(req.Expression)), nil
	}
	return "", fmt.Errorf("unknown operation %q", req.Kind)
}

// rangeLiteral renders the source-range expression embedded in a highlight
// refresh. From 2.8.0 each position literal carries the absolute code point
// offset ahead of line and column.
func rangeLiteral(path string, rng SourceRange, version agdaversion.Version) string {
	pos := func(p SourcePos) string {
		if version.GTE(_rangeOffsetFieldSince) {
			return fmt.Sprintf("(Pn () %d %d %d)", p.Offset, p.Line, p.Col)
		}
		return fmt.Sprintf("(Pn () %d %d)", p.Line, p.Col)
	}
	return fmt.Sprintf("(intervalsToRange (Just (mkAbsolute %s)) [Interval %s %s])",
		quote(path), pos(rng.Start), pos(rng.End))
}

func join(parts ...string) string {
	return strings.Join(parts, " ")
}
