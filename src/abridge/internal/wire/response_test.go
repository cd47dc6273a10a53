package wire

import (
	"encoding/json"
	"testing"

	"github.com/agda-tools/agda-bridge/src/abridge/internal/textpos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"Status","status":{"showImplicitArguments":true,"showIrrelevantArguments":false,"checked":true}}`))
		require.NoError(t, err)
		assert.Equal(t, KindStatus, resp.Kind)
		require.NotNil(t, resp.Status)
		assert.True(t, resp.Status.ShowImplicitArguments)
		assert.True(t, resp.Status.Checked)
	})

	t.Run("interaction points as objects", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"InteractionPoints","interactionPoints":[{"id":0,"range":[{"start":{"pos":10,"line":2,"col":3},"end":{"pos":12,"line":2,"col":5}}]},{"id":1,"range":[]}]}`))
		require.NoError(t, err)
		require.Len(t, resp.InteractionPoints, 2)
		assert.Equal(t, 0, resp.InteractionPoints[0].ID)
		require.Len(t, resp.InteractionPoints[0].Range, 1)
		assert.Equal(t, textpos.CodePoint(10), resp.InteractionPoints[0].Range[0].Start.Pos)
		assert.Equal(t, 1, resp.InteractionPoints[1].ID)
	})

	t.Run("interaction points as legacy bare ids", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"InteractionPoints","interactionPoints":[0,1,2]}`))
		require.NoError(t, err)
		require.Len(t, resp.InteractionPoints, 3)
		assert.Equal(t, 2, resp.InteractionPoints[2].ID)
		assert.Nil(t, resp.InteractionPoints[2].Range)
	})

	t.Run("give action with replacement string", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"GiveAction","interactionPoint":{"id":3},"giveResult":{"str":"suc n"}}`))
		require.NoError(t, err)
		require.NotNil(t, resp.GiveAction)
		assert.Equal(t, 3, resp.GiveAction.InteractionPoint.ID)
		assert.Equal(t, "suc n", resp.GiveAction.GiveResult.Expression)
		assert.False(t, resp.GiveAction.GiveResult.Paren)
	})

	t.Run("give action with paren result", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"GiveAction","interactionPoint":0,"giveResult":{"paren":true}}`))
		require.NoError(t, err)
		assert.True(t, resp.GiveAction.GiveResult.Paren)
		assert.Empty(t, resp.GiveAction.GiveResult.Expression)
	})

	t.Run("make case", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"MakeCase","variant":"Function","clauses":["f zero = ?","f (suc n) = ?"],"interactionPoint":{"id":0}}`))
		require.NoError(t, err)
		require.NotNil(t, resp.MakeCase)
		assert.Equal(t, "Function", resp.MakeCase.Variant)
		assert.Len(t, resp.MakeCase.Clauses, 2)
	})

	t.Run("solve all", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"SolveAll","solutions":[{"interactionPoint":{"id":0},"expression":"refl"}]}`))
		require.NoError(t, err)
		require.Len(t, resp.Solutions, 1)
		assert.Equal(t, "refl", resp.Solutions[0].Expression)
	})

	t.Run("jump to error carries a code point offset", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"JumpToError","filepath":"/ws/Foo.agda","position":42}`))
		require.NoError(t, err)
		require.NotNil(t, resp.JumpToError)
		assert.Equal(t, textpos.CodePoint(42), resp.JumpToError.Position)
	})

	t.Run("running info", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"RunningInfo","debugLevel":1,"message":"Checking Foo"}`))
		require.NoError(t, err)
		require.NotNil(t, resp.RunningInfo)
		assert.Equal(t, "Checking Foo", resp.RunningInfo.Message)
	})

	t.Run("direct highlighting", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"HighlightingInfo","direct":true,"info":{"remove":false,"payload":[{"range":[1,7],"atoms":["keyword"]}]}}`))
		require.NoError(t, err)
		require.NotNil(t, resp.Highlighting)
		assert.True(t, resp.Highlighting.Direct)
		require.Len(t, resp.Highlighting.Payload, 1)
		assert.Equal(t, []textpos.CodePoint{1, 7}, resp.Highlighting.Payload[0].Range)
		assert.Equal(t, []string{"keyword"}, resp.Highlighting.Payload[0].Atoms)
	})

	t.Run("indirect highlighting", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"HighlightingInfo","direct":false,"filepath":"/tmp/agda123"}`))
		require.NoError(t, err)
		require.NotNil(t, resp.Highlighting)
		assert.False(t, resp.Highlighting.Direct)
		assert.Equal(t, "/tmp/agda123", resp.Highlighting.Filepath)
	})

	t.Run("payload free kinds", func(t *testing.T) {
		for _, kind := range []Kind{KindClearRunningInfo, KindDoneAborting, KindDoneExiting} {
			resp, err := Decode([]byte(`{"kind":"` + string(kind) + `"}`))
			require.NoError(t, err)
			assert.Equal(t, kind, resp.Kind)
		}
	})

	t.Run("clear highlighting", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"ClearHighlighting","tokenBased":"NotOnlyTokenBased"}`))
		require.NoError(t, err)
		require.NotNil(t, resp.ClearHighlighting)
		assert.Equal(t, "NotOnlyTokenBased", resp.ClearHighlighting.TokenBased)
	})

	t.Run("unknown kind is an error", func(t *testing.T) {
		_, err := Decode([]byte(`{"kind":"Telepathy"}`))
		assert.Error(t, err)
	})

	t.Run("malformed line is an error", func(t *testing.T) {
		_, err := Decode([]byte(`abc`))
		assert.Error(t, err)
	})
}

func TestDecodeDisplayInfo(t *testing.T) {
	t.Run("warnings as bare text", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"AllGoalsWarnings","warnings":["unsolved metas"],"errors":[]}}`))
		require.NoError(t, err)
		require.NotNil(t, resp.Info)
		assert.Equal(t, InfoAllGoalsWarnings, resp.Info.Kind)
		assert.Equal(t, []string{"unsolved metas"}, resp.Info.Warnings)
		assert.Equal(t, []string{}, resp.Info.Errors)
	})

	t.Run("warnings as wrapper objects flatten to the same text", func(t *testing.T) {
		bare, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"AllGoalsWarnings","warnings":["unsolved metas"]}}`))
		require.NoError(t, err)
		wrapped, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"AllGoalsWarnings","warnings":[{"message":"unsolved metas","where":"Foo.agda"}]}}`))
		require.NoError(t, err)
		assert.Equal(t, bare.Info.Warnings, wrapped.Info.Warnings)
	})

	t.Run("nested wrapper objects unwrap recursively", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"Constraints","constraints":[{"constraint":{"message":"x = y"}}]}}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"x = y"}, resp.Info.Constraints)
	})

	t.Run("unrecognized shapes degrade to a structural dump", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"AllGoalsWarnings","warnings":[{"unexpected":["a",1]}]}}`))
		require.NoError(t, err)
		require.Len(t, resp.Info.Warnings, 1)
		// Nothing is dropped: the dump retains the field and both values.
		assert.Contains(t, resp.Info.Warnings[0], "unexpected")
		assert.Contains(t, resp.Info.Warnings[0], "\"a\"")
		assert.Contains(t, resp.Info.Warnings[0], "1")
	})

	t.Run("error message nested under the error field is promoted", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"Error","error":{"message":"type mismatch"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "type mismatch", resp.Info.Message)
	})

	t.Run("top level error message wins", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"Error","message":"top","error":{"message":"nested"}}}`))
		require.NoError(t, err)
		assert.Equal(t, "top", resp.Info.Message)
	})

	t.Run("error without any message gets the placeholder", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"Error"}}`))
		require.NoError(t, err)
		assert.Equal(t, _noMessagePlaceholder, resp.Info.Message)
	})

	t.Run("goal specific keeps the interaction point", func(t *testing.T) {
		resp, err := Decode([]byte(`{"kind":"DisplayInfo","info":{"kind":"GoalSpecific","interactionPoint":{"id":2},"goalInfo":{"kind":"CurrentGoal","type":"Nat"}}}`))
		require.NoError(t, err)
		require.NotNil(t, resp.Info.InteractionPoint)
		assert.Equal(t, 2, resp.Info.InteractionPoint.ID)
		assert.True(t, json.Valid(resp.Info.Payload))
	})

	t.Run("payload keeps the verbatim info body", func(t *testing.T) {
		raw := `{"kind":"ModuleContents","contents":["x : Nat"]}`
		resp, err := Decode([]byte(`{"kind":"DisplayInfo","info":` + raw + `}`))
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(resp.Info.Payload))
	})
}

func TestNormalizeIdempotent(t *testing.T) {
	lines := []string{
		`{"kind":"DisplayInfo","info":{"kind":"AllGoalsWarnings","warnings":[{"message":"w"}],"errors":["e"],"constraints":[{"constraint":"c"}]}}`,
		`{"kind":"DisplayInfo","info":{"kind":"Error","error":{"message":"m"}}}`,
		`{"kind":"DisplayInfo","info":{"kind":"Error"}}`,
		`{"kind":"Status","status":{"checked":true}}`,
		`{"kind":"ClearRunningInfo"}`,
	}

	for _, line := range lines {
		resp, err := Decode([]byte(line))
		require.NoError(t, err, line)

		once := Normalize(resp)
		twice := Normalize(once)
		assert.Equal(t, once, twice, line)
		// Decoding already normalizes, so Normalize is a no-op on top.
		assert.Equal(t, resp, once, line)
	}
}
