package command

import (
	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	abrerrors "github.com/agda-tools/agda-bridge/src/abridge/internal/errors"
)

// MinimumSupported is the first release exposing the JSON interaction mode.
// The whole protocol is gated on it at session start.
var MinimumSupported = agdaversion.MustNew(2, 6, 0)

// Hard gates: operations that have no wire spelling at all before the named
// version. Encoding one against an older process is a capability error,
// raised before any wire text is produced.
var _hardGates = map[Kind]agdaversion.Version{
	KindAutoAll:              agdaversion.MustNew(2, 6, 0, 1),
	KindTokenHighlighting:    agdaversion.MustNew(2, 6, 1),
	KindToggleIrrelevantArgs: agdaversion.MustNew(2, 6, 2),
	KindBackendTop:           agdaversion.MustNew(2, 7, 0),
	KindBackendHole:          agdaversion.MustNew(2, 7, 0),
}

// Soft gates: version thresholds at which an operation's wire shape
// changes. Below the threshold the pre-requirement shape is emitted
// silently.
var (
	// Cmd_metas gained a normalization argument.
	_metasNormalizationSince = agdaversion.MustNew(2, 6, 2)
	// The Agsy auto command was renamed for the Mimer solver.
	_autoRenameSince = agdaversion.MustNew(2, 6, 0, 1)
	// The renamed auto command gained a normalization argument.
	_autoNormalizationSince = agdaversion.MustNew(2, 7, 0, 1)
	// Load-without-metas was renamed from Cmd_no_metas.
	_loadNoMetasRenameSince = agdaversion.MustNew(2, 7, 0)
	// Highlight-refresh position literals gained the absolute offset field.
	_rangeOffsetFieldSince = agdaversion.MustNew(2, 8, 0)
)

// RequiredVersion reports the minimum version an operation needs, and
// whether it is hard-gated at all.
func RequiredVersion(kind Kind) (agdaversion.Version, bool) {
	v, ok := _hardGates[kind]
	return v, ok
}

// checkCapability is consulted once per Encode, before rendering.
func checkCapability(kind Kind, version agdaversion.Version) error {
	required, ok := _hardGates[kind]
	if !ok || version.GTE(required) {
		return nil
	}
	return &abrerrors.CapabilityError{
		Operation: string(kind),
		Required:  required,
		Actual:    version,
	}
}
