package textpos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCodeUnit(t *testing.T) {
	// "𝕄" is U+1D544, one code point but two UTF-16 units.
	const text = "a𝕄b"

	tests := []struct {
		name     string
		offset   CodePoint
		expected CodeUnit
	}{
		{name: "start of text", offset: 1, expected: 0},
		{name: "after ascii", offset: 2, expected: 1},
		{name: "after supplementary plane scalar", offset: 3, expected: 3},
		{name: "end of text", offset: 4, expected: 4},
		{name: "clamps beyond end", offset: 100, expected: 4},
		{name: "clamps below start", offset: 0, expected: 0},
		{name: "clamps negative", offset: -5, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToCodeUnit(text, tt.offset))
		})
	}
}

func TestToCodePoint(t *testing.T) {
	const text = "a𝕄b"

	tests := []struct {
		name     string
		offset   CodeUnit
		expected CodePoint
	}{
		{name: "start of text", offset: 0, expected: 1},
		{name: "after ascii", offset: 1, expected: 2},
		{name: "inside surrogate pair stays before it", offset: 2, expected: 2},
		{name: "after supplementary plane scalar", offset: 3, expected: 3},
		{name: "end of text", offset: 4, expected: 4},
		{name: "clamps beyond end", offset: 100, expected: 4},
		{name: "clamps negative", offset: -1, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToCodePoint(text, tt.offset))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	const text = "a𝕄b"

	// Code points 1..4 are all the valid positions in the text; the
	// conversion must round-trip each of them exactly.
	for cp := CodePoint(1); cp <= 4; cp++ {
		unit := ToCodeUnit(text, cp)
		assert.Equal(t, cp, ToCodePoint(text, unit), "code point %d", cp)
	}
}

func TestEmptyText(t *testing.T) {
	assert.Equal(t, CodeUnit(0), ToCodeUnit("", 7))
	assert.Equal(t, CodePoint(1), ToCodePoint("", 7))
}
