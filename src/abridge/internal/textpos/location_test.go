package textpos

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/agda-tools/agda-bridge/src/abridge/internal/agdaversion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLines map[string][]string

func (f fakeLines) LineText(path string, line int) (string, error) {
	table, ok := f[path]
	if !ok {
		return "", fmt.Errorf("unknown file %s", path)
	}
	if line < 1 || line > len(table) {
		return "", fmt.Errorf("no line %d", line)
	}
	return table[line-1], nil
}

var (
	_commaVersion = agdaversion.MustNew(2, 6, 4)
	_dotVersion   = agdaversion.MustNew(2, 8, 0)
)

func TestScanLocations(t *testing.T) {
	lines := fakeLines{
		"Foo.agda": {"module Foo where", "", "x = 𝕄𝕄 ?"},
	}

	t.Run("comma form resolves against the referenced line", func(t *testing.T) {
		result := ScanLocations("error at Foo.agda:3,5-10 here", _commaVersion, lines)
		require.Len(t, result, 3)

		assert.Equal(t, Segment{Text: "error at "}, result[0])
		assert.Equal(t, " here", result[2].Text)

		link := result[1].Link
		require.NotNil(t, link)
		assert.Equal(t, "Foo.agda", link.Path)
		assert.Equal(t, 3, link.Line)
		assert.Equal(t, 3, link.EndLine)
		assert.Equal(t, CodePoint(5), link.Column)
		assert.Equal(t, CodePoint(10), link.EndColumn)
		assert.True(t, link.Resolved)
		// Line 3 is "x = 𝕄𝕄 ?": code point 5 sits before the first 𝕄
		// (4 units in), code point 10 is past the end and clamps.
		assert.Equal(t, CodeUnit(4), link.UnitColumn)
		assert.Equal(t, CodeUnit(10), link.UnitEndColumn)
	})

	t.Run("dot form does not match under the comma version", func(t *testing.T) {
		result := ScanLocations("Foo.agda:3.5-10", _commaVersion, lines)
		require.Len(t, result, 1)
		assert.Nil(t, result[0].Link)
	})

	t.Run("comma form does not match under the dot version", func(t *testing.T) {
		result := ScanLocations("Foo.agda:3,5-10", _dotVersion, lines)
		require.Len(t, result, 1)
		assert.Nil(t, result[0].Link)
	})

	t.Run("dot form matches under the dot version", func(t *testing.T) {
		result := ScanLocations("Foo.agda:3.5-10", _dotVersion, lines)
		require.Len(t, result, 1)
		require.NotNil(t, result[0].Link)
		assert.Equal(t, 3, result[0].Link.Line)
		assert.Equal(t, CodePoint(5), result[0].Link.Column)
	})

	t.Run("four number form spans lines", func(t *testing.T) {
		result := ScanLocations("Foo.agda:1,3-3,2", _commaVersion, lines)
		require.Len(t, result, 1)
		link := result[0].Link
		require.NotNil(t, link)
		assert.Equal(t, 1, link.Line)
		assert.Equal(t, 3, link.EndLine)
		assert.Equal(t, CodePoint(3), link.Column)
		assert.Equal(t, CodePoint(2), link.EndColumn)
		assert.True(t, link.Resolved)
		assert.Equal(t, CodeUnit(2), link.UnitColumn)
		assert.Equal(t, CodeUnit(1), link.UnitEndColumn)
	})

	t.Run("unresolvable file keeps an unresolved link", func(t *testing.T) {
		result := ScanLocations("see Missing.agda:1,1-2", _commaVersion, lines)
		require.Len(t, result, 2)
		link := result[1].Link
		require.NotNil(t, link)
		assert.Equal(t, "Missing.agda", link.Path)
		assert.False(t, link.Resolved)
	})

	t.Run("multiple links and literal tails reassemble", func(t *testing.T) {
		text := "Foo.agda:1,1-2 and Foo.agda:3,1-2."
		result := ScanLocations(text, _commaVersion, lines)
		assert.Equal(t, text, result.String())
		links := 0
		for _, seg := range result {
			if seg.Link != nil {
				links++
			}
		}
		assert.Equal(t, 2, links)
	})

	t.Run("plain text passes through", func(t *testing.T) {
		result := ScanLocations("nothing to see", _commaVersion, lines)
		assert.Equal(t, LinkedText{{Text: "nothing to see"}}, result)
	})
}

func TestFileLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Foo.agda")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\r\nthree"), 0o644))

	reads := 0
	lookup := NewFileLines(func(p string) ([]byte, error) {
		reads++
		return os.ReadFile(p)
	})

	line, err := lookup.LineText(path, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", line)

	// Second lookup is served from cache.
	line, err = lookup.LineText(path, 3)
	require.NoError(t, err)
	assert.Equal(t, "three", line)
	assert.Equal(t, 1, reads)

	_, err = lookup.LineText(path, 9)
	assert.Error(t, err)

	lookup.Invalidate(path)
	_, err = lookup.LineText(path, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, reads)

	_, err = lookup.LineText(filepath.Join(dir, "absent"), 1)
	assert.Error(t, err)
}
