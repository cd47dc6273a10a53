package agdaversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("valid components", func(t *testing.T) {
		v, err := New(2, 6, 0, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 6, 0, 1}, v.Components())
	})

	t.Run("rejects negative components", func(t *testing.T) {
		_, err := New(2, -1)
		assert.Error(t, err)
	})

	t.Run("rejects empty component list", func(t *testing.T) {
		_, err := New()
		assert.Error(t, err)
	})

	t.Run("components are copied on the way in and out", func(t *testing.T) {
		in := []int{2, 6}
		v, err := New(in...)
		require.NoError(t, err)
		in[0] = 9
		out := v.Components()
		out[1] = 9
		assert.Equal(t, []int{2, 6}, v.Components())
	})
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []int
		wantErr  bool
	}{
		{name: "plain", input: "2.6.4.3", expected: []int{2, 6, 4, 3}},
		{name: "short", input: "2.6", expected: []int{2, 6}},
		{name: "commit suffix", input: "2.6.4-a1cf065", expected: []int{2, 6, 4}},
		{name: "whitespace", input: " 2.8.0 ", expected: []int{2, 8, 0}},
		{name: "empty", input: "", wantErr: true},
		{name: "non numeric", input: "two.six", wantErr: true},
		{name: "negative", input: "2.-6", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v.Components())
		})
	}
}

func TestParseSelfReport(t *testing.T) {
	t.Run("banner with trailing build info", func(t *testing.T) {
		v, err := ParseSelfReport("Agda version 2.6.4.3-a1cf065 compiled with flags\nmore output\n")
		require.NoError(t, err)
		assert.Equal(t, "2.6.4.3", v.String())
	})

	t.Run("unrecognized banner", func(t *testing.T) {
		_, err := ParseSelfReport("agda: command not found")
		assert.Error(t, err)
	})
}

func TestCompare(t *testing.T) {
	t.Run("gte is reflexive", func(t *testing.T) {
		for _, v := range []Version{MustNew(2), MustNew(2, 6), MustNew(2, 6, 0, 1)} {
			assert.True(t, v.GTE(v))
		}
	})

	t.Run("gte is transitive", func(t *testing.T) {
		a := MustNew(2, 8, 0)
		b := MustNew(2, 6, 0, 1)
		c := MustNew(2, 6)
		require.True(t, a.GTE(b))
		require.True(t, b.GTE(c))
		assert.True(t, a.GTE(c))
	})

	t.Run("comparison zero pads", func(t *testing.T) {
		assert.Equal(t, 0, MustNew(2, 6).Compare(MustNew(2, 6, 0)))
		assert.Equal(t, 0, MustNew(2, 6, 0).Compare(MustNew(2, 6)))
		assert.True(t, MustNew(2, 6, 0, 1).GTE(MustNew(2, 6)))
		assert.True(t, MustNew(2, 6).LT(MustNew(2, 6, 0, 1)))
	})

	t.Run("ordering", func(t *testing.T) {
		assert.Equal(t, -1, MustNew(2, 5, 4).Compare(MustNew(2, 6)))
		assert.Equal(t, 1, MustNew(3).Compare(MustNew(2, 9, 9, 9)))
	})
}

func TestString(t *testing.T) {
	assert.Equal(t, "2.6.0.1", MustNew(2, 6, 0, 1).String())
	assert.Equal(t, "unknown", Version{}.String())
}
