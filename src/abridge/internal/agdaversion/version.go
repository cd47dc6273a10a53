// Package agdaversion models Agda's multi-component version numbers.
// Agda releases use up to four components (e.g. 2.6.0.1), so semver
// libraries cannot represent them; comparison is lexicographic with
// missing trailing components treated as zero.
package agdaversion

import (
	"fmt"
	"strconv"
	"strings"
)

const _selfReportPrefix = "Agda version "

// Version is an immutable ordered list of non-negative components.
type Version struct {
	components []int
}

// New builds a Version from explicit components.
// It rejects negative components and empty component lists.
func New(components ...int) (Version, error) {
	if len(components) == 0 {
		return Version{}, fmt.Errorf("version requires at least one component")
	}
	for _, c := range components {
		if c < 0 {
			return Version{}, fmt.Errorf("negative version component: %d", c)
		}
	}
	out := make([]int, len(components))
	copy(out, components)
	return Version{components: out}, nil
}

// MustNew is New, panicking on invalid input. Intended for constants.
func MustNew(components ...int) Version {
	v, err := New(components...)
	if err != nil {
		panic(err)
	}
	return v
}

// Parse reads a dotted version string such as "2.6.4.3".
// A trailing non-numeric suffix on the final component (e.g. "2.6.4-a1cf065")
// is discarded.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}
	parts := strings.Split(s, ".")
	components := make([]int, 0, len(parts))
	for i, part := range parts {
		if i == len(parts)-1 {
			if dash := strings.IndexAny(part, "-+_ "); dash >= 0 {
				part = part[:dash]
			}
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version component %q in %q", part, s)
		}
		components = append(components, n)
	}
	return Version{components: components}, nil
}

// ParseSelfReport reads the first line of the binary's --version output,
// e.g. "Agda version 2.6.4.3-a1cf065".
func ParseSelfReport(output string) (Version, error) {
	line := output
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, _selfReportPrefix) {
		return Version{}, fmt.Errorf("unrecognized version banner: %q", line)
	}
	fields := strings.Fields(strings.TrimPrefix(line, _selfReportPrefix))
	if len(fields) == 0 {
		return Version{}, fmt.Errorf("version banner has no version: %q", line)
	}
	return Parse(fields[0])
}

// Components returns a copy of the version components.
func (v Version) Components() []int {
	out := make([]int, len(v.components))
	copy(out, v.components)
	return out
}

// IsZero reports whether the Version was never initialized.
func (v Version) IsZero() bool {
	return len(v.components) == 0
}

// Compare orders two versions lexicographically, zero-padding the shorter
// one, so (2,6) compares equal to (2,6,0).
func (v Version) Compare(other Version) int {
	n := len(v.components)
	if len(other.components) > n {
		n = len(other.components)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v.components) {
			a = v.components[i]
		}
		if i < len(other.components) {
			b = other.components[i]
		}
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	return 0
}

// GTE reports whether v is at least other.
func (v Version) GTE(other Version) bool {
	return v.Compare(other) >= 0
}

// LT reports whether v is strictly below other.
func (v Version) LT(other Version) bool {
	return v.Compare(other) < 0
}

// String renders the dotted form, e.g. "2.6.0.1".
func (v Version) String() string {
	if v.IsZero() {
		return "unknown"
	}
	parts := make([]string, len(v.components))
	for i, c := range v.components {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}
