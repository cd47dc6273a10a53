// Package textpos converts between the two character-counting conventions
// in play: Agda addresses text by 1-based Unicode code points, while the
// editor addresses it by 0-based UTF-16 code units. The two offset kinds
// are distinct types so that a raw number has to be tagged at the boundary
// where it is produced; the only way to move between them is through the
// conversion functions here.
package textpos

// CodePoint is a 1-based Unicode code point offset, as used by Agda.
type CodePoint int

// CodeUnit is a 0-based UTF-16 code unit offset, as used by the editor.
type CodeUnit int

// utf16Width is the number of UTF-16 code units occupied by a code point.
func utf16Width(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

// ToCodeUnit converts a 1-based code point offset into the 0-based UTF-16
// code unit offset of the same position in text. Offsets beyond the end of
// text clamp to the total unit length; offsets at or below 1 map to 0.
func ToCodeUnit(text string, offset CodePoint) CodeUnit {
	remaining := int(offset) - 1
	if remaining <= 0 {
		return 0
	}
	units := 0
	for _, r := range text {
		if remaining == 0 {
			break
		}
		units += utf16Width(r)
		remaining--
	}
	return CodeUnit(units)
}

// ToCodePoint converts a 0-based UTF-16 code unit offset into the 1-based
// code point offset of the same position in text. An offset landing inside
// a surrogate pair resolves to the code point before the pair. Offsets
// beyond the end of text clamp to the position after the last code point.
func ToCodePoint(text string, offset CodeUnit) CodePoint {
	target := int(offset)
	if target <= 0 {
		return 1
	}
	units := 0
	point := 1
	for _, r := range text {
		w := utf16Width(r)
		if units+w > target {
			break
		}
		units += w
		point++
	}
	return CodePoint(point)
}
