package pipeline

import "strings"

// letterFolds collapses Arabic letter variants to their canonical form
// before gloss resolution, so that orthographic variation (hamza seats,
// alef maksura, etc.) does not produce spurious distinct gloss tokens.
var letterFolds = map[rune]rune{
	'إ': 'ا',
	'أ': 'ا',
	'آ': 'ا',
	'ى': 'ي',
	'ؤ': 'و',
	'ئ': 'ي',
	'ة': 'ه',
}

// isTashkeel reports whether r is an Arabic diacritic (tashkeel) that should
// be stripped: the combining marks in U+064B–U+0652 plus the superscript
// alef U+0670.
func isTashkeel(r rune) bool {
	if r >= 0x064B && r <= 0x0652 {
		return true
	}
	return r == 0x0670
}

// NormalizeArabic folds Arabic letter variants, strips tashkeel diacritics,
// and trims surrounding whitespace. It is a pure function over runes and is
// idempotent: NormalizeArabic(NormalizeArabic(s)) == NormalizeArabic(s).
func NormalizeArabic(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isTashkeel(r) {
			continue
		}
		if folded, ok := letterFolds[r]; ok {
			r = folded
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
