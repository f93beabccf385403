package language

import "strings"

var instrumentalKeywords = []string{
	"instrumental",
	"伴奏",
	"karaoke",
	"off vocal",
	"minus one",
	"inst",
	"バックトラック",
	"노래방",
	"mr ",
}

const spanishMarks = "ñáéíóúü¡¿"

// IsInstrumental reports whether text mentions an instrumental or karaoke
// keyword. The keyword match is a case-insensitive substring match, so "inst"
// also fires inside longer words.
func IsInstrumental(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range instrumentalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsChinese reports whether text contains a CJK Unified Ideograph.
func IsChinese(text string) bool {
	return containsRune(text, isHan)
}

// IsJapanese reports whether text contains Hiragana, Katakana or a CJK
// Unified Ideograph. Han-only text satisfies both IsChinese and IsJapanese.
func IsJapanese(text string) bool {
	return containsRune(text, func(r rune) bool {
		return isHiragana(r) || isKatakana(r) || isHan(r)
	})
}

// IsKorean reports whether text contains a Hangul syllable.
func IsKorean(text string) bool {
	return containsRune(text, func(r rune) bool {
		return r >= 0xAC00 && r <= 0xD7AF
	})
}

// IsSpanish reports whether text contains a Spanish diacritic or inverted
// punctuation mark.
func IsSpanish(text string) bool {
	return strings.ContainsAny(strings.ToLower(text), spanishMarks)
}

// IsEnglish reports whether text has at least three ASCII letters and none of
// the markers the other script predicates look for.
func IsEnglish(text string) bool {
	if text == "" {
		return false
	}
	if IsChinese(text) || IsJapanese(text) || IsKorean(text) || IsSpanish(text) {
		return false
	}
	letters := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			letters++
			if letters >= 3 {
				return true
			}
		}
	}
	return false
}

func containsRune(text string, pred func(rune) bool) bool {
	for _, r := range text {
		if pred(r) {
			return true
		}
	}
	return false
}

func isHan(r rune) bool      { return r >= 0x4E00 && r <= 0x9FFF }
func isHiragana(r rune) bool { return r >= 0x3040 && r <= 0x309F }
func isKatakana(r rune) bool { return r >= 0x30A0 && r <= 0x30FF }
