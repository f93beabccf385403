package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"lower-cases", "Shape Of You", "shape of you"},
		{"strips punctuation", "Don't Stop Me Now!", "don t stop me now"},
		{"curly quotes", "“Hello”", "hello"},
		{"em dash", "Song—Live", "song live"},
		{"en dash", "Song – Remastered 2011", "song remastered 2011"},
		{"collapses whitespace", "  a \t\n  b  ", "a b"},
		{"fullwidth folded by NFKC", "ＡＢＣ１２３", "abc123"},
		{"keeps CJK", "告白気球", "告白気球"},
		{"keeps hangul", "봄날 (Spring Day)", "봄날 spring day"},
		{"keeps accents", "Despacito (Remix) – Canción", "despacito remix canción"},
		{"division sign is punctuation", "÷", ""},
		{"underscore is a word character", "a_b", "a_b"},
		{"ideographic space", "米津玄師　Lemon", "米津玄師 lemon"},
		{"single quotes", "\u2018Til\u2019", "til"},
		{"hyphen variants", "a\u2010b\u2011c\u2012d", "a b c d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Shape of You",
		"“Quoted” — Title",
		"ＡＢＣ　ｄｅｆ",
		"İstanbul",
		"Straße",
		"é ́ ",
		"告白気球 / 米津玄師",
		"Beyoncé & JAY-Z",
		"…!!!???",
		" line sep",
		"ﬁ ligature",
		"①②③",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestNormalizeAll(t *testing.T) {
	got := NormalizeAll([]string{"Ed Sheeran", "", "!!!", "Taylor  Swift"})
	assert.Equal(t, []string{"ed sheeran", "taylor swift"}, got)
}
