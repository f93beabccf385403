// Package textnorm canonicalizes free text so that titles, artists and albums
// coming from different sources can be compared for equality and containment.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	// typographic variants that some catalogs use in place of ASCII punctuation
	typographicReplacer = strings.NewReplacer(
		"\u201C", " ", // left double quotation mark
		"\u201D", " ", // right double quotation mark
		"\u2018", " ", // left single quotation mark
		"\u2019", " ", // right single quotation mark
		"\u2013", " ", // en dash
		"\u2014", " ", // em dash
		"\u2010", " ", // hyphen
		"\u2011", " ", // non-breaking hyphen
		"\u2012", " ", // figure dash
	)

	nonWordPattern    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Normalize returns the comparison form of text: NFKC folded, lower-cased,
// punctuation replaced by spaces and whitespace collapsed.
//
// Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := norm.NFKC.String(text)
	s = norm.NFKC.String(strings.ToLower(s))
	s = typographicReplacer.Replace(s)
	s = nonWordPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeAll normalizes every element of values, dropping the ones that
// normalize to the empty string.
func NormalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}
