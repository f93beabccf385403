package language

// Rule pairs a label with the predicate that selects it.
type Rule struct {
	Label Label
	Match func(text string) bool
}

// DefaultRules is the heuristic precedence: instrumental keywords override
// any script, and Chinese is checked before Japanese because Han-only text
// satisfies both.
var DefaultRules = []Rule{
	{Label: Instrumental, Match: IsInstrumental},
	{Label: Chinese, Match: IsChinese},
	{Label: Japanese, Match: IsJapanese},
	{Label: Korean, Match: IsKorean},
	{Label: Spanish, Match: IsSpanish},
	{Label: English, Match: IsEnglish},
}

// Detect returns the label of the first rule matching text.
func Detect(rules []Rule, text string) (Label, bool) {
	for _, rule := range rules {
		if rule.Match(text) {
			return rule.Label, true
		}
	}
	return "", false
}
