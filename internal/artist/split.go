package artist

import (
	"regexp"
	"strings"
)

var (
	// collaboration separators: ";" "," "/" "&" " + " " x " " feat " " feat. " " with "
	collabPattern = regexp.MustCompile(`(?i)\s*;\s*|\s*,\s*|\s*/\s*|\s*&\s*|\s+\+\s+|\s+x\s+|\s+feat\.?\s+|\s+with\s+`)

	listPattern = regexp.MustCompile(`\s*[;,]\s*`)
)

// Split breaks a combined artist field such as "A feat. B & C" into the
// individual artist names, in listed order.
func Split(field string) []string {
	return splitWith(collabPattern, field)
}

// SplitList splits an artist field only on the list separators ";" and ",".
// Catalog exports join artists this way, and names like "Florence + the
// Machine" must survive intact when building a search target.
func SplitList(field string) []string {
	return splitWith(listPattern, field)
}

func splitWith(pattern *regexp.Regexp, field string) []string {
	if strings.TrimSpace(field) == "" {
		return []string{}
	}
	parts := pattern.Split(field, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
