package utils

import "strings"

// NormalizeChoice lowercases and trims input and reports whether it is one of
// allowed. Aliases map alternate spellings to a canonical value before the check.
func NormalizeChoice(input string, allowed []string, aliases map[string]string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if canonical, ok := aliases[s]; ok {
		s = canonical
	}
	for _, a := range allowed {
		if s == a {
			return s, true
		}
	}
	return s, false
}
