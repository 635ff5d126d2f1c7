package interpreter

import (
	"regexp"
	"strings"
)

var trailingLocationRE = regexp.MustCompile(`(?i)\b(?:in|on|at)\s+(?:the\s+)?([a-z0-9\s\-]+)$`)

// ExtractLocation splits a trailing "in the fridge" style phrase off name.
// When there is no such phrase location is empty and name is returned as is.
func ExtractLocation(name string) (string, string) {
	m := trailingLocationRE.FindStringSubmatchIndex(name)
	if m == nil {
		return name, ""
	}
	location := strings.TrimSpace(name[m[2]:m[3]])
	return strings.TrimSpace(name[:m[0]]), location
}
