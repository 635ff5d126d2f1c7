package interpreter

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

// expiryTerm matches the expir... family (expires, expiring, expired, expiry,
// expiration), exp./use-by/best-by. The bare "exp" form needs a word boundary
// right after it so "expensive" is not an expiry cue.
const expiryTerm = `(?:(?:expir\w*|use[-\s]*by|best[-\s]*by)\b|exp\b\.?)`

var (
	absoluteDateRE  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	relativeRE      = regexp.MustCompile(`(?i)\bin\s+(\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s+(days?|weeks?|months?)\b`)
	connectorRE     = regexp.MustCompile(`(?i)\b(?:that|which)\s+` + expiryTerm)
	expiryKeywordRE = regexp.MustCompile(`(?i)\b` + expiryTerm)
	dayKeywordRE    = regexp.MustCompile(`(?i)\b(?:today|tomorrow)\b`)
	tomorrowRE      = regexp.MustCompile(`(?i)\btomorrow\b`)
	todayRE         = regexp.MustCompile(`(?i)\btoday\b`)
)

var countWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

// HasExpiryLanguage reports whether text talks about expiration at all.
func HasExpiryLanguage(text string) bool {
	return expiryKeywordRE.MatchString(text)
}

// ResolveExpiration applies the date rules in priority order: absolute date,
// relative expression, tomorrow, today. When none of them match it returns
// ErrAmbiguousExpiry if the text mentions expiry, otherwise today plus the
// configured shelf life.
func (in *Interpreter) ResolveExpiration(text string) (time.Time, error) {
	today := in.Today()

	if m := absoluteDateRE.FindString(text); m != "" {
		if t, err := time.ParseInLocation(domain.DateLayout, m, today.Location()); err == nil {
			return t, nil
		}
	}

	if t, ok := resolveRelative(text, today); ok {
		return t, nil
	}

	if tomorrowRE.MatchString(text) {
		return today.AddDate(0, 0, 1), nil
	}
	if todayRE.MatchString(text) {
		return today, nil
	}

	if HasExpiryLanguage(text) {
		return time.Time{}, ErrAmbiguousExpiry
	}

	return today.AddDate(0, 0, in.shelfLifeDays), nil
}

// resolveRelative honours only the first "in <count> <unit>" in text.
func resolveRelative(text string, today time.Time) (time.Time, bool) {
	m := relativeRE.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	count, ok := parseCount(m[1])
	if !ok {
		return time.Time{}, false
	}

	unit := strings.ToLower(m[2])
	switch {
	case strings.HasPrefix(unit, "day"):
		return today.AddDate(0, 0, count), true
	case strings.HasPrefix(unit, "week"):
		return today.AddDate(0, 0, count*7), true
	case strings.HasPrefix(unit, "month"):
		return today.AddDate(0, count, 0), true
	}
	return time.Time{}, false
}

func parseCount(raw string) (int, bool) {
	if n, ok := countWords[strings.ToLower(raw)]; ok {
		return n, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
