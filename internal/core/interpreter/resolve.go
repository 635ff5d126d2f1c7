package interpreter

import (
	"regexp"
	"strings"
	"time"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

var (
	deleteKeywordRE = regexp.MustCompile(`(?i)\b(?:delete|remove)\b`)
	fillerPrefixRE  = regexp.MustCompile(`(?i)^(?:the item|the|this|that|item|my)\s+`)
	trailingPunctRE = regexp.MustCompile(`[.!?]+$`)
)

// Classify routes text to the delete branch when it contains the whole word
// delete or remove, and to the add branch otherwise.
func Classify(text string) Intent {
	if deleteKeywordRE.MatchString(text) {
		return IntentDelete
	}
	return IntentAdd
}

// ParseDelete extracts the phrase that follows the first delete/remove
// keyword, minus one leading filler word and any trailing punctuation.
func ParseDelete(raw string) (domain.DeleteQuery, error) {
	text := strings.TrimSpace(raw)
	loc := deleteKeywordRE.FindStringIndex(text)
	if loc == nil {
		return domain.DeleteQuery{}, ErrEmptyDeletePhrase
	}

	phrase := strings.TrimSpace(text[loc[1]:])
	phrase = fillerPrefixRE.ReplaceAllString(phrase, "")
	phrase = strings.TrimSpace(trailingPunctRE.ReplaceAllString(phrase, ""))
	if phrase == "" {
		return domain.DeleteQuery{}, ErrEmptyDeletePhrase
	}
	return domain.DeleteQuery{Phrase: phrase}, nil
}

// Candidates returns the snapshot items whose name or location overlaps
// phrase in either direction, in snapshot order.
func Candidates(phrase string, snapshot []domain.PantryItem) []domain.PantryItem {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return nil
	}

	var out []domain.PantryItem
	for _, item := range snapshot {
		if overlaps(item.Name, phrase) || overlaps(item.Location, phrase) {
			out = append(out, item)
		}
	}
	return out
}

// ResolveTarget picks the item q refers to. Among several candidates the one
// expiring soonest wins; ties keep snapshot order.
func ResolveTarget(q domain.DeleteQuery, snapshot []domain.PantryItem) (string, error) {
	if strings.TrimSpace(q.Phrase) == "" {
		return "", ErrEmptyDeletePhrase
	}

	candidates := Candidates(q.Phrase, snapshot)
	if len(candidates) == 0 {
		return "", ErrDeleteNotFound
	}

	best := candidates[0]
	for _, item := range candidates[1:] {
		if expiresBefore(item.ExpirationDate, best.ExpirationDate) {
			best = item
		}
	}
	return best.ID, nil
}

func overlaps(field, phrase string) bool {
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" {
		return false
	}
	return strings.Contains(field, phrase) || strings.Contains(phrase, field)
}

// expiresBefore is false whenever either date is unreadable, so a bad record
// never displaces the current best.
func expiresBefore(a, b string) bool {
	ta, errA := time.Parse(domain.DateLayout, a)
	tb, errB := time.Parse(domain.DateLayout, b)
	if errA != nil || errB != nil {
		return false
	}
	return ta.Before(tb)
}
