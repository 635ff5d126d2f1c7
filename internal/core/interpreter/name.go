package interpreter

import (
	"regexp"
	"strings"
)

type cueKind int

const (
	cueAbsoluteDate cueKind = iota
	cueRelative
	cueConnector
	cueExpiryKeyword
	cueDayKeyword
	cueQuantity
)

func (k cueKind) String() string {
	switch k {
	case cueAbsoluteDate:
		return "absolute-date"
	case cueRelative:
		return "relative"
	case cueConnector:
		return "connector"
	case cueExpiryKeyword:
		return "expiry-keyword"
	case cueDayKeyword:
		return "day-keyword"
	case cueQuantity:
		return "quantity"
	}
	return "unknown"
}

// cue is one piece of metadata language found in an utterance.
type cue struct {
	kind  cueKind
	start int
	end   int
}

// cueMatchers lists every cue that can end the item name. Order is only used
// to make findCues deterministic; the earliest start offset always wins.
var cueMatchers = []struct {
	kind cueKind
	re   *regexp.Regexp
}{
	{cueAbsoluteDate, absoluteDateRE},
	{cueRelative, relativeRE},
	{cueConnector, connectorRE},
	{cueExpiryKeyword, expiryKeywordRE},
	{cueDayKeyword, dayKeywordRE},
}

// nameScrubbers are removed from the working name, in this order.
var nameScrubbers = []*regexp.Regexp{
	absoluteDateRE,
	expiryKeywordRE,
	relativeRE,
	dayKeywordRE,
}

var whitespaceRE = regexp.MustCompile(`\s+`)

func findCues(text string) []cue {
	var cues []cue
	if _, span := ExtractQuantity(text); span != nil {
		cues = append(cues, cue{kind: cueQuantity, start: span[0], end: span[1]})
	}
	for _, m := range cueMatchers {
		if loc := m.re.FindStringIndex(text); loc != nil {
			cues = append(cues, cue{kind: m.kind, start: loc[0], end: loc[1]})
		}
	}
	return cues
}

// nameWindow returns the byte range of text that holds the item name. A
// leading quantity is consumed as a prefix; every other cue cuts the name off
// at its start, and the earliest one wins.
func nameWindow(text string, cues []cue) (int, int) {
	start, end := 0, len(text)
	for _, c := range cues {
		if c.kind == cueQuantity {
			start = c.end
		}
	}
	for _, c := range cues {
		if c.kind == cueQuantity || c.start < start {
			continue
		}
		if c.start < end {
			end = c.start
		}
	}
	// A cue opening the name ("tomorrow milk") leaves nothing before it; the
	// rest of the text is used instead and the scrubbers clean it up.
	if strings.TrimSpace(text[start:end]) == "" {
		end = len(text)
	}
	return start, end
}

// NormalizeName returns the item name with every date, expiry and quantity
// cue removed. The result may be empty.
func NormalizeName(text string) string {
	text = strings.TrimSpace(text)
	start, end := nameWindow(text, findCues(text))

	name := text[start:end]
	for _, re := range nameScrubbers {
		name = re.ReplaceAllString(name, "")
	}
	name = whitespaceRE.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
