package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindCues(t *testing.T) {
	text := "2 yogurts that expires tomorrow 2026-03-01"
	got := map[cueKind]int{}
	for _, c := range findCues(text) {
		got[c.kind] = c.start
	}

	assert.Equal(t, map[cueKind]int{
		cueQuantity:      0,
		cueConnector:     10,
		cueExpiryKeyword: 15,
		cueDayKeyword:    23,
		cueAbsoluteDate:  32,
	}, got)
}

func TestNameWindow_EarliestCueWins(t *testing.T) {
	text := "milk in the fridge in 3 days expires"
	cues := []cue{
		{kind: cueExpiryKeyword, start: 29, end: 36},
		{kind: cueRelative, start: 19, end: 28},
	}
	start, end := nameWindow(text, cues)
	assert.Equal(t, 0, start)
	assert.Equal(t, 19, end)
}

func TestNameWindow_QuantityIsPrefix(t *testing.T) {
	text := "3 avocados"
	start, end := nameWindow(text, []cue{{kind: cueQuantity, start: 0, end: 2}})
	assert.Equal(t, 2, start)
	assert.Equal(t, len(text), end)
}

func TestNameWindow_NoCues(t *testing.T) {
	start, end := nameWindow("plain rice", nil)
	assert.Equal(t, 0, start)
	assert.Equal(t, 10, end)
}

func TestNameWindow_LeadingCueFallsBackToRest(t *testing.T) {
	text := "3 tomorrow eggs"
	cues := []cue{
		{kind: cueQuantity, start: 0, end: 2},
		{kind: cueDayKeyword, start: 2, end: 10},
	}
	start, end := nameWindow(text, cues)
	assert.Equal(t, 2, start)
	assert.Equal(t, len(text), end)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"3 avocados", "avocados"},
		{"2 yogurts exp 2026-03-01", "yogurts"},
		{"bag of salad expires tomorrow", "bag of salad"},
		{"milk in the fridge in 3 days", "milk in the fridge"},
		{"  spaced    out   beans  ", "spaced out beans"},
		{"soup which use by today", "soup"},
		{"TODAY", ""},
		{"5 expires", ""},
		{"cheese", "cheese"},
		{"milk expiring tomorrow", "milk"},
		{"ham Expired 2026-01-02", "ham"},
		{"tomorrow milk", "milk"},
		{"3 tomorrow eggs", "eggs"},
		{"in 3 days bread", "bread"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}

func TestCueKindString(t *testing.T) {
	assert.Equal(t, "relative", cueRelative.String())
	assert.Equal(t, "quantity", cueQuantity.String())
	assert.Equal(t, "unknown", cueKind(99).String())
}
