package interpreter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

// fixedNow is mid-afternoon on the last day of January so month arithmetic
// and time-of-day truncation are both exercised.
var fixedNow = time.Date(2026, time.January, 31, 15, 30, 0, 0, time.Local)

func newTestInterpreter() *Interpreter {
	return New(Options{Now: func() time.Time { return fixedNow }})
}

func TestParseAdd(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantQty  int
		wantDate string
		wantLoc  string
	}{
		{"leading quantity defaults to a week", "3 avocados", "avocados", 3, "2026-02-07", ""},
		{"absolute date after exp", "2 yogurts exp 2026-03-01", "yogurts", 2, "2026-03-01", ""},
		{"expires tomorrow", "bag of salad expires tomorrow", "bag of salad", 1, "2026-02-01", ""},
		{"location before relative date", "milk in the fridge in 3 days", "milk", 1, "2026-02-03", "fridge"},
		{"today keyword", "leftover soup today", "leftover soup", 1, "2026-01-31", ""},
		{"word count weeks", "2 cheddar blocks in two weeks", "cheddar blocks", 2, "2026-02-14", ""},
		{"month overflow rounds forward", "frozen peas in one month", "frozen peas", 1, "2026-03-03", ""},
		{"connector phrase", "milk that expires in 5 days", "milk", 1, "2026-02-05", ""},
		{"use by spacing variant", "ham USE BY 2026-02-10", "ham", 1, "2026-02-10", ""},
		{"best-by with location", "crackers on the pantry shelf best-by tomorrow", "crackers", 1, "2026-02-01", "pantry shelf"},
		{"location without article", "4 ice pops in freezer", "ice pops", 4, "2026-02-07", "freezer"},
		{"case insensitive relative", "Bread In 3 Days", "Bread", 1, "2026-02-03", ""},
		{"only cues leaves placeholder", "expires tomorrow", domain.DefaultItemName, 1, "2026-02-01", ""},
		{"expensive is not an expiry cue", "expensive cheese", "expensive cheese", 1, "2026-02-07", ""},
		{"first relative expression wins", "jam in 2 days in 9 months", "jam", 1, "2026-02-02", ""},
		{"absolute beats relative", "tofu in 3 days 2026-05-01", "tofu", 1, "2026-05-01", ""},
		{"expiring wording cuts the name", "milk expiring tomorrow", "milk", 1, "2026-02-01", ""},
		{"leading day keyword", "tomorrow milk", "milk", 1, "2026-02-01", ""},
		{"day keyword right after quantity", "3 tomorrow eggs", "eggs", 3, "2026-02-01", ""},
		{"within is not a relative cue", "milk within 3 days", "milk within 3 days", 1, "2026-02-07", ""},
	}

	in := newTestInterpreter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := in.ParseAdd(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, cmd.Name)
			assert.Equal(t, tt.wantQty, cmd.Quantity)
			assert.Equal(t, tt.wantDate, cmd.ExpirationDate)
			assert.Equal(t, tt.wantLoc, cmd.Location)
		})
	}
}

func TestParseAdd_AmbiguousExpiry(t *testing.T) {
	in := newTestInterpreter()
	for _, input := range []string{
		"chicken expires",
		"chicken expires soon",
		"yogurt best by next friday",
		"beans exp. later",
		"steak use-by whenever",
		"rice expires in 0 days",
		"milk expiring soon",
		"yogurt expiry next week",
		"cheese expiration friday",
		"ham expired yesterday",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := in.ParseAdd(input)
			assert.ErrorIs(t, err, ErrAmbiguousExpiry)
		})
	}
}

func TestParseAdd_EmptyUtterance(t *testing.T) {
	_, err := newTestInterpreter().ParseAdd("   ")
	assert.ErrorIs(t, err, ErrEmptyUtterance)
}

func TestParseAdd_CustomDefaults(t *testing.T) {
	in := New(Options{
		ShelfLifeDays: 3,
		DefaultName:   "Mystery item",
		Now:           func() time.Time { return fixedNow },
	})

	cmd, err := in.ParseAdd("in the fridge")
	require.NoError(t, err)
	assert.Equal(t, "Mystery item", cmd.Name)
	assert.Equal(t, "fridge", cmd.Location)
	assert.Equal(t, "2026-02-03", cmd.ExpirationDate)
}

func TestParseAdd_ExpirationRoundTrip(t *testing.T) {
	in := newTestInterpreter()
	inputs := []string{
		"3 avocados",
		"2 yogurts exp 2026-03-01",
		"bag of salad expires tomorrow",
		"milk in the fridge in 3 days",
		"frozen peas in 12 months",
	}

	for _, input := range inputs {
		cmd, err := in.ParseAdd(input)
		require.NoError(t, err, input)

		parsed, err := domain.ParseDate(cmd.ExpirationDate)
		require.NoError(t, err, input)
		assert.Equal(t, cmd.ExpirationDate, domain.FormatDate(parsed), input)

		expected, err := in.ResolveExpiration(input)
		require.NoError(t, err, input)
		assert.True(t, expected.Equal(parsed), "%s: %v != %v", input, expected, parsed)
	}
}

func TestInterpret_AddBranch(t *testing.T) {
	res, err := newTestInterpreter().Interpret("3 avocados", nil)
	require.NoError(t, err)
	assert.Equal(t, IntentAdd, res.Intent)
	require.NotNil(t, res.Add)
	assert.Nil(t, res.Delete)
	assert.Equal(t, "avocados", res.Add.Name)
}

func TestInterpret_DeleteBranch(t *testing.T) {
	snapshot := []domain.PantryItem{
		{ID: "a", Name: "Milk", ExpirationDate: "2026-02-04"},
		{ID: "b", Name: "Shaved Steak", ExpirationDate: "2026-02-02"},
	}

	res, err := newTestInterpreter().Interpret("delete the shaved steak", snapshot)
	require.NoError(t, err)
	assert.Equal(t, IntentDelete, res.Intent)
	require.NotNil(t, res.Delete)
	assert.Equal(t, "shaved steak", res.Delete.Phrase)
	assert.Equal(t, "b", res.TargetID)
}

func TestInterpret_DeleteFailures(t *testing.T) {
	in := newTestInterpreter()

	res, err := in.Interpret("remove", nil)
	assert.ErrorIs(t, err, ErrEmptyDeletePhrase)
	assert.Equal(t, IntentDelete, res.Intent)

	res, err = in.Interpret("remove the caviar", []domain.PantryItem{{ID: "a", Name: "Milk"}})
	assert.ErrorIs(t, err, ErrDeleteNotFound)
	require.NotNil(t, res.Delete)
	assert.Equal(t, "caviar", res.Delete.Phrase)
}

func TestInterpret_DoesNotMutateSnapshot(t *testing.T) {
	snapshot := []domain.PantryItem{
		{ID: "a", Name: "Yogurt", ExpirationDate: "2026-02-09"},
		{ID: "b", Name: "Greek yogurt", ExpirationDate: "2026-02-03"},
	}
	before := append([]domain.PantryItem(nil), snapshot...)

	_, err := newTestInterpreter().Interpret("remove yogurt", snapshot)
	require.NoError(t, err)
	assert.Equal(t, before, snapshot)
}
