// Package interpreter turns a free-form pantry sentence into a structured add
// or delete command. It performs no I/O and keeps no state between calls, so a
// single Interpreter may be shared by any number of goroutines.
package interpreter

import (
	"errors"
	"strings"
	"time"

	"github.com/rl1809/smart-pantry/internal/core/domain"
)

var (
	ErrEmptyUtterance    = errors.New("empty utterance")
	ErrAmbiguousExpiry   = errors.New("expiry mentioned but timing not understood")
	ErrEmptyDeletePhrase = errors.New("delete phrase is empty")
	ErrDeleteNotFound    = errors.New("no item matches delete phrase")
)

type Intent string

const (
	IntentAdd    Intent = "add"
	IntentDelete Intent = "delete"
)

type Options struct {
	// ShelfLifeDays is added to today when the utterance says nothing about
	// expiry. Defaults to 7.
	ShelfLifeDays int
	// DefaultName replaces an item name that normalizes to nothing.
	DefaultName string
	// Now is the clock used to compute "today". Defaults to time.Now.
	Now func() time.Time
}

type Interpreter struct {
	shelfLifeDays int
	defaultName   string
	now           func() time.Time
}

func New(opts Options) *Interpreter {
	if opts.ShelfLifeDays <= 0 {
		opts.ShelfLifeDays = domain.DefaultShelfLife
	}
	if strings.TrimSpace(opts.DefaultName) == "" {
		opts.DefaultName = domain.DefaultItemName
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Interpreter{
		shelfLifeDays: opts.ShelfLifeDays,
		defaultName:   opts.DefaultName,
		now:           opts.Now,
	}
}

// Result is the outcome of Interpret. Exactly one of Add or Delete is set
// when err is nil; TargetID is only set for deletes.
type Result struct {
	Intent   Intent
	Add      *domain.AddCommand
	Delete   *domain.DeleteQuery
	TargetID string
}

// Interpret classifies text and runs the matching branch. snapshot is only
// read on the delete branch and is never modified.
func (in *Interpreter) Interpret(text string, snapshot []domain.PantryItem) (Result, error) {
	if Classify(text) == IntentDelete {
		res := Result{Intent: IntentDelete}
		q, err := ParseDelete(text)
		if err != nil {
			return res, err
		}
		res.Delete = &q
		id, err := ResolveTarget(q, snapshot)
		if err != nil {
			return res, err
		}
		res.TargetID = id
		return res, nil
	}

	cmd, err := in.ParseAdd(text)
	if err != nil {
		return Result{Intent: IntentAdd}, err
	}
	return Result{Intent: IntentAdd, Add: &cmd}, nil
}

// ParseAdd extracts quantity, expiration, name and location from an add
// utterance.
func (in *Interpreter) ParseAdd(raw string) (domain.AddCommand, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return domain.AddCommand{}, ErrEmptyUtterance
	}

	quantity, _ := ExtractQuantity(text)

	expires, err := in.ResolveExpiration(text)
	if err != nil {
		return domain.AddCommand{}, err
	}

	// Location runs on the normalized name so date-like text never reaches it.
	name, location := ExtractLocation(NormalizeName(text))
	if name == "" {
		name = in.defaultName
	}

	return domain.AddCommand{
		Name:           name,
		Quantity:       quantity,
		ExpirationDate: domain.FormatDate(expires),
		Location:       location,
	}, nil
}

// Today is the interpreter's notion of the current calendar day.
func (in *Interpreter) Today() time.Time {
	return domain.StartOfDay(in.now())
}

func (in *Interpreter) ShelfLifeDays() int {
	return in.shelfLifeDays
}
