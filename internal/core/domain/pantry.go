package domain

import "time"

type PantryItem struct {
	ID             string
	Name           string
	Quantity       int
	ExpirationDate string // YYYY-MM-DD
	Location       string
	CreatedAt      time.Time
}

// AddCommand is the structured form of an add request, whether it came from
// free text, the JSON API or a voice assistant slot set.
type AddCommand struct {
	Name           string
	Quantity       int
	ExpirationDate string
	Location       string
}

type DeleteQuery struct {
	Phrase string
}

type ListFilter struct {
	ExpiringWithinDays *int
	Limit              int
}

const (
	DefaultItemName  = "Pantry item"
	DefaultShelfLife = 7
	DefaultListLimit = 50
	DefaultQuantity  = 1
)

// NewAddCommand builds an AddCommand from already-structured values. A
// non-positive quantity becomes 1 and an empty expiration becomes today plus
// shelfLifeDays.
func NewAddCommand(name string, quantity int, expiration string, shelfLifeDays int, location string, now time.Time) AddCommand {
	if quantity <= 0 {
		quantity = DefaultQuantity
	}
	if expiration == "" {
		expiration = FormatDate(StartOfDay(now).AddDate(0, 0, shelfLifeDays))
	}
	return AddCommand{
		Name:           name,
		Quantity:       quantity,
		ExpirationDate: expiration,
		Location:       location,
	}
}
