package domain

import (
	"fmt"
	"math"
	"time"
)

const DateLayout = "2006-01-02"

type Tone string

const (
	ToneDanger  Tone = "danger"
	ToneWarning Tone = "warning"
	ToneSafe    Tone = "safe"
	ToneMuted   Tone = "muted"
)

type ExpirationMeta struct {
	Label string
	Tone  Tone
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate reads a YYYY-MM-DD string as local midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// DaysUntil returns the whole number of calendar days from today to date.
func DaysUntil(date string, today time.Time) (int, error) {
	expiry, err := time.ParseInLocation(DateLayout, date, today.Location())
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", date, err)
	}
	diff := expiry.Sub(StartOfDay(today)).Hours() / 24
	return int(math.Round(diff)), nil
}

func ExpirationStatus(date string, today time.Time) ExpirationMeta {
	days, err := DaysUntil(date, today)
	if err != nil {
		return ExpirationMeta{Label: "Unknown", Tone: ToneMuted}
	}

	switch {
	case days < 0:
		return ExpirationMeta{Label: fmt.Sprintf("Expired %dd ago", -days), Tone: ToneDanger}
	case days == 0:
		return ExpirationMeta{Label: "Expires today", Tone: ToneWarning}
	case days == 1:
		return ExpirationMeta{Label: "Expires tomorrow", Tone: ToneWarning}
	case days <= 7:
		return ExpirationMeta{Label: fmt.Sprintf("In %d days", days), Tone: ToneWarning}
	default:
		return ExpirationMeta{Label: fmt.Sprintf("In %d days", days), Tone: ToneSafe}
	}
}
