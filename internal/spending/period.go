// Package spending derives per-period, per-category spending breakdowns and
// the angular layout of the spending pie from the transaction history.
//
// This file implements the Strategy Pattern for reporting windows. Each period
// type has its own strategy that resolves the [from, to) window around "now".
package spending

import (
	"fmt"
	"time"
)

const (
	Week  Period = "week"
	Month Period = "month"
)

type Period string

func (p Period) IsValid() bool {
	_, err := WindowFor(p)
	return err == nil
}

// Window is the strategy interface for resolving a reporting window.
type Window interface {
	// Bounds returns the half-open interval [from, to) that contains now.
	Bounds(now time.Time) (from, to time.Time)
}

// MonthWindow covers the calendar month containing now.
type MonthWindow struct{}

func (MonthWindow) Bounds(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}

// WeekWindow covers the Monday-start week containing now, clipped to the
// calendar month so that weeks never straddle two months.
type WeekWindow struct{}

func (WeekWindow) Bounds(now time.Time) (time.Time, time.Time) {
	monthFrom, monthTo := MonthWindow{}.Bounds(now)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(now.Weekday()) + 6) % 7
	from := midnight.AddDate(0, 0, -offset)
	to := from.AddDate(0, 0, 7)
	if from.Before(monthFrom) {
		from = monthFrom
	}
	if to.After(monthTo) {
		to = monthTo
	}
	return from, to
}

// WindowFor returns the strategy for a period.
func WindowFor(p Period) (Window, error) {
	switch p {
	case Week:
		return WeekWindow{}, nil
	case Month:
		return MonthWindow{}, nil
	default:
		return nil, fmt.Errorf("invalid period %q", p)
	}
}

// Contains reports whether ts falls in the period anchored to now.
func Contains(w Window, ts, now time.Time) bool {
	from, to := w.Bounds(now)
	return !ts.Before(from) && ts.Before(to)
}
