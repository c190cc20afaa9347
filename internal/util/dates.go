// Package util provides calendar helpers shared by the ETL and backtest layers.
package util

import (
	"time"
)

// NSEDateLayout is the date format used by NSE settlement files (e.g. "25-Apr-2025").
const NSEDateLayout = "02-Jan-2006"

// DayLayout is the ISO day format used for storage keys.
const DayLayout = "2006-01-02"

// Day truncates t to midnight UTC. All dates in the system are day-granular.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseNSEDate parses a "25-Apr-2025" style date into a UTC midnight time.
func ParseNSEDate(s string) (time.Time, error) {
	t, err := time.Parse(NSEDateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// YearsBetween returns the fractional number of years from `from` to `to`,
// clamped at zero for expired contracts. Uses a 365-day year.
func YearsBetween(from, to time.Time) float64 {
	days := to.Sub(from).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	return days / 365.0
}

// PrevBusinessDay returns the last weekday strictly before t.
func PrevBusinessDay(t time.Time) time.Time {
	d := Day(t).AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// MondayIndex maps a weekday to a Monday-based index (Mon=0 .. Sun=6),
// so "earlier in the trading week" comparisons work across the Sunday wrap.
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// NextWeekday returns the first date with the given weekday strictly after t.
func NextWeekday(t time.Time, wd time.Weekday) time.Time {
	d := Day(t)
	for {
		d = d.AddDate(0, 0, 1)
		if d.Weekday() == wd {
			return d
		}
	}
}

// MonthBounds returns the first and last day of the given month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}
