/*
expiry.go - Remaining useful life and end-of-life dates

PURPOSE:
  Translates "original useful life + acquisition date" into an end-of-life
  date. Every December 31 since acquisition consumes exactly one year of
  life, whatever day within the year depreciation actually posts.

TWO EXPIRY DATES:
  ExpiryDateAlignedToYearEnd: accounting-canonical, always a December 31.
                              This is the only value that gets persisted.
  ExpiryDate:                 continuous approximation (365.25 days/year)
                              for live display. Never persist it; it drifts
                              as the evaluation date moves within a year.

All functions are pure and take the evaluation date explicitly.
*/
package depreciation

import (
	"time"

	"github.com/shopspring/decimal"
)

var daysPerYear = decimal.RequireFromString("365.25")

// CountYearEndsSince counts the December 31 dates d with
// acquired <= d <= asOf, both ends inclusive.
func CountYearEndsSince(acquired, asOf time.Time) int {
	from, to := DateOf(acquired), DateOf(asOf)
	if to.Before(from) {
		return 0
	}

	count := 0
	for year := from.Year(); year <= to.Year(); year++ {
		yearEnd := EndOfYear(year)
		if !yearEnd.Before(from) && !yearEnd.After(to) {
			count++
		}
	}
	return count
}

// RemainingUsefulLife is the original life minus the year-ends already
// crossed, floored at zero.
func RemainingUsefulLife(originalLife decimal.Decimal, acquired, asOf time.Time) decimal.Decimal {
	remaining := originalLife.Sub(decimal.NewFromInt(int64(CountYearEndsSince(acquired, asOf))))
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ExpiryDate is the display-only end-of-life estimate: asOf plus the
// remaining life at 365.25 days per year, truncated to whole days.
// An exhausted life yields asOf itself.
func ExpiryDate(acquired time.Time, originalLife decimal.Decimal, asOf time.Time) time.Time {
	asOf = DateOf(asOf)
	remaining := RemainingUsefulLife(originalLife, acquired, asOf)
	if !remaining.IsPositive() {
		return asOf
	}
	days := remaining.Mul(daysPerYear).IntPart()
	return asOf.AddDate(0, 0, int(days))
}

// ExpiryDateAlignedToYearEnd is the persisted end-of-life date. An exhausted
// life yields December 31 of asOf's year; otherwise December 31 of
// asOf.Year() + floor(remaining). Fractional remaining life is absorbed
// by the floor.
func ExpiryDateAlignedToYearEnd(acquired time.Time, originalLife decimal.Decimal, asOf time.Time) time.Time {
	remaining := RemainingUsefulLife(originalLife, acquired, asOf)
	if !remaining.IsPositive() {
		return EndOfYear(asOf.Year())
	}
	return EndOfYear(asOf.Year() + int(remaining.Floor().IntPart()))
}
