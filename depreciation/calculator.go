/*
Package depreciation computes straight-line depreciation under a calendar
year convention: every depreciation event posts on December 31.

KEY CONCEPTS:
  - First year is prorated by purchase month (December purchase = 1 month,
    January purchase = 12 months).
  - Later years take the full yearly amount.
  - Net book value never falls below the residual value.
  - Depreciation stops once the applied years reach the useful life or the
    net book value reaches the residual value.

Everything here is pure and works on scalar fields only. Callers own
persistence and the years-applied counter.

SEE ALSO:
  - expiry.go: remaining useful life and end-of-life dates
  - schedule.go: full lifecycle projection
  - yearend/service.go: the batch that applies one step per fiscal year
*/
package depreciation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stop and progress reasons reported by DepreciationForYear.
const (
	ReasonUsefulLifeCompleted = "Useful life completed"
	ReasonResidualReached     = "Net book value has reached residual value"
	ReasonApplied             = "Depreciation applied"
)

// CurrencyPlaces is the scale the amount to apply is rounded to.
const CurrencyPlaces = 2

var monthsPerYear = decimal.NewFromInt(12)

// minimumCharge is posted when a positive amount rounds to zero cents, so
// the years-applied counter keeps moving.
var minimumCharge = decimal.New(1, -CurrencyPlaces)

// YearlyDepreciation is (cost - residual) / usefulLife, or zero when the
// useful life is not positive.
func YearlyDepreciation(cost, residual, usefulLife decimal.Decimal) decimal.Decimal {
	if !usefulLife.IsPositive() {
		return decimal.Zero
	}
	return cost.Sub(residual).Div(usefulLife)
}

// MonthlyDepreciation is the yearly amount spread over twelve months.
func MonthlyDepreciation(cost, residual, usefulLife decimal.Decimal) decimal.Decimal {
	return YearlyDepreciation(cost, residual, usefulLife).Div(monthsPerYear)
}

// MonthsUsedInFirstYear returns 13 - purchase month.
func MonthsUsedInFirstYear(purchased time.Time) int {
	return 12 - int(purchased.Month()) + 1
}

// MonthsUsedInFirstYearFromString is MonthsUsedInFirstYear for an ISO-8601
// date or date-time string.
func MonthsUsedInFirstYearFromString(purchased string) (int, error) {
	d, err := ParseDate(purchased)
	if err != nil {
		return 0, err
	}
	return MonthsUsedInFirstYear(d), nil
}

// FirstYearDepreciation prorates the first year by the months the asset was
// held before December 31, purchase month included.
func FirstYearDepreciation(cost, residual, usefulLife decimal.Decimal, purchased time.Time) decimal.Decimal {
	months := decimal.NewFromInt(int64(MonthsUsedInFirstYear(purchased)))
	return MonthlyDepreciation(cost, residual, usefulLife).Mul(months)
}

// YearInput is the asset state one depreciation step starts from.
type YearInput struct {
	Cost                decimal.Decimal
	ResidualValue       decimal.Decimal
	UsefulLife          decimal.Decimal
	PurchaseDate        time.Time
	YearsApplied        int
	CurrentNetBookValue decimal.Decimal
}

// YearResult is the outcome of one depreciation step.
type YearResult struct {
	DepreciationToApply        decimal.Decimal
	NewAccumulatedDepreciation decimal.Decimal
	NewNetBookValue            decimal.Decimal
	ShouldContinue             bool
	Reason                     string
}

// Stopped reports whether the step applied nothing.
func (r YearResult) Stopped() bool {
	return !r.DepreciationToApply.IsPositive()
}

// DepreciationForYear computes a single year's step. Checks run in order:
// useful life exhausted, residual reached, then the prorated (first year)
// or full yearly amount, clamped so the new NBV never drops below residual.
func DepreciationForYear(in YearInput) YearResult {
	currentAccumulated := in.Cost.Sub(in.CurrentNetBookValue)

	if decimal.NewFromInt(int64(in.YearsApplied)).GreaterThanOrEqual(in.UsefulLife) {
		return stopped(in, currentAccumulated, ReasonUsefulLifeCompleted)
	}
	if in.CurrentNetBookValue.LessThanOrEqual(in.ResidualValue) {
		return stopped(in, currentAccumulated, ReasonResidualReached)
	}

	var amount decimal.Decimal
	if in.YearsApplied == 0 {
		amount = FirstYearDepreciation(in.Cost, in.ResidualValue, in.UsefulLife, in.PurchaseDate)
	} else {
		amount = YearlyDepreciation(in.Cost, in.ResidualValue, in.UsefulLife)
	}
	if rounded := amount.Round(CurrencyPlaces); rounded.IsZero() && amount.IsPositive() {
		amount = minimumCharge
	} else {
		amount = rounded
	}

	newNBV := in.CurrentNetBookValue.Sub(amount)
	if newNBV.LessThan(in.ResidualValue) {
		amount = in.CurrentNetBookValue.Sub(in.ResidualValue)
		newNBV = in.ResidualValue
	}

	shouldContinue := newNBV.GreaterThan(in.ResidualValue) &&
		decimal.NewFromInt(int64(in.YearsApplied+1)).LessThan(in.UsefulLife)

	reason := ReasonApplied
	switch {
	case shouldContinue:
	case !newNBV.GreaterThan(in.ResidualValue):
		reason = ReasonResidualReached
	default:
		reason = ReasonUsefulLifeCompleted
	}

	return YearResult{
		DepreciationToApply:        amount,
		NewAccumulatedDepreciation: currentAccumulated.Add(amount),
		NewNetBookValue:            newNBV,
		ShouldContinue:             shouldContinue,
		Reason:                     reason,
	}
}

func stopped(in YearInput, accumulated decimal.Decimal, reason string) YearResult {
	return YearResult{
		DepreciationToApply:        decimal.Zero,
		NewAccumulatedDepreciation: accumulated,
		NewNetBookValue:            in.CurrentNetBookValue,
		ShouldContinue:             false,
		Reason:                     reason,
	}
}
