package depreciation

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleRow is one projected year-end posting.
type ScheduleRow struct {
	FiscalYear              int
	YearEnd                 time.Time
	Depreciation            decimal.Decimal
	AccumulatedDepreciation decimal.Decimal
	NetBookValue            decimal.Decimal
	ExpiryDate              time.Time
	Reason                  string
}

// ProjectSchedule replays DepreciationForYear from a freshly acquired asset
// until a step applies nothing. The first posting is on December 31 of the
// purchase year.
func ProjectSchedule(cost, residual, usefulLife decimal.Decimal, purchased time.Time) []ScheduleRow {
	var rows []ScheduleRow

	nbv := cost
	// Bounded by the useful life; the extra slot covers a fractional tail.
	maxYears := int(usefulLife.Ceil().IntPart()) + 1
	for applied := 0; applied < maxYears; applied++ {
		step := DepreciationForYear(YearInput{
			Cost:                cost,
			ResidualValue:       residual,
			UsefulLife:          usefulLife,
			PurchaseDate:        purchased,
			YearsApplied:        applied,
			CurrentNetBookValue: nbv,
		})
		if step.Stopped() {
			break
		}

		yearEnd := EndOfYear(purchased.Year() + applied)
		rows = append(rows, ScheduleRow{
			FiscalYear:              yearEnd.Year(),
			YearEnd:                 yearEnd,
			Depreciation:            step.DepreciationToApply,
			AccumulatedDepreciation: step.NewAccumulatedDepreciation,
			NetBookValue:            step.NewNetBookValue,
			ExpiryDate:              ExpiryDateAlignedToYearEnd(purchased, usefulLife, yearEnd),
			Reason:                  step.Reason,
		})
		nbv = step.NewNetBookValue
	}
	return rows
}
