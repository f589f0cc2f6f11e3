package depreciation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fixed-assets/depreciation"
)

func TestCountYearEndsSince(t *testing.T) {
	acquired := depreciation.NewDate(2025, time.November, 11)

	assert.Equal(t, 0, depreciation.CountYearEndsSince(acquired, depreciation.NewDate(2025, time.November, 12)))
	assert.Equal(t, 1, depreciation.CountYearEndsSince(acquired, depreciation.NewDate(2025, time.December, 31)), "evaluation end is inclusive")
	assert.Equal(t, 1, depreciation.CountYearEndsSince(acquired, depreciation.NewDate(2026, time.January, 1)))
	assert.Equal(t, 3, depreciation.CountYearEndsSince(acquired, depreciation.NewDate(2027, time.December, 31)))

	// Acquisition on a year-end counts that year-end.
	yearEnd := depreciation.NewDate(2024, time.December, 31)
	assert.Equal(t, 1, depreciation.CountYearEndsSince(yearEnd, yearEnd))

	// Evaluation before acquisition.
	assert.Equal(t, 0, depreciation.CountYearEndsSince(acquired, depreciation.NewDate(2020, time.January, 1)))
}

func TestCountYearEndsSince_IgnoresClockTime(t *testing.T) {
	acquired := time.Date(2025, time.December, 31, 18, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, time.December, 31, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, depreciation.CountYearEndsSince(acquired, asOf))
}

func TestRemainingUsefulLife(t *testing.T) {
	acquired := depreciation.NewDate(2025, time.November, 11)

	assertDecimal(t, "5", depreciation.RemainingUsefulLife(dec("5"), acquired, depreciation.NewDate(2025, time.November, 12)))
	assertDecimal(t, "4", depreciation.RemainingUsefulLife(dec("5"), acquired, depreciation.NewDate(2026, time.January, 1)))
	assertDecimal(t, "4.5", depreciation.RemainingUsefulLife(dec("5.5"), acquired, depreciation.NewDate(2026, time.January, 1)))
	assertDecimal(t, "0", depreciation.RemainingUsefulLife(dec("2"), acquired, depreciation.NewDate(2040, time.January, 1)), "never negative")
	assertDecimal(t, "0", depreciation.RemainingUsefulLife(dec("-1"), acquired, acquired))
}

func TestExpiryDateAlignedToYearEnd(t *testing.T) {
	acquired := depreciation.NewDate(2025, time.November, 11)

	// No year-end crossed yet: remaining 5.
	got := depreciation.ExpiryDateAlignedToYearEnd(acquired, dec("5"), depreciation.NewDate(2025, time.November, 12))
	assert.Equal(t, depreciation.NewDate(2030, time.December, 31), got)

	// One year-end crossed: remaining 4, evaluated in 2026.
	got = depreciation.ExpiryDateAlignedToYearEnd(acquired, dec("5"), depreciation.NewDate(2026, time.January, 1))
	assert.Equal(t, depreciation.NewDate(2030, time.December, 31), got)

	// Fractional remainder is floored.
	got = depreciation.ExpiryDateAlignedToYearEnd(acquired, dec("5.5"), depreciation.NewDate(2026, time.January, 1))
	assert.Equal(t, depreciation.NewDate(2030, time.December, 31), got)

	// Exhausted life.
	got = depreciation.ExpiryDateAlignedToYearEnd(acquired, dec("1"), depreciation.NewDate(2027, time.June, 3))
	assert.Equal(t, depreciation.NewDate(2027, time.December, 31), got)

	got = depreciation.ExpiryDateAlignedToYearEnd(acquired, dec("0"), depreciation.NewDate(2025, time.November, 12))
	assert.Equal(t, depreciation.NewDate(2025, time.December, 31), got)
}

func TestExpiryDateAlignedToYearEnd_AlwaysDecember31(t *testing.T) {
	acquired := depreciation.NewDate(2019, time.February, 28)
	for asOf := depreciation.NewDate(2019, time.March, 1); asOf.Year() < 2031; asOf = asOf.AddDate(0, 0, 37) {
		got := depreciation.ExpiryDateAlignedToYearEnd(acquired, dec("7.25"), asOf)
		require.Equal(t, time.December, got.Month(), asOf)
		require.Equal(t, 31, got.Day(), asOf)
	}
}

func TestExpiryDate_Continuous(t *testing.T) {
	acquired := depreciation.NewDate(2025, time.November, 11)
	asOf := depreciation.NewDate(2025, time.November, 12)

	// 5 * 365.25 = 1826.25 -> 1826 days
	assert.Equal(t, asOf.AddDate(0, 0, 1826), depreciation.ExpiryDate(acquired, dec("5"), asOf))

	// Exhausted life returns the evaluation date unchanged.
	later := depreciation.NewDate(2031, time.March, 4)
	assert.Equal(t, later, depreciation.ExpiryDate(acquired, dec("5"), later))
	assert.Equal(t, asOf, depreciation.ExpiryDate(acquired, dec("0"), asOf))
}

func TestParseDate(t *testing.T) {
	d, err := depreciation.ParseDate("2025-10-15T22:10:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, depreciation.NewDate(2025, time.October, 15), d)

	d, err = depreciation.ParseDate("2025-10-15T22:10")
	require.NoError(t, err)
	assert.Equal(t, depreciation.NewDate(2025, time.October, 15), d)

	_, err = depreciation.ParseDate("")
	assert.Error(t, err)
}

func TestIsYearEnd(t *testing.T) {
	assert.True(t, depreciation.IsYearEnd(depreciation.NewDate(2025, time.December, 31)))
	assert.False(t, depreciation.IsYearEnd(depreciation.NewDate(2025, time.December, 30)))
	assert.False(t, depreciation.IsYearEnd(depreciation.NewDate(2026, time.January, 31)))
}
