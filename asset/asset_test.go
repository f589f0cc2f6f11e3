package asset_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fixed-assets/asset"
	"github.com/warp/fixed-assets/depreciation"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNew_AppliesCreationDefaults(t *testing.T) {
	// GIVEN: no residual value supplied
	a, err := asset.New(asset.NewAssetInput{
		Name:            "Forklift",
		Cost:            dec("500000"),
		UsefulLife:      dec("5"),
		AcquisitionDate: depreciation.NewDate(2025, time.October, 15),
	}, depreciation.NewDate(2025, time.October, 20))
	require.NoError(t, err)

	// THEN: defaults are explicit on the record
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, asset.StatusAvailable, a.Status)
	assert.True(t, a.ResidualValue.Decimal.Equal(dec("50000")))
	assert.True(t, a.NetBookValue.Decimal.Equal(dec("500000")))
	assert.True(t, a.AccumulatedDepreciation.Decimal.IsZero())
	assert.Equal(t, 0, a.YearsApplied())
	assert.True(t, a.DepreciationPercentage.Decimal.Equal(dec("20")))
	assert.Equal(t, depreciation.NewDate(2030, time.December, 31), a.ExpiryDate)
	assert.Equal(t, 0, a.LastDepreciationYear)
}

func TestNew_RejectsInvalidInput(t *testing.T) {
	base := asset.NewAssetInput{
		Name:            "Server",
		Cost:            dec("1000"),
		UsefulLife:      dec("3"),
		AcquisitionDate: depreciation.NewDate(2024, time.March, 1),
	}
	today := depreciation.NewDate(2024, time.March, 2)

	noName := base
	noName.Name = ""
	_, err := asset.New(noName, today)
	assert.True(t, asset.IsClientError(err))

	tooHigh := dec("1500")
	highResidual := base
	highResidual.ResidualValue = &tooHigh
	_, err = asset.New(highResidual, today)
	assert.ErrorIs(t, err, asset.ErrInvalidResidualValue)

	zeroLife := base
	zeroLife.UsefulLife = decimal.Zero
	_, err = asset.New(zeroLife, today)
	assert.ErrorIs(t, err, asset.ErrInvalidUsefulLife)

	longLife := base
	longLife.UsefulLife = dec("100.5")
	_, err = asset.New(longLife, today)
	assert.ErrorIs(t, err, asset.ErrUsefulLifeTooLong)
	assert.True(t, asset.IsClientError(err))

	maxLife := base
	maxLife.UsefulLife = asset.MaxUsefulLife
	_, err = asset.New(maxLife, today)
	assert.NoError(t, err)

	noDate := base
	noDate.AcquisitionDate = time.Time{}
	_, err = asset.New(noDate, today)
	assert.ErrorIs(t, err, asset.ErrMissingAcquisitionDate)

	badStatus := base
	badStatus.Status = "Lost"
	_, err = asset.New(badStatus, today)
	assert.ErrorIs(t, err, asset.ErrInvalidStatus)
}

func TestEnsureInitialized_IsIdempotent(t *testing.T) {
	a := &asset.Asset{
		Name:            "Legacy",
		Status:          asset.StatusInUse,
		Cost:            decimal.NewNullDecimal(dec("2000")),
		UsefulLife:      decimal.NewNullDecimal(dec("4")),
		AcquisitionDate: depreciation.NewDate(2019, time.July, 1),
	}

	assert.True(t, a.EnsureInitialized())
	assert.True(t, a.ResidualValue.Decimal.Equal(dec("200")))
	assert.True(t, a.NetBookValue.Decimal.Equal(dec("2000")))
	assert.Equal(t, 0, a.YearsApplied())

	assert.False(t, a.EnsureInitialized(), "second call changes nothing")
}

func TestEnsureInitialized_DerivesAccumulatedFromNBV(t *testing.T) {
	a := &asset.Asset{
		Cost:         decimal.NewNullDecimal(dec("2000")),
		NetBookValue: decimal.NewNullDecimal(dec("1500")),
	}
	a.EnsureInitialized()
	assert.True(t, a.AccumulatedDepreciation.Decimal.Equal(dec("500")))
	assert.True(t, a.AccumulatedDepreciation.Decimal.Add(a.NetBookValue.Decimal).Equal(dec("2000")))
}

func TestCheckInputs(t *testing.T) {
	a := &asset.Asset{}
	assert.ErrorIs(t, a.CheckInputs(), asset.ErrMissingAcquisitionDate)

	a.AcquisitionDate = depreciation.NewDate(2020, time.January, 1)
	assert.ErrorIs(t, a.CheckInputs(), asset.ErrMissingUsefulLife)

	a.UsefulLife = decimal.NewNullDecimal(dec("5"))
	assert.ErrorIs(t, a.CheckInputs(), asset.ErrMissingCost)
	assert.True(t, asset.IsIncomplete(a.CheckInputs()))

	a.Cost = decimal.NewNullDecimal(dec("10"))
	assert.NoError(t, a.CheckInputs())
}

func TestApplyDepreciation(t *testing.T) {
	a, err := asset.New(asset.NewAssetInput{
		Name:            "Forklift",
		Cost:            dec("500000"),
		ResidualValue:   ptr(dec("50000")),
		UsefulLife:      dec("5"),
		AcquisitionDate: depreciation.NewDate(2025, time.October, 15),
	}, depreciation.NewDate(2025, time.October, 15))
	require.NoError(t, err)

	yearEnd := depreciation.NewDate(2025, time.December, 31)
	res := depreciation.DepreciationForYear(a.DepreciationInput())
	before := a.AuditValues()
	a.ApplyDepreciation(res, 2025, yearEnd)

	assert.Equal(t, 1, a.YearsApplied())
	assert.True(t, a.NetBookValue.Decimal.Equal(dec("477500")))
	assert.Equal(t, depreciation.NewDate(2029, time.December, 31), a.ExpiryDate)
	assert.True(t, a.AlreadyProcessed(2025))
	assert.False(t, a.AlreadyProcessed(2026))

	a.MarkProcessed(2024)
	assert.Equal(t, 2025, a.LastDepreciationYear, "marker never moves back")

	assert.Equal(t, 0, before["depreciation_years_applied"])
	assert.Equal(t, "2030-12-31", before["expiry_date"])
	assert.Equal(t, "2029-12-31", a.AuditValues()["expiry_date"])
}

func TestClone_DoesNotShareCounter(t *testing.T) {
	years := 2
	a := &asset.Asset{DepreciationYearsApplied: &years}
	c := a.Clone()
	*c.DepreciationYearsApplied = 3
	assert.Equal(t, 2, a.YearsApplied())
}

func TestStatus(t *testing.T) {
	assert.True(t, asset.StatusUnderMaintenance.Active())
	assert.False(t, asset.StatusDisposed.Active())
	assert.True(t, asset.StatusRetired.Valid())
	assert.False(t, asset.Status("Stolen").Valid())
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }
