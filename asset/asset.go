/*
Package asset holds the typed fixed-asset record and its persistence contract.

PURPOSE:
  Storage rows are normalised into a single Asset type at the store
  boundary. The depreciation calculators never see an Asset; they get the
  scalar fields through DepreciationInput.

FIELD OWNERSHIP:
  Immutable after creation:  Cost, UsefulLife, AcquisitionDate
  Set once at creation:      ResidualValue (defaults to 10% of cost)
  Year-end batch only:       DepreciationYearsApplied, AccumulatedDepreciation,
                             NetBookValue, ExpiryDate, LastDepreciationYear

INVARIANTS:
  - NetBookValue + AccumulatedDepreciation == Cost
  - NetBookValue >= ResidualValue
  - Remaining life is always derived, UsefulLife is never decremented

Nullable decimals (decimal.NullDecimal) model fields a legacy row may not
carry yet. EnsureInitialized fills them explicitly before any calculation.

SEE ALSO:
  - store.go: Store and AuditLogger interfaces
  - depreciation/calculator.go: the step applied each year-end
*/
package asset

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/fixed-assets/depreciation"
)

// Status is the lifecycle state of an asset.
type Status string

const (
	StatusAvailable        Status = "Available"
	StatusInUse            Status = "In Use"
	StatusUnderMaintenance Status = "Under Maintenance"
	StatusDisposed         Status = "Disposed"
	StatusRetired          Status = "Retired"
)

// ActiveStatuses are the statuses the year-end batch depreciates.
var ActiveStatuses = []Status{StatusAvailable, StatusInUse, StatusUnderMaintenance}

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusUnderMaintenance, StatusDisposed, StatusRetired:
		return true
	}
	return false
}

func (s Status) Active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// DefaultResidualRate is applied to cost when no residual value is set.
var DefaultResidualRate = decimal.RequireFromString("0.10")

var hundred = decimal.NewFromInt(100)

// Asset is a fixed asset as persisted.
type Asset struct {
	ID       string
	Name     string
	Category string
	Status   Status

	Cost            decimal.NullDecimal
	ResidualValue   decimal.NullDecimal
	UsefulLife      decimal.NullDecimal
	AcquisitionDate time.Time // zero when unknown

	// Straight-line rate in percent per year, used only by summary estimates.
	DepreciationPercentage decimal.NullDecimal

	DepreciationYearsApplied *int
	AccumulatedDepreciation  decimal.NullDecimal
	NetBookValue             decimal.NullDecimal
	ExpiryDate               time.Time // always a December 31 once set
	LastDepreciationYear     int       // last fiscal year the batch processed, 0 = never

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewAssetInput carries the fields supplied at creation.
type NewAssetInput struct {
	Name                   string
	Category               string
	Status                 Status
	Cost                   decimal.Decimal
	ResidualValue          *decimal.Decimal
	UsefulLife             decimal.Decimal
	AcquisitionDate        time.Time
	DepreciationPercentage *decimal.Decimal
}

// MaxUsefulLife caps the useful life in years. It bounds the schedule
// projection to one row per year.
var MaxUsefulLife = decimal.NewFromInt(100)

// New builds a validated asset with creation defaults. asOf is the date the
// initial expiry date is evaluated at.
func New(in NewAssetInput, asOf time.Time) (*Asset, error) {
	status := in.Status
	if status == "" {
		status = StatusAvailable
	}

	a := &Asset{
		ID:              uuid.NewString(),
		Name:            in.Name,
		Category:        in.Category,
		Status:          status,
		Cost:            decimal.NewNullDecimal(in.Cost),
		UsefulLife:      decimal.NewNullDecimal(in.UsefulLife),
		AcquisitionDate: depreciation.DateOf(in.AcquisitionDate),
	}
	if in.ResidualValue != nil {
		a.ResidualValue = decimal.NewNullDecimal(*in.ResidualValue)
	}
	if in.DepreciationPercentage != nil {
		a.DepreciationPercentage = decimal.NewNullDecimal(*in.DepreciationPercentage)
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	if !in.UsefulLife.IsPositive() {
		return nil, &ValidationError{Field: "useful_life", Err: ErrInvalidUsefulLife}
	}

	a.EnsureInitialized()
	if !a.DepreciationPercentage.Valid {
		a.DepreciationPercentage = decimal.NewNullDecimal(hundred.Div(in.UsefulLife).Round(2))
	}
	a.ExpiryDate = depreciation.ExpiryDateAlignedToYearEnd(a.AcquisitionDate, in.UsefulLife, asOf)
	return a, nil
}

// CheckInputs reports the first missing depreciation input.
func (a *Asset) CheckInputs() error {
	if a.AcquisitionDate.IsZero() {
		return ErrMissingAcquisitionDate
	}
	if !a.UsefulLife.Valid {
		return ErrMissingUsefulLife
	}
	if !a.Cost.Valid {
		return ErrMissingCost
	}
	return nil
}

// Validate checks the record is well formed for persistence.
func (a *Asset) Validate() error {
	if a.Name == "" {
		return &ValidationError{Field: "name", Err: errEmpty}
	}
	if !a.Status.Valid() {
		return &ValidationError{Field: "status", Err: ErrInvalidStatus}
	}
	if err := a.CheckInputs(); err != nil {
		return &ValidationError{Field: inputField(err), Err: err}
	}
	if a.UsefulLife.Decimal.GreaterThan(MaxUsefulLife) {
		return &ValidationError{Field: "useful_life", Err: ErrUsefulLifeTooLong}
	}
	if a.Cost.Decimal.IsNegative() {
		return &ValidationError{Field: "cost", Err: ErrInvalidCost}
	}
	if a.ResidualValue.Valid {
		rv := a.ResidualValue.Decimal
		if rv.IsNegative() || rv.GreaterThan(a.Cost.Decimal) {
			return &ValidationError{Field: "residual_value", Err: ErrInvalidResidualValue}
		}
	}
	return nil
}

// EnsureInitialized fills unset depreciation fields with their starting
// values: residual 10% of cost, zero years applied, zero accumulated
// depreciation, NBV = cost - accumulated. It is idempotent and reports
// whether anything changed. Callers must have checked CheckInputs.
func (a *Asset) EnsureInitialized() bool {
	changed := false
	cost := a.Cost.Decimal

	if !a.ResidualValue.Valid {
		a.ResidualValue = decimal.NewNullDecimal(cost.Mul(DefaultResidualRate))
		changed = true
	}
	if a.DepreciationYearsApplied == nil {
		zero := 0
		a.DepreciationYearsApplied = &zero
		changed = true
	}
	if !a.AccumulatedDepreciation.Valid {
		accumulated := decimal.Zero
		if a.NetBookValue.Valid {
			accumulated = cost.Sub(a.NetBookValue.Decimal)
		}
		a.AccumulatedDepreciation = decimal.NewNullDecimal(accumulated)
		changed = true
	}
	if !a.NetBookValue.Valid {
		a.NetBookValue = decimal.NewNullDecimal(cost.Sub(a.AccumulatedDepreciation.Decimal))
		changed = true
	}
	return changed
}

// Clone returns a copy that shares no pointers with a.
func (a *Asset) Clone() *Asset {
	c := *a
	if a.DepreciationYearsApplied != nil {
		years := *a.DepreciationYearsApplied
		c.DepreciationYearsApplied = &years
	}
	return &c
}

// YearsApplied returns the counter, treating unset as zero.
func (a *Asset) YearsApplied() int {
	if a.DepreciationYearsApplied == nil {
		return 0
	}
	return *a.DepreciationYearsApplied
}

// DepreciationInput extracts the scalar fields for one depreciation step.
func (a *Asset) DepreciationInput() depreciation.YearInput {
	return depreciation.YearInput{
		Cost:                a.Cost.Decimal,
		ResidualValue:       a.ResidualValue.Decimal,
		UsefulLife:          a.UsefulLife.Decimal,
		PurchaseDate:        a.AcquisitionDate,
		YearsApplied:        a.YearsApplied(),
		CurrentNetBookValue: a.NetBookValue.Decimal,
	}
}

// ApplyDepreciation records a posted step for fiscalYear and recomputes the
// aligned expiry date as of asOf.
func (a *Asset) ApplyDepreciation(res depreciation.YearResult, fiscalYear int, asOf time.Time) {
	years := a.YearsApplied() + 1
	a.DepreciationYearsApplied = &years
	a.AccumulatedDepreciation = decimal.NewNullDecimal(res.NewAccumulatedDepreciation)
	a.NetBookValue = decimal.NewNullDecimal(res.NewNetBookValue)
	a.ExpiryDate = depreciation.ExpiryDateAlignedToYearEnd(a.AcquisitionDate, a.UsefulLife.Decimal, asOf)
	a.MarkProcessed(fiscalYear)
}

// MarkProcessed records that the batch has handled fiscalYear, whether or
// not anything was posted.
func (a *Asset) MarkProcessed(fiscalYear int) {
	if fiscalYear > a.LastDepreciationYear {
		a.LastDepreciationYear = fiscalYear
	}
}

// AlreadyProcessed reports whether the batch has handled fiscalYear.
func (a *Asset) AlreadyProcessed(fiscalYear int) bool {
	return a.LastDepreciationYear >= fiscalYear
}

// AuditValues captures the fields the year-end audit trail compares.
func (a *Asset) AuditValues() map[string]any {
	values := map[string]any{
		"useful_life":                nullString(a.UsefulLife),
		"expiry_date":                nil,
		"accumulated_depreciation":   nullString(a.AccumulatedDepreciation),
		"net_book_value":             nullString(a.NetBookValue),
		"depreciation_years_applied": a.YearsApplied(),
	}
	if !a.ExpiryDate.IsZero() {
		values["expiry_date"] = a.ExpiryDate.Format(depreciation.DateLayout)
	}
	return values
}

func nullString(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

func inputField(err error) string {
	switch err {
	case ErrMissingAcquisitionDate:
		return "acquisition_date"
	case ErrMissingUsefulLife:
		return "useful_life"
	default:
		return "cost"
	}
}
