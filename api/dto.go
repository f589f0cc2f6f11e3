/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the asset record and the calculators from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Assets:
    AssetDTO, CreateAssetRequest, UpdateStatusRequest, AuditEntryDTO

  Calculators:
    DepreciationPreviewRequest, DepreciationPreviewDTO, ExpiryDTO,
    ScheduleRowDTO

  Year-end:
    TriggerYearEndRequest, YearEndRunDTO, YearEndSummaryDTO (batch
    results are yearend.BatchResult as is)

MONEY:
  Decimals are serialised as JSON strings ("22500") by
  shopspring/decimal. Requests accept either strings or numbers.

VALIDATION:
  Validation is done in handlers and asset.New, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fixed-assets/asset"
	"github.com/warp/fixed-assets/depreciation"
	"github.com/warp/fixed-assets/yearend"
)

// =============================================================================
// ASSETS
// =============================================================================

// AssetDTO represents an asset in API responses.
type AssetDTO struct {
	ID                       string              `json:"id"`
	Name                     string              `json:"name"`
	Category                 string              `json:"category,omitempty"`
	Status                   string              `json:"status"`
	Cost                     decimal.NullDecimal `json:"cost"`
	ResidualValue            decimal.NullDecimal `json:"residual_value"`
	UsefulLife               decimal.NullDecimal `json:"useful_life"`
	AcquisitionDate          string              `json:"acquisition_date,omitempty"`
	DepreciationPercentage   decimal.NullDecimal `json:"depreciation_percentage"`
	DepreciationYearsApplied *int                `json:"depreciation_years_applied"`
	AccumulatedDepreciation  decimal.NullDecimal `json:"accumulated_depreciation"`
	NetBookValue             decimal.NullDecimal `json:"net_book_value"`
	ExpiryDate               string              `json:"expiry_date,omitempty"`
	LastDepreciationYear     int                 `json:"last_depreciation_year,omitempty"`
	RemainingUsefulLife      *decimal.Decimal    `json:"remaining_useful_life,omitempty"`
	CreatedAt                string              `json:"created_at,omitempty"`
	UpdatedAt                string              `json:"updated_at,omitempty"`
}

// CreateAssetRequest is the request to register an asset.
type CreateAssetRequest struct {
	Name                   string           `json:"name"`
	Category               string           `json:"category"`
	Status                 string           `json:"status"`
	Cost                   decimal.Decimal  `json:"cost"`
	ResidualValue          *decimal.Decimal `json:"residual_value"`
	UsefulLife             decimal.Decimal  `json:"useful_life"`
	AcquisitionDate        string           `json:"acquisition_date"`
	DepreciationPercentage *decimal.Decimal `json:"depreciation_percentage"`
}

// UpdateStatusRequest changes an asset's lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AuditEntryDTO represents one audit record.
type AuditEntryDTO struct {
	ID          string         `json:"id"`
	Action      string         `json:"action"`
	TableName   string         `json:"table_name"`
	RecordID    string         `json:"record_id"`
	Description string         `json:"description,omitempty"`
	OldValues   map[string]any `json:"old_values"`
	NewValues   map[string]any `json:"new_values"`
	CreatedAt   string         `json:"created_at"`
}

// =============================================================================
// CALCULATORS
// =============================================================================

// DepreciationPreviewRequest describes one step to compute without saving.
// CurrentNetBookValue defaults to Cost and ResidualValue to 10% of Cost.
type DepreciationPreviewRequest struct {
	Cost                     decimal.Decimal  `json:"cost"`
	ResidualValue            *decimal.Decimal `json:"residual_value"`
	UsefulLife               decimal.Decimal  `json:"useful_life"`
	PurchaseDate             string           `json:"purchase_date"`
	DepreciationYearsApplied int              `json:"depreciation_years_applied"`
	CurrentNetBookValue      *decimal.Decimal `json:"current_net_book_value"`
}

// DepreciationPreviewDTO is the computed step plus its building blocks.
type DepreciationPreviewDTO struct {
	YearlyDepreciation         decimal.Decimal `json:"yearly_depreciation"`
	MonthlyDepreciation        decimal.Decimal `json:"monthly_depreciation"`
	MonthsUsedInFirstYear      int             `json:"months_used_in_first_year"`
	FirstYearDepreciation      decimal.Decimal `json:"first_year_depreciation"`
	DepreciationToApply        decimal.Decimal `json:"depreciation_to_apply"`
	NewAccumulatedDepreciation decimal.Decimal `json:"new_accumulated_depreciation"`
	NewNetBookValue            decimal.Decimal `json:"new_net_book_value"`
	ShouldContinue             bool            `json:"should_continue"`
	Reason                     string          `json:"reason"`
}

// ExpiryDTO reports remaining life and both end-of-life dates.
// EstimatedExpiryDate is the continuous display estimate; ExpiryDate is the
// December 31 value the batch persists.
type ExpiryDTO struct {
	AcquisitionDate     string          `json:"acquisition_date"`
	UsefulLife          decimal.Decimal `json:"useful_life"`
	AsOf                string          `json:"as_of"`
	YearEndsPassed      int             `json:"year_ends_passed"`
	RemainingUsefulLife decimal.Decimal `json:"remaining_useful_life"`
	ExpiryDate          string          `json:"expiry_date"`
	EstimatedExpiryDate string          `json:"estimated_expiry_date"`
}

// ScheduleRowDTO is one projected year-end posting.
type ScheduleRowDTO struct {
	FiscalYear              int             `json:"fiscal_year"`
	YearEnd                 string          `json:"year_end"`
	Depreciation            decimal.Decimal `json:"depreciation"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	NetBookValue            decimal.Decimal `json:"net_book_value"`
	ExpiryDate              string          `json:"expiry_date"`
	Reason                  string          `json:"reason"`
}

// =============================================================================
// YEAR-END
// =============================================================================

// TriggerYearEndRequest selects the fiscal year of a manual run.
type TriggerYearEndRequest struct {
	FiscalYear int `json:"fiscal_year"`
}

// YearEndRunDTO represents a recorded batch run.
type YearEndRunDTO struct {
	ID                string          `json:"id"`
	FiscalYear        int             `json:"fiscal_year"`
	Status            string          `json:"status"`
	Trigger           string          `json:"trigger"`
	ProcessedCount    int             `json:"processed_count"`
	DepreciatedCount  int             `json:"depreciated_count"`
	StoppedCount      int             `json:"stopped_count"`
	SkippedCount      int             `json:"skipped_count"`
	TotalDepreciation decimal.Decimal `json:"total_depreciation"`
	Error             string          `json:"error,omitempty"`
	StartedAt         string          `json:"started_at"`
	CompletedAt       string          `json:"completed_at,omitempty"`
}

// YearEndSummaryDTO is the batch preview with the last run rendered as a DTO.
type YearEndSummaryDTO struct {
	yearend.Summary
	LastRun *YearEndRunDTO `json:"last_run,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAssetDTO(a asset.Asset, asOf time.Time) AssetDTO {
	dto := AssetDTO{
		ID:                       a.ID,
		Name:                     a.Name,
		Category:                 a.Category,
		Status:                   string(a.Status),
		Cost:                     a.Cost,
		ResidualValue:            a.ResidualValue,
		UsefulLife:               a.UsefulLife,
		AcquisitionDate:          formatDate(a.AcquisitionDate),
		DepreciationPercentage:   a.DepreciationPercentage,
		DepreciationYearsApplied: a.DepreciationYearsApplied,
		AccumulatedDepreciation:  a.AccumulatedDepreciation,
		NetBookValue:             a.NetBookValue,
		ExpiryDate:               formatDate(a.ExpiryDate),
		LastDepreciationYear:     a.LastDepreciationYear,
		CreatedAt:                formatTimestamp(a.CreatedAt),
		UpdatedAt:                formatTimestamp(a.UpdatedAt),
	}
	if a.UsefulLife.Valid && !a.AcquisitionDate.IsZero() {
		remaining := depreciation.RemainingUsefulLife(a.UsefulLife.Decimal, a.AcquisitionDate, asOf)
		dto.RemainingUsefulLife = &remaining
	}
	return dto
}

func toAuditEntryDTO(e asset.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:          e.ID,
		Action:      e.Action,
		TableName:   e.TableName,
		RecordID:    e.RecordID,
		Description: e.Description,
		OldValues:   e.OldValues,
		NewValues:   e.NewValues,
		CreatedAt:   formatTimestamp(e.CreatedAt),
	}
}

func toScheduleRowDTO(row depreciation.ScheduleRow) ScheduleRowDTO {
	return ScheduleRowDTO{
		FiscalYear:              row.FiscalYear,
		YearEnd:                 formatDate(row.YearEnd),
		Depreciation:            row.Depreciation,
		AccumulatedDepreciation: row.AccumulatedDepreciation,
		NetBookValue:            row.NetBookValue,
		ExpiryDate:              formatDate(row.ExpiryDate),
		Reason:                  row.Reason,
	}
}

func toYearEndRunDTO(r asset.YearEndRun) YearEndRunDTO {
	dto := YearEndRunDTO{
		ID:                r.ID,
		FiscalYear:        r.FiscalYear,
		Status:            string(r.Status),
		Trigger:           r.Trigger,
		ProcessedCount:    r.ProcessedCount,
		DepreciatedCount:  r.DepreciatedCount,
		StoppedCount:      r.StoppedCount,
		SkippedCount:      r.SkippedCount,
		TotalDepreciation: r.TotalDepreciation,
		Error:             r.Error,
		StartedAt:         formatTimestamp(r.StartedAt),
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = formatTimestamp(*r.CompletedAt)
	}
	return dto
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(depreciation.DateLayout)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
