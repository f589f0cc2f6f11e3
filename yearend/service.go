/*
Package yearend runs the December 31 depreciation batch.

PURPOSE:
  Applies exactly one depreciation step per fiscal year to every active
  asset, writes one audit record per processed asset and records the run.

FLOW (ProcessYearEndDepreciation):
  1. Gate: the service clock must read December 31
  2. Load assets with status Available, In Use or Under Maintenance
  3. Per asset:
     - missing acquisition date, useful life or cost: skip silently
     - malformed record: log and skip
     - acquired after the evaluation date: report, no audit record
     - already processed for this fiscal year: report, no audit record
     - EnsureInitialized, then depreciation.DepreciationForYear
     - amount > 0: post it, bump the counter, recompute the aligned expiry
     - amount == 0: keep the figures, report the stop reason
     - audit record with old and new values
  4. Save the run record and commit

Everything in step 2-4 runs inside one Store.WithTx. A storage error
rolls back the whole batch; the failed run is then recorded on its own.

IDEMPOTENCY:
  Each asset carries the last fiscal year the batch processed. Running
  the batch twice on the same December 31 leaves the second run with
  nothing to post.

SEE ALSO:
  - scheduler.go: fires the batch once per year
  - depreciation/calculator.go: the step itself
*/
package yearend

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/fixed-assets/asset"
	"github.com/warp/fixed-assets/depreciation"
)

// MessageNotYearEnd is the failure message of a batch started on any day
// other than December 31.
const MessageNotYearEnd = "Year-end processing only runs on December 31st"

// Trigger sources recorded on each run.
const (
	TriggerScheduled = "scheduled"
	TriggerAPI       = "api"
	TriggerManual    = "manual"
)

var hundred = decimal.NewFromInt(100)

// Service orchestrates the year-end batch.
type Service struct {
	Store   asset.Store
	Now     func() time.Time // clock, overridable in tests
	Logger  *log.Logger
	Metrics *Metrics
}

// NewService creates a service on the system clock and the default logger.
func NewService(store asset.Store) *Service {
	return &Service{
		Store:  store,
		Now:    time.Now,
		Logger: log.Default(),
	}
}

// AssetResult reports what the batch did to one asset.
type AssetResult struct {
	AssetID                  string          `json:"asset_id"`
	AssetName                string          `json:"asset_name"`
	OldUsefulLife            decimal.Decimal `json:"old_useful_life"`
	NewUsefulLife            decimal.Decimal `json:"new_useful_life"`
	OldExpiryDate            string          `json:"old_expiry_date,omitempty"`
	NewExpiryDate            string          `json:"new_expiry_date,omitempty"`
	DepreciationApplied      decimal.Decimal `json:"depreciation_applied"`
	DepreciationYearsApplied int             `json:"depreciation_years_applied"`
	IsFirstYear              bool            `json:"is_first_year"`
	Stopped                  bool            `json:"stopped"`
	StopReason               string          `json:"stop_reason,omitempty"`
}

// BatchResult is the summary returned by every batch entry point.
type BatchResult struct {
	Success           bool            `json:"success"`
	Message           string          `json:"message"`
	FiscalYear        int             `json:"fiscal_year"`
	RunID             string          `json:"run_id,omitempty"`
	ProcessedCount    int             `json:"processed_count"`
	DepreciatedCount  int             `json:"depreciated_count"`
	StoppedCount      int             `json:"stopped_count"`
	SkippedCount      int             `json:"skipped_count"`
	TotalDepreciation decimal.Decimal `json:"total_depreciation"`
	Results           []AssetResult   `json:"results"`
	Error             string          `json:"error,omitempty"`
}

// Summary is the read-only preview of the next batch.
type Summary struct {
	AsOf                  string            `json:"as_of"`
	FiscalYear            int               `json:"fiscal_year"`
	IsYearEnd             bool              `json:"is_year_end"`
	EligibleAssets        int               `json:"eligible_assets"`
	EstimatedDepreciation decimal.Decimal   `json:"estimated_depreciation"`
	YearEndComplete       bool              `json:"year_end_complete"`
	LastRun               *asset.YearEndRun `json:"-"`
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) logf(format string, args ...any) {
	if s.Logger == nil {
		log.Printf(format, args...)
		return
	}
	s.Logger.Printf(format, args...)
}

// IsYearEnd reports whether t is December 31. A zero t means the service
// clock.
func (s *Service) IsYearEnd(t time.Time) bool {
	if t.IsZero() {
		t = s.now()
	}
	return depreciation.IsYearEnd(t)
}

// ProcessYearEndDepreciation runs the batch for today. On any day other
// than December 31 it changes nothing and reports failure. The error is
// non-nil only when storage failed and the batch was rolled back.
func (s *Service) ProcessYearEndDepreciation(ctx context.Context) (*BatchResult, error) {
	return s.run(ctx, s.now(), TriggerAPI)
}

// ManuallyTriggerYearEnd runs the batch evaluated as of December 31 of
// fiscalYear. Years whose December 31 is still ahead are refused.
func (s *Service) ManuallyTriggerYearEnd(ctx context.Context, fiscalYear int) (*BatchResult, error) {
	today := depreciation.DateOf(s.now())
	if fiscalYear < 1 {
		return s.reject(fiscalYear, fmt.Sprintf("Invalid fiscal year %d", fiscalYear)), nil
	}
	yearEnd := depreciation.EndOfYear(fiscalYear)
	if yearEnd.After(today) {
		return s.reject(fiscalYear, fmt.Sprintf("Fiscal year %d has not reached December 31st", fiscalYear)), nil
	}
	s.logf("[YearEnd] Manual trigger for fiscal year %d", fiscalYear)
	return s.run(ctx, yearEnd, TriggerManual)
}

// GetAssetYearEndSummary previews the next batch. The estimate is cost x
// depreciation percentage over active assets, without proration or stop
// conditions.
func (s *Service) GetAssetYearEndSummary(ctx context.Context) (*Summary, error) {
	today := depreciation.DateOf(s.now())

	assets, err := s.Store.ListByStatus(ctx, asset.ActiveStatuses...)
	if err != nil {
		return nil, fmt.Errorf("failed to load active assets: %w", err)
	}

	estimate := decimal.Zero
	for _, a := range assets {
		if !a.Cost.Valid || !a.DepreciationPercentage.Valid {
			continue
		}
		estimate = estimate.Add(a.Cost.Decimal.Mul(a.DepreciationPercentage.Decimal).Div(hundred))
	}

	complete, err := s.Store.IsYearEndComplete(ctx, today.Year())
	if err != nil {
		return nil, fmt.Errorf("failed to check year-end status: %w", err)
	}

	summary := &Summary{
		AsOf:                  today.Format(depreciation.DateLayout),
		FiscalYear:            today.Year(),
		IsYearEnd:             depreciation.IsYearEnd(today),
		EligibleAssets:        len(assets),
		EstimatedDepreciation: estimate.Round(depreciation.CurrencyPlaces),
		YearEndComplete:       complete,
	}

	runs, err := s.Store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list year-end runs: %w", err)
	}
	if len(runs) > 0 {
		summary.LastRun = &runs[0]
	}
	return summary, nil
}

// ===== BATCH =====

func (s *Service) reject(fiscalYear int, message string) *BatchResult {
	result := &BatchResult{
		Success:    false,
		Message:    message,
		FiscalYear: fiscalYear,
		Results:    []AssetResult{},
	}
	s.Metrics.observe(result)
	return result
}

func (s *Service) run(ctx context.Context, asOf time.Time, trigger string) (*BatchResult, error) {
	asOf = depreciation.DateOf(asOf)
	if !depreciation.IsYearEnd(asOf) {
		return s.reject(asOf.Year(), MessageNotYearEnd), nil
	}

	fiscalYear := asOf.Year()
	run := asset.YearEndRun{
		ID:         uuid.NewString(),
		FiscalYear: fiscalYear,
		Status:     asset.RunCompleted,
		Trigger:    trigger,
		StartedAt:  s.now().UTC(),
	}
	result := &BatchResult{
		FiscalYear: fiscalYear,
		RunID:      run.ID,
		Results:    []AssetResult{},
	}

	s.logf("[YearEnd] Starting fiscal year %d (%s)", fiscalYear, trigger)

	err := s.Store.WithTx(ctx, func(repo asset.Repository) error {
		assets, err := repo.ListByStatus(ctx, asset.ActiveStatuses...)
		if err != nil {
			return fmt.Errorf("failed to load active assets: %w", err)
		}

		for i := range assets {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.processAsset(ctx, repo, &assets[i], fiscalYear, asOf, result); err != nil {
				return err
			}
		}

		completedAt := s.now().UTC()
		run.ProcessedCount = result.ProcessedCount
		run.DepreciatedCount = result.DepreciatedCount
		run.StoppedCount = result.StoppedCount
		run.SkippedCount = result.SkippedCount
		run.TotalDepreciation = result.TotalDepreciation
		run.CompletedAt = &completedAt
		return repo.SaveRun(ctx, run)
	})
	if err != nil {
		return s.fail(ctx, run, err), err
	}

	result.Success = true
	result.Message = fmt.Sprintf("Year-end depreciation processed for %d assets", result.ProcessedCount)
	s.Metrics.observe(result)

	s.logf("[YearEnd] Completed fiscal year %d: %d processed (%d depreciated, %d stopped), %d skipped, total %s",
		fiscalYear, result.ProcessedCount, result.DepreciatedCount, result.StoppedCount,
		result.SkippedCount, result.TotalDepreciation.StringFixed(depreciation.CurrencyPlaces))
	return result, nil
}

// fail records a rolled-back run. Per-asset results are dropped since
// nothing was committed.
func (s *Service) fail(ctx context.Context, run asset.YearEndRun, cause error) *BatchResult {
	s.logf("[YearEnd] Fiscal year %d rolled back: %v", run.FiscalYear, cause)

	completedAt := s.now().UTC()
	failed := asset.YearEndRun{
		ID:                run.ID,
		FiscalYear:        run.FiscalYear,
		Status:            asset.RunFailed,
		Trigger:           run.Trigger,
		Error:             cause.Error(),
		TotalDepreciation: decimal.Zero,
		StartedAt:         run.StartedAt,
		CompletedAt:       &completedAt,
	}
	if err := s.Store.SaveRun(context.WithoutCancel(ctx), failed); err != nil {
		s.logf("[YearEnd] Error recording failed run %s: %v", run.ID, err)
	}

	result := &BatchResult{
		Success:    false,
		Message:    fmt.Sprintf("Year-end processing failed: %v", cause),
		FiscalYear: run.FiscalYear,
		RunID:      run.ID,
		Results:    []AssetResult{},
		Error:      cause.Error(),
	}
	s.Metrics.observe(result)
	return result
}

// processAsset handles one asset. It returns an error only for storage
// failures, which abort the batch.
func (s *Service) processAsset(ctx context.Context, repo asset.Repository, a *asset.Asset, fiscalYear int, asOf time.Time, result *BatchResult) error {
	if err := a.CheckInputs(); err != nil {
		result.SkippedCount++
		return nil
	}
	if err := a.Validate(); err != nil {
		s.logf("[YearEnd] Skipping asset %s: %v", a.ID, err)
		result.SkippedCount++
		return nil
	}

	life := a.UsefulLife.Decimal
	entry := AssetResult{
		AssetID:       a.ID,
		AssetName:     a.Name,
		OldUsefulLife: depreciation.RemainingUsefulLife(life, a.AcquisitionDate, asOf.AddDate(0, 0, -1)),
		NewUsefulLife: depreciation.RemainingUsefulLife(life, a.AcquisitionDate, asOf),
		OldExpiryDate: formatDate(a.ExpiryDate),
	}

	if a.AcquisitionDate.After(asOf) {
		entry.NewExpiryDate = entry.OldExpiryDate
		entry.DepreciationApplied = decimal.Zero
		entry.DepreciationYearsApplied = a.YearsApplied()
		entry.Stopped = true
		entry.StopReason = fmt.Sprintf("Not yet acquired at end of %d", fiscalYear)
		result.SkippedCount++
		result.Results = append(result.Results, entry)
		return nil
	}

	if a.AlreadyProcessed(fiscalYear) {
		entry.NewExpiryDate = entry.OldExpiryDate
		entry.DepreciationApplied = decimal.Zero
		entry.DepreciationYearsApplied = a.YearsApplied()
		entry.Stopped = true
		entry.StopReason = fmt.Sprintf("Year-end depreciation already applied for %d", fiscalYear)
		result.SkippedCount++
		result.Results = append(result.Results, entry)
		return nil
	}

	a.EnsureInitialized()
	before := a.AuditValues()
	entry.IsFirstYear = a.YearsApplied() == 0

	step := depreciation.DepreciationForYear(a.DepreciationInput())
	var description string
	if step.DepreciationToApply.IsPositive() {
		a.ApplyDepreciation(step, fiscalYear, asOf)
		result.DepreciatedCount++
		result.TotalDepreciation = result.TotalDepreciation.Add(step.DepreciationToApply)
		description = fmt.Sprintf("Year-end depreciation %d: applied %s, net book value %s",
			fiscalYear, step.DepreciationToApply.StringFixed(depreciation.CurrencyPlaces),
			step.NewNetBookValue.StringFixed(depreciation.CurrencyPlaces))
	} else {
		a.MarkProcessed(fiscalYear)
		entry.Stopped = true
		entry.StopReason = step.Reason
		result.StoppedCount++
		description = fmt.Sprintf("Year-end depreciation %d: stopped, %s", fiscalYear, step.Reason)
	}

	if err := repo.UpdateDepreciation(ctx, a); err != nil {
		return err
	}
	if err := repo.LogAction(ctx, asset.ActionYearEndDepreciation, asset.AuditTable, a.ID,
		description, before, a.AuditValues()); err != nil {
		return err
	}

	entry.NewExpiryDate = formatDate(a.ExpiryDate)
	entry.DepreciationApplied = step.DepreciationToApply
	entry.DepreciationYearsApplied = a.YearsApplied()
	result.ProcessedCount++
	result.Results = append(result.Results, entry)
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(depreciation.DateLayout)
}
