/*
handlers.go - HTTP API handlers for the fixed-asset depreciation service

PURPOSE:
  Exposes asset administration, the depreciation calculators and the
  year-end batch via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the asset, depreciation and yearend
  packages.

ENDPOINTS:
  Assets:
    GET    /api/assets                 List all assets
    POST   /api/assets                 Register an asset
    GET    /api/assets/{id}            Get asset details
    PUT    /api/assets/{id}/status     Change lifecycle status
    GET    /api/assets/{id}/audit      Audit trail of one asset
    GET    /api/assets/{id}/schedule   Projected depreciation schedule

  Calculators:
    POST   /api/depreciation/preview   One depreciation step, not saved
    GET    /api/expiry                 Remaining life and expiry dates

  Year-end:
    POST   /api/year-end/process       Run the batch for today
    POST   /api/year-end/trigger       Run the batch for a past fiscal year
    GET    /api/year-end/summary       Preview of the next batch
    GET    /api/year-end/runs          Recorded runs, newest first

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Asset not found
  - 409: Year-end batch refused (wrong date, future fiscal year)
  - 500: Internal errors, rolled-back batch

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/fixed-assets/asset"
	"github.com/warp/fixed-assets/depreciation"
	"github.com/warp/fixed-assets/yearend"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   asset.Store
	YearEnd *yearend.Service
}

// NewHandler creates a new handler on the given store and service.
func NewHandler(store asset.Store, service *yearend.Service) *Handler {
	return &Handler{
		Store:   store,
		YearEnd: service,
	}
}

func (h *Handler) today() time.Time {
	if h.YearEnd != nil && h.YearEnd.Now != nil {
		return depreciation.DateOf(h.YearEnd.Now())
	}
	return depreciation.Today()
}

// =============================================================================
// ASSET HANDLERS
// =============================================================================

// ListAssets returns all assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assets", err)
		return
	}

	today := h.today()
	dtos := make([]AssetDTO, len(assets))
	for i, a := range assets {
		dtos[i] = toAssetDTO(a, today)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateAsset registers a new asset with creation defaults.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	acquired, err := depreciation.ParseDate(req.AcquisitionDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid acquisition_date", err)
		return
	}

	today := h.today()
	a, err := asset.New(asset.NewAssetInput{
		Name:                   strings.TrimSpace(req.Name),
		Category:               req.Category,
		Status:                 asset.Status(req.Status),
		Cost:                   req.Cost,
		ResidualValue:          req.ResidualValue,
		UsefulLife:             req.UsefulLife,
		AcquisitionDate:        acquired,
		DepreciationPercentage: req.DepreciationPercentage,
	}, today)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid asset", err)
		return
	}

	if err := h.Store.Create(r.Context(), a); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetDTO(*a, today))
}

// GetAsset returns a single asset.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAsset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(*a, h.today()))
}

// UpdateAssetStatus changes the lifecycle status. Disposed and retired
// assets drop out of the year-end batch.
func (h *Handler) UpdateAssetStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.Store.UpdateStatus(ctx, id, asset.Status(req.Status)); err != nil {
		writeStoreError(w, "Failed to update status", err)
		return
	}

	a, err := h.Store.Get(ctx, id)
	if err != nil {
		writeStoreError(w, "Failed to load asset", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(*a, h.today()))
}

// GetAssetAudit returns the audit trail of one asset, oldest first.
func (h *Handler) GetAssetAudit(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAsset(w, r)
	if !ok {
		return
	}

	entries, err := h.Store.ListAudit(r.Context(), a.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit trail", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAssetSchedule projects the full depreciation schedule of an asset
// from its acquisition.
func (h *Handler) GetAssetSchedule(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAsset(w, r)
	if !ok {
		return
	}

	if err := a.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Asset cannot be depreciated", err)
		return
	}
	a.EnsureInitialized()

	rows := depreciation.ProjectSchedule(a.Cost.Decimal, a.ResidualValue.Decimal, a.UsefulLife.Decimal, a.AcquisitionDate)
	dtos := make([]ScheduleRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toScheduleRowDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) loadAsset(w http.ResponseWriter, r *http.Request) (*asset.Asset, bool) {
	a, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to load asset", err)
		return nil, false
	}
	return a, true
}

// =============================================================================
// CALCULATOR HANDLERS
// =============================================================================

// PreviewDepreciation computes one step without touching storage.
func (h *Handler) PreviewDepreciation(w http.ResponseWriter, r *http.Request) {
	var req DepreciationPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	purchased, err := depreciation.ParseDate(req.PurchaseDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid purchase_date", err)
		return
	}
	if req.DepreciationYearsApplied < 0 {
		writeError(w, http.StatusBadRequest, "depreciation_years_applied must not be negative", nil)
		return
	}

	residual := req.Cost.Mul(asset.DefaultResidualRate)
	if req.ResidualValue != nil {
		residual = *req.ResidualValue
	}
	nbv := req.Cost
	if req.CurrentNetBookValue != nil {
		nbv = *req.CurrentNetBookValue
	}

	step := depreciation.DepreciationForYear(depreciation.YearInput{
		Cost:                req.Cost,
		ResidualValue:       residual,
		UsefulLife:          req.UsefulLife,
		PurchaseDate:        purchased,
		YearsApplied:        req.DepreciationYearsApplied,
		CurrentNetBookValue: nbv,
	})

	writeJSON(w, http.StatusOK, DepreciationPreviewDTO{
		YearlyDepreciation:         depreciation.YearlyDepreciation(req.Cost, residual, req.UsefulLife),
		MonthlyDepreciation:        depreciation.MonthlyDepreciation(req.Cost, residual, req.UsefulLife),
		MonthsUsedInFirstYear:      depreciation.MonthsUsedInFirstYear(purchased),
		FirstYearDepreciation:      depreciation.FirstYearDepreciation(req.Cost, residual, req.UsefulLife, purchased),
		DepreciationToApply:        step.DepreciationToApply,
		NewAccumulatedDepreciation: step.NewAccumulatedDepreciation,
		NewNetBookValue:            step.NewNetBookValue,
		ShouldContinue:             step.ShouldContinue,
		Reason:                     step.Reason,
	})
}

// GetExpiry reports remaining useful life and both expiry dates.
// GET /api/expiry?acquisition_date=2025-10-15&useful_life=5&as_of=2026-01-01
func (h *Handler) GetExpiry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	acquired, err := depreciation.ParseDate(q.Get("acquisition_date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid acquisition_date", err)
		return
	}
	life, err := decimal.NewFromString(q.Get("useful_life"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid useful_life", err)
		return
	}
	asOf := h.today()
	if s := q.Get("as_of"); s != "" {
		if asOf, err = depreciation.ParseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, ExpiryDTO{
		AcquisitionDate:     formatDate(acquired),
		UsefulLife:          life,
		AsOf:                formatDate(asOf),
		YearEndsPassed:      depreciation.CountYearEndsSince(acquired, asOf),
		RemainingUsefulLife: depreciation.RemainingUsefulLife(life, acquired, asOf),
		ExpiryDate:          formatDate(depreciation.ExpiryDateAlignedToYearEnd(acquired, life, asOf)),
		EstimatedExpiryDate: formatDate(depreciation.ExpiryDate(acquired, life, asOf)),
	})
}

// =============================================================================
// YEAR-END HANDLERS
// =============================================================================

// ProcessYearEnd runs the batch for today.
func (h *Handler) ProcessYearEnd(w http.ResponseWriter, r *http.Request) {
	result, err := h.YearEnd.ProcessYearEndDepreciation(r.Context())
	writeBatchResult(w, result, err)
}

// TriggerYearEnd runs the batch as of December 31 of a past fiscal year.
func (h *Handler) TriggerYearEnd(w http.ResponseWriter, r *http.Request) {
	var req TriggerYearEndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FiscalYear == 0 {
		writeError(w, http.StatusBadRequest, "fiscal_year is required", nil)
		return
	}

	result, err := h.YearEnd.ManuallyTriggerYearEnd(r.Context(), req.FiscalYear)
	writeBatchResult(w, result, err)
}

// GetYearEndSummary previews the next batch.
func (h *Handler) GetYearEndSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.YearEnd.GetAssetYearEndSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build summary", err)
		return
	}

	dto := YearEndSummaryDTO{Summary: *summary}
	if summary.LastRun != nil {
		run := toYearEndRunDTO(*summary.LastRun)
		dto.LastRun = &run
	}
	writeJSON(w, http.StatusOK, dto)
}

// ListYearEndRuns returns recorded batch runs, newest first.
func (h *Handler) ListYearEndRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list year-end runs", err)
		return
	}

	dtos := make([]YearEndRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toYearEndRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// writeBatchResult always returns the structured result. A refused batch is
// a conflict; a rolled-back one is a server error.
func writeBatchResult(w http.ResponseWriter, result *yearend.BatchResult, err error) {
	switch {
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, result)
	case !result.Success:
		writeJSON(w, http.StatusConflict, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func writeStoreError(w http.ResponseWriter, message string, err error) {
	switch {
	case asset.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Asset not found", err)
	case asset.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
