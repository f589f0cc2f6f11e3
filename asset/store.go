/*
store.go - Persistence contract for assets, the audit trail and year-end runs

KEY INTERFACES:
  Repository:  What the year-end batch needs inside one transaction
  AuditLogger: log_action contract of the external audit log
  Store:       Repository + administration queries + WithTx

ATOMIC BATCHES:
  WithTx runs the whole year-end batch in a single storage transaction.
  If fn returns an error every asset update, audit record and run record
  written through the Repository is rolled back.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory/memory.go: In-memory for testing
*/
package asset

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ActionYearEndDepreciation is the audit action of every year-end record.
const ActionYearEndDepreciation = "YEAR_END_DEPRECIATION"

// AuditTable is the table name recorded with asset audit entries.
const AuditTable = "assets"

// AuditLogger accepts audit records.
type AuditLogger interface {
	LogAction(ctx context.Context, action, tableName, recordID, description string, oldValues, newValues map[string]any) error
}

// AuditEntry is a persisted audit record.
type AuditEntry struct {
	ID          string
	Action      string
	TableName   string
	RecordID    string
	Description string
	OldValues   map[string]any
	NewValues   map[string]any
	CreatedAt   time.Time
}

// RunStatus is the outcome of a year-end run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// YearEndRun records one execution of the year-end batch.
type YearEndRun struct {
	ID                string
	FiscalYear        int
	Status            RunStatus
	Trigger           string // "scheduled", "api", "manual"
	ProcessedCount    int
	DepreciatedCount  int
	StoppedCount      int
	SkippedCount      int
	TotalDepreciation decimal.Decimal
	Error             string
	StartedAt         time.Time
	CompletedAt       *time.Time
}

// Repository is the transactional surface used by the year-end batch.
type Repository interface {
	AuditLogger

	// ListByStatus returns assets whose status is one of statuses, ordered by ID.
	ListByStatus(ctx context.Context, statuses ...Status) ([]Asset, error)

	// UpdateDepreciation persists the year-end fields of a.
	UpdateDepreciation(ctx context.Context, a *Asset) error

	// SaveRun inserts or replaces the run record for its ID.
	SaveRun(ctx context.Context, run YearEndRun) error
}

// Store is the full persistence surface.
type Store interface {
	Repository

	Create(ctx context.Context, a *Asset) error
	Get(ctx context.Context, id string) (*Asset, error)
	List(ctx context.Context) ([]Asset, error)
	UpdateStatus(ctx context.Context, id string, status Status) error

	// ListAudit returns the audit trail of one record, oldest first.
	ListAudit(ctx context.Context, recordID string) ([]AuditEntry, error)

	// ListRuns returns year-end runs, newest first.
	ListRuns(ctx context.Context) ([]YearEndRun, error)

	// IsYearEndComplete reports whether a completed run exists for fiscalYear.
	IsYearEndComplete(ctx context.Context, fiscalYear int) (bool, error)

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Repository) error) error
}
