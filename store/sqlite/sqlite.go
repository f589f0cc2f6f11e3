/*
Package sqlite provides a SQLite-backed implementation of asset.Store.

PURPOSE:
  Persists assets, the audit trail and year-end run records. Rows are
  normalised to asset.Asset here; nothing above this package sees SQL
  types.

KEY TABLES:
  assets:        One row per fixed asset, depreciation state included
  audit_log:     Append-only before/after records (log_action contract)
  year_end_runs: One row per fiscal year batch (completed or failed)

NULLABLE COLUMNS:
  cost, residual_value, useful_life, acquisition_date, accumulated_depreciation,
  net_book_value and depreciation_years_applied may be NULL for imported
  rows. The year-end batch initialises or skips such assets explicitly.

DECIMALS:
  Money and useful life are stored as TEXT (decimal.String) so no value
  ever passes through float64.

TRANSACTIONS:
  WithTx holds the write lock and a single *sql.Tx for the whole year-end
  batch; the Repository handed to fn writes only through that transaction.

CONCURRENCY:
  Uses sync.RWMutex plus a single connection. Two batches fired at once
  run one after the other, and the second sees the first one's markers.

USAGE:
  store, err := sqlite.New("./data/assets.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - asset/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/fixed-assets/asset"
	"github.com/warp/fixed-assets/depreciation"
)

// Store implements asset.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ asset.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and the
	// batch transaction must see its own writes.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS assets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		cost TEXT,
		residual_value TEXT,
		useful_life TEXT,
		acquisition_date TEXT,
		depreciation_percentage TEXT,
		depreciation_years_applied INTEGER,
		accumulated_depreciation TEXT,
		net_book_value TEXT,
		expiry_date TEXT,
		last_depreciation_year INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assets_status
		ON assets(status);

	-- Audit trail (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		table_name TEXT NOT NULL,
		record_id TEXT NOT NULL,
		description TEXT,
		old_values_json TEXT,
		new_values_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_log_record
		ON audit_log(table_name, record_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action
		ON audit_log(action);

	-- Year-end runs
	CREATE TABLE IF NOT EXISTS year_end_runs (
		id TEXT PRIMARY KEY,
		fiscal_year INTEGER NOT NULL,
		status TEXT NOT NULL,
		trigger_source TEXT NOT NULL DEFAULT '',
		processed_count INTEGER NOT NULL DEFAULT 0,
		depreciated_count INTEGER NOT NULL DEFAULT 0,
		stopped_count INTEGER NOT NULL DEFAULT 0,
		skipped_count INTEGER NOT NULL DEFAULT 0,
		total_depreciation TEXT NOT NULL DEFAULT '0',
		error TEXT,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_year_end_runs_year_status
		ON year_end_runs(fiscal_year, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ASSETS
// =============================================================================

const assetColumns = `id, name, category, status, cost, residual_value, useful_life,
	acquisition_date, depreciation_percentage, depreciation_years_applied,
	accumulated_depreciation, net_book_value, expiry_date, last_depreciation_year,
	created_at, updated_at`

// Create inserts a new asset.
func (s *Store) Create(ctx context.Context, a *asset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `INSERT INTO assets (` + assetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Category, string(a.Status),
		a.Cost, a.ResidualValue, a.UsefulLife,
		nullDate(a.AcquisitionDate), a.DepreciationPercentage, nullInt(a.DepreciationYearsApplied),
		a.AccumulatedDepreciation, a.NetBookValue, nullDate(a.ExpiryDate), a.LastDepreciationYear,
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// Get retrieves an asset by ID.
func (s *Store) Get(ctx context.Context, id string) (*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	assets, err := scanAssets(rows)
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: %s", asset.ErrAssetNotFound, id)
	}
	return &assets[0], nil
}

// List returns all assets ordered by name.
func (s *Store) List(ctx context.Context) ([]asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+assetColumns+` FROM assets ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return scanAssets(rows)
}

// ListByStatus returns assets with one of the given statuses.
func (s *Store) ListByStatus(ctx context.Context, statuses ...asset.Status) ([]asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return listByStatus(ctx, s.db, statuses)
}

// UpdateStatus changes the lifecycle status of an asset.
func (s *Store) UpdateStatus(ctx context.Context, id string, status asset.Status) error {
	if !status.Valid() {
		return asset.ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE assets SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRow(res, id)
}

// UpdateDepreciation persists the year-end fields outside a batch transaction.
func (s *Store) UpdateDepreciation(ctx context.Context, a *asset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateDepreciation(ctx, s.db, a)
}

func listByStatus(ctx context.Context, q querier, statuses []asset.Status) ([]asset.Asset, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args[i] = string(st)
	}

	query := `SELECT ` + assetColumns + ` FROM assets
		WHERE status IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY id`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets by status: %w", err)
	}
	return scanAssets(rows)
}

func updateDepreciation(ctx context.Context, q querier, a *asset.Asset) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE assets SET
			residual_value = ?,
			depreciation_years_applied = ?,
			accumulated_depreciation = ?,
			net_book_value = ?,
			expiry_date = ?,
			last_depreciation_year = ?,
			updated_at = ?
		WHERE id = ?
	`

	res, err := q.ExecContext(ctx, query,
		a.ResidualValue, nullInt(a.DepreciationYearsApplied),
		a.AccumulatedDepreciation, a.NetBookValue,
		nullDate(a.ExpiryDate), a.LastDepreciationYear,
		a.UpdatedAt.Format(time.RFC3339), a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update depreciation for %s: %w", a.ID, err)
	}
	return requireRow(res, a.ID)
}

func scanAssets(rows *sql.Rows) ([]asset.Asset, error) {
	defer rows.Close()

	var assets []asset.Asset
	for rows.Next() {
		var (
			a                           asset.Asset
			status                      string
			acquisitionDate, expiryDate sql.NullString
			yearsApplied                sql.NullInt64
			createdAt, updatedAt        string
		)

		err := rows.Scan(
			&a.ID, &a.Name, &a.Category, &status,
			&a.Cost, &a.ResidualValue, &a.UsefulLife,
			&acquisitionDate, &a.DepreciationPercentage, &yearsApplied,
			&a.AccumulatedDepreciation, &a.NetBookValue, &expiryDate, &a.LastDepreciationYear,
			&createdAt, &updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}

		a.Status = asset.Status(status)
		a.AcquisitionDate = parseDate(acquisitionDate)
		a.ExpiryDate = parseDate(expiryDate)
		if yearsApplied.Valid {
			years := int(yearsApplied.Int64)
			a.DepreciationYearsApplied = &years
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// =============================================================================
// AUDIT LOG (asset.AuditLogger)
// =============================================================================

// LogAction appends an audit record.
func (s *Store) LogAction(ctx context.Context, action, tableName, recordID, description string, oldValues, newValues map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return logAction(ctx, s.db, action, tableName, recordID, description, oldValues, newValues)
}

func logAction(ctx context.Context, q querier, action, tableName, recordID, description string, oldValues, newValues map[string]any) error {
	oldJSON, err := json.Marshal(oldValues)
	if err != nil {
		return fmt.Errorf("failed to encode old values: %w", err)
	}
	newJSON, err := json.Marshal(newValues)
	if err != nil {
		return fmt.Errorf("failed to encode new values: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, action, table_name, record_id, description,
			old_values_json, new_values_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = q.ExecContext(ctx, query,
		uuid.NewString(), action, tableName, recordID, description,
		string(oldJSON), string(newJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the audit trail of a record, oldest first.
func (s *Store) ListAudit(ctx context.Context, recordID string) ([]asset.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, table_name, record_id, description,
			old_values_json, new_values_json, created_at
		FROM audit_log
		WHERE record_id = ?
		ORDER BY rowid ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []asset.AuditEntry
	for rows.Next() {
		var (
			e                asset.AuditEntry
			description      sql.NullString
			oldJSON, newJSON sql.NullString
			createdAt        string
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.TableName, &e.RecordID, &description,
			&oldJSON, &newJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		e.Description = description.String
		if oldJSON.Valid && oldJSON.String != "" {
			if err := json.Unmarshal([]byte(oldJSON.String), &e.OldValues); err != nil {
				return nil, fmt.Errorf("failed to decode audit values: %w", err)
			}
		}
		if newJSON.Valid && newJSON.String != "" {
			if err := json.Unmarshal([]byte(newJSON.String), &e.NewValues); err != nil {
				return nil, fmt.Errorf("failed to decode audit values: %w", err)
			}
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// YEAR-END RUNS
// =============================================================================

// SaveRun inserts or updates a run record.
func (s *Store) SaveRun(ctx context.Context, run asset.YearEndRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saveRun(ctx, s.db, run)
}

func saveRun(ctx context.Context, q querier, r asset.YearEndRun) error {
	query := `
		INSERT INTO year_end_runs (id, fiscal_year, status, trigger_source,
			processed_count, depreciated_count, stopped_count, skipped_count,
			total_depreciation, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			processed_count = excluded.processed_count,
			depreciated_count = excluded.depreciated_count,
			stopped_count = excluded.stopped_count,
			skipped_count = excluded.skipped_count,
			total_depreciation = excluded.total_depreciation,
			error = excluded.error,
			completed_at = excluded.completed_at
	`

	var completedAt *string
	if r.CompletedAt != nil {
		s := r.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &s
	}

	_, err := q.ExecContext(ctx, query,
		r.ID, r.FiscalYear, string(r.Status), r.Trigger,
		r.ProcessedCount, r.DepreciatedCount, r.StoppedCount, r.SkippedCount,
		r.TotalDepreciation.String(), nullString(r.Error),
		r.StartedAt.UTC().Format(time.RFC3339), completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save year-end run: %w", err)
	}
	return nil
}

// ListRuns returns year-end runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]asset.YearEndRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, fiscal_year, status, trigger_source,
			processed_count, depreciated_count, stopped_count, skipped_count,
			total_depreciation, error, started_at, completed_at
		FROM year_end_runs
		ORDER BY started_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query year-end runs: %w", err)
	}
	defer rows.Close()

	var runs []asset.YearEndRun
	for rows.Next() {
		var (
			r                   asset.YearEndRun
			status, total       string
			runErr, completedAt sql.NullString
			startedAt           string
		)
		if err := rows.Scan(&r.ID, &r.FiscalYear, &status, &r.Trigger,
			&r.ProcessedCount, &r.DepreciatedCount, &r.StoppedCount, &r.SkippedCount,
			&total, &runErr, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan year-end run: %w", err)
		}

		r.Status = asset.RunStatus(status)
		r.TotalDepreciation, _ = decimal.NewFromString(total)
		r.Error = runErr.String
		r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			r.CompletedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// IsYearEndComplete checks if the batch already completed for a fiscal year.
func (s *Store) IsYearEndComplete(ctx context.Context, fiscalYear int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM year_end_runs WHERE fiscal_year = ? AND status = ?`,
		fiscalYear, string(asset.RunCompleted),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// =============================================================================
// TRANSACTIONAL REPOSITORY
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(asset.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txRepository{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type txRepository struct {
	tx *sql.Tx
}

func (r *txRepository) ListByStatus(ctx context.Context, statuses ...asset.Status) ([]asset.Asset, error) {
	return listByStatus(ctx, r.tx, statuses)
}

func (r *txRepository) UpdateDepreciation(ctx context.Context, a *asset.Asset) error {
	return updateDepreciation(ctx, r.tx, a)
}

func (r *txRepository) LogAction(ctx context.Context, action, tableName, recordID, description string, oldValues, newValues map[string]any) error {
	return logAction(ctx, r.tx, action, tableName, recordID, description, oldValues, newValues)
}

func (r *txRepository) SaveRun(ctx context.Context, run asset.YearEndRun) error {
	return saveRun(ctx, r.tx, run)
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"audit_log", "year_end_runs", "assets"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(depreciation.DateLayout), Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func parseDate(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := depreciation.ParseDate(s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", asset.ErrAssetNotFound, id)
	}
	return nil
}
