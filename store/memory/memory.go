// Package memory provides an in-memory asset.Store (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/fixed-assets/asset"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	state state
}

var _ asset.Store = (*Memory)(nil)

type state struct {
	assets map[string]*asset.Asset
	audit  []asset.AuditEntry
	runs   []asset.YearEndRun
}

func NewMemory() *Memory {
	return &Memory{state: state{assets: make(map[string]*asset.Asset)}}
}

func (st *state) clone() state {
	c := state{
		assets: make(map[string]*asset.Asset, len(st.assets)),
		audit:  append([]asset.AuditEntry(nil), st.audit...),
		runs:   append([]asset.YearEndRun(nil), st.runs...),
	}
	for id, a := range st.assets {
		c.assets[id] = a.Clone()
	}
	return c
}

func (m *Memory) Create(_ context.Context, a *asset.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.state.assets[a.ID]; exists {
		return fmt.Errorf("asset %s already exists", a.ID)
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	m.state.assets[a.ID] = a.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*asset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.state.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", asset.ErrAssetNotFound, id)
	}
	return a.Clone(), nil
}

func (m *Memory) List(_ context.Context) ([]asset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.state.filter(func(*asset.Asset) bool { return true })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ListByStatus(_ context.Context, statuses ...asset.Status) ([]asset.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.listByStatus(statuses), nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, status asset.Status) error {
	if !status.Valid() {
		return asset.ErrInvalidStatus
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.state.assets[id]
	if !ok {
		return fmt.Errorf("%w: %s", asset.ErrAssetNotFound, id)
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) UpdateDepreciation(_ context.Context, a *asset.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.updateDepreciation(a)
}

func (m *Memory) LogAction(_ context.Context, action, tableName, recordID, description string, oldValues, newValues map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.logAction(action, tableName, recordID, description, oldValues, newValues)
	return nil
}

func (m *Memory) ListAudit(_ context.Context, recordID string) ([]asset.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []asset.AuditEntry
	for _, e := range m.state.audit {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) SaveRun(_ context.Context, run asset.YearEndRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.saveRun(run)
	return nil
}

func (m *Memory) ListRuns(_ context.Context) ([]asset.YearEndRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]asset.YearEndRun, 0, len(m.state.runs))
	for i := len(m.state.runs) - 1; i >= 0; i-- {
		out = append(out, m.state.runs[i])
	}
	return out, nil
}

func (m *Memory) IsYearEndComplete(_ context.Context, fiscalYear int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.state.runs {
		if r.FiscalYear == fiscalYear && r.Status == asset.RunCompleted {
			return true, nil
		}
	}
	return false, nil
}

// WithTx runs fn against the live state and restores a snapshot if fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(asset.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&txRepository{state: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

type txRepository struct {
	state *state
}

func (r *txRepository) ListByStatus(_ context.Context, statuses ...asset.Status) ([]asset.Asset, error) {
	return r.state.listByStatus(statuses), nil
}

func (r *txRepository) UpdateDepreciation(_ context.Context, a *asset.Asset) error {
	return r.state.updateDepreciation(a)
}

func (r *txRepository) LogAction(_ context.Context, action, tableName, recordID, description string, oldValues, newValues map[string]any) error {
	r.state.logAction(action, tableName, recordID, description, oldValues, newValues)
	return nil
}

func (r *txRepository) SaveRun(_ context.Context, run asset.YearEndRun) error {
	r.state.saveRun(run)
	return nil
}

// Locked helpers

func (st *state) filter(keep func(*asset.Asset) bool) []asset.Asset {
	var out []asset.Asset
	for _, a := range st.assets {
		if keep(a) {
			out = append(out, *a.Clone())
		}
	}
	return out
}

func (st *state) listByStatus(statuses []asset.Status) []asset.Asset {
	out := st.filter(func(a *asset.Asset) bool {
		for _, s := range statuses {
			if a.Status == s {
				return true
			}
		}
		return false
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) updateDepreciation(a *asset.Asset) error {
	stored, ok := st.assets[a.ID]
	if !ok {
		return fmt.Errorf("%w: %s", asset.ErrAssetNotFound, a.ID)
	}
	updated := a.Clone()
	stored.ResidualValue = updated.ResidualValue
	stored.DepreciationYearsApplied = updated.DepreciationYearsApplied
	stored.AccumulatedDepreciation = updated.AccumulatedDepreciation
	stored.NetBookValue = updated.NetBookValue
	stored.ExpiryDate = updated.ExpiryDate
	stored.LastDepreciationYear = updated.LastDepreciationYear
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (st *state) logAction(action, tableName, recordID, description string, oldValues, newValues map[string]any) {
	st.audit = append(st.audit, asset.AuditEntry{
		ID:          uuid.NewString(),
		Action:      action,
		TableName:   tableName,
		RecordID:    recordID,
		Description: description,
		OldValues:   oldValues,
		NewValues:   newValues,
		CreatedAt:   time.Now().UTC(),
	})
}

func (st *state) saveRun(run asset.YearEndRun) {
	for i := range st.runs {
		if st.runs[i].ID == run.ID {
			st.runs[i] = run
			return
		}
	}
	st.runs = append(st.runs, run)
}
