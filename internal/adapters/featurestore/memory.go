// Package featurestore provides applicant feature rows to the ensemble
// scorer from memory, a spreadsheet or PostgreSQL.
package featurestore

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/okian/docrisk/internal/domain/ensemble"
)

// Memory is a concurrency-safe in-memory feature source.
type Memory struct {
	mu   sync.RWMutex
	rows map[string]ensemble.FeatureRow
}

var _ ensemble.FeatureSource = (*Memory)(nil)

// NewMemory creates a source holding rows.
func NewMemory(rows ...ensemble.FeatureRow) *Memory {
	m := &Memory{rows: make(map[string]ensemble.FeatureRow, len(rows))}
	for _, r := range rows {
		m.Put(r)
	}
	return m
}

// Put stores a copy of r under its trimmed applicant id.
func (m *Memory) Put(r ensemble.FeatureRow) {
	id := normalizeID(r.ApplicantID)
	row := ensemble.FeatureRow{ApplicantID: id, Fields: maps.Clone(r.Fields)}
	m.mu.Lock()
	m.rows[id] = row
	m.mu.Unlock()
}

// Lookup returns the row of applicantID.
func (m *Memory) Lookup(_ context.Context, applicantID string) (ensemble.FeatureRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rows[normalizeID(applicantID)]
	if !ok {
		return ensemble.FeatureRow{}, fmt.Errorf("%w: %s", ensemble.ErrApplicantNotFound, applicantID)
	}
	return ensemble.FeatureRow{ApplicantID: r.ApplicantID, Fields: maps.Clone(r.Fields)}, nil
}

// Len returns the number of rows.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
