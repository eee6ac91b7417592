// Package repository stores document submission records.
package repository

import (
	"context"

	"github.com/okian/docrisk/internal/domain/model"
)

// Stats summarises stored records.
type Stats struct {
	Total   int            `json:"total"`
	Pending int            `json:"pending"`
	Done    int            `json:"done"`
	Failed  int            `json:"failed"`
	ByBand  map[string]int `json:"by_band"`
}

// Store provides read/write access to submission records.
type Store interface {
	// Save inserts or replaces the record of r.DocumentID.
	Save(ctx context.Context, r model.Record) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, documentID string) (model.Record, error)
	Stats(ctx context.Context) (Stats, error)
}

func (s *Stats) add(r model.Record) {
	s.Total++
	switch r.Status {
	case model.StatusPending:
		s.Pending++
	case model.StatusDone:
		s.Done++
		if r.Report != nil {
			s.ByBand[string(r.Report.Band)]++
		}
	case model.StatusFailed:
		s.Failed++
	}
}
