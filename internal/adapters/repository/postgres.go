package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/docrisk/internal/domain/model"
	"github.com/okian/docrisk/internal/domain/risk"
	"github.com/okian/docrisk/pkg/metrics"
)

// PostgresStore keeps records in the document_reports table. Reports are
// stored as JSONB, so internal error markers on detector results are not
// persisted.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps a migrated pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Save upserts the record.
func (s *PostgresStore) Save(ctx context.Context, r model.Record) error {
	if r.DocumentID == "" {
		return ErrEmptyDocumentID
	}
	var (
		report []byte
		score  *float64
		band   *string
	)
	if r.Report != nil {
		b, err := json.Marshal(r.Report)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		report = b
		score = &r.Report.RiskScore
		bs := string(r.Report.Band)
		band = &bs
	}
	var errText *string
	if r.Error != "" {
		errText = &r.Error
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO document_reports (document_id, status, risk_score, band, report, error, submitted_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (document_id) DO UPDATE SET
			status = EXCLUDED.status,
			risk_score = EXCLUDED.risk_score,
			band = EXCLUDED.band,
			report = EXCLUDED.report,
			error = EXCLUDED.error,
			completed_at = EXCLUDED.completed_at
	`, r.DocumentID, string(r.Status), score, band, report, errText, r.SubmittedAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("upsert document report: %w", err)
	}
	return nil
}

// Get loads one record.
func (s *PostgresStore) Get(ctx context.Context, documentID string) (model.Record, error) {
	var (
		r       model.Record
		status  string
		report  []byte
		errText *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT document_id, status, report, error, submitted_at, completed_at
		FROM document_reports
		WHERE document_id = $1
	`, documentID).Scan(&r.DocumentID, &status, &report, &errText, &r.SubmittedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Record{}, ErrNotFound
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("query document report: %w", err)
	}

	r.Status = model.Status(status)
	if errText != nil {
		r.Error = *errText
	}
	if len(report) > 0 {
		var rep risk.Report
		if err := json.Unmarshal(report, &rep); err != nil {
			return model.Record{}, fmt.Errorf("unmarshal report: %w", err)
		}
		r.Report = &rep
	}
	return r, nil
}

// Stats counts records by status and band.
func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT status, COALESCE(band, ''), COUNT(*)
		FROM document_reports
		GROUP BY status, band
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("query report stats: %w", err)
	}
	defer rows.Close()

	st := Stats{ByBand: map[string]int{}}
	for rows.Next() {
		var (
			status, band string
			n            int
		)
		if err := rows.Scan(&status, &band, &n); err != nil {
			return Stats{}, fmt.Errorf("scan report stats: %w", err)
		}
		st.Total += n
		switch model.Status(status) {
		case model.StatusPending:
			st.Pending += n
		case model.StatusDone:
			st.Done += n
			if band != "" {
				st.ByBand[band] += n
			}
		case model.StatusFailed:
			st.Failed += n
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate report stats: %w", err)
	}
	metrics.UpdateReportsStored(st.Total)
	return st, nil
}
