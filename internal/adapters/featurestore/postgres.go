package featurestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/docrisk/internal/domain/ensemble"
)

// Postgres reads rows from a table with applicant_id and a JSONB fields
// column.
type Postgres struct {
	pool   *pgxpool.Pool
	lookup string
	upsert string
}

var _ ensemble.FeatureSource = (*Postgres)(nil)

// NewPostgres creates a source over table.
func NewPostgres(pool *pgxpool.Pool, table string) *Postgres {
	if table == "" {
		table = "applicant_features"
	}
	name := pgx.Identifier{table}.Sanitize()
	return &Postgres{
		pool:   pool,
		lookup: "SELECT fields FROM " + name + " WHERE applicant_id = $1",
		upsert: "INSERT INTO " + name + ` (applicant_id, fields, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (applicant_id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`,
	}
}

// Lookup fetches one row. Connection errors are returned as is so the
// scorer can retry them.
func (p *Postgres) Lookup(ctx context.Context, applicantID string) (ensemble.FeatureRow, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, p.lookup, normalizeID(applicantID)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return ensemble.FeatureRow{}, fmt.Errorf("%w: %s", ensemble.ErrApplicantNotFound, applicantID)
	}
	if err != nil {
		return ensemble.FeatureRow{}, fmt.Errorf("query applicant features: %w", err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return ensemble.FeatureRow{}, err
	}
	return ensemble.FeatureRow{ApplicantID: normalizeID(applicantID), Fields: fields}, nil
}

// Put upserts a row.
func (p *Postgres) Put(ctx context.Context, r ensemble.FeatureRow) error {
	raw, err := json.Marshal(r.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	_, err = p.pool.Exec(ctx, p.upsert, normalizeID(r.ApplicantID), raw)
	if err != nil {
		return fmt.Errorf("upsert applicant features: %w", err)
	}
	return nil
}

// decodeFields keeps numbers in their JSON text form so ParseFloat sees the
// stored precision.
func decodeFields(raw []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return nil, fmt.Errorf("decode applicant fields: %w", err)
	}
	fields := make(map[string]string, len(values))
	for k, v := range values {
		switch t := v.(type) {
		case nil:
			fields[k] = ""
		case string:
			fields[k] = t
		case json.Number:
			fields[k] = t.String()
		default:
			fields[k] = fmt.Sprint(t)
		}
	}
	return fields, nil
}
