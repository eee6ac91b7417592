// Package model contains the records passed between the HTTP layer, the queue,
// the workers and the report store.
package model

import (
	"time"

	"github.com/okian/docrisk/internal/domain/analysis"
	"github.com/okian/docrisk/internal/domain/risk"
)

// Status of a submitted document.
type Status string

// Document statuses.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is one queued analysis.
type Job struct {
	Fingerprint string
	Document    analysis.Document
	SubmittedAt time.Time
}

// Record is the stored state of a submission.
type Record struct {
	DocumentID  string       `json:"document_id"`
	Status      Status       `json:"status"`
	Report      *risk.Report `json:"report,omitempty"`
	Error       string       `json:"error,omitempty"`
	SubmittedAt time.Time    `json:"submitted_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// Pending returns the initial record of a job.
func Pending(j Job) Record {
	return Record{DocumentID: j.Document.ID, Status: StatusPending, SubmittedAt: j.SubmittedAt}
}

// Done returns the record of a job that produced a report.
func Done(j Job, rep *risk.Report, at time.Time) Record {
	return Record{DocumentID: j.Document.ID, Status: StatusDone, Report: rep, SubmittedAt: j.SubmittedAt, CompletedAt: &at}
}

// Failed returns the record of a job whose analysis returned an error.
func Failed(j Job, err error, at time.Time) Record {
	return Record{DocumentID: j.Document.ID, Status: StatusFailed, Error: err.Error(), SubmittedAt: j.SubmittedAt, CompletedAt: &at}
}

// Terminal reports whether the record will not change again.
func (r Record) Terminal() bool {
	return r.Status == StatusDone || r.Status == StatusFailed
}
