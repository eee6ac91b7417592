package model

import (
	"errors"
	"strings"

	"github.com/okian/docrisk/internal/domain/analysis"
)

// ErrEmptySubmission is returned when a submission carries neither content
// nor text.
var ErrEmptySubmission = errors.New("submission has no content and no text")

// Submission is the wire form of a document sent for analysis over HTTP or
// Kafka. Content is base64 encoded in JSON.
type Submission struct {
	DocumentID   string `json:"document_id,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	Content      []byte `json:"content,omitempty"`
	OCRText      string `json:"ocr_text,omitempty"`
}

// Validate checks that there is something to analyze.
func (s Submission) Validate() error {
	if len(s.Content) == 0 && strings.TrimSpace(s.OCRText) == "" {
		return ErrEmptySubmission
	}
	return nil
}

// Document converts the submission; id replaces an empty DocumentID. File
// system times are unknown for uploads, so only embedded dates are used.
func (s Submission) Document(id string) analysis.Document {
	if s.DocumentID != "" {
		id = s.DocumentID
	}
	return analysis.Document{
		ID:       id,
		Type:     s.DocumentType,
		FileName: s.FileName,
		Content:  s.Content,
		Text:     s.OCRText,
	}
}

// Receipt statuses.
const (
	ReceiptAccepted  = "accepted"
	ReceiptDuplicate = "duplicate"
)

// Receipt acknowledges an asynchronous submission.
type Receipt struct {
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate"`
}
