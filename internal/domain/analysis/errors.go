package analysis

import "errors"

var (
	// ErrDocumentTypeDisabled is returned when the document type's profile
	// turns analysis off.
	ErrDocumentTypeDisabled = errors.New("document type disabled")
	// ErrEmptyDocument is returned when a document has neither content,
	// pages nor text.
	ErrEmptyDocument = errors.New("empty document")
)
