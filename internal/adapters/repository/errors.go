package repository

import "errors"

// Sentinel errors.
var (
	ErrNotFound        = errors.New("document not found")
	ErrEmptyDocumentID = errors.New("empty document id")
)
