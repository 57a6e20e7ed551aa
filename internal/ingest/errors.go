package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrFormat = errors.New("file is not a CSV document")
	ErrParse  = errors.New("failed to read inventory file")
)

// FormatError is returned when an upload is not CSV typed or named.
// Ingestion is aborted entirely.
type FormatError struct {
	Filename    string
	ContentType string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: name=%q content-type=%q", ErrFormat, e.Filename, e.ContentType)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// ParseError wraps any failure while reading or decoding the upload
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrParse, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
