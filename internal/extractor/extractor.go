package extractor

import (
	"context"
	"fmt"
)

// Metadata is the structured result of one extraction run. Field names match
// the JSON the extraction tool emits, which follows DICOM tag naming.
type Metadata struct {
	PatientName       string `json:"PatientName"`
	StudyDate         string `json:"StudyDate"`
	StudyDescription  string `json:"StudyDescription"`
	SeriesDescription string `json:"SeriesDescription"`
	Modality          string `json:"Modality"`
	Image             *Image `json:"image,omitempty"`
}

// Image is a rendered preview of the file's pixel data.
type Image struct {
	Data   string `json:"data"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Extractor runs metadata extraction for a single file.
type Extractor interface {
	Extract(ctx context.Context, filePath string) (*Metadata, error)
}

// NotFoundError reports a missing precondition (the target file, the
// extraction tool, or its interpreter) detected before any process is
// spawned.
type NotFoundError struct {
	What string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Path)
}

// ProcessingError reports a failed extraction run: a non-zero exit, error
// output on stderr, or a timeout.
type ProcessingError struct {
	Stderr   string
	ExitCode int
	Timeout  bool
}

func (e *ProcessingError) Error() string {
	if e.Timeout {
		return "extraction timed out"
	}
	if e.Stderr != "" {
		return fmt.Sprintf("extraction failed (exit %d): %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("extraction failed (exit %d)", e.ExitCode)
}

// ParseError reports a payload block that could not be decoded.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse extraction output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
