package models

import "errors"

var (
	ErrEmptyRecord = errors.New("job record is empty")
	ErrMissingURL  = errors.New("job record has no url")
)

const (
	ActionExtractPageContent = "extractPageContent"
	ActionProcessJob         = "processJob"
)

// ExtractRequest asks a page's extractor for its content.
type ExtractRequest struct {
	Action string `json:"action"`
}

// ExtractReply is either a PageDocument or {"error": "..."}.
type ExtractReply struct {
	PageDocument
	Error string `json:"error,omitempty"`
}

// ProcessJobRequest hands an already extracted page to the pipeline.
type ProcessJobRequest struct {
	Action   string        `json:"action"`
	PageData *PageDocument `json:"pageData"`
}

// CaptureReply reports the outcome of one capture.
type CaptureReply struct {
	Success   bool       `json:"success"`
	Data      *JobRecord `json:"data,omitempty"`
	Error     string     `json:"error,omitempty"`
	CaptureID string     `json:"captureId,omitempty"`
	State     string     `json:"state,omitempty"`
}
