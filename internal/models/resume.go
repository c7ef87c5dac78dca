package models

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a résumé document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// NotAvailable fills extracted fields the résumé does not provide.
const NotAvailable = "N/A"

// Present is the end date of an ongoing position.
const Present = "Present"

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further automatic transition follows s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a document may move from one status to
// another. Terminal documents may only re-enter processing.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted, StatusFailed:
		return to == StatusProcessing
	}
	return false
}

// ResumeDocument is the unit stored in both the raw and processed collections.
// Raw documents carry RawText; processed documents carry ProcessedData.
type ResumeDocument struct {
	ID            string           `json:"id"`
	Filename      string           `json:"filename"`
	UploadDate    time.Time        `json:"upload_date"`
	Status        Status           `json:"status"`
	RawText       string           `json:"raw_text,omitempty"`
	ProcessedData *ProcessedResult `json:"processed_data,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// ExtractedRecord is the submit_application arguments exactly as the model
// returned them. Keys and value shapes outside the function schema are kept.
type ExtractedRecord map[string]any

// Strings returns the string elements of the list stored under key.
func (r ExtractedRecord) Strings(key string) []string {
	var out []string
	switch v := r[key].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Object returns the nested object stored under key, or nil.
func (r ExtractedRecord) Object(key string) map[string]any {
	m, _ := r[key].(map[string]any)
	return m
}

// ProcessedResult is the extracted record plus both summaries, serialized
// as one flat object.
type ProcessedResult struct {
	Record           ExtractedRecord
	Summary          string
	SanitizedSummary string
}

const (
	summaryKey          = "summary"
	sanitizedSummaryKey = "sanitized_summary"
)

func (p ProcessedResult) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(p.Record)+2)
	for k, v := range p.Record {
		flat[k] = v
	}
	flat[summaryKey] = p.Summary
	flat[sanitizedSummaryKey] = p.SanitizedSummary
	return json.Marshal(flat)
}

func (p *ProcessedResult) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	p.Summary, _ = flat[summaryKey].(string)
	p.SanitizedSummary, _ = flat[sanitizedSummaryKey].(string)
	delete(flat, summaryKey)
	delete(flat, sanitizedSummaryKey)
	p.Record = ExtractedRecord(flat)
	return nil
}
