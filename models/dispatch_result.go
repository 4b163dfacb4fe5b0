package models

import "time"

// DispatchStatus is the classified outcome of one gateway call
type DispatchStatus string

const (
	DispatchStatusSent   DispatchStatus = "sent"
	DispatchStatusFailed DispatchStatus = "failed"
)

// String returns the string representation of the status
func (s DispatchStatus) String() string {
	return string(s)
}

// DispatchResult describes a single send attempt.
// Request never contains the gateway key in clear text.
type DispatchResult struct {
	Status     DispatchStatus `json:"status"`
	Recipient  Recipient      `json:"recipient"`
	Message    string         `json:"message"`
	Request    string         `json:"request"`
	StatusCode int            `json:"status_code,omitempty"`
	Body       string         `json:"body,omitempty"`
	Diagnostic string         `json:"diagnostic,omitempty"`
	Gateway    *GatewayReply  `json:"gateway,omitempty"`
	Duration   time.Duration  `json:"duration_ns"`
}

// Failed reports whether the dispatch was classified as failed
func (r *DispatchResult) Failed() bool {
	return r == nil || r.Status != DispatchStatusSent
}

// GatewayReply holds the fields decoded from a JSON gateway response, if any
type GatewayReply struct {
	Result  string `json:"result,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// BatchResult aggregates the outcome of one batch run in input order
type BatchResult struct {
	ID           string           `json:"id"`
	Template     TemplateKind     `json:"template"`
	RowsRead     int              `json:"rows_read"`
	RowsRejected int              `json:"rows_rejected"`
	Results      []DispatchResult `json:"results"`
	SentCount    int              `json:"sent_count"`
	FailedCount  int              `json:"failed_count"`
	AllSucceeded bool             `json:"all_succeeded"`
	Canceled     bool             `json:"canceled"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
}

// Summarize recomputes the counters and the aggregate flag from Results
func (b *BatchResult) Summarize() {
	b.SentCount, b.FailedCount = 0, 0
	for i := range b.Results {
		if b.Results[i].Failed() {
			b.FailedCount++
		} else {
			b.SentCount++
		}
	}
	b.AllSucceeded = b.FailedCount == 0
}

// Failures returns the failed entries in input order
func (b *BatchResult) Failures() []DispatchResult {
	out := make([]DispatchResult, 0, b.FailedCount)
	for _, r := range b.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// PreviewItem is a rendered message that has not been sent
type PreviewItem struct {
	Recipient Recipient `json:"recipient"`
	Message   string    `json:"message"`
}

// PreviewResult lists what a batch would send
type PreviewResult struct {
	Template     TemplateKind  `json:"template"`
	RowsRead     int           `json:"rows_read"`
	RowsRejected int           `json:"rows_rejected"`
	Items        []PreviewItem `json:"items"`
}
