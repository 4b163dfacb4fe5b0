package dto

// BatchUploadRequest holds the non-file multipart fields of a batch upload
type BatchUploadRequest struct {
	Template string `json:"template" form:"template" validate:"required,oneof=donation appointment" example:"donation"`
}

// PreviewItemDTO is one rendered, unsent reminder
type PreviewItemDTO struct {
	Row             int    `json:"row"`
	FirstName       string `json:"first_name"`
	Phone           string `json:"phone"`
	AppointmentTime string `json:"appointment_time"`
	Message         string `json:"message"`
}

// PreviewResponse lists what a send would dispatch
type PreviewResponse struct {
	Template      string           `json:"template"`
	TemplateLabel string           `json:"template_label"`
	RowsRead      int              `json:"rows_read"`
	RowsRejected  int              `json:"rows_rejected"`
	Items         []PreviewItemDTO `json:"items"`
}

// DispatchResultDTO is the outcome of one send attempt
type DispatchResultDTO struct {
	Row             int    `json:"row"`
	FirstName       string `json:"first_name"`
	Phone           string `json:"phone"`
	AppointmentTime string `json:"appointment_time"`
	Status          string `json:"status" example:"sent"`
	Message         string `json:"message"`
	Request         string `json:"request"`
	StatusCode      int    `json:"status_code,omitempty"`
	Response        string `json:"response,omitempty"`
	Diagnostic      string `json:"diagnostic,omitempty"`
	GatewayResult   string `json:"gateway_result,omitempty"`
	GatewayCode     string `json:"gateway_code,omitempty"`
	GatewayMessage  string `json:"gateway_message,omitempty"`
	DurationMillis  int64  `json:"duration_ms"`
}

// BatchResultResponse is the aggregated outcome of a send batch
type BatchResultResponse struct {
	BatchID      string              `json:"batch_id"`
	Template     string              `json:"template"`
	RowsRead     int                 `json:"rows_read"`
	RowsRejected int                 `json:"rows_rejected"`
	SentCount    int                 `json:"sent_count"`
	FailedCount  int                 `json:"failed_count"`
	AllSucceeded bool                `json:"all_succeeded"`
	Canceled     bool                `json:"canceled"`
	StartedAt    string              `json:"started_at"`
	FinishedAt   string              `json:"finished_at"`
	Results      []DispatchResultDTO `json:"results"`
}

// TemplateDTO describes one selectable message template
type TemplateDTO struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
	Body  string `json:"body"`
}
