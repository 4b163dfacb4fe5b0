// Package businessflow contains the core use cases: normalizing rows, rendering reminders and running send batches
package businessflow

import (
	"time"

	"github.com/amirphl/okosplazma-sms/app/dto"
	"github.com/amirphl/okosplazma-sms/models"
)

// ClientMetadata holds client information attached to operator actions for logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Operator   string            `json:"operator,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetOperator sets the authenticated operator username
func (cm *ClientMetadata) SetOperator(operator string) {
	cm.Operator = operator
}

// String renders the metadata as a compact log fragment
func (cm *ClientMetadata) String() string {
	if cm == nil {
		return "client=unknown"
	}
	return "operator=" + cm.Operator + " ip=" + cm.IPAddress + " request_id=" + cm.RequestID
}

// ToBatchResultDTO converts a batch result into its API representation
func ToBatchResultDTO(result *models.BatchResult) dto.BatchResultResponse {
	items := make([]dto.DispatchResultDTO, 0, len(result.Results))
	for _, r := range result.Results {
		items = append(items, ToDispatchResultDTO(r))
	}
	return dto.BatchResultResponse{
		BatchID:      result.ID,
		Template:     result.Template.String(),
		RowsRead:     result.RowsRead,
		RowsRejected: result.RowsRejected,
		SentCount:    result.SentCount,
		FailedCount:  result.FailedCount,
		AllSucceeded: result.AllSucceeded,
		Canceled:     result.Canceled,
		StartedAt:    result.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt:   result.FinishedAt.UTC().Format(time.RFC3339),
		Results:      items,
	}
}

func ToDispatchResultDTO(r models.DispatchResult) dto.DispatchResultDTO {
	out := dto.DispatchResultDTO{
		Row:             r.Recipient.Row,
		FirstName:       r.Recipient.FirstName,
		Phone:           r.Recipient.Phone,
		AppointmentTime: r.Recipient.AppointmentTime,
		Status:          r.Status.String(),
		Message:         r.Message,
		Request:         r.Request,
		StatusCode:      r.StatusCode,
		Response:        r.Body,
		Diagnostic:      r.Diagnostic,
		DurationMillis:  r.Duration.Milliseconds(),
	}
	if r.Gateway != nil {
		out.GatewayResult = r.Gateway.Result
		out.GatewayCode = r.Gateway.Code
		out.GatewayMessage = r.Gateway.Message
	}
	return out
}

// ToPreviewDTO converts a preview into its API representation
func ToPreviewDTO(preview *models.PreviewResult) dto.PreviewResponse {
	items := make([]dto.PreviewItemDTO, 0, len(preview.Items))
	for _, it := range preview.Items {
		items = append(items, dto.PreviewItemDTO{
			Row:             it.Recipient.Row,
			FirstName:       it.Recipient.FirstName,
			Phone:           it.Recipient.Phone,
			AppointmentTime: it.Recipient.AppointmentTime,
			Message:         it.Message,
		})
	}
	return dto.PreviewResponse{
		Template:      preview.Template.String(),
		TemplateLabel: preview.Template.Label(),
		RowsRead:      preview.RowsRead,
		RowsRejected:  preview.RowsRejected,
		Items:         items,
	}
}
