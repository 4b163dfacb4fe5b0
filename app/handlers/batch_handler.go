package handlers

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/amirphl/okosplazma-sms/app/dto"
	"github.com/amirphl/okosplazma-sms/app/middleware"
	"github.com/amirphl/okosplazma-sms/app/services"
	businessflow "github.com/amirphl/okosplazma-sms/business_flow"
	"github.com/amirphl/okosplazma-sms/models"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BatchHandlerInterface defines the contract for batch handlers
type BatchHandlerInterface interface {
	ListTemplates(c fiber.Ctx) error
	Preview(c fiber.Ctx) error
	Send(c fiber.Ctx) error
	Report(c fiber.Ctx) error
}

// BatchHandler handles spreadsheet uploads and reminder sends
type BatchHandler struct {
	baseHandler
	batchFlow businessflow.BatchFlow
	reader    services.SpreadsheetReader
	reports   services.ReportWriter
	timeout   time.Duration
	logger    *log.Logger
}

// NewBatchHandler creates a new batch handler; timeout bounds a whole send
func NewBatchHandler(batchFlow businessflow.BatchFlow, reader services.SpreadsheetReader, reports services.ReportWriter, timeout time.Duration, logger *log.Logger) *BatchHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &BatchHandler{
		baseHandler: newBaseHandler(),
		batchFlow:   batchFlow,
		reader:      reader,
		reports:     reports,
		timeout:     timeout,
		logger:      logger,
	}
}

// ListTemplates returns the selectable reminder templates
// @Summary List Templates
// @Tags Batches
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.TemplateDTO}
// @Router /api/v1/templates [get]
func (h *BatchHandler) ListTemplates(c fiber.Ctx) error {
	kinds := models.AllTemplateKinds()
	out := make([]dto.TemplateDTO, 0, len(kinds))
	for _, kind := range kinds {
		body, err := businessflow.TemplateBody(kind)
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list templates", "TEMPLATES_FAILED", nil)
		}
		out = append(out, dto.TemplateDTO{Kind: kind.String(), Label: kind.Label(), Body: body})
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Templates retrieved", out)
}

// Preview renders the reminders of an uploaded spreadsheet without sending
// @Summary Preview Batch
// @Tags Batches
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "xlsx with name, phone and date-time columns"
// @Param template formData string true "donation or appointment"
// @Success 200 {object} dto.APIResponse{data=dto.PreviewResponse}
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/batches/preview [post]
func (h *BatchHandler) Preview(c fiber.Ctx) error {
	rows, kind, reqErr := h.parseUpload(c)
	if reqErr != nil {
		return h.respond(c, reqErr)
	}

	preview, err := h.batchFlow.Preview(rows, kind)
	if err != nil {
		return h.respond(c, h.flowError(err, "Preview failed", "PREVIEW_FAILED"))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Batch preview generated", businessflow.ToPreviewDTO(preview))
}

// Send dispatches every accepted row of an uploaded spreadsheet
// @Summary Send Batch
// @Tags Batches
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "xlsx with name, phone and date-time columns"
// @Param template formData string true "donation or appointment"
// @Success 200 {object} dto.APIResponse{data=dto.BatchResultResponse}
// @Failure 400 {object} dto.APIResponse
// @Failure 504 {object} dto.APIResponse "Batch canceled, partial result in details"
// @Router /api/v1/batches/send [post]
func (h *BatchHandler) Send(c fiber.Ctx) error {
	result, reqErr := h.run(c, "/api/v1/batches/send")
	if reqErr != nil {
		return h.respond(c, reqErr)
	}

	message := "Batch sent"
	if !result.AllSucceeded {
		message = "Batch finished with failed messages"
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, businessflow.ToBatchResultDTO(result))
}

// Report dispatches like Send and returns the outcome as an xlsx report
// @Summary Send Batch With Report
// @Tags Batches
// @Accept multipart/form-data
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param file formData file true "xlsx with name, phone and date-time columns"
// @Param template formData string true "donation or appointment"
// @Success 200 {string} string "Excel file"
// @Failure 400 {object} dto.APIResponse
// @Router /api/v1/batches/report [post]
func (h *BatchHandler) Report(c fiber.Ctx) error {
	result, reqErr := h.run(c, "/api/v1/batches/report")
	if reqErr != nil {
		return h.respond(c, reqErr)
	}

	filename, data, err := h.reports.WriteBatchReport(result)
	if err != nil {
		h.logger.Printf("batch %s: report generation failed: %v", result.ID, err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate report", "REPORT_FAILED",
			businessflow.ToBatchResultDTO(result))
	}
	c.Set("Content-Type", xlsxContentType)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	c.Set("X-Batch-ID", result.ID)
	c.Set("X-Batch-All-Succeeded", strconv.FormatBool(result.AllSucceeded))
	return c.Send(data)
}

// requestError is a decided error response
type requestError struct {
	status  int
	message string
	code    string
	details any
}

func (h *BatchHandler) respond(c fiber.Ctx, e *requestError) error {
	return h.ErrorResponse(c, e.status, e.message, e.code, e.details)
}

// run parses the upload and sends the batch
func (h *BatchHandler) run(c fiber.Ctx, endpoint string) (*models.BatchResult, *requestError) {
	rows, kind, reqErr := h.parseUpload(c)
	if reqErr != nil {
		return nil, reqErr
	}

	ctx, cancel := h.createRequestContext(c, endpoint, h.timeout)
	defer cancel()

	operator, _ := middleware.GetOperatorFromContext(c)
	result, err := h.batchFlow.Run(ctx, rows, kind)
	if result != nil {
		h.logger.Printf("batch %s: run by operator=%s ip=%s request_id=%s", result.ID, operator, c.IP(), requestID(c))
	}
	if err != nil {
		if businessflow.IsBatchCanceled(err) && result != nil {
			status := fiber.StatusServiceUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				status = fiber.StatusGatewayTimeout
			}
			return nil, &requestError{status, "Batch canceled before every message was sent", "BATCH_CANCELED", businessflow.ToBatchResultDTO(result)}
		}
		return nil, h.flowError(err, "Batch failed", "BATCH_FAILED")
	}
	return result, nil
}

// parseUpload reads the multipart template field and spreadsheet file
func (h *BatchHandler) parseUpload(c fiber.Ctx) ([]models.RawRow, models.TemplateKind, *requestError) {
	req := dto.BatchUploadRequest{Template: c.FormValue("template")}
	if msgs := h.validate(&req); len(msgs) > 0 {
		return nil, "", &requestError{fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", msgs}
	}
	kind, err := models.ParseTemplateKind(req.Template)
	if err != nil {
		return nil, "", &requestError{fiber.StatusBadRequest, "Unknown message template", "UNKNOWN_TEMPLATE", err.Error()}
	}

	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return nil, "", &requestError{fiber.StatusBadRequest, "file is required", "INVALID_REQUEST", nil}
	}
	fh, err := fileHeader.Open()
	if err != nil {
		return nil, "", &requestError{fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error()}
	}
	defer fh.Close()

	rows, err := h.reader.ReadRows(fh)
	if err != nil {
		code := "INVALID_SPREADSHEET"
		if errors.Is(err, services.ErrTooManyRows) {
			code = "TOO_MANY_ROWS"
		}
		return nil, "", &requestError{fiber.StatusBadRequest, "Failed to read spreadsheet", code, err.Error()}
	}
	if len(rows) == 0 {
		return nil, "", &requestError{fiber.StatusBadRequest, "Spreadsheet has no rows", "NO_ROWS", businessflow.ErrNoRows.Error()}
	}
	return rows, kind, nil
}

func (h *BatchHandler) flowError(err error, message, fallbackCode string) *requestError {
	switch {
	case businessflow.IsUnknownTemplate(err):
		return &requestError{fiber.StatusBadRequest, "Unknown message template", "UNKNOWN_TEMPLATE", nil}
	case businessflow.IsGatewayNotConfigured(err):
		return &requestError{fiber.StatusServiceUnavailable, "SMS gateway not configured", "GATEWAY_NOT_CONFIGURED", nil}
	}
	h.logger.Println(message, err)
	return &requestError{fiber.StatusInternalServerError, message, fallbackCode, nil}
}
