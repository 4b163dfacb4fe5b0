package businessflow

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/amirphl/okosplazma-sms/app/services"
	"github.com/amirphl/okosplazma-sms/models"
	"github.com/amirphl/okosplazma-sms/utils"
	"github.com/google/uuid"
)

// BatchFlow turns spreadsheet rows into reminders and sends them
type BatchFlow interface {
	Run(ctx context.Context, rows []models.RawRow, kind models.TemplateKind) (*models.BatchResult, error)
	Preview(rows []models.RawRow, kind models.TemplateKind) (*models.PreviewResult, error)
}

// DispatchObserver is notified after each dispatch completes. Calls are serialized
// but arrive in completion order, which differs from input order when workers > 1.
type DispatchObserver func(index int, result models.DispatchResult)

// BatchOption configures a BatchFlowImpl
type BatchOption func(*BatchFlowImpl)

// WithDispatchObserver registers a callback for live progress reporting
func WithDispatchObserver(fn DispatchObserver) BatchOption {
	return func(b *BatchFlowImpl) {
		b.observer = fn
	}
}

// BatchFlowImpl runs batches over a bounded worker pool
type BatchFlowImpl struct {
	gateway     services.GatewayClient
	concurrency int
	logger      *log.Logger
	observer    DispatchObserver
}

// NewBatchFlow creates a batch runner; concurrency below 1 means sequential
func NewBatchFlow(gateway services.GatewayClient, concurrency int, logger *log.Logger, opts ...BatchOption) BatchFlow {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	b := &BatchFlowImpl{
		gateway:     gateway,
		concurrency: concurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Preview normalizes and renders without dispatching anything
func (b *BatchFlowImpl) Preview(rows []models.RawRow, kind models.TemplateKind) (*models.PreviewResult, error) {
	if !kind.Valid() {
		return nil, NewBusinessErrorf("UNKNOWN_TEMPLATE", "Unknown message template %q", ErrUnknownTemplate, kind)
	}

	recipients, rejected := NormalizeRows(rows)
	preview := &models.PreviewResult{
		Template:     kind,
		RowsRead:     len(rows),
		RowsRejected: rejected,
		Items:        make([]models.PreviewItem, 0, len(recipients)),
	}
	for _, r := range recipients {
		msg, err := Render(r, kind)
		if err != nil {
			return nil, err
		}
		preview.Items = append(preview.Items, models.PreviewItem{Recipient: r, Message: msg})
	}
	return preview, nil
}

// Run attempts every normalized recipient exactly once. Individual failures never
// abort the batch. Cancellation stops new dispatches; in-flight ones finish.
func (b *BatchFlowImpl) Run(ctx context.Context, rows []models.RawRow, kind models.TemplateKind) (*models.BatchResult, error) {
	if !kind.Valid() {
		return nil, NewBusinessErrorf("UNKNOWN_TEMPLATE", "Unknown message template %q", ErrUnknownTemplate, kind)
	}
	if b.gateway == nil {
		return nil, NewBusinessError("GATEWAY_NOT_CONFIGURED", "SMS gateway not configured", ErrGatewayNotConfigured)
	}

	preview, err := b.Preview(rows, kind)
	if err != nil {
		return nil, err
	}
	smsRowsRejectedTotal.Add(float64(preview.RowsRejected))

	items := preview.Items
	result := &models.BatchResult{
		ID:           uuid.NewString(),
		Template:     kind,
		RowsRead:     preview.RowsRead,
		RowsRejected: preview.RowsRejected,
		Results:      make([]models.DispatchResult, len(items)),
		StartedAt:    utils.UTCNow(),
	}

	workers := min(b.concurrency, len(items))
	b.logger.Printf("batch %s: starting template=%s rows=%d recipients=%d rejected=%d workers=%d",
		result.ID, kind, result.RowsRead, len(items), result.RowsRejected, workers)

	// a dispatch that started is allowed to finish even if the batch is canceled
	dispatchCtx := context.WithoutCancel(ctx)

	var (
		wg         sync.WaitGroup
		observerMu sync.Mutex
		jobs       = make(chan int)
		started    = make([]bool, len(items))
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := b.dispatch(dispatchCtx, items[i])
				result.Results[i] = res

				if b.observer != nil {
					observerMu.Lock()
					b.observer(i, res)
					observerMu.Unlock()
				}
			}
		}()
	}

	canceled := false
feed:
	for i := range items {
		if ctx.Err() != nil {
			canceled = true
			break
		}
		select {
		case jobs <- i:
			started[i] = true
		case <-ctx.Done():
			canceled = true
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if canceled {
		for i, ok := range started {
			if ok {
				continue
			}
			result.Results[i] = models.DispatchResult{
				Status:     models.DispatchStatusFailed,
				Recipient:  items[i].Recipient,
				Message:    items[i].Message,
				Diagnostic: ErrBatchCanceled.Error(),
			}
		}
	}

	result.Canceled = canceled
	result.FinishedAt = utils.UTCNow()
	result.Summarize()
	smsBatchesTotal.WithLabelValues(kind.String(), batchOutcome(canceled, result.AllSucceeded)).Inc()

	b.logger.Printf("batch %s: finished sent=%d failed=%d all_succeeded=%t canceled=%t elapsed=%s",
		result.ID, result.SentCount, result.FailedCount, result.AllSucceeded, result.Canceled,
		result.FinishedAt.Sub(result.StartedAt))

	if canceled {
		return result, NewBusinessError("BATCH_CANCELED", "Batch canceled", fmt.Errorf("%w: %w", ErrBatchCanceled, ctx.Err()))
	}
	return result, nil
}

func (b *BatchFlowImpl) dispatch(ctx context.Context, item models.PreviewItem) models.DispatchResult {
	res := b.gateway.Dispatch(ctx, item.Recipient, item.Message)
	if res == nil {
		res = &models.DispatchResult{
			Status:     models.DispatchStatusFailed,
			Recipient:  item.Recipient,
			Message:    item.Message,
			Diagnostic: "gateway returned no result",
		}
	}

	smsDispatchTotal.WithLabelValues(res.Status.String()).Inc()
	smsDispatchDuration.Observe(res.Duration.Seconds())
	if res.Failed() {
		b.logger.Printf("dispatch: row=%d phone=%s failed: %s", item.Recipient.Row, item.Recipient.Phone, res.Diagnostic)
	}
	return *res
}
