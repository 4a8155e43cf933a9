package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/shared"
)

// ActivityLogHandler writes a structured log entry for every domain event.
// It serves as the audit trail for invoice and payment activity.
type ActivityLogHandler struct {
	logger *zap.Logger
}

// NewActivityLogHandler creates a new activity log handler
func NewActivityLogHandler(logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{logger: logger}
}

// Handle logs the event with its aggregate identity and type-specific fields
func (h *ActivityLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *billing.InvoiceCreatedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("currency", e.Currency),
			zap.String("total", e.Total.String()),
		)
	case *billing.InvoicePaymentStatusChangedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("previous_status", string(e.PreviousStatus)),
			zap.String("new_status", string(e.NewStatus)),
		)
	case *billing.PaymentRecordedEvent:
		fields = append(fields,
			zap.String("payment_number", e.PaymentNumber),
			zap.String("invoice_id", e.InvoiceID.String()),
			zap.String("amount_paid", e.AmountPaid.String()),
		)
	}

	h.logger.Info("domain event", fields...)
	return nil
}

// EventTypes returns an empty slice so the handler receives every event
func (h *ActivityLogHandler) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*ActivityLogHandler)(nil)
