package event

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/invoicely/backend/internal/domain/billing"
	"github.com/invoicely/backend/internal/domain/shared/valueobject"
)

func newObservedHandler() (*ActivityLogHandler, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewActivityLogHandler(zap.New(core)), logs
}

func newEventInvoice(t *testing.T) *billing.Invoice {
	t.Helper()
	now := time.Now()
	inv, err := billing.NewInvoice(
		"INV-2001",
		now,
		now.AddDate(0, 1, 0),
		uuid.New(),
		uuid.New(),
		billing.CustomerSnapshot{Name: "Acme Corp", Email: "billing@acme.com"},
		billing.IssuerSnapshot{Name: "Jane Doe", Email: "jane@studio.io"},
		valueobject.USD,
		decimal.Zero,
	)
	require.NoError(t, err)
	return inv
}

func TestActivityLogHandler_ReceivesAllEvents(t *testing.T) {
	handler, _ := newObservedHandler()
	assert.Empty(t, handler.EventTypes())
}

func TestActivityLogHandler_InvoiceCreated(t *testing.T) {
	handler, logs := newObservedHandler()
	inv := newEventInvoice(t)

	err := handler.Handle(context.Background(), billing.NewInvoiceCreatedEvent(inv))
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "domain event", entries[0].Message)

	fields := entries[0].ContextMap()
	assert.Equal(t, "InvoiceCreated", fields["event_type"])
	assert.Equal(t, "Invoice", fields["aggregate_type"])
	assert.Equal(t, "INV-2001", fields["invoice_number"])
	assert.Equal(t, "USD", fields["currency"])
}

func TestActivityLogHandler_PaymentStatusChanged(t *testing.T) {
	handler, logs := newObservedHandler()
	inv := newEventInvoice(t)

	event := billing.NewInvoicePaymentStatusChangedEvent(inv, billing.PaymentStatusUnpaid)
	err := handler.Handle(context.Background(), event)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "InvoicePaymentStatusChanged", fields["event_type"])
	assert.Equal(t, string(billing.PaymentStatusUnpaid), fields["previous_status"])
	assert.Equal(t, string(inv.PaymentStatus), fields["new_status"])
}
