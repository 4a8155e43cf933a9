package billing

import (
	"testing"
	"time"

	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment(t *testing.T) {
	t.Run("valid payment starts unpaid with an event", func(t *testing.T) {
		p, err := NewPayment(uuid.New(), "PAY-001", PaymentMethodBankTransfer, time.Now(), d("40"), CustomerSnapshot{Name: "Acme"})
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusUnpaid, p.Status)
		assert.True(t, p.IsUnpaid())
		require.Len(t, p.GetDomainEvents(), 1)
		assert.Equal(t, "PaymentRecorded", p.GetDomainEvents()[0].EventType())
	})

	tests := []struct {
		name          string
		invoiceID     uuid.UUID
		paymentNumber string
		method        PaymentMethod
		amountPaid    decimal.Decimal
		wantCode      string
	}{
		{"missing invoice", uuid.Nil, "PAY-001", PaymentMethodCash, d("10"), "INVALID_INVOICE"},
		{"empty payment number", uuid.New(), "", PaymentMethodCash, d("10"), "INVALID_PAYMENT_NUMBER"},
		{"unknown method", uuid.New(), "PAY-001", PaymentMethod("Barter"), d("10"), "INVALID_PAYMENT_METHOD"},
		{"negative amount", uuid.New(), "PAY-001", PaymentMethodCash, d("-1"), "INVALID_AMOUNT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPayment(tt.invoiceID, tt.paymentNumber, tt.method, time.Now(), tt.amountPaid, CustomerSnapshot{})
			require.Error(t, err)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.wantCode, domainErr.Code)
		})
	}
}

func TestPayment_ApplyReconciliation(t *testing.T) {
	p, err := NewPayment(uuid.New(), "PAY-001", PaymentMethodCreditCard, time.Now(), d("40"), CustomerSnapshot{})
	require.NoError(t, err)
	require.Equal(t, 1, p.Version)

	p.ApplyReconciliation(SubmissionPlan{
		TotalAmount: d("100"),
		TotalPaid:   d("40"),
		LeftToPay:   d("60"),
		Status:      PaymentStatusPartiallyPaid,
	})

	assert.True(t, p.TotalAmount.Equal(d("100")))
	assert.True(t, p.LeftToPay.Equal(d("60")))
	assert.Equal(t, PaymentStatusPartiallyPaid, p.Status)
	assert.Equal(t, 2, p.Version)
}

func TestPayment_UpdateSubmission(t *testing.T) {
	p, err := NewPayment(uuid.New(), "PAY-001", PaymentMethodCash, time.Now(), d("40"), CustomerSnapshot{})
	require.NoError(t, err)

	newDate := time.Now().AddDate(0, 0, -3)
	require.NoError(t, p.UpdateSubmission("PAY-001-R1", PaymentMethodPayPal, newDate, d("55")))
	assert.Equal(t, "PAY-001-R1", p.PaymentNumber)
	assert.Equal(t, PaymentMethodPayPal, p.Method)
	assert.True(t, p.AmountPaid.Equal(d("55")))

	err = p.UpdateSubmission("", PaymentMethodCash, newDate, d("55"))
	require.Error(t, err)
	assert.Equal(t, "PAY-001-R1", p.PaymentNumber, "rejected update must not mutate")
}

func TestPaymentMethod_IsValid(t *testing.T) {
	assert.True(t, PaymentMethodCreditCard.IsValid())
	assert.True(t, PaymentMethodBankTransfer.IsValid())
	assert.True(t, PaymentMethodCash.IsValid())
	assert.True(t, PaymentMethodPayPal.IsValid())
	assert.False(t, PaymentMethod("Check").IsValid())
}

func TestCustomerSnapshot_ResolveWith(t *testing.T) {
	stored := CustomerSnapshot{
		Name:    "Acme Corp",
		Email:   "billing@acme.test",
		Phone:   "+40 700 000 000",
		Address: "1 Main St",
	}

	t.Run("nil live yields the stored snapshot", func(t *testing.T) {
		assert.Equal(t, stored, stored.ResolveWith(nil))
	})

	t.Run("live fields win, snapshot fills gaps", func(t *testing.T) {
		got := stored.ResolveWith(&CustomerSnapshot{Name: "Acme Corp Ltd", CompanyName: "Acme Holdings"})
		assert.Equal(t, "Acme Corp Ltd", got.Name)
		assert.Equal(t, "Acme Holdings", got.CompanyName)
		assert.Equal(t, "billing@acme.test", got.Email)
		assert.Equal(t, "1 Main St", got.Address)
	})

	t.Run("IsZero", func(t *testing.T) {
		assert.True(t, CustomerSnapshot{}.IsZero())
		assert.False(t, stored.IsZero())
	})
}
