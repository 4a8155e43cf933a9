package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestReconciliationService_DeriveStatus(t *testing.T) {
	svc := NewReconciliationService()

	tests := []struct {
		name      string
		leftToPay decimal.Decimal
		totalPaid decimal.Decimal
		want      PaymentStatus
	}{
		{
			name:      "fully settled",
			leftToPay: decimal.Zero,
			totalPaid: d("100"),
			want:      PaymentStatusPaid,
		},
		{
			name:      "zero total and nothing paid is still paid",
			leftToPay: decimal.Zero,
			totalPaid: decimal.Zero,
			want:      PaymentStatusPaid,
		},
		{
			name:      "partially settled",
			leftToPay: d("60"),
			totalPaid: d("40"),
			want:      PaymentStatusPartiallyPaid,
		},
		{
			name:      "nothing paid",
			leftToPay: d("100"),
			totalPaid: decimal.Zero,
			want:      PaymentStatusUnpaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.DeriveStatus(tt.leftToPay, tt.totalPaid))
		})
	}
}

func TestReconciliationService_PlanSubmission(t *testing.T) {
	svc := NewReconciliationService()

	t.Run("first partial payment", func(t *testing.T) {
		plan, err := svc.PlanSubmission(SubmissionInput{
			InvoiceTotal:      d("100"),
			OtherPaymentsPaid: decimal.Zero,
			AmountPaid:        d("40"),
		})
		require.NoError(t, err)
		assert.True(t, plan.TotalAmount.Equal(d("100")))
		assert.True(t, plan.TotalPaid.Equal(d("40")))
		assert.True(t, plan.LeftToPay.Equal(d("60")))
		assert.Equal(t, PaymentStatusPartiallyPaid, plan.Status)
	})

	t.Run("second payment settles the invoice", func(t *testing.T) {
		plan, err := svc.PlanSubmission(SubmissionInput{
			InvoiceTotal:      d("100"),
			OtherPaymentsPaid: d("40"),
			AmountPaid:        d("60"),
		})
		require.NoError(t, err)
		assert.True(t, plan.LeftToPay.IsZero())
		assert.Equal(t, PaymentStatusPaid, plan.Status)
	})

	t.Run("overpayment is rejected with the remaining amount", func(t *testing.T) {
		plan, err := svc.PlanSubmission(SubmissionInput{
			InvoiceTotal:      d("100"),
			OtherPaymentsPaid: d("40"),
			AmountPaid:        d("70"),
		})
		require.Error(t, err)
		assert.Nil(t, plan)

		var overErr *OverpaymentError
		require.ErrorAs(t, err, &overErr)
		assert.True(t, overErr.Remaining.Equal(d("60")))
		assert.Equal(t, "You cannot pay more than the remaining amount. The remaining amount is 60.00.", err.Error())
	})

	t.Run("zero amount against untouched invoice stays unpaid", func(t *testing.T) {
		plan, err := svc.PlanSubmission(SubmissionInput{
			InvoiceTotal:      d("100"),
			OtherPaymentsPaid: decimal.Zero,
			AmountPaid:        decimal.Zero,
		})
		require.NoError(t, err)
		assert.True(t, plan.LeftToPay.Equal(d("100")))
		assert.Equal(t, PaymentStatusUnpaid, plan.Status)
	})

	t.Run("total override replaces the invoice total", func(t *testing.T) {
		override := d("200")
		plan, err := svc.PlanSubmission(SubmissionInput{
			InvoiceTotal:      d("100"),
			OtherPaymentsPaid: decimal.Zero,
			AmountPaid:        d("150"),
			TotalOverride:     &override,
		})
		require.NoError(t, err)
		assert.True(t, plan.TotalAmount.Equal(d("200")))
		assert.True(t, plan.LeftToPay.Equal(d("50")))
		assert.Equal(t, PaymentStatusPartiallyPaid, plan.Status)
	})

	t.Run("zero override falls back to the invoice total", func(t *testing.T) {
		override := decimal.Zero
		plan, err := svc.PlanSubmission(SubmissionInput{
			InvoiceTotal:      d("100"),
			OtherPaymentsPaid: decimal.Zero,
			AmountPaid:        d("100"),
			TotalOverride:     &override,
		})
		require.NoError(t, err)
		assert.True(t, plan.TotalAmount.Equal(d("100")))
		assert.Equal(t, PaymentStatusPaid, plan.Status)
	})
}

func TestReconciliationService_RebasePayments(t *testing.T) {
	svc := NewReconciliationService()

	newPayment := func(amountPaid string) Payment {
		p, err := NewPayment(uuid.New(), "PAY-001", PaymentMethodCash, time.Now(), d(amountPaid), CustomerSnapshot{})
		if err != nil {
			t.Fatal(err)
		}
		return *p
	}

	t.Run("lowered total leaves payments partially paid", func(t *testing.T) {
		payments := []Payment{newPayment("40")}
		svc.RebasePayments(payments, d("50"))

		assert.True(t, payments[0].TotalAmount.Equal(d("50")))
		assert.True(t, payments[0].LeftToPay.Equal(d("10")))
		assert.Equal(t, PaymentStatusPartiallyPaid, payments[0].Status)
	})

	t.Run("payment exceeding the new total clamps to zero and reads paid", func(t *testing.T) {
		payments := []Payment{newPayment("80")}
		svc.RebasePayments(payments, d("50"))

		assert.True(t, payments[0].LeftToPay.IsZero())
		assert.Equal(t, PaymentStatusPaid, payments[0].Status)
	})

	t.Run("raised total reopens a settled payment", func(t *testing.T) {
		payments := []Payment{newPayment("100")}
		svc.RebasePayments(payments, d("100"))
		require.Equal(t, PaymentStatusPaid, payments[0].Status)

		svc.RebasePayments(payments, d("150"))
		assert.True(t, payments[0].LeftToPay.Equal(d("50")))
		assert.Equal(t, PaymentStatusPartiallyPaid, payments[0].Status)
	})
}

func TestReconciliationService_DeriveInvoiceStatus(t *testing.T) {
	svc := NewReconciliationService()

	payment := func(amountPaid string) Payment {
		return Payment{AmountPaid: d(amountPaid)}
	}

	tests := []struct {
		name     string
		payments []Payment
		total    decimal.Decimal
		want     PaymentStatus
	}{
		{
			name:     "no payments",
			payments: nil,
			total:    d("100"),
			want:     PaymentStatusUnpaid,
		},
		{
			name:     "only zero-amount payments",
			payments: []Payment{payment("0")},
			total:    d("100"),
			want:     PaymentStatusUnpaid,
		},
		{
			name:     "sum below total",
			payments: []Payment{payment("30"), payment("20")},
			total:    d("100"),
			want:     PaymentStatusPartiallyPaid,
		},
		{
			name:     "sum equals total",
			payments: []Payment{payment("40"), payment("60")},
			total:    d("100"),
			want:     PaymentStatusPaid,
		},
		{
			name:     "sum above total after the total was lowered",
			payments: []Payment{payment("80")},
			total:    d("50"),
			want:     PaymentStatusPaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.DeriveInvoiceStatus(tt.payments, tt.total))
		})
	}
}

func TestPaymentStatus_IsValid(t *testing.T) {
	assert.True(t, PaymentStatusUnpaid.IsValid())
	assert.True(t, PaymentStatusPartiallyPaid.IsValid())
	assert.True(t, PaymentStatusPaid.IsValid())
	assert.True(t, PaymentStatusPending.IsValid())
	assert.False(t, PaymentStatus("SETTLED").IsValid())
}
