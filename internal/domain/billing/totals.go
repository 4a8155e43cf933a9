package billing

import "github.com/shopspring/decimal"

// Totals holds the derived monetary amounts of an invoice. All values are
// rounded to 2 decimal places; rounding happens once on the final sums, never
// on intermediate terms, so per-item rounding error cannot compound.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// CalculateInvoiceTotals computes an invoice's totals from its line items and
// an order-level discount percentage:
//
//	subtotal       = sum(quantity * unitPrice)
//	taxAmount      = sum(quantity * unitPrice * tax/100)
//	discountAmount = subtotal * discount/100
//	total          = subtotal - discountAmount + taxAmount
//
// A pure function with no error conditions: an empty item list yields all
// zeros (callers reject empty item lists at the validation boundary).
func CalculateInvoiceTotals(items []InvoiceItem, discountPct decimal.Decimal) Totals {
	subtotal := decimal.Zero
	taxAmount := decimal.Zero
	hundred := decimal.NewFromInt(100)

	for i := range items {
		line := items[i].Quantity.Mul(items[i].UnitPrice)
		subtotal = subtotal.Add(line)
		taxAmount = taxAmount.Add(line.Mul(items[i].Tax).Div(hundred))
	}

	discountAmount := subtotal.Mul(discountPct).Div(hundred)
	total := subtotal.Sub(discountAmount).Add(taxAmount)

	return Totals{
		Subtotal:       subtotal.Round(2),
		TaxAmount:      taxAmount.Round(2),
		DiscountAmount: discountAmount.Round(2),
		Total:          total.Round(2),
	}
}
