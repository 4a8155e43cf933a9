// Package billing contains the invoicing core: the Invoice aggregate with its
// line items and derived totals, the Payment aggregate, and the
// ReconciliationService that keeps an invoice's payment status consistent
// with the sum of the payments recorded against it.
package billing
