package checkout

import "github.com/shopspring/decimal"

// Priced is satisfied by CartLine and OrderLine.
type Priced interface {
	LineTotal() decimal.Decimal
	IsBlank() bool
}

// Subtotal sums price times quantity over non-blank lines.
func Subtotal[L Priced](lines []L) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		if l.IsBlank() {
			continue
		}
		sum = sum.Add(l.LineTotal())
	}
	return sum
}

// AdditionalTotal sums the payments that count (described, amount > 0).
func AdditionalTotal(payments []AdditionalPayment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		if !p.Counts() {
			continue
		}
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Total is Subtotal plus AdditionalTotal. No rounding is applied here.
func Total[L Priced](lines []L, payments []AdditionalPayment) decimal.Decimal {
	return Subtotal(lines).Add(AdditionalTotal(payments))
}

// Totals groups the three figures shown while composing.
type Totals struct {
	Subtotal        decimal.Decimal `json:"subtotal"`
	AdditionalTotal decimal.Decimal `json:"additional_total"`
	Total           decimal.Decimal `json:"total"`
}

// ComputeTotals prices lines and payments in one pass.
func ComputeTotals[L Priced](lines []L, payments []AdditionalPayment) Totals {
	sub := Subtotal(lines)
	add := AdditionalTotal(payments)
	return Totals{Subtotal: sub, AdditionalTotal: add, Total: sub.Add(add)}
}
