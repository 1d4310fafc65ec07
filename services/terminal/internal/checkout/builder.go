package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentField selects which column of an AdditionalPayment row to edit.
type PaymentField string

const (
	PaymentDescription PaymentField = "description"
	PaymentAmount      PaymentField = "amount"
)

// Builder is the editable working set of one checkout. Its line list is
// never empty: removing the last line leaves one blank row.
type Builder struct {
	resolver ItemResolver
	lines    []OrderLine
	payments []AdditionalPayment
}

// NewBuilder returns a builder holding one blank line. Item names are
// resolved through resolver, normally the shared Catalog.
func NewBuilder(resolver ItemResolver) *Builder {
	b := &Builder{resolver: resolver}
	b.Reset()
	return b
}

func (b *Builder) AddBlankLine() {
	b.lines = append(b.lines, blankOrderLine())
}

// SetLineCategory picks a category, which invalidates any chosen item.
func (b *Builder) SetLineCategory(index int, category string) error {
	if !b.validLine(index) {
		return ErrIndexOutOfRange
	}
	l := &b.lines[index]
	l.Category = strings.TrimSpace(category)
	l.Name = ""
	l.ItemID = ""
	l.Price = decimal.Zero
	return nil
}

// SetLineItem picks an item by name. Price, id and category come from the
// catalog; an unknown name zeroes the price and leaves the line unresolved.
func (b *Builder) SetLineItem(index int, name string) error {
	if !b.validLine(index) {
		return ErrIndexOutOfRange
	}
	l := &b.lines[index]
	l.Name = strings.TrimSpace(name)

	item, ok := b.resolve(l.Name)
	if !ok {
		l.ItemID = ""
		l.Price = decimal.Zero
		return nil
	}
	l.ItemID = item.ID
	l.Price = item.Price
	if item.Category != "" {
		l.Category = item.Category
	}
	return nil
}

// SetLineQuantity follows the cart rule: below 1 is a no-op.
func (b *Builder) SetLineQuantity(index, qty int) error {
	if !b.validLine(index) {
		return ErrIndexOutOfRange
	}
	if qty < 1 {
		return nil
	}
	b.lines[index].Quantity = qty
	return nil
}

func (b *Builder) RemoveLine(index int) error {
	if !b.validLine(index) {
		return ErrIndexOutOfRange
	}
	b.lines = append(b.lines[:index], b.lines[index+1:]...)
	if len(b.lines) == 0 {
		b.lines = []OrderLine{blankOrderLine()}
	}
	return nil
}

func (b *Builder) AddPayment() {
	b.payments = append(b.payments, AdditionalPayment{Amount: decimal.Zero})
}

// SetPaymentField edits one column of a payment row. An empty amount means zero.
func (b *Builder) SetPaymentField(index int, field PaymentField, value string) error {
	if index < 0 || index >= len(b.payments) {
		return ErrIndexOutOfRange
	}

	switch field {
	case PaymentDescription:
		b.payments[index].Description = value
	case PaymentAmount:
		amount, err := parseAmount(value)
		if err != nil {
			return err
		}
		b.payments[index].Amount = amount
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func (b *Builder) RemovePayment(index int) error {
	if index < 0 || index >= len(b.payments) {
		return ErrIndexOutOfRange
	}
	b.payments = append(b.payments[:index], b.payments[index+1:]...)
	return nil
}

// Validate lists what prevents submission. An empty result means the
// builder is submittable.
func (b *Builder) Validate() ValidationErrors {
	var errs ValidationErrors
	resolved := 0

	for i, l := range b.lines {
		if l.IsBlank() {
			continue
		}
		if _, ok := b.resolve(l.Name); !ok || l.ItemID == "" {
			errs = append(errs, ValidationError{
				Code:    UnresolvedItem,
				Line:    i,
				Name:    l.Name,
				Message: fmt.Sprintf("line %d: %q is not on the menu", i+1, l.Name),
			})
			continue
		}
		if l.Category != "" {
			resolved++
		}
	}

	if resolved == 0 {
		errs = append(errs, ValidationError{
			Code:    NoLines,
			Message: "add at least one item",
		})
	}
	return errs
}

// Snapshot freezes the builder into a submission payload. Blank lines and
// payments that do not count are left out.
func (b *Builder) Snapshot(orderType OrderType, createdBy, paymentMethod string) (Order, error) {
	if _, err := ParseOrderType(string(orderType)); err != nil {
		return Order{}, err
	}
	if errs := b.Validate(); len(errs) > 0 {
		return Order{}, errs
	}

	lines := make([]OrderLine, 0, len(b.lines))
	for _, l := range b.lines {
		if !l.IsBlank() {
			lines = append(lines, l)
		}
	}
	payments := make([]AdditionalPayment, 0, len(b.payments))
	for _, p := range b.payments {
		if p.Counts() {
			payments = append(payments, p)
		}
	}

	if strings.TrimSpace(createdBy) == "" {
		createdBy = DefaultCreatedBy
	}
	if strings.TrimSpace(paymentMethod) == "" {
		paymentMethod = DefaultPaymentMethod
	}

	totals := ComputeTotals(lines, payments)
	return Order{
		OrderType:          orderType,
		Lines:              lines,
		AdditionalPayments: payments,
		Subtotal:           totals.Subtotal,
		AdditionalTotal:    totals.AdditionalTotal,
		Total:              totals.Total,
		CreatedBy:          createdBy,
		PaymentMethod:      paymentMethod,
	}, nil
}

// Reset returns to one blank line and no payments.
func (b *Builder) Reset() {
	b.lines = []OrderLine{blankOrderLine()}
	b.payments = nil
}

func (b *Builder) Lines() []OrderLine {
	return append([]OrderLine(nil), b.lines...)
}

func (b *Builder) Payments() []AdditionalPayment {
	return append([]AdditionalPayment(nil), b.payments...)
}

func (b *Builder) Totals() Totals {
	return ComputeTotals(b.lines, b.payments)
}

// absorb appends handed-off cart lines after dropping blank placeholder rows.
func (b *Builder) absorb(lines []OrderLine) {
	kept := make([]OrderLine, 0, len(b.lines)+len(lines))
	for _, l := range b.lines {
		if !l.IsBlank() {
			kept = append(kept, l)
		}
	}
	kept = append(kept, lines...)
	if len(kept) == 0 {
		kept = append(kept, blankOrderLine())
	}
	b.lines = kept
}

func (b *Builder) resolve(name string) (MenuItem, bool) {
	if b.resolver == nil || strings.TrimSpace(name) == "" {
		return MenuItem{}, false
	}
	return b.resolver.FindByName(name)
}

func (b *Builder) validLine(index int) bool {
	return index >= 0 && index < len(b.lines)
}

func parseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return amount, nil
}
