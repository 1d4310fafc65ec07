package checkout

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed assets/receipt.html
var receiptAssets embed.FS

var receiptTemplate = template.Must(template.ParseFS(receiptAssets, "assets/receipt.html"))

const missingValue = "N/A"

type ReceiptHeader struct {
	OrderID       string    `json:"order_id"`
	OrderType     OrderType `json:"order_type"`
	Timestamp     time.Time `json:"timestamp"`
	Cashier       string    `json:"cashier"`
	PaymentMethod string    `json:"payment_method"`
}

type ReceiptLine struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type ReceiptPayment struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// Receipt is a read-only projection of a persisted order. Its totals are
// copied from the order, never recomputed, so it shows what was stored.
type Receipt struct {
	Header          ReceiptHeader    `json:"header"`
	Lines           []ReceiptLine    `json:"lines"`
	Payments        []ReceiptPayment `json:"payments"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	AdditionalTotal decimal.Decimal  `json:"additional_total"`
	Total           decimal.Decimal  `json:"total"`
}

type PrintFormat string

const (
	PrintHTML PrintFormat = "html"
	PrintText PrintFormat = "text"
)

// Printable is what the print surface receives.
type Printable struct {
	ContentType string
	Title       string
	Body        []byte
}

// ReceiptFormatter renders receipts with a currency symbol and a local clock.
type ReceiptFormatter struct {
	currency string
	location *time.Location
}

func NewReceiptFormatter(currency string, location *time.Location) *ReceiptFormatter {
	if location == nil {
		location = time.Local
	}
	return &ReceiptFormatter{currency: currency, location: location}
}

// Format projects order into a Receipt.
func (f *ReceiptFormatter) Format(order Order) Receipt {
	r := Receipt{
		Header: ReceiptHeader{
			OrderID:       order.ID,
			OrderType:     order.OrderType,
			Timestamp:     order.CreatedAt,
			Cashier:       order.CreatedBy,
			PaymentMethod: order.PaymentMethod,
		},
		Lines:           make([]ReceiptLine, 0, len(order.Lines)),
		Payments:        make([]ReceiptPayment, 0, len(order.AdditionalPayments)),
		Subtotal:        order.Subtotal,
		AdditionalTotal: order.AdditionalTotal,
		Total:           order.Total,
	}
	for _, l := range order.Lines {
		r.Lines = append(r.Lines, ReceiptLine{
			Name:      l.Name,
			Category:  l.Category,
			Quantity:  l.Quantity,
			UnitPrice: l.Price,
			LineTotal: l.LineTotal(),
		})
	}
	for _, p := range order.AdditionalPayments {
		r.Payments = append(r.Payments, ReceiptPayment{Description: p.Description, Amount: p.Amount})
	}
	return r
}

// ToPrintable renders r for the print surface. Amounts are fixed to two
// decimals here and nowhere earlier.
func (f *ReceiptFormatter) ToPrintable(r Receipt, format PrintFormat) (Printable, error) {
	view := f.view(r)
	title := "Order Receipt - " + view.Header.OrderID

	switch format {
	case PrintHTML, "":
		var buf bytes.Buffer
		if err := receiptTemplate.ExecuteTemplate(&buf, "receipt", view); err != nil {
			return Printable{}, fmt.Errorf("cannot render receipt: %w", err)
		}
		return Printable{ContentType: "text/html; charset=utf-8", Title: title, Body: buf.Bytes()}, nil
	case PrintText:
		body, err := f.renderText(view)
		if err != nil {
			return Printable{}, err
		}
		return Printable{ContentType: "text/plain; charset=utf-8", Title: title, Body: body}, nil
	}
	return Printable{}, fmt.Errorf("unsupported print format %q", format)
}

type receiptView struct {
	Header struct {
		OrderID       string
		OrderType     string
		Cashier       string
		PaymentMethod string
	}
	Date            string
	Time            string
	Lines           []receiptLineView
	Payments        []receiptPaymentView
	Subtotal        string
	AdditionalTotal string
	Total           string
}

type receiptLineView struct {
	Name      string
	Category  string
	Quantity  int
	UnitPrice string
	LineTotal string
}

type receiptPaymentView struct {
	Description string
	Amount      string
}

func (f *ReceiptFormatter) view(r Receipt) receiptView {
	var v receiptView
	v.Header.OrderID = orMissing(r.Header.OrderID)
	v.Header.OrderType = orMissing(string(r.Header.OrderType))
	v.Header.Cashier = orMissing(r.Header.Cashier)
	v.Header.PaymentMethod = orMissing(r.Header.PaymentMethod)
	v.Date, v.Time = missingValue, missingValue
	if !r.Header.Timestamp.IsZero() {
		ts := r.Header.Timestamp.In(f.location)
		v.Date = ts.Format("2006-01-02")
		v.Time = ts.Format("15:04:05")
	}

	for _, l := range r.Lines {
		v.Lines = append(v.Lines, receiptLineView{
			Name:      l.Name,
			Category:  l.Category,
			Quantity:  l.Quantity,
			UnitPrice: f.money(l.UnitPrice),
			LineTotal: f.money(l.LineTotal),
		})
	}
	for _, p := range r.Payments {
		v.Payments = append(v.Payments, receiptPaymentView{Description: p.Description, Amount: f.money(p.Amount)})
	}
	v.Subtotal = f.money(r.Subtotal)
	v.AdditionalTotal = f.money(r.AdditionalTotal)
	v.Total = f.money(r.Total)
	return v
}

func (f *ReceiptFormatter) renderText(v receiptView) ([]byte, error) {
	var buf bytes.Buffer
	rule := strings.Repeat("-", 40)

	fmt.Fprintln(&buf, "ORDER RECEIPT")
	fmt.Fprintln(&buf, rule)

	tw := tabwriter.NewWriter(&buf, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "Order ID\t%s\n", v.Header.OrderID)
	fmt.Fprintf(tw, "Type\t%s\n", v.Header.OrderType)
	fmt.Fprintf(tw, "Date\t%s %s\n", v.Date, v.Time)
	fmt.Fprintf(tw, "Cashier\t%s\n", v.Header.Cashier)
	fmt.Fprintf(tw, "Payment\t%s\n", v.Header.PaymentMethod)
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	fmt.Fprintln(&buf, rule)

	tw = tabwriter.NewWriter(&buf, 0, 0, 1, ' ', tabwriter.AlignRight)
	for _, l := range v.Lines {
		fmt.Fprintf(tw, "%s x%d\t@ %s\t%s\t\n", l.Name, l.Quantity, l.UnitPrice, l.LineTotal)
	}
	for _, p := range v.Payments {
		fmt.Fprintf(tw, "%s\t\t%s\t\n", p.Description, p.Amount)
	}
	fmt.Fprintf(tw, "Subtotal\t\t%s\t\n", v.Subtotal)
	if len(v.Payments) > 0 {
		fmt.Fprintf(tw, "Additional\t\t%s\t\n", v.AdditionalTotal)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%s\t\n", v.Total)
	if err := tw.Flush(); err != nil {
		return nil, err
	}

	fmt.Fprintln(&buf, rule)
	fmt.Fprintln(&buf, "Thank you for your order!")
	return buf.Bytes(), nil
}

func (f *ReceiptFormatter) money(d decimal.Decimal) string {
	return f.currency + d.StringFixed(2)
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingValue
	}
	return s
}
