package checkout

import (
	"strings"
	"testing"
	"time"
)

func placedOrder() Order {
	o := testOrder()
	o.ID = "srv-7"
	o.CreatedAt = time.Date(2026, 3, 1, 18, 5, 9, 0, time.UTC)
	return o
}

func TestReceiptFormatterFormat(t *testing.T) {
	f := NewReceiptFormatter("$", time.UTC)
	order := placedOrder()
	// Stored totals win over anything recomputed from lines.
	order.Total = order.Total.Add(dec("0.01"))

	r := f.Format(order)

	if r.Header.OrderID != "srv-7" || r.Header.Cashier != "maria" || r.Header.OrderType != OrderTypeTakeOut {
		t.Errorf("Header = %+v", r.Header)
	}
	if len(r.Lines) != 1 || !r.Lines[0].LineTotal.Equal(dec("100")) {
		t.Errorf("Lines = %+v", r.Lines)
	}
	if len(r.Payments) != 1 || r.Payments[0].Description != "Cup" {
		t.Errorf("Payments = %+v", r.Payments)
	}
	if !r.Total.Equal(dec("105.01")) {
		t.Errorf("Total = %s, want 105.01", r.Total)
	}
}

func TestReceiptFormatterToPrintable(t *testing.T) {
	f := NewReceiptFormatter("$", time.UTC)
	receipt := f.Format(placedOrder())

	tests := []struct {
		name        string
		format      PrintFormat
		contentType string
		contains    []string
	}{
		{
			name:        "html",
			format:      PrintHTML,
			contentType: "text/html; charset=utf-8",
			contains: []string{
				"<title>Order Receipt - srv-7</title>",
				"ORDER RECEIPT",
				"2026-03-01",
				"18:05:09",
				"Coffee",
				"$50.00",
				"$100.00",
				"Cup",
				"$5.00",
				"TOTAL: $105.00",
				"Thank you for your order!",
			},
		},
		{
			name:        "defaultIsHTML",
			format:      "",
			contentType: "text/html; charset=utf-8",
			contains:    []string{"ORDER RECEIPT"},
		},
		{
			name:        "text",
			format:      PrintText,
			contentType: "text/plain; charset=utf-8",
			contains: []string{
				"ORDER RECEIPT",
				"srv-7",
				"2026-03-01 18:05:09",
				"Coffee x2",
				"$100.00",
				"Additional",
				"TOTAL",
				"$105.00",
				"Thank you for your order!",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := f.ToPrintable(receipt, tt.format)
			if err != nil {
				t.Fatalf("ToPrintable() error = %v", err)
			}
			if p.ContentType != tt.contentType {
				t.Errorf("ContentType = %q, want %q", p.ContentType, tt.contentType)
			}
			if p.Title != "Order Receipt - srv-7" {
				t.Errorf("Title = %q", p.Title)
			}
			body := string(p.Body)
			for _, want := range tt.contains {
				if !strings.Contains(body, want) {
					t.Errorf("body missing %q:\n%s", want, body)
				}
			}
		})
	}
}

func TestReceiptMissingValues(t *testing.T) {
	f := NewReceiptFormatter("$", time.UTC)
	order := testOrder()
	order.CreatedBy = ""

	p, err := f.ToPrintable(f.Format(order), PrintText)
	if err != nil {
		t.Fatalf("ToPrintable() error = %v", err)
	}
	body := string(p.Body)
	if strings.Count(body, missingValue) < 3 {
		t.Errorf("expected N/A for id, date, time and cashier:\n%s", body)
	}
	if p.Title != "Order Receipt - N/A" {
		t.Errorf("Title = %q", p.Title)
	}
}

func TestReceiptLocalTime(t *testing.T) {
	loc := time.FixedZone("UTC-6", -6*60*60)
	f := NewReceiptFormatter("$", loc)

	p, err := f.ToPrintable(f.Format(placedOrder()), PrintText)
	if err != nil {
		t.Fatalf("ToPrintable() error = %v", err)
	}
	if !strings.Contains(string(p.Body), "2026-03-01 12:05:09") {
		t.Errorf("timestamp not converted to local time:\n%s", p.Body)
	}
}

func TestReceiptUnsupportedFormat(t *testing.T) {
	f := NewReceiptFormatter("$", time.UTC)
	if _, err := f.ToPrintable(f.Format(placedOrder()), PrintFormat("pdf")); err == nil {
		t.Error("ToPrintable() expected error for pdf")
	}
}
