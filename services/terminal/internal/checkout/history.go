package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OrderLister lists orders already persisted by the resto API.
type OrderLister interface {
	ListOrders(ctx context.Context) ([]Order, error)
}

// DaySummary groups the orders placed on one calendar day.
type DaySummary struct {
	Day    string          `json:"day"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
	Orders []Order         `json:"orders,omitempty"`
}

// History is the transaction history view: orders by day, newest first.
type History struct {
	lister   OrderLister
	location *time.Location
}

func NewHistory(lister OrderLister, location *time.Location) *History {
	if location == nil {
		location = time.Local
	}
	return &History{lister: lister, location: location}
}

// Days returns one summary per day that has orders, newest day first.
func (h *History) Days(ctx context.Context) ([]DaySummary, error) {
	orders, err := h.list(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByDay(orders, h.location), nil
}

// OnDay returns the orders of day (YYYY-MM-DD), newest first.
func (h *History) OnDay(ctx context.Context, day string) (DaySummary, error) {
	if _, err := time.ParseInLocation(dayLayout, day, h.location); err != nil {
		return DaySummary{}, fmt.Errorf("%w %q: %w", ErrInvalidDay, day, err)
	}
	orders, err := h.list(ctx)
	if err != nil {
		return DaySummary{}, err
	}
	for _, d := range GroupByDay(orders, h.location) {
		if d.Day == day {
			return d, nil
		}
	}
	return DaySummary{Day: day, Total: decimal.Zero}, nil
}

func (h *History) list(ctx context.Context) ([]Order, error) {
	if h.lister == nil {
		return nil, NewRemoteError(ErrNetwork, 0, "order history not configured", nil)
	}
	return h.lister.ListOrders(ctx)
}

const dayLayout = "2006-01-02"

// GroupByDay buckets orders by the local calendar day of CreatedAt. Orders
// without a timestamp are left out.
func GroupByDay(orders []Order, location *time.Location) []DaySummary {
	byDay := make(map[string]*DaySummary)
	for _, o := range orders {
		if o.CreatedAt.IsZero() {
			continue
		}
		day := o.CreatedAt.In(location).Format(dayLayout)
		d, ok := byDay[day]
		if !ok {
			d = &DaySummary{Day: day, Total: decimal.Zero}
			byDay[day] = d
		}
		d.Count++
		d.Total = d.Total.Add(o.Total)
		d.Orders = append(d.Orders, o)
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, d := range byDay {
		sort.Slice(d.Orders, func(i, j int) bool {
			return d.Orders[i].CreatedAt.After(d.Orders[j].CreatedAt)
		})
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day > out[j].Day })
	return out
}
