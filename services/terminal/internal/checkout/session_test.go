package checkout

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestSession(gateway OrderGateway) *Session {
	submitter := NewSubmitter(SubmitterDeps{Gateway: gateway}, nil)
	return NewSession("maria", newTestCatalog(), submitter)
}

func TestSessionPlaceOrderBlankBuilderNeverSubmits(t *testing.T) {
	gateway := NewMockGateway()
	session := newTestSession(gateway)

	_, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, "")

	var ve ValidationErrors
	if !errors.As(err, &ve) || !ve.Has(NoLines) {
		t.Fatalf("PlaceOrder() error = %v, want NoLines", err)
	}
	if gateway.Calls() != 0 {
		t.Errorf("gateway called %d times, want 0", gateway.Calls())
	}
	if session.Phase() != PhaseComposing {
		t.Errorf("Phase() = %s, want composing", session.Phase())
	}
}

func TestSessionPlaceOrderSuccess(t *testing.T) {
	gateway := NewMockGateway()
	var submitted Order
	gateway.CreateOrderFunc = func(ctx context.Context, order Order) (Order, error) {
		submitted = order
		return Order{ID: "srv-42", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), Total: dec("1")}, nil
	}
	session := newTestSession(gateway)

	_ = session.Edit(func(cart *Cart, builder *Builder) error {
		_ = builder.SetLineItem(0, "Coffee")
		_ = builder.SetLineQuantity(0, 2)
		builder.AddPayment()
		_ = builder.SetPaymentField(0, PaymentDescription, "Cup")
		_ = builder.SetPaymentField(0, PaymentAmount, "5")
		return cart.Add(itemNamed("Tea"))
	})

	order, err := session.PlaceOrder(context.Background(), OrderTypeTakeOut, "Card")
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	wantTotal := Total(submitted.Lines, submitted.AdditionalPayments)
	if !order.Total.Equal(wantTotal) || !order.Total.Equal(dec("105")) {
		t.Errorf("Total = %s, want %s", order.Total, wantTotal)
	}
	if order.ID != "srv-42" {
		t.Errorf("ID = %q, want srv-42", order.ID)
	}
	if order.CreatedBy != "maria" {
		t.Errorf("CreatedBy = %q, want maria", order.CreatedBy)
	}

	view := session.View()
	reset := NewBuilder(nil)
	if len(view.Lines) != len(reset.Lines()) || !view.Lines[0].IsBlank() {
		t.Errorf("builder lines after success = %+v, want reset state", view.Lines)
	}
	if len(view.Payments) != 0 {
		t.Errorf("builder payments after success = %d, want 0", len(view.Payments))
	}
	if len(view.Cart) != 0 {
		t.Errorf("cart after success = %d lines, want 0", len(view.Cart))
	}
	if view.Phase != PhasePlaced || view.OrderID != "srv-42" {
		t.Errorf("phase/order = %s/%s, want placed/srv-42", view.Phase, view.OrderID)
	}

	last, err := session.LastOrder()
	if err != nil || last.ID != "srv-42" {
		t.Errorf("LastOrder() = %v, %v", last.ID, err)
	}
}

func TestSessionPlaceOrderFailureKeepsState(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "network", err: NewRemoteError(ErrNetwork, 0, "", errors.New("dial tcp: refused"))},
		{name: "auth", err: NewRemoteError(ErrAuth, 401, "token expired", nil)},
		{name: "server", err: NewRemoteError(ErrServer, 500, "duplicate", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := NewMockGateway()
			gateway.CreateOrderFunc = func(ctx context.Context, order Order) (Order, error) {
				return Order{}, tt.err
			}
			session := newTestSession(gateway)
			_ = session.Edit(func(_ *Cart, builder *Builder) error {
				return builder.SetLineItem(0, "Coffee")
			})
			before := session.View()

			_, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, "")
			if !errors.Is(err, tt.err) {
				t.Fatalf("PlaceOrder() error = %v, want %v", err, tt.err)
			}

			after := session.View()
			if after.Phase != PhaseComposing {
				t.Errorf("Phase = %s, want composing", after.Phase)
			}
			if len(after.Lines) != len(before.Lines) || after.Lines[0].Name != "Coffee" {
				t.Errorf("builder changed after failure: %+v", after.Lines)
			}
			if after.LastError == "" {
				t.Error("LastError not recorded")
			}
			if _, err := session.LastOrder(); !errors.Is(err, ErrNoReceipt) {
				t.Errorf("LastOrder() error = %v, want ErrNoReceipt", err)
			}
		})
	}
}

func TestSessionPlaceOrderInFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	gateway := NewMockGateway()
	gateway.CreateOrderFunc = func(ctx context.Context, order Order) (Order, error) {
		close(entered)
		<-release
		return Order{ID: "srv-1"}, nil
	}
	session := newTestSession(gateway)
	_ = session.Edit(func(_ *Cart, builder *Builder) error {
		return builder.SetLineItem(0, "Coffee")
	})

	done := make(chan error, 1)
	go func() {
		_, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, "")
		done <- err
	}()
	<-entered

	if _, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, ""); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("second PlaceOrder() error = %v, want ErrSubmissionInFlight", err)
	}
	if err := session.NewOrder(); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("NewOrder() error = %v, want ErrSubmissionInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first PlaceOrder() error = %v", err)
	}
	if gateway.Calls() != 1 {
		t.Errorf("gateway called %d times, want 1", gateway.Calls())
	}
}

func TestSessionPlacedThenNewOrder(t *testing.T) {
	session := newTestSession(NewMockGateway())
	_ = session.Edit(func(_ *Cart, builder *Builder) error {
		return builder.SetLineItem(0, "Tea")
	})
	if _, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, ""); err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}

	if _, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, ""); !errors.Is(err, ErrOrderPlaced) {
		t.Fatalf("PlaceOrder() after placed error = %v, want ErrOrderPlaced", err)
	}

	if err := session.NewOrder(); err != nil {
		t.Fatalf("NewOrder() error = %v", err)
	}
	if session.Phase() != PhaseComposing {
		t.Errorf("Phase() = %s, want composing", session.Phase())
	}
	if _, err := session.LastOrder(); !errors.Is(err, ErrNoReceipt) {
		t.Errorf("LastOrder() error = %v, want ErrNoReceipt", err)
	}
}

func TestSessionWithoutSubmitter(t *testing.T) {
	session := NewSession("", newTestCatalog(), nil)
	_ = session.Edit(func(_ *Cart, builder *Builder) error {
		return builder.SetLineItem(0, "Tea")
	})

	_, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, "")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("PlaceOrder() error = %v, want ErrNetwork", err)
	}
	if !Retryable(err) {
		t.Error("missing submitter should be retryable")
	}
}

func TestSessionIdempotencyKey(t *testing.T) {
	network := NewRemoteError(ErrNetwork, 0, "", errors.New("dial tcp: refused"))
	unknown := NewRemoteError(ErrOutcomeUnknown, 0, "", context.DeadlineExceeded)

	tests := []struct {
		name     string
		first    error
		edit     bool
		wantSame bool
	}{
		{name: "retryAfterNetwork", first: network, wantSame: true},
		{name: "editAfterNetwork", first: network, edit: true, wantSame: false},
		{name: "retryAfterUnknown", first: unknown, wantSame: true},
		{name: "editAfterUnknown", first: unknown, edit: true, wantSame: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var keys []string
			gateway := NewMockGateway()
			gateway.CreateOrderFunc = func(ctx context.Context, order Order) (Order, error) {
				keys = append(keys, order.IdempotencyKey)
				if len(keys) == 1 {
					return Order{}, tt.first
				}
				return Order{ID: "srv-1"}, nil
			}
			session := newTestSession(gateway)
			_ = session.Edit(func(_ *Cart, builder *Builder) error {
				return builder.SetLineItem(0, "Coffee")
			})

			if _, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, ""); !errors.Is(err, tt.first) {
				t.Fatalf("first PlaceOrder() error = %v, want %v", err, tt.first)
			}
			if !Retryable(network) || Retryable(unknown) {
				t.Fatal("only network failures are retryable")
			}
			if tt.edit {
				_ = session.Edit(func(_ *Cart, builder *Builder) error {
					return builder.SetLineQuantity(0, 3)
				})
			}
			if _, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, ""); err != nil {
				t.Fatalf("second PlaceOrder() error = %v", err)
			}

			if len(keys) != 2 || keys[0] == "" {
				t.Fatalf("keys = %v", keys)
			}
			if (keys[0] == keys[1]) != tt.wantSame {
				t.Errorf("keys = %v, want same = %v", keys, tt.wantSame)
			}
		})
	}
}

func TestSessionNewOrderUsesFreshKey(t *testing.T) {
	var keys []string
	gateway := NewMockGateway()
	gateway.CreateOrderFunc = func(ctx context.Context, order Order) (Order, error) {
		keys = append(keys, order.IdempotencyKey)
		return Order{ID: "srv-1"}, nil
	}
	session := newTestSession(gateway)

	for i := 0; i < 2; i++ {
		_ = session.Edit(func(_ *Cart, builder *Builder) error {
			return builder.SetLineItem(0, "Tea")
		})
		if _, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, ""); err != nil {
			t.Fatalf("PlaceOrder() error = %v", err)
		}
		if err := session.NewOrder(); err != nil {
			t.Fatalf("NewOrder() error = %v", err)
		}
	}

	if len(keys) != 2 || keys[0] == keys[1] {
		t.Errorf("keys = %v, want two distinct keys", keys)
	}
}

func TestSessionEditsDuringSubmission(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantLines int
	}{
		{name: "successDiscardsEdits", wantLines: 1},
		{name: "failureKeepsEdits", err: NewRemoteError(ErrServer, 500, "boom", nil), wantLines: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			entered := make(chan struct{})
			var submitted Order
			gateway := NewMockGateway()
			gateway.CreateOrderFunc = func(ctx context.Context, order Order) (Order, error) {
				submitted = order
				close(entered)
				<-release
				if tt.err != nil {
					return Order{}, tt.err
				}
				return Order{ID: "srv-1"}, nil
			}
			session := newTestSession(gateway)
			_ = session.Edit(func(_ *Cart, builder *Builder) error {
				return builder.SetLineItem(0, "Coffee")
			})

			done := make(chan error, 1)
			go func() {
				_, err := session.PlaceOrder(context.Background(), OrderTypeDineIn, "")
				done <- err
			}()
			<-entered

			err := session.Edit(func(_ *Cart, builder *Builder) error {
				builder.AddBlankLine()
				return builder.SetLineItem(1, "Tea")
			})
			if err != nil {
				t.Fatalf("Edit() during submission error = %v", err)
			}
			close(release)
			<-done

			if len(submitted.Lines) != 1 || submitted.Lines[0].Name != "Coffee" {
				t.Errorf("submitted lines = %+v, want only Coffee", submitted.Lines)
			}

			view := session.View()
			if len(view.Lines) != tt.wantLines {
				t.Fatalf("lines after submission = %d, want %d", len(view.Lines), tt.wantLines)
			}
			if tt.err == nil && !view.Lines[0].IsBlank() {
				t.Errorf("builder not reset after success: %+v", view.Lines)
			}
			if tt.err != nil && view.Lines[1].Name != "Tea" {
				t.Errorf("edit lost after failure: %+v", view.Lines)
			}
		})
	}
}
