package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCatalogLoad(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		observer := &MockCatalogObserver{}
		c := NewCatalog(&MockCatalogSource{}, nil)
		c.Observe(observer)

		if err := c.Load(context.Background()); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(c.Items()) != 4 {
			t.Errorf("Items() = %d, want 4", len(c.Items()))
		}
		if len(c.AvailableItems()) != 3 {
			t.Errorf("AvailableItems() = %d, want 3", len(c.AvailableItems()))
		}
		if c.LoadedAt().IsZero() {
			t.Error("LoadedAt() not set")
		}
		if len(observer.Loads) != 1 || observer.Loads[0] != 4 || observer.Errors[0] != nil {
			t.Errorf("observer = %+v", observer)
		}
	})

	t.Run("failureKeepsPreviousSnapshot", func(t *testing.T) {
		source := &MockCatalogSource{}
		c := NewCatalog(source, nil)
		_ = c.Load(context.Background())

		remote := NewRemoteError(ErrNetwork, 0, "", errors.New("refused"))
		source.ListItemsFunc = func(ctx context.Context) ([]MenuItem, error) {
			return nil, remote
		}

		err := c.Load(context.Background())
		if !errors.Is(err, ErrCatalogUnavailable) || !errors.Is(err, ErrNetwork) {
			t.Fatalf("Load() error = %v, want ErrCatalogUnavailable wrapping ErrNetwork", err)
		}
		if len(c.Items()) != 4 {
			t.Errorf("Items() = %d after failed reload, want 4", len(c.Items()))
		}
	})

	t.Run("noSource", func(t *testing.T) {
		err := NewCatalog(nil, nil).Load(context.Background())
		if !errors.Is(err, ErrCatalogUnavailable) {
			t.Fatalf("Load() error = %v, want ErrCatalogUnavailable", err)
		}
	})
}

func TestCatalogReplaceSkipsInvalid(t *testing.T) {
	c := NewCatalog(nil, nil)
	kept := c.Replace([]MenuItem{
		{ID: "1", Name: "Coffee", Price: dec("50"), Available: true},
		{ID: "2", Name: "  ", Price: dec("10"), Available: true},
		{ID: "3", Name: "Refund", Price: dec("-1"), Available: true},
	})

	if kept != 1 || len(c.Items()) != 1 {
		t.Errorf("Replace() kept %d, Items() = %d, want 1", kept, len(c.Items()))
	}
}

func TestCatalogQueries(t *testing.T) {
	c := newTestCatalog()

	tests := []struct {
		name  string
		query func() []MenuItem
		want  []string
	}{
		{
			name:  "itemsInCategory",
			query: func() []MenuItem { return c.ItemsInCategory("drinks") },
			want:  []string{"Coffee", "Tea"},
		},
		{
			name:  "categoryHidesUnavailable",
			query: func() []MenuItem { return c.ItemsInCategory("Mains") },
			want:  nil,
		},
		{
			name:  "searchByName",
			query: func() []MenuItem { return c.Search("cake") },
			want:  []string{"Cheesecake"},
		},
		{
			name:  "searchByCategory",
			query: func() []MenuItem { return c.Search("DESS") },
			want:  []string{"Cheesecake"},
		},
		{
			name:  "emptySearchListsAvailable",
			query: func() []MenuItem { return c.Search(" ") },
			want:  []string{"Coffee", "Tea", "Cheesecake"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.query()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d items, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("item %d = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

func TestCatalogCategories(t *testing.T) {
	got := newTestCatalog().Categories()
	want := []string{"Desserts", "Drinks", "Mains"}

	if len(got) != len(want) {
		t.Fatalf("Categories() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCatalogLookup(t *testing.T) {
	c := newTestCatalog()

	tests := []struct {
		name    string
		item    string
		wantErr error
	}{
		{name: "available", item: "Tea"},
		{name: "trimmed", item: "  Tea "},
		{name: "unavailable", item: "Soup of the day", wantErr: ErrItemUnavailable},
		{name: "unknown", item: "Lobster", wantErr: ErrItemNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := c.Lookup(tt.item)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && item.Name != "Tea" {
				t.Errorf("Lookup() = %+v", item)
			}
		})
	}

	if _, ok := c.FindByName("Soup of the day"); ok {
		t.Error("FindByName() returned an unavailable item")
	}
}

func TestCatalogConcurrentReadsDuringReload(t *testing.T) {
	c := NewCatalog(&MockCatalogSource{}, nil)
	_ = c.Load(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Load(context.Background())
		}()
		go func() {
			defer wg.Done()
			if _, ok := c.FindByName("Coffee"); !ok {
				t.Error("Coffee missing during reload")
			}
			_ = c.Categories()
		}()
	}
	wg.Wait()
}

func TestCatalogObserveDuringReload(t *testing.T) {
	c := NewCatalog(&MockCatalogSource{}, nil)
	first := &MockCatalogObserver{}
	second := &MockCatalogObserver{}
	c.Observe(first)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.Load(context.Background())
		}()
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				c.Observe(second)
			} else {
				c.Observe(first)
			}
		}(i)
	}
	wg.Wait()

	c.Observe(second)
	second.mu.Lock()
	before := len(second.Loads)
	second.mu.Unlock()

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	second.mu.Lock()
	defer second.mu.Unlock()
	if len(second.Loads) != before+1 {
		t.Errorf("observer saw %d loads, want %d", len(second.Loads), before+1)
	}
}
