package checkout

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aquamarinepk/aqm"
)

// CatalogSource lists every menu item known to the resto API.
type CatalogSource interface {
	ListItems(ctx context.Context) ([]MenuItem, error)
}

// ItemResolver resolves a chosen item name to its catalog entry.
type ItemResolver interface {
	FindByName(name string) (MenuItem, bool)
}

// CatalogObserver is told about every load attempt.
type CatalogObserver interface {
	ObserveCatalogLoad(items int, err error)
}

// Catalog caches the menu. Every terminal session reads from one Catalog,
// so the snapshot is swapped whole under the lock.
type Catalog struct {
	mu       sync.RWMutex
	items    []MenuItem
	byName   map[string]MenuItem
	loadedAt time.Time
	source   CatalogSource
	observer CatalogObserver
	logger   aqm.Logger
}

func NewCatalog(source CatalogSource, logger aqm.Logger) *Catalog {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Catalog{
		byName: make(map[string]MenuItem),
		source: source,
		logger: logger,
	}
}

// Observe registers o for load results.
func (c *Catalog) Observe(o CatalogObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

// Load replaces the cached snapshot with a fresh listing. On failure the
// previous snapshot stays in place.
func (c *Catalog) Load(ctx context.Context) error {
	if c.source == nil {
		return fmt.Errorf("%w: catalog source not configured", ErrCatalogUnavailable)
	}

	items, err := c.source.ListItems(ctx)
	if err != nil {
		c.observe(0, err)
		c.logger.Error("catalog load failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}

	kept := c.Replace(items)
	c.observe(kept, nil)
	c.logger.Debug("catalog loaded", "items", kept)
	return nil
}

// Replace installs items as the current snapshot. Records without a name or
// with a negative price are skipped. It returns the number of items kept.
func (c *Catalog) Replace(items []MenuItem) int {
	snapshot := make([]MenuItem, 0, len(items))
	byName := make(map[string]MenuItem, len(items))
	for _, it := range items {
		item, err := NewMenuItem(it.ID, it.Name, it.Category, it.Price, it.Available)
		if err != nil {
			c.logger.Debug("skipping invalid menu item", "item_id", it.ID, "error", err)
			continue
		}
		snapshot = append(snapshot, item)
		if _, dup := byName[item.Name]; !dup || item.Available {
			byName[item.Name] = item
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = snapshot
	c.byName = byName
	c.loadedAt = time.Now()
	return len(snapshot)
}

func (c *Catalog) observe(items int, err error) {
	c.mu.RLock()
	observer := c.observer
	c.mu.RUnlock()
	if observer != nil {
		observer.ObserveCatalogLoad(items, err)
	}
}

// Items returns every cached item, available or not.
func (c *Catalog) Items() []MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]MenuItem(nil), c.items...)
}

func (c *Catalog) AvailableItems() []MenuItem {
	return c.filter(func(MenuItem) bool { return true })
}

// ItemsInCategory returns the available items of one category.
func (c *Catalog) ItemsInCategory(category string) []MenuItem {
	return c.filter(func(it MenuItem) bool {
		return strings.EqualFold(it.Category, category)
	})
}

// Search matches available items whose name or category contains query,
// ignoring case.
func (c *Catalog) Search(query string) []MenuItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.AvailableItems()
	}
	return c.filter(func(it MenuItem) bool {
		return strings.Contains(strings.ToLower(it.Name), q) ||
			strings.Contains(strings.ToLower(it.Category), q)
	})
}

// FindByName returns the available item called name.
func (c *Catalog) FindByName(name string) (MenuItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.byName[strings.TrimSpace(name)]
	if !ok || !item.Available {
		return MenuItem{}, false
	}
	return item, true
}

// Lookup is FindByName with a reason: ErrItemUnavailable when the item
// exists but is switched off, ErrItemNotFound when it is not on the menu.
func (c *Catalog) Lookup(name string) (MenuItem, error) {
	if item, ok := c.FindByName(name); ok {
		return item, nil
	}

	c.mu.RLock()
	_, known := c.byName[strings.TrimSpace(name)]
	c.mu.RUnlock()
	if known {
		return MenuItem{}, fmt.Errorf("%w: %s", ErrItemUnavailable, name)
	}
	return MenuItem{}, fmt.Errorf("%w: %s", ErrItemNotFound, name)
}

// Categories lists the distinct categories of the cached items, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]struct{})
	var categories []string
	for _, it := range c.items {
		if it.Category == "" {
			continue
		}
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		categories = append(categories, it.Category)
	}
	sort.Strings(categories)
	return categories
}

func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

func (c *Catalog) filter(keep func(MenuItem) bool) []MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []MenuItem
	for _, it := range c.items {
		if it.Available && keep(it) {
			out = append(out, it)
		}
	}
	return out
}
