package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"

	"github.com/appetiteclub/pos/pkg/event"
)

// CatalogSubscriber reloads the catalog whenever the back office changes a
// menu item.
type CatalogSubscriber struct {
	subscriber events.Subscriber
	catalog    *Catalog
	logger     aqm.Logger
}

func NewCatalogSubscriber(sub events.Subscriber, catalog *Catalog, logger aqm.Logger) *CatalogSubscriber {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &CatalogSubscriber{
		subscriber: sub,
		catalog:    catalog,
		logger:     logger,
	}
}

func (s *CatalogSubscriber) Start(ctx context.Context) error {
	s.logger.Info("starting catalog subscriber", "topic", event.MenuItemsTopic)
	if s.catalog != nil {
		if err := s.catalog.Load(ctx); err != nil {
			s.logger.Info("catalog warmup failed", "error", err)
		}
	}
	if s.subscriber == nil {
		return fmt.Errorf("catalog subscriber not configured")
	}
	return s.subscriber.Subscribe(ctx, event.MenuItemsTopic, s.handleEvent)
}

func (s *CatalogSubscriber) Stop(ctx context.Context) error {
	return nil
}

func (s *CatalogSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt event.MenuItemEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Info("invalid menu item event", "error", err)
		return nil
	}
	if !strings.HasPrefix(evt.EventType, "menu.item.") {
		s.logger.Debug("ignoring menu event", "event_type", evt.EventType)
		return nil
	}
	if s.catalog == nil {
		return nil
	}

	if err := s.catalog.Load(ctx); err != nil {
		return err
	}
	s.logger.Debug("catalog refreshed", "event_type", evt.EventType, "menu_item_id", evt.MenuItemID)
	return nil
}
