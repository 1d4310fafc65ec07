package event

import "time"

const (
	// MenuItemsTopic delivers changes made to menu items by the back office.
	MenuItemsTopic = "menu.items"

	EventMenuItemCreated      = "menu.item.created"
	EventMenuItemUpdated      = "menu.item.updated"
	EventMenuItemDeleted      = "menu.item.deleted"
	EventMenuItemAvailability = "menu.item.availability_changed"
)

// MenuItemEvent only tells the terminal that its catalog is stale; the
// terminal reloads the full listing rather than patching single entries.
type MenuItemEvent struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	MenuItemID string    `json:"menu_item_id"`
	Name       string    `json:"name,omitempty"`
	Available  *bool     `json:"is_available,omitempty"`
}
