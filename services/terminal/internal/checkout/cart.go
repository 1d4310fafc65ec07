package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cart accumulates selections made while browsing. A Cart has one owner at
// a time; its lines leave it only by value through DrainInto.
type Cart struct {
	lines []CartLine
}

func NewCart() *Cart {
	return &Cart{}
}

// Add puts item in the cart, bumping the quantity when the item is already there.
func (c *Cart) Add(item MenuItem) error {
	if !item.Available {
		return fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}

	for i := range c.lines {
		if sameItem(c.lines[i].Line, item) {
			c.lines[i].Quantity++
			return nil
		}
	}

	c.lines = append(c.lines, NewCartLine(item))
	return nil
}

// SetQuantity changes the quantity of the line at index. Quantities below 1
// leave the line unchanged.
func (c *Cart) SetQuantity(index, qty int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrIndexOutOfRange
	}
	if qty < 1 {
		return nil
	}
	c.lines[index].Quantity = qty
	return nil
}

func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.lines) {
		return ErrIndexOutOfRange
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// DrainInto hands every line to b, in cart order, and empties the cart.
func (c *Cart) DrainInto(b *Builder) error {
	if len(c.lines) == 0 {
		return ErrEmptyCart
	}

	handoff := make([]OrderLine, len(c.lines))
	for i, cl := range c.lines {
		handoff[i] = OrderLine{Line: cl.Line}
	}
	b.absorb(handoff)
	c.lines = nil
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the cart contents.
func (c *Cart) Lines() []CartLine {
	return append([]CartLine(nil), c.lines...)
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) Total() decimal.Decimal {
	return Subtotal(c.lines)
}

// sameItem matches on item id, falling back to the name for records the
// resto API served without one.
func sameItem(l Line, item MenuItem) bool {
	if item.ID == "" {
		return l.ItemID == "" && l.Name == item.Name
	}
	return l.ItemID == item.ID
}
