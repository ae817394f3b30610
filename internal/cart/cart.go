package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/drstein77/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned when a non-positive quantity reaches Add.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// Cart holds the lines of one session. At most one line exists per product id.
type Cart struct {
	mx        sync.RWMutex
	id        string
	lines     []models.CartLine
	updatedAt time.Time
	now       func() time.Time
}

// New creates an empty cart for the given session id.
func New(id string) *Cart {
	return &Cart{id: id, now: time.Now}
}

// Restore rebuilds a cart from a persisted view. Lines with non-positive quantities are dropped
// and duplicate products are merged so the one-line-per-product rule holds after loading.
func Restore(view models.CartView) *Cart {
	c := New(view.ID)
	for _, l := range view.Lines {
		if l.Quantity <= 0 {
			continue
		}
		c.merge(l.Product, l.Quantity)
	}
	c.updatedAt = view.UpdatedAt
	return c
}

// ID returns the session id owning the cart.
func (c *Cart) ID() string {
	return c.id
}

// Add puts qty units of product into the cart. A zero qty means one unit.
// Adding a product that already has a line increments that line.
func (c *Cart) Add(product models.Product, qty int) error {
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return ErrInvalidQuantity
	}

	c.mx.Lock()
	defer c.mx.Unlock()

	c.merge(product, qty)
	c.touch()
	return nil
}

func (c *Cart) merge(product models.Product, qty int) {
	for i := range c.lines {
		if c.lines[i].Product.ID == product.ID {
			c.lines[i].Quantity += qty
			return
		}
	}
	c.lines = append(c.lines, models.CartLine{Product: product, Quantity: qty})
}

// Remove drops the line for productID. It reports whether a line was removed.
func (c *Cart) Remove(productID int) bool {
	c.mx.Lock()
	defer c.mx.Unlock()

	kept := c.lines[:0]
	removed := false
	for _, l := range c.lines {
		if l.Product.ID == productID {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	c.lines = kept
	if removed {
		c.touch()
	}
	return removed
}

// SetQuantity overwrites the quantity of an existing line; qty <= 0 removes it.
// It reports whether a line for productID existed.
func (c *Cart) SetQuantity(productID, qty int) bool {
	if qty <= 0 {
		return c.Remove(productID)
	}

	c.mx.Lock()
	defer c.mx.Unlock()

	for i := range c.lines {
		if c.lines[i].Product.ID == productID {
			c.lines[i].Quantity = qty
			c.touch()
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.lines = nil
	c.touch()
}

// Take empties the cart and returns what it held in one step.
func (c *Cart) Take() models.CartView {
	c.mx.Lock()
	defer c.mx.Unlock()

	view := c.view()
	c.lines = nil
	c.touch()
	return view
}

// PutBack returns lines removed by Take. They go ahead of lines added since,
// and quantities merge when a product was added again in between.
func (c *Cart) PutBack(lines []models.CartLine) {
	c.mx.Lock()
	defer c.mx.Unlock()

	added := c.lines
	c.lines = nil
	for _, l := range lines {
		c.merge(l.Product, l.Quantity)
	}
	for _, l := range added {
		c.merge(l.Product, l.Quantity)
	}
	c.touch()
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []models.CartLine {
	c.mx.RLock()
	defer c.mx.RUnlock()

	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Count is the number of distinct lines.
func (c *Cart) Count() int {
	c.mx.RLock()
	defer c.mx.RUnlock()
	return len(c.lines)
}

// Items is the sum of quantities over all lines.
func (c *Cart) Items() int {
	c.mx.RLock()
	defer c.mx.RUnlock()

	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Total is the sum of price × quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	c.mx.RLock()
	defer c.mx.RUnlock()
	return total(c.lines)
}

// View returns a serializable snapshot of the cart.
func (c *Cart) View() models.CartView {
	c.mx.RLock()
	defer c.mx.RUnlock()

	return c.view()
}

func (c *Cart) view() models.CartView {
	lines := make([]models.CartLine, len(c.lines))
	copy(lines, c.lines)

	items := 0
	for _, l := range lines {
		items += l.Quantity
	}

	return models.CartView{
		ID:        c.id,
		Lines:     lines,
		Count:     len(lines),
		Items:     items,
		Total:     total(lines),
		UpdatedAt: c.updatedAt,
	}
}

func (c *Cart) touch() {
	c.updatedAt = c.now()
}

func total(lines []models.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}
