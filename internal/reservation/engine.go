package reservation

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

// Engine applies reservation mutations to a device's Store. Every successful
// mutation is persisted before it returns.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Reserve adds one unit of p to the machine's set. Products with zero or
// unknown stock are refused with ErrOutOfStock and nothing is written.
// Name, price and image are captured now and never refreshed.
func (e *Engine) Reserve(ctx context.Context, machineID string, p vendo.Product) (Set, error) {
	if !p.Available() {
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, p.DisplayName())
	}

	set, err := e.store.Get(ctx, machineID)
	if err != nil {
		return nil, err
	}
	set = set.Clone()

	if i := set.Index(p.ID); i >= 0 {
		set[i].Quantity++
	} else {
		price := ""
		if p.Price.Valid {
			price = frozenPrice(p.Price.Decimal)
		}
		image := p.ImageURL
		if image == "" {
			image = vendo.ImageFor(p.ID)
		}
		set = append(set, Line{
			ProductID:   p.ID,
			ProductName: p.DisplayName(),
			Price:       price,
			Quantity:    1,
			ImageURL:    image,
		})
	}

	if err := e.store.Put(ctx, machineID, set); err != nil {
		return nil, err
	}
	return set, nil
}

// UpdateQuantity replaces the quantity of the line at index, clamped to 1.
func (e *Engine) UpdateQuantity(ctx context.Context, machineID string, index, quantity int) (Set, error) {
	set, err := e.store.Get(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(set) {
		return nil, fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}
	if quantity < 1 {
		quantity = 1
	}

	set = set.Clone()
	set[index].Quantity = quantity
	if err := e.store.Put(ctx, machineID, set); err != nil {
		return nil, err
	}
	return set, nil
}

// RemoveItem deletes the line at index and returns it with the new set.
func (e *Engine) RemoveItem(ctx context.Context, machineID string, index int) (Set, Line, error) {
	set, err := e.store.Get(ctx, machineID)
	if err != nil {
		return nil, Line{}, err
	}
	if index < 0 || index >= len(set) {
		return nil, Line{}, fmt.Errorf("%w: index %d", ErrLineNotFound, index)
	}

	removed := set[index]
	next := make(Set, 0, len(set)-1)
	next = append(next, set[:index]...)
	next = append(next, set[index+1:]...)

	if err := e.store.Put(ctx, machineID, next); err != nil {
		return nil, Line{}, err
	}
	return next, removed, nil
}

// Load returns the machine's current set.
func (e *Engine) Load(ctx context.Context, machineID string) (Set, error) {
	return e.store.Get(ctx, machineID)
}

// Clear drops the machine's set from storage.
func (e *Engine) Clear(ctx context.Context, machineID string) error {
	return e.store.Clear(ctx, machineID)
}

// frozenPrice keeps every fetched digit, padded to at least two decimals.
func frozenPrice(d decimal.Decimal) string {
	places := int32(2)
	if -d.Exponent() > places {
		places = -d.Exponent()
	}
	return d.StringFixed(places)
}
