package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kuritho/vendo-finder-final/internal/reservation"
)

var ErrUnknownProduct = errors.New("product not in catalog")

// Open loads machineID and returns its initial screen.
func (l *Loader) Open(ctx context.Context, machineID string) State {
	return Reduce(State{}, Loaded{Catalog: l.Load(ctx, machineID)})
}

// Reserve reserves one unit of productID through engine. Out-of-stock
// attempts leave the screen unchanged apart from the notice.
func Reserve(ctx context.Context, s State, engine *reservation.Engine, productID int) (State, error) {
	p, ok := s.Product(productID)
	if !ok {
		return s, fmt.Errorf("%w: %d", ErrUnknownProduct, productID)
	}

	if _, err := engine.Reserve(ctx, s.MachineID, p); err != nil {
		if errors.Is(err, reservation.ErrOutOfStock) {
			return Reduce(s, Noticed{Message: "Out of stock: " + p.DisplayName()}), err
		}
		return s, err
	}

	s = Reduce(s, Reserved{ProductID: productID})
	return Reduce(s, Noticed{Message: "Reserved: " + p.DisplayName()}), nil
}

// ToggleOrders opens the order history, fetching it, or closes it.
func (l *Loader) ToggleOrders(ctx context.Context, s State) State {
	if s.ShowOrders {
		return Reduce(s, OrdersHidden{})
	}

	orders, err := l.Orders(ctx, s.MachineID)
	if err != nil {
		l.logger.Warn("order history unavailable",
			zap.String("machine_id", s.MachineID),
			zap.Error(err))
		return Reduce(s, OrdersShown{Err: "Order history is unavailable"})
	}
	return Reduce(s, OrdersShown{Orders: orders})
}
