package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kuritho/vendo-finder-final/internal/catalog"
	"github.com/Kuritho/vendo-finder-final/internal/clients"
	"github.com/Kuritho/vendo-finder-final/internal/events"
	"github.com/Kuritho/vendo-finder-final/internal/reservation"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

var (
	ErrEmptyCart     = errors.New("no items to purchase")
	ErrOrderRejected = errors.New("order rejected")
	ErrUnpricedItem  = errors.New("cart has an item without a price")
	ErrNotReady      = errors.New("cart is not ready")
)

const (
	noticeEmptyCart   = "No items to purchase"
	noticeOrderFailed = "Failed to create order"
)

// OrderAPI submits orders to the remote API.
type OrderAPI interface {
	CreateOrder(ctx context.Context, lines []clients.OrderLine) (clients.OrderConfirmation, error)
}

// Service drives the cart screen against a device's reservation engine.
type Service struct {
	loader    *catalog.Loader
	orders    OrderAPI
	publisher events.OrderPlacedPublisher
	logger    *zap.Logger
}

func NewService(loader *catalog.Loader, orders OrderAPI, publisher events.OrderPlacedPublisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{loader: loader, orders: orders, publisher: publisher, logger: logger}
}

// Load reads the stored set and fetches the machine name and product details
// together. A store failure puts the screen in the failed phase; detail and
// name failures only degrade the display.
func (s *Service) Load(ctx context.Context, engine *reservation.Engine, machineID string) State {
	st := Reduce(State{}, LoadStarted{MachineID: machineID})

	items, err := engine.Load(ctx, machineID)
	if err != nil {
		s.logger.Error("reservation set unreadable",
			zap.String("machine_id", machineID),
			zap.Error(err))
		return Reduce(st, LoadFailed{Err: "Could not read your reserved items"})
	}

	var (
		name    string
		details map[int]vendo.Product
	)
	g := new(errgroup.Group)
	g.Go(func() error {
		name = s.loader.MachineName(ctx, machineID)
		return nil
	})
	g.Go(func() error {
		d, err := s.loader.Details(ctx, machineID, items)
		if err != nil {
			s.logger.Warn("product details unavailable",
				zap.String("machine_id", machineID),
				zap.Error(err))
			return nil
		}
		details = d
		return nil
	})
	_ = g.Wait()

	return Reduce(st, Loaded{MachineName: name, Items: items, Details: details})
}

// UpdateQuantity sets the quantity of the line at index, clamped to 1.
func (s *Service) UpdateQuantity(ctx context.Context, st State, engine *reservation.Engine, index, quantity int) (State, error) {
	if st.Phase != PhaseReady {
		return st, ErrNotReady
	}
	items, err := engine.UpdateQuantity(ctx, st.MachineID, index, quantity)
	if err != nil {
		return st, err
	}
	return Reduce(st, ItemsChanged{Items: items}), nil
}

// Remove deletes the line at index and forgets its cached detail.
func (s *Service) Remove(ctx context.Context, st State, engine *reservation.Engine, index int) (State, error) {
	if st.Phase != PhaseReady {
		return st, ErrNotReady
	}
	items, removed, err := engine.RemoveItem(ctx, st.MachineID, index)
	if err != nil {
		return st, err
	}
	return Reduce(st, ItemsChanged{Items: items, DropDetail: removed.ProductID}), nil
}

// Submit places one order for the whole cart. It is never retried. On
// failure the stored set is untouched and the state carries a notice.
func (s *Service) Submit(ctx context.Context, st State, engine *reservation.Engine, meta events.EventMeta, deviceID string) (State, error) {
	if st.Phase != PhaseReady {
		return st, ErrNotReady
	}
	if st.Empty() {
		return Reduce(st, Noticed{Message: noticeEmptyCart}), ErrEmptyCart
	}

	lines, err := orderLines(st.Items)
	if err != nil {
		return Reduce(st, Noticed{Message: noticeOrderFailed}), fmt.Errorf("%w: %v", ErrUnpricedItem, err)
	}

	st = Reduce(st, SubmitStarted{})
	conf, err := s.orders.CreateOrder(ctx, lines)
	if err != nil {
		s.logger.Warn("order submission failed",
			zap.String("machine_id", st.MachineID),
			zap.Error(err))
		return Reduce(st, SubmitFailed{Notice: failureNotice(err)}), fmt.Errorf("%w: %v", ErrOrderRejected, err)
	}

	receipt := Receipt{
		Code:        conf.Code,
		OrderDate:   conf.OrderDate,
		PurchasedAt: parseOrderDate(conf.OrderDate),
		TotalAmount: conf.TotalAmount,
		MachineName: st.MachineName,
		Lines:       st.Lines,
	}

	if err := engine.Clear(ctx, st.MachineID); err != nil {
		// The order exists upstream; the stale set is left for the user to remove.
		s.logger.Error("clear reservation set after order",
			zap.String("machine_id", st.MachineID),
			zap.String("order_code", conf.Code),
			zap.Error(err))
	}

	if meta.PartitionKey == "" {
		meta.PartitionKey = st.MachineID
	}
	if err := s.publisher.PublishOrderPlaced(ctx, meta, orderPlacedPayload(st, conf, deviceID)); err != nil {
		s.logger.Warn("publish order placed",
			zap.String("order_code", conf.Code),
			zap.Error(err))
	}

	return Reduce(st, SubmitSucceeded{Receipt: receipt}), nil
}

// Dismiss closes the receipt, leaving an empty ready cart.
func (s *Service) Dismiss(st State) State {
	if st.Phase != PhaseReceipt {
		return st
	}
	return Reduce(st, ReceiptDismissed{})
}

func orderLines(items reservation.Set) ([]clients.OrderLine, error) {
	out := make([]clients.OrderLine, 0, len(items))
	for _, it := range items {
		price, err := it.UnitPrice()
		if err != nil {
			return nil, err
		}
		out = append(out, clients.OrderLine{
			ProductVariantID: it.ProductID,
			Quantity:         it.Quantity,
			Price:            price.InexactFloat64(),
		})
	}
	return out, nil
}

func failureNotice(err error) string {
	var rejected *clients.RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return noticeOrderFailed
}

var orderDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseOrderDate reads the server timestamp. Unknown formats yield nil and
// the raw string is shown instead.
func parseOrderDate(raw string) *time.Time {
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func orderPlacedPayload(st State, conf clients.OrderConfirmation, deviceID string) events.OrderPlacedPayload {
	items := make([]events.OrderPlacedItem, 0, len(st.Items))
	for _, it := range st.Items {
		items = append(items, events.OrderPlacedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return events.OrderPlacedPayload{
		OrderCode:   conf.Code,
		MachineID:   st.MachineID,
		DeviceID:    deviceID,
		OrderDate:   conf.OrderDate,
		TotalAmount: conf.TotalAmount,
		Items:       items,
	}
}
